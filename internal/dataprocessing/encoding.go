package dataprocessing

import (
	"bytes"
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
)

var errUndecodable = errors.New("input contains bytes outside Shift-JIS")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeShiftJIS converts Shift-JIS bytes to a UTF-8 string. Sequences the
// decoder cannot map are reported as an error instead of being replaced.
func DecodeShiftJIS(data []byte) (string, error) {
	out, err := japanese.ShiftJIS.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	if bytes.ContainsRune(out, utf8.RuneError) {
		return "", errUndecodable
	}
	return string(out), nil
}

// DecodeText accepts UTF-8 (with or without BOM) and falls back to Shift-JIS
func DecodeText(data []byte) (string, error) {
	if bytes.HasPrefix(data, utf8BOM) {
		return string(data[len(utf8BOM):]), nil
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	return DecodeShiftJIS(data)
}

func cleanHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return out
}
