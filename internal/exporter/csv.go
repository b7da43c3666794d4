package exporter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// Encoding selects the byte encoding of written CSV files
type Encoding int

const (
	// EncodingShiftJIS matches what the register and Excel on Japanese Windows expect
	EncodingShiftJIS Encoding = iota
	// EncodingUTF8BOM writes UTF-8 with a byte order mark
	EncodingUTF8BOM
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	Headers  []string
	Records  [][]string
	Encoding Encoding
}

// CSVWriter writes CSV files below a base directory
type CSVWriter struct {
	baseDir string
	logger  *slog.Logger
}

// NewCSVWriter creates a new CSV writer instance
func NewCSVWriter(baseDir string, logger *slog.Logger) *CSVWriter {
	return &CSVWriter{
		baseDir: baseDir,
		logger:  logger.With(slog.String("component", "csv_writer")),
	}
}

// WriteFile writes data to a CSV file with the given options and returns its path
func (w *CSVWriter) WriteFile(name string, options WriteOptions) (string, error) {
	fullPath := w.resolvePath(name)

	w.logger.Info("Writing CSV file",
		slog.String("full_path", fullPath),
		slog.Int("record_count", len(options.Records)))

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.Create(fullPath)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	replaced, err := WriteCSV(file, options)
	if err != nil {
		file.Close()
		return "", err
	}
	if replaced > 0 {
		w.logger.Warn("characters outside Shift-JIS were substituted",
			slog.String("full_path", fullPath),
			slog.Int("count", replaced))
	}
	return fullPath, file.Close()
}

// WriteCSV encodes headers and records to out. It returns how many
// characters Shift-JIS could not represent; those are written as the ASCII
// substitute and do not survive a round trip.
func WriteCSV(out io.Writer, options WriteOptions) (int, error) {
	var dst io.Writer = out
	var tw *transform.Writer
	replaced := 0
	switch options.Encoding {
	case EncodingUTF8BOM:
		if _, err := out.Write(utf8BOM); err != nil {
			return 0, fmt.Errorf("failed to write BOM: %w", err)
		}
	default:
		// characters outside JIS X 0208 become the ASCII substitute rather than failing the export
		replaced = countUnsupported(options.Headers, options.Records)
		tw = transform.NewWriter(out, encoding.ReplaceUnsupported(japanese.ShiftJIS.NewEncoder()))
		dst = tw
	}

	writer := csv.NewWriter(dst)
	writer.UseCRLF = true
	if len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return 0, fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return 0, fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, err
	}
	if tw != nil {
		if err := tw.Close(); err != nil {
			return 0, err
		}
	}
	return replaced, nil
}

// countUnsupported counts the runes of headers and records that have no
// Shift-JIS encoding
func countUnsupported(headers []string, records [][]string) int {
	enc := japanese.ShiftJIS.NewEncoder()
	n := 0
	count := func(fields []string) {
		for _, f := range fields {
			if _, err := enc.String(f); err == nil {
				continue
			}
			for _, r := range f {
				if _, err := enc.String(string(r)); err != nil {
					n++
				}
			}
		}
	}
	count(headers)
	for _, rec := range records {
		count(rec)
	}
	return n
}

// ReadCSV reads a file written by WriteCSV with the same encoding and
// returns the header row and the records
func ReadCSV(in io.Reader, enc Encoding) ([]string, [][]string, error) {
	data, err := io.ReadAll(in)
	if err != nil {
		return nil, nil, err
	}
	switch enc {
	case EncodingUTF8BOM:
		data = bytes.TrimPrefix(data, utf8BOM)
	default:
		data, err = japanese.ShiftJIS.NewDecoder().Bytes(data)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to decode Shift-JIS: %w", err)
		}
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, io.ErrUnexpectedEOF
	}
	return rows[0], rows[1:], nil
}

func (w *CSVWriter) resolvePath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(w.baseDir, name)
}
