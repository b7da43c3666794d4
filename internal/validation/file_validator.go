package validation

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	apperrors "poscope/internal/errors"
)

// Kind is the role of an uploaded file
type Kind string

const (
	KindPOS      Kind = "pos"
	KindSyllabus Kind = "syllabus"
	KindCalendar Kind = "calendar"
)

var allowedExtensions = map[Kind][]string{
	KindPOS:      {".zip"},
	KindSyllabus: {".xlsx"},
	KindCalendar: {".xlsx", ".csv"},
}

// zip local file header; xlsx workbooks are zip containers too
var zipMagic = []byte("PK\x03\x04")

// sniffLen bounds how much of a text file is checked for binary content
const sniffLen = 512

// FileValidator checks uploaded and command-line input files before they
// reach the loaders
type FileValidator struct {
	maxBytes int64
	logger   *slog.Logger
}

// NewFileValidator creates a new file validator. maxBytes <= 0 disables the
// size check.
func NewFileValidator(maxBytes int64, logger *slog.Logger) *FileValidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileValidator{
		maxBytes: maxBytes,
		logger:   logger,
	}
}

// ValidateUpload checks the name, size and leading bytes of one file
func (v *FileValidator) ValidateUpload(kind Kind, name string, data []byte) error {
	base := filepath.Base(name)
	ext := strings.ToLower(filepath.Ext(base))

	fail := func(reason, userMessage string) error {
		v.logger.Warn("upload rejected",
			slog.String("kind", string(kind)),
			slog.String("file", base),
			slog.String("reason", reason))
		return apperrors.NewAppValidationError(
			fmt.Sprintf("%s upload %s: %s", kind, base, reason),
			fmt.Sprintf("%s: %s", base, userMessage)).
			WithContext("file", base)
	}

	allowed, ok := allowedExtensions[kind]
	if !ok {
		return fail("unknown upload kind", "不明なファイル種別です。")
	}
	if !contains(allowed, ext) {
		return fail("extension "+ext,
			fmt.Sprintf("対応していないファイル形式です。%s のファイルを選択してください。", strings.Join(allowed, " または ")))
	}
	if strings.HasPrefix(base, "~$") {
		return fail("temporary office file", "一時ファイルは読み込めません。")
	}
	if len(data) == 0 {
		return fail("empty file", "ファイルが空です。")
	}
	if v.maxBytes > 0 && int64(len(data)) > v.maxBytes {
		return fail(fmt.Sprintf("size %d exceeds %d", len(data), v.maxBytes), "ファイルサイズが上限を超えています。")
	}

	switch ext {
	case ".zip", ".xlsx":
		if !bytes.HasPrefix(data, zipMagic) {
			return fail("missing zip signature", "ファイルが破損しているか、形式が正しくありません。")
		}
	case ".csv":
		if bytes.IndexByte(data[:min(len(data), sniffLen)], 0) >= 0 {
			return fail("binary content", "テキスト形式のCSVファイルではありません。")
		}
	}

	v.logger.Debug("upload validated",
		slog.String("kind", string(kind)),
		slog.String("file", base),
		slog.Int("size", len(data)))
	return nil
}

// ValidateFile checks if a specific file exists and is readable
func (v *FileValidator) ValidateFile(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		v.logger.Error("File does not exist",
			slog.String("file", path))
		return fmt.Errorf("file %s does not exist", path)
	}
	if err != nil {
		v.logger.Error("Failed to stat file",
			slog.String("file", path),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to stat file %s: %w", path, err)
	}
	if info.IsDir() {
		v.logger.Error("Path is a directory, not a file",
			slog.String("path", path))
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	return nil
}

// ReadInput reads a command-line input file and applies the upload checks
func (v *FileValidator) ReadInput(kind Kind, path string) ([]byte, error) {
	if err := v.ValidateFile(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("file %s is not readable: %w", path, err)
	}
	if err := v.ValidateUpload(kind, path, data); err != nil {
		return nil, err
	}
	return data, nil
}

// ValidateOutputDirectory ensures output directory exists or can be created
func (v *FileValidator) ValidateOutputDirectory(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		v.logger.Error("Failed to create output directory",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}

	// Verify it's writable by creating a test file
	testFile := filepath.Join(dir, ".write_test")
	file, err := os.Create(testFile)
	if err != nil {
		v.logger.Error("Output directory is not writable",
			slog.String("directory", dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	file.Close()
	os.Remove(testFile)
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
