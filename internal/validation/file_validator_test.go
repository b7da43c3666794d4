package validation

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "poscope/internal/errors"
)

func testValidator(maxBytes int64) *FileValidator {
	return NewFileValidator(maxBytes, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFileValidator_ValidateUpload(t *testing.T) {
	zipData := append([]byte("PK\x03\x04"), make([]byte, 20)...)

	tests := []struct {
		name    string
		kind    Kind
		file    string
		data    []byte
		wantErr bool
	}{
		{name: "pos zip", kind: KindPOS, file: "pos_2024.zip", data: zipData},
		{name: "upper-case extension", kind: KindPOS, file: "POS.ZIP", data: zipData},
		{name: "syllabus workbook", kind: KindSyllabus, file: "syllabus.xlsx", data: zipData},
		{name: "calendar workbook", kind: KindCalendar, file: "calendar.xlsx", data: zipData},
		{name: "calendar csv", kind: KindCalendar, file: "calendar.csv", data: []byte("date,academic_year,term,class\n")},
		{name: "pos csv rejected", kind: KindPOS, file: "checkouts.csv", data: []byte("a,b\n"), wantErr: true},
		{name: "legacy xls rejected", kind: KindSyllabus, file: "syllabus.xls", data: zipData, wantErr: true},
		{name: "temporary file", kind: KindSyllabus, file: "~$syllabus.xlsx", data: zipData, wantErr: true},
		{name: "empty", kind: KindPOS, file: "pos.zip", data: nil, wantErr: true},
		{name: "too large", kind: KindPOS, file: "pos.zip", data: append(zipData, make([]byte, 100)...), wantErr: true},
		{name: "zip without signature", kind: KindPOS, file: "pos.zip", data: []byte("not a zip"), wantErr: true},
		{name: "binary csv", kind: KindCalendar, file: "calendar.csv", data: []byte{'d', 0, 'x'}, wantErr: true},
		{name: "unknown kind", kind: Kind("other"), file: "x.zip", data: zipData, wantErr: true},
	}

	v := testValidator(64)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateUpload(tt.kind, tt.file, tt.data)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Contains(t, appErr.UserMessage, filepath.Base(tt.file))
		})
	}
}

func TestFileValidator_ReadInput(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "calendar.csv")
	require.NoError(t, os.WriteFile(good, []byte("date,term\n"), 0644))

	v := testValidator(0)

	data, err := v.ReadInput(KindCalendar, good)
	require.NoError(t, err)
	assert.Equal(t, "date,term\n", string(data))

	_, err = v.ReadInput(KindCalendar, filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)

	_, err = v.ReadInput(KindCalendar, dir)
	assert.Error(t, err)

	_, err = v.ReadInput(KindPOS, good)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestFileValidator_ValidateOutputDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out", "nested")
	v := testValidator(0)
	require.NoError(t, v.ValidateOutputDirectory(dir))
	assert.DirExists(t, dir)
	assert.NoFileExists(t, filepath.Join(dir, ".write_test"))
}
