package dataprocessing

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"

	apperrors "poscope/internal/errors"

	"golang.org/x/crypto/blake2b"
)

// Source file names recognized inside POS archives
const (
	FileCheckouts = "checkouts.csv"
	FileItems     = "items.csv"
	FilePayments  = "payments.csv"
)

// Archive is one uploaded POS export
type Archive struct {
	Name string
	Data []byte
}

// Digest returns the BLAKE2b-256 digest of the archive bytes
func (a Archive) Digest() string {
	sum := blake2b.Sum256(a.Data)
	return hex.EncodeToString(sum[:])
}

// RawFile is one decoded CSV file taken from an archive
type RawFile struct {
	Source string
	Header []string
	Rows   [][]string
}

// RawBatch holds the same-named files of every archive in upload order
type RawBatch struct {
	Checkouts []RawFile
	Items     []RawFile
	Payments  []RawFile

	// SkippedFiles lists empty or all-null files that were not concatenated
	SkippedFiles []string
	// DuplicateArchives lists archives skipped because an identical one was already read
	DuplicateArchives []string
}

// CheckoutRows counts data rows across all checkout files
func (b *RawBatch) CheckoutRows() int {
	n := 0
	for _, f := range b.Checkouts {
		n += len(f.Rows)
	}
	return n
}

// ArchiveReader extracts and decodes POS CSV files from zip archives
type ArchiveReader struct {
	skipIdentical bool
	logger        *slog.Logger
}

// NewArchiveReader creates a reader. When skipIdentical is set, an archive
// whose bytes match one already read in the same batch is ignored.
func NewArchiveReader(skipIdentical bool, logger *slog.Logger) *ArchiveReader {
	return &ArchiveReader{
		skipIdentical: skipIdentical,
		logger:        logger.With(slog.String("component", "archive_reader")),
	}
}

// Read concatenates checkouts, items and payments across archives.
// Unrecognized archive members are ignored.
func (r *ArchiveReader) Read(archives []Archive) (*RawBatch, error) {
	batch := &RawBatch{}
	seen := make(map[string]string, len(archives))

	for _, a := range archives {
		digest := a.Digest()
		if first, ok := seen[digest]; ok && r.skipIdentical {
			r.logger.Warn("skipping identical archive",
				slog.String("archive", a.Name),
				slog.String("identical_to", first))
			batch.DuplicateArchives = append(batch.DuplicateArchives, a.Name)
			continue
		}
		seen[digest] = a.Name

		if err := r.readArchive(a, batch); err != nil {
			return nil, err
		}
	}

	return batch, nil
}

func (r *ArchiveReader) readArchive(a Archive, batch *RawBatch) error {
	zr, err := zip.NewReader(bytes.NewReader(a.Data), int64(len(a.Data)))
	if err != nil {
		return apperrors.NewDataError(a.Name, "zipファイルを開けません", err)
	}

	for _, member := range zr.File {
		if member.FileInfo().IsDir() {
			continue
		}
		name := path.Base(member.Name)

		var target *[]RawFile
		switch name {
		case FileCheckouts:
			target = &batch.Checkouts
		case FileItems:
			target = &batch.Items
		case FilePayments:
			target = &batch.Payments
		default:
			r.logger.Debug("ignoring archive member",
				slog.String("archive", a.Name),
				slog.String("member", member.Name))
			continue
		}

		source := a.Name + "/" + name
		file, err := readMember(member, source)
		if err != nil {
			return err
		}
		if file == nil {
			r.logger.Info("skipping empty file", slog.String("source", source))
			batch.SkippedFiles = append(batch.SkippedFiles, source)
			continue
		}
		*target = append(*target, *file)
		r.logger.Debug("read archive member",
			slog.String("source", source),
			slog.Int("rows", len(file.Rows)))
	}
	return nil
}

// readMember decodes one CSV member. It returns nil when the file has no
// data rows or every data cell is blank.
func readMember(member *zip.File, source string) (*RawFile, error) {
	rc, err := member.Open()
	if err != nil {
		return nil, apperrors.NewDataError(source, "ファイルを展開できません", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, apperrors.NewDataError(source, "ファイルを展開できません", err)
	}

	text, err := DecodeShiftJIS(raw)
	if err != nil {
		return nil, apperrors.NewEncodingError(source, err)
	}

	return ParseCSV(source, text)
}

// ParseCSV splits decoded text into header and rows. Empty or all-blank
// content yields nil without error.
func ParseCSV(source, text string) (*RawFile, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, apperrors.NewDataError(source, fmt.Sprintf("CSVの形式が正しくありません: %v", err), err)
	}
	if len(records) < 2 {
		return nil, nil
	}

	file := &RawFile{
		Source: source,
		Header: cleanHeader(records[0]),
		Rows:   records[1:],
	}
	if allBlank(file.Rows) {
		return nil, nil
	}
	return file, nil
}

func allBlank(rows [][]string) bool {
	for _, row := range rows {
		for _, cell := range row {
			if strings.TrimSpace(cell) != "" {
				return false
			}
		}
	}
	return true
}
