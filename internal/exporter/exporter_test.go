package exporter

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"poscope/pkg/contracts/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleTable() *domain.Table {
	t := domain.NewTable("客数", "日付", "西食堂", "東食堂")
	t.AppendRow("2024-04-08", 120, domain.NaN())
	t.AppendRow("2024-04-09", 0, 37.5)
	return t
}

func TestWriteCSV(t *testing.T) {
	tests := []struct {
		name         string
		options      WriteOptions
		wantReplaced int
		validate     func(t *testing.T, raw []byte)
	}{
		{
			name: "shift-jis by default",
			options: WriteOptions{
				Headers: []string{"日付", "客数"},
				Records: [][]string{{"2024-04-08", "12"}},
			},
			validate: func(t *testing.T, raw []byte) {
				assert.False(t, utf8.Valid(raw))
				headers, records, err := ReadCSV(bytes.NewReader(raw), EncodingShiftJIS)
				require.NoError(t, err)
				assert.Equal(t, []string{"日付", "客数"}, headers)
				assert.Equal(t, [][]string{{"2024-04-08", "12"}}, records)
				assert.True(t, bytes.HasSuffix(raw, []byte("\r\n")))
			},
		},
		{
			name: "utf-8 with bom",
			options: WriteOptions{
				Headers:  []string{"名前"},
				Records:  [][]string{{"カレー"}},
				Encoding: EncodingUTF8BOM,
			},
			validate: func(t *testing.T, raw []byte) {
				assert.True(t, bytes.HasPrefix(raw, utf8BOM))
				headers, records, err := ReadCSV(bytes.NewReader(raw), EncodingUTF8BOM)
				require.NoError(t, err)
				assert.Equal(t, []string{"名前"}, headers)
				assert.Equal(t, "カレー", records[0][0])
			},
		},
		{
			name: "unsupported runes are substituted",
			options: WriteOptions{
				Headers: []string{"名前"},
				Records: [][]string{{"カレー😀"}},
			},
			wantReplaced: 1,
			validate: func(t *testing.T, raw []byte) {
				_, records, err := ReadCSV(bytes.NewReader(raw), EncodingShiftJIS)
				require.NoError(t, err)
				assert.True(t, strings.HasPrefix(records[0][0], "カレー"))
				assert.NotContains(t, records[0][0], "😀")
			},
		},
		{
			name: "every unsupported rune is counted",
			options: WriteOptions{
				Headers: []string{"名前😀"},
				Records: [][]string{{"おにぎり🍙", "ラーメン🍜🍜"}, {"カレー"}},
			},
			wantReplaced: 4,
			validate: func(t *testing.T, raw []byte) {
				_, records, err := ReadCSV(bytes.NewReader(raw), EncodingShiftJIS)
				require.NoError(t, err)
				assert.Equal(t, "カレー", records[1][0])
			},
		},
		{
			name: "utf-8 keeps every rune",
			options: WriteOptions{
				Headers:  []string{"名前"},
				Records:  [][]string{{"おにぎり🍙"}},
				Encoding: EncodingUTF8BOM,
			},
			validate: func(t *testing.T, raw []byte) {
				_, records, err := ReadCSV(bytes.NewReader(raw), EncodingUTF8BOM)
				require.NoError(t, err)
				assert.Equal(t, "おにぎり🍙", records[0][0])
			},
		},
		{
			name: "fields with commas are quoted",
			options: WriteOptions{
				Headers: []string{"名前"},
				Records: [][]string{{"定食, 大盛"}},
			},
			validate: func(t *testing.T, raw []byte) {
				_, records, err := ReadCSV(bytes.NewReader(raw), EncodingShiftJIS)
				require.NoError(t, err)
				assert.Equal(t, "定食, 大盛", records[0][0])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			replaced, err := WriteCSV(&buf, tt.options)
			require.NoError(t, err)
			assert.Equal(t, tt.wantReplaced, replaced)
			tt.validate(t, buf.Bytes())
		})
	}
}

func TestCSVWriter_WarnsOnSubstitution(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	w := NewCSVWriter(t.TempDir(), logger)

	_, err := w.WriteFile("plain.csv", WriteOptions{Headers: []string{"名前"}, Records: [][]string{{"カレー"}}})
	require.NoError(t, err)
	assert.NotContains(t, logs.String(), "substituted")

	path, err := w.WriteFile("lossy.csv", WriteOptions{Headers: []string{"名前"}, Records: [][]string{{"🍙🍜"}}})
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Contains(t, logs.String(), "characters outside Shift-JIS were substituted")
	assert.Contains(t, logs.String(), "count=2")
}

func TestReadCSV_Empty(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader(""), EncodingShiftJIS)
	assert.Error(t, err)
}

func TestTableCSV_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	replaced, err := WriteTableCSV(&buf, sampleTable())
	require.NoError(t, err)
	assert.Zero(t, replaced)

	got, err := ReadTableCSV(&buf, "客数")
	require.NoError(t, err)
	assert.Equal(t, "日付", got.IndexName)
	assert.Equal(t, []string{"西食堂", "東食堂"}, got.Columns)
	assert.Equal(t, []string{"2024-04-08", "2024-04-09"}, got.Index)
	require.Len(t, got.Rows, 2)
	assert.Equal(t, domain.Number(120), got.Rows[0][0])
	assert.True(t, got.Rows[0][1].IsNaN())
	assert.Equal(t, domain.Number(0), got.Rows[1][0])
	assert.Equal(t, domain.Number(37.5), got.Rows[1][1])
}

func TestReadTableCSV_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		options WriteOptions
	}{
		{
			name: "ragged row",
			options: WriteOptions{
				Headers: []string{"日付", "客数"},
				Records: [][]string{{"2024-04-08"}},
			},
		},
		{
			name: "non-numeric cell",
			options: WriteOptions{
				Headers: []string{"日付", "客数"},
				Records: [][]string{{"2024-04-08", "多い"}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			_, err := WriteCSV(&buf, tt.options)
			require.NoError(t, err)
			_, err = ReadTableCSV(&buf, "客数")
			assert.Error(t, err)
		})
	}
}

func TestWriteTableXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTableXLSX(&buf, sampleTable()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"客数"}, f.GetSheetList())
	rows, err := f.GetRows("客数")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"日付", "西食堂", "東食堂"}, rows[0])
	assert.Equal(t, []string{"2024-04-08", "120"}, rows[1])
	assert.Equal(t, []string{"2024-04-09", "0", "37.5"}, rows[2])
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Sheet1", sheetName(""))
	assert.Equal(t, "売上_部門", sheetName("売上/部門"))
	assert.Equal(t, "(a)", sheetName("[a]"))
	assert.Len(t, []rune(sheetName(strings.Repeat("あ", 40))), 31)
}

func TestDatasetExporter(t *testing.T) {
	opened := time.Date(2024, 4, 8, 12, 1, 0, 0, time.UTC)
	closed := opened.Add(4 * time.Minute)
	ds := &domain.POSDataset{
		Visits: []domain.CustomerVisit{{
			Store: domain.StoreWest, CheckoutID: "1001", OpenedAt: opened, ClosedAt: closed,
			Amount: 500, Customers: 1,
			Payments: map[domain.PaymentMethod]int64{"現金": 1, "交通系IC": 0},
		}},
		Items: []domain.ItemSale{{
			Store: domain.StoreWest, CheckoutID: "1001", OpenedAt: opened, ClosedAt: closed,
			SKU: "A1", Barcode: "4900000000001", Name: "カレー", Quantity: 1, Amount: 500, Department: "定食",
		}},
		PaymentMethods: []domain.PaymentMethod{"交通系IC", "現金"},
	}

	dir := t.TempDir()
	exp := NewDatasetExporter(NewCSVWriter(dir, testLogger()))
	paths, err := exp.ExportDataset(ds)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, VisitsFile), filepath.Join(dir, ItemsFile)}, paths)

	f, err := os.Open(paths[0])
	require.NoError(t, err)
	defer f.Close()
	headers, records, err := ReadCSV(f, EncodingShiftJIS)
	require.NoError(t, err)
	assert.Equal(t, []string{"店舗", "会計ID", "開始日時", "会計日時", "金額", "客数", "交通系IC", "現金"}, headers)
	assert.Equal(t, []string{domain.StoreWest.DisplayName(), "1001", "2024-04-08 12:01:00", "2024-04-08 12:05:00", "500", "1", "0", "1"}, records[0])

	g, err := os.Open(paths[1])
	require.NoError(t, err)
	defer g.Close()
	_, records, err = ReadCSV(g, EncodingShiftJIS)
	require.NoError(t, err)
	assert.Equal(t, "カレー", records[0][6])
	assert.Equal(t, "定食", records[0][9])
}

func TestFeatureAndPredictionRecords(t *testing.T) {
	day := domain.CalendarDay{Date: time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC), AcademicYear: 2024, Term: domain.TermSpring, Class: domain.ClassMonday}

	headers, records := FeatureRecords([]domain.CalendarFeatures{{
		CalendarDay: day, WeekOfTerm: 1, FirstWeek: 1, Attendance: domain.NaN(),
	}})
	assert.Len(t, headers, 11)
	assert.Equal(t, []string{"2024-04-08", "2024", "SPR", "MON", "", "1", "0", "0", "1", "0", ""}, records[0])

	_, records = PredictionRecords([]domain.Prediction{{
		Date: day.Date, Term: day.Term, Class: day.Class, WeekOfTerm: 3, Attendance: 240, Customers: 101.26,
	}})
	assert.Equal(t, []string{"2024-04-08", "SPR", "MON", "3", "240", "101.3"}, records[0])

	dir := t.TempDir()
	exp := NewDatasetExporter(NewCSVWriter(dir, testLogger()))
	path, err := exp.ExportFeatures(nil, "nested/"+FeaturesFile)
	require.NoError(t, err)
	assert.FileExists(t, path)
}
