package services

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"poscope/internal/academic"
	"poscope/internal/config"
	"poscope/internal/dataprocessing"
	"poscope/internal/session"
	"poscope/internal/validation"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"
)

var (
	posFrom      = time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC)
	posTo        = time.Date(2024, 4, 19, 0, 0, 0, 0, time.UTC)
	calendarTo   = time.Date(2024, 4, 26, 0, 0, 0, 0, time.UTC)
	weekdayCodes = []string{"", "MON", "TUE", "WED", "THU", "FRI", ""}
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type testServices struct {
	store     *session.Store
	sessions  *SessionService
	uploads   *UploadService
	analytics *AnalyticsService
	forecast  *ForecastService
}

func newTestServices(t *testing.T) *testServices {
	t.Helper()
	cfg := config.Default()
	logger := testLogger()

	store := session.NewStore(cfg.Session, cfg.Forecast.ValidationRatio, nil, logger)
	pipeline, err := dataprocessing.NewPipeline(cfg.Pipeline, nil, logger)
	require.NoError(t, err)
	opts, err := academic.OptionsFromConfig(cfg.Features)
	require.NoError(t, err)

	return &testServices{
		store:     store,
		sessions:  NewSessionService(store, logger),
		uploads:   NewUploadService(store, validation.NewFileValidator(cfg.Security.MaxUploadBytes, logger), pipeline, nil, logger),
		analytics: NewAnalyticsService(store, nil, logger),
		forecast:  NewForecastService(store, academic.NewFeatureBuilder(opts, logger), nil, logger),
	}
}

func (ts *testServices) newSession(t *testing.T) string {
	t.Helper()
	s, err := ts.sessions.Create(context.Background())
	require.NoError(t, err)
	return s.ID
}

// uploadAll loads the POS archive, syllabus and calendar fixtures
func (ts *testServices) uploadAll(t *testing.T, id string) {
	t.Helper()
	ctx := context.Background()
	_, err := ts.uploads.UploadPOS(ctx, id, []UploadedFile{posArchive(t, "pos.zip")})
	require.NoError(t, err)
	_, err = ts.uploads.UploadSyllabus(ctx, id, syllabusFile(t, "2024SPR"))
	require.NoError(t, err)
	_, err = ts.uploads.UploadCalendar(ctx, id, calendarFile())
	require.NoError(t, err)
}

func encodeSJIS(t *testing.T, s string) []byte {
	t.Helper()
	b, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

func zipFile(t *testing.T, name string, members map[string]string) UploadedFile {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, member := range []string{dataprocessing.FileCheckouts, dataprocessing.FileItems, dataprocessing.FilePayments} {
		content, ok := members[member]
		if !ok {
			continue
		}
		w, err := zw.Create(member)
		require.NoError(t, err)
		_, err = w.Write(encodeSJIS(t, content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return UploadedFile{Name: name, Data: buf.Bytes()}
}

// posArchive holds two midday checkouts of the west store per weekday
// between posFrom and posTo
func posArchive(t *testing.T, name string) UploadedFile {
	t.Helper()
	var checkouts, items, payments strings.Builder
	checkouts.WriteString("アカウント名,会計ID,開始日時,会計日時,削除日時,金額,客数\n")
	items.WriteString("会計ID,SKU,バーコード,名前,数量,金額,部門\n")
	payments.WriteString("会計ID,支払い方法\n")

	id := 1000
	for d := posFrom; !d.After(posTo); d = d.AddDate(0, 0, 1) {
		if weekdayCodes[d.Weekday()] == "" {
			continue
		}
		day := d.Format("2006-01-02")
		for k := 0; k < 2; k++ {
			id++
			customers := 1 + (d.Day()+k)%3
			fmt.Fprintf(&checkouts, "%s,%d,%s 12:%02d:00 +0900,%s 12:%02d:30 +0900,,540,%d\n",
				config.AccountWest, id, day, 10*k, day, 10*k, customers)
			fmt.Fprintf(&items, "%d,S1,4900000000011,カレー,%d,540,主食\n", id, customers)
			fmt.Fprintf(&payments, "%d,現金\n", id)
		}
	}

	return zipFile(t, name, map[string]string{
		dataprocessing.FileCheckouts: checkouts.String(),
		dataprocessing.FileItems:     items.String(),
		dataprocessing.FilePayments:  payments.String(),
	})
}

// syllabusFile writes both campus sheets with the given term columns
func syllabusFile(t *testing.T, labels ...string) UploadedFile {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	days := []string{"月", "火", "水", "木", "金"}
	for _, sheet := range []string{"west", "east"} {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)

		header := []interface{}{dataprocessing.ColWeekday, dataprocessing.ColPeriod}
		for _, l := range labels {
			header = append(header, l)
		}
		require.NoError(t, f.SetSheetRow(sheet, "A1", &header))

		row := 2
		for d, day := range days {
			for period := 1; period <= 5; period++ {
				values := []interface{}{day, period}
				for i := range labels {
					values = append(values, (d+1)*100+period*10+i)
				}
				require.NoError(t, f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values))
				row++
			}
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return UploadedFile{Name: "syllabus.xlsx", Data: buf.Bytes()}
}

// calendarFile covers posFrom to calendarTo in the spring term
func calendarFile() UploadedFile {
	var b strings.Builder
	b.WriteString("date,academic_year,term,class,info\n")
	for d := posFrom; !d.After(calendarTo); d = d.AddDate(0, 0, 1) {
		class := weekdayCodes[d.Weekday()]
		if class == "" {
			class = "NoClass"
		}
		fmt.Fprintf(&b, "%s,2024,SPR,%s,\n", d.Format("2006/01/02"), class)
	}
	return UploadedFile{Name: "calendar.csv", Data: []byte(b.String())}
}
