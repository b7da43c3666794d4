package cli

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/japanese"

	"poscope/internal/config"
	"poscope/internal/dataprocessing"
)

var firstDay = time.Date(2024, 4, 8, 0, 0, 0, 0, time.UTC)

func testEnvironment() *environment {
	return newEnvironment(config.Default(), slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testCommand() (*cobra.Command, *bytes.Buffer) {
	out := new(bytes.Buffer)
	cmd := &cobra.Command{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetContext(context.Background())
	return cmd, out
}

// weekdays returns the first n weekdays from firstDay
func weekdays(n int) []time.Time {
	var out []time.Time
	for d := firstDay; len(out) < n; d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	return out
}

func sjis(t *testing.T, s string) []byte {
	t.Helper()
	b, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(s))
	require.NoError(t, err)
	return b
}

// writeArchive writes a west-store export with one paid checkout per
// weekday; the customer count varies by weekday and week
func writeArchive(t *testing.T, dir string, days int) string {
	t.Helper()
	var checkouts, items, payments strings.Builder
	checkouts.WriteString("アカウント名,会計ID,開始日時,会計日時,削除日時,金額,客数\n")
	items.WriteString("会計ID,SKU,バーコード,名前,数量,金額,部門\n")
	payments.WriteString("会計ID,支払い方法\n")
	for i, d := range weekdays(days) {
		id := 1000 + i
		customers := 20 + int(d.Weekday())*3 + i%4
		day := d.Format("2006-01-02")
		fmt.Fprintf(&checkouts, "%s,%d,%s 11:58:00 +0900,%s 12:01:00 +0900,,540,%d\n",
			config.AccountWest, id, day, day, customers)
		fmt.Fprintf(&items, "%d,S1,4900000000011,カレー,1,540,主食\n", id)
		fmt.Fprintf(&payments, "%d,現金\n", id)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range map[string]string{
		dataprocessing.FileCheckouts: checkouts.String(),
		dataprocessing.FileItems:     items.String(),
		dataprocessing.FilePayments:  payments.String(),
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(sjis(t, content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	path := filepath.Join(dir, "pos.zip")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

// writeCalendar writes a CSV calendar of n spring-term weekdays
func writeCalendar(t *testing.T, dir string, n int) string {
	t.Helper()
	classes := map[time.Weekday]string{
		time.Monday: "MON", time.Tuesday: "TUE", time.Wednesday: "WED",
		time.Thursday: "THU", time.Friday: "FRI",
	}
	var csv strings.Builder
	csv.WriteString("date,academic_year,term,class,info\n")
	for _, d := range weekdays(n) {
		fmt.Fprintf(&csv, "%s,2024,SPR,%s,\n", d.Format("2006/01/02"), classes[d.Weekday()])
	}
	path := filepath.Join(dir, "calendar.csv")
	require.NoError(t, os.WriteFile(path, []byte(csv.String()), 0o644))
	return path
}

// writeSyllabus writes an enrollment workbook for both campuses
func writeSyllabus(t *testing.T, dir string, labels ...string) string {
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

	path := filepath.Join(dir, "syllabus.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}
