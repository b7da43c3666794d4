package dataprocessing

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	apperrors "poscope/internal/errors"
	"poscope/pkg/contracts/domain"

	"github.com/xuri/excelize/v2"
)

// Column names of the calendar file
const (
	ColDate         = "date"
	ColAcademicYear = "academic_year"
	ColTerm         = "term"
	ColClass        = "class"
	ColInfo         = "info"
)

// Row label headers of the enrollment sheets
const (
	ColWeekday = "曜日"
	ColPeriod  = "時限"
)

var calendarColumns = []string{ColDate, ColAcademicYear, ColTerm, ColClass, ColInfo}

var weekdayLabels = map[string]time.Weekday{
	"月": time.Monday, "火": time.Tuesday, "水": time.Wednesday, "木": time.Thursday, "金": time.Friday,
	"月曜": time.Monday, "火曜": time.Tuesday, "水曜": time.Wednesday, "木曜": time.Thursday, "金曜": time.Friday,
	"MON": time.Monday, "TUE": time.Tuesday, "WED": time.Wednesday, "THU": time.Thursday, "FRI": time.Friday,
}

var dateLayouts = []string{
	"2006/01/02",
	"2006-01-02",
	"2006/1/2",
	"2006-1-2",
	"2006/01/02 15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// LoadSyllabus reads the west and east enrollment sheets of a workbook
func LoadSyllabus(name string, r io.Reader) (*domain.Syllabus, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, apperrors.NewDataError(name, "Excelファイルを開けません", err)
	}
	defer f.Close()

	west, err := readSyllabusSheet(f, name, domain.StoreWest)
	if err != nil {
		return nil, err
	}
	east, err := readSyllabusSheet(f, name, domain.StoreEast)
	if err != nil {
		return nil, err
	}
	return &domain.Syllabus{West: west, East: east}, nil
}

func readSyllabusSheet(f *excelize.File, name string, campus domain.Store) (*domain.SyllabusTable, error) {
	sheet := campus.SheetName()
	source := name + "/" + sheet
	if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, apperrors.NewSchemaError(name, sheet)
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, apperrors.NewDataError(source, "シートを読み込めません", err)
	}
	if len(rows) < 2 {
		return nil, apperrors.NewDataError(source, "データ行がありません", nil)
	}

	header := cleanHeader(rows[0])
	if len(header) < 3 {
		return nil, apperrors.NewSchemaError(source, "年度学期")
	}
	if header[0] != "" && header[0] != ColWeekday {
		return nil, apperrors.NewSchemaError(source, ColWeekday)
	}
	if header[1] != "" && header[1] != ColPeriod {
		return nil, apperrors.NewSchemaError(source, ColPeriod)
	}

	table := domain.NewSyllabusTable(campus)
	labels := make([]string, 0, len(header)-2)
	for _, h := range header[2:] {
		if h == "" {
			labels = append(labels, "")
			continue
		}
		if _, err := domain.ParseTermLabel(h); err != nil {
			return nil, apperrors.NewDataError(source, fmt.Sprintf("列名「%s」は年度と学期の組み合わせではありません", h), err)
		}
		table.AddColumn(h)
		labels = append(labels, h)
	}

	var current time.Weekday
	haveWeekday := false
	for n, row := range rows[1:] {
		line := n + 2
		if allBlank([][]string{row}) {
			continue
		}
		// merged weekday cells only carry the value on their first row
		if cell := cellAt(row, 0); cell != "" {
			wd, ok := weekdayLabels[cell]
			if !ok {
				return nil, apperrors.NewDataError(source, fmt.Sprintf("曜日「%s」を認識できません（%d行目）", cell, line), nil)
			}
			current, haveWeekday = wd, true
		}
		if !haveWeekday {
			return nil, apperrors.NewDataError(source, fmt.Sprintf("曜日がありません（%d行目）", line), nil)
		}

		period, err := parseInt(cellAt(row, 1))
		if err != nil || period < 1 {
			return nil, apperrors.NewDataError(source, fmt.Sprintf("時限を認識できません（%d行目）", line), err)
		}
		key := domain.SyllabusKey{Weekday: current, Period: int(period)}

		for i, label := range labels {
			if label == "" {
				continue
			}
			v, err := parseCount(cellAt(row, i+2))
			if err != nil {
				return nil, apperrors.NewDataError(source,
					fmt.Sprintf("列「%s」の値を変換できません（%d行目）", label, line), err)
			}
			table.Set(label, key, v)
		}
	}

	return table, nil
}

// LoadCalendar reads the academic calendar from an xlsx workbook or a csv file
func LoadCalendar(name string, r io.Reader) (*domain.Calendar, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, apperrors.NewDataError(name, "ファイルを読み込めません", err)
	}

	var header []string
	var rows [][]string
	if strings.HasSuffix(strings.ToLower(name), ".csv") {
		text, err := DecodeText(data)
		if err != nil {
			return nil, apperrors.NewEncodingError(name, err)
		}
		file, err := ParseCSV(name, text)
		if err != nil {
			return nil, err
		}
		if file == nil {
			return nil, apperrors.NewEmptyDatasetError("calendar has no rows", apperrors.MsgNoValidData)
		}
		header, rows = file.Header, file.Rows
	} else {
		header, rows, err = readFirstSheet(name, data)
		if err != nil {
			return nil, err
		}
	}

	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(h)] = i
	}
	positions := make(map[string]int, len(calendarColumns))
	for _, col := range calendarColumns {
		pos, ok := index[col]
		if !ok {
			if col == ColInfo {
				positions[col] = -1
				continue
			}
			return nil, apperrors.NewSchemaError(name, col)
		}
		positions[col] = pos
	}

	cal := &domain.Calendar{}
	seen := make(map[time.Time]int)
	for n, row := range rows {
		line := n + 2
		if allBlank([][]string{row}) {
			continue
		}
		date, err := parseDate(cellAt(row, positions[ColDate]))
		if err != nil {
			return nil, apperrors.NewDataError(name, fmt.Sprintf("日付を認識できません（%d行目）", line), err)
		}
		if prev, dup := seen[date]; dup {
			return nil, apperrors.NewDataError(name,
				fmt.Sprintf("日付 %s が重複しています（%d行目と%d行目）", date.Format("2006/01/02"), prev, line), nil)
		}
		seen[date] = line

		year, err := parseInt(cellAt(row, positions[ColAcademicYear]))
		if err != nil {
			return nil, apperrors.NewDataError(name, fmt.Sprintf("年度を認識できません（%d行目）", line), err)
		}

		class := parseClassCode(cellAt(row, positions[ColClass]))
		if class != domain.ClassNone && !class.HasClasses() {
			return nil, apperrors.NewDataError(name, fmt.Sprintf("授業曜日「%s」を認識できません（%d行目）", class, line), nil)
		}

		day := domain.CalendarDay{
			Date:         date,
			AcademicYear: int(year),
			Term:         domain.TermCode(strings.ToUpper(cellAt(row, positions[ColTerm]))),
			Class:        class,
		}
		if pos := positions[ColInfo]; pos >= 0 {
			day.Info = cellAt(row, pos)
		}
		cal.Days = append(cal.Days, day)
	}

	if len(cal.Days) == 0 {
		return nil, apperrors.NewEmptyDatasetError("calendar has no rows", apperrors.MsgNoValidData)
	}
	sort.SliceStable(cal.Days, func(i, j int) bool { return cal.Days[i].Date.Before(cal.Days[j].Date) })
	return cal, nil
}

// parseClassCode accepts weekday codes in any case ("Mon", "MON") and
// treats a blank cell as NoClass
func parseClassCode(v string) domain.ClassCode {
	v = strings.TrimSpace(v)
	if v == "" || strings.EqualFold(v, string(domain.ClassNone)) {
		return domain.ClassNone
	}
	return domain.ClassCode(strings.ToUpper(v))
}

func readFirstSheet(name string, data []byte) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, apperrors.NewDataError(name, "Excelファイルを開けません", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, apperrors.NewEmptyDatasetError("workbook has no sheets", apperrors.MsgNoValidData)
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, apperrors.NewDataError(name, "シートを読み込めません", err)
	}
	if len(rows) < 2 {
		return nil, nil, apperrors.NewEmptyDatasetError("calendar has no rows", apperrors.MsgNoValidData)
	}
	return cleanHeader(rows[0]), rows[1:], nil
}

func cellAt(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseDate accepts Excel serial numbers and the usual date layouts
func parseDate(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		return domain.DateOf(t), nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return domain.DateOf(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", v)
}

// parseCount parses an enrollment cell; blank cells yield NaN
func parseCount(v string) (float64, error) {
	v = strings.ReplaceAll(strings.TrimSpace(v), ",", "")
	if v == "" || v == "-" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(v, 64)
}
