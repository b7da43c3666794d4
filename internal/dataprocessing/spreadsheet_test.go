package dataprocessing

import (
	"bytes"
	"fmt"
	"math"
	"testing"
	"time"

	apperrors "poscope/internal/errors"
	"poscope/pkg/contracts/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// syllabusWorkbook writes a five-by-five sheet per campus with merged-style weekday cells
func syllabusWorkbook(t *testing.T, sheets []string, labels []string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	days := []string{"月", "火", "水", "木", "金"}
	for _, sheet := range sheets {
		_, err := f.NewSheet(sheet)
		require.NoError(t, err)

		header := []interface{}{ColWeekday, ColPeriod}
		for _, l := range labels {
			header = append(header, l)
		}
		require.NoError(t, f.SetSheetRow(sheet, "A1", &header))

		row := 2
		for d, day := range days {
			for period := 1; period <= 5; period++ {
				values := []interface{}{nil, period}
				if period == 1 {
					values[0] = day
				}
				for i := range labels {
					values = append(values, (d+1)*100+period*10+i)
				}
				cell := fmt.Sprintf("A%d", row)
				require.NoError(t, f.SetSheetRow(sheet, cell, &values))
				row++
			}
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestLoadSyllabus(t *testing.T) {
	tests := []struct {
		name     string
		sheets   []string
		labels   []string
		wantErr  apperrors.ErrorType
		validate func(t *testing.T, s *domain.Syllabus)
	}{
		{
			name:   "both campuses with forward-filled weekdays",
			sheets: []string{"west", "east"},
			labels: []string{"2024SPR", "2024SMR"},
			validate: func(t *testing.T, s *domain.Syllabus) {
				require.NotNil(t, s.West)
				require.NotNil(t, s.East)
				assert.Equal(t, []string{"2024SPR", "2024SMR"}, s.West.Columns)
				assert.True(t, s.West.HasRow(domain.SyllabusKey{Weekday: time.Wednesday, Period: 5}))
				// Tuesday periods 2 and 3 of the second column: 221 + 231
				assert.Equal(t, 452.0, s.East.Sum("2024SMR", time.Tuesday, []int{2, 3}))
				assert.True(t, math.IsNaN(s.West.Sum("2025SPR", time.Monday, []int{1})))
			},
		},
		{
			name:    "missing east sheet",
			sheets:  []string{"west"},
			labels:  []string{"2024SPR"},
			wantErr: apperrors.ErrTypeSchema,
		},
		{
			name:    "column that is not a term label",
			sheets:  []string{"west", "east"},
			labels:  []string{"2024SPR", "合計"},
			wantErr: apperrors.ErrTypeData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := syllabusWorkbook(t, tt.sheets, tt.labels)
			s, err := LoadSyllabus("syllabus.xlsx", buf)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, s)
		})
	}
}

func TestLoadCalendar(t *testing.T) {
	xlsx := func(t *testing.T) []byte {
		f := excelize.NewFile()
		defer f.Close()
		rows := [][]interface{}{
			{"date", "academic_year", "term", "class", "info"},
			{"2024/04/08", 2024, "SPR", "MON", nil},
			// Excel serial for 2024-04-09
			{45391, 2024, "SPR", "TUE", "TOEFL"},
			{"2024/4/7", 2024, "SPRVAC", "NoClass", nil},
		}
		for i, r := range rows {
			row := r
			require.NoError(t, f.SetSheetRow("Sheet1", fmt.Sprintf("A%d", i+1), &row))
		}
		buf, err := f.WriteToBuffer()
		require.NoError(t, err)
		return buf.Bytes()
	}

	tests := []struct {
		name     string
		file     string
		data     func(t *testing.T) []byte
		wantErr  apperrors.ErrorType
		validate func(t *testing.T, cal *domain.Calendar)
	}{
		{
			name: "xlsx with serial and string dates",
			file: "calendar.xlsx",
			data: xlsx,
			validate: func(t *testing.T, cal *domain.Calendar) {
				require.Len(t, cal.Days, 3)
				assert.Equal(t, time.Date(2024, 4, 7, 0, 0, 0, 0, time.UTC), cal.Days[0].Date)
				assert.Equal(t, domain.TermCode("SPRVAC"), cal.Days[0].Term)
				assert.Equal(t, time.Date(2024, 4, 9, 0, 0, 0, 0, time.UTC), cal.Days[2].Date)
				assert.Equal(t, "TOEFL", cal.Days[2].Info)
				assert.Equal(t, domain.ClassTuesday, cal.Days[2].Class)
			},
		},
		{
			name: "utf-8 csv with bom",
			file: "calendar.csv",
			data: func(t *testing.T) []byte {
				return append([]byte{0xEF, 0xBB, 0xBF}, []byte("date,academic_year,term,class,info\n2024/04/08,2024,SPR,MON,\n2024/04/09,2024,SPR,TUE,Holiday\n")...)
			},
			validate: func(t *testing.T, cal *domain.Calendar) {
				require.Len(t, cal.Days, 2)
				assert.Equal(t, 2024, cal.Days[0].AcademicYear)
				assert.Equal(t, "Holiday", cal.Days[1].Info)
			},
		},
		{
			name: "shift-jis csv",
			file: "calendar.csv",
			data: func(t *testing.T) []byte {
				return encodeSJIS(t, "date,academic_year,term,class,info\n2024/04/08,2024,SPR,MON,入学式\n")
			},
			validate: func(t *testing.T, cal *domain.Calendar) {
				require.Len(t, cal.Days, 1)
				assert.Equal(t, "入学式", cal.Days[0].Info)
			},
		},
		{
			name: "class codes in any case",
			file: "calendar.csv",
			data: func(t *testing.T) []byte {
				return []byte("date,academic_year,term,class\n2024/04/08,2024,SPR,Mon\n2024/04/09,2024,SPR, fri \n2024/04/10,2024,SPR,noclass\n2024/04/11,2024,SPR,\n")
			},
			validate: func(t *testing.T, cal *domain.Calendar) {
				require.Len(t, cal.Days, 4)
				assert.Equal(t, domain.ClassMonday, cal.Days[0].Class)
				assert.Equal(t, domain.ClassFriday, cal.Days[1].Class)
				assert.Equal(t, domain.ClassNone, cal.Days[2].Class)
				assert.Equal(t, domain.ClassNone, cal.Days[3].Class)
			},
		},
		{
			name: "missing class column",
			file: "calendar.csv",
			data: func(t *testing.T) []byte {
				return []byte("date,academic_year,term,info\n2024/04/08,2024,SPR,\n")
			},
			wantErr: apperrors.ErrTypeSchema,
		},
		{
			name: "duplicate date",
			file: "calendar.csv",
			data: func(t *testing.T) []byte {
				return []byte("date,academic_year,term,class\n2024/04/08,2024,SPR,MON\n2024-04-08,2024,SPR,MON\n")
			},
			wantErr: apperrors.ErrTypeData,
		},
		{
			name: "unknown class code",
			file: "calendar.csv",
			data: func(t *testing.T) []byte {
				return []byte("date,academic_year,term,class\n2024/04/08,2024,SPR,SAT\n")
			},
			wantErr: apperrors.ErrTypeData,
		},
		{
			name: "header only",
			file: "calendar.csv",
			data: func(t *testing.T) []byte {
				return []byte("date,academic_year,term,class\n")
			},
			wantErr: apperrors.ErrTypeEmptyDataset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal, err := LoadCalendar(tt.file, bytes.NewReader(tt.data(t)))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			tt.validate(t, cal)
		})
	}
}
