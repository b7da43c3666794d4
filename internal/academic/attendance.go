package academic

import "poscope/pkg/contracts/domain"

var scheduleWeekdays = []domain.ClassCode{
	domain.ClassMonday,
	domain.ClassTuesday,
	domain.ClassWednesday,
	domain.ClassThursday,
	domain.ClassFriday,
}

// AttendanceTable sums the given periods per weekday for every term column
// of a syllabus table. Rows are MON..FRI, columns are the table's term labels.
func AttendanceTable(table *domain.SyllabusTable, periods []int) *domain.Table {
	if table == nil {
		return domain.NewTable("attendance", "class")
	}

	out := domain.NewTable("attendance_"+string(table.Campus), "class", table.Columns...)
	for _, code := range scheduleWeekdays {
		wd, _ := code.Weekday()
		row := make([]domain.Number, len(table.Columns))
		for i, label := range table.Columns {
			row[i] = domain.Number(table.Sum(label, wd, periods))
		}
		out.AppendRow(string(code), row...)
	}
	return out
}
