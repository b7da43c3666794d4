package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// TermLabel is a year+term column label such as 2024SPR
type TermLabel struct {
	Year int      `json:"year"`
	Term TermCode `json:"term"`
}

// ParseTermLabel parses labels of the form YYYYTERM
func ParseTermLabel(s string) (TermLabel, error) {
	s = strings.TrimSpace(s)
	if len(s) < 5 {
		return TermLabel{}, fmt.Errorf("invalid term label %q", s)
	}
	year, err := strconv.Atoi(s[:4])
	if err != nil {
		return TermLabel{}, fmt.Errorf("invalid year in term label %q: %w", s, err)
	}
	term := TermCode(strings.ToUpper(s[4:]))
	if !term.IsTeaching() {
		return TermLabel{}, fmt.Errorf("invalid term in term label %q", s)
	}
	return TermLabel{Year: year, Term: term}, nil
}

func (l TermLabel) String() string {
	return fmt.Sprintf("%04d%s", l.Year, l.Term)
}

// Less orders labels by year then term ordinal
func (l TermLabel) Less(o TermLabel) bool {
	if l.Year != o.Year {
		return l.Year < o.Year
	}
	return l.Term.Ordinal() < o.Term.Ordinal()
}

// Follows reports whether l comes immediately after prev
func (l TermLabel) Follows(prev TermLabel) bool {
	po, lo := prev.Term.Ordinal(), l.Term.Ordinal()
	if l.Year == prev.Year {
		return lo == po+1
	}
	return l.Year == prev.Year+1 && po == len(TeachingTerms)-1 && lo == 0
}

// SyllabusKey addresses one class slot
type SyllabusKey struct {
	Weekday time.Weekday `json:"weekday"`
	Period  int          `json:"period"`
}

// SyllabusTable holds enrolled-student counts for one campus
type SyllabusTable struct {
	Campus  Store    `json:"campus"`
	Columns []string `json:"columns"`
	cells   map[string]map[SyllabusKey]float64
	rows    map[SyllabusKey]struct{}
}

// NewSyllabusTable creates an empty table for a campus
func NewSyllabusTable(campus Store) *SyllabusTable {
	return &SyllabusTable{
		Campus: campus,
		cells:  make(map[string]map[SyllabusKey]float64),
		rows:   make(map[SyllabusKey]struct{}),
	}
}

// AddColumn registers a column label in sheet order
func (t *SyllabusTable) AddColumn(label string) {
	if _, ok := t.cells[label]; ok {
		t.Columns = append(t.Columns, label)
		return
	}
	t.cells[label] = make(map[SyllabusKey]float64)
	t.Columns = append(t.Columns, label)
}

// Set stores a cell value. NaN marks a blank cell.
func (t *SyllabusTable) Set(label string, key SyllabusKey, v float64) {
	if _, ok := t.cells[label]; !ok {
		t.AddColumn(label)
	}
	t.cells[label][key] = v
	t.rows[key] = struct{}{}
}

// HasRow reports whether the slot appears in the table
func (t *SyllabusTable) HasRow(key SyllabusKey) bool {
	_, ok := t.rows[key]
	return ok
}

// Sum adds the counts of the given periods on a weekday for one column.
// Blank cells count as zero. The result is NaN when the column or any
// requested row is absent.
func (t *SyllabusTable) Sum(label string, wd time.Weekday, periods []int) float64 {
	col, ok := t.cells[label]
	if !ok {
		return math.NaN()
	}
	total := 0.0
	for _, p := range periods {
		key := SyllabusKey{Weekday: wd, Period: p}
		if !t.HasRow(key) {
			return math.NaN()
		}
		if v, ok := col[key]; ok && !math.IsNaN(v) {
			total += v
		}
	}
	return total
}

// Syllabus pairs the two campus tables
type Syllabus struct {
	West *SyllabusTable `json:"west"`
	East *SyllabusTable `json:"east"`
}

// For returns the table of a store's campus
func (s *Syllabus) For(store Store) *SyllabusTable {
	if s == nil {
		return nil
	}
	if store == StoreEast {
		return s.East
	}
	return s.West
}

// TermRange is the first and last term label covered by a table
type TermRange struct {
	First TermLabel `json:"first"`
	Last  TermLabel `json:"last"`
}

func (r TermRange) String() string {
	return r.First.String() + "～" + r.Last.String()
}
