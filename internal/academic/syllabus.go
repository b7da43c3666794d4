package academic

import (
	"errors"
	"fmt"
	"sort"

	apperrors "poscope/internal/errors"
	"poscope/pkg/contracts/domain"
)

// ErrDiscontinuous is returned when sorted term labels skip a term
var ErrDiscontinuous = errors.New("term labels are not contiguous")

// ErrNoTerms is returned for a table without term columns
var ErrNoTerms = errors.New("no term columns")

// CheckContinuity parses labels such as 2024SPR, sorts them by year and term
// and verifies that every adjacent pair is a direct succession.
func CheckContinuity(labels []string) (domain.TermRange, error) {
	if len(labels) == 0 {
		return domain.TermRange{}, ErrNoTerms
	}

	parsed := make([]domain.TermLabel, 0, len(labels))
	for _, l := range labels {
		tl, err := domain.ParseTermLabel(l)
		if err != nil {
			return domain.TermRange{}, err
		}
		parsed = append(parsed, tl)
	}
	sort.Slice(parsed, func(i, j int) bool { return parsed[i].Less(parsed[j]) })

	for i := 1; i < len(parsed); i++ {
		if !parsed[i].Follows(parsed[i-1]) {
			return domain.TermRange{}, fmt.Errorf("%w: %s after %s", ErrDiscontinuous, parsed[i], parsed[i-1])
		}
	}
	return domain.TermRange{First: parsed[0], Last: parsed[len(parsed)-1]}, nil
}

// SyllabusRanges is the accepted term range per campus
type SyllabusRanges struct {
	West domain.TermRange `json:"west"`
	East domain.TermRange `json:"east"`
}

// ValidateSyllabus checks both campus tables and reports every campus that
// failed. Unparseable labels are a data error; gaps are a discontinuity error.
func ValidateSyllabus(s *domain.Syllabus) (*SyllabusRanges, error) {
	if s == nil || s.West == nil || s.East == nil {
		return nil, apperrors.NewAppValidationError("syllabus is incomplete", apperrors.MsgLoadFailed+apperrors.MsgCheckFormat)
	}

	ranges := &SyllabusRanges{}
	var failed []string
	for _, table := range []*domain.SyllabusTable{s.West, s.East} {
		r, err := CheckContinuity(table.Columns)
		switch {
		case err == nil:
		case errors.Is(err, ErrDiscontinuous):
			failed = append(failed, table.Campus.CampusName())
			continue
		default:
			return nil, apperrors.NewDataError(table.Campus.SheetName(), "年度学期の列を認識できません", err)
		}
		if table.Campus == domain.StoreEast {
			ranges.East = r
		} else {
			ranges.West = r
		}
	}

	if len(failed) > 0 {
		return nil, apperrors.NewDiscontinuityError(failed)
	}
	return ranges, nil
}
