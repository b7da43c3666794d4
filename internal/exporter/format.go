package exporter

import (
	"strconv"
	"time"

	"poscope/pkg/contracts/domain"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04:05"
)

// formatNumber writes integral values without a fraction and missing values as empty cells
func formatNumber(n domain.Number) string {
	if n.IsNaN() {
		return ""
	}
	return strconv.FormatFloat(float64(n), 'f', -1, 64)
}

func parseNumber(s string) (domain.Number, error) {
	if s == "" {
		return domain.NaN(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return domain.Number(f), nil
}

func formatInt(i int64) string {
	return strconv.FormatInt(i, 10)
}

func formatDate(t time.Time) string {
	return t.Format(dateLayout)
}

func formatTime(t time.Time) string {
	return t.Format(dateTimeLayout)
}
