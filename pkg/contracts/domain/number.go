package domain

import (
	"encoding/json"
	"math"
)

// Number is a float that marshals NaN as JSON null
type Number float64

// NaN returns a missing value
func NaN() Number {
	return Number(math.NaN())
}

// IsNaN reports whether the value is missing
func (n Number) IsNaN() bool {
	return math.IsNaN(float64(n))
}

func (n Number) MarshalJSON() ([]byte, error) {
	if n.IsNaN() || math.IsInf(float64(n), 0) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(n))
}

func (n *Number) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*n = NaN()
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}
