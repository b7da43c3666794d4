package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// rcond is the relative singular value cutoff used to determine the rank
const rcond = 1e-10

var errNoRows = errors.New("no rows to fit")

// Model is a log-linear regression: log(customers) = b0 + b·x
type Model struct {
	Features     []string  `json:"features"`
	Coefficients []float64 `json:"coefficients"`
}

// Fit solves the least squares problem on log(y) with an intercept.
// Rank-deficient designs get the minimum-norm solution.
func Fit(x [][]float64, y []float64) (*Model, error) {
	n := len(y)
	if n == 0 || len(x) != n {
		return nil, errNoRows
	}
	k := len(x[0]) + 1

	design := mat.NewDense(n, k, nil)
	target := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if len(x[i]) != k-1 {
			return nil, fmt.Errorf("row %d has %d features, want %d", i, len(x[i]), k-1)
		}
		if y[i] <= 0 {
			return nil, fmt.Errorf("row %d has non-positive target %v", i, y[i])
		}
		design.Set(i, 0, 1)
		for j, v := range x[i] {
			design.Set(i, j+1, v)
		}
		target.SetVec(i, math.Log(y[i]))
	}

	var svd mat.SVD
	if ok := svd.Factorize(design, mat.SVDThin); !ok {
		return nil, errors.New("singular value decomposition failed")
	}
	rank := svd.Rank(rcond)
	if rank == 0 {
		return nil, errors.New("design matrix has rank zero")
	}

	var beta mat.VecDense
	svd.SolveVecTo(&beta, target, rank)

	coeffs := make([]float64, k)
	for i := range coeffs {
		coeffs[i] = beta.AtVec(i)
	}
	return &Model{Features: append([]string(nil), FeatureNames...), Coefficients: coeffs}, nil
}

// Predict returns the back-transformed customer count for one feature vector
func (m *Model) Predict(x []float64) float64 {
	z := m.Coefficients[0]
	for j, v := range x {
		z += m.Coefficients[j+1] * v
	}
	return math.Exp(z)
}

// accuracy returns RMSE and MAPE (percent) of predictions against actual counts
func accuracy(actual, predicted []float64) (rmse, mape float64) {
	n := min(len(actual), len(predicted))
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	counted := 0
	for i := 0; i < n; i++ {
		d := actual[i] - predicted[i]
		rmse += d * d
		if actual[i] != 0 {
			mape += math.Abs(d) / math.Abs(actual[i]) * 100
			counted++
		}
	}
	rmse = math.Sqrt(rmse / float64(n))
	if counted == 0 {
		return rmse, math.NaN()
	}
	return rmse, mape / float64(counted)
}

func (m *Model) evaluate(samples []Sample) (rmse, mape float64) {
	actual := make([]float64, len(samples))
	predicted := make([]float64, len(samples))
	for i, s := range samples {
		actual[i] = s.Customers
		predicted[i] = m.Predict(s.Vector())
	}
	return accuracy(actual, predicted)
}
