// Package analysis holds the illustrative machine-learning example: an
// ordinary least squares fit of mean temperature on the calendar.
package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"github.com/rmaia/inmet-station/internal/entities"
)

// ErrInsufficientData is returned when too few observations carry a
// mean temperature to train the example model.
var ErrInsufficientData = errors.New("not enough temperature observations to train the model")

// minSamples mirrors the dashboard rule: more than 30 usable records.
const minSamples = 31

// splitSeed keeps the train/test split reproducible between runs.
const splitSeed = 42

// Point pairs one held-out observation with the model's prediction.
type Point struct {
	Actual    float64 `json:"actual"`
	Predicted float64 `json:"predicted"`
}

// Result describes a trained temperature model and its evaluation on a
// held-out test set.
type Result struct {
	Intercept     float64 `json:"intercept"`
	MonthCoef     float64 `json:"month_coef"`
	DayOfYearCoef float64 `json:"day_of_year_coef"`
	MSE           float64 `json:"mse"`
	R2            float64 `json:"r2"`
	TrainSize     int     `json:"train_size"`
	TestSize      int     `json:"test_size"`
	Points        []Point `json:"points"`
}

// Predict evaluates the fitted model for a month and day of year.
func (r *Result) Predict(month, dayOfYear float64) float64 {
	return r.Intercept + r.MonthCoef*month + r.DayOfYearCoef*dayOfYear
}

type sample struct {
	month     float64
	dayOfYear float64
	temp      float64
}

// TrainTemperatureModel fits mean temperature against (month, day of
// year) with an 80/20 train/test split and reports MSE and R² on the
// test set.
func TrainTemperatureModel(observations []entities.Observation) (*Result, error) {
	var samples []sample
	for _, o := range observations {
		if o.TempMean == nil || o.Timestamp.IsZero() {
			continue
		}
		samples = append(samples, sample{
			month:     float64(o.Timestamp.Month()),
			dayOfYear: float64(o.Timestamp.YearDay()),
			temp:      *o.TempMean,
		})
	}
	if len(samples) < minSamples {
		return nil, ErrInsufficientData
	}

	rng := rand.New(rand.NewSource(splitSeed))
	perm := rng.Perm(len(samples))
	testSize := len(samples) / 5
	if testSize == 0 {
		testSize = 1
	}

	test := make([]sample, 0, testSize)
	train := make([]sample, 0, len(samples)-testSize)
	for i, p := range perm {
		if i < testSize {
			test = append(test, samples[p])
		} else {
			train = append(train, samples[p])
		}
	}

	intercept, monthCoef, dayCoef, err := fitOLS(train)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Intercept:     intercept,
		MonthCoef:     monthCoef,
		DayOfYearCoef: dayCoef,
		TrainSize:     len(train),
		TestSize:      len(test),
	}

	var meanY float64
	for _, s := range test {
		meanY += s.temp
	}
	meanY /= float64(len(test))

	var ssRes, ssTot float64
	for _, s := range test {
		pred := result.Predict(s.month, s.dayOfYear)
		result.Points = append(result.Points, Point{Actual: s.temp, Predicted: pred})
		ssRes += (s.temp - pred) * (s.temp - pred)
		ssTot += (s.temp - meanY) * (s.temp - meanY)
	}
	result.MSE = ssRes / float64(len(test))
	if ssTot > 0 {
		result.R2 = 1 - ssRes/ssTot
	} else {
		result.R2 = 1
	}

	return result, nil
}

// fitOLS solves the normal equations (XᵀX)β = Xᵀy for the design
// matrix [1, month, dayOfYear].
func fitOLS(train []sample) (intercept, monthCoef, dayCoef float64, err error) {
	var xtx [3][3]float64
	var xty [3]float64
	for _, s := range train {
		x := [3]float64{1, s.month, s.dayOfYear}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				xtx[i][j] += x[i] * x[j]
			}
			xty[i] += x[i] * s.temp
		}
	}

	beta, err := solve3x3(xtx, xty)
	if err != nil {
		return 0, 0, 0, err
	}
	return beta[0], beta[1], beta[2], nil
}

// solve3x3 performs Gaussian elimination with partial pivoting.
func solve3x3(a [3][3]float64, b [3]float64) ([3]float64, error) {
	for col := 0; col < 3; col++ {
		pivot := col
		for row := col + 1; row < 3; row++ {
			if math.Abs(a[row][col]) > math.Abs(a[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(a[pivot][col]) < 1e-12 {
			return [3]float64{}, fmt.Errorf("degenerate design matrix, cannot fit model")
		}
		a[col], a[pivot] = a[pivot], a[col]
		b[col], b[pivot] = b[pivot], b[col]

		for row := col + 1; row < 3; row++ {
			factor := a[row][col] / a[col][col]
			for k := col; k < 3; k++ {
				a[row][k] -= factor * a[col][k]
			}
			b[row] -= factor * b[col]
		}
	}

	var x [3]float64
	for row := 2; row >= 0; row-- {
		sum := b[row]
		for k := row + 1; k < 3; k++ {
			sum -= a[row][k] * x[k]
		}
		x[row] = sum / a[row][row]
	}
	return x, nil
}
