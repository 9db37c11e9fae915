package riskmodel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// SoftmaxClassifier is a multinomial linear model: scores = X·Wᵀ + b,
// probabilities = softmax(scores) per row.
type SoftmaxClassifier struct {
	classes  []string
	features []string
	weights  *mat.Dense // classes × features
	bias     []float64
}

// NewSoftmaxClassifier validates dimensions and builds the model. weights
// has one row per class.
func NewSoftmaxClassifier(classes, features []string, weights [][]float64, bias []float64) (*SoftmaxClassifier, error) {
	k := len(classes)
	if k == 0 {
		return nil, fmt.Errorf("classifier has no classes")
	}
	if len(weights) != k {
		return nil, fmt.Errorf("classifier has %d weight rows for %d classes", len(weights), k)
	}
	d := len(weights[0])
	if d == 0 {
		return nil, fmt.Errorf("classifier has no features")
	}
	if features != nil && len(features) != d {
		return nil, fmt.Errorf("classifier has %d feature names for %d weights", len(features), d)
	}
	data := make([]float64, 0, k*d)
	for i, row := range weights {
		if len(row) != d {
			return nil, fmt.Errorf("weight row %d has %d values, want %d", i, len(row), d)
		}
		data = append(data, row...)
	}
	if bias == nil {
		bias = make([]float64, k)
	}
	if len(bias) != k {
		return nil, fmt.Errorf("classifier has %d biases for %d classes", len(bias), k)
	}
	return &SoftmaxClassifier{
		classes:  append([]string(nil), classes...),
		features: append([]string(nil), features...),
		weights:  mat.NewDense(k, d, data),
		bias:     append([]float64(nil), bias...),
	}, nil
}

func (c *SoftmaxClassifier) Classes() []string { return append([]string(nil), c.classes...) }

func (c *SoftmaxClassifier) FeatureNames() []string {
	if len(c.features) == 0 {
		return nil
	}
	return append([]string(nil), c.features...)
}

// PredictProba returns an n × classes matrix whose rows sum to 1.
func (c *SoftmaxClassifier) PredictProba(x mat.Matrix) (*mat.Dense, error) {
	n, d := x.Dims()
	k, wd := c.weights.Dims()
	if d != wd {
		return nil, fmt.Errorf("batch has %d features, model expects %d", d, wd)
	}
	if n == 0 {
		return &mat.Dense{}, nil
	}
	scores := mat.NewDense(n, k, nil)
	scores.Mul(x, c.weights.T())
	for i := 0; i < n; i++ {
		row := scores.RawRowView(i)
		floats.Add(row, c.bias)
		peak := floats.Max(row)
		for j := range row {
			row[j] = math.Exp(row[j] - peak)
		}
		floats.Scale(1/floats.Sum(row), row)
	}
	return scores, nil
}

// Predict returns the most probable class of each row.
func (c *SoftmaxClassifier) Predict(x mat.Matrix) ([]string, error) {
	p, err := c.PredictProba(x)
	if err != nil {
		return nil, err
	}
	if p.IsEmpty() {
		return []string{}, nil
	}
	n, _ := p.Dims()
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = c.classes[floats.MaxIdx(p.RawRowView(i))]
	}
	return out, nil
}
