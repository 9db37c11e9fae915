package riskmodel

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// MockClassifier returns fixed probabilities for every row. Err, when set,
// is returned by both prediction methods.
type MockClassifier struct {
	ClassList []string
	Features  []string
	Proba     []float64
	Err       error
}

func (m MockClassifier) Classes() []string      { return m.ClassList }
func (m MockClassifier) FeatureNames() []string { return m.Features }

func (m MockClassifier) PredictProba(x mat.Matrix) (*mat.Dense, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Proba) != len(m.ClassList) {
		return nil, fmt.Errorf("mock has %d probabilities for %d classes", len(m.Proba), len(m.ClassList))
	}
	n, _ := x.Dims()
	if n == 0 {
		return &mat.Dense{}, nil
	}
	out := mat.NewDense(n, len(m.Proba), nil)
	for i := 0; i < n; i++ {
		out.SetRow(i, m.Proba)
	}
	return out, nil
}

func (m MockClassifier) Predict(x mat.Matrix) ([]string, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if len(m.Proba) != len(m.ClassList) {
		return nil, fmt.Errorf("mock has %d probabilities for %d classes", len(m.Proba), len(m.ClassList))
	}
	n, _ := x.Dims()
	best := 0
	for j, p := range m.Proba {
		if p > m.Proba[best] {
			best = j
		}
	}
	out := make([]string, n)
	for i := range out {
		out[i] = m.ClassList[best]
	}
	return out, nil
}

// MockClusterer returns Cluster for every row.
type MockClusterer struct {
	Cluster int
	Err     error
}

func (m MockClusterer) Predict(x mat.Matrix) ([]int, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	n, _ := x.Dims()
	out := make([]int, n)
	for i := range out {
		out[i] = m.Cluster
	}
	return out, nil
}
