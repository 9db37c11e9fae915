package riskmodel

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// CentroidClusterer assigns each row to its nearest centroid (Euclidean),
// which is how a fitted k-means model predicts.
type CentroidClusterer struct {
	centroids [][]float64
}

// NewCentroidClusterer validates that every centroid has the same width.
func NewCentroidClusterer(centroids [][]float64) (*CentroidClusterer, error) {
	if len(centroids) == 0 {
		return nil, fmt.Errorf("clusterer has no centroids")
	}
	d := len(centroids[0])
	cp := make([][]float64, len(centroids))
	for i, c := range centroids {
		if len(c) != d || d == 0 {
			return nil, fmt.Errorf("centroid %d has %d values, want %d", i, len(c), d)
		}
		cp[i] = append([]float64(nil), c...)
	}
	return &CentroidClusterer{centroids: cp}, nil
}

func (c *CentroidClusterer) Predict(x mat.Matrix) ([]int, error) {
	n, d := x.Dims()
	if want := len(c.centroids[0]); d != want {
		return nil, fmt.Errorf("batch has %d features, clusterer expects %d", d, want)
	}
	out := make([]int, n)
	row := make([]float64, d)
	for i := 0; i < n; i++ {
		mat.Row(row, i, x)
		best := floats.Distance(row, c.centroids[0], 2)
		for j := 1; j < len(c.centroids); j++ {
			if dist := floats.Distance(row, c.centroids[j], 2); dist < best {
				best, out[i] = dist, j
			}
		}
	}
	return out, nil
}
