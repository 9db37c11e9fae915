package riskmodel

import (
	"time"

	"gonum.org/v1/gonum/mat"
)

// Classifier predicts a station status from a feature batch (one row per
// station).
type Classifier interface {
	// Classes lists the status labels in PredictProba column order.
	Classes() []string
	// FeatureNames lists the expected column order. Nil means the caller's
	// default order is accepted.
	FeatureNames() []string
	Predict(x mat.Matrix) ([]string, error)
	PredictProba(x mat.Matrix) (*mat.Dense, error)
}

// Clusterer assigns a root-cause cluster id to each row of a batch.
type Clusterer interface {
	Predict(x mat.Matrix) ([]int, error)
}

// Models is one immutable generation of artifacts. Clusterer may be nil.
type Models struct {
	Version    string
	LoadedAt   time.Time
	Classifier Classifier
	Encoders   map[string]*LabelEncoder
	Clusterer  Clusterer
}
