package riskmodel

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// Artifact is the on-disk JSON form of a model generation.
type Artifact struct {
	Version    string              `json:"version"`
	Classifier ClassifierArtifact  `json:"classifier"`
	Encoders   map[string][]string `json:"encoders"`
	Clusterer  *ClustererArtifact  `json:"clusterer,omitempty"`
}

// ClassifierArtifact holds softmax model parameters.
type ClassifierArtifact struct {
	Classes      []string    `json:"classes"`
	FeatureNames []string    `json:"feature_names"`
	Weights      [][]float64 `json:"weights"`
	Bias         []float64   `json:"bias"`
}

// ClustererArtifact holds k-means centroids.
type ClustererArtifact struct {
	Centroids [][]float64 `json:"centroids"`
}

// Build validates the artifact and returns a Models generation.
func (a Artifact) Build() (*Models, error) {
	clf, err := NewSoftmaxClassifier(a.Classifier.Classes, a.Classifier.FeatureNames, a.Classifier.Weights, a.Classifier.Bias)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}
	m := &Models{
		Version:    a.Version,
		LoadedAt:   time.Now(),
		Classifier: clf,
		Encoders:   make(map[string]*LabelEncoder, len(a.Encoders)),
	}
	for col, classes := range a.Encoders {
		if len(classes) == 0 {
			return nil, fmt.Errorf("encoder %s has no classes", col)
		}
		m.Encoders[col] = NewLabelEncoder(col, classes)
	}
	if a.Clusterer != nil && len(a.Clusterer.Centroids) > 0 {
		cl, err := NewCentroidClusterer(a.Clusterer.Centroids)
		if err != nil {
			return nil, fmt.Errorf("clusterer: %w", err)
		}
		m.Clusterer = cl
	}
	return m, nil
}

// Decode reads an artifact from r and builds it.
func Decode(r io.Reader) (*Models, error) {
	var a Artifact
	dec := json.NewDecoder(r)
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return a.Build()
}

// LoadFile reads and builds the artifact at path.
func LoadFile(path string) (*Models, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}
