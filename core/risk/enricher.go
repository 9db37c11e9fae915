// Package risk annotates station snapshots with a maintenance risk score,
// a predicted status and a root-cause diagnosis.
package risk

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/stationrisk/core/logger"
	"github.com/kilianp07/stationrisk/core/model"
	"github.com/kilianp07/stationrisk/core/riskmodel"
)

const (
	// MaintenanceThreshold is the exclusive risk bound for NeedsMaintenance.
	MaintenanceThreshold = 0.45
	// FallbackRiskFactor scales utilization when no model score exists.
	FallbackRiskFactor = 0.8

	DiagnosisNominal = "Nominal"
	DiagnosisUnknown = "Unknown"
	// DiagnosisUnknownPattern labels cluster ids outside ClusterLabels.
	DiagnosisUnknownPattern = "Unknown Anomaly Pattern"
)

// RiskClasses carry the probability mass that counts as risk.
var RiskClasses = map[string]bool{"partial_outage": true, "offline": true}

// ClusterLabels maps root-cause cluster ids to diagnoses.
var ClusterLabels = map[int]string{
	0: "Traffic-Induced Overload (Wait Times > 60m)",
	1: "Heat-Induced Hardware Degradation (Temp > 95°F)",
	2: "Software/Network Disconnect (Low Utilization / Error)",
	3: "General Hardware Failure (Routine Wear & Tear)",
}

// Report describes how a batch was scored.
type Report struct {
	Scored    int
	Fallback  int
	Unencoded int
	// Err is the batch-level failure that forced the heuristic, if any.
	Err error
	// ClusterErr is set when the clusterer failed and diagnoses defaulted.
	ClusterErr error
}

// Enricher scores station batches. It holds no state between calls.
type Enricher struct {
	log logger.Logger
}

// NewEnricher returns an enricher logging to log.
func NewEnricher(log logger.Logger) *Enricher {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Enricher{log: log}
}

// Enrich returns annotated copies of stations, in input order. It never
// fails: batch errors fall back to the heuristic for every station and
// featurization errors fall back for the affected station only.
func (e *Enricher) Enrich(stations []model.StationState, models *riskmodel.Models) ([]model.StationState, Report) {
	out := make([]model.StationState, len(stations))
	for i, s := range stations {
		out[i] = s.Clone()
	}
	var rep Report
	if models == nil || models.Classifier == nil {
		rep.Err = model.ErrModelUnavailable
		rep.Fallback = applyFallback(out, nil)
		return out, rep
	}

	var (
		rows []featureRow
		idx  []int
	)
	skip := make([]bool, len(out))
	for i, s := range out {
		f, err := featurize(s)
		if err != nil {
			e.log.Warnf("featurize: %v", err)
			skip[i] = true
			continue
		}
		rows = append(rows, f)
		idx = append(idx, i)
	}
	if len(rows) == 0 {
		rep.Fallback = applyFallback(out, nil)
		return out, rep
	}

	x, unencoded, err := e.matrix(rows, models)
	rep.Unencoded = unencoded
	if err == nil {
		err = e.score(out, idx, x, models, &rep)
	}
	if err != nil {
		e.log.Errorf("batch prediction failed, using heuristic: %v", err)
		rep.Err = err
		rep.Scored = 0
		rep.Fallback = applyFallback(out, nil)
		return out, rep
	}
	rep.Fallback = applyFallback(out, skip)
	return out, rep
}

func (e *Enricher) matrix(rows []featureRow, models *riskmodel.Models) (*mat.Dense, int, error) {
	encoded := make(map[string]bool, len(models.Encoders))
	for col := range models.Encoders {
		encoded[col] = true
	}
	cols := models.Classifier.FeatureNames()
	if cols == nil {
		cols = defaultColumns(rows, encoded)
	}
	if len(cols) == 0 {
		return nil, 0, fmt.Errorf("classifier declares no features")
	}
	unencoded := 0
	x := mat.NewDense(len(rows), len(cols), nil)
	for i, r := range rows {
		for j, col := range cols {
			if v, ok := r.numeric[col]; ok {
				x.Set(i, j, v)
				continue
			}
			raw, isCat := r.categorical[col]
			if !isCat {
				// missing columns are zero filled
				continue
			}
			enc, ok := models.Encoders[col]
			if !ok {
				return nil, unencoded, fmt.Errorf("column %s has no label encoder", col)
			}
			code, fellBack := enc.TransformOrFirst(raw)
			if fellBack {
				unencoded++
				e.log.Debugw("unseen category mapped to first class", map[string]any{"column": col, "value": raw})
			}
			x.Set(i, j, code)
		}
	}
	return x, unencoded, nil
}

func (e *Enricher) score(out []model.StationState, idx []int, x *mat.Dense, models *riskmodel.Models, rep *Report) error {
	n := len(idx)
	labels, err := models.Classifier.Predict(x)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}
	proba, err := models.Classifier.PredictProba(x)
	if err != nil {
		return fmt.Errorf("predict proba: %w", err)
	}
	classes := models.Classifier.Classes()
	if len(labels) != n {
		return fmt.Errorf("predict returned %d labels for %d rows", len(labels), n)
	}
	if r, c := proba.Dims(); r != n || c != len(classes) {
		return fmt.Errorf("predict proba returned %dx%d for %d rows and %d classes", r, c, n, len(classes))
	}

	var clusters []int
	if models.Clusterer != nil {
		clusters, err = models.Clusterer.Predict(x)
		if err == nil && len(clusters) != n {
			err = fmt.Errorf("clusterer returned %d ids for %d rows", len(clusters), n)
		}
		if err != nil {
			e.log.Warnf("clusterer failed, diagnoses default to nominal: %v", err)
			rep.ClusterErr = err
			clusters = nil
		}
	}

	for row, i := range idx {
		risk := 0.0
		for j, cls := range classes {
			if RiskClasses[cls] {
				risk += proba.At(row, j)
			}
		}
		s := &out[i]
		s.PredictedStatus = labels[row]
		s.RiskScore = model.Clamp(risk, 0, 1)
		s.NeedsMaintenance = s.RiskScore > MaintenanceThreshold
		s.RootCauseDiagnosis = DiagnosisNominal
		if s.NeedsMaintenance && clusters != nil {
			if label, ok := ClusterLabels[clusters[row]]; ok {
				s.RootCauseDiagnosis = label
			} else {
				s.RootCauseDiagnosis = DiagnosisUnknownPattern
			}
		}
	}
	rep.Scored = n
	return nil
}

// applyFallback scores the stations selected by mask (all when mask is nil)
// from utilization alone and returns how many were scored.
func applyFallback(out []model.StationState, mask []bool) int {
	n := 0
	for i := range out {
		if mask != nil && !mask[i] {
			continue
		}
		Fallback(&out[i])
		n++
	}
	return n
}

// Fallback applies the utilization heuristic to s.
func Fallback(s *model.StationState) {
	s.PredictedStatus = ""
	s.RiskScore = model.Clamp(s.UtilizationRate*FallbackRiskFactor, 0, 1)
	s.NeedsMaintenance = s.RiskScore > MaintenanceThreshold
	if s.NeedsMaintenance {
		s.RootCauseDiagnosis = DiagnosisUnknown
	} else {
		s.RootCauseDiagnosis = DiagnosisNominal
	}
}

// IsModelUnavailable reports whether the report's batch error means no
// classifier was loaded.
func (r Report) IsModelUnavailable() bool { return errors.Is(r.Err, model.ErrModelUnavailable) }
