package risk

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/stationrisk/core/model"
	"github.com/kilianp07/stationrisk/core/riskmodel"
)

func station(id string, util float64) model.StationState {
	return model.StationState{
		HistoricalRow: model.HistoricalRow{
			StationID: id, UtilizationRate: util, TemperatureF: 80, AvgSessionDurationMins: 30,
			Network: "Tesla", LocationType: "Mall", ChargerType: "DC", PricingType: "flat", WeatherCondition: "Sunny", LocalEvent: "None",
		},
		Price:                    0.45,
		HistoricalUtilizationAvg: util,
	}
}

func encoders() map[string]*riskmodel.LabelEncoder {
	m := map[string]*riskmodel.LabelEncoder{}
	for _, c := range CategoricalColumns {
		m[c] = riskmodel.NewLabelEncoder(c, []string{"None", "Tesla", "Mall", "DC", "flat", "Sunny"})
	}
	return m
}

func mockModels(proba []float64, clusterer riskmodel.Clusterer) *riskmodel.Models {
	return &riskmodel.Models{
		Classifier: riskmodel.MockClassifier{ClassList: []string{"offline", "operational", "partial_outage"}, Proba: proba},
		Encoders:   encoders(),
		Clusterer:  clusterer,
	}
}

func TestEnrich_RiskIsOutageMass(t *testing.T) {
	in := []model.StationState{station("a", 0.2), station("b", 0.9)}
	out, rep := NewEnricher(nil).Enrich(in, mockModels([]float64{0.3, 0.4, 0.3}, riskmodel.MockClusterer{Cluster: 1}))

	require.NoError(t, rep.Err)
	assert.Equal(t, 2, rep.Scored)
	assert.Zero(t, rep.Fallback)
	for _, s := range out {
		assert.InDelta(t, 0.6, s.RiskScore, 1e-12)
		assert.True(t, s.NeedsMaintenance)
		assert.Equal(t, "operational", s.PredictedStatus)
		assert.Equal(t, ClusterLabels[1], s.RootCauseDiagnosis)
	}
	assert.Empty(t, in[0].PredictedStatus, "inputs are not mutated")
}

func TestEnrich_BelowThresholdIsNominal(t *testing.T) {
	out, _ := NewEnricher(nil).Enrich([]model.StationState{station("a", 0.9)}, mockModels([]float64{0.2, 0.6, 0.2}, riskmodel.MockClusterer{Cluster: 0}))
	assert.False(t, out[0].NeedsMaintenance)
	assert.Equal(t, DiagnosisNominal, out[0].RootCauseDiagnosis)
}

func TestEnrich_ThresholdIsExclusive(t *testing.T) {
	out, _ := NewEnricher(nil).Enrich([]model.StationState{station("a", 0.9)}, mockModels([]float64{0.45, 0.55, 0}, nil))
	assert.InDelta(t, 0.45, out[0].RiskScore, 1e-12)
	assert.False(t, out[0].NeedsMaintenance)
}

func TestEnrich_UnknownClusterAndClustererFailure(t *testing.T) {
	out, _ := NewEnricher(nil).Enrich([]model.StationState{station("a", 0.5)}, mockModels([]float64{0.5, 0.1, 0.4}, riskmodel.MockClusterer{Cluster: 9}))
	assert.Equal(t, DiagnosisUnknownPattern, out[0].RootCauseDiagnosis)

	out, rep := NewEnricher(nil).Enrich([]model.StationState{station("a", 0.5)}, mockModels([]float64{0.5, 0.1, 0.4}, riskmodel.MockClusterer{Err: errors.New("boom")}))
	assert.Error(t, rep.ClusterErr)
	assert.True(t, out[0].NeedsMaintenance)
	assert.Equal(t, DiagnosisNominal, out[0].RootCauseDiagnosis)

	out, _ = NewEnricher(nil).Enrich([]model.StationState{station("a", 0.5)}, mockModels([]float64{0.5, 0.1, 0.4}, nil))
	assert.Equal(t, DiagnosisNominal, out[0].RootCauseDiagnosis)
}

func TestEnrich_ClassifierErrorFallsBack(t *testing.T) {
	m := mockModels(nil, nil)
	m.Classifier = riskmodel.MockClassifier{ClassList: []string{"offline"}, Proba: []float64{1}, Err: errors.New("model exploded")}
	out, rep := NewEnricher(nil).Enrich([]model.StationState{station("a", 0.9), station("b", 0.1)}, m)

	require.Error(t, rep.Err)
	assert.Equal(t, 2, rep.Fallback)
	assert.InDelta(t, 0.72, out[0].RiskScore, 1e-12)
	assert.True(t, out[0].NeedsMaintenance)
	assert.Equal(t, DiagnosisUnknown, out[0].RootCauseDiagnosis)
	assert.InDelta(t, 0.08, out[1].RiskScore, 1e-12)
	assert.False(t, out[1].NeedsMaintenance)
	assert.Equal(t, DiagnosisNominal, out[1].RootCauseDiagnosis)
	assert.Empty(t, out[0].PredictedStatus)
}

func TestEnrich_NoModels(t *testing.T) {
	out, rep := NewEnricher(nil).Enrich([]model.StationState{station("a", 0.5)}, nil)
	assert.True(t, rep.IsModelUnavailable())
	assert.InDelta(t, 0.4, out[0].RiskScore, 1e-12)
}

func TestEnrich_FeaturizationErrorIsPerStation(t *testing.T) {
	bad := station("bad", 0.9)
	bad.TemperatureF = math.NaN()
	out, rep := NewEnricher(nil).Enrich([]model.StationState{station("ok", 0.1), bad}, mockModels([]float64{0.1, 0.8, 0.1}, nil))
	require.NoError(t, rep.Err)
	assert.Equal(t, 1, rep.Scored)
	assert.Equal(t, 1, rep.Fallback)
	assert.Equal(t, "operational", out[0].PredictedStatus)
	assert.Empty(t, out[1].PredictedStatus)
	assert.InDelta(t, 0.72, out[1].RiskScore, 1e-12)
}

func TestEnrich_ShapeMismatchFallsBack(t *testing.T) {
	m := mockModels([]float64{0.5, 0.5}, nil)
	m.Classifier = riskmodel.MockClassifier{ClassList: []string{"a", "b", "c"}, Proba: []float64{0.5, 0.5}}
	_, rep := NewEnricher(nil).Enrich([]model.StationState{station("a", 0.5)}, m)
	assert.Error(t, rep.Err)
}

type recordingClassifier struct {
	riskmodel.MockClassifier
	seen *mat.Dense
}

func (r *recordingClassifier) PredictProba(x mat.Matrix) (*mat.Dense, error) {
	r.seen = mat.DenseCopyOf(x)
	return r.MockClassifier.PredictProba(x)
}

func TestEnrich_ReindexAndEncoding(t *testing.T) {
	rc := &recordingClassifier{MockClassifier: riskmodel.MockClassifier{
		ClassList: []string{"operational"},
		Features:  []string{"network", "utilization_rate", "not_in_data", "weather_condition"},
		Proba:     []float64{1},
	}}
	m := &riskmodel.Models{Classifier: rc, Encoders: map[string]*riskmodel.LabelEncoder{
		"network":           riskmodel.NewLabelEncoder("network", []string{"ChargePoint", "Tesla"}),
		"weather_condition": riskmodel.NewLabelEncoder("weather_condition", []string{"Rainy", "Sunny"}),
	}}
	s := station("a", 0.7)
	s.WeatherCondition = "Hail"
	_, rep := NewEnricher(nil).Enrich([]model.StationState{s}, m)
	require.NoError(t, rep.Err)
	assert.Equal(t, 1, rep.Unencoded)
	require.NotNil(t, rc.seen)
	assert.Equal(t, []float64{1, 0.7, 0, 0}, mat.Row(nil, 0, rc.seen))
}

func TestEnrich_MissingEncoderForExpectedColumnFallsBack(t *testing.T) {
	m := &riskmodel.Models{Classifier: riskmodel.MockClassifier{
		ClassList: []string{"operational"}, Features: []string{"network"}, Proba: []float64{1},
	}}
	_, rep := NewEnricher(nil).Enrich([]model.StationState{station("a", 0.7)}, m)
	assert.Error(t, rep.Err)
}

func TestEnrich_DefaultColumnsIncludeExtras(t *testing.T) {
	s := station("a", 0.5)
	s.Extra = map[string]float64{"grid_load_kw": 3, "ports_available": 4}
	f, err := featurize(s)
	require.NoError(t, err)
	cols := defaultColumns([]featureRow{f}, map[string]bool{"network": true})
	assert.Equal(t, "network", cols[0])
	assert.Equal(t, "grid_load_kw", cols[len(cols)-1])
	assert.NotContains(t, cols, "ports_available")
}
