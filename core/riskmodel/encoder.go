package riskmodel

import (
	"sort"

	"github.com/kilianp07/stationrisk/core/model"
)

// LabelEncoder maps category strings to their index in a sorted class list.
type LabelEncoder struct {
	column  string
	classes []string
	index   map[string]int
}

// NewLabelEncoder builds an encoder. Classes are sorted and deduplicated so
// that codes match a fit on the same values.
func NewLabelEncoder(column string, classes []string) *LabelEncoder {
	cp := append([]string(nil), classes...)
	sort.Strings(cp)
	uniq := cp[:0]
	for i, c := range cp {
		if i == 0 || c != cp[i-1] {
			uniq = append(uniq, c)
		}
	}
	e := &LabelEncoder{column: column, classes: uniq, index: make(map[string]int, len(uniq))}
	for i, c := range uniq {
		e.index[c] = i
	}
	return e
}

// Column returns the feature column the encoder applies to.
func (e *LabelEncoder) Column() string { return e.column }

// Classes returns the known categories in code order.
func (e *LabelEncoder) Classes() []string { return append([]string(nil), e.classes...) }

// Transform returns the code of v, or an *model.EncodingError for an unseen
// value.
func (e *LabelEncoder) Transform(v string) (float64, error) {
	if i, ok := e.index[v]; ok {
		return float64(i), nil
	}
	return 0, &model.EncodingError{Column: e.column, Value: v}
}

// TransformOrFirst maps unseen values to the first class. The second result
// reports whether the fallback was used.
func (e *LabelEncoder) TransformOrFirst(v string) (float64, bool) {
	code, err := e.Transform(v)
	return code, err != nil
}
