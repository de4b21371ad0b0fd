// Package chart ranks animal records and renders the speed bar chart.
//
// The SVG renderer is a pure function of its inputs: every call writes a
// complete document, there is no incremental update.
package chart

import (
	"sort"

	"github.com/okian/speciesdex/internal/domain/animal"
)

// TopN is the number of bars the chart shows.
const TopN = 30

// Dataset is a ranked selection: descending by speed, at most TopN entries.
type Dataset []animal.Record

// Rank returns the n fastest records in descending speed order. Ties keep
// their input order. The input slice is not modified.
func Rank(records []animal.Record, n int) Dataset {
	if n <= 0 || len(records) == 0 {
		return Dataset{}
	}
	out := make(Dataset, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Speed > out[j].Speed })
	if len(out) > n {
		out = out[:n:n]
	}
	return out
}

// Max returns the largest speed in ds, or 0 when empty.
func (ds Dataset) Max() float64 {
	var m float64
	for _, r := range ds {
		if r.Speed > m {
			m = r.Speed
		}
	}
	return m
}

// Names returns the record names in order.
func (ds Dataset) Names() []string {
	names := make([]string, len(ds))
	for i, r := range ds {
		names[i] = r.Name
	}
	return names
}
