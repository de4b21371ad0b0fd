package chart

import (
	"math"

	"github.com/okian/speciesdex/internal/domain/animal"
)

const (
	bandPadding = 0.2
	bandAlign   = 0.5
	niceTicks   = 10
)

// BandScale maps category names to evenly spaced bands over [0, width].
type BandScale struct {
	index     map[string]int
	n         int
	start     float64
	step      float64
	bandwidth float64
}

// NewBandScale builds a band scale with inner and outer padding of 0.2.
// Repeated names share the band of their first occurrence.
func NewBandScale(domain []string, width float64) BandScale {
	b := BandScale{index: make(map[string]int, len(domain))}
	for _, name := range domain {
		if _, ok := b.index[name]; ok {
			continue
		}
		b.index[name] = b.n
		b.n++
	}
	n := float64(b.n)
	b.step = width / math.Max(1, n-bandPadding+2*bandPadding)
	b.start = (width - b.step*(n-bandPadding)) * bandAlign
	b.bandwidth = b.step * (1 - bandPadding)
	return b
}

// Position returns the left edge of the band for name.
func (b BandScale) Position(name string) (float64, bool) {
	i, ok := b.index[name]
	if !ok {
		return 0, false
	}
	return b.start + b.step*float64(i), true
}

// Bandwidth is the width of every band.
func (b BandScale) Bandwidth() float64 { return b.bandwidth }

// Step is the distance between the starts of adjacent bands.
func (b BandScale) Step() float64 { return b.step }

// LinearScale maps speeds in [0, max] onto a pixel range.
type LinearScale struct {
	d0, d1 float64
	r0, r1 float64
}

// NewLinearScale builds the value scale for a chart with the given maximum.
// The domain upper bound is rounded up to a multiple of 10 and then extended
// to a round tick step, so it is never below max.
func NewLinearScale(max, rangeStart, rangeEnd float64) LinearScale {
	upper := math.Ceil(max/10) * 10
	d0, d1 := nice(0, upper, niceTicks)
	return LinearScale{d0: d0, d1: d1, r0: rangeStart, r1: rangeEnd}
}

// Domain returns the niced domain.
func (s LinearScale) Domain() (float64, float64) { return s.d0, s.d1 }

// Scale maps v into the range. A degenerate domain maps to the range midpoint.
func (s LinearScale) Scale(v float64) float64 {
	if s.d1 == s.d0 {
		return (s.r0 + s.r1) / 2
	}
	t := (v - s.d0) / (s.d1 - s.d0)
	return s.r0 + t*(s.r1-s.r0)
}

// Ticks returns round values spanning the domain, roughly count of them.
func (s LinearScale) Ticks(count int) []float64 {
	return ticks(s.d0, s.d1, float64(count))
}

// ColorScale assigns a fixed color per diet.
type ColorScale struct{}

var dietColors = map[animal.Diet]string{
	animal.Herbivore: "#2ecc71",
	animal.Omnivore:  "#f1c40f",
	animal.Carnivore: "#ff6b6b",
}

// Color returns the fill for d. Unknown diets get the first palette entry.
func (ColorScale) Color(d animal.Diet) string {
	if c, ok := dietColors[d]; ok {
		return c
	}
	return dietColors[animal.Diets[0]]
}

// Domain lists the diets in legend order.
func (ColorScale) Domain() []animal.Diet { return animal.Diets }

// Scales groups the three scales of one chart.
type Scales struct {
	X     BandScale
	Y     LinearScale
	Color ColorScale
}

// NewScales derives the scales for ds over the inner plot area. It reports
// false for an empty dataset.
func NewScales(ds Dataset, innerW, innerH float64) (Scales, bool) {
	if len(ds) == 0 {
		return Scales{}, false
	}
	return Scales{
		X: NewBandScale(ds.Names(), innerW),
		Y: NewLinearScale(ds.Max(), innerH, 0),
	}, true
}

var (
	e10 = math.Sqrt(50)
	e5  = math.Sqrt(10)
	e2  = math.Sqrt(2)
)

// tickSpec returns integer bounds i1..i2 and an increment. A negative inc
// means the tick values are i/-inc rather than i*inc.
func tickSpec(start, stop, count float64) (i1, i2, inc float64) {
	step := (stop - start) / math.Max(0, count)
	power := math.Floor(math.Log10(step))
	e := step / math.Pow(10, power)
	factor := 1.0
	switch {
	case e >= e10:
		factor = 10
	case e >= e5:
		factor = 5
	case e >= e2:
		factor = 2
	}
	if power < 0 {
		inc = math.Pow(10, -power) / factor
		i1 = math.Round(start * inc)
		i2 = math.Round(stop * inc)
		if i1/inc < start {
			i1++
		}
		if i2/inc > stop {
			i2--
		}
		inc = -inc
	} else {
		inc = math.Pow(10, power) * factor
		i1 = math.Round(start / inc)
		i2 = math.Round(stop / inc)
		if i1*inc < start {
			i1++
		}
		if i2*inc > stop {
			i2--
		}
	}
	if i2 < i1 && 0.5 <= count && count < 2 {
		return tickSpec(start, stop, count*2)
	}
	return i1, i2, inc
}

func ticks(start, stop, count float64) []float64 {
	if !(count > 0) {
		return nil
	}
	if start == stop {
		return []float64{start}
	}
	i1, i2, inc := tickSpec(start, stop, count)
	if !(i2 >= i1) {
		return nil
	}
	n := int(i2-i1) + 1
	out := make([]float64, n)
	for i := range out {
		if inc < 0 {
			out[i] = (i1 + float64(i)) / -inc
		} else {
			out[i] = (i1 + float64(i)) * inc
		}
	}
	return out
}

// niceMaxIter bounds the search for a stable tick step.
const niceMaxIter = 10

// nice widens [start, stop] to multiples of the tick step, iterating until
// the step settles. If it never settles the domain is returned unchanged.
func nice(start, stop, count float64) (float64, float64) {
	return niceWithin(start, stop, count, niceMaxIter)
}

func niceWithin(start, stop, count float64, maxIter int) (float64, float64) {
	if start == stop {
		return start, stop
	}
	lo, hi := start, stop
	var prev float64
	for iter := 0; iter < maxIter; iter++ {
		_, _, step := tickSpec(lo, hi, count)
		if step == prev {
			return lo, hi
		}
		switch {
		case step > 0:
			lo = math.Floor(lo/step) * step
			hi = math.Ceil(hi/step) * step
		case step < 0:
			lo = math.Ceil(lo*step) / step
			hi = math.Floor(hi*step) / step
		default:
			return start, stop
		}
		prev = step
	}
	return start, stop
}
