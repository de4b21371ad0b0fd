// Package animal holds the canonical animal speed record.
package animal

import (
	"strings"
)

// Diet is the closed set of diet categories.
type Diet string

const (
	Herbivore Diet = "herbivore"
	Omnivore  Diet = "omnivore"
	Carnivore Diet = "carnivore"
)

// Diets lists every diet in legend order.
var Diets = []Diet{Herbivore, Omnivore, Carnivore}

// ParseDiet trims and lower-cases s and reports whether it names a diet.
func ParseDiet(s string) (Diet, bool) {
	d := Diet(strings.ToLower(strings.TrimSpace(s)))
	switch d {
	case Herbivore, Omnivore, Carnivore:
		return d, true
	}
	return "", false
}

// Label returns the capitalized diet name.
func (d Diet) Label() string {
	if d == "" {
		return ""
	}
	return strings.ToUpper(string(d[:1])) + string(d[1:])
}

// Record is one normalized CSV row.
type Record struct {
	Name  string  `json:"name"`
	Speed float64 `json:"speed"`
	Diet  Diet    `json:"diet"`
}
