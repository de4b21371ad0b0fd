package ingest

import (
	"math"
	"strconv"
	"strings"

	"github.com/okian/speciesdex/internal/domain/animal"
)

// Column aliases per canonical field, tried in order.
var (
	NameAliases  = []string{"name", "Name", "Animal", "animal"}
	SpeedAliases = []string{"speed", "Speed", "Average Speed (km/h)", "average speed (km/h)"}
	DietAliases  = []string{"diet", "Diet", "dietary", "Dietary"}
)

// Result is the outcome of normalizing a parsed document.
type Result struct {
	Records []animal.Record
	// Total is the number of data rows parsed.
	Total int
	// Dropped is the number of rows that failed validation.
	Dropped int
}

// ResolveField returns the value of the first alias present in row.
// Matching is exact and case-sensitive.
func ResolveField(row RawRow, aliases []string) (string, bool) {
	for _, k := range aliases {
		if v, ok := row[k]; ok {
			return v, true
		}
	}
	return "", false
}

// NormalizeRow maps a raw row to a Record, reporting false if any field is
// missing or invalid.
func NormalizeRow(row RawRow) (animal.Record, bool) {
	rawName, ok := ResolveField(row, NameAliases)
	if !ok {
		return animal.Record{}, false
	}
	rawSpeed, ok := ResolveField(row, SpeedAliases)
	if !ok {
		return animal.Record{}, false
	}
	rawDiet, ok := ResolveField(row, DietAliases)
	if !ok {
		return animal.Record{}, false
	}

	name := strings.TrimSpace(rawName)
	if name == "" {
		return animal.Record{}, false
	}
	speed, err := strconv.ParseFloat(strings.TrimSpace(rawSpeed), 64)
	if err != nil || math.IsNaN(speed) || math.IsInf(speed, 0) || speed <= 0 {
		return animal.Record{}, false
	}
	diet, ok := animal.ParseDiet(rawDiet)
	if !ok {
		return animal.Record{}, false
	}
	return animal.Record{Name: name, Speed: speed, Diet: diet}, true
}

// Normalize keeps the rows that pass NormalizeRow, in input order.
func Normalize(rows []RawRow) Result {
	res := Result{Total: len(rows), Records: make([]animal.Record, 0, len(rows))}
	for _, row := range rows {
		rec, ok := NormalizeRow(row)
		if !ok {
			res.Dropped++
			continue
		}
		res.Records = append(res.Records, rec)
	}
	return res
}
