// Package species models catalog entries owned by the external data service
// and the edit form that updates them.
package species

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Columns is the projection requested from the data service.
const Columns = "id, common_name, scientific_name, kingdom, total_population, image, description, author"

// ID is a species identifier. The data service may use numeric or text keys,
// so ID remembers which JSON kind it was decoded from.
type ID struct {
	raw     string
	numeric bool
}

// ParseID builds an ID from a path segment. All-digit values are numeric.
func ParseID(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return ID{}, ErrInvalidID
	}
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return ID{raw: s, numeric: true}, nil
	}
	return ID{raw: s}, nil
}

// NumericID returns a numeric ID.
func NumericID(n int64) ID { return ID{raw: strconv.FormatInt(n, 10), numeric: true} }

// TextID returns a text ID.
func TextID(s string) ID { return ID{raw: s} }

func (id ID) String() string { return id.raw }

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool { return id.raw == "" }

// Numeric reports whether the ID is a JSON number.
func (id ID) Numeric() bool { return id.numeric }

// MarshalJSON writes the ID back in its original kind.
func (id ID) MarshalJSON() ([]byte, error) {
	if id.numeric {
		return []byte(id.raw), nil
	}
	return json.Marshal(id.raw)
}

// UnmarshalJSON accepts a JSON number or string.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidID, err)
		}
		*id = ID{raw: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidID, err)
	}
	*id = ID{raw: n.String(), numeric: true}
	return nil
}

// Species is one row of the species table.
type Species struct {
	ID              ID      `json:"id"`
	CommonName      *string `json:"common_name"`
	ScientificName  *string `json:"scientific_name"`
	Kingdom         *string `json:"kingdom"`
	TotalPopulation *int64  `json:"total_population"`
	Image           *string `json:"image"`
	Description     *string `json:"description"`
	Author          *string `json:"author,omitempty"`
}

// Title picks the best display name.
func (s Species) Title() string {
	if v := deref(s.CommonName); v != "" {
		return v
	}
	if v := deref(s.ScientificName); v != "" {
		return v
	}
	return "Species details"
}

// AuthorID returns the author or "".
func (s Species) AuthorID() string { return deref(s.Author) }

// Merge overlays the fields returned by the data service onto s.
// The identifier and author of s are kept when the update omits them.
func (s Species) Merge(updated Species) Species {
	out := updated
	if out.ID.IsZero() {
		out.ID = s.ID
	}
	if out.Author == nil {
		out.Author = s.Author
	}
	return out
}

// CanEdit reports whether the session user authored s. It only decides
// whether to offer the edit control; the data service enforces the policy.
func CanEdit(sessionUserID string, s Species) bool {
	author := s.AuthorID()
	return sessionUserID != "" && author != "" && sessionUserID == author
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T { return &v }
