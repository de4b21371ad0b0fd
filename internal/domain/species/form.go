package species

import (
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Form field names.
const (
	FieldCommonName      = "common_name"
	FieldScientificName  = "scientific_name"
	FieldKingdom         = "kingdom"
	FieldTotalPopulation = "total_population"
	FieldImage           = "image"
	FieldDescription     = "description"
)

// Validation messages.
const (
	MsgCommonNameRequired = "Common name is required"
	MsgInvalidURL         = "Invalid url"
)

// EditForm holds the raw values submitted by the edit form.
type EditForm struct {
	CommonName      string `json:"common_name"`
	ScientificName  string `json:"scientific_name"`
	Kingdom         string `json:"kingdom"`
	TotalPopulation string `json:"total_population"`
	Image           string `json:"image"`
	Description     string `json:"description"`
	// Token identifies one rendering of the form for double-submit checks.
	Token string `json:"-"`
}

// FormFrom pre-populates a form from s.
func FormFrom(s Species) EditForm {
	f := EditForm{
		CommonName:     deref(s.CommonName),
		ScientificName: deref(s.ScientificName),
		Kingdom:        deref(s.Kingdom),
		Image:          deref(s.Image),
		Description:    deref(s.Description),
	}
	if s.TotalPopulation != nil {
		f.TotalPopulation = strconv.FormatInt(*s.TotalPopulation, 10)
	}
	return f
}

// Patch is the validated update payload. Every column is sent; nil becomes
// SQL NULL.
type Patch struct {
	CommonName      string  `json:"common_name"`
	ScientificName  *string `json:"scientific_name"`
	Kingdom         *string `json:"kingdom"`
	TotalPopulation *int64  `json:"total_population"`
	Image           *string `json:"image"`
	Description     *string `json:"description"`
}

// Apply returns s with the patch applied.
func (p Patch) Apply(s Species) Species {
	s.CommonName = Ptr(p.CommonName)
	s.ScientificName = p.ScientificName
	s.Kingdom = p.Kingdom
	s.TotalPopulation = p.TotalPopulation
	s.Image = p.Image
	s.Description = p.Description
	return s
}

// FieldErrors maps a field name to its message.
type FieldErrors map[string]string

// Fields lists the failing fields in sorted order.
func (fe FieldErrors) Fields() []string {
	out := make([]string, 0, len(fe))
	for k := range fe {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, k := range fe.Fields() {
		parts = append(parts, k+": "+fe[k])
	}
	return strings.Join(parts, "; ")
}

// Validate converts the form into a Patch. A non-empty FieldErrors means the
// form must not be submitted.
func (f EditForm) Validate() (Patch, FieldErrors) {
	errs := FieldErrors{}
	p := Patch{
		CommonName:      f.CommonName,
		ScientificName:  optional(f.ScientificName),
		Kingdom:         optional(f.Kingdom),
		TotalPopulation: parsePopulation(f.TotalPopulation),
		Description:     optional(f.Description),
	}
	if f.CommonName == "" {
		errs[FieldCommonName] = MsgCommonNameRequired
	}
	if f.Image != "" {
		if !isURL(f.Image) {
			errs[FieldImage] = MsgInvalidURL
		} else {
			p.Image = Ptr(f.Image)
		}
	}
	if len(errs) > 0 {
		return Patch{}, errs
	}
	return p, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// parsePopulation accepts comma-grouped numbers. Anything that is not a
// finite number becomes nil rather than an error.
func parsePopulation(raw string) *int64 {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", ""))
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return &n
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) >= math.MaxInt64 {
		return nil
	}
	n := int64(math.Round(v))
	return &n
}

func isURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}
