package transform

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Transformer defines the interface for field transformations
type Transformer interface {
	Transform(value interface{}) (interface{}, error)
}

// Registry holds all available transformers
type Registry struct {
	transformers map[string]Transformer
}

// NewRegistry creates a new transformer registry with defaults
func NewRegistry() *Registry {
	r := &Registry{
		transformers: make(map[string]Transformer),
	}

	r.Register("id", &IDTransform{})
	r.Register("slug", &SlugTransform{})
	r.Register("price", &PriceTransform{})

	return r
}

// Register adds a new transformer type
func (r *Registry) Register(name string, t Transformer) {
	r.transformers[name] = t
}

// Get looks up a transformer by name
func (r *Registry) Get(name string) (Transformer, error) {
	t, ok := r.transformers[name]
	if !ok {
		return nil, fmt.Errorf("unknown transform type: %s", name)
	}
	return t, nil
}

var defaultRegistry = NewRegistry()

// IDTransform coerces numeric ids to strings
type IDTransform struct{}

func (t *IDTransform) Transform(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to id", value)
	}
}

// SlugTransform derives a URL slug from a name
type SlugTransform struct{}

func (t *SlugTransform) Transform(value interface{}) (interface{}, error) {
	s, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("cannot slug %T", value)
	}
	return Slug(s), nil
}

var slugSeparators = regexp.MustCompile(`[\s-]+`)

// Slug lower-cases name and collapses every run of whitespace or hyphens into
// a single hyphen. Slug(Slug(x)) == Slug(x).
func Slug(name string) string {
	lower := cases.Lower(language.Und).String(name)
	return slugSeparators.ReplaceAllString(lower, "-")
}

// PriceTransform normalizes a decimal price string into integer cents
type PriceTransform struct{}

func (t *PriceTransform) Transform(value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return ParsePrice(v)
	case json.Number:
		return ParsePrice(v.String())
	default:
		return nil, fmt.Errorf("cannot parse price from %T", value)
	}
}

// ParsePrice converts a decimal string such as "19.99" into cents (1999).
// Digits past the second decimal place are dropped, which is floor for the
// non-negative prices Printful returns. Parsing is exact, no float rounding.
func ParsePrice(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}

	whole, frac, _ := strings.Cut(s, ".")
	if whole == "" && frac == "" {
		return 0, fmt.Errorf("invalid price %q", s)
	}
	if whole == "" {
		whole = "0"
	}
	if !digitsOnly(whole) || !digitsOnly(frac) {
		return 0, fmt.Errorf("invalid price %q", s)
	}

	frac = (frac + "00")[:2]

	units, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	cents, _ := strconv.ParseInt(frac, 10, 64)
	if units > (math.MaxInt64-cents)/100 {
		return 0, fmt.Errorf("invalid price %q: out of range", s)
	}

	return units*100 + cents, nil
}

// FormatPrice renders cents the way Printful writes prices, e.g. 1999 -> "19.99"
func FormatPrice(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
