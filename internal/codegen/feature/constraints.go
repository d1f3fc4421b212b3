package feature

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/Alia5/featurec/apitypes"
)

// Constraints are the restriction facets of a Constrained type. Pointer and
// empty fields are absent facets.
type Constraints struct {
	Length                   *int         `json:"length,omitempty"`
	MinimalLength            *int         `json:"minimalLength,omitempty"`
	MaximalLength            *int         `json:"maximalLength,omitempty"`
	Pattern                  string       `json:"pattern,omitempty"`
	Set                      []string     `json:"set,omitempty"`
	MinimalInclusive         string       `json:"minimalInclusive,omitempty"`
	MaximalInclusive         string       `json:"maximalInclusive,omitempty"`
	MinimalExclusive         string       `json:"minimalExclusive,omitempty"`
	MaximalExclusive         string       `json:"maximalExclusive,omitempty"`
	Unit                     *Unit        `json:"unit,omitempty"`
	ContentType              *ContentType `json:"contentType,omitempty"`
	Schema                   *Schema      `json:"schema,omitempty"`
	FullyQualifiedIdentifier string       `json:"fullyQualifiedIdentifier,omitempty"`
	MinimalElementCount      *int         `json:"minimalElementCount,omitempty"`
	MaximalElementCount      *int         `json:"maximalElementCount,omitempty"`
}

type Unit struct {
	Label      string          `json:"label"`
	Factor     float64         `json:"factor"`
	Offset     float64         `json:"offset"`
	Components []UnitComponent `json:"components,omitempty"`
}

type UnitComponent struct {
	SIUnit   string `json:"siUnit"`
	Exponent int    `json:"exponent"`
}

type ContentType struct {
	Type       string                 `json:"type"`
	Subtype    string                 `json:"subtype"`
	Parameters []ContentTypeParameter `json:"parameters,omitempty"`
}

type ContentTypeParameter struct {
	Attribute string `json:"attribute"`
	Value     string `json:"value"`
}

type SchemaType string

const (
	SchemaXML  SchemaType = "Xml"
	SchemaJSON SchemaType = "Json"
)

type Schema struct {
	Type   SchemaType `json:"type"`
	URL    string     `json:"url,omitempty"`
	Inline string     `json:"inline,omitempty"`
}

// IsEmpty reports whether no facet is set.
func (c Constraints) IsEmpty() bool {
	return c.Length == nil && c.MinimalLength == nil && c.MaximalLength == nil &&
		c.Pattern == "" && len(c.Set) == 0 &&
		c.MinimalInclusive == "" && c.MaximalInclusive == "" &&
		c.MinimalExclusive == "" && c.MaximalExclusive == "" &&
		c.Unit == nil && c.ContentType == nil && c.Schema == nil &&
		c.FullyQualifiedIdentifier == "" &&
		c.MinimalElementCount == nil && c.MaximalElementCount == nil
}

// Merge returns c with every facet set in o taking precedence.
func (c Constraints) Merge(o Constraints) Constraints {
	pick := func(a, b *int) *int {
		if b != nil {
			return b
		}
		return a
	}
	str := func(a, b string) string {
		if b != "" {
			return b
		}
		return a
	}
	out := c
	out.Length = pick(c.Length, o.Length)
	out.MinimalLength = pick(c.MinimalLength, o.MinimalLength)
	out.MaximalLength = pick(c.MaximalLength, o.MaximalLength)
	out.Pattern = str(c.Pattern, o.Pattern)
	if len(o.Set) > 0 {
		out.Set = o.Set
	}
	out.MinimalInclusive = str(c.MinimalInclusive, o.MinimalInclusive)
	out.MaximalInclusive = str(c.MaximalInclusive, o.MaximalInclusive)
	out.MinimalExclusive = str(c.MinimalExclusive, o.MinimalExclusive)
	out.MaximalExclusive = str(c.MaximalExclusive, o.MaximalExclusive)
	if o.Unit != nil {
		out.Unit = o.Unit
	}
	if o.ContentType != nil {
		out.ContentType = o.ContentType
	}
	if o.Schema != nil {
		out.Schema = o.Schema
	}
	out.FullyQualifiedIdentifier = str(c.FullyQualifiedIdentifier, o.FullyQualifiedIdentifier)
	out.MinimalElementCount = pick(c.MinimalElementCount, o.MinimalElementCount)
	out.MaximalElementCount = pick(c.MaximalElementCount, o.MaximalElementCount)
	return out
}

// Check verifies that every set facet applies to base and is well formed.
func (c Constraints) Check(base DataType) error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidConstraint, fmt.Sprintf(format, args...))
	}
	if _, ok := base.(*List); ok {
		if c.MinimalElementCount == nil && c.MaximalElementCount == nil {
			return invalid("list constraints need an element count")
		}
		return nil
	}
	kind, ok := base.(*Basic)
	if !ok {
		return invalid("constraints apply to basic or list types only")
	}
	if c.MinimalElementCount != nil || c.MaximalElementCount != nil {
		return invalid("element count on %s", kind.Kind)
	}
	if (c.Length != nil || c.MinimalLength != nil || c.MaximalLength != nil) && kind.Kind != String && kind.Kind != Binary {
		return invalid("length on %s", kind.Kind)
	}
	if (c.Pattern != "" || len(c.Set) > 0 || c.FullyQualifiedIdentifier != "") && kind.Kind != String {
		return invalid("string facet on %s", kind.Kind)
	}
	if c.Pattern != "" {
		if err := apitypes.ValidPattern(c.Pattern); err != nil {
			return invalid("pattern %q: %v", c.Pattern, err)
		}
	}
	if c.FullyQualifiedIdentifier != "" && !apitypes.IsIdentifierKind(c.FullyQualifiedIdentifier) {
		return invalid("unknown identifier kind %q", c.FullyQualifiedIdentifier)
	}
	for _, bound := range []string{c.MinimalInclusive, c.MaximalInclusive, c.MinimalExclusive, c.MaximalExclusive} {
		if bound == "" {
			continue
		}
		if _, err := parseBound(kind.Kind, bound); err != nil {
			return invalid("bound %q on %s: %v", bound, kind.Kind, err)
		}
	}
	if c.Unit != nil && kind.Kind != Integer && kind.Kind != Real {
		return invalid("unit on %s", kind.Kind)
	}
	if c.ContentType != nil && kind.Kind != String && kind.Kind != Binary {
		return invalid("content type on %s", kind.Kind)
	}
	if c.Schema != nil && c.Schema.URL == "" && c.Schema.Inline == "" {
		return invalid("schema without source")
	}
	return nil
}

// parseBound parses a threshold literal for a basic kind into a float64 or time.Time.
func parseBound(kind BasicKind, s string) (any, error) {
	switch kind {
	case Integer:
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return float64(i), nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		if f != math.Trunc(f) {
			return nil, fmt.Errorf("%s is not integral", s)
		}
		return f, nil
	case Real:
		return strconv.ParseFloat(s, 64)
	case Date:
		return time.Parse(time.DateOnly, s)
	case Time:
		return time.Parse(time.TimeOnly, s)
	case Timestamp:
		return time.Parse(time.RFC3339, s)
	}
	return nil, fmt.Errorf("no thresholds on %s", kind)
}

// Validate checks value against the constraints and returns every violation.
// field names the value in the returned messages.
func (c *Constrained) Validate(field string, value any) []string {
	if _, ok := c.Base.(*List); ok {
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return []string{fmt.Sprintf("%s: expected a list, got %T", field, value)}
		}
		var out []string
		if c.Constraints.MinimalElementCount != nil {
			out = append(out, apitypes.CheckMinimalElementCount(field, rv.Len(), *c.Constraints.MinimalElementCount)...)
		}
		if c.Constraints.MaximalElementCount != nil {
			out = append(out, apitypes.CheckMaximalElementCount(field, rv.Len(), *c.Constraints.MaximalElementCount)...)
		}
		if inner, ok := c.Base.(*List).Elem.(*Constrained); ok {
			for i := range rv.Len() {
				out = append(out, inner.Validate(fmt.Sprintf("%s[%d]", field, i), rv.Index(i).Interface())...)
			}
		}
		return out
	}
	kind, _ := BaseKind(c.Base)
	cs := c.Constraints
	var out []string
	switch kind {
	case String:
		s, ok := value.(string)
		if !ok {
			return []string{fmt.Sprintf("%s: expected a string, got %T", field, value)}
		}
		out = append(out, checkLength(field, s, cs)...)
		if cs.Pattern != "" {
			out = append(out, apitypes.CheckPattern(field, s, cs.Pattern)...)
		}
		if len(cs.Set) > 0 {
			out = append(out, apitypes.CheckSet(field, s, cs.Set...)...)
		}
		if cs.FullyQualifiedIdentifier != "" {
			out = append(out, apitypes.CheckFullyQualifiedIdentifier(field, s, cs.FullyQualifiedIdentifier)...)
		}
	case Binary:
		b, ok := value.([]byte)
		if !ok {
			return []string{fmt.Sprintf("%s: expected binary, got %T", field, value)}
		}
		out = append(out, checkLength(field, b, cs)...)
	case Integer, Real:
		f, ok := toFloat(value)
		if !ok {
			return []string{fmt.Sprintf("%s: expected a number, got %T", field, value)}
		}
		out = append(out, checkNumber(field, kind, f, cs)...)
	case Date, Time, Timestamp:
		tv, ok := value.(time.Time)
		if !ok {
			return []string{fmt.Sprintf("%s: expected a time, got %T", field, value)}
		}
		out = append(out, checkTime(field, kind, tv, cs)...)
	}
	return out
}

func checkLength[T apitypes.Sized](field string, v T, cs Constraints) []string {
	var out []string
	if cs.Length != nil {
		out = append(out, apitypes.CheckLength(field, v, *cs.Length)...)
	}
	if cs.MinimalLength != nil {
		out = append(out, apitypes.CheckMinimalLength(field, v, *cs.MinimalLength)...)
	}
	if cs.MaximalLength != nil {
		out = append(out, apitypes.CheckMaximalLength(field, v, *cs.MaximalLength)...)
	}
	return out
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch {
	case rv.CanInt():
		return float64(rv.Int()), true
	case rv.CanUint():
		return float64(rv.Uint()), true
	case rv.CanFloat():
		f := rv.Float()
		return f, !math.IsNaN(f)
	}
	return 0, false
}

func checkNumber(field string, kind BasicKind, v float64, cs Constraints) []string {
	var out []string
	bound := func(s string) (float64, bool) {
		if s == "" {
			return 0, false
		}
		b, err := parseBound(kind, s)
		if err != nil {
			return 0, false
		}
		return b.(float64), true
	}
	if b, ok := bound(cs.MinimalInclusive); ok {
		out = append(out, apitypes.CheckMinimalInclusive(field, v, b)...)
	}
	if b, ok := bound(cs.MaximalInclusive); ok {
		out = append(out, apitypes.CheckMaximalInclusive(field, v, b)...)
	}
	if b, ok := bound(cs.MinimalExclusive); ok {
		out = append(out, apitypes.CheckMinimalExclusive(field, v, b)...)
	}
	if b, ok := bound(cs.MaximalExclusive); ok {
		out = append(out, apitypes.CheckMaximalExclusive(field, v, b)...)
	}
	return out
}

func checkTime(field string, kind BasicKind, v time.Time, cs Constraints) []string {
	var out []string
	check := func(s string, minimum, exclusive bool) {
		if s == "" {
			return
		}
		b, err := parseBound(kind, s)
		if err != nil {
			return
		}
		if minimum {
			out = append(out, apitypes.CheckTimeMinimal(field, v, b.(time.Time), exclusive)...)
		} else {
			out = append(out, apitypes.CheckTimeMaximal(field, v, b.(time.Time), exclusive)...)
		}
	}
	check(cs.MinimalInclusive, true, false)
	check(cs.MaximalInclusive, false, false)
	check(cs.MinimalExclusive, true, true)
	check(cs.MaximalExclusive, false, true)
	return out
}
