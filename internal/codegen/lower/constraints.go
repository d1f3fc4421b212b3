package lower

import (
	"fmt"
	"mime"
	"strconv"
	"strings"

	"github.com/Alia5/featurec/internal/codegen/common"
	"github.com/Alia5/featurec/internal/codegen/feature"
	"github.com/Alia5/featurec/internal/host"
)

// facetParsers turn constraint annotations into single-facet constraints,
// in the order facets are applied.
var facetParsers = []struct {
	kind  host.AnnotationKind
	parse func(string) (feature.Constraints, error)
}{
	{host.AnnotationPattern, func(v string) (feature.Constraints, error) {
		return feature.Constraints{Pattern: v}, nil
	}},
	{host.AnnotationLength, count(func(c *feature.Constraints, n *int) { c.Length = n })},
	{host.AnnotationMinLength, count(func(c *feature.Constraints, n *int) { c.MinimalLength = n })},
	{host.AnnotationMaxLength, count(func(c *feature.Constraints, n *int) { c.MaximalLength = n })},
	{host.AnnotationMinInclusive, bound(func(c *feature.Constraints, v string) { c.MinimalInclusive = v })},
	{host.AnnotationMaxInclusive, bound(func(c *feature.Constraints, v string) { c.MaximalInclusive = v })},
	{host.AnnotationMinExclusive, bound(func(c *feature.Constraints, v string) { c.MinimalExclusive = v })},
	{host.AnnotationMaxExclusive, bound(func(c *feature.Constraints, v string) { c.MaximalExclusive = v })},
	{host.AnnotationUnit, parseUnit},
	{host.AnnotationContentType, parseContentType},
	{host.AnnotationSchema, parseSchema},
	{host.AnnotationIdentifierKind, func(v string) (feature.Constraints, error) {
		return feature.Constraints{FullyQualifiedIdentifier: strings.TrimSpace(v)}, nil
	}},
	{host.AnnotationMinElements, count(func(c *feature.Constraints, n *int) { c.MinimalElementCount = n })},
	{host.AnnotationMaxElements, count(func(c *feature.Constraints, n *int) { c.MaximalElementCount = n })},
}

func count(set func(*feature.Constraints, *int)) func(string) (feature.Constraints, error) {
	return func(v string) (feature.Constraints, error) {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return feature.Constraints{}, err
		}
		if n < 0 {
			return feature.Constraints{}, fmt.Errorf("negative count %d", n)
		}
		var c feature.Constraints
		set(&c, &n)
		return c, nil
	}
}

// bound keeps the threshold literal; it is checked against the base type
// when the facet is applied.
func bound(set func(*feature.Constraints, string)) func(string) (feature.Constraints, error) {
	return func(v string) (feature.Constraints, error) {
		v = strings.TrimSpace(v)
		if v == "" {
			return feature.Constraints{}, fmt.Errorf("empty threshold")
		}
		var c feature.Constraints
		set(&c, v)
		return c, nil
	}
}

// parseUnit reads "label|factor|offset|SI^exp,SI^exp", e.g. "°C|1|273.15|Kelvin^1".
func parseUnit(v string) (feature.Constraints, error) {
	parts := strings.Split(v, "|")
	if len(parts) != 4 {
		return feature.Constraints{}, fmt.Errorf("unit %q: want label|factor|offset|components", v)
	}
	u := &feature.Unit{Label: strings.TrimSpace(parts[0])}
	var err error
	if u.Factor, err = strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err != nil {
		return feature.Constraints{}, fmt.Errorf("unit factor: %w", err)
	}
	if u.Offset, err = strconv.ParseFloat(strings.TrimSpace(parts[2]), 64); err != nil {
		return feature.Constraints{}, fmt.Errorf("unit offset: %w", err)
	}
	for _, comp := range strings.Split(parts[3], ",") {
		comp = strings.TrimSpace(comp)
		if comp == "" {
			continue
		}
		si, exp, ok := strings.Cut(comp, "^")
		e := 1
		if ok {
			if e, err = strconv.Atoi(exp); err != nil {
				return feature.Constraints{}, fmt.Errorf("unit exponent of %s: %w", si, err)
			}
		}
		u.Components = append(u.Components, feature.UnitComponent{SIUnit: si, Exponent: e})
	}
	if u.Label == "" {
		return feature.Constraints{}, fmt.Errorf("unit %q has no label", v)
	}
	return feature.Constraints{Unit: u}, nil
}

func parseContentType(v string) (feature.Constraints, error) {
	mediaType, params, err := mime.ParseMediaType(v)
	if err != nil {
		return feature.Constraints{}, err
	}
	typ, sub, ok := strings.Cut(mediaType, "/")
	if !ok {
		return feature.Constraints{}, fmt.Errorf("content type %q has no subtype", v)
	}
	ct := &feature.ContentType{Type: typ, Subtype: sub}
	for _, k := range common.SortedKeys(params) {
		ct.Parameters = append(ct.Parameters, feature.ContentTypeParameter{Attribute: k, Value: params[k]})
	}
	return feature.Constraints{ContentType: ct}, nil
}

// parseSchema reads "xml:<source>" or "json:<source>". A source starting
// with '<' or '{' is inline, anything else a URL.
func parseSchema(v string) (feature.Constraints, error) {
	kind, src, ok := strings.Cut(v, ":")
	if !ok {
		return feature.Constraints{}, fmt.Errorf("schema %q: want xml:<source> or json:<source>", v)
	}
	s := &feature.Schema{}
	switch strings.ToLower(kind) {
	case "xml":
		s.Type = feature.SchemaXML
	case "json":
		s.Type = feature.SchemaJSON
	default:
		return feature.Constraints{}, fmt.Errorf("unknown schema type %q", kind)
	}
	src = strings.TrimSpace(src)
	if strings.HasPrefix(src, "<") || strings.HasPrefix(src, "{") {
		s.Inline = src
	} else {
		s.URL = src
	}
	return feature.Constraints{Schema: s}, nil
}
