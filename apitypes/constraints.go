package apitypes

import (
	"fmt"
	"regexp"
	"slices"
	"sync"
	"time"
	"unicode/utf8"
)

// Number covers every host type a numeric threshold can be checked against.
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Sized covers values whose length can be constrained.
type Sized interface{ ~string | ~[]byte }

func size[T Sized](v T) int {
	switch s := any(v).(type) {
	case string:
		return utf8.RuneCountInString(s)
	}
	return len(v)
}

func CheckLength[T Sized](field string, v T, n int) []string {
	if l := size(v); l != n {
		return []string{fmt.Sprintf("%s: length %d, must be exactly %d", field, l, n)}
	}
	return nil
}

func CheckMinimalLength[T Sized](field string, v T, n int) []string {
	if l := size(v); l < n {
		return []string{fmt.Sprintf("%s: length %d, must be at least %d", field, l, n)}
	}
	return nil
}

func CheckMaximalLength[T Sized](field string, v T, n int) []string {
	if l := size(v); l > n {
		return []string{fmt.Sprintf("%s: length %d, must be at most %d", field, l, n)}
	}
	return nil
}

var patterns sync.Map

func compiledPattern(pattern string) (*regexp.Regexp, error) {
	if re, ok := patterns.Load(pattern); ok {
		return re.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, err
	}
	patterns.Store(pattern, re)
	return re, nil
}

// CheckPattern matches the whole value against pattern.
func CheckPattern(field, v, pattern string) []string {
	re, err := compiledPattern(pattern)
	if err != nil {
		return []string{fmt.Sprintf("%s: invalid pattern %q: %v", field, pattern, err)}
	}
	if !re.MatchString(v) {
		return []string{fmt.Sprintf("%s: %q does not match %q", field, v, pattern)}
	}
	return nil
}

// ValidPattern reports whether pattern compiles.
func ValidPattern(pattern string) error {
	_, err := compiledPattern(pattern)
	return err
}

func CheckSet(field, v string, set ...string) []string {
	if !slices.Contains(set, v) {
		return []string{fmt.Sprintf("%s: %q is not one of %v", field, v, set)}
	}
	return nil
}

func CheckMinimalInclusive[T Number](field string, v, bound T) []string {
	if v < bound {
		return []string{fmt.Sprintf("%s: %v is below %v", field, v, bound)}
	}
	return nil
}

func CheckMaximalInclusive[T Number](field string, v, bound T) []string {
	if v > bound {
		return []string{fmt.Sprintf("%s: %v is above %v", field, v, bound)}
	}
	return nil
}

func CheckMinimalExclusive[T Number](field string, v, bound T) []string {
	if v <= bound {
		return []string{fmt.Sprintf("%s: %v must be greater than %v", field, v, bound)}
	}
	return nil
}

func CheckMaximalExclusive[T Number](field string, v, bound T) []string {
	if v >= bound {
		return []string{fmt.Sprintf("%s: %v must be less than %v", field, v, bound)}
	}
	return nil
}

// CheckTimeMinimal checks a date or timestamp against a lower bound.
func CheckTimeMinimal(field string, v, bound time.Time, exclusive bool) []string {
	if v.Before(bound) || exclusive && v.Equal(bound) {
		return []string{fmt.Sprintf("%s: %s is before %s", field, v.Format(time.RFC3339), bound.Format(time.RFC3339))}
	}
	return nil
}

// CheckTimeMaximal checks a date or timestamp against an upper bound.
func CheckTimeMaximal(field string, v, bound time.Time, exclusive bool) []string {
	if v.After(bound) || exclusive && v.Equal(bound) {
		return []string{fmt.Sprintf("%s: %s is after %s", field, v.Format(time.RFC3339), bound.Format(time.RFC3339))}
	}
	return nil
}

func CheckMinimalElementCount(field string, n, min int) []string {
	if n < min {
		return []string{fmt.Sprintf("%s: %d elements, must be at least %d", field, n, min)}
	}
	return nil
}

func CheckMaximalElementCount(field string, n, max int) []string {
	if n > max {
		return []string{fmt.Sprintf("%s: %d elements, must be at most %d", field, n, max)}
	}
	return nil
}

// CheckFullyQualifiedIdentifier checks that v is an identifier of the given kind.
func CheckFullyQualifiedIdentifier(field, v, kind string) []string {
	if !IsFullyQualifiedIdentifier(kind, v) {
		return []string{fmt.Sprintf("%s: %q is not a fully qualified %s", field, v, kind)}
	}
	return nil
}

const (
	fqSegment = `[a-zA-Z0-9][a-zA-Z0-9.-]*`
	fqFeature = fqSegment + `/` + fqSegment + `/[A-Z][a-zA-Z0-9]*/v\d+`
	fqName    = `[A-Z][a-zA-Z0-9]*`
)

var identifierKinds = map[string]*regexp.Regexp{
	"FeatureIdentifier":                      regexp.MustCompile(`^` + fqFeature + `$`),
	"CommandIdentifier":                      regexp.MustCompile(`^` + fqFeature + `/Command/` + fqName + `$`),
	"CommandParameterIdentifier":             regexp.MustCompile(`^` + fqFeature + `/Command/` + fqName + `/Parameter/` + fqName + `$`),
	"CommandResponseIdentifier":              regexp.MustCompile(`^` + fqFeature + `/Command/` + fqName + `/Response/` + fqName + `$`),
	"IntermediateCommandResponseIdentifier":  regexp.MustCompile(`^` + fqFeature + `/Command/` + fqName + `/IntermediateResponse/` + fqName + `$`),
	"DefinedExecutionErrorIdentifier":        regexp.MustCompile(`^` + fqFeature + `/DefinedExecutionError/` + fqName + `$`),
	"PropertyIdentifier":                     regexp.MustCompile(`^` + fqFeature + `/Property/` + fqName + `$`),
	"TypeIdentifier":                         regexp.MustCompile(`^` + fqFeature + `/DataType/` + fqName + `$`),
	"MetadataIdentifier":                     regexp.MustCompile(`^` + fqFeature + `/Metadata/` + fqName + `$`),
}

// IsIdentifierKind reports whether kind names a known fully qualified identifier kind.
func IsIdentifierKind(kind string) bool {
	_, ok := identifierKinds[kind]
	return ok
}

// IsFullyQualifiedIdentifier reports whether v has the form required for kind.
func IsFullyQualifiedIdentifier(kind, v string) bool {
	re, ok := identifierKinds[kind]
	return ok && re.MatchString(v)
}
