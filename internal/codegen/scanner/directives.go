package scanner

import (
	"fmt"
	"go/ast"
	"go/parser"
	"regexp"
	"strings"

	"github.com/Alia5/featurec/internal/host"
)

// directivePattern matches: featurec:<kind> [value]
var directivePattern = regexp.MustCompile(`^featurec:([a-z-]+)(?:\s+(.*))?$`)

// docLinkPattern matches Go doc links such as [BusyError] or [sample.BusyError].
var docLinkPattern = regexp.MustCompile(`\[([A-Za-z_]\w*(?:\.[A-Z]\w*)?)\]`)

// Pseudo directives steer the scanner and never reach lowering.
const (
	directiveParam    = "param"
	directiveReturn   = "return"
	directiveProperty = "property"
	directiveReadOnly = "readonly"
)

var annotationKinds = map[host.AnnotationKind]bool{
	host.AnnotationIdentifier:     true,
	host.AnnotationDisplayName:    true,
	host.AnnotationDescription:    true,
	host.AnnotationObservable:     true,
	host.AnnotationThrows:         true,
	host.AnnotationDocumentedErr:  true,
	host.AnnotationMetadataType:   true,
	host.AnnotationLazy:           true,
	host.AnnotationPattern:        true,
	host.AnnotationLength:         true,
	host.AnnotationMinLength:      true,
	host.AnnotationMaxLength:      true,
	host.AnnotationMinInclusive:   true,
	host.AnnotationMaxInclusive:   true,
	host.AnnotationMinExclusive:   true,
	host.AnnotationMaxExclusive:   true,
	host.AnnotationUnit:           true,
	host.AnnotationContentType:    true,
	host.AnnotationSchema:         true,
	host.AnnotationIdentifierKind: true,
	host.AnnotationMinElements:    true,
	host.AnnotationMaxElements:    true,
	host.AnnotationOriginator:     true,
	host.AnnotationCategory:       true,
	host.AnnotationVersion:        true,
	host.AnnotationMaturity:       true,
}

// typedKinds take a Go type expression as their value.
var typedKinds = map[host.AnnotationKind]bool{
	host.AnnotationThrows:        true,
	host.AnnotationDocumentedErr: true,
	host.AnnotationMetadataType:  true,
}

// directive is one parsed featurec: comment line.
type directive struct {
	kind  string
	value string
	pos   string
}

// comments splits comment groups into documentation text and directives.
// Directive lines are removed from the text.
func (p *Package) comments(groups ...*ast.CommentGroup) (string, []directive) {
	var (
		lines []string
		dirs  []directive
	)
	for _, g := range groups {
		if g == nil {
			continue
		}
		for _, c := range g.List {
			for _, line := range commentLines(c.Text) {
				if m := directivePattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
					dirs = append(dirs, directive{kind: m[1], value: strings.TrimSpace(m[2]), pos: p.position(c.Pos())})
					continue
				}
				lines = append(lines, line)
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), dirs
}

func commentLines(text string) []string {
	switch {
	case strings.HasPrefix(text, "//"):
		line := strings.TrimPrefix(text, "//")
		return []string{strings.TrimPrefix(line, " ")}
	case strings.HasPrefix(text, "/*"):
		body := strings.TrimSuffix(strings.TrimPrefix(text, "/*"), "*/")
		var out []string
		for _, l := range strings.Split(body, "\n") {
			out = append(out, strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(l), "*")))
		}
		return out
	}
	return []string{text}
}

// annotation converts a directive into a host annotation. Typed kinds
// resolve their value as a Go type expression.
func (p *Package) annotation(kind, value, pos string) (host.Annotation, error) {
	k := host.AnnotationKind(kind)
	if !annotationKinds[k] {
		return host.Annotation{}, fmt.Errorf("%w: %s: unknown directive featurec:%s", ErrDirective, pos, kind)
	}
	if !typedKinds[k] {
		return host.Mark(k, value), nil
	}
	if value == "" {
		return host.Annotation{}, fmt.Errorf("%w: %s: featurec:%s needs a type", ErrDirective, pos, kind)
	}
	x, err := parser.ParseExpr(value)
	if err != nil {
		return host.Annotation{}, fmt.Errorf("%w: %s: featurec:%s %q: %w", ErrDirective, pos, kind, value, err)
	}
	t, err := p.typeOf(x)
	if err != nil {
		return host.Annotation{}, fmt.Errorf("%s: featurec:%s: %w", pos, kind, err)
	}
	return host.MarkType(k, t), nil
}

// annotations converts plain directives. Pseudo directives are rejected.
func (p *Package) annotations(dirs []directive) (host.Annotations, error) {
	var out host.Annotations
	for _, d := range dirs {
		a, err := p.annotation(d.kind, d.value, d.pos)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

// memberDirectives sorts the directives of a method into member, return
// and per-parameter annotations.
type memberDirectives struct {
	member   host.Annotations
	result   host.Annotations
	params   map[string]host.Annotations
	property bool
	readOnly bool
}

func (p *Package) memberDirectives(dirs []directive) (*memberDirectives, error) {
	md := &memberDirectives{params: map[string]host.Annotations{}}
	for _, d := range dirs {
		switch d.kind {
		case directiveProperty:
			md.property = true
		case directiveReadOnly:
			md.readOnly = true
		case directiveReturn:
			kind, value, _ := strings.Cut(d.value, " ")
			a, err := p.annotation(kind, strings.TrimSpace(value), d.pos)
			if err != nil {
				return nil, err
			}
			md.result = append(md.result, a)
		case directiveParam:
			fields := strings.SplitN(d.value, " ", 3)
			if len(fields) < 2 {
				return nil, fmt.Errorf("%w: %s: featurec:param needs a parameter and a kind", ErrDirective, d.pos)
			}
			var value string
			if len(fields) == 3 {
				value = strings.TrimSpace(fields[2])
			}
			a, err := p.annotation(fields[1], value, d.pos)
			if err != nil {
				return nil, err
			}
			md.params[fields[0]] = append(md.params[fields[0]], a)
		default:
			a, err := p.annotation(d.kind, d.value, d.pos)
			if err != nil {
				return nil, err
			}
			md.member = append(md.member, a)
		}
	}
	return md, nil
}

// docErrors turns doc links naming local error types into
// documented-error annotations. Links to anything else are ignored.
func (p *Package) docErrors(doc string, have host.Annotations) host.Annotations {
	var out host.Annotations
	seen := map[string]bool{}
	for _, a := range have {
		if typedKinds[a.Kind] && a.Type != nil {
			seen[a.Type.Name()] = true
		}
	}
	for _, m := range docLinkPattern.FindAllStringSubmatch(doc, -1) {
		name := m[1]
		if seen[name] || strings.Contains(name, ".") {
			continue
		}
		if _, ok := p.types[name]; !ok {
			continue
		}
		t, err := p.named(name)
		if err != nil || t.Family() != host.FamilyError {
			continue
		}
		seen[name] = true
		out = append(out, host.MarkType(host.AnnotationDocumentedErr, t))
	}
	return out
}
