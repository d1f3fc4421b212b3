package lower

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/Alia5/featurec/internal/codegen/common"
	"github.com/Alia5/featurec/internal/codegen/feature"
	"github.com/Alia5/featurec/internal/host"
	"github.com/Alia5/featurec/internal/registry"
	"github.com/Alia5/featurec/internal/resolve"
)

// typeEntry is a named data type discovered while lowering.
type typeEntry struct {
	id   string
	host string
	t    host.Type
	def  *feature.DataTypeDefinition
	deps []string
}

func basicKind(p host.Primitive) feature.BasicKind {
	switch p {
	case host.PrimitiveString:
		return feature.String
	case host.PrimitiveInteger:
		return feature.Integer
	case host.PrimitiveReal:
		return feature.Real
	case host.PrimitiveBoolean:
		return feature.Boolean
	case host.PrimitiveBinary:
		return feature.Binary
	case host.PrimitiveDate:
		return feature.Date
	case host.PrimitiveTime:
		return feature.Time
	case host.PrimitiveTimestamp:
		return feature.Timestamp
	}
	return feature.Any
}

// dataType lowers t. Constraint annotations are read from the type itself
// and then from targets; later targets win.
func (l *lowerer) dataType(t host.Type, targets ...host.Annotated) (feature.DataType, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: missing type", ErrUnsupportedMember)
	}
	var dt feature.DataType
	switch t.Kind() {
	case host.KindPrimitive:
		dt = &feature.Basic{Kind: basicKind(t.Primitive())}
	case host.KindList:
		elem, err := l.dataType(t.Elem())
		if err != nil {
			return nil, err
		}
		dt = &feature.List{Elem: elem}
	case host.KindEnum, host.KindStruct:
		ref, err := l.reference(t)
		if err != nil {
			return nil, err
		}
		if len(l.constraintFacets(targets)) > 0 {
			l.warn("Ignoring constraints on a named data type", "type", t.Name(), "member", l.cur.member)
		}
		return ref, nil
	case host.KindTuple:
		s := &feature.Structure{}
		for _, f := range t.Members() {
			el, err := l.element(f, f.Name, f.Type, f.Doc, func(id string) string { return "" })
			if err != nil {
				return nil, err
			}
			s.Elements = append(s.Elements, el)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("%w: %s (%s) has no data type", ErrUnsupportedMember, t.Name(), t.Kind())
	}
	return l.constrain(dt, append([]host.Annotated{t}, targets...)), nil
}

type facet struct {
	kind  host.AnnotationKind
	value string
	c     feature.Constraints
}

// constraintFacets parses every constraint annotation on targets. Facets
// that do not parse are dropped with a warning.
func (l *lowerer) constraintFacets(targets []host.Annotated) []facet {
	var out []facet
	for _, p := range facetParsers {
		var a host.Annotation
		found := false
		for _, t := range targets {
			if t == nil {
				continue
			}
			if v, ok := l.o.reader.Attribute(t, p.kind); ok {
				a, found = v, true
			}
		}
		if !found {
			continue
		}
		c, err := p.parse(a.Value)
		if err != nil {
			l.warn("Ignoring malformed constraint", "facet", p.kind, "value", a.Value, "error", err)
			continue
		}
		out = append(out, facet{kind: p.kind, value: a.Value, c: c})
	}
	return out
}

func (l *lowerer) constrain(dt feature.DataType, targets []host.Annotated) feature.DataType {
	for _, f := range l.constraintFacets(targets) {
		next, err := applyFacet(dt, f.c)
		if err != nil {
			l.warn("Ignoring inapplicable constraint", "facet", f.kind, "value", f.value, "error", err)
			continue
		}
		dt = next
	}
	return dt
}

// applyFacet adds c to dt. Element counts constrain lists; every other facet
// constrains the innermost list element.
func applyFacet(dt feature.DataType, c feature.Constraints) (feature.DataType, error) {
	counts := c.MinimalElementCount != nil || c.MaximalElementCount != nil
	switch t := dt.(type) {
	case *feature.Basic:
		if err := c.Check(t); err != nil {
			return nil, err
		}
		return &feature.Constrained{Base: t, Constraints: c}, nil
	case *feature.List:
		if !counts {
			elem, err := applyFacet(t.Elem, c)
			if err != nil {
				return nil, err
			}
			return &feature.List{Elem: elem}, nil
		}
		if err := c.Check(t); err != nil {
			return nil, err
		}
		return &feature.Constrained{Base: t, Constraints: c}, nil
	case *feature.Constrained:
		if list, ok := t.Base.(*feature.List); ok && !counts {
			inner, err := applyFacet(list, c)
			if err != nil {
				return nil, err
			}
			return &feature.Constrained{Base: inner, Constraints: t.Constraints}, nil
		}
		merged := t.Constraints.Merge(c)
		if err := merged.Check(t.Base); err != nil {
			return nil, err
		}
		return &feature.Constrained{Base: t.Base, Constraints: merged}, nil
	}
	return nil, fmt.Errorf("%w: constraints apply to basic and list types, not %T", feature.ErrInvalidConstraint, dt)
}

func (l *lowerer) typeID(t host.Type) string {
	if a, ok := l.o.reader.Attribute(t, host.AnnotationIdentifier); ok {
		return a.Value
	}
	return common.Identifier(t.Name())
}

// reference stages a named type and returns a reference to it.
func (l *lowerer) reference(t host.Type) (feature.DataType, error) {
	qn := t.QualifiedName()
	if f, ok := l.failed[qn]; ok {
		f.members = append(f.members, l.cur.member)
		return nil, fatal(fmt.Errorf("%s is referenced by %s: %w", t.Name(), strings.Join(f.members, ", "), f.err))
	}
	id := l.typeID(t)
	if !identifierPattern.MatchString(id) {
		return nil, fmt.Errorf("%w: %q is not a valid data type identifier", ErrUnsupportedMember, id)
	}
	e, ok := l.typeEntries[id]
	if !ok {
		e, ok = l.cur.byID[id]
	}
	if ok {
		if e.host != qn {
			return nil, fatal(fmt.Errorf("%w: data type %s stands for both %s and %s", ErrConfigContradiction, id, e.host, qn))
		}
		return &feature.Reference{Identifier: id}, nil
	}
	e = &typeEntry{id: id, host: qn, t: t}
	l.cur.byID[id] = e
	l.cur.types = append(l.cur.types, e)
	return &feature.Reference{Identifier: id}, nil
}

// drain lowers the staged types breadth-first, including types they
// discover in turn.
func (l *lowerer) drain() error {
	for i := 0; i < len(l.cur.types); i++ {
		e := l.cur.types[i]
		if e.def != nil {
			continue
		}
		if err := l.defineType(e); err != nil {
			if errors.Is(err, ErrUnlowerableType) && !isFatal(err) {
				l.failed[e.host] = &failure{err: err, members: []string{l.cur.member}}
			}
			return fmt.Errorf("data type %s: %w", e.id, err)
		}
	}
	return nil
}

func (l *lowerer) defineType(e *typeEntry) error {
	t := e.t
	display, desc := l.describe(t, e.id, t.Doc())
	var dt feature.DataType
	switch t.Kind() {
	case host.KindEnum:
		values := t.EnumValues()
		if len(values) == 0 {
			return fmt.Errorf("%w: enumeration %s has no values", ErrUnsupportedMember, t.Name())
		}
		dt = &feature.Constrained{
			Base:        &feature.Basic{Kind: feature.String},
			Constraints: feature.Constraints{Set: slices.Clone(values)},
		}
	case host.KindStruct:
		var err error
		if dt, err = l.structure(e); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %s is not a named data type", ErrUnsupportedMember, t.Name())
	}
	e.def = &feature.DataTypeDefinition{Identifier: e.id, DisplayName: display, Description: desc, DataType: dt}
	e.deps = feature.References(dt)
	l.rename(l.origin(feature.KindDataType, e.id), t.Name(), e.id)
	return nil
}

// structure flattens a struct type into its construction order.
func (l *lowerer) structure(e *typeEntry) (feature.DataType, error) {
	t := e.t
	var params []*host.Param
	if ctors := host.ConstructorsByArity(t.Constructors()); len(ctors) > 0 {
		params = ctors[0].Params
	} else {
		var factories []*host.Member
		for _, f := range t.Factories() {
			if strings.HasPrefix(f.Name, "From") {
				factories = append(factories, f)
			}
		}
		if len(factories) == 0 {
			return nil, fmt.Errorf("%w: %s has neither a constructor nor a From factory", ErrUnlowerableType, t.Name())
		}
		f := host.ConstructorsByArity(factories)[0]
		params = f.Params
		b := registry.ConstructorBinding{Method: f.Name}
		for _, p := range f.Params {
			b.Params = append(b.Params, p.Name)
		}
		origin := l.origin(feature.KindDataType, e.id)
		l.record(func(r *registry.Registry) error { return r.SetConstructor(origin, b) })
	}

	var candidates []*host.Member
	for _, m := range t.Members() {
		if !m.Static && m.Readable && (m.Kind == host.MemberProperty || m.Kind == host.MemberField) {
			candidates = append(candidates, m)
		}
	}

	type field struct {
		member *host.Member
		param  *host.Param
	}
	var fields []field
	if len(params) == 0 {
		for _, m := range candidates {
			if m.Writable {
				fields = append(fields, field{member: m})
			}
		}
	} else {
		free := slices.Clone(candidates)
		for _, p := range params {
			m, err := l.matchParam(t, p, free)
			if err != nil {
				return nil, err
			}
			free = slices.DeleteFunc(free, func(c *host.Member) bool { return c == m })
			fields = append(fields, field{member: m, param: p})
		}
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: %s has no fields", ErrUnlowerableType, t.Name())
	}

	s := &feature.Structure{}
	for _, f := range fields {
		el, err := l.element(f.member, f.member.Name, f.member.Type, f.member.Doc, func(id string) string {
			return registry.FieldOrigin(l.def.Identifier, e.id, id)
		})
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.member.Name, err)
		}
		if f.param != nil {
			el.DataType = l.constrain(el.DataType, []host.Annotated{f.param})
		}
		s.Elements = append(s.Elements, el)
	}
	if len(s.Elements) == 1 && fields[0].member.Name == "Value" {
		return s.Elements[0].DataType, nil
	}
	return s, nil
}

// matchParam finds the member a constructor parameter initializes: an exact
// name match, then a unique prefix or suffix match, then the only free
// member of the parameter's type, then the resolver.
func (l *lowerer) matchParam(t host.Type, p *host.Param, free []*host.Member) (*host.Member, error) {
	name := strings.ToLower(p.Name)
	for _, m := range free {
		if strings.ToLower(m.Name) == name {
			return m, nil
		}
	}

	sameType := func(ms []*host.Member) []*host.Member {
		var out []*host.Member
		for _, m := range ms {
			if m.Type != nil && p.Type != nil && m.Type.QualifiedName() == p.Type.QualifiedName() {
				out = append(out, m)
			}
		}
		return out
	}
	var affix []*host.Member
	for _, m := range free {
		n := strings.ToLower(m.Name)
		if strings.HasPrefix(n, name) || strings.HasSuffix(n, name) || strings.HasPrefix(name, n) || strings.HasSuffix(name, n) {
			affix = append(affix, m)
		}
	}
	switch typed := sameType(affix); {
	case len(affix) == 1:
		return affix[0], nil
	case len(typed) == 1:
		return typed[0], nil
	}
	if typed := sameType(free); len(typed) == 1 {
		return typed[0], nil
	}

	if len(free) == 0 {
		return nil, fmt.Errorf("%w: %s has no member left for constructor parameter %s", ErrUnlowerableType, t.Name(), p.Name)
	}
	if m := resolve.ChooseProperty(l.o.resolver, t.Name(), p.Name, free); m != nil {
		return m, nil
	}
	return nil, fmt.Errorf("%w: no member of %s matches constructor parameter %s", ErrUnlowerableType, t.Name(), p.Name)
}
