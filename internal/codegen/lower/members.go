package lower

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/Alia5/featurec/internal/codegen/common"
	"github.com/Alia5/featurec/internal/codegen/feature"
	"github.com/Alia5/featurec/internal/host"
	"github.com/Alia5/featurec/internal/registry"
)

const (
	// DefaultResponseIdentifier names the single response of a command
	// whose return value carries no identifier annotation.
	DefaultResponseIdentifier = "ReturnValue"
	// DefaultIntermediateIdentifier names the intermediate response.
	DefaultIntermediateIdentifier = "IntermediateValue"
	// SetterParameterIdentifier names the parameter of a synthesized setter.
	SetterParameterIdentifier = "Value"
)

var identifierPattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9]*$`)

func (l *lowerer) member(m *host.Member, ms MemberSpec) error {
	if m.Type != nil && m.Type.Family() == host.FamilyInterceptor {
		return l.metadata(m, ms)
	}
	switch m.Kind {
	case host.MemberProperty, host.MemberField:
		if !m.Readable {
			return fmt.Errorf("%w: %s is write-only", ErrUnsupportedMember, m.Name)
		}
		if ms.AsMethod {
			return l.command(m, ms, registry.BindingPropertyAsMethod)
		}
		return l.property(m, ms, registry.BindingProperty)
	}
	if len(m.Params) == 0 && !ms.AsMethod {
		if c, err := ClassifyReturn(m.Type); err == nil && c.Shape == host.ShapeSync {
			return l.property(m, ms, registry.BindingMethodProperty)
		}
	}
	return l.command(m, ms, registry.BindingCommand)
}

func (l *lowerer) itemID(m *host.Member, ms MemberSpec) (string, error) {
	a, _ := l.o.reader.Attribute(m, host.AnnotationIdentifier)
	id := pick(ms.Identifier, a.Value, common.Identifier(m.Name))
	if !identifierPattern.MatchString(id) {
		return "", fmt.Errorf("%w: %q is not a valid identifier", ErrUnsupportedMember, id)
	}
	return id, nil
}

// describe returns the display name and description of target.
func (l *lowerer) describe(target host.Annotated, id, doc string) (string, string) {
	display, _ := l.o.reader.Attribute(target, host.AnnotationDisplayName)
	desc, _ := l.o.reader.Attribute(target, host.AnnotationDescription)
	name := pick(display.Value, common.Words(id))
	return name, pick(desc.Value, strings.TrimSpace(doc), name)
}

func (l *lowerer) observableAnnotation(targets ...host.Annotated) bool {
	for _, t := range targets {
		if a, ok := l.o.reader.Attribute(t, host.AnnotationObservable); ok && a.Value != "false" {
			return true
		}
	}
	return false
}

func (l *lowerer) property(m *host.Member, ms MemberSpec, kind registry.BindingKind) error {
	id, err := l.itemID(m, ms)
	if err != nil {
		return err
	}
	display, desc := l.describe(m, id, m.Doc)
	dt, err := l.dataType(m.Type, m, host.Return(m))
	if err != nil {
		return err
	}
	errs, err := l.declaredErrors(m)
	if err != nil {
		return err
	}

	observable := l.observableAnnotation(m)
	if ms.Observable != nil {
		observable = *ms.Observable
	}
	lazy := false
	if a, ok := l.o.reader.Attribute(m, host.AnnotationLazy); ok && a.Value != "false" {
		lazy = true
	}
	if ms.Lazy != nil {
		lazy = *ms.Lazy
	}
	if lazy && observable {
		l.warn("Observable property cannot be lazy, ignoring laziness", "property", id)
		lazy = false
	}

	p := &feature.Property{
		Identifier:             id,
		DisplayName:            display,
		Description:            desc,
		Observable:             observable,
		DataType:               dt,
		DefinedExecutionErrors: errs,
	}
	l.cur.items = append(l.cur.items, p)
	origin := l.origin(feature.KindProperty, id)
	l.rename(origin, m.Name, id)
	l.overrideType(origin, m.Type)
	b := registry.MemberBinding{Kind: kind, Member: m.Name, Shape: host.ShapeSync, Lazy: lazy}
	l.record(func(r *registry.Registry) error { return r.SetBinding(origin, b) })

	if !m.Writable {
		return nil
	}
	setter := &feature.Command{
		Identifier:  "Set" + id,
		DisplayName: "Set " + display,
		Description: "Sets " + display + ".",
		Parameters: []*feature.Element{{
			Identifier:  SetterParameterIdentifier,
			DisplayName: SetterParameterIdentifier,
			Description: desc,
			DataType:    dt,
		}},
		DefinedExecutionErrors: errs,
	}
	l.cur.items = append(l.cur.items, setter)
	setterOrigin := l.origin(feature.KindCommand, setter.Identifier)
	l.overrideType(registry.ParameterOrigin(l.def.Identifier, setter.Identifier, SetterParameterIdentifier), m.Type)
	sb := registry.MemberBinding{Kind: registry.BindingPropertySetter, Member: m.Name, Shape: host.ShapeVoid, Property: id}
	l.record(func(r *registry.Registry) error { return r.SetBinding(setterOrigin, sb) })
	return nil
}

func (l *lowerer) command(m *host.Member, ms MemberSpec, kind registry.BindingKind) error {
	id, err := l.itemID(m, ms)
	if err != nil {
		return err
	}
	display, desc := l.describe(m, id, m.Doc)
	c := &feature.Command{Identifier: id, DisplayName: display, Description: desc}

	cancellation := false
	for i, p := range m.Params {
		if p.Type == nil {
			return fmt.Errorf("%w: parameter %s has no type", ErrUnsupportedMember, p.Name)
		}
		if p.Type.Family() == host.FamilyCancellation {
			if i != len(m.Params)-1 {
				l.warn("Cancellation parameter is not the last parameter", "command", id, "parameter", p.Name)
			}
			cancellation = true
			continue
		}
		el, err := l.element(p, p.Name, p.Type, p.Doc, func(pid string) string {
			return registry.ParameterOrigin(l.def.Identifier, id, pid)
		})
		if err != nil {
			return fmt.Errorf("parameter %s: %w", p.Name, err)
		}
		c.Parameters = append(c.Parameters, el)
	}

	cls := Classification{Shape: host.ShapeSync, Response: m.Type}
	if kind != registry.BindingPropertyAsMethod {
		if cls, err = ClassifyReturn(m.Type); err != nil {
			return err
		}
	}
	declared := l.observableAnnotation(m)
	observable := cls.Observable()
	if cls.Shape == host.ShapeTask && !declared && (ms.Observable == nil || !*ms.Observable) {
		l.warn("Task-returning command is not declared observable", "command", id)
	}
	if cancellation && !observable {
		l.warn("Cancellation parameter forces an observable command", "command", id)
		observable = true
	}
	if declared {
		observable = true
	}
	if ms.Observable != nil {
		switch {
		case *ms.Observable:
			observable = true
		case observable:
			return fatal(fmt.Errorf("%w: %s is configured as not observable but its %s return shape is observable",
				ErrConfigContradiction, id, cls.Shape))
		}
	}
	c.Observable = observable

	if cls.Response != nil {
		responses, err := l.responses(m, id, cls.Response)
		if err != nil {
			return err
		}
		c.Responses = responses
	}
	if cls.Intermediate != nil {
		el, err := l.element(nil, DefaultIntermediateIdentifier, cls.Intermediate, "", func(rid string) string {
			return registry.IntermediateOrigin(l.def.Identifier, id, rid)
		})
		if err != nil {
			return fmt.Errorf("intermediate response: %w", err)
		}
		c.IntermediateResponses = []*feature.Element{el}
	}
	if c.DefinedExecutionErrors, err = l.declaredErrors(m); err != nil {
		return err
	}

	b := registry.MemberBinding{Kind: kind, Member: m.Name, Shape: cls.Shape, Cancellation: cancellation}
	b.Nonstandard = b.Shape != registry.StandardShape(c)
	if ms.Response != "" {
		if len(c.Responses) == 0 {
			return fmt.Errorf("%w: response mapping on %s, which has no response", ErrUnsupportedMember, id)
		}
		if _, err := expr.Compile(ms.Response, expr.Env(ResponseEnv{})); err != nil {
			return fmt.Errorf("%w: response mapping of %s: %w", ErrUnsupportedMember, id, err)
		}
		b.ResponseExpr = ms.Response
	}

	l.cur.items = append(l.cur.items, c)
	origin := l.origin(feature.KindCommand, id)
	l.rename(origin, m.Name, id)
	l.record(func(r *registry.Registry) error { return r.SetBinding(origin, b) })
	return nil
}

// ResponseEnv is the environment response mapping expressions are compiled
// against. The host result is bound to "result".
type ResponseEnv struct {
	Result any `expr:"result"`
}

// responses lowers a return type into response elements. Tuples produce one
// element per field.
func (l *lowerer) responses(m *host.Member, command string, t host.Type) ([]*feature.Element, error) {
	origin := func(rid string) string { return registry.ResponseOrigin(l.def.Identifier, command, rid) }
	if t.Kind() != host.KindTuple {
		name := DefaultResponseIdentifier
		if a, ok := l.o.reader.Attribute(host.Return(m), host.AnnotationIdentifier); ok {
			name = a.Value
		}
		el, err := l.element(host.Return(m), name, t, "", origin)
		if err != nil {
			return nil, fmt.Errorf("response: %w", err)
		}
		return []*feature.Element{el}, nil
	}
	var out []*feature.Element
	for _, f := range t.Members() {
		el, err := l.element(f, f.Name, f.Type, f.Doc, origin)
		if err != nil {
			return nil, fmt.Errorf("response %s: %w", f.Name, err)
		}
		out = append(out, el)
	}
	return out, nil
}

// element lowers one named slot. origin maps the element identifier to its
// registry key.
func (l *lowerer) element(target host.Annotated, name string, t host.Type, doc string, origin func(string) string) (*feature.Element, error) {
	var a host.Annotation
	if target != nil {
		a, _ = l.o.reader.Attribute(target, host.AnnotationIdentifier)
	}
	id := pick(a.Value, common.Identifier(name))
	if !identifierPattern.MatchString(id) {
		return nil, fmt.Errorf("%w: %q is not a valid identifier", ErrUnsupportedMember, id)
	}
	dt, err := l.dataType(t, target)
	if err != nil {
		return nil, err
	}
	el := &feature.Element{Identifier: id, DataType: dt}
	if target != nil {
		el.DisplayName, el.Description = l.describe(target, id, doc)
	} else {
		el.DisplayName = common.Words(id)
		el.Description = el.DisplayName
	}
	if key := origin(id); key != "" {
		l.rename(key, name, id)
		l.overrideType(key, t)
	}
	return el, nil
}

func (l *lowerer) metadata(m *host.Member, ms MemberSpec) error {
	a, ok := l.o.reader.Attribute(m, host.AnnotationMetadataType)
	if !ok || a.Type == nil {
		return fatal(fmt.Errorf("%w: interceptor %s has no metadata-type annotation", ErrConfigContradiction, m.Name))
	}
	id, err := l.itemID(m, ms)
	if err != nil {
		return err
	}
	display, desc := l.describe(m, id, m.Doc)
	dt, err := l.dataType(a.Type, m)
	if err != nil {
		return err
	}
	errs, err := l.declaredErrors(m)
	if err != nil {
		return err
	}
	l.cur.items = append(l.cur.items, &feature.Metadata{
		Identifier:             id,
		DisplayName:            display,
		Description:            desc,
		DataType:               dt,
		DefinedExecutionErrors: errs,
	})
	origin := l.origin(feature.KindMetadata, id)
	l.rename(origin, m.Name, id)
	l.overrideType(origin, a.Type)
	b := registry.MemberBinding{Kind: registry.BindingInterceptor, Member: m.Name}
	l.record(func(r *registry.Registry) error { return r.SetBinding(origin, b) })
	return nil
}

// declaredErrors collects the errors m declares through throws annotations
// and its documentation. Argument errors are validation failures and are
// not declared.
func (l *lowerer) declaredErrors(m *host.Member) ([]string, error) {
	anns := append(l.o.reader.Attributes(m, host.AnnotationThrows), l.o.reader.Attributes(m, host.AnnotationDocumentedErr)...)
	var ids []string
	seen := map[string]bool{}
	for _, a := range anns {
		var name, hostName, doc string
		var target host.Annotated
		switch {
		case a.Type != nil:
			if a.Type.Family() == host.FamilyArgumentError {
				continue
			}
			name, hostName, doc, target = a.Type.Name(), a.Type.QualifiedName(), a.Type.Doc(), a.Type
		case a.Value != "":
			name, hostName = strings.TrimPrefix(a.Value, "*"), a.Value
			if i := strings.LastIndexByte(name, '.'); i >= 0 {
				name = name[i+1:]
			}
			if argumentErrors[name] {
				continue
			}
		default:
			continue
		}

		id := common.Identifier(trimErrorSuffix(name))
		if target != nil {
			if ia, ok := l.o.reader.Attribute(target, host.AnnotationIdentifier); ok {
				id = ia.Value
			}
		}
		if !identifierPattern.MatchString(id) {
			l.warn("Ignoring declared error with an invalid identifier", "member", m.Name, "error", name)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)

		owner, ok := l.errorOwners[id]
		if !ok {
			owner, ok = l.cur.errOwners[id]
		}
		if ok {
			if owner != hostName {
				return nil, fatal(fmt.Errorf("%w: error %s is declared by both %s and %s", ErrConfigContradiction, id, owner, hostName))
			}
			continue
		}
		e := &feature.DefinedExecutionError{Identifier: id}
		if target != nil {
			e.DisplayName, e.Description = l.describe(target, id, doc)
		} else {
			e.DisplayName = common.Words(id)
			e.Description = e.DisplayName
		}
		l.cur.errs = append(l.cur.errs, e)
		l.cur.errOwners[id] = hostName
		origin := l.origin(feature.KindError, id)
		l.record(func(r *registry.Registry) error { return r.SetType(origin, registry.TypeOverride{Type: hostName}) })
	}
	return ids, nil
}

// argumentErrors are the runtime validation failures a member may name
// without declaring an execution error.
var argumentErrors = map[string]bool{
	"ValidationError": true,
}

func trimErrorSuffix(name string) string {
	for _, suffix := range []string{"Exception", "Error"} {
		if trimmed := strings.TrimSuffix(name, suffix); trimmed != "" && trimmed != name {
			return trimmed
		}
	}
	return name
}
