package common

import (
	"errors"
	"fmt"
	"strings"

	cu "github.com/Alia5/featurec/internal/codeunit"
	"github.com/Alia5/featurec/internal/codegen/feature"
	"github.com/Alia5/featurec/internal/host"
	"github.com/Alia5/featurec/internal/registry"
)

// ErrEmissionInconsistency reports a feature that cannot be raised into
// consistent code units, such as two declarations with the same name.
var ErrEmissionInconsistency = errors.New("emission inconsistency")

// Source is what every emitter reads: a checked feature definition and
// the frozen registry lowering left behind.
type Source struct {
	Def *feature.Definition
	Reg registry.Reader
}

// NewSource checks def and reserves the DTO suffix for generated types.
func NewSource(def *feature.Definition, reg registry.Reader) (*Source, error) {
	if def == nil {
		return nil, fmt.Errorf("%w: no feature definition", ErrEmissionInconsistency)
	}
	if err := def.Check(); err != nil {
		return nil, err
	}
	for _, dt := range def.DataTypes() {
		if strings.HasSuffix(dt.Identifier, DtoSuffix) {
			return nil, fmt.Errorf("%w: data type %s uses the reserved %q suffix", ErrEmissionInconsistency, dt.Identifier, DtoSuffix)
		}
	}
	if reg == nil {
		reg = registry.New().Freeze()
	}
	return &Source{Def: def, Reg: reg}, nil
}

func (s *Source) Origin(kind feature.ItemKind, id string, parts ...string) string {
	return registry.Origin(s.Def.Identifier, kind, id, parts...)
}

func (s *Source) Binding(kind feature.ItemKind, id string) (registry.MemberBinding, bool) {
	return s.Reg.Binding(s.Origin(kind, id))
}

// Shape is the host shape of c: the recorded one, else the one its
// feature flags imply.
func (s *Source) Shape(c *feature.Command) host.Shape {
	if b, ok := s.Binding(feature.KindCommand, c.Identifier); ok && b.Kind == registry.BindingCommand {
		return b.Shape
	}
	return registry.StandardShape(c)
}

// Cancellable reports whether the host member behind c takes a
// cancellation carrier.
func (s *Source) Cancellable(c *feature.Command) bool {
	b, ok := s.Binding(feature.KindCommand, c.Identifier)
	return ok && b.Cancellation
}

// InterfaceName is the host name of the feature interface.
func (s *Source) InterfaceName() string {
	if n, ok := s.Reg.Rename(s.Def.Identifier); ok {
		return n
	}
	return s.Def.Identifier
}

// MemberName is the host member an item binds to.
func (s *Source) MemberName(kind feature.ItemKind, id string) string {
	if b, ok := s.Binding(kind, id); ok && b.Member != "" {
		return b.Member
	}
	if n, ok := s.Reg.Rename(s.Origin(kind, id)); ok {
		return n
	}
	return id
}

// TypeName is the host name of a data type definition.
func (s *Source) TypeName(id string) string {
	if n, ok := s.Reg.Rename(s.Origin(feature.KindDataType, id)); ok {
		return n
	}
	return id
}

// ElementName is the host name of the element recorded at origin, falling
// back to fallback applied to the identifier.
func (s *Source) ElementName(origin, id string, fallback func(string) string) string {
	if origin != "" {
		if n, ok := s.Reg.Rename(origin); ok {
			return n
		}
	}
	return fallback(id)
}

func (s *Source) ParamName(command, param string) string {
	return s.ElementName(registry.ParameterOrigin(s.Def.Identifier, command, param), param, LowerFirst)
}

func (s *Source) FieldName(dataType, field string) string {
	return s.ElementName(registry.FieldOrigin(s.Def.Identifier, dataType, field), field, UpperFirst)
}

// Override is the concrete host type recorded at origin, if any.
func (s *Source) Override(origin string) string {
	if origin == "" {
		return ""
	}
	o, _ := s.Reg.Type(origin)
	return o.Type
}

// ErrorType is the host type raised for a declared error.
func (s *Source) ErrorType(id string) string {
	if t := s.Override(s.Origin(feature.KindError, id)); t != "" {
		return t
	}
	return ErrorName(id)
}

// Anonymous is an inline structure that needs a named type of its own.
type Anonymous struct {
	// Name is the position name; the emitted type adds a suffix.
	Name      string
	Structure *feature.Structure
}

// AnonymousStructures lists every inline structure of the feature,
// outermost first.
func (s *Source) AnonymousStructures() []Anonymous {
	var out []Anonymous
	var visit func(pos string, dt feature.DataType)
	visit = func(pos string, dt feature.DataType) {
		switch t := feature.Unconstrained(dt).(type) {
		case *feature.List:
			visit(pos, t.Elem)
		case *feature.Structure:
			out = append(out, Anonymous{Name: pos, Structure: t})
			for _, el := range t.Elements {
				visit(pos+el.Identifier, el.DataType)
			}
		}
	}
	for _, it := range s.Def.Items {
		switch v := it.(type) {
		case *feature.Command:
			for _, group := range [][]*feature.Element{v.Parameters, v.Responses, v.IntermediateResponses} {
				for _, el := range group {
					visit(v.Identifier+el.Identifier, el.DataType)
				}
			}
		case *feature.Property:
			visit(v.Identifier, v.DataType)
		case *feature.Metadata:
			visit(v.Identifier, v.DataType)
		case *feature.DataTypeDefinition:
			if st, ok := v.DataType.(*feature.Structure); ok {
				for _, el := range st.Elements {
					visit(v.Identifier+el.Identifier, el.DataType)
				}
				continue
			}
			visit(v.Identifier, v.DataType)
		}
	}
	return out
}

// Structure returns the structure a data type definition flattens to, or nil.
func (s *Source) Structure(id string) *feature.Structure {
	d := s.Def.DataType(id)
	if d == nil {
		return nil
	}
	st, _ := d.DataType.(*feature.Structure)
	return st
}

// Binary lists the fully qualified identifiers of the binary parameters of c.
func (s *Source) Binary(c *feature.Command) []string {
	var out []string
	for _, p := range c.Parameters {
		if s.carriesBinary(p.DataType, map[string]bool{}) {
			out = append(out, s.Def.ParameterIdentifier(c.Identifier, p.Identifier))
		}
	}
	return out
}

// carriesBinary follows references and list elements down to a binary basic type.
func (s *Source) carriesBinary(dt feature.DataType, seen map[string]bool) bool {
	switch t := feature.Unconstrained(dt).(type) {
	case *feature.Basic:
		return t.Kind == feature.Binary
	case *feature.List:
		return s.carriesBinary(t.Elem, seen)
	case *feature.Reference:
		if seen[t.Identifier] {
			return false
		}
		seen[t.Identifier] = true
		d := s.Def.DataType(t.Identifier)
		return d != nil && s.carriesBinary(d.DataType, seen)
	}
	return false
}

// Add adds decls to u. A name clash is an emission inconsistency.
func Add(u *cu.Unit, decls ...cu.Decl) error {
	for _, d := range decls {
		if err := u.Add(d); err != nil {
			return fmt.Errorf("%w: %w", ErrEmissionInconsistency, err)
		}
	}
	return nil
}

func (s *Source) ParamOverride(command, param string) string {
	return s.Override(registry.ParameterOrigin(s.Def.Identifier, command, param))
}

func (s *Source) ResponseOverride(command, response string) string {
	return s.Override(registry.ResponseOrigin(s.Def.Identifier, command, response))
}

func (s *Source) IntermediateOverride(command, response string) string {
	return s.Override(registry.IntermediateOrigin(s.Def.Identifier, command, response))
}

func (s *Source) PropertyOverride(property string) string {
	return s.Override(s.Origin(feature.KindProperty, property))
}

// SetterOf returns the synthesized command that writes property, or nil.
func (s *Source) SetterOf(property string) *feature.Command {
	for _, c := range s.Def.Commands() {
		if b, ok := s.Binding(feature.KindCommand, c.Identifier); ok && b.Kind == registry.BindingPropertySetter && b.Property == property {
			return c
		}
	}
	return nil
}

// IsSetter reports whether c writes a property.
func (s *Source) IsSetter(c *feature.Command) bool {
	b, ok := s.Binding(feature.KindCommand, c.Identifier)
	return ok && b.Kind == registry.BindingPropertySetter
}
