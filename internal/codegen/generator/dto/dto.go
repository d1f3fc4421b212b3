// Package dto raises a feature into the transfer objects its client and
// server exchange: request, response and intermediate envelopes per command,
// property responses and one object per data type.
package dto

import (
	"errors"

	cu "github.com/Alia5/featurec/internal/codeunit"
	"github.com/Alia5/featurec/internal/codegen/common"
	"github.com/Alia5/featurec/internal/codegen/feature"
	"github.com/Alia5/featurec/internal/codegen/generator/iface"
)

const (
	// CommandIdentifierField carries the fixed command identifier of a request.
	CommandIdentifierField = "CommandIdentifier"
	// InnerField holds the encapsulated structure of an envelope.
	InnerField = "Inner"
	// ValueField is the single field of a wrapper object.
	ValueField = "Value"
)

// slot is one field of a transfer object.
type slot struct {
	field string
	label string
	dt    feature.DataType
	pos   string
}

func Emit(src *common.Source, u *cu.Unit) error {
	e := &emitter{src: src, u: u, envelopes: Envelopes(src)}
	for _, it := range src.Def.Items {
		switch v := it.(type) {
		case *feature.Command:
			e.command(v)
		case *feature.Property:
			if _, ok := v.DataType.(*feature.Constrained); ok {
				e.wrapper(common.PropertyDto(v.Identifier), slot{field: ValueField, label: v.Identifier, dt: v.DataType, pos: v.Identifier}, true)
			}
		case *feature.DataTypeDefinition:
			e.dataType(v)
		}
	}
	for _, a := range src.AnonymousStructures() {
		e.structure(common.AnonymousDto(a.Name), common.AnonymousType(a.Name), "", a.Name, a.Structure)
	}
	common.ResolveImports(u)
	return errors.Join(e.errs...)
}

type emitter struct {
	src       *common.Source
	u         *cu.Unit
	envelopes map[string]string
	errs      []error
}

func (e *emitter) add(decls ...cu.Decl) {
	if err := common.Add(e.u, decls...); err != nil {
		e.errs = append(e.errs, err)
	}
}

// Envelopes maps the name of every request or response envelope that
// encapsulates a structure to that structure's data type. A structure is
// encapsulated when it is the sole parameter or sole response of exactly
// one command.
func Envelopes(src *common.Source) map[string]string {
	uses := map[string][]string{}
	sole := func(envelope string, els []*feature.Element) {
		if len(els) != 1 {
			return
		}
		if r, ok := els[0].DataType.(*feature.Reference); ok && src.Structure(r.Identifier) != nil {
			uses[r.Identifier] = append(uses[r.Identifier], envelope)
		}
	}
	for _, c := range src.Def.Commands() {
		sole(common.RequestDto(c.Identifier), c.Parameters)
		sole(common.ResponseDto(c.Identifier), c.Responses)
	}
	out := map[string]string{}
	for id, envs := range uses {
		if len(envs) == 1 {
			out[envs[0]] = id
		}
	}
	return out
}

func (e *emitter) slots(command string, els []*feature.Element) []slot {
	out := make([]slot, len(els))
	for i, el := range els {
		out[i] = slot{field: common.UpperFirst(el.Identifier), label: el.Identifier, dt: el.DataType, pos: command + el.Identifier}
	}
	return out
}

func (e *emitter) command(c *feature.Command) {
	req := e.envelope(common.RequestDto(c.Identifier), e.slots(c.Identifier, c.Parameters), true)
	req.Doc = "Parameters of " + c.DisplayName + "."
	req.Fields = append(req.Fields, &cu.Field{
		Name:     CommandIdentifierField,
		Type:     cu.Named("string"),
		ReadOnly: true,
		Wire:     "-",
		Init:     cu.Id(common.CommandConst(c.Identifier)),
	})
	e.add(req)
	if len(c.Responses) > 0 {
		e.add(e.envelope(common.ResponseDto(c.Identifier), e.slots(c.Identifier, c.Responses), false))
	}
	if len(c.IntermediateResponses) > 0 {
		e.add(e.envelope(common.IntermediateDto(c.Identifier), e.slots(c.Identifier, c.IntermediateResponses), false))
	}
}

// envelope builds a request or response object. An encapsulated structure
// is kept whole as Inner and its fields are forwarded.
func (e *emitter) envelope(name string, slots []slot, validate bool) *cu.TypeDecl {
	t := &cu.TypeDecl{Name: name, Kind: cu.Struct}
	id, encapsulated := e.envelopes[name]
	if !encapsulated {
		for _, s := range slots {
			t.Fields = append(t.Fields, &cu.Field{Name: s.field, Type: e.src.DtoType(s.dt, s.pos), Wire: s.label})
		}
		if validate {
			t.Methods = append(t.Methods, validator(slots))
		}
		return t
	}

	inner := slots[0]
	t.Fields = []*cu.Field{{Name: InnerField, Type: e.src.DtoType(inner.dt, inner.pos), Wire: inner.label}}
	for _, el := range e.src.Structure(id).Elements {
		field := common.UpperFirst(el.Identifier)
		target := cu.Dot(cu.Self(InnerField), field)
		t.Properties = append(t.Properties, &cu.Property{
			Name:   field,
			Type:   e.src.DtoType(el.DataType, id+el.Identifier),
			Getter: []cu.Stmt{cu.Ret(target)},
			Setter: []cu.Stmt{cu.Set(target, cu.Id("value"))},
		})
	}
	if validate {
		t.Methods = append(t.Methods, validator([]slot{{field: InnerField, label: inner.label, dt: inner.dt}}))
	}
	return t
}

func validator(slots []slot) *cu.Method {
	return &cu.Method{
		Name:    common.ValidateMethod,
		Doc:     "Validate lists every constraint violation. An empty list means valid.",
		Results: []cu.Param{{Type: cu.ListOf(cu.Named("string"))}},
		Body:    validateBody(slots),
	}
}

// wrapper is a transparent single-field object.
func (e *emitter) wrapper(name string, s slot, validate bool) *cu.TypeDecl {
	t := &cu.TypeDecl{Name: name, Kind: cu.Struct, Fields: []*cu.Field{{Name: s.field, Type: e.src.DtoType(s.dt, s.pos), Wire: s.label}}}
	if validate {
		t.Methods = append(t.Methods, validator([]slot{s}))
	}
	e.add(t)
	return t
}

func (e *emitter) dataType(d *feature.DataTypeDefinition) {
	name := common.TypeDto(d.Identifier)
	hostName := e.src.TypeName(d.Identifier)
	if st, ok := d.DataType.(*feature.Structure); ok {
		e.structure(name, hostName, d.Identifier, d.Identifier, st)
		return
	}

	s := slot{field: ValueField, label: d.Identifier, dt: d.DataType, pos: d.Identifier}
	t := e.wrapper(name, s, true)
	v := cu.Id("v")
	toDto, fromDto := cu.Expr(v), cu.Expr(cu.Self(ValueField))
	if c, ok := d.DataType.(*feature.Constrained); ok && len(c.Constraints.Set) > 0 {
		toDto = &cu.Cast{Type: cu.Named("string"), X: v}
		fromDto = &cu.Cast{Type: cu.Named(hostName), X: fromDto}
	} else {
		override := e.src.Override(e.src.Origin(feature.KindDataType, d.Identifier))
		toDto = e.src.ToDto(d.DataType, override, d.Identifier, v)
		fromDto = e.src.FromDto(d.DataType, override, d.Identifier, fromDto)
	}
	e.add(&cu.Method{
		Name:    common.DtoConstructor(name),
		Static:  true,
		Params:  []cu.Param{{Name: "v", Type: cu.Named(hostName)}},
		Results: []cu.Param{{Type: cu.PointerTo(cu.Named(name))}},
		Body:    []cu.Stmt{cu.Ret(&cu.Unary{Op: "&", X: &cu.New{Type: cu.Named(name), Fields: []cu.FieldValue{{Name: ValueField, Value: toDto}}}})},
	})
	t.Methods = append(t.Methods, &cu.Method{
		Name:    common.ExtractMethod,
		Results: []cu.Param{{Type: cu.Named(hostName)}},
		Body:    []cu.Stmt{cu.Ret(fromDto)},
	})
}

// structure emits a multi-field object with conversions from and to the
// host value type hostName. dataType is empty for inline structures.
func (e *emitter) structure(name, hostName, dataType, pos string, st *feature.Structure) {
	t := &cu.TypeDecl{Name: name, Kind: cu.Struct}
	slots := make([]slot, len(st.Elements))
	hostFields := make([]*cu.Field, len(st.Elements))
	v := cu.Id("v")
	var toDto []cu.FieldValue
	var fromDto []cu.Expr
	for i, el := range st.Elements {
		s := slot{field: common.UpperFirst(el.Identifier), label: el.Identifier, dt: el.DataType, pos: pos + el.Identifier}
		slots[i] = s
		t.Fields = append(t.Fields, &cu.Field{Name: s.field, Type: e.src.DtoType(el.DataType, s.pos), Wire: el.Identifier})

		hostField, override := s.field, ""
		if dataType != "" {
			hostField = e.src.FieldName(dataType, el.Identifier)
			override = e.src.Override(e.src.Origin(feature.KindDataType, dataType, "Field", el.Identifier))
		}
		hostFields[i] = &cu.Field{Name: hostField, Type: e.src.HostType(el.DataType, override, s.pos)}
		toDto = append(toDto, cu.FieldValue{Name: s.field, Value: e.src.ToDto(el.DataType, override, s.pos, cu.Dot(v, hostField))})
		fromDto = append(fromDto, e.src.FromDto(el.DataType, override, s.pos, cu.Self(s.field)))
	}
	t.Methods = append(t.Methods,
		validator(slots),
		&cu.Method{
			Name:    common.ExtractMethod,
			Results: []cu.Param{{Type: cu.Named(hostName)}},
			Body:    []cu.Stmt{cu.Ret(cu.CallOf(cu.Id(iface.Constructor(e.src, dataType, hostName, hostFields).Name), fromDto...))},
		})
	e.add(t, &cu.Method{
		Name:    common.DtoConstructor(name),
		Static:  true,
		Params:  []cu.Param{{Name: "v", Type: cu.Named(hostName)}},
		Results: []cu.Param{{Type: cu.PointerTo(cu.Named(name))}},
		Body:    []cu.Stmt{cu.Ret(&cu.Unary{Op: "&", X: &cu.New{Type: cu.Named(name), Fields: toDto}})},
	})
}

// FieldOf is the envelope field that carries el.
func FieldOf(envelopes map[string]string, envelope string, el *feature.Element) string {
	if _, ok := envelopes[envelope]; ok {
		return InnerField
	}
	return common.UpperFirst(el.Identifier)
}
