// Package server raises a feature into server dispatch code: a type that
// decodes transfer objects, invokes an implementation of the feature
// interface and reports faults keyed by fully qualified identifiers.
package server

import (
	"errors"

	cu "github.com/Alia5/featurec/internal/codeunit"
	"github.com/Alia5/featurec/internal/codegen/common"
	"github.com/Alia5/featurec/internal/codegen/feature"
	"github.com/Alia5/featurec/internal/codegen/generator/dto"
	"github.com/Alia5/featurec/internal/codegen/generator/iface"
	"github.com/Alia5/featurec/internal/host"
	"github.com/Alia5/featurec/internal/registry"
)

const (
	ImplField = "impl"
	// RegisterMethod reports every item to an apiserver.Registrar.
	RegisterMethod = "Register"
	// CommandHandlerMethod looks up the handler of a command identifier.
	CommandHandlerMethod = "CommandHandler"
	// PropertyHandlerMethod looks up the handler of a property identifier.
	PropertyHandlerMethod = "PropertyHandler"
)

var (
	contextType = cu.Named("context.Context")
	emitterType = cu.Named("apiserver.Emitter")
	errorType   = cu.Named("error")
	stringType  = cu.Named("string")
)

func ExecuteMethod(command string) string { return "Execute" + command }

func ReadMethod(property string) string { return "Read" + property }

func Emit(src *common.Source, u *cu.Unit) error {
	e := &emitter{src: src, u: u, envelopes: dto.Envelopes(src), name: common.ServerName(src.InterfaceName())}
	e.server()
	common.ResolveImports(u)
	return errors.Join(e.errs...)
}

type emitter struct {
	src       *common.Source
	u         *cu.Unit
	envelopes map[string]string
	name      string
	errs      []error
	t         *cu.TypeDecl
}

func (e *emitter) add(decls ...cu.Decl) {
	if err := common.Add(e.u, decls...); err != nil {
		e.errs = append(e.errs, err)
	}
}

func (e *emitter) server() {
	ifaceName := e.src.InterfaceName()
	e.t = &cu.TypeDecl{
		Name:   e.name,
		Kind:   cu.Struct,
		Doc:    e.name + " dispatches " + e.src.Def.DisplayName + " requests to an implementation.",
		Fields: []*cu.Field{{Name: ImplField, Type: cu.Named(ifaceName)}},
	}
	for _, c := range e.src.Def.Commands() {
		e.t.Methods = append(e.t.Methods, e.command(c))
	}
	for _, p := range e.src.Def.Properties() {
		e.t.Methods = append(e.t.Methods, e.read(p))
	}
	e.t.Methods = append(e.t.Methods, e.commandHandler(), e.propertyHandler(), e.register())
	e.add(e.t, &cu.Method{
		Name:    "New" + e.name,
		Static:  true,
		Params:  []cu.Param{{Name: ImplField, Type: cu.Named(ifaceName)}},
		Results: []cu.Param{{Type: cu.PointerTo(cu.Named(e.name))}},
		Body:    []cu.Stmt{cu.Ret(&cu.Unary{Op: "&", X: &cu.New{Type: cu.Named(e.name), Fields: []cu.FieldValue{{Name: ImplField, Value: cu.Id(ImplField)}}}})},
	})
}

func impl() cu.Expr { return cu.Self(ImplField) }

// command emits the dispatch method of c.
func (e *emitter) command(c *feature.Command) *cu.Method {
	m := &cu.Method{
		Name: ExecuteMethod(c.Identifier),
		Doc:  ExecuteMethod(c.Identifier) + " validates a " + common.RequestDto(c.Identifier) + " and runs " + c.Identifier + ".",
		Params: []cu.Param{
			{Name: "ctx", Type: contextType},
			{Name: "request", Type: cu.PointerTo(cu.Named(common.RequestDto(c.Identifier)))},
			{Name: "emit", Type: emitterType},
		},
	}
	if len(c.Responses) > 0 {
		m.Results = []cu.Param{{Type: cu.Named(common.ResponseDto(c.Identifier))}}
	}

	problems := cu.Id("problems")
	m.Body = []cu.Stmt{
		cu.Define("problems", cu.CallOf(cu.Dot(cu.Id("request"), common.ValidateMethod))),
		&cu.If{
			Cond: &cu.Binary{Op: ">", X: cu.CallOf(cu.Id("len"), problems), Y: cu.Int(0)},
			Then: []cu.Stmt{&cu.Throw{Value: cu.CallOf(cu.Q("apiserver", "ValidationFault"), cu.Id(common.CommandConst(c.Identifier)), problems)}},
		},
		&cu.Try{Body: e.invoke(c), Catches: e.catches(c)},
	}
	return m
}

// args converts the request fields into the host arguments of c.
func (e *emitter) args(c *feature.Command) []cu.Expr {
	reqName := common.RequestDto(c.Identifier)
	var out []cu.Expr
	for _, p := range c.Parameters {
		x := cu.Dot(cu.Id("request"), dto.FieldOf(e.envelopes, reqName, p))
		out = append(out, e.src.FromDto(p.DataType, e.src.ParamOverride(c.Identifier, p.Identifier), c.Identifier+p.Identifier, x))
	}
	if e.src.Cancellable(c) {
		out = append(out, cu.Id("ctx"))
	}
	return out
}

// invoke calls the implementation member behind c and returns its
// responses. The host shape decides how the result is awaited.
func (e *emitter) invoke(c *feature.Command) []cu.Stmt {
	b, _ := e.src.Binding(feature.KindCommand, c.Identifier)
	args := e.args(c)
	switch b.Kind {
	case registry.BindingPropertySetter:
		target := cu.Dot(impl(), e.src.MemberName(feature.KindProperty, b.Property))
		return []cu.Stmt{cu.Set(target, args[0])}
	case registry.BindingPropertyAsMethod:
		return e.respond(c, b, cu.Dot(impl(), e.src.MemberName(feature.KindCommand, c.Identifier)))
	}

	ctx := cu.Id("ctx")
	call := cu.CallOf(cu.Dot(impl(), e.src.MemberName(feature.KindCommand, c.Identifier)), args...)
	handle := cu.Id("handle")
	forward := func(ch cu.Expr) cu.Stmt {
		el := c.IntermediateResponses[0]
		conv := &cu.Lambda{
			Params:  []cu.Param{{Name: "v", Type: iface.IntermediateType(e.src, c)}},
			Results: []cu.Param{{Type: cu.Named(common.IntermediateDto(c.Identifier))}},
			Body: []cu.Stmt{cu.Ret(&cu.New{
				Type: cu.Named(common.IntermediateDto(c.Identifier)),
				Fields: []cu.FieldValue{{
					Name:  common.UpperFirst(el.Identifier),
					Value: e.src.ToDto(el.DataType, e.src.IntermediateOverride(c.Identifier, el.Identifier), c.Identifier+el.Identifier, cu.Id("v")),
				}},
			})},
		}
		return cu.Do(cu.CallOf(cu.Q("apiserver", "Forward"), ctx, ch, cu.Id("emit"), conv))
	}

	switch e.src.Shape(c) {
	case host.ShapeVoid:
		return []cu.Stmt{cu.Do(call)}
	case host.ShapeSync:
		if len(c.Responses) == 0 {
			return []cu.Stmt{cu.Do(call)}
		}
		return e.respond(c, b, call)
	case host.ShapeObservable:
		return []cu.Stmt{cu.Define("handle", call), cu.Do(cu.CallOf(cu.Dot(handle, "Wait"), ctx))}
	case host.ShapeObservableResult:
		return append([]cu.Stmt{cu.Define("handle", call)}, e.respond(c, b, cu.CallOf(cu.Dot(handle, "Result"), ctx))...)
	case host.ShapeIntermediate:
		return []cu.Stmt{
			cu.Define("handle", call),
			forward(cu.CallOf(cu.Dot(handle, "Intermediates"))),
			cu.Do(cu.CallOf(cu.Dot(handle, "Wait"), ctx)),
		}
	case host.ShapeIntermediateResult:
		return append([]cu.Stmt{
			cu.Define("handle", call),
			forward(cu.CallOf(cu.Dot(handle, "Intermediates"))),
		}, e.respond(c, b, cu.CallOf(cu.Dot(handle, "Result"), ctx))...)
	case host.ShapeTask:
		if _, ok := iface.ResultType(e.src, c); ok {
			return e.respond(c, b, cu.CallOf(cu.Dot(call, "Await"), ctx))
		}
		return []cu.Stmt{cu.Do(cu.CallOf(cu.Dot(call, "Await"), ctx))}
	case host.ShapeStream:
		return []cu.Stmt{forward(call)}
	}
	return []cu.Stmt{cu.Do(call)}
}

// respond converts the host value produced by x into the response
// envelope of c, applying a recorded response mapping first.
func (e *emitter) respond(c *feature.Command, b registry.MemberBinding, x cu.Expr) []cu.Stmt {
	if len(c.Responses) == 0 {
		return []cu.Stmt{cu.Do(x)}
	}
	result := cu.Id("result")
	var stmts []cu.Stmt
	var values []cu.Expr
	resultType, _ := iface.ResultType(e.src, c)
	if b.ResponseExpr != "" {
		stmts = append(stmts,
			cu.Define("raw", x),
			cu.Define("result", &cu.Call{
				Fun:      cu.Q("apiserver", "MapResponse"),
				TypeArgs: []cu.TypeRef{resultType},
				Args:     []cu.Expr{cu.Str(b.ResponseExpr), cu.Id("raw")},
			}))
	} else {
		stmts = append(stmts, cu.Define("result", x))
	}

	multiple := len(c.Responses) > 1
	for k, r := range c.Responses {
		var v cu.Expr = result
		switch {
		case multiple && (b.ResponseExpr != "" || e.src.Shape(c) != host.ShapeSync):
			v = cu.Dot(result, iface.ResultField(e.src, c, r))
		case multiple:
			v = &cu.Index{X: result, Index: cu.Int(k)}
		}
		values = append(values, e.src.ToDto(r.DataType, e.src.ResponseOverride(c.Identifier, r.Identifier), c.Identifier+r.Identifier, v))
	}

	respName := common.ResponseDto(c.Identifier)
	var fields []cu.FieldValue
	if _, ok := e.envelopes[respName]; ok {
		fields = []cu.FieldValue{{Name: dto.InnerField, Value: values[0]}}
	} else {
		for k, r := range c.Responses {
			fields = append(fields, cu.FieldValue{Name: common.UpperFirst(r.Identifier), Value: values[k]})
		}
	}
	return append(stmts, cu.Ret(&cu.New{Type: cu.Named(respName), Fields: fields}))
}

// catches turns host failures into faults. Validation failures name the
// offending parameter, declared errors their identifier.
func (e *emitter) catches(c *feature.Command) []cu.Catch {
	v := cu.Id("e")
	validation := []cu.Stmt{}
	for _, p := range c.Parameters {
		validation = append(validation, &cu.If{
			Cond: &cu.Binary{Op: "==", X: cu.Dot(v, "Parameter"), Y: cu.Str(e.src.ParamName(c.Identifier, p.Identifier))},
			Then: []cu.Stmt{&cu.Throw{Value: cu.CallOf(cu.Q("apiserver", "ValidationFault"), cu.Str(e.src.Def.ParameterIdentifier(c.Identifier, p.Identifier)), cu.Dot(v, "Message"))}},
		})
	}
	validation = append(validation, &cu.Throw{Value: cu.CallOf(cu.Q("apiserver", "ValidationFault"), cu.Id(common.CommandConst(c.Identifier)), cu.Dot(v, "Message"))})

	out := []cu.Catch{{Type: cu.PointerTo(cu.Named("apitypes.ValidationError")), Name: "e", Body: validation}}
	for _, id := range c.DefinedExecutionErrors {
		t := common.TypeRefOf(e.src.ErrorType(id))
		if e.src.Override(e.src.Origin(feature.KindError, id)) == "" {
			t = cu.PointerTo(t)
		}
		out = append(out, cu.Catch{
			Type: t,
			Name: "e",
			Body: []cu.Stmt{&cu.Throw{Value: cu.CallOf(cu.Q("apiserver", "DefinedFault"), cu.Id(common.ErrorConst(id)), cu.CallOf(cu.Dot(v, "Error")))}},
		})
	}
	return append(out, cu.Catch{
		Type: errorType,
		Name: "e",
		Body: []cu.Stmt{&cu.Throw{Value: cu.CallOf(cu.Q("apiserver", "UndefinedFault"), v)}},
	})
}

// read emits the method that reads p from the implementation.
func (e *emitter) read(p *feature.Property) *cu.Method {
	b, _ := e.src.Binding(feature.KindProperty, p.Identifier)
	var x cu.Expr = cu.Dot(impl(), e.src.MemberName(feature.KindProperty, p.Identifier))
	if b.Kind == registry.BindingMethodProperty {
		x = cu.CallOf(x)
	}
	value := e.src.ToDto(p.DataType, e.src.PropertyOverride(p.Identifier), p.Identifier, x)
	typ := e.src.DtoType(p.DataType, p.Identifier)
	if _, ok := p.DataType.(*feature.Constrained); ok {
		typ = cu.Named(common.PropertyDto(p.Identifier))
		value = &cu.New{Type: typ, Fields: []cu.FieldValue{{Name: dto.ValueField, Value: value}}}
	}
	return &cu.Method{
		Name:    ReadMethod(p.Identifier),
		Params:  []cu.Param{{Name: "ctx", Type: contextType}},
		Results: []cu.Param{{Type: typ}},
		Body: []cu.Stmt{&cu.Try{
			Body:    []cu.Stmt{cu.Ret(value)},
			Catches: []cu.Catch{{Type: errorType, Name: "e", Body: []cu.Stmt{&cu.Throw{Value: cu.CallOf(cu.Q("apiserver", "UndefinedFault"), cu.Id("e"))}}}},
		}},
	}
}

func (e *emitter) handler(c *feature.Command) cu.Expr {
	adapter := "Command"
	if len(c.Responses) == 0 {
		adapter = "Void"
	}
	return cu.CallOf(cu.Q("apiserver", adapter), cu.Self(ExecuteMethod(c.Identifier)))
}

func propertyHandler(p *feature.Property) cu.Expr {
	return cu.CallOf(cu.Q("apiserver", "Property"), cu.Self(ReadMethod(p.Identifier)))
}

// commandHandler emits the identifier-indexed command lookup.
func (e *emitter) commandHandler() *cu.Method {
	id := cu.Id("identifier")
	var body []cu.Stmt
	for _, c := range e.src.Def.Commands() {
		body = append(body, &cu.If{
			Cond: &cu.Binary{Op: "==", X: id, Y: cu.Id(common.CommandConst(c.Identifier))},
			Then: []cu.Stmt{cu.Ret(e.handler(c))},
		})
	}
	return &cu.Method{
		Name:    CommandHandlerMethod,
		Doc:     CommandHandlerMethod + " returns the handler of a fully qualified command identifier, or nil.",
		Params:  []cu.Param{{Name: "identifier", Type: stringType}},
		Results: []cu.Param{{Type: cu.Named("apiserver.CommandHandler")}},
		Body:    append(body, cu.Ret(&cu.Nil{})),
	}
}

func (e *emitter) propertyHandler() *cu.Method {
	id := cu.Id("identifier")
	var body []cu.Stmt
	for _, p := range e.src.Def.Properties() {
		body = append(body, &cu.If{
			Cond: &cu.Binary{Op: "==", X: id, Y: cu.Id(common.PropertyConst(p.Identifier))},
			Then: []cu.Stmt{cu.Ret(propertyHandler(p))},
		})
	}
	return &cu.Method{
		Name:    PropertyHandlerMethod,
		Params:  []cu.Param{{Name: "identifier", Type: stringType}},
		Results: []cu.Param{{Type: cu.Named("apiserver.PropertyHandler")}},
		Body:    append(body, cu.Ret(&cu.Nil{})),
	}
}

// register reports every item with its handler. Commands also name their
// binary parameters.
func (e *emitter) register() *cu.Method {
	r := cu.Id("r")
	var body []cu.Stmt
	for _, it := range e.src.Def.Items {
		switch v := it.(type) {
		case *feature.Command:
			var binary cu.Expr = &cu.Nil{}
			if ids := e.src.Binary(v); len(ids) > 0 {
				items := make([]cu.Expr, len(ids))
				for i, id := range ids {
					items[i] = cu.Str(id)
				}
				binary = &cu.ListLit{Elem: stringType, Items: items}
			}
			body = append(body, cu.Do(cu.CallOf(cu.Dot(r, "RegisterCommand"),
				cu.Id(common.CommandConst(v.Identifier)), &cu.Lit{Value: v.Observable}, e.handler(v), binary)))
		case *feature.Property:
			body = append(body, cu.Do(cu.CallOf(cu.Dot(r, "RegisterProperty"),
				cu.Id(common.PropertyConst(v.Identifier)), &cu.Lit{Value: v.Observable}, propertyHandler(v))))
		case *feature.Metadata:
			body = append(body, cu.Do(cu.CallOf(cu.Dot(r, "RegisterMetadata"),
				cu.Id(common.MetadataConst(v.Identifier)), cu.Dot(impl(), e.src.MemberName(feature.KindMetadata, v.Identifier)))))
		}
	}
	return &cu.Method{
		Name:   RegisterMethod,
		Doc:    RegisterMethod + " reports every command, property and metadata item to r.",
		Params: []cu.Param{{Name: "r", Type: cu.Named("apiserver.Registrar")}},
		Body:   body,
	}
}
