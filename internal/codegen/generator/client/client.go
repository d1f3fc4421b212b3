// Package client raises a feature into a client proxy: a type that
// implements the feature interface by sending transfer objects through an
// apiclient.Transport.
package client

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
	TransportField = "transport"
	CloseMethod    = "Close"
	// RunMethod starts the call behind a command handle.
	RunMethod = "Run"
)

var (
	transportType = cu.Named("apiclient.Transport")
	contextType   = cu.Named("context.Context")
	errorType     = cu.Named("error")
	emptyType     = cu.Named("struct{}")
)

func Emit(src *common.Source, u *cu.Unit) error {
	e := &emitter{src: src, u: u, envelopes: dto.Envelopes(src), name: common.ClientName(src.InterfaceName())}
	e.client()
	for _, md := range src.Def.Metadata() {
		e.metadata(md)
	}
	common.ResolveImports(u)
	return errors.Join(e.errs...)
}

type emitter struct {
	src       *common.Source
	u         *cu.Unit
	envelopes map[string]string
	name      string
	errs      []error

	t      *cu.TypeDecl
	ctor   []cu.Stmt
	closes []string
}

func (e *emitter) add(decls ...cu.Decl) {
	if err := common.Add(e.u, decls...); err != nil {
		e.errs = append(e.errs, err)
	}
}

func (e *emitter) client() {
	e.t = &cu.TypeDecl{
		Name:       e.name,
		Kind:       cu.Struct,
		Doc:        e.name + " calls " + e.src.Def.DisplayName + " on a remote server.",
		Implements: []cu.TypeRef{cu.Named(e.src.InterfaceName())},
		Fields:     []*cu.Field{{Name: TransportField, Type: transportType}},
	}
	self := cu.Id("c")
	e.ctor = []cu.Stmt{cu.Define("c", &cu.Unary{Op: "&", X: &cu.New{Type: cu.Named(e.name), Fields: []cu.FieldValue{{Name: TransportField, Value: cu.Id(TransportField)}}}})}

	for _, it := range e.src.Def.Items {
		switch v := it.(type) {
		case *feature.Command:
			if e.src.IsSetter(v) {
				continue
			}
			m := iface.Signature(e.src, v)
			m.Body = e.commandBody(v, nil)
			e.t.Methods = append(e.t.Methods, m)
		case *feature.Property:
			e.property(v, self)
		case *feature.Metadata:
			// Interceptors run on the serving side only.
			name := e.src.MemberName(feature.KindMetadata, v.Identifier)
			e.t.Properties = append(e.t.Properties, &cu.Property{
				Name:   name,
				Type:   cu.Named("apitypes.Interceptor"),
				Doc:    name + " is always nil on a client. The server applies " + v.Identifier + " through its own implementation.",
				Getter: []cu.Stmt{cu.Ret(&cu.Nil{})},
			})
		}
	}

	closeBody := []cu.Stmt{}
	for _, cell := range e.closes {
		closeBody = append(closeBody, cu.Do(cu.CallOf(cu.Dot(cu.Self(cell), CloseMethod))))
	}
	e.t.Methods = append(e.t.Methods, &cu.Method{
		Name: CloseMethod,
		Doc:  "Close releases every property subscription. It is safe to call more than once.",
		Body: closeBody,
	})

	e.add(e.t, &cu.Method{
		Name:    "New" + e.name,
		Static:  true,
		Params:  []cu.Param{{Name: TransportField, Type: transportType}},
		Results: []cu.Param{{Type: cu.PointerTo(cu.Named(e.name))}},
		Body:    append(e.ctor, cu.Ret(self)),
	})
}

// ctx is the context a command call runs under: the cancellation carrier
// when the host member takes one.
func (e *emitter) ctx(c *feature.Command) cu.Expr {
	if e.src.Cancellable(c) {
		return cu.Id(iface.CancellationParam)
	}
	return background()
}

func background() cu.Expr { return cu.CallOf(cu.Q("context", "Background")) }

// commandBody builds, validates and sends the request of c. args maps
// parameter identifiers to host values and defaults to the method
// parameters.
func (e *emitter) commandBody(c *feature.Command, args map[string]cu.Expr) []cu.Stmt {
	reqName := common.RequestDto(c.Identifier)
	var fields []cu.FieldValue
	for _, p := range c.Parameters {
		x, ok := args[p.Identifier]
		if !ok {
			x = cu.Id(e.src.ParamName(c.Identifier, p.Identifier))
		}
		fields = append(fields, cu.FieldValue{
			Name:  dto.FieldOf(e.envelopes, reqName, p),
			Value: e.src.ToDto(p.DataType, e.src.ParamOverride(c.Identifier, p.Identifier), c.Identifier+p.Identifier, x),
		})
	}
	req, problems := cu.Id("req"), cu.Id("problems")
	body := []cu.Stmt{
		cu.Define("req", &cu.Unary{Op: "&", X: &cu.New{Type: cu.Named(reqName), Fields: fields}}),
		cu.Define("problems", cu.CallOf(cu.Dot(req, common.ValidateMethod))),
		&cu.If{
			Cond: &cu.Binary{Op: ">", X: cu.CallOf(cu.Id("len"), problems), Y: cu.Int(0)},
			Then: []cu.Stmt{&cu.Throw{Value: cu.CallOf(cu.Q("apitypes", "NewValidationError"), cu.Id(common.CommandConst(c.Identifier)), problems)}},
		},
	}

	conv := e.errorConverter(c)
	shape := e.src.Shape(c)
	if shape != registry.StandardShape(c) {
		return append(body, e.nonstandard(c, shape, req, conv)...)
	}
	ctx := e.ctx(c)
	switch shape {
	case host.ShapeVoid, host.ShapeSync:
		var call []cu.Stmt
		if len(c.Responses) == 0 {
			call = []cu.Stmt{cu.Do(cu.CallOf(cu.Q("apiclient", "Call"), ctx, cu.Self(TransportField), cu.Id(common.CommandConst(c.Identifier)), req))}
		} else {
			resp := cu.Id("resp")
			call = []cu.Stmt{
				cu.Define("resp", &cu.Call{
					Fun:      cu.Q("apiclient", "Execute"),
					TypeArgs: []cu.TypeRef{cu.Named(common.ResponseDto(c.Identifier))},
					Args:     []cu.Expr{ctx, cu.Self(TransportField), cu.Id(common.CommandConst(c.Identifier)), req},
				}),
				cu.Ret(e.responses(c, resp)...),
			}
		}
		return append(body, &cu.Try{
			Body:    call,
			Catches: []cu.Catch{{Type: errorType, Name: "err", Body: []cu.Stmt{&cu.Throw{Value: cu.CallOf(conv(&cu.This{}), cu.Id("err"))}}}},
		})
	}
	return append(body, cu.Ret(e.observableCall(c, ctx, cu.Self(TransportField), req, conv(&cu.This{}))))
}

// responses converts the response envelope x into host values.
func (e *emitter) responses(c *feature.Command, x cu.Expr) []cu.Expr {
	var out []cu.Expr
	for _, r := range c.Responses {
		field := dto.FieldOf(e.envelopes, common.ResponseDto(c.Identifier), r)
		out = append(out, e.src.FromDto(r.DataType, e.src.ResponseOverride(c.Identifier, r.Identifier), c.Identifier+r.Identifier, cu.Dot(x, field)))
	}
	return out
}

// errorConverter returns the converter a failure of c passes through,
// given the receiver that owns it. Commands with declared errors get a
// method of their own.
func (e *emitter) errorConverter(c *feature.Command) func(owner cu.Expr) cu.Expr {
	if len(c.DefinedExecutionErrors) == 0 {
		return func(cu.Expr) cu.Expr { return cu.Q("apiclient", "ConvertError") }
	}
	name := common.LowerFirst(c.Identifier) + "Error"
	if e.t.Method(name) == nil {
		converted := cu.Id("converted")
		body := []cu.Stmt{cu.Define("converted", cu.CallOf(cu.Q("apiclient", "ConvertError"), cu.Id("err")))}
		for _, id := range c.DefinedExecutionErrors {
			body = append(body, &cu.If{
				Cond: cu.CallOf(cu.Q("apiclient", "IsDefined"), converted, cu.Id(common.ErrorConst(id))),
				Then: []cu.Stmt{cu.Ret(&cu.Unary{Op: "&", X: &cu.New{
					Type:   cu.Named(common.ErrorName(id)),
					Fields: []cu.FieldValue{{Name: "Message", Value: cu.CallOf(cu.Q("apiclient", "Message"), converted)}},
				}})},
			})
		}
		e.t.Methods = append(e.t.Methods, &cu.Method{
			Name:    name,
			Doc:     name + " maps the declared errors of " + c.Identifier + " to their types.",
			Params:  []cu.Param{{Name: "err", Type: errorType}},
			Results: []cu.Param{{Type: errorType}},
			Body:    append(body, cu.Ret(converted)),
		})
	}
	return func(owner cu.Expr) cu.Expr { return cu.Dot(owner, name) }
}

// observableCall starts c with converters for its intermediate and final
// responses.
func (e *emitter) observableCall(c *feature.Command, ctx, transport, req, conv cu.Expr) cu.Expr {
	idto, i, rdto, r := emptyType, emptyType, emptyType, emptyType
	var iconv, rconv cu.Expr = &cu.Nil{}, &cu.Nil{}
	v := cu.Id("v")
	if len(c.IntermediateResponses) > 0 {
		el := c.IntermediateResponses[0]
		idto, i = cu.Named(common.IntermediateDto(c.Identifier)), iface.IntermediateType(e.src, c)
		iconv = &cu.Lambda{
			Params:  []cu.Param{{Name: "v", Type: idto}},
			Results: []cu.Param{{Type: i}},
			Body: []cu.Stmt{cu.Ret(e.src.FromDto(el.DataType, e.src.IntermediateOverride(c.Identifier, el.Identifier), c.Identifier+el.Identifier,
				cu.Dot(v, common.UpperFirst(el.Identifier))))},
		}
	}
	if result, ok := iface.ResultType(e.src, c); ok {
		rdto, r = cu.Named(common.ResponseDto(c.Identifier)), result
		values := e.responses(c, v)
		var value cu.Expr = values[0]
		if len(values) > 1 {
			fields := make([]cu.FieldValue, len(values))
			for k, resp := range c.Responses {
				fields[k] = cu.FieldValue{Name: iface.ResultField(e.src, c, resp), Value: values[k]}
			}
			value = &cu.New{Type: result, Fields: fields}
		}
		rconv = &cu.Lambda{Params: []cu.Param{{Name: "v", Type: rdto}}, Results: []cu.Param{{Type: r}}, Body: []cu.Stmt{cu.Ret(value)}}
	}
	return &cu.Call{
		Fun:      cu.Q("apiclient", "ExecuteObservable"),
		TypeArgs: []cu.TypeRef{idto, rdto, i, r},
		Args:     []cu.Expr{ctx, transport, cu.Id(common.CommandConst(c.Identifier)), req, iconv, rconv, conv},
	}
}

// handleTypes are the intermediate and result types of the execution
// behind c.
func (e *emitter) handleTypes(c *feature.Command) (i, r cu.TypeRef) {
	i, r = emptyType, emptyType
	if len(c.IntermediateResponses) > 0 {
		i = iface.IntermediateType(e.src, c)
	}
	if result, ok := iface.ResultType(e.src, c); ok {
		r = result
	}
	return i, r
}

// nonstandard runs c through a local command handle whose Run replays the
// call, then adapts the running execution to the host shape.
func (e *emitter) nonstandard(c *feature.Command, shape host.Shape, req cu.Expr, conv func(cu.Expr) cu.Expr) []cu.Stmt {
	handle := common.LowerFirst(c.Identifier) + "Command"
	i, r := e.handleTypes(c)
	ctx := cu.Id(iface.CancellationParam)
	if e.t.NestedType(handle) == nil {
		e.t.Nested = append(e.t.Nested, &cu.TypeDecl{
			Name: handle,
			Kind: cu.Struct,
			Doc:  handle + " replays " + c.Identifier + " on a background execution.",
			Fields: []*cu.Field{
				{Name: "client", Type: cu.PointerTo(cu.Named(e.name))},
				{Name: "request", Type: cu.PointerTo(cu.Named(common.RequestDto(c.Identifier)))},
			},
			Methods: []*cu.Method{{
				Name:    RunMethod,
				Params:  []cu.Param{{Name: iface.CancellationParam, Type: contextType}},
				Results: []cu.Param{{Type: cu.PointerTo(cu.Named("apitypes.Execution", i, r))}},
				Body: []cu.Stmt{cu.Ret(e.observableCall(c, ctx, cu.Dot(cu.Self("client"), TransportField), cu.Self("request"),
					conv(cu.Self("client"))))},
			}},
		})
	}

	cmd := cu.Id("cmd")
	callCtx := e.ctx(c)
	run := cu.CallOf(cu.Dot(cmd, RunMethod), callCtx)
	body := []cu.Stmt{cu.Define("cmd", &cu.Unary{Op: "&", X: &cu.New{
		Type:   cu.Named(handle),
		Fields: []cu.FieldValue{{Name: "client", Value: &cu.This{}}, {Name: "request", Value: req}},
	}})}
	switch shape {
	case host.ShapeVoid:
		return append(body, cu.Do(cu.CallOf(cu.Dot(run, "Wait"), callCtx)))
	case host.ShapeSync:
		if len(c.Responses) == 0 {
			return append(body, cu.Do(cu.CallOf(cu.Dot(run, "Wait"), callCtx)))
		}
		result := cu.Id("result")
		body = append(body, cu.Define("result", cu.CallOf(cu.Dot(run, "Result"), callCtx)))
		if len(c.Responses) == 1 {
			return append(body, cu.Ret(result))
		}
		var values []cu.Expr
		for _, resp := range c.Responses {
			values = append(values, cu.Dot(result, iface.ResultField(e.src, c, resp)))
		}
		return append(body, cu.Ret(values...))
	case host.ShapeTask:
		if _, ok := iface.ResultType(e.src, c); ok {
			return append(body, cu.Ret(run))
		}
		return append(body, cu.Ret(cu.CallOf(cu.Q("apitypes", "Go"), callCtx, &cu.Lambda{
			Params:  []cu.Param{{Name: iface.CancellationParam, Type: contextType}},
			Results: []cu.Param{{Type: errorType}},
			Body:    []cu.Stmt{cu.Ret(cu.CallOf(cu.Dot(cu.CallOf(cu.Dot(cmd, RunMethod), ctx), "Wait"), ctx))},
		})))
	case host.ShapeStream:
		return append(body, cu.Ret(&cu.Cast{Type: cu.Named("apitypes.Stream", i), X: cu.CallOf(cu.Dot(run, "Intermediates"))}))
	}
	return append(body, cu.Ret(run))
}

// property emits the accessor of p with one of three strategies: an
// observable property subscribes once, a lazy one fetches once, any other
// fetches on every access.
func (e *emitter) property(p *feature.Property, self cu.Expr) {
	name := e.src.MemberName(feature.KindProperty, p.Identifier)
	typ := iface.PropertyType(e.src, p)
	b, _ := e.src.Binding(feature.KindProperty, p.Identifier)

	wire := e.src.DtoType(p.DataType, p.Identifier)
	v := cu.Id("v")
	var raw cu.Expr = v
	if _, ok := p.DataType.(*feature.Constrained); ok {
		wire = cu.Named(common.PropertyDto(p.Identifier))
		raw = cu.Dot(v, dto.ValueField)
	}
	decoded := e.src.FromDto(p.DataType, e.src.PropertyOverride(p.Identifier), p.Identifier, raw)

	read := "read" + common.UpperFirst(name)
	e.t.Methods = append(e.t.Methods, &cu.Method{
		Name:    read,
		Params:  []cu.Param{{Name: "ctx", Type: contextType}},
		Results: []cu.Param{{Type: typ}},
		Body: []cu.Stmt{
			cu.Define("v", &cu.Call{
				Fun:      cu.Q("apiclient", "Read"),
				TypeArgs: []cu.TypeRef{wire},
				Args:     []cu.Expr{cu.Id("ctx"), cu.Self(TransportField), cu.Id(common.PropertyConst(p.Identifier))},
			}),
			cu.Ret(decoded),
		},
	})

	cell := common.LowerFirst(name) + "Cell"
	var getter []cu.Stmt
	switch {
	case p.Observable:
		e.t.Fields = append(e.t.Fields, &cu.Field{Name: cell, Type: cu.PointerTo(cu.Named("apiclient.ObservableProperty", wire, typ))})
		e.ctor = append(e.ctor, cu.Set(cu.Dot(self, cell), cu.CallOf(cu.Q("apiclient", "NewObservableProperty"),
			cu.Id(TransportField),
			cu.Id(common.PropertyConst(p.Identifier)),
			&cu.Lambda{Params: []cu.Param{{Name: "v", Type: wire}}, Results: []cu.Param{{Type: typ}}, Body: []cu.Stmt{cu.Ret(decoded)}},
		)))
		e.closes = append(e.closes, cell)
		getter = []cu.Stmt{cu.Ret(cu.CallOf(cu.Dot(cu.Self(cell), "Get"), background()))}
	case b.Lazy:
		e.t.Fields = append(e.t.Fields, &cu.Field{Name: cell, Type: cu.PointerTo(cu.Named("apiclient.Lazy", typ))})
		e.ctor = append(e.ctor, cu.Set(cu.Dot(self, cell), cu.CallOf(cu.Q("apiclient", "NewLazy"), cu.Dot(self, read))))
		getter = []cu.Stmt{cu.Ret(cu.CallOf(cu.Dot(cu.Self(cell), "Get"), background()))}
	default:
		getter = []cu.Stmt{cu.Ret(cu.CallOf(cu.Self(read), background()))}
	}

	if b.Kind == registry.BindingMethodProperty {
		e.t.Methods = append(e.t.Methods, &cu.Method{Name: name, Doc: p.Description, Results: []cu.Param{{Type: typ}}, Body: getter})
		return
	}
	prop := &cu.Property{Name: name, Type: typ, Doc: p.Description, Getter: getter}
	if setter := e.src.SetterOf(p.Identifier); setter != nil && len(setter.Parameters) == 1 {
		prop.Setter = e.commandBody(setter, map[string]cu.Expr{setter.Parameters[0].Identifier: cu.Id("value")})
	}
	e.t.Properties = append(e.t.Properties, prop)
}

// metadata emits the helper that attaches a metadata value to calls.
func (e *emitter) metadata(md *feature.Metadata) {
	typ := e.src.HostType(md.DataType, e.src.Override(e.src.Origin(feature.KindMetadata, md.Identifier)), md.Identifier)
	value := e.src.ToDto(md.DataType, e.src.Override(e.src.Origin(feature.KindMetadata, md.Identifier)), md.Identifier, cu.Id("value"))
	e.add(&cu.Method{
		Name:    "With" + common.UpperFirst(md.Identifier),
		Doc:     "With" + common.UpperFirst(md.Identifier) + " sends " + md.DisplayName + " with every call made under the returned context.",
		Static:  true,
		Params:  []cu.Param{{Name: "ctx", Type: contextType}, {Name: "value", Type: typ}},
		Results: []cu.Param{{Type: contextType}},
		Body:    []cu.Stmt{cu.Ret(cu.CallOf(cu.Q("apiclient", "WithMetadata"), cu.Id("ctx"), cu.Id(common.MetadataConst(md.Identifier)), value))},
	})
}
