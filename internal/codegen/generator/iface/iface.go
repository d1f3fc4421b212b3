// Package iface raises a feature into the host interface a server
// implements and a client satisfies, together with the plain value types,
// declared errors and identifier constants the other units share.
package iface

import (
	"errors"

	cu "github.com/Alia5/featurec/internal/codeunit"
	"github.com/Alia5/featurec/internal/codegen/common"
	"github.com/Alia5/featurec/internal/codegen/feature"
	"github.com/Alia5/featurec/internal/host"
	"github.com/Alia5/featurec/internal/registry"
)

const (
	// CancellationParam names the cancellation carrier of a command method.
	CancellationParam = "ctx"

	AnnotationObservable = "observable"
	AnnotationLazy       = "lazy"
	AnnotationMetadata   = "metadata"
)

var (
	contextType     = cu.Named("context.Context")
	interceptorType = cu.Named("apitypes.Interceptor")
)

func Emit(src *common.Source, u *cu.Unit) error {
	e := &emitter{src: src, u: u}
	e.constants()
	for _, dt := range src.Def.DataTypes() {
		e.valueType(dt)
	}
	for _, a := range src.AnonymousStructures() {
		e.anonymous(a)
	}
	for _, de := range src.Def.Errors() {
		e.declaredError(de)
	}
	e.iface()
	common.ResolveImports(u)
	return errors.Join(e.errs...)
}

type emitter struct {
	src  *common.Source
	u    *cu.Unit
	errs []error
}

func (e *emitter) add(decls ...cu.Decl) {
	if err := common.Add(e.u, decls...); err != nil {
		e.errs = append(e.errs, err)
	}
}

func (e *emitter) constants() {
	def := e.src.Def
	str := cu.Named("string")
	e.add(&cu.Const{Name: common.FeatureConst(def.Identifier), Type: str, Value: cu.Str(def.FullyQualifiedIdentifier())})
	for _, it := range def.Items {
		var name string
		switch it.ItemKind() {
		case feature.KindCommand:
			name = common.CommandConst(it.ItemIdentifier())
		case feature.KindProperty:
			name = common.PropertyConst(it.ItemIdentifier())
		case feature.KindMetadata:
			name = common.MetadataConst(it.ItemIdentifier())
		case feature.KindError:
			name = common.ErrorConst(it.ItemIdentifier())
		default:
			continue
		}
		e.add(&cu.Const{Name: name, Type: str, Value: cu.Str(def.ItemIdentifier(it.ItemKind(), it.ItemIdentifier()))})
	}
}

func (e *emitter) valueType(dt *feature.DataTypeDefinition) {
	name := e.src.TypeName(dt.Identifier)
	if st, ok := dt.DataType.(*feature.Structure); ok {
		fields := make([]*cu.Field, len(st.Elements))
		for i, el := range st.Elements {
			fields[i] = &cu.Field{
				Name:     e.src.FieldName(dt.Identifier, el.Identifier),
				Type:     e.src.HostType(el.DataType, e.src.Override(registry.FieldOrigin(e.src.Def.Identifier, dt.Identifier, el.Identifier)), dt.Identifier+el.Identifier),
				Doc:      el.Description,
				ReadOnly: true,
				Wire:     el.Identifier,
			}
		}
		e.add(&cu.TypeDecl{Name: name, Kind: cu.Struct, Doc: dt.Description, Fields: fields})
		e.add(Constructor(e.src, dt.Identifier, name, fields))
		return
	}
	if c, ok := dt.DataType.(*feature.Constrained); ok && len(c.Constraints.Set) > 0 {
		values := make([]cu.EnumValue, len(c.Constraints.Set))
		for i, v := range c.Constraints.Set {
			values[i] = cu.EnumValue{Name: common.EnumValueName(name, v), Value: v}
		}
		e.add(&cu.TypeDecl{Name: name, Kind: cu.Enum, Doc: dt.Description, Values: values})
		return
	}
	alias := e.src.HostType(dt.DataType, e.src.Override(e.src.Origin(feature.KindDataType, dt.Identifier)), dt.Identifier)
	e.add(&cu.TypeDecl{Name: name, Kind: cu.Alias, Doc: dt.Description, Alias: alias})
}

// Constructor builds the function that initializes a value type from its
// fields in order. A recorded static factory keeps its host name.
func Constructor(src *common.Source, dataType, typeName string, fields []*cu.Field) *cu.Method {
	name := "New" + typeName
	var paramNames []string
	if b, ok := src.Reg.Constructor(src.Origin(feature.KindDataType, dataType)); ok {
		name = typeName + b.Method
		paramNames = b.Params
	}
	m := &cu.Method{Name: name, Static: true, Results: []cu.Param{{Type: cu.Named(typeName)}}}
	values := make([]cu.FieldValue, len(fields))
	for i, f := range fields {
		p := common.LowerFirst(f.Name)
		if i < len(paramNames) {
			p = paramNames[i]
		}
		m.Params = append(m.Params, cu.Param{Name: p, Type: f.Type})
		values[i] = cu.FieldValue{Name: f.Name, Value: cu.Id(p)}
	}
	m.Body = []cu.Stmt{cu.Ret(&cu.New{Type: cu.Named(typeName), Fields: values})}
	return m
}

func (e *emitter) anonymous(a common.Anonymous) {
	name := common.AnonymousType(a.Name)
	fields := make([]*cu.Field, len(a.Structure.Elements))
	for i, el := range a.Structure.Elements {
		fields[i] = &cu.Field{
			Name:     common.UpperFirst(el.Identifier),
			Type:     e.src.HostType(el.DataType, "", a.Name+el.Identifier),
			Doc:      el.Description,
			ReadOnly: true,
			Wire:     el.Identifier,
		}
	}
	e.add(&cu.TypeDecl{Name: name, Kind: cu.Struct, Fields: fields})
	e.add(Constructor(e.src, "", name, fields))
}

func (e *emitter) declaredError(de *feature.DefinedExecutionError) {
	str := cu.Named("string")
	e.add(&cu.TypeDecl{
		Name:   common.ErrorName(de.Identifier),
		Kind:   cu.Struct,
		Doc:    de.Description,
		Fields: []*cu.Field{{Name: "Message", Type: str, Wire: "message"}},
		Methods: []*cu.Method{
			{Name: "Error", Results: []cu.Param{{Type: str}}, Body: []cu.Stmt{cu.Ret(cu.Self("Message"))}},
			{Name: "Identifier", Results: []cu.Param{{Type: str}}, Body: []cu.Stmt{cu.Ret(cu.Id(common.ErrorConst(de.Identifier)))}},
		},
	})
}

func (e *emitter) iface() {
	t := &cu.TypeDecl{Name: e.src.InterfaceName(), Kind: cu.Interface, Doc: e.src.Def.Description}
	setters := map[string]bool{}
	for _, c := range e.src.Def.Commands() {
		if b, ok := e.src.Binding(feature.KindCommand, c.Identifier); ok && b.Kind == registry.BindingPropertySetter {
			setters[b.Property] = true
		}
	}
	for _, it := range e.src.Def.Items {
		switch v := it.(type) {
		case *feature.Command:
			if b, ok := e.src.Binding(feature.KindCommand, v.Identifier); ok && b.Kind == registry.BindingPropertySetter {
				continue
			}
			t.Methods = append(t.Methods, Signature(e.src, v))
			if len(v.Responses) > 1 {
				e.result(v)
			}
		case *feature.Property:
			name := e.src.MemberName(feature.KindProperty, v.Identifier)
			typ := PropertyType(e.src, v)
			var ann []string
			if v.Observable {
				ann = append(ann, AnnotationObservable)
			}
			b, _ := e.src.Binding(feature.KindProperty, v.Identifier)
			if b.Lazy {
				ann = append(ann, AnnotationLazy)
			}
			if b.Kind == registry.BindingMethodProperty {
				t.Methods = append(t.Methods, &cu.Method{Name: name, Doc: v.Description, Results: []cu.Param{{Type: typ}}, Annotations: ann})
				continue
			}
			p := &cu.Property{Name: name, Type: typ, Doc: v.Description, Getter: []cu.Stmt{}, Annotations: ann}
			if setters[v.Identifier] {
				p.Setter = []cu.Stmt{}
			}
			t.Properties = append(t.Properties, p)
		case *feature.Metadata:
			t.Properties = append(t.Properties, &cu.Property{
				Name:        e.src.MemberName(feature.KindMetadata, v.Identifier),
				Type:        interceptorType,
				Doc:         v.Description,
				Getter:      []cu.Stmt{},
				Annotations: []string{AnnotationMetadata + ":" + v.Identifier},
			})
		}
	}
	e.add(t)
}

// result bundles the responses of a command into one value type.
func (e *emitter) result(c *feature.Command) {
	fields := make([]*cu.Field, len(c.Responses))
	for i, r := range c.Responses {
		fields[i] = &cu.Field{
			Name:     ResultField(e.src, c, r),
			Type:     ResponseType(e.src, c, r),
			Doc:      r.Description,
			ReadOnly: true,
			Wire:     r.Identifier,
		}
	}
	e.add(&cu.TypeDecl{Name: common.ResultName(c.Identifier), Kind: cu.Struct, Fields: fields})
}

// ResultField is the field of the result type of c that holds r.
func ResultField(src *common.Source, c *feature.Command, r *feature.Element) string {
	return common.UpperFirst(src.ElementName(registry.ResponseOrigin(src.Def.Identifier, c.Identifier, r.Identifier), r.Identifier, common.UpperFirst))
}

// PropertyType is the host type of a property.
func PropertyType(src *common.Source, p *feature.Property) cu.TypeRef {
	return src.HostType(p.DataType, src.Override(src.Origin(feature.KindProperty, p.Identifier)), p.Identifier)
}

func ParamType(src *common.Source, c *feature.Command, p *feature.Element) cu.TypeRef {
	return src.HostType(p.DataType, src.Override(registry.ParameterOrigin(src.Def.Identifier, c.Identifier, p.Identifier)), c.Identifier+p.Identifier)
}

func ResponseType(src *common.Source, c *feature.Command, r *feature.Element) cu.TypeRef {
	return src.HostType(r.DataType, src.Override(registry.ResponseOrigin(src.Def.Identifier, c.Identifier, r.Identifier)), c.Identifier+r.Identifier)
}

func IntermediateType(src *common.Source, c *feature.Command) cu.TypeRef {
	r := c.IntermediateResponses[0]
	return src.HostType(r.DataType, src.Override(registry.IntermediateOrigin(src.Def.Identifier, c.Identifier, r.Identifier)), c.Identifier+r.Identifier)
}

// ResultType is the single host value a command completes with, if any.
func ResultType(src *common.Source, c *feature.Command) (cu.TypeRef, bool) {
	switch len(c.Responses) {
	case 0:
		return cu.TypeRef{}, false
	case 1:
		return ResponseType(src, c, c.Responses[0]), true
	}
	return cu.Named(common.ResultName(c.Identifier)), true
}

// Signature is the abstract interface method of c. Its return shape
// mirrors the host shape lowering recognized.
func Signature(src *common.Source, c *feature.Command) *cu.Method {
	m := &cu.Method{Name: src.MemberName(feature.KindCommand, c.Identifier), Doc: c.Description}
	for _, p := range c.Parameters {
		m.Params = append(m.Params, cu.Param{Name: src.ParamName(c.Identifier, p.Identifier), Type: ParamType(src, c, p)})
	}
	if src.Cancellable(c) {
		m.Params = append(m.Params, cu.Param{Name: CancellationParam, Type: contextType})
	}
	if c.Observable {
		m.Annotations = append(m.Annotations, AnnotationObservable)
	}
	result, hasResult := ResultType(src, c)
	var intermediate cu.TypeRef
	if len(c.IntermediateResponses) > 0 {
		intermediate = IntermediateType(src, c)
	}

	switch src.Shape(c) {
	case host.ShapeVoid:
	case host.ShapeSync:
		for _, r := range c.Responses {
			name := src.ElementName(registry.ResponseOrigin(src.Def.Identifier, c.Identifier, r.Identifier), r.Identifier, common.LowerFirst)
			m.Results = append(m.Results, cu.Param{Name: common.LowerFirst(name), Type: ResponseType(src, c, r)})
		}
		if len(m.Results) == 1 {
			m.Results[0].Name = ""
		}
	case host.ShapeObservable:
		m.Results = []cu.Param{{Type: cu.Named("apitypes.ObservableCommand")}}
	case host.ShapeObservableResult:
		m.Results = []cu.Param{{Type: cu.Named("apitypes.Observable", result)}}
	case host.ShapeIntermediate:
		m.Results = []cu.Param{{Type: cu.Named("apitypes.IntermediateStream", intermediate)}}
	case host.ShapeIntermediateResult:
		m.Results = []cu.Param{{Type: cu.Named("apitypes.IntermediateObservable", intermediate, result)}}
	case host.ShapeTask:
		if hasResult {
			m.Results = []cu.Param{{Type: cu.Named("apitypes.Task", result)}}
		} else {
			m.Results = []cu.Param{{Type: cu.Named("apitypes.Future")}}
		}
	case host.ShapeStream:
		m.Results = []cu.Param{{Type: cu.Named("apitypes.Stream", intermediate)}}
	}
	return m
}
