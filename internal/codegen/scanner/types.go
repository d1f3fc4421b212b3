package scanner

import (
	"fmt"
	"go/ast"
	"go/types"
	"strings"

	"github.com/Alia5/featurec/internal/host"
)

var builtins = map[string]host.Primitive{
	"string":  host.PrimitiveString,
	"bool":    host.PrimitiveBoolean,
	"int":     host.PrimitiveInteger,
	"int8":    host.PrimitiveInteger,
	"int16":   host.PrimitiveInteger,
	"int32":   host.PrimitiveInteger,
	"int64":   host.PrimitiveInteger,
	"uint":    host.PrimitiveInteger,
	"uint8":   host.PrimitiveInteger,
	"uint16":  host.PrimitiveInteger,
	"uint32":  host.PrimitiveInteger,
	"uint64":  host.PrimitiveInteger,
	"byte":    host.PrimitiveInteger,
	"rune":    host.PrimitiveInteger,
	"float32": host.PrimitiveReal,
	"float64": host.PrimitiveReal,
	"any":     host.PrimitiveAny,
}

// handles maps apitypes names to the family they stand for.
var handles = map[string]host.Family{
	"ObservableCommand":      host.FamilyObservableCommand,
	"Observable":             host.FamilyObservableCommand,
	"IntermediateStream":     host.FamilyIntermediateCommand,
	"IntermediateObservable": host.FamilyIntermediateCommand,
	"Future":                 host.FamilyTask,
	"Task":                   host.FamilyTask,
	"Stream":                 host.FamilyStream,
	"Interceptor":            host.FamilyInterceptor,
}

var errorType = &host.Descriptor{TypeName: "error", TypeKind: host.KindOpaque, Fam: host.FamilyError}

// opaque describes a type the scanner does not model. Lowering rejects it
// as a data type, which skips the member using it.
func opaque(x ast.Expr) *host.Descriptor {
	return &host.Descriptor{TypeName: types.ExprString(x), TypeKind: host.KindOpaque}
}

// typeOf describes a type expression.
func (p *Package) typeOf(x ast.Expr) (host.Type, error) {
	switch t := x.(type) {
	case *ast.Ident:
		if prim, ok := builtins[t.Name]; ok {
			return host.Prim(t.Name, prim), nil
		}
		if t.Name == "error" {
			return errorType, nil
		}
		return p.named(t.Name)
	case *ast.StarExpr:
		return p.typeOf(t.X)
	case *ast.ParenExpr:
		return p.typeOf(t.X)
	case *ast.ArrayType:
		if id, ok := t.Elt.(*ast.Ident); ok && t.Len == nil && (id.Name == "byte" || id.Name == "uint8") {
			return host.Prim("[]byte", host.PrimitiveBinary), nil
		}
		elem, err := p.typeOf(t.Elt)
		if err != nil {
			return nil, err
		}
		return host.ListOf(elem), nil
	case *ast.Ellipsis:
		elem, err := p.typeOf(t.Elt)
		if err != nil {
			return nil, err
		}
		return host.ListOf(elem), nil
	case *ast.InterfaceType:
		if t.Methods == nil || len(t.Methods.List) == 0 {
			return host.Prim("any", host.PrimitiveAny), nil
		}
	case *ast.ChanType:
		if t.Dir == ast.RECV {
			elem, err := p.typeOf(t.Value)
			if err != nil {
				return nil, err
			}
			return host.Generic("Stream", host.FamilyStream, elem), nil
		}
	case *ast.SelectorExpr:
		return p.qualified(t, nil)
	case *ast.IndexExpr:
		if sel, ok := t.X.(*ast.SelectorExpr); ok {
			return p.qualified(sel, []ast.Expr{t.Index})
		}
	case *ast.IndexListExpr:
		if sel, ok := t.X.(*ast.SelectorExpr); ok {
			return p.qualified(sel, t.Indices)
		}
	}
	return opaque(x), nil
}

// qualified describes a type imported from another package. Only the
// runtime handles and a few standard types are known.
func (p *Package) qualified(sel *ast.SelectorExpr, args []ast.Expr) (host.Type, error) {
	pkg, ok := sel.X.(*ast.Ident)
	if !ok {
		return opaque(sel), nil
	}
	importPath := p.imports[pkg.Name]
	name := sel.Sel.Name
	switch {
	case importPath == "context" && name == "Context":
		return &host.Descriptor{TypeName: name, Package: "context", TypeKind: host.KindOpaque, Fam: host.FamilyCancellation}, nil
	case importPath == "time" && name == "Time":
		return host.Prim("time.Time", host.PrimitiveTimestamp), nil
	case importPath == "apitypes" || strings.HasSuffix(importPath, "/apitypes"):
		return p.runtimeType(name, args)
	}
	d := opaque(sel)
	d.TypeName, d.Package = name, pkg.Name
	return d, nil
}

func (p *Package) runtimeType(name string, args []ast.Expr) (host.Type, error) {
	switch name {
	case "Date":
		return host.Prim("apitypes.Date", host.PrimitiveDate), nil
	case "TimeOfDay":
		return host.Prim("apitypes.TimeOfDay", host.PrimitiveTime), nil
	case "ValidationError":
		return &host.Descriptor{TypeName: name, Package: "apitypes", TypeKind: host.KindStruct, Fam: host.FamilyArgumentError}, nil
	}
	fam, ok := handles[name]
	if !ok {
		return &host.Descriptor{TypeName: name, Package: "apitypes", TypeKind: host.KindOpaque}, nil
	}
	typeArgs := make([]host.Type, len(args))
	for i, a := range args {
		t, err := p.typeOf(a)
		if err != nil {
			return nil, err
		}
		typeArgs[i] = t
	}
	return host.Generic(name, fam, typeArgs...), nil
}

// named describes a type declared in the package. Descriptors are cached
// before they are filled so recursive types resolve.
func (p *Package) named(name string) (*host.Descriptor, error) {
	if d, ok := p.cache[name]; ok {
		return d, nil
	}
	ts, ok := p.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownType, p.Name, name)
	}
	d := &host.Descriptor{TypeName: name, Package: p.Name}
	p.cache[name] = d
	if err := p.fill(d, ts); err != nil {
		delete(p.cache, name)
		return nil, fmt.Errorf("type %s: %w", name, err)
	}
	return d, nil
}

func (p *Package) fill(d *host.Descriptor, ts *ast.TypeSpec) error {
	doc, dirs := p.comments(p.docs[d.TypeName])
	d.Documentation = doc
	attrs, err := p.annotations(dirs)
	if err != nil {
		return err
	}
	d.Attrs = attrs
	if p.isError(d.TypeName) {
		d.Fam = host.FamilyError
	}
	if ts.TypeParams != nil && len(ts.TypeParams.List) > 0 {
		d.TypeKind = host.KindOpaque
		return nil
	}

	switch t := ts.Type.(type) {
	case *ast.InterfaceType:
		d.TypeKind = host.KindInterface
		d.MemberList, err = p.interfaceMembers(t)
		return err
	case *ast.StructType:
		d.TypeKind = host.KindStruct
		if d.MemberList, err = p.fields(t); err != nil {
			return err
		}
		methods, err := p.methodMembers(d.TypeName)
		if err != nil {
			return err
		}
		d.MemberList = append(d.MemberList, methods...)
		d.Ctors, d.Statics, err = p.constructors(d)
		return err
	}

	if values := p.enums[d.TypeName]; len(values) > 0 {
		d.TypeKind = host.KindEnum
		d.Values = values
		return nil
	}
	under, err := p.typeOf(ts.Type)
	if err != nil {
		return err
	}
	switch under.Kind() {
	case host.KindPrimitive:
		d.TypeKind, d.Prim = host.KindPrimitive, under.Primitive()
	case host.KindList:
		d.TypeKind, d.ElemType = host.KindList, under.Elem()
	default:
		d.TypeKind = host.KindOpaque
	}
	return nil
}

// isError reports whether name has an Error() string method.
func (p *Package) isError(name string) bool {
	for _, fd := range p.methods[name] {
		if fd.Name.Name != "Error" || fd.Type.Params.NumFields() != 0 || fd.Type.Results.NumFields() != 1 {
			continue
		}
		if id, ok := fd.Type.Results.List[0].Type.(*ast.Ident); ok && id.Name == "string" {
			return true
		}
	}
	return false
}

// fields describes the exported fields of a struct. Embedded fields are
// not flattened.
func (p *Package) fields(st *ast.StructType) ([]*host.Member, error) {
	var out []*host.Member
	for _, f := range st.Fields.List {
		doc, dirs := p.comments(f.Doc, f.Comment)
		md, err := p.memberDirectives(dirs)
		if err != nil {
			return nil, err
		}
		for _, n := range f.Names {
			if !n.IsExported() {
				continue
			}
			t, err := p.typeOf(f.Type)
			if err != nil {
				return nil, fmt.Errorf("field %s: %w", n.Name, err)
			}
			out = append(out, &host.Member{
				Name:        n.Name,
				Kind:        host.MemberField,
				Type:        t,
				Readable:    true,
				Writable:    !md.readOnly,
				Doc:         doc,
				Annotations: md.member,
			})
		}
	}
	return out, nil
}

// constructors finds the package functions returning d. New<Name> are
// constructors; the rest are factories.
func (p *Package) constructors(d *host.Descriptor) (ctors, factories []*host.Member, err error) {
	for _, fd := range p.funcs {
		if !fd.Name.IsExported() || !p.returns(fd.Type, d.TypeName) {
			continue
		}
		params, err := p.params(fd.Type, nil)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", fd.Name.Name, err)
		}
		doc, _ := p.comments(fd.Doc)
		m := &host.Member{Name: fd.Name.Name, Kind: host.MemberMethod, Type: d, Params: params, Readable: true, Static: true, Doc: doc}
		if fd.Name.Name == "New"+d.TypeName {
			ctors = append(ctors, m)
		} else {
			factories = append(factories, m)
		}
	}
	return ctors, factories, nil
}

// returns reports whether ft yields name, optionally followed by an error.
func (p *Package) returns(ft *ast.FuncType, name string) bool {
	results := resultExprs(ft)
	if n := len(results); n > 0 && isErrorExpr(results[n-1]) {
		results = results[:n-1]
	}
	if len(results) != 1 {
		return false
	}
	x := results[0]
	if star, ok := x.(*ast.StarExpr); ok {
		x = star.X
	}
	id, ok := x.(*ast.Ident)
	return ok && id.Name == name
}
