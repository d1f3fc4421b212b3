package scanner

import (
	"fmt"
	"go/ast"
	"strings"

	"github.com/Alia5/featurec/internal/host"
)

// interfaceMembers describes the methods of an interface in declaration
// order. Embedded local interfaces are inlined. A getter X paired with a
// setter SetX becomes one writable property.
func (p *Package) interfaceMembers(it *ast.InterfaceType) ([]*host.Member, error) {
	var out []*host.Member
	for _, f := range it.Methods.List {
		if len(f.Names) == 0 {
			embedded, err := p.embedded(f.Type)
			if err != nil {
				return nil, err
			}
			out = append(out, embedded...)
			continue
		}
		ft, ok := f.Type.(*ast.FuncType)
		if !ok {
			continue
		}
		for _, n := range f.Names {
			if !n.IsExported() {
				continue
			}
			m, err := p.method(n.Name, ft, f.Doc, f.Comment)
			if err != nil {
				return nil, fmt.Errorf("method %s: %w", n.Name, err)
			}
			out = append(out, m)
		}
	}
	return pairSetters(out), nil
}

func (p *Package) embedded(x ast.Expr) ([]*host.Member, error) {
	id, ok := x.(*ast.Ident)
	if !ok {
		return nil, nil
	}
	t, err := p.named(id.Name)
	if err != nil {
		return nil, err
	}
	if t.Kind() != host.KindInterface {
		return nil, nil
	}
	return t.Members(), nil
}

// methodMembers describes the exported methods declared on a named type,
// in source order.
func (p *Package) methodMembers(name string) ([]*host.Member, error) {
	var out []*host.Member
	for _, fd := range p.methods[name] {
		if !fd.Name.IsExported() {
			continue
		}
		m, err := p.method(fd.Name.Name, fd.Type, fd.Doc)
		if err != nil {
			return nil, fmt.Errorf("method %s: %w", fd.Name.Name, err)
		}
		out = append(out, m)
	}
	return pairSetters(out), nil
}

func (p *Package) method(name string, ft *ast.FuncType, docs ...*ast.CommentGroup) (*host.Member, error) {
	doc, dirs := p.comments(docs...)
	md, err := p.memberDirectives(dirs)
	if err != nil {
		return nil, err
	}
	params, err := p.params(ft, md.params)
	if err != nil {
		return nil, err
	}
	result, err := p.results(ft)
	if err != nil {
		return nil, err
	}
	m := &host.Member{
		Name:              name,
		Kind:              host.MemberMethod,
		Type:              result,
		Params:            params,
		Readable:          true,
		Doc:               doc,
		Annotations:       append(md.member, p.docErrors(doc, md.member)...),
		ReturnAnnotations: md.result,
	}
	if md.property {
		if len(params) > 0 || result.Kind() == host.KindVoid {
			return nil, fmt.Errorf("%w: featurec:property needs a parameterless method with a result", ErrDirective)
		}
		m.Kind = host.MemberProperty
	}
	return m, nil
}

// params describes the parameters of ft. A leading context.Context moves
// to the end, where lowering expects the cancellation carrier.
func (p *Package) params(ft *ast.FuncType, annotations map[string]host.Annotations) ([]*host.Param, error) {
	var out []*host.Param
	for i, f := range ft.Params.List {
		t, err := p.typeOf(f.Type)
		if err != nil {
			return nil, err
		}
		if len(f.Names) == 0 {
			out = append(out, host.NewParam(fmt.Sprintf("arg%d", i), t))
			continue
		}
		for _, n := range f.Names {
			out = append(out, host.NewParam(n.Name, t, annotations[n.Name]...))
		}
	}
	if len(out) > 1 && out[0].Type.Family() == host.FamilyCancellation {
		out = append(out[1:], out[0])
	}
	return out, nil
}

// results describes what ft returns. A trailing error is dropped; several
// remaining results form a tuple.
func (p *Package) results(ft *ast.FuncType) (host.Type, error) {
	if ft.Results == nil {
		return host.Void, nil
	}
	type result struct {
		name string
		x    ast.Expr
	}
	var rs []result
	for _, f := range ft.Results.List {
		if len(f.Names) == 0 {
			rs = append(rs, result{x: f.Type})
			continue
		}
		for _, n := range f.Names {
			rs = append(rs, result{name: n.Name, x: f.Type})
		}
	}
	if n := len(rs); n > 0 && isErrorExpr(rs[n-1].x) {
		rs = rs[:n-1]
	}
	switch len(rs) {
	case 0:
		return host.Void, nil
	case 1:
		return p.typeOf(rs[0].x)
	}
	tuple := &host.Descriptor{TypeKind: host.KindTuple}
	var names []string
	for i, r := range rs {
		t, err := p.typeOf(r.x)
		if err != nil {
			return nil, err
		}
		name := r.name
		if name == "" || name == "_" {
			name = fmt.Sprintf("Value%d", i+1)
		}
		names = append(names, t.Name())
		tuple.MemberList = append(tuple.MemberList, &host.Member{Name: name, Kind: host.MemberField, Type: t, Readable: true})
	}
	tuple.TypeName = "(" + strings.Join(names, ",") + ")"
	return tuple, nil
}

func resultExprs(ft *ast.FuncType) []ast.Expr {
	if ft.Results == nil {
		return nil
	}
	var out []ast.Expr
	for _, f := range ft.Results.List {
		n := max(len(f.Names), 1)
		for range n {
			out = append(out, f.Type)
		}
	}
	return out
}

func isErrorExpr(x ast.Expr) bool {
	id, ok := x.(*ast.Ident)
	return ok && id.Name == "error"
}

// pairSetters folds SetX(v) into a preceding or following getter X() T,
// turning X into a writable property. The setter is dropped.
func pairSetters(ms []*host.Member) []*host.Member {
	getters := map[string]*host.Member{}
	for _, m := range ms {
		if len(m.Params) == 0 && m.Type.Kind() != host.KindVoid {
			getters[m.Name] = m
		}
	}
	var out []*host.Member
	for _, m := range ms {
		if g, ok := getters[strings.TrimPrefix(m.Name, "Set")]; ok && strings.HasPrefix(m.Name, "Set") && isSetterOf(m, g) {
			g.Kind = host.MemberProperty
			g.Writable = true
			continue
		}
		out = append(out, m)
	}
	return out
}

func isSetterOf(setter, getter *host.Member) bool {
	return len(setter.Params) == 1 &&
		setter.Type.Kind() == host.KindVoid &&
		setter.Params[0].Type.QualifiedName() == getter.Type.QualifiedName()
}
