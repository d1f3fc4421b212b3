package codeunit

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Fprint writes a stable, indented outline of u. The outline is what
// featurec writes to disk and what --check compares against.
func Fprint(w io.Writer, u *Unit) error {
	p := &printer{}
	p.line("unit %s %s", u.Kind, u.Namespace)
	if u.Feature != "" {
		p.line("feature %s", u.Feature)
	}
	if u.Digest != "" {
		p.line("digest %s", u.Digest)
	}
	for _, imp := range u.Imports {
		p.line("import %q", imp)
	}
	for _, d := range u.Decls {
		p.line("")
		p.decl(d)
	}
	_, err := w.Write(p.buf.Bytes())
	return err
}

// Sprint is Fprint into a string.
func Sprint(u *Unit) string {
	var sb strings.Builder
	_ = Fprint(&sb, u)
	return sb.String()
}

type printer struct {
	buf    bytes.Buffer
	indent int
}

func (p *printer) line(format string, args ...any) {
	if format == "" {
		p.buf.WriteByte('\n')
		return
	}
	p.buf.WriteString(strings.Repeat("\t", p.indent))
	fmt.Fprintf(&p.buf, format, args...)
	p.buf.WriteByte('\n')
}

func (p *printer) block(header string, body func()) {
	p.line("%s {", header)
	p.indent++
	body()
	p.indent--
	p.line("}")
}

func (p *printer) doc(s string) {
	for _, l := range strings.Split(strings.TrimSpace(s), "\n") {
		if l != "" {
			p.line("// %s", l)
		}
	}
}

func (p *printer) decl(d Decl) {
	switch d := d.(type) {
	case *TypeDecl:
		p.typeDecl(d)
	case *Method:
		p.method("func", d)
	case *Const:
		p.line("const %s %s = %s", d.Name, d.Type, expr(d.Value))
	}
}

func (p *printer) typeDecl(t *TypeDecl) {
	p.doc(t.Doc)
	for _, a := range t.Annotations {
		p.line("@%s", a)
	}
	header := fmt.Sprintf("%s %s", t.Kind, t.Name)
	if t.Kind == Alias {
		p.line("%s = %s", header, t.Alias)
		return
	}
	if len(t.Implements) > 0 {
		names := make([]string, len(t.Implements))
		for i, r := range t.Implements {
			names[i] = r.String()
		}
		header += " implements " + strings.Join(names, ", ")
	}
	p.block(header, func() {
		for _, v := range t.Values {
			p.line("%s = %q", v.Name, v.Value)
		}
		for _, f := range t.Fields {
			p.doc(f.Doc)
			s := fmt.Sprintf("%s %s", f.Name, f.Type)
			if f.ReadOnly {
				s = "readonly " + s
			}
			if f.Wire != "" {
				s += fmt.Sprintf(" wire:%q", f.Wire)
			}
			if f.Init != nil {
				s += " = " + expr(f.Init)
			}
			p.line("%s", s)
		}
		for _, pr := range t.Properties {
			p.doc(pr.Doc)
			for _, a := range pr.Annotations {
				p.line("@%s", a)
			}
			p.block(fmt.Sprintf("property %s %s", pr.Name, pr.Type), func() {
				if pr.Getter != nil {
					p.block("get", func() { p.stmts(pr.Getter) })
				}
				if pr.Setter != nil {
					p.block("set", func() { p.stmts(pr.Setter) })
				}
			})
		}
		for _, m := range t.Methods {
			kw := "method"
			if m.Static {
				kw = "static"
			}
			p.method(kw, m)
		}
		for _, n := range t.Nested {
			p.typeDecl(n)
		}
	})
}

func params(ps []Param) string {
	parts := make([]string, len(ps))
	for i, pr := range ps {
		parts[i] = pr.Name + " " + pr.Type.String()
	}
	return strings.Join(parts, ", ")
}

func signature(kw, name string, m *Method) string {
	s := fmt.Sprintf("%s %s(%s)", kw, name, params(m.Params))
	if len(m.Results) > 0 {
		s += " (" + params(m.Results) + ")"
	}
	return s
}

func (p *printer) method(kw string, m *Method) {
	p.doc(m.Doc)
	for _, a := range m.Annotations {
		p.line("@%s", a)
	}
	sig := signature(kw, m.Name, m)
	if m.Abstract() {
		p.line("%s", sig)
		return
	}
	p.block(sig, func() { p.stmts(m.Body) })
}

func (p *printer) stmts(ss []Stmt) {
	for _, s := range ss {
		p.stmt(s)
	}
}

func (p *printer) stmt(s Stmt) {
	switch s := s.(type) {
	case *Var:
		switch {
		case s.Value == nil:
			p.line("var %s %s", s.Name, s.Type)
		case s.Type.IsZero():
			p.line("%s := %s", s.Name, expr(s.Value))
		default:
			p.line("var %s %s = %s", s.Name, s.Type, expr(s.Value))
		}
	case *Assign:
		p.line("%s = %s", expr(s.Target), expr(s.Value))
	case *Return:
		if len(s.Values) == 0 {
			p.line("return")
			return
		}
		p.line("return %s", exprs(s.Values))
	case *If:
		p.block("if "+expr(s.Cond), func() { p.stmts(s.Then) })
		if s.Else != nil {
			p.block("else", func() { p.stmts(s.Else) })
		}
	case *ForEach:
		p.block(fmt.Sprintf("for %s, %s in %s", s.Key, s.Value, expr(s.Over)), func() { p.stmts(s.Body) })
	case *Try:
		p.block("try", func() { p.stmts(s.Body) })
		for _, c := range s.Catches {
			p.block(fmt.Sprintf("catch %s %s", c.Name, c.Type), func() { p.stmts(c.Body) })
		}
	case *Throw:
		p.line("throw %s", expr(s.Value))
	case *ExprStmt:
		p.line("%s", expr(s.X))
	case *Lock:
		p.block("lock "+expr(s.Token), func() { p.stmts(s.Body) })
	case *Comment:
		p.line("// %s", s.Text)
	}
}

func exprs(es []Expr) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = expr(e)
	}
	return strings.Join(parts, ", ")
}

func expr(e Expr) string {
	switch e := e.(type) {
	case nil:
		return ""
	case *Ident:
		return e.Name
	case *Lit:
		switch v := e.Value.(type) {
		case string:
			return strconv.Quote(v)
		default:
			return fmt.Sprint(v)
		}
	case *Sel:
		return expr(e.X) + "." + e.Name
	case *Call:
		s := expr(e.Fun)
		if len(e.TypeArgs) > 0 {
			args := make([]string, len(e.TypeArgs))
			for i, a := range e.TypeArgs {
				args[i] = a.String()
			}
			s += "[" + strings.Join(args, ", ") + "]"
		}
		return s + "(" + exprs(e.Args) + ")"
	case *New:
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = f.Name + ": " + expr(f.Value)
		}
		return e.Type.String() + "{" + strings.Join(parts, ", ") + "}"
	case *Binary:
		return expr(e.X) + " " + e.Op + " " + expr(e.Y)
	case *Unary:
		return e.Op + expr(e.X)
	case *Lambda:
		p := &printer{}
		p.indent = 1
		p.stmts(e.Body)
		head := "func(" + params(e.Params) + ")"
		if len(e.Results) > 0 {
			head += " (" + params(e.Results) + ")"
		}
		body := strings.TrimRight(p.buf.String(), "\n")
		return head + " {\n" + body + "\n}"
	case *Index:
		return expr(e.X) + "[" + expr(e.Index) + "]"
	case *Cast:
		return e.Type.String() + "(" + expr(e.X) + ")"
	case *ListLit:
		return "[]" + e.Elem.String() + "{" + exprs(e.Items) + "}"
	case *This:
		return "this"
	case *Nil:
		return "nil"
	}
	return fmt.Sprintf("<%T>", e)
}
