package codeunit

// Inspect traverses node depth-first, calling fn for every declaration,
// statement and expression. Children are skipped when fn returns false.
func Inspect(node any, fn func(any) bool) {
	if node == nil || !fn(node) {
		return
	}
	stmts := func(ss []Stmt) {
		for _, s := range ss {
			Inspect(s, fn)
		}
	}
	exprs := func(es ...Expr) {
		for _, e := range es {
			if e != nil {
				Inspect(e, fn)
			}
		}
	}
	switch n := node.(type) {
	case []Stmt:
		stmts(n)
	case *Unit:
		for _, d := range n.Decls {
			Inspect(d, fn)
		}
	case *TypeDecl:
		for _, f := range n.Fields {
			Inspect(f, fn)
		}
		for _, p := range n.Properties {
			Inspect(p, fn)
		}
		for _, m := range n.Methods {
			Inspect(m, fn)
		}
		for _, t := range n.Nested {
			Inspect(t, fn)
		}
	case *Field:
		exprs(n.Init)
	case *Property:
		stmts(n.Getter)
		stmts(n.Setter)
	case *Method:
		stmts(n.Body)
	case *Const:
		exprs(n.Value)
	case *Var:
		exprs(n.Value)
	case *Assign:
		exprs(n.Target, n.Value)
	case *Return:
		exprs(n.Values...)
	case *If:
		exprs(n.Cond)
		stmts(n.Then)
		stmts(n.Else)
	case *ForEach:
		exprs(n.Over)
		stmts(n.Body)
	case *Try:
		stmts(n.Body)
		for _, c := range n.Catches {
			stmts(c.Body)
		}
	case *Throw:
		exprs(n.Value)
	case *ExprStmt:
		exprs(n.X)
	case *Lock:
		exprs(n.Token)
		stmts(n.Body)
	case *Sel:
		exprs(n.X)
	case *Call:
		exprs(n.Fun)
		exprs(n.Args...)
	case *New:
		for _, f := range n.Fields {
			exprs(f.Value)
		}
	case *Binary:
		exprs(n.X, n.Y)
	case *Unary:
		exprs(n.X)
	case *Lambda:
		stmts(n.Body)
	case *Index:
		exprs(n.X, n.Index)
	case *Cast:
		exprs(n.X)
	case *ListLit:
		exprs(n.Items...)
	}
}

// Find collects every node of type T below node.
func Find[T any](node any) []T {
	var out []T
	Inspect(node, func(n any) bool {
		if v, ok := n.(T); ok {
			out = append(out, v)
		}
		return true
	})
	return out
}

// Calls returns the calls below node whose callee renders as name, e.g.
// "apitypes.CheckPattern" or "Dispose".
func Calls(node any, name string) []*Call {
	var out []*Call
	for _, c := range Find[*Call](node) {
		if exprName(c.Fun) == name {
			out = append(out, c)
		}
	}
	return out
}

func exprName(e Expr) string {
	switch x := e.(type) {
	case *Ident:
		return x.Name
	case *Sel:
		if _, ok := x.X.(*This); ok {
			return x.Name
		}
		if base := exprName(x.X); base != "" {
			return base + "." + x.Name
		}
	}
	return ""
}
