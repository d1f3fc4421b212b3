package scanner

import (
	"go/ast"
	"go/token"
	"strconv"
	"strings"
)

// enumValues collects the exported constants of a const block by their
// declared type, in declaration order. String constants contribute their
// value; other constants their name without the type prefix. A spec
// without type or value repeats the previous type, as iota blocks do.
func enumValues(decl *ast.GenDecl, into map[string][]string) {
	var current string
	for _, spec := range decl.Specs {
		vs, ok := spec.(*ast.ValueSpec)
		if !ok {
			continue
		}
		switch {
		case vs.Type != nil:
			current = ""
			if id, ok := vs.Type.(*ast.Ident); ok {
				current = id.Name
			}
		case len(vs.Values) > 0:
			current = ""
		}
		if current == "" {
			continue
		}
		for i, name := range vs.Names {
			if !name.IsExported() {
				continue
			}
			into[current] = append(into[current], constantValue(current, name.Name, vs.Values, i))
		}
	}
}

func constantValue(typeName, name string, values []ast.Expr, i int) string {
	if i < len(values) {
		if lit, ok := values[i].(*ast.BasicLit); ok && lit.Kind == token.STRING {
			if s, err := strconv.Unquote(lit.Value); err == nil {
				return s
			}
		}
	}
	if v := strings.TrimPrefix(name, typeName); v != "" {
		return v
	}
	return name
}
