package common

import (
	"strings"

	cu "github.com/Alia5/featurec/internal/codeunit"
)

// RuntimeModule is the module generated code imports its runtime from.
const RuntimeModule = "github.com/Alia5/featurec"

var importPaths = map[string]string{
	"apitypes":  RuntimeModule + "/apitypes",
	"apiclient": RuntimeModule + "/apiclient",
	"apiserver": RuntimeModule + "/apiserver",
	"context":   "context",
	"time":      "time",
	"sync":      "sync",
}

// ResolveImports adds an import for every package qualifier u refers to.
func ResolveImports(u *cu.Unit) {
	qualifier := func(name string) {
		if pkg, _, ok := strings.Cut(name, "."); ok {
			if path, known := importPaths[pkg]; known {
				u.Import(path)
			}
		}
	}
	var typeRef func(t cu.TypeRef)
	typeRef = func(t cu.TypeRef) {
		if t.Elem != nil {
			typeRef(*t.Elem)
		}
		qualifier(t.Name)
		for _, a := range t.Args {
			typeRef(a)
		}
	}
	params := func(ps []cu.Param) {
		for _, p := range ps {
			typeRef(p.Type)
		}
	}
	cu.Inspect(u, func(n any) bool {
		switch n := n.(type) {
		case *cu.TypeDecl:
			typeRef(n.Alias)
			for _, t := range n.Implements {
				typeRef(t)
			}
		case *cu.Field:
			typeRef(n.Type)
		case *cu.Property:
			typeRef(n.Type)
		case *cu.Method:
			params(n.Params)
			params(n.Results)
		case *cu.Var:
			typeRef(n.Type)
		case *cu.Try:
			for _, c := range n.Catches {
				typeRef(c.Type)
			}
		case *cu.Call:
			for _, t := range n.TypeArgs {
				typeRef(t)
			}
		case *cu.New:
			typeRef(n.Type)
		case *cu.Cast:
			typeRef(n.Type)
		case *cu.Lambda:
			params(n.Params)
			params(n.Results)
		case *cu.ListLit:
			typeRef(n.Elem)
		case *cu.Sel:
			if id, ok := n.X.(*cu.Ident); ok {
				qualifier(id.Name + "." + n.Name)
			}
		}
		return true
	})
}
