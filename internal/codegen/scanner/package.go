// Package scanner reads a Go package from source and describes its
// declarations as host types for lowering. Markers that Go cannot express
// in the type system come from featurec: comment directives.
package scanner

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"maps"
	"path"
	"slices"
	"strconv"

	"golang.org/x/tools/go/packages"

	"github.com/Alia5/featurec/internal/host"
)

var (
	// ErrUnknownType is returned for names the package does not declare.
	ErrUnknownType = errors.New("unknown type")
	// ErrDirective is returned for malformed featurec: directives.
	ErrDirective = errors.New("malformed directive")
)

const loadMode = packages.NeedName | packages.NeedFiles | packages.NeedSyntax

// Package is a parsed Go package. Types are described on first use and
// cached; a Package is not safe for concurrent use.
type Package struct {
	Name string
	Path string

	fset    *token.FileSet
	imports map[string]string
	types   map[string]*ast.TypeSpec
	docs    map[string]*ast.CommentGroup
	methods map[string][]*ast.FuncDecl
	funcs   []*ast.FuncDecl
	enums   map[string][]string
	cache   map[string]*host.Descriptor
}

// Load parses the package matching pattern, resolved relative to dir.
// Only syntax is loaded; types are resolved by name.
func Load(dir, pattern string) (*Package, error) {
	cfg := &packages.Config{
		Mode: loadMode,
		Dir:  dir,
		Fset: token.NewFileSet(),
	}
	pkgs, err := packages.Load(cfg, pattern)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", pattern, err)
	}
	if len(pkgs) != 1 {
		return nil, fmt.Errorf("load %s: matched %d packages, want 1", pattern, len(pkgs))
	}
	pkg := pkgs[0]
	if len(pkg.Errors) > 0 {
		errs := make([]error, len(pkg.Errors))
		for i, e := range pkg.Errors {
			errs[i] = e
		}
		return nil, fmt.Errorf("load %s: %w", pattern, errors.Join(errs...))
	}
	if len(pkg.Syntax) == 0 {
		return nil, fmt.Errorf("load %s: no Go files", pattern)
	}
	return newPackage(pkg.PkgPath, pkg.Name, cfg.Fset, pkg.Syntax), nil
}

// Parse builds a package from in-memory sources keyed by file name.
func Parse(pkgPath string, sources map[string]string) (*Package, error) {
	fset := token.NewFileSet()
	var files []*ast.File
	for _, name := range slices.Sorted(maps.Keys(sources)) {
		f, err := parser.ParseFile(fset, name, sources[name], parser.ParseComments)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("parse %s: no sources", pkgPath)
	}
	return newPackage(pkgPath, files[0].Name.Name, fset, files), nil
}

func newPackage(pkgPath, name string, fset *token.FileSet, files []*ast.File) *Package {
	p := &Package{
		Name:    name,
		Path:    pkgPath,
		fset:    fset,
		imports: map[string]string{},
		types:   map[string]*ast.TypeSpec{},
		docs:    map[string]*ast.CommentGroup{},
		methods: map[string][]*ast.FuncDecl{},
		enums:   map[string][]string{},
		cache:   map[string]*host.Descriptor{},
	}
	for _, f := range files {
		for _, imp := range f.Imports {
			ip, err := strconv.Unquote(imp.Path.Value)
			if err != nil {
				continue
			}
			local := path.Base(ip)
			if imp.Name != nil {
				local = imp.Name.Name
			}
			p.imports[local] = ip
		}
		for _, decl := range f.Decls {
			switch d := decl.(type) {
			case *ast.GenDecl:
				p.indexGenDecl(d)
			case *ast.FuncDecl:
				if d.Recv == nil {
					p.funcs = append(p.funcs, d)
					continue
				}
				if recv := receiverName(d.Recv); recv != "" {
					p.methods[recv] = append(p.methods[recv], d)
				}
			}
		}
	}
	return p
}

func (p *Package) indexGenDecl(d *ast.GenDecl) {
	switch d.Tok {
	case token.TYPE:
		for _, spec := range d.Specs {
			ts := spec.(*ast.TypeSpec)
			p.types[ts.Name.Name] = ts
			switch {
			case ts.Doc != nil:
				p.docs[ts.Name.Name] = ts.Doc
			case !d.Lparen.IsValid():
				p.docs[ts.Name.Name] = d.Doc
			}
		}
	case token.CONST:
		enumValues(d, p.enums)
	}
}

// receiverName returns the base type name of a method receiver.
func receiverName(recv *ast.FieldList) string {
	if recv == nil || len(recv.List) == 0 {
		return ""
	}
	x := recv.List[0].Type
	if star, ok := x.(*ast.StarExpr); ok {
		x = star.X
	}
	switch t := x.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return id.Name
		}
	case *ast.IndexListExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return id.Name
		}
	}
	return ""
}

// TypeNames lists the declared type names in sorted order.
func (p *Package) TypeNames() []string {
	return slices.Sorted(maps.Keys(p.types))
}

// Type describes the declared type name.
func (p *Package) Type(name string) (host.Type, error) {
	d, err := p.named(name)
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (p *Package) position(pos token.Pos) string {
	return p.fset.Position(pos).String()
}
