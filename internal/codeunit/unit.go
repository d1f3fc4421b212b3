// Package codeunit is a small abstract syntax tree for generated source
// units. Emitters build units; printers or other tools consume them.
package codeunit

import (
	"errors"
	"fmt"
	"sort"
)

var ErrDuplicateDecl = errors.New("duplicate declaration")

type Kind string

const (
	KindDTO       Kind = "dto"
	KindClient    Kind = "client"
	KindServer    Kind = "server"
	KindInterface Kind = "interface"
)

// Kinds lists every unit kind in emission order.
var Kinds = []Kind{KindInterface, KindDTO, KindClient, KindServer}

// Unit is one generated compilation unit.
type Unit struct {
	Kind      Kind
	Namespace string
	// Feature is the fully qualified identifier of the source feature.
	Feature string
	// Digest fingerprints the source feature definition.
	Digest  string
	Imports []string
	Decls   []Decl
}

// Import adds path, keeping Imports sorted and unique.
func (u *Unit) Import(path string) {
	i := sort.SearchStrings(u.Imports, path)
	if i < len(u.Imports) && u.Imports[i] == path {
		return
	}
	u.Imports = append(u.Imports, "")
	copy(u.Imports[i+1:], u.Imports[i:])
	u.Imports[i] = path
}

// Add appends d. Declaration names are unique within a unit.
func (u *Unit) Add(d Decl) error {
	if u.Lookup(d.DeclName()) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateDecl, d.DeclName())
	}
	u.Decls = append(u.Decls, d)
	return nil
}

func (u *Unit) Lookup(name string) Decl {
	for _, d := range u.Decls {
		if d.DeclName() == name {
			return d
		}
	}
	return nil
}

// Type returns the type declaration named name, or nil.
func (u *Unit) Type(name string) *TypeDecl {
	t, _ := u.Lookup(name).(*TypeDecl)
	return t
}

// Func returns the top-level function named name, or nil.
func (u *Unit) Func(name string) *Method {
	f, _ := u.Lookup(name).(*Method)
	return f
}

// Decl is implemented by *TypeDecl, *Method and *Const.
type Decl interface {
	DeclName() string
	decl()
}

type TypeKind int

const (
	Struct TypeKind = iota
	Interface
	Enum
	Alias
)

func (k TypeKind) String() string {
	return [...]string{"struct", "interface", "enum", "alias"}[k]
}

type TypeDecl struct {
	Name       string
	Kind       TypeKind
	Doc        string
	Implements []TypeRef
	// Alias is the aliased type of an Alias declaration.
	Alias      TypeRef
	Fields     []*Field
	Properties []*Property
	Methods    []*Method
	Values     []EnumValue
	Nested     []*TypeDecl
	// Annotations are free-form markers such as "observable".
	Annotations []string
}

func (t *TypeDecl) DeclName() string { return t.Name }
func (*TypeDecl) decl()              {}

// Method returns the method named name, or nil.
func (t *TypeDecl) Method(name string) *Method {
	for _, m := range t.Methods {
		if m.Name == name {
			return m
		}
	}
	return nil
}

func (t *TypeDecl) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func (t *TypeDecl) Property(name string) *Property {
	for _, p := range t.Properties {
		if p.Name == name {
			return p
		}
	}
	return nil
}

func (t *TypeDecl) NestedType(name string) *TypeDecl {
	for _, n := range t.Nested {
		if n.Name == name {
			return n
		}
	}
	return nil
}

type EnumValue struct {
	Name  string
	Value string
}

type Field struct {
	Name     string
	Type     TypeRef
	Doc      string
	ReadOnly bool
	// Wire is the serialized name of the field.
	Wire string
	Init Expr
}

// Property is an accessor pair. A nil Setter means read-only.
type Property struct {
	Name        string
	Type        TypeRef
	Doc         string
	Getter      []Stmt
	Setter      []Stmt
	Annotations []string
}

func (p *Property) ReadOnly() bool { return p.Setter == nil }

type Param struct {
	Name string
	Type TypeRef
}

// Method is a method when it belongs to a TypeDecl and a function when it
// is a top-level declaration. A nil Body means abstract.
type Method struct {
	Name        string
	Doc         string
	Params      []Param
	Results     []Param
	Body        []Stmt
	Static      bool
	Annotations []string
}

func (m *Method) DeclName() string { return m.Name }
func (*Method) decl()              {}

// Abstract reports whether m has no body.
func (m *Method) Abstract() bool { return m.Body == nil }

type Const struct {
	Name  string
	Type  TypeRef
	Value Expr
}

func (c *Const) DeclName() string { return c.Name }
func (*Const) decl()              {}

// TypeRef names a type. Elem is set for lists; Pointer marks a reference.
type TypeRef struct {
	Name    string
	Args    []TypeRef
	Elem    *TypeRef
	Pointer bool
}

func Named(name string, args ...TypeRef) TypeRef { return TypeRef{Name: name, Args: args} }

func ListOf(elem TypeRef) TypeRef { return TypeRef{Elem: &elem} }

func PointerTo(t TypeRef) TypeRef {
	t.Pointer = true
	return t
}

func (t TypeRef) IsZero() bool { return t.Name == "" && t.Elem == nil }

func (t TypeRef) String() string {
	var s string
	switch {
	case t.Elem != nil:
		s = "[]" + t.Elem.String()
	default:
		s = t.Name
		if len(t.Args) > 0 {
			s += "["
			for i, a := range t.Args {
				if i > 0 {
					s += ", "
				}
				s += a.String()
			}
			s += "]"
		}
	}
	if t.Pointer {
		s = "*" + s
	}
	return s
}
