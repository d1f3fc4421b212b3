package codeunit

// Stmt is implemented by the statement node types of this package.
type Stmt interface{ stmt() }

// Expr is implemented by the expression node types of this package.
type Expr interface{ expr() }

type (
	// Var declares Name, optionally typed and initialized.
	Var struct {
		Name  string
		Type  TypeRef
		Value Expr
	}
	Assign struct {
		Target Expr
		Value  Expr
	}
	Return struct{ Values []Expr }
	If     struct {
		Cond Expr
		Then []Stmt
		Else []Stmt
	}
	ForEach struct {
		Key, Value string
		Over       Expr
		Body       []Stmt
	}
	// Try runs Body and dispatches failures to the first matching Catch.
	Try struct {
		Body    []Stmt
		Catches []Catch
	}
	Catch struct {
		Type TypeRef
		Name string
		Body []Stmt
	}
	Throw    struct{ Value Expr }
	ExprStmt struct{ X Expr }
	// Lock runs Body while holding the lock named by Token.
	Lock struct {
		Token Expr
		Body  []Stmt
	}
	Comment struct{ Text string }
)

func (*Var) stmt()      {}
func (*Assign) stmt()   {}
func (*Return) stmt()   {}
func (*If) stmt()       {}
func (*ForEach) stmt()  {}
func (*Try) stmt()      {}
func (*Throw) stmt()    {}
func (*ExprStmt) stmt() {}
func (*Lock) stmt()     {}
func (*Comment) stmt()  {}

type (
	Ident struct{ Name string }
	// Lit is a literal of a string, bool, integer or float value.
	Lit struct{ Value any }
	Sel struct {
		X    Expr
		Name string
	}
	Call struct {
		Fun      Expr
		TypeArgs []TypeRef
		Args     []Expr
	}
	// New builds a value of Type from named field values.
	New struct {
		Type   TypeRef
		Fields []FieldValue
	}
	FieldValue struct {
		Name  string
		Value Expr
	}
	Binary struct {
		Op   string
		X, Y Expr
	}
	Unary struct {
		Op string
		X  Expr
	}
	Lambda struct {
		Params  []Param
		Results []Param
		Body    []Stmt
	}
	Index struct{ X, Index Expr }
	Cast  struct {
		Type TypeRef
		X    Expr
	}
	// ListLit is a list literal of element type Elem.
	ListLit struct {
		Elem  TypeRef
		Items []Expr
	}
	// This is the receiver of the enclosing method.
	This struct{}
	Nil  struct{}
)

func (*Ident) expr()   {}
func (*Lit) expr()     {}
func (*Sel) expr()     {}
func (*Call) expr()    {}
func (*New) expr()     {}
func (*Binary) expr()  {}
func (*Unary) expr()   {}
func (*Lambda) expr()  {}
func (*Index) expr()   {}
func (*Cast) expr()    {}
func (*ListLit) expr() {}
func (*This) expr()    {}
func (*Nil) expr()     {}

func Id(name string) *Ident { return &Ident{Name: name} }

func Str(s string) *Lit { return &Lit{Value: s} }

func Int(i int) *Lit { return &Lit{Value: i} }

func Dot(x Expr, name string) *Sel { return &Sel{X: x, Name: name} }

// Self selects a member of the receiver.
func Self(name string) *Sel { return &Sel{X: &This{}, Name: name} }

func CallOf(fun Expr, args ...Expr) *Call { return &Call{Fun: fun, Args: args} }

// Q names a package-qualified identifier such as apitypes.CheckPattern.
func Q(pkg, name string) *Sel { return &Sel{X: Id(pkg), Name: name} }

func Do(x Expr) *ExprStmt { return &ExprStmt{X: x} }

func Ret(values ...Expr) *Return { return &Return{Values: values} }

func Set(target, value Expr) *Assign { return &Assign{Target: target, Value: value} }

func Define(name string, value Expr) *Var { return &Var{Name: name, Value: value} }

func IsNil(x Expr) *Binary { return &Binary{Op: "==", X: x, Y: &Nil{}} }

func NotNil(x Expr) *Binary { return &Binary{Op: "!=", X: x, Y: &Nil{}} }
