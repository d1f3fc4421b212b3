package apiserver

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

var programs sync.Map // expression -> *vm.Program

func program(expression string) (*vm.Program, error) {
	if p, ok := programs.Load(expression); ok {
		return p.(*vm.Program), nil
	}
	p, err := expr.Compile(expression, expr.Env(map[string]any{"result": nil}), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("response mapping %q: %w", expression, err)
	}
	actual, _ := programs.LoadOrStore(expression, p)
	return actual.(*vm.Program), nil
}

// MapResponse evaluates a response mapping expression against the value a
// host member returned. The host value is bound to "result".
func MapResponse[T any](expression string, result any) (T, error) {
	var zero T
	p, err := program(expression)
	if err != nil {
		return zero, err
	}
	out, err := expr.Run(p, map[string]any{"result": result})
	if err != nil {
		return zero, fmt.Errorf("response mapping %q: %w", expression, err)
	}
	if out == nil {
		return zero, nil
	}
	v, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("response mapping %q: got %T, want %T", expression, out, zero)
	}
	return v, nil
}
