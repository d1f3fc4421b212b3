// Package registry records how lowered feature items map back to the host
// members they came from: renames, concrete type overrides, member bindings
// and constructor bindings. Lowering writes it; emitters read it after Freeze.
package registry

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/Alia5/featurec/internal/codegen/feature"
	"github.com/Alia5/featurec/internal/host"
)

var (
	ErrFrozen   = errors.New("registry is frozen")
	ErrConflict = errors.New("conflicting registry entry")
)

// Origin builds the dotted key of a feature item or one of its parts, e.g.
// "Greeter.Command.SayHello.Parameter.Name".
func Origin(featureID string, kind feature.ItemKind, item string, parts ...string) string {
	return strings.Join(append([]string{featureID, kind.String(), item}, parts...), ".")
}

func ParameterOrigin(featureID, command, param string) string {
	return Origin(featureID, feature.KindCommand, command, "Parameter", param)
}

func ResponseOrigin(featureID, command, response string) string {
	return Origin(featureID, feature.KindCommand, command, "Response", response)
}

func IntermediateOrigin(featureID, command, response string) string {
	return Origin(featureID, feature.KindCommand, command, "IntermediateResponse", response)
}

// FieldOrigin keys a field of a structure data type.
func FieldOrigin(featureID, dataType, field string) string {
	return Origin(featureID, feature.KindDataType, dataType, "Field", field)
}

type BindingKind int

const (
	// BindingCommand binds a command to a host method.
	BindingCommand BindingKind = iota
	// BindingProperty binds a property to a host property or field.
	BindingProperty
	// BindingMethodProperty binds a property to a parameterless host method.
	BindingMethodProperty
	// BindingPropertyAsMethod binds a command to a host property getter.
	BindingPropertyAsMethod
	// BindingPropertySetter binds a setter command to a writable host property.
	BindingPropertySetter
	// BindingInterceptor binds a metadata item to a host interceptor member.
	BindingInterceptor
)

// MemberBinding describes the host member behind a command or property.
type MemberBinding struct {
	Kind BindingKind
	// Member is the host member name.
	Member string
	// Shape is the host return shape of a command.
	Shape host.Shape
	// Cancellation is set when the host method takes a cancellation carrier.
	Cancellation bool
	// Nonstandard is set when Shape is not the shape the feature item implies.
	Nonstandard bool
	// ResponseExpr maps the host result to the response value.
	ResponseExpr string
	// Property is the property a setter command writes.
	Property string
	Lazy     bool
}

// ConstructorBinding is the static factory used to build a structure type.
type ConstructorBinding struct {
	Method string
	Params []string
}

// TypeOverride is the concrete host type of an element whose feature type
// does not pin it down.
type TypeOverride struct {
	Type string
}

// Reader is the read-only view emitters use.
type Reader interface {
	Rename(origin string) (string, bool)
	Type(origin string) (TypeOverride, bool)
	Binding(origin string) (MemberBinding, bool)
	Constructor(origin string) (ConstructorBinding, bool)
}

// Registry is safe for concurrent use.
type Registry struct {
	mu           sync.RWMutex
	frozen       bool
	renames      map[string]string
	types        map[string]TypeOverride
	bindings     map[string]MemberBinding
	constructors map[string]ConstructorBinding
}

func New() *Registry {
	return &Registry{
		renames:      make(map[string]string),
		types:        make(map[string]TypeOverride),
		bindings:     make(map[string]MemberBinding),
		constructors: make(map[string]ConstructorBinding),
	}
}

// Empty is a frozen registry without entries.
var Empty Reader = New().Freeze()

func set[V any](r *Registry, m map[string]V, what, origin string, v V) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return fmt.Errorf("%w: set %s %s", ErrFrozen, what, origin)
	}
	if old, ok := m[origin]; ok {
		if reflect.DeepEqual(old, v) {
			return nil
		}
		return fmt.Errorf("%w: %s %s already recorded", ErrConflict, what, origin)
	}
	m[origin] = v
	return nil
}

func get[V any](r *Registry, m map[string]V, origin string) (V, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := m[origin]
	return v, ok
}

func (r *Registry) SetRename(origin, hostName string) error {
	return set(r, r.renames, "rename", origin, hostName)
}

func (r *Registry) SetType(origin string, o TypeOverride) error {
	return set(r, r.types, "type override", origin, o)
}

func (r *Registry) SetBinding(origin string, b MemberBinding) error {
	return set(r, r.bindings, "member binding", origin, b)
}

func (r *Registry) SetConstructor(origin string, c ConstructorBinding) error {
	return set(r, r.constructors, "constructor binding", origin, c)
}

// Freeze makes r read-only and returns it.
func (r *Registry) Freeze() *Registry {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frozen = true
	return r
}

func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

func (r *Registry) Rename(origin string) (string, bool) { return get(r, r.renames, origin) }

func (r *Registry) Type(origin string) (TypeOverride, bool) { return get(r, r.types, origin) }

func (r *Registry) Binding(origin string) (MemberBinding, bool) { return get(r, r.bindings, origin) }

func (r *Registry) Constructor(origin string) (ConstructorBinding, bool) {
	return get(r, r.constructors, origin)
}

// Len is the total number of entries.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.renames) + len(r.types) + len(r.bindings) + len(r.constructors)
}

// StandardShape is the host shape a command implies when nothing else is known.
func StandardShape(c *feature.Command) host.Shape {
	switch {
	case !c.Observable && len(c.Responses) == 0:
		return host.ShapeVoid
	case !c.Observable:
		return host.ShapeSync
	case len(c.IntermediateResponses) > 0 && len(c.Responses) > 0:
		return host.ShapeIntermediateResult
	case len(c.IntermediateResponses) > 0:
		return host.ShapeIntermediate
	case len(c.Responses) > 0:
		return host.ShapeObservableResult
	}
	return host.ShapeObservable
}
