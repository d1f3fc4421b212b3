// Package apiserver is the runtime generated feature servers are built on.
// Generated servers report their commands, properties and metadata to a
// Registrar; Router dispatches requests to them and Server exposes a Router
// over TCP.
package apiserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Alia5/featurec/apitypes"
)

// Emitter receives the intermediate responses of a running command.
type Emitter func(any)

// CommandHandler executes a command from its encoded request.
type CommandHandler func(ctx context.Context, request json.RawMessage, emit Emitter) (any, error)

// PropertyHandler reads the current value of a property.
type PropertyHandler func(ctx context.Context) (any, error)

// Registrar collects the features a server exposes.
type Registrar interface {
	// RegisterCommand adds a command. binary lists the fully qualified
	// identifiers of parameters that travel out of band.
	RegisterCommand(identifier string, observable bool, handler CommandHandler, binary []string)
	RegisterProperty(identifier string, observable bool, handler PropertyHandler)
	RegisterMetadata(identifier string, interceptor apitypes.Interceptor)
}

func decode[Req any](raw json.RawMessage) (*Req, error) {
	req := new(Req)
	if len(raw) == 0 || string(raw) == "null" {
		return req, nil
	}
	if err := json.Unmarshal(raw, req); err != nil {
		return nil, &apitypes.FrameworkError{Kind: apitypes.CommandExecutionNotAccepted, Message: fmt.Sprintf("decode request: %v", err)}
	}
	return req, nil
}

// Command adapts a generated dispatch method to a CommandHandler.
func Command[Req, Resp any](fn func(ctx context.Context, request *Req, emit Emitter) (Resp, error)) CommandHandler {
	return func(ctx context.Context, raw json.RawMessage, emit Emitter) (any, error) {
		req, err := decode[Req](raw)
		if err != nil {
			return nil, err
		}
		return fn(ctx, req, emit)
	}
}

// Void adapts a dispatch method of a command without responses.
func Void[Req any](fn func(ctx context.Context, request *Req, emit Emitter) error) CommandHandler {
	return func(ctx context.Context, raw json.RawMessage, emit Emitter) (any, error) {
		req, err := decode[Req](raw)
		if err != nil {
			return nil, err
		}
		return nil, fn(ctx, req, emit)
	}
}

// Property adapts a generated read method to a PropertyHandler.
func Property[T any](fn func(ctx context.Context) (T, error)) PropertyHandler {
	return func(ctx context.Context) (any, error) { return fn(ctx) }
}

// Forward converts every value of ch and emits it until ch is closed or
// ctx ends.
func Forward[I, D any](ctx context.Context, ch <-chan I, emit Emitter, conv func(I) D) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-ch:
			if !ok {
				return nil
			}
			emit(conv(v))
		}
	}
}
