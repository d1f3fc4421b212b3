// Package apiclient is the runtime generated feature clients are built on.
// It frames requests for a Transport, decodes responses into transfer
// objects and turns server faults back into typed errors.
package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Alia5/featurec/apitypes"
)

type metadataKey struct{}

// WithMetadata attaches the value of a metadata item to every call made
// with the returned context.
func WithMetadata(ctx context.Context, identifier string, value any) context.Context {
	prev, _ := ctx.Value(metadataKey{}).(map[string]any)
	next := make(map[string]any, len(prev)+1)
	for k, v := range prev {
		next[k] = v
	}
	next[identifier] = value
	return context.WithValue(ctx, metadataKey{}, next)
}

func envelope(ctx context.Context, request any) (apitypes.Envelope, error) {
	var env apitypes.Envelope
	if request != nil {
		b, err := json.Marshal(request)
		if err != nil {
			return env, fmt.Errorf("encode request: %w", err)
		}
		env.Request = b
	}
	md, _ := ctx.Value(metadataKey{}).(map[string]any)
	for id, v := range md {
		b, err := json.Marshal(v)
		if err != nil {
			return env, fmt.Errorf("encode metadata %s: %w", id, err)
		}
		if env.Metadata == nil {
			env.Metadata = map[string]json.RawMessage{}
		}
		env.Metadata[id] = b
	}
	return env, nil
}

func parse[T any](raw json.RawMessage) (T, error) {
	var out T
	if len(raw) == 0 || string(raw) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// Execute runs an unobservable command and decodes its response.
func Execute[Resp any](ctx context.Context, t Transport, command string, request any) (Resp, error) {
	var zero Resp
	env, err := envelope(ctx, request)
	if err != nil {
		return zero, err
	}
	raw, err := t.Call(ctx, apitypes.Path(apitypes.VerbExecute, command), env, nil)
	if err != nil {
		return zero, err
	}
	return parse[Resp](raw)
}

// Call runs a command without responses.
func Call(ctx context.Context, t Transport, command string, request any) error {
	_, err := Execute[json.RawMessage](ctx, t, command, request)
	return err
}

// ExecuteObservable starts an observable command. Intermediate responses
// are decoded as ID and converted by intermediate, the final response is
// decoded as RD and converted by result. A nil converter yields the zero
// value. Failures pass through convert.
func ExecuteObservable[ID, RD, I, R any](
	ctx context.Context,
	t Transport,
	command string,
	request any,
	intermediate func(ID) I,
	result func(RD) R,
	convert func(error) error,
) *apitypes.Execution[I, R] {
	return apitypes.Start(ctx, func(ctx context.Context, emit func(I)) (R, error) {
		var zero R
		env, err := envelope(ctx, request)
		if err != nil {
			return zero, err
		}
		var decodeErr error
		raw, err := t.Call(ctx, apitypes.Path(apitypes.VerbExecute, command), env, func(data json.RawMessage) {
			v, err := parse[ID](data)
			if err != nil {
				decodeErr = errors.Join(decodeErr, err)
				return
			}
			if intermediate != nil {
				emit(intermediate(v))
			}
		})
		if err == nil {
			err = decodeErr
		}
		if err != nil {
			if convert != nil {
				err = convert(err)
			}
			return zero, err
		}
		out, err := parse[RD](raw)
		if err != nil || result == nil {
			return zero, err
		}
		return result(out), nil
	})
}

// Read fetches the current value of a property.
func Read[V any](ctx context.Context, t Transport, property string) (V, error) {
	var zero V
	env, err := envelope(ctx, nil)
	if err != nil {
		return zero, err
	}
	raw, err := t.Call(ctx, apitypes.Path(apitypes.VerbRead, property), env, nil)
	if err != nil {
		return zero, ConvertError(err)
	}
	return parse[V](raw)
}

// Subscribe delivers every value of an observable property to update until
// ctx ends. It returns ctx.Err() when the subscription was cancelled.
func Subscribe[V any](ctx context.Context, t Transport, property string, update func(V)) error {
	env, err := envelope(ctx, nil)
	if err != nil {
		return err
	}
	var decodeErr error
	_, err = t.Call(ctx, apitypes.Path(apitypes.VerbSubscribe, property), env, func(data json.RawMessage) {
		v, err := parse[V](data)
		if err != nil {
			decodeErr = err
			return
		}
		update(v)
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return ConvertError(err)
	}
	return decodeErr
}

// ConvertError turns a fault into its typed error. Other errors are
// returned unchanged.
func ConvertError(err error) error {
	var f apitypes.Fault
	if errors.As(err, &f) {
		return f.Err()
	}
	return err
}

// IsDefined reports whether err is the declared execution error identifier.
func IsDefined(err error, identifier string) bool {
	var de *apitypes.DefinedExecutionError
	return errors.As(err, &de) && strings.EqualFold(de.Identifier, identifier)
}

// Message is the message a server attached to err.
func Message(err error) string {
	var de *apitypes.DefinedExecutionError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}
