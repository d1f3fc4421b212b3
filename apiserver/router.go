package apiserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/Alia5/featurec/apitypes"
)

type commandEntry struct {
	identifier string
	observable bool
	handler    CommandHandler
	binary     []string
}

type propertyEntry struct {
	identifier string
	observable bool
	handler    PropertyHandler
}

// Router maps fully qualified identifiers to handlers. Identifiers match
// case-insensitively. It is safe for concurrent use.
type Router struct {
	logger *slog.Logger

	mu          sync.RWMutex
	commands    map[string]commandEntry
	properties  map[string]propertyEntry
	metadata    map[string]apitypes.Interceptor
	subscribers map[string]map[chan struct{}]struct{}
}

type metadataKey struct{}

// NewRouter returns a new Router instance. A nil logger uses slog.Default.
func NewRouter(logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		logger:      logger,
		commands:    map[string]commandEntry{},
		properties:  map[string]propertyEntry{},
		metadata:    map[string]apitypes.Interceptor{},
		subscribers: map[string]map[chan struct{}]struct{}{},
	}
}

func key(identifier string) string { return strings.ToLower(identifier) }

func (r *Router) RegisterCommand(identifier string, observable bool, handler CommandHandler, binary []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[key(identifier)] = commandEntry{identifier: identifier, observable: observable, handler: handler, binary: binary}
	r.logger.Debug("registered command", "identifier", identifier, "observable", observable)
}

func (r *Router) RegisterProperty(identifier string, observable bool, handler PropertyHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties[key(identifier)] = propertyEntry{identifier: identifier, observable: observable, handler: handler}
	r.logger.Debug("registered property", "identifier", identifier, "observable", observable)
}

func (r *Router) RegisterMetadata(identifier string, interceptor apitypes.Interceptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metadata[key(identifier)] = interceptor
	r.logger.Debug("registered metadata", "identifier", identifier)
}

// Identifiers lists every registered command and property identifier in
// sorted order.
func (r *Router) Identifiers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for _, c := range r.commands {
		out = append(out, c.identifier)
	}
	for _, p := range r.properties {
		out = append(out, p.identifier)
	}
	sort.Strings(out)
	return out
}

// Binary lists the out-of-band parameters of a command.
func (r *Router) Binary(command string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[key(command)].binary
}

// Observable reports whether identifier names an observable command or property.
func (r *Router) Observable(identifier string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.commands[key(identifier)]; ok {
		return c.observable
	}
	return r.properties[key(identifier)].observable
}

// Notify tells every subscriber of an observable property to read it again.
func (r *Router) Notify(property string) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for ch := range r.subscribers[key(property)] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Metadata returns the raw value of a metadata item sent with the request
// being handled.
func Metadata(ctx context.Context, identifier string) (json.RawMessage, bool) {
	md, _ := ctx.Value(metadataKey{}).(map[string]json.RawMessage)
	v, ok := md[key(identifier)]
	return v, ok
}

// Dispatch handles one request. emit receives every intermediate response
// or subscription value; the final response is returned. Errors are
// returned as faults.
func (r *Router) Dispatch(ctx context.Context, path string, env apitypes.Envelope, emit func(json.RawMessage)) (json.RawMessage, error) {
	verb, identifier, ok := apitypes.SplitPath(path)
	if !ok || identifier == "" {
		return nil, *WrapError(errBadRequest("malformed path: " + path))
	}
	ctx, err := r.intercept(ctx, env.Metadata)
	if err != nil {
		return nil, *WrapError(err)
	}
	out, err := r.dispatch(ctx, verb, identifier, env.Request, emit)
	if err != nil {
		r.logger.Debug("dispatch failed", "path", path, "error", err)
		return nil, *WrapError(err)
	}
	return out, nil
}

func (r *Router) dispatch(ctx context.Context, verb, identifier string, request json.RawMessage, emit func(json.RawMessage)) (json.RawMessage, error) {
	r.mu.RLock()
	cmd, isCmd := r.commands[key(identifier)]
	prop, isProp := r.properties[key(identifier)]
	r.mu.RUnlock()

	switch {
	case verb == apitypes.VerbExecute && isCmd:
		out, err := cmd.handler(ctx, request, func(v any) {
			b, err := json.Marshal(v)
			if err != nil {
				r.logger.Warn("drop intermediate response", "command", identifier, "error", err)
				return
			}
			emit(b)
		})
		if err != nil {
			return nil, err
		}
		return encode(out)
	case verb == apitypes.VerbRead && isProp:
		out, err := prop.handler(ctx)
		if err != nil {
			return nil, UndefinedFault(err)
		}
		return encode(out)
	case verb == apitypes.VerbSubscribe && isProp:
		if !prop.observable {
			return nil, errBadRequest("property is not observable: " + identifier)
		}
		return nil, r.subscribe(ctx, prop, emit)
	}
	return nil, errNotFound(apitypes.Path(verb, identifier))
}

func (r *Router) subscribe(ctx context.Context, prop propertyEntry, emit func(json.RawMessage)) error {
	ch := make(chan struct{}, 1)
	k := key(prop.identifier)
	r.mu.Lock()
	if r.subscribers[k] == nil {
		r.subscribers[k] = map[chan struct{}]struct{}{}
	}
	r.subscribers[k][ch] = struct{}{}
	r.mu.Unlock()
	defer func() {
		r.mu.Lock()
		delete(r.subscribers[k], ch)
		r.mu.Unlock()
	}()

	for {
		v, err := prop.handler(ctx)
		if err != nil {
			return UndefinedFault(err)
		}
		b, err := encode(v)
		if err != nil {
			return err
		}
		emit(b)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

func (r *Router) intercept(ctx context.Context, md map[string]json.RawMessage) (context.Context, error) {
	if len(md) == 0 {
		return ctx, nil
	}
	values := make(map[string]json.RawMessage, len(md))
	for id, raw := range md {
		r.mu.RLock()
		ic, ok := r.metadata[key(id)]
		r.mu.RUnlock()
		if !ok {
			return ctx, &apitypes.FrameworkError{Kind: apitypes.NoMetadataAllowed, Message: "unknown metadata " + id}
		}
		if ic != nil {
			if err := ic.Intercept(ctx, id, raw); err != nil {
				return ctx, &apitypes.FrameworkError{Kind: apitypes.InvalidMetadata, Message: fmt.Sprintf("%s: %v", id, err)}
			}
		}
		values[key(id)] = raw
	}
	return context.WithValue(ctx, metadataKey{}, values), nil
}

func encode(v any) (json.RawMessage, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode response: %w", err)
	}
	return b, nil
}
