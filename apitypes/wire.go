package apitypes

import (
	"encoding/json"
	"strings"
)

// Verbs prefix the identifier of every request path.
const (
	VerbExecute   = "execute"
	VerbRead      = "read"
	VerbSubscribe = "subscribe"
)

// Path builds the request path for verb on a fully qualified identifier.
func Path(verb, identifier string) string { return verb + "/" + identifier }

// SplitPath is the inverse of Path.
func SplitPath(path string) (verb, identifier string, ok bool) {
	return strings.Cut(path, "/")
}

// Envelope is the payload of every request.
type Envelope struct {
	// Metadata maps fully qualified metadata identifiers to their values.
	Metadata map[string]json.RawMessage `json:"metadata,omitempty"`
	Request  json.RawMessage            `json:"request,omitempty"`
}

type FrameKind string

const (
	FrameIntermediate FrameKind = "intermediate"
	FrameValue        FrameKind = "value"
	FrameResult       FrameKind = "result"
	FrameFault        FrameKind = "fault"
)

// Frame is one response line. A result or fault frame ends the exchange.
type Frame struct {
	Kind  FrameKind       `json:"kind"`
	Data  json.RawMessage `json:"data,omitempty"`
	Fault *Fault          `json:"fault,omitempty"`
}

// Final reports whether no frame follows f.
func (f Frame) Final() bool { return f.Kind == FrameResult || f.Kind == FrameFault }
