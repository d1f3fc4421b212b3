package apitypes

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FaultKind names the category of a fault reported by a feature server.
type FaultKind string

const (
	FaultValidation FaultKind = "validation"
	FaultDefined    FaultKind = "defined"
	FaultUndefined  FaultKind = "undefined"
	FaultFramework  FaultKind = "framework"
)

// Fault is the wire representation of every error a feature server reports.
type Fault struct {
	Kind FaultKind `json:"kind"`
	// Identifier is the fully qualified identifier of a defined execution error.
	Identifier string `json:"identifier,omitempty"`
	// Parameter is the fully qualified identifier of the offending parameter.
	Parameter string `json:"parameter,omitempty"`
	Message   string `json:"message"`
}

func (f Fault) Error() string {
	switch {
	case f.Identifier != "":
		return fmt.Sprintf("%s %s: %s", f.Kind, f.Identifier, f.Message)
	case f.Parameter != "":
		return fmt.Sprintf("%s %s: %s", f.Kind, f.Parameter, f.Message)
	case f.Kind == "":
		return "unknown fault"
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Message)
}

// Err converts the fault into the matching typed error.
func (f Fault) Err() error {
	switch f.Kind {
	case FaultValidation:
		return &ValidationError{Parameter: f.Parameter, Message: f.Message}
	case FaultDefined:
		return &DefinedExecutionError{Identifier: f.Identifier, Message: f.Message}
	case FaultFramework:
		return &FrameworkError{Kind: FrameworkErrorKind(f.Identifier), Message: f.Message}
	}
	return &UndefinedExecutionError{Message: f.Message}
}

// UnmarshalJSON accepts a bare string as an undefined fault so that servers
// which only report a message are still understood.
func (f *Fault) UnmarshalJSON(data []byte) error {
	var msg string
	if err := json.Unmarshal(data, &msg); err == nil {
		*f = Fault{Kind: FaultUndefined, Message: msg}
		return nil
	}
	type plain Fault
	var raw plain
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("fault: %w", err)
	}
	if raw.Kind == "" {
		raw.Kind = FaultUndefined
	}
	*f = Fault(raw)
	return nil
}

// FaultOf classifies err into a Fault. Unknown errors become undefined faults.
func FaultOf(err error) Fault {
	var (
		ve *ValidationError
		de *DefinedExecutionError
		fe *FrameworkError
		ue *UndefinedExecutionError
		f  Fault
	)
	switch {
	case err == nil:
		return Fault{}
	case errors.As(err, &ve):
		return Fault{Kind: FaultValidation, Parameter: ve.Parameter, Message: ve.Message}
	case errors.As(err, &de):
		return Fault{Kind: FaultDefined, Identifier: de.Identifier, Message: de.Message}
	case errors.As(err, &fe):
		return Fault{Kind: FaultFramework, Identifier: string(fe.Kind), Message: fe.Message}
	case errors.As(err, &ue):
		return Fault{Kind: FaultUndefined, Message: ue.Message}
	case errors.As(err, &f):
		return f
	}
	return Fault{Kind: FaultUndefined, Message: err.Error()}
}

// DefinedExecutionError is an error declared by the feature definition.
type DefinedExecutionError struct {
	Identifier string `json:"identifier"`
	Message    string `json:"message"`
}

func (e *DefinedExecutionError) Error() string {
	if e.Message == "" {
		return e.Identifier
	}
	return e.Identifier + ": " + e.Message
}

// ValidationError reports a parameter that violates its constraints.
type ValidationError struct {
	Parameter string `json:"parameter"`
	Message   string `json:"message"`
}

// NewValidationError joins the individual constraint problems into one error.
func NewValidationError(parameter string, problems []string) *ValidationError {
	return &ValidationError{Parameter: parameter, Message: strings.Join(problems, "; ")}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Parameter, e.Message)
}

// UndefinedExecutionError wraps any failure the feature did not declare.
type UndefinedExecutionError struct {
	Message string `json:"message"`
}

func (e *UndefinedExecutionError) Error() string { return "undefined execution error: " + e.Message }

type FrameworkErrorKind string

const (
	CommandExecutionNotAccepted  FrameworkErrorKind = "CommandExecutionNotAccepted"
	InvalidCommandExecutionUUID  FrameworkErrorKind = "InvalidCommandExecutionUUID"
	CommandExecutionNotFinished  FrameworkErrorKind = "CommandExecutionNotFinished"
	InvalidMetadata              FrameworkErrorKind = "InvalidMetadata"
	NoMetadataAllowed            FrameworkErrorKind = "NoMetadataAllowed"
	UnimplementedFeatureElement  FrameworkErrorKind = "UnimplementedFeatureElement"
	CommandExecutionNotCancelled FrameworkErrorKind = "CommandExecutionNotCancelled"
	// AuthenticationFailed is reported by a server that requires a key
	// when the client's handshake is missing or wrong.
	AuthenticationFailed FrameworkErrorKind = "AuthenticationFailed"
)

// FrameworkError is raised by the runtime itself rather than by an implementation.
type FrameworkError struct {
	Kind    FrameworkErrorKind `json:"kind"`
	Message string             `json:"message"`
}

func (e *FrameworkError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }
