package apiserver

import "github.com/Alia5/featurec/apitypes"

// ValidationFault reports a parameter, or a whole request keyed by its
// command identifier, that violates its constraints.
func ValidationFault(parameter string, problems ...string) error {
	return apitypes.NewValidationError(parameter, problems)
}

// DefinedFault reports a declared execution error.
func DefinedFault(identifier, message string) error {
	return &apitypes.DefinedExecutionError{Identifier: identifier, Message: message}
}

// UndefinedFault wraps a failure the feature did not declare. Errors that
// already carry a fault kind are kept.
func UndefinedFault(err error) error {
	if err == nil {
		return nil
	}
	if f := apitypes.FaultOf(err); f.Kind != apitypes.FaultUndefined {
		return err
	}
	return &apitypes.UndefinedExecutionError{Message: err.Error()}
}

func errNotFound(path string) error {
	return &apitypes.FrameworkError{Kind: apitypes.UnimplementedFeatureElement, Message: "unknown path: " + path}
}

func errBadRequest(detail string) error {
	return &apitypes.FrameworkError{Kind: apitypes.CommandExecutionNotAccepted, Message: detail}
}

func errUnauthorized(detail string) error {
	return &apitypes.FrameworkError{Kind: apitypes.AuthenticationFailed, Message: detail}
}

// WrapError normalizes any error into a Fault.
func WrapError(err error) *apitypes.Fault {
	if err == nil {
		return nil
	}
	f := apitypes.FaultOf(err)
	return &f
}
