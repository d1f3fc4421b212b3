package feature

import "strings"

// FullyQualifiedIdentifier is originator/category/identifier/vMAJOR.
func (d *Definition) FullyQualifiedIdentifier() string {
	return strings.Join([]string{d.Originator, d.Category, d.Identifier, "v" + d.MajorVersion()}, "/")
}

// ItemIdentifier is the fully qualified identifier of an item of this feature.
func (d *Definition) ItemIdentifier(kind ItemKind, identifier string) string {
	return d.FullyQualifiedIdentifier() + "/" + kind.String() + "/" + identifier
}

func (d *Definition) ParameterIdentifier(command, parameter string) string {
	return d.ItemIdentifier(KindCommand, command) + "/Parameter/" + parameter
}

func (d *Definition) ResponseIdentifier(command, response string) string {
	return d.ItemIdentifier(KindCommand, command) + "/Response/" + response
}

func (d *Definition) IntermediateResponseIdentifier(command, response string) string {
	return d.ItemIdentifier(KindCommand, command) + "/IntermediateResponse/" + response
}
