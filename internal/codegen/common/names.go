package common

// DtoSuffix ends every generated transfer object name. Data type
// identifiers may not use it.
const DtoSuffix = "Dto"

func RequestDto(command string) string { return command + "Request" + DtoSuffix }

func ResponseDto(command string) string { return command + "Response" + DtoSuffix }

func IntermediateDto(command string) string { return command + "IntermediateResponse" + DtoSuffix }

func PropertyDto(property string) string { return property + "Response" + DtoSuffix }

func TypeDto(dataType string) string { return dataType + DtoSuffix }

// AnonymousType names the value type of an inline structure at position pos.
func AnonymousType(pos string) string { return pos + "Struct" }

func AnonymousDto(pos string) string { return AnonymousType(pos) + DtoSuffix }

func ErrorName(id string) string { return id + "Error" }

func ClientName(iface string) string { return iface + "Client" }

func ServerName(iface string) string { return iface + "Server" }

// ResultName names the value type bundling several responses of an
// observable command.
func ResultName(command string) string { return command + "Result" }

// Identifier constants, shared by every unit of a namespace.

func FeatureConst(feature string) string { return feature + "FeatureIdentifier" }

func CommandConst(command string) string { return command + "CommandIdentifier" }

func PropertyConst(property string) string { return property + "PropertyIdentifier" }

func MetadataConst(metadata string) string { return metadata + "MetadataIdentifier" }

func ErrorConst(id string) string { return id + "ErrorIdentifier" }

// DtoConstructor builds a transfer object from a host value.
func DtoConstructor(dto string) string { return "New" + dto }

// ExtractMethod converts a transfer object back into its host value.
const ExtractMethod = "Extract"

// ValidateMethod lists constraint violations of a transfer object.
const ValidateMethod = "Validate"
