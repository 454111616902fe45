package errors

// Error codes for the solcheck analysis pipeline
// These codes are used in error messages and documentation
// to provide consistent error identification across the toolchain.
//
// Error code ranges:
// E0001-E0099: Structural errors (malformed or unsupported input tree)
// E0100-E0199: Type resolution errors
// E0200-E0299: Scheduling errors
// E0300-E0399: IR lowering errors
// E0400-E0499: Dataflow errors
// E0500-E0799: Reserved for future use
// E0800-E0899: Warning codes
// E0900-E0999: Tooling and configuration errors

const (
	// E0001: The input could not be decoded at all
	ErrorMalformedInput = "E0001"

	// E0002: A node is missing a required attribute or child
	ErrorMalformedNode = "E0002"

	// E0003: An identifier does not refer to any visible declaration
	ErrorUnresolvedIdentifier = "E0003"

	// E0004: linearizedBaseContracts names a contract that is not in the unit
	ErrorMissingAncestor = "E0004"

	// E0005: A node kind the analyzer does not handle in this position
	ErrorUnsupportedNode = "E0005"

	// E0101: A type name exhausted every resolution step
	ErrorTypeNotFound = "E0101"

	// E0102: A type descriptor string could not be parsed
	ErrorMalformedTypeDescriptor = "E0102"

	// E0201: The inheritance graph contains a cycle
	ErrorInheritanceCycle = "E0201"

	// E0301: A call whose target cannot be classified
	ErrorUnknownCallTarget = "E0301"

	// E0302: An expression shape lowering does not support
	ErrorUnsupportedExpression = "E0302"

	// E0303: The binding assignment does not immediately precede a member access on a call result
	ErrorMemberOrdering = "E0303"

	// E0304: An operand's type string cannot be resolved while lowering
	ErrorUntypedOperand = "E0304"

	// E0401: A dataflow problem exceeded its per-node visit bound
	ErrorDataflowNonTermination = "E0401"

	// E0402: Dataflow exploration exceeded the depth guard
	ErrorDataflowDepth = "E0402"

	// E0801: A declaration was skipped because it failed in isolation mode
	WarningIsolatedFailure = "E0801"

	// E0802: A using-for directive names a library that is not in the unit
	WarningUnknownLibrary = "E0802"

	// E0901: Invalid configuration value
	ErrorInvalidConfig = "E0901"
)

// GetErrorDescription returns a human-readable description of the error code
func GetErrorDescription(code string) string {
	switch code {
	case ErrorMalformedInput:
		return "The syntax tree could not be decoded"
	case ErrorMalformedNode:
		return "A syntax tree node is missing required data"
	case ErrorUnresolvedIdentifier:
		return "Identifier does not refer to any visible declaration"
	case ErrorMissingAncestor:
		return "Inheritance list refers to a contract outside the unit"
	case ErrorUnsupportedNode:
		return "Syntax tree node is not supported here"
	case ErrorTypeNotFound:
		return "Type name could not be resolved"
	case ErrorMalformedTypeDescriptor:
		return "Type descriptor string is malformed"
	case ErrorInheritanceCycle:
		return "Contracts inherit from each other in a cycle"
	case ErrorUnknownCallTarget:
		return "Call target could not be determined"
	case ErrorUnsupportedExpression:
		return "Expression cannot be lowered to IR"
	case ErrorMemberOrdering:
		return "Member access on a call result is not preceded by its binding"
	case ErrorUntypedOperand:
		return "Operand type could not be determined during lowering"
	case ErrorDataflowNonTermination:
		return "Dataflow analysis did not reach a fixpoint within its bound"
	case ErrorDataflowDepth:
		return "Dataflow exploration is too deep"
	case WarningIsolatedFailure:
		return "Contract skipped after an isolated failure"
	case WarningUnknownLibrary:
		return "Using-for directive names an unknown library"
	case ErrorInvalidConfig:
		return "Configuration value is invalid"
	default:
		return "Unknown error code"
	}
}

// IsWarning returns true if the error code represents a warning rather than an error
func IsWarning(code string) bool {
	return code >= "E0800" && code < "E0900"
}

// GetErrorCategory returns the category of the error based on its code
func GetErrorCategory(code string) string {
	switch {
	case code >= "E0001" && code < "E0100":
		return "Structure"
	case code >= "E0100" && code < "E0200":
		return "Type Resolution"
	case code >= "E0200" && code < "E0300":
		return "Scheduling"
	case code >= "E0300" && code < "E0400":
		return "IR Lowering"
	case code >= "E0400" && code < "E0500":
		return "Dataflow"
	case code >= "E0800" && code < "E0900":
		return "Warning"
	case code >= "E0900" && code < "E1000":
		return "Tooling"
	default:
		return "Unknown"
	}
}
