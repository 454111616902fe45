package ast

// Node kinds of the legacy solc AST.
const (
	SourceUnit         = "SourceUnit"
	PragmaDirective    = "PragmaDirective"
	ImportDirective    = "ImportDirective"
	ContractDefinition = "ContractDefinition"
	InheritanceSpec    = "InheritanceSpecifier"
	UsingForDirective  = "UsingForDirective"
	StructDefinition   = "StructDefinition"
	EnumDefinition     = "EnumDefinition"
	EnumValue          = "EnumValue"
	EventDefinition    = "EventDefinition"
	VariableDecl       = "VariableDeclaration"
	FunctionDefinition = "FunctionDefinition"
	ModifierDefinition = "ModifierDefinition"
	ModifierInvocation = "ModifierInvocation"
	ParameterList      = "ParameterList"

	// Type names
	ElementaryTypeName  = "ElementaryTypeName"
	UserDefinedTypeName = "UserDefinedTypeName"
	ArrayTypeName       = "ArrayTypeName"
	Mapping             = "Mapping"
	FunctionTypeName    = "FunctionTypeName"

	// Statements
	Block                 = "Block"
	IfStatement           = "IfStatement"
	WhileStatement        = "WhileStatement"
	DoWhileStatement      = "DoWhileStatement"
	ForStatement          = "ForStatement"
	Continue              = "Continue"
	Break                 = "Break"
	Return                = "Return"
	Throw                 = "Throw"
	EmitStatement         = "EmitStatement"
	InlineAssembly        = "InlineAssembly"
	ExpressionStatement   = "ExpressionStatement"
	PlaceholderStatement  = "PlaceholderStatement"
	VariableDeclStatement = "VariableDeclarationStatement"
	VariableDefStatement  = "VariableDefinitionStatement"

	// Expressions
	Assignment                   = "Assignment"
	BinaryOperation              = "BinaryOperation"
	UnaryOperation               = "UnaryOperation"
	Conditional                  = "Conditional"
	FunctionCall                 = "FunctionCall"
	TupleExpression              = "TupleExpression"
	Literal                      = "Literal"
	Identifier                   = "Identifier"
	IndexAccess                  = "IndexAccess"
	MemberAccess                 = "MemberAccess"
	ElementaryTypeNameExpression = "ElementaryTypeNameExpression"
	NewExpression                = "NewExpression"
)

// IsTypeName reports whether kind names a type-name node.
func IsTypeName(kind string) bool {
	switch kind {
	case ElementaryTypeName, UserDefinedTypeName, ArrayTypeName, Mapping, FunctionTypeName:
		return true
	}
	return false
}
