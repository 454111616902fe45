package grammar

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var DescriptorLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Keywords and identifiers (order matters)
	{Name: "Ident", Pattern: `[a-zA-Z_$][a-zA-Z0-9_$]*`},

	// Array lengths
	{Name: "Int", Pattern: `[0-9]+`},

	// Mapping arrow
	{Name: "Arrow", Pattern: `=>`},

	// Punctuation
	{Name: "Punctuation", Pattern: `[()\[\],.]`},

	// Whitespace
	{Name: "Whitespace", Pattern: `[ \t\r\n]+`},
})
