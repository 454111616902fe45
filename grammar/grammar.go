package grammar

// Grammar for the type descriptor strings found in the `type` attributes of
// the legacy solc AST, e.g.
//
//	uint256[] storage ref
//	struct Token.Balance memory
//	mapping(address => mapping(address => uint256))
//	function (uint256,bool) external returns (address)
//	tuple(uint256,bool)

// Descriptor is a base type followed by array dimensions and data location words.
type Descriptor struct {
	Base     *Base     `@@`
	Suffixes []*Suffix `{ @@ }`
}

type Base struct {
	Mapping  *MappingDesc  `  @@`
	Function *FunctionDesc `| @@`
	Tuple    *TupleDesc    `| @@`
	Named    *NamedDesc    `| @@`
}

type Suffix struct {
	Dim      *Dim   `  @@`
	Location string `| @("storage" | "memory" | "calldata")`
	Pointer  string `| @("ref" | "pointer" | "slice")`
	Payable  bool   `| @"payable"`
}

type Dim struct {
	Length string `"[" [ @Int ] "]"`
}

type MappingDesc struct {
	Key   *Descriptor `"mapping" "(" @@`
	Value *Descriptor `"=>" @@ ")"`
}

type FunctionDesc struct {
	Params    []*Descriptor `"function" "(" [ @@ { "," @@ } ] ")"`
	Modifiers []string      `{ @("external" | "internal" | "public" | "private" | "pure" | "view" | "constant" | "payable" | "nonpayable") }`
	Returns   []*Descriptor `[ "returns" "(" [ @@ { "," @@ } ] ")" ]`
}

type TupleDesc struct {
	Elems []*Descriptor `"tuple" "(" [ @@ { "," @@ } ] ")"`
}

// NamedDesc is an elementary or user-defined name, optionally tagged with its
// declaration kind and qualified by its contract ("struct Token.Balance").
type NamedDesc struct {
	Kind string   `[ @("struct" | "enum" | "contract" | "library" | "interface") ]`
	Path []string `@Ident { "." @Ident }`
}
