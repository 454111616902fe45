package core

import (
	"strings"

	"solcheck/internal/types"
)

// SolidityVariable is a language builtin such as msg.sender or now.
type SolidityVariable struct {
	Name string
}

func (v SolidityVariable) String() string { return v.Name }

func (v SolidityVariable) ValueType() types.Type {
	if t, ok := solidityVariables[v.Name]; ok && t != "" {
		return types.NewElementary(t)
	}
	return nil
}

// IsSender reports whether the variable carries a caller-controlled address.
func (v SolidityVariable) IsSender() bool {
	return v.Name == "msg.sender" || v.Name == "tx.origin"
}

// SolidityFunction is a language builtin function identified by its full signature.
type SolidityFunction struct {
	Signature string
}

func (f SolidityFunction) String() string { return f.Signature }

// Name returns the signature without its parameter list.
func (f SolidityFunction) Name() string {
	if i := strings.IndexByte(f.Signature, '('); i >= 0 {
		return f.Signature[:i]
	}
	return f.Signature
}

// Arity returns the declared number of parameters.
func (f SolidityFunction) Arity() int {
	params := f.Signature[strings.IndexByte(f.Signature, '(')+1 : len(f.Signature)-1]
	if params == "" {
		return 0
	}
	return strings.Count(params, ",") + 1
}

// ReturnTypes lists the builtin's return types.
func (f SolidityFunction) ReturnTypes() []string {
	return solidityFunctions[f.Signature]
}

// solidityVariables maps builtin names to their elementary type. Variables
// whose type is not elementary map to "".
var solidityVariables = map[string]string{
	"now":   "uint256",
	"this":  "address",
	"abi":   "",
	"msg":   "",
	"tx":    "",
	"block": "",
	"super": "",

	"block.coinbase":   "address",
	"block.difficulty": "uint256",
	"block.prevrandao": "uint256",
	"block.gaslimit":   "uint256",
	"block.number":     "uint256",
	"block.timestamp":  "uint256",
	"block.chainid":    "uint256",
	"block.basefee":    "uint256",
	"msg.data":         "bytes",
	"msg.gas":          "uint256",
	"msg.sender":       "address",
	"msg.sig":          "bytes4",
	"msg.value":        "uint256",
	"tx.gasprice":      "uint256",
	"tx.origin":        "address",
}

var solidityFunctions = map[string][]string{
	"gasleft()":                               {"uint256"},
	"assert(bool)":                            {},
	"require(bool)":                           {},
	"require(bool,string)":                    {},
	"revert()":                                {},
	"revert(string)":                          {},
	"addmod(uint256,uint256,uint256)":         {"uint256"},
	"mulmod(uint256,uint256,uint256)":         {"uint256"},
	"keccak256()":                             {"bytes32"},
	"keccak256(bytes)":                        {"bytes32"},
	"sha256()":                                {"bytes32"},
	"sha256(bytes)":                           {"bytes32"},
	"sha3()":                                  {"bytes32"},
	"ripemd160()":                             {"bytes32"},
	"ripemd160(bytes)":                        {"bytes32"},
	"ecrecover(bytes32,uint8,bytes32,bytes32)": {"address"},
	"selfdestruct(address)":                   {},
	"suicide(address)":                        {},
	"log0(bytes32)":                           {},
	"log1(bytes32,bytes32)":                   {},
	"log2(bytes32,bytes32,bytes32)":           {},
	"log3(bytes32,bytes32,bytes32,bytes32)":   {},
	"blockhash(uint256)":                      {"bytes32"},
	"abi.encode()":                            {"bytes"},
	"abi.encodePacked()":                      {"bytes"},
	"abi.encodeWithSelector()":                {"bytes"},
	"abi.encodeWithSignature()":               {"bytes"},
	"abi.decode()":                            {},
}

// LookupSolidityVariable returns the builtin variable with the given name.
func LookupSolidityVariable(name string) (SolidityVariable, bool) {
	_, ok := solidityVariables[name]
	return SolidityVariable{Name: name}, ok
}

// IsComposedSolidityVariable reports whether name is a builtin member such as msg.sender.
func IsComposedSolidityVariable(name string) bool {
	_, ok := solidityVariables[name]
	return ok && strings.Contains(name, ".")
}

// LookupSolidityFunction returns the builtin function with the given name.
// arity < 0 accepts any overload. An overload with exactly arity parameters
// is preferred; otherwise the untyped "name()" entry used for hashing and
// abi builtins matches any argument count. Ties go to the fewest parameters.
func LookupSolidityFunction(name string, arity int) (SolidityFunction, bool) {
	var best SolidityFunction
	found, exact := false, false
	for sig := range solidityFunctions {
		f := SolidityFunction{Signature: sig}
		if f.Name() != name {
			continue
		}
		isExact := arity < 0 || f.Arity() == arity
		if !isExact && !strings.HasSuffix(sig, "()") {
			continue
		}
		switch {
		case !found,
			isExact && !exact,
			isExact == exact && (f.Arity() < best.Arity() || (f.Arity() == best.Arity() && sig < best.Signature)):
			best, found, exact = f, true, isExact
		}
	}
	return best, found
}
