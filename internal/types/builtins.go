package types

import (
	"strconv"
	"strings"
)

// elementaryTypes contains every elementary type name accepted by the
// compiler, including the aliases normalised by Normalize.
var elementaryTypes = map[string]bool{
	"address": true,
	"bool":    true,
	"string":  true,
	"bytes":   true,
	"byte":    true,
	"int":     true,
	"uint":    true,
	"fixed":   true,
	"ufixed":  true,
	"var":     true,
}

func init() {
	for bits := 8; bits <= 256; bits += 8 {
		elementaryTypes["int"+strconv.Itoa(bits)] = true
		elementaryTypes["uint"+strconv.Itoa(bits)] = true
	}
	for size := 1; size <= 32; size++ {
		elementaryTypes["bytes"+strconv.Itoa(size)] = true
	}
}

// IsElementary checks if a type name is an elementary type
func IsElementary(name string) bool {
	return elementaryTypes[name]
}

// Normalize maps aliases to their canonical spelling.
func Normalize(name string) string {
	switch name {
	case "uint":
		return "uint256"
	case "int":
		return "int256"
	case "byte":
		return "bytes1"
	case "fixed":
		return "fixed128x18"
	case "ufixed":
		return "ufixed128x18"
	}
	return name
}

// IsIntegerType checks if an elementary name is a signed or unsigned integer type
func IsIntegerType(name string) bool {
	name = Normalize(name)
	return elementaryTypes[name] && (strings.HasPrefix(name, "int") || strings.HasPrefix(name, "uint"))
}

// IntegerBits returns the width of an integer type, or 0.
func IntegerBits(name string) int {
	name = Normalize(name)
	if !IsIntegerType(name) {
		return 0
	}
	bits, _ := strconv.Atoi(strings.TrimPrefix(strings.TrimPrefix(name, "u"), "int"))
	return bits
}

// IsSigned reports whether an integer type is signed.
func IsSigned(name string) bool {
	return strings.HasPrefix(Normalize(name), "int")
}
