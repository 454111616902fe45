package ast

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoUnits = `======= a.sol =======
JSON AST:

{"name": "SourceUnit", "id": 3, "src": "0:40:0", "attributes": {"absolutePath": "a.sol"},
 "children": [{"name": "ContractDefinition", "id": 2, "src": "0:40:0",
   "attributes": {"name": "A", "contractKind": "contract", "linearizedBaseContracts": [2]}}]}
======= b.sol =======
JSON AST:

{"name": "SourceUnit", "id": 5, "src": "0:20:1", "attributes": {"absolutePath": "b.sol"}}
`

func TestDecodeSolcOutput(t *testing.T) {
	units, err := Decode(strings.NewReader(twoUnits))
	require.NoError(t, err)
	require.Len(t, units, 2)

	assert.Equal(t, "a.sol", units[0].StringAttr("absolutePath"))
	assert.Equal(t, "b.sol", units[1].StringAttr("absolutePath"))

	contract := units[0].Child(0)
	require.NotNil(t, contract)
	assert.True(t, contract.Is(ContractDefinition))
	bases, err := contract.IntListAttr("linearizedBaseContracts")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, bases)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(strings.NewReader(`{"name": "SourceUnit", "id": `))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(`{"name": "Block", "id": 1, "src": "0:0:0"}`))
	assert.Error(t, err)

	_, err = Decode(strings.NewReader(""))
	assert.Error(t, err)
}

func TestParseSource(t *testing.T) {
	s, err := ParseSource("104:17:2")
	require.NoError(t, err)
	assert.Equal(t, Source{Start: 104, Length: 17, File: 2}, s)
	assert.Equal(t, "104:17:2", s.String())

	_, err = ParseSource("104:17")
	assert.Error(t, err)
	_, err = ParseSource("a:b:c")
	assert.Error(t, err)
}

func TestSourceFilePosition(t *testing.T) {
	text := "contract A {\n  uint x;\n}\n"
	f := NewSourceFile("a.sol", text)

	pos := f.Position(strings.Index(text, "uint"))
	assert.Equal(t, 2, pos.Line)
	assert.Equal(t, 3, pos.Column)
	assert.Equal(t, "a.sol", pos.Filename)

	assert.Equal(t, 1, f.Position(0).Line)
	assert.Equal(t, "uint x", f.Snippet(Source{Start: 15, Length: 6}))
	assert.Equal(t, "", f.Snippet(Source{Start: 500, Length: 6}))
}

func TestAttributeAccessors(t *testing.T) {
	n := &Node{
		Name: PragmaDirective,
		Attributes: map[string]any{
			"literals": []any{"solidity", "^", "0.4", ".24"},
			"constant": true,
			"scope":    float64(7),
			"components": []any{
				map[string]any{"name": "Identifier", "id": float64(9), "src": "1:1:0", "attributes": map[string]any{"value": "a"}},
				nil,
			},
		},
	}

	assert.Equal(t, []string{"solidity", "^", "0.4", ".24"}, n.StringListAttr("literals"))
	assert.True(t, n.BoolAttr("constant"))
	assert.False(t, n.BoolAttr("missing"))
	scope, ok := n.IntAttr("scope")
	assert.True(t, ok)
	assert.Equal(t, 7, scope)

	components, err := n.NodeListAttr("components")
	require.NoError(t, err)
	require.Len(t, components, 2)
	assert.Equal(t, "a", components[0].StringAttr("value"))
	assert.Nil(t, components[1])
}

func TestWalkSkipsSubtrees(t *testing.T) {
	root := &Node{Name: Block, Children: []*Node{
		{Name: ExpressionStatement, Children: []*Node{{Name: Identifier}}},
		{Name: Return},
	}}

	var seen []string
	root.Walk(func(n *Node) bool {
		seen = append(seen, n.Name)
		return n.Name != ExpressionStatement
	})
	assert.Equal(t, []string{Block, ExpressionStatement, Return}, seen)
}
