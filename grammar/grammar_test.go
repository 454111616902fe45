package grammar_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"solcheck/grammar"
)

func TestElementaryWithDims(t *testing.T) {
	d, err := grammar.Parse("uint256[3][] storage ref")
	require.NoError(t, err)

	require.NotNil(t, d.Base.Named)
	assert.Equal(t, []string{"uint256"}, d.Base.Named.Path)
	assert.Equal(t, []string{"3", ""}, d.Dims())
	assert.Equal(t, "storage", d.Location())
	assert.Equal(t, "uint256", d.Unqualified())
	assert.Equal(t, "uint256[3][] storage ref", d.String())
}

func TestQualifiedStruct(t *testing.T) {
	d, err := grammar.Parse("struct Token.Balance memory")
	require.NoError(t, err)

	named := d.Base.Named
	require.NotNil(t, named)
	assert.Equal(t, "struct", named.Kind)
	assert.Equal(t, "Token.Balance", named.QualifiedName())
	assert.Equal(t, "memory", d.Location())
	assert.Empty(t, d.Dims())
}

func TestNestedMapping(t *testing.T) {
	d, err := grammar.Parse("mapping(address => mapping(address => uint256))")
	require.NoError(t, err)

	m := d.Base.Mapping
	require.NotNil(t, m)
	assert.Equal(t, "address", m.Key.String())
	require.NotNil(t, m.Value.Base.Mapping)
	assert.Equal(t, "uint256", m.Value.Base.Mapping.Value.String())
	assert.Equal(t, "mapping(address => mapping(address => uint256))", d.String())
}

func TestFunctionDescriptor(t *testing.T) {
	d, err := grammar.Parse("function (uint256,bool) external view returns (address)")
	require.NoError(t, err)

	f := d.Base.Function
	require.NotNil(t, f)
	require.Len(t, f.Params, 2)
	assert.Equal(t, "bool", f.Params[1].String())
	assert.Equal(t, []string{"external", "view"}, f.Modifiers)
	require.Len(t, f.Returns, 1)
	assert.Equal(t, "address", f.Returns[0].String())

	d, err = grammar.Parse("function ()")
	require.NoError(t, err)
	assert.Empty(t, d.Base.Function.Params)
	assert.Empty(t, d.Base.Function.Returns)
}

func TestTupleAndPayable(t *testing.T) {
	d, err := grammar.Parse("tuple(uint256,address payable)")
	require.NoError(t, err)
	require.NotNil(t, d.Base.Tuple)
	require.Len(t, d.Base.Tuple.Elems, 2)
	assert.Equal(t, "address payable", d.Base.Tuple.Elems[1].String())
}

func TestRejectsNonTypes(t *testing.T) {
	for _, text := range []string{"int_const 5", "type(contract A)", "mapping(address =>", ""} {
		_, err := grammar.Parse(text)
		assert.Error(t, err, text)
	}
}

func TestParseIsCached(t *testing.T) {
	first, err := grammar.Parse("bytes32[] memory")
	require.NoError(t, err)
	second, err := grammar.Parse("  bytes32[] memory ")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Greater(t, grammar.CacheLen(), 0)
}
