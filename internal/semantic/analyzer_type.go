package semantic

import (
	"strings"

	"solcheck/grammar"
	"solcheck/internal/ast"
	"solcheck/internal/core"
	"solcheck/internal/errors"
	"solcheck/internal/types"
)

// Resolver turns type references into types. Contract is the declaring
// contract of the reference and may be nil for unit-level lookups.
type Resolver struct {
	ctx      *DeclarationContext
	contract *core.Contract
}

func NewResolver(ctx *DeclarationContext, contract *core.Contract) *Resolver {
	return &Resolver{ctx: ctx, contract: contract}
}

func (r *Resolver) contractName() string {
	if r.contract == nil {
		return ""
	}
	return r.contract.Name
}

// ResolveString resolves a type descriptor string as found in `type`
// attributes, e.g. "struct Token.Balance storage ref".
func (r *Resolver) ResolveString(text string, src ast.Source) (types.Type, error) {
	d, err := grammar.Parse(text)
	if err != nil {
		return nil, errors.MalformedTypeDescriptor(text, err)
	}
	return r.resolveDescriptor(d, text, src)
}

func (r *Resolver) resolveDescriptor(d *grammar.Descriptor, text string, src ast.Source) (types.Type, error) {
	var (
		t   types.Type
		err error
	)
	switch b := d.Base; {
	case b.Named != nil:
		t, err = r.resolveName(b.Named, src)
	case b.Function != nil:
		t, err = r.resolveFunction(b.Function, text, src)
	case b.Mapping != nil:
		t, err = r.resolveMapping(b.Mapping, text, src)
	default:
		return nil, errors.MalformedTypeDescriptor(text, nil)
	}
	if err != nil {
		return nil, err
	}
	for _, length := range d.Dims() {
		t = &types.ArrayType{Base: t, Length: length}
	}
	return t, nil
}

// resolveName applies the lookup order for a possibly qualified name:
// elementary types, the declaring contract's structs and enums, any
// contract's structs and enums, contract names, then the declaring
// contract's functions.
func (r *Resolver) resolveName(n *grammar.NamedDesc, src ast.Source) (types.Type, error) {
	path := n.Path
	name := path[len(path)-1]

	if len(path) == 1 && n.Kind == "" && types.IsElementary(name) {
		return types.NewElementary(name), nil
	}

	wantStruct := n.Kind == "" || n.Kind == "struct"
	wantEnum := n.Kind == "" || n.Kind == "enum"
	wantContract := n.Kind == "" || n.Kind == "contract" || n.Kind == "library" || n.Kind == "interface"

	if r.contract != nil && (len(path) == 1 || path[0] == r.contract.Name) {
		if s := r.contract.Struct(name); s != nil && wantStruct {
			return &types.UserDefinedType{Decl: s}, nil
		}
		if e := r.contract.Enum(name); e != nil && wantEnum {
			return &types.UserDefinedType{Decl: e}, nil
		}
	}

	if len(path) == 2 {
		if s := r.ctx.QualifiedStruct(path[0], name); s != nil && wantStruct {
			return &types.UserDefinedType{Decl: s}, nil
		}
		if e := r.ctx.QualifiedEnum(path[0], name); e != nil && wantEnum {
			return &types.UserDefinedType{Decl: e}, nil
		}
	} else if len(path) == 1 {
		if s := r.ctx.Struct(name); s != nil && wantStruct {
			return &types.UserDefinedType{Decl: s}, nil
		}
		if e := r.ctx.Enum(name); e != nil && wantEnum {
			return &types.UserDefinedType{Decl: e}, nil
		}
		if c := r.ctx.Contract(name); c != nil && wantContract {
			return &types.UserDefinedType{Decl: c}, nil
		}
		if r.contract != nil && n.Kind == "" {
			if fs := r.contract.FunctionsNamed(name); len(fs) > 0 {
				return &types.UserDefinedType{Decl: fs[0]}, nil
			}
		}
	}

	return nil, errors.TypeNotFound(strings.Join(path, "."), r.contractName(), src, r.ctx.TypeNames())
}

func (r *Resolver) resolveFunction(f *grammar.FunctionDesc, text string, src ast.Source) (types.Type, error) {
	ft := &types.FunctionType{}
	for _, p := range f.Params {
		t, err := r.resolveDescriptor(p, text, src)
		if err != nil {
			return nil, err
		}
		ft.Params = append(ft.Params, t)
	}
	for _, p := range f.Returns {
		t, err := r.resolveDescriptor(p, text, src)
		if err != nil {
			return nil, err
		}
		ft.Returns = append(ft.Returns, t)
	}
	return ft, nil
}

func (r *Resolver) resolveMapping(m *grammar.MappingDesc, text string, src ast.Source) (types.Type, error) {
	key, err := r.resolveDescriptor(m.Key, text, src)
	if err != nil {
		return nil, err
	}
	value, err := r.resolveDescriptor(m.Value, text, src)
	if err != nil {
		return nil, err
	}
	return &types.MappingType{Key: key, Value: value}, nil
}

// ResolveTypeName resolves a type-name node (ElementaryTypeName,
// UserDefinedTypeName, ArrayTypeName, Mapping, FunctionTypeName).
func (r *Resolver) ResolveTypeName(n *ast.Node) (types.Type, error) {
	switch n.Name {
	case ast.ElementaryTypeName:
		name := n.StringAttr("name")
		if name == "" {
			name = n.StringAttr("type")
		}
		return r.ResolveString(name, n.Source())

	case ast.UserDefinedTypeName:
		if id, ok := n.IntAttr("referencedDeclaration"); ok {
			if v, found := r.ctx.Lookup(id); found {
				if d, isDecl := v.(types.Declaration); isDecl {
					return &types.UserDefinedType{Decl: d}, nil
				}
			}
		}
		name := n.StringAttr("name")
		if name == "" {
			return nil, errors.MalformedNode(n, "missing name")
		}
		return r.ResolveString(name, n.Source())

	case ast.ArrayTypeName:
		base := n.Child(0)
		if base == nil {
			return nil, errors.MalformedNode(n, "missing base type")
		}
		t, err := r.ResolveTypeName(base)
		if err != nil {
			return nil, err
		}
		length := ""
		if l := n.Child(1); l != nil {
			length = l.StringAttr("value")
		}
		return &types.ArrayType{Base: t, Length: length}, nil

	case ast.Mapping:
		if len(n.Children) != 2 {
			return nil, errors.MalformedNode(n, "expected key and value types")
		}
		key, err := r.ResolveTypeName(n.Children[0])
		if err != nil {
			return nil, err
		}
		value, err := r.ResolveTypeName(n.Children[1])
		if err != nil {
			return nil, err
		}
		return &types.MappingType{Key: key, Value: value}, nil

	case ast.FunctionTypeName:
		ft := &types.FunctionType{}
		lists := n.ChildrenOf(ast.ParameterList)
		for i, list := range lists {
			for _, p := range list.ChildrenOf(ast.VariableDecl) {
				t, err := r.ResolveVariableType(p)
				if err != nil {
					return nil, err
				}
				if i == 0 {
					ft.Params = append(ft.Params, t)
				} else {
					ft.Returns = append(ft.Returns, t)
				}
			}
		}
		return ft, nil
	}
	return nil, errors.UnsupportedNode(n, "type name")
}

// ResolveVariableType resolves the type of a VariableDeclaration, using its
// type-name child when present and its `type` attribute otherwise.
func (r *Resolver) ResolveVariableType(decl *ast.Node) (types.Type, error) {
	for _, c := range decl.Children {
		if c != nil && ast.IsTypeName(c.Name) {
			return r.ResolveTypeName(c)
		}
	}
	text := decl.StringAttr("type")
	if text == "" {
		return nil, errors.MalformedNode(decl, "variable without type")
	}
	return r.ResolveString(text, decl.Source())
}
