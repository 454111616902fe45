package grammar

import (
	"strings"
)

func (d *Descriptor) String() string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(d.Base.String())
	for _, s := range d.Suffixes {
		switch {
		case s.Dim != nil:
			b.WriteString("[" + s.Dim.Length + "]")
		case s.Location != "":
			b.WriteString(" " + s.Location)
		case s.Pointer != "":
			b.WriteString(" " + s.Pointer)
		case s.Payable:
			b.WriteString(" payable")
		}
	}
	return b.String()
}

func (b *Base) String() string {
	switch {
	case b.Mapping != nil:
		return "mapping(" + b.Mapping.Key.String() + " => " + b.Mapping.Value.String() + ")"
	case b.Function != nil:
		return b.Function.String()
	case b.Tuple != nil:
		return "tuple(" + joinDescriptors(b.Tuple.Elems) + ")"
	case b.Named != nil:
		return b.Named.String()
	}
	return ""
}

func (f *FunctionDesc) String() string {
	var b strings.Builder
	b.WriteString("function (" + joinDescriptors(f.Params) + ")")
	for _, m := range f.Modifiers {
		b.WriteString(" " + m)
	}
	if len(f.Returns) > 0 {
		b.WriteString(" returns (" + joinDescriptors(f.Returns) + ")")
	}
	return b.String()
}

func (n *NamedDesc) String() string {
	if n.Kind != "" {
		return n.Kind + " " + n.QualifiedName()
	}
	return n.QualifiedName()
}

// QualifiedName returns the dotted name without its kind tag.
func (n *NamedDesc) QualifiedName() string {
	return strings.Join(n.Path, ".")
}

// Dims returns the array dimension lengths in source order; "" marks a dynamic dimension.
func (d *Descriptor) Dims() []string {
	var dims []string
	for _, s := range d.Suffixes {
		if s.Dim != nil {
			dims = append(dims, s.Dim.Length)
		}
	}
	return dims
}

// Location returns the data location word, if any.
func (d *Descriptor) Location() string {
	for _, s := range d.Suffixes {
		if s.Location != "" {
			return s.Location
		}
	}
	return ""
}

// Unqualified returns the descriptor text without array dimensions and data
// location words, e.g. "struct A.S" for "struct A.S memory[] storage ref".
func (d *Descriptor) Unqualified() string {
	return d.Base.String()
}

func joinDescriptors(ds []*Descriptor) string {
	parts := make([]string, len(ds))
	for i, d := range ds {
		parts[i] = d.String()
	}
	return strings.Join(parts, ",")
}
