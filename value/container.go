package value

import "github.com/qdfcore/qdf/qerr"

// SetChild replaces the child at index i, releasing the old one and
// retaining the new one. v must be uniquely held (rc == 1); callers
// mutate through the value returned by COW, never the original.
func (v *Value) SetChild(i int, child *Value) error {
	if !ownsChildren(v.typ) {
		return qerr.New(qerr.TYPE, "value.SetChild", "%s does not own children", v.typ)
	}
	if i < 0 || i >= len(v.children) {
		return qerr.New(qerr.RANGE, "value.SetChild", "child index %d out of range [0,%d)", i, len(v.children))
	}
	old := v.children[i]
	v.children[i] = child.Retain()
	old.Release()
	return nil
}

// ReplaceChild overwrites the child slot at index i with newChild without
// adjusting either value's reference count: used when newChild already
// carries the exact reference the slot held (e.g. the result of COW-ing
// the previous occupant in place, spec §4.7's add_col step 3 appending to
// the schema vector before re-installing it).
func (v *Value) ReplaceChild(i int, newChild *Value) error {
	if !ownsChildren(v.typ) {
		return qerr.New(qerr.TYPE, "value.ReplaceChild", "%s does not own children", v.typ)
	}
	if i < 0 || i >= len(v.children) {
		return qerr.New(qerr.RANGE, "value.ReplaceChild", "child index %d out of range [0,%d)", i, len(v.children))
	}
	v.children[i] = newChild
	return nil
}

// AppendChild appends child to v's owned children, retaining it and
// bumping v's reported length to match the new child count. v must be
// uniquely held.
func (v *Value) AppendChild(child *Value) error {
	if !ownsChildren(v.typ) {
		return qerr.New(qerr.TYPE, "value.AppendChild", "%s does not own children", v.typ)
	}
	v.children = append(v.children, child.Retain())
	v.length = int64(len(v.children))
	return nil
}
