package txhandler

import "maps"

// References maps symbolic names, such as a contract name, to the values
// that replace them in argument lists.
type References map[string]string

// Replace walks arg and substitutes every string leaf that is a key of r.
// Sequences are rebuilt at every level; arg itself is not modified.
func (r References) Replace(arg Arg) Arg {
	switch a := arg.(type) {
	case Sequence:
		out := make(Sequence, len(a))
		for i, elem := range a {
			out[i] = r.Replace(elem)
		}
		return out
	case Scalar:
		if s, ok := a.Value.(string); ok {
			if v, found := r[s]; found {
				return Scalar{Value: v}
			}
		}
	}
	return arg
}

// ReplaceAll applies Replace to each argument.
func (r References) ReplaceAll(args []Arg) []Arg {
	out := make([]Arg, len(args))
	for i, arg := range args {
		out[i] = r.Replace(arg)
	}
	return out
}

// Clone returns an independent copy of r.
func (r References) Clone() References {
	if r == nil {
		return References{}
	}
	return maps.Clone(r)
}
