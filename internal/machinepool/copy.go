package machinepool

import (
	"github.com/mitchellh/copystructure"
)

// copyLabels deep-copies a label map so pools never alias declared or observed input.
// Empty input yields an empty, non-nil map.
func copyLabels(in map[string]string) map[string]string {
	if len(in) == 0 {
		return map[string]string{}
	}
	copied, err := copystructure.Copy(in)
	if err != nil {
		out := make(map[string]string, len(in))
		for k, v := range in {
			out[k] = v
		}
		return out
	}
	return copied.(map[string]string)
}

// copyTaints deep-copies a taint list. Empty input yields nil.
func copyTaints(in []Taint) []Taint {
	if len(in) == 0 {
		return nil
	}
	copied, err := copystructure.Copy(in)
	if err != nil {
		out := make([]Taint, len(in))
		copy(out, in)
		return out
	}
	return copied.([]Taint)
}

func copyIntPtr(in *int) *int {
	if in == nil {
		return nil
	}
	v := *in
	return &v
}
