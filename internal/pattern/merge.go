// Package pattern composes per-participant layers into one playable pattern.
package pattern

import "strings"

const (
	groupOpen  = '['
	groupClose = ']'
	separator  = ", "
)

// Merge composes layers, given in participant join order, into a single
// pattern. Blank layers are dropped. A single layer is returned as is;
// several layers become siblings of one outer group.
func Merge(layers []string) string {
	parts := make([]string, 0, len(layers))
	for _, l := range layers {
		if strings.TrimSpace(l) == "" {
			continue
		}
		parts = append(parts, l)
	}

	switch len(parts) {
	case 0:
		return ""
	case 1:
		return parts[0]
	}

	for i, p := range parts {
		parts[i] = StripGroup(p)
	}
	return string(groupOpen) + strings.Join(parts, separator) + string(groupClose)
}

// StripGroup removes one group wrapper when it encloses the whole layer.
// "[a b]" becomes "a b", while "[a] [b]" is left alone.
func StripGroup(s string) string {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != groupOpen || s[len(s)-1] != groupClose {
		return s
	}
	depth := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case groupOpen:
			depth++
		case groupClose:
			depth--
			if depth == 0 && i != len(s)-1 {
				return s
			}
		}
	}
	if depth != 0 {
		return s
	}
	return strings.TrimSpace(s[1 : len(s)-1])
}
