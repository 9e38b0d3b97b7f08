package embed

import (
	"iter"
	"strings"
)

// Windows yields overlapping windows of whitespace-separated tokens. Windows
// start at token 0 and advance by stride; the first window shorter than floor
// ends the sequence, so trailing fragments are dropped.
func Windows(text string, size, stride, floor int) iter.Seq[string] {
	tokens := strings.Fields(text)
	return func(yield func(string) bool) {
		if size <= 0 || stride <= 0 {
			return
		}
		for start := 0; start < len(tokens); start += stride {
			end := min(start+size, len(tokens))
			if end-start < floor {
				return
			}
			if !yield(strings.Join(tokens[start:end], " ")) {
				return
			}
		}
	}
}

// WindowSlice collects Windows into a slice.
func WindowSlice(text string, size, stride, floor int) []string {
	var out []string
	for w := range Windows(text, size, stride, floor) {
		out = append(out, w)
	}
	return out
}
