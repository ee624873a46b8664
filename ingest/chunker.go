package ingest

import "strings"

// Chunkify splits text into overlapping word windows of size words
// each, advancing by size-overlap words per window. The last window
// always ends at the final word. A non-positive stride jumps to the
// window end instead of looping forever.
func Chunkify(text string, size, overlap int) []string {
	words := strings.Fields(text)
	l := len(words)
	if l == 0 {
		return []string{}
	}

	step := size - overlap
	start := 0
	res := make([]string, 0, l/max(step, 1)+1)

	for start < l {
		end := min(start+size, l)
		res = append(res, strings.Join(words[start:end], " "))
		if step > 0 {
			start += step
		} else {
			start = end
		}
	}

	return res
}
