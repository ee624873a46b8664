package readers

import "strings"

type TextReader struct{}

func (r *TextReader) Exts() []string {
	return []string{".txt", ".md"}
}

// ReadText decodes the payload as UTF-8, replacing invalid byte
// sequences instead of failing.
func (r *TextReader) ReadText(data []byte) (string, error) {
	return strings.ToValidUTF8(string(data), "�"), nil
}
