package readers

import (
	"encoding/json"
	"fmt"
)

type JsonReader struct{}

func (r *JsonReader) Exts() []string {
	return []string{".json"}
}

// ReadText normalizes the document by parsing it and re-serializing
// with stable indentation. Malformed JSON fails the request.
func (r *JsonReader) ReadText(data []byte) (string, error) {
	var obj any
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", fmt.Errorf("failed to parse json document: %w", err)
	}

	out, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to normalize json document: %w", err)
	}

	return string(out), nil
}
