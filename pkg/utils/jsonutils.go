package utils

import (
	"encoding/json"
	"fmt"
	"io"
)

// FormatJSON formats a value as JSON with indentation
func FormatJSON(data interface{}) (string, error) {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error formatting JSON: %w", err)
	}
	return string(bytes), nil
}

// WriteJSON writes a value as indented JSON followed by a newline
func WriteJSON(w io.Writer, data interface{}) error {
	out, err := FormatJSON(data)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
