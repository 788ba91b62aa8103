package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// parseArgs turns command line arguments into handler arguments. An
// argument starting with '[' is decoded as a JSON array; everything else
// stays a string and is converted to the parameter type at packing time.
func parseArgs(raw []string) ([]any, error) {
	args := make([]any, len(raw))
	for i, s := range raw {
		if !strings.HasPrefix(strings.TrimSpace(s), "[") {
			args[i] = s
			continue
		}
		dec := json.NewDecoder(bytes.NewReader([]byte(s)))
		dec.UseNumber()
		var list []any
		if err := dec.Decode(&list); err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		args[i] = list
	}
	return args, nil
}
