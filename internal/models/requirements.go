package models

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Requirements is an ordered requirement list. Elements may be sent as plain
// strings or as StructuredRequirement objects; objects are coerced to strings.
type Requirements []string

func (r *Requirements) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = nil
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return fmt.Errorf("requirements must be an array: %w", err)
	}
	out := make(Requirements, 0, len(items))
	for i, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var s string
			if err := json.Unmarshal(item, &s); err != nil {
				return fmt.Errorf("requirement %d: %w", i, err)
			}
			out = append(out, s)
			continue
		}
		var sr StructuredRequirement
		if err := json.Unmarshal(item, &sr); err != nil {
			return fmt.Errorf("requirement %d: %w", i, err)
		}
		if sr.What == "" {
			return fmt.Errorf("requirement %d: structured requirement needs \"what\"", i)
		}
		out = append(out, sr.String())
	}
	*r = out
	return nil
}

func (r *Requirements) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.SequenceNode {
		return fmt.Errorf("line %d: requirements must be a list", node.Line)
	}
	out := make(Requirements, 0, len(node.Content))
	for _, item := range node.Content {
		switch item.Kind {
		case yaml.ScalarNode:
			out = append(out, item.Value)
		case yaml.MappingNode:
			var sr StructuredRequirement
			if err := item.Decode(&sr); err != nil {
				return err
			}
			if sr.What == "" {
				return fmt.Errorf("line %d: structured requirement needs \"what\"", item.Line)
			}
			out = append(out, sr.String())
		default:
			return fmt.Errorf("line %d: unsupported requirement", item.Line)
		}
	}
	*r = out
	return nil
}
