package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const structuredWant = "[data] Upload CSV files - why: users keep data in spreadsheets - depends on: storage"

func TestRequirements_UnmarshalJSON(t *testing.T) {
	var req struct {
		Requirements Requirements `json:"requirements"`
	}
	body := `{"requirements": [
		"Show a chart",
		{"category": "data", "what": "Upload CSV files", "why": "users keep data in spreadsheets", "dependencies": ["storage"]}
	]}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))
	assert.Equal(t, Requirements{"Show a chart", structuredWant}, req.Requirements)

	tests := map[string]string{
		"not an array":  `{"requirements": "Show a chart"}`,
		"missing what":  `{"requirements": [{"category": "data"}]}`,
		"wrong element": `{"requirements": [42]}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			var r struct {
				Requirements Requirements `json:"requirements"`
			}
			assert.Error(t, json.Unmarshal([]byte(body), &r))
		})
	}
}

func TestRequirements_UnmarshalYAML(t *testing.T) {
	var file struct {
		Requirements Requirements `yaml:"requirements"`
	}
	doc := `requirements:
  - Show a chart
  - category: data
    what: Upload CSV files
    why: users keep data in spreadsheets
    dependencies: [storage]
`
	require.NoError(t, yaml.Unmarshal([]byte(doc), &file))
	assert.Equal(t, Requirements{"Show a chart", structuredWant}, file.Requirements)

	assert.Error(t, yaml.Unmarshal([]byte("requirements: just one string\n"), &file))
	assert.Error(t, yaml.Unmarshal([]byte("requirements:\n  - category: data\n"), &file))
}
