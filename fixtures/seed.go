package fixtures

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	yaml "gopkg.in/yaml.v3"
)

// SeedFixture is one entry in a seed file.
type SeedFixture struct {
	Label  string                   `json:"label"`
	Fields map[string]ldvalue.Value `json:"fields"`
}

// LoadSeedFile reads a list of fixtures from a JSON or YAML file:
//
//	- label: Rex
//	  fields:
//	    petName: Rex
//	    species: DOG
func LoadSeedFile(path string) ([]SeedFixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var seeds []SeedFixture
	if err := parseJSONOrYAML(data, &seeds); err != nil {
		return nil, fmt.Errorf("malformed seed file %s: %w", path, err)
	}
	for i, s := range seeds {
		if s.Label == "" {
			return nil, fmt.Errorf("seed file %s: entry %d has no label", path, i+1)
		}
	}
	return seeds, nil
}

// parseJSONOrYAML is used in the same way as json.Unmarshal, but if the data is YAML and not
// JSON, it converts the YAML to JSON first.
func parseJSONOrYAML(data []byte, target interface{}) error {
	if err := json.Unmarshal(data, target); err == nil {
		return nil
	}
	var raw interface{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return err
	}
	normalized, err := normalizeYAML(raw)
	if err != nil {
		return err
	}
	jsonData, err := json.Marshal(normalized)
	if err != nil {
		return err
	}
	return json.Unmarshal(jsonData, target)
}

func normalizeYAML(data interface{}) (interface{}, error) {
	switch data := data.(type) {
	case []interface{}:
		out := make([]interface{}, 0, len(data))
		for _, v := range data {
			v1, err := normalizeYAML(v)
			if err != nil {
				return nil, err
			}
			out = append(out, v1)
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]interface{}, len(data))
		for k, v := range data {
			v1, err := normalizeYAML(v)
			if err != nil {
				return nil, err
			}
			out[k] = v1
		}
		return out, nil
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(data))
		for k, v := range data {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("YAML map key %v is not a string", k)
			}
			v1, err := normalizeYAML(v)
			if err != nil {
				return nil, err
			}
			out[key] = v1
		}
		return out, nil
	default:
		return data, nil
	}
}
