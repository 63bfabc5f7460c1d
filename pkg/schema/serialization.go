package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalJSON serializes the definition with rule effects made explicit.
func (d Definition) MarshalJSON() ([]byte, error) {
	type plain Definition
	out := plain(d)
	out.Rules = explicitRules(d.Rules)
	return json.Marshal(out)
}

// EncodeYAML renders the definition in the same layout ParseYAML reads.
func (d *Definition) EncodeYAML() ([]byte, error) {
	if d == nil {
		return nil, fmt.Errorf("schema: EncodeYAML on nil definition")
	}
	out := *d
	out.Rules = explicitRules(d.Rules)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func explicitRules(rules []Rule) []Rule {
	if rules == nil {
		return nil
	}
	out := make([]Rule, len(rules))
	for i, r := range rules {
		r.Effect = r.EffectOrDefault()
		out[i] = r
	}
	return out
}
