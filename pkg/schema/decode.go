package schema

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"sync"

	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed definition.schema.json
var documentSchema string

const documentSchemaURL = "https://formflow.local/schemas/definition.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(documentSchemaURL, bytes.NewReader([]byte(documentSchema))); err != nil {
		return nil, fmt.Errorf("definition schema load failed: %w", err)
	}
	return c.Compile(documentSchemaURL)
})

// DocumentSchema returns the JSON Schema definitions are checked against.
func DocumentSchema() []byte {
	return []byte(documentSchema)
}

// ParseJSON decodes and validates a JSON wizard definition.
func ParseJSON(data []byte) (*Definition, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}
	return Decode(raw)
}

// ParseYAML decodes and validates a YAML wizard definition.
func ParseYAML(data []byte) (*Definition, error) {
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse definition: %w", err)
	}
	// Round trip through JSON so the document has JSON-compatible shapes.
	js, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to normalize definition: %w", err)
	}
	return ParseJSON(js)
}

// Decode validates a generic document against the definition schema, decodes
// it and checks semantic integrity.
func Decode(raw map[string]any) (*Definition, error) {
	if err := validateDocument(raw); err != nil {
		return nil, err
	}

	var def Definition
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       decodeHook,
		WeaklyTypedInput: true,
		Result:           &def,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}

	for i := range def.Fields {
		if def.Fields[i].Kind == "" {
			def.Fields[i].Kind = domain.KindText
		}
		def.Fields[i].Default = plainDefault(def.Fields[i].Default)
	}

	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

func validateDocument(raw map[string]any) error {
	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(toJSONValue(raw)); err != nil {
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			return err
		}
		id, _ := raw["id"].(string)
		ie := &IntegrityError{WizardID: id}
		collectLeaves(verr, ie)
		if len(ie.Issues) == 0 {
			ie.Issues = append(ie.Issues, Issue{Reason: verr.Error()})
		}
		return ie
	}
	return nil
}

func collectLeaves(verr *jsonschema.ValidationError, ie *IntegrityError) {
	if len(verr.Causes) == 0 {
		ie.Issues = append(ie.Issues, Issue{Path: verr.InstanceLocation, Reason: verr.Message})
		return
	}
	for _, cause := range verr.Causes {
		collectLeaves(cause, ie)
	}
}

// toJSONValue converts Go shapes produced by callers ([]string, int) into the
// shapes the JSON Schema validator understands.
func toJSONValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[k] = toJSONValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = toJSONValue(inner)
		}
		return out
	case []string:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = inner
		}
		return out
	case int:
		return json.Number(strconv.Itoa(val))
	case int64:
		return json.Number(strconv.FormatInt(val, 10))
	case float64:
		return json.Number(strconv.FormatFloat(val, 'f', -1, 64))
	default:
		return v
	}
}

// decodeHook renders booleans as "true"/"false" when a string is expected
// (rule triggers), instead of the weak-typing default of "1"/"0".
func decodeHook(from reflect.Type, to reflect.Type, data any) (any, error) {
	if from.Kind() == reflect.Bool && to.Kind() == reflect.String {
		return strconv.FormatBool(data.(bool)), nil
	}
	if n, ok := data.(json.Number); ok && to.Kind() == reflect.Interface {
		return n.String(), nil
	}
	return data, nil
}

func plainDefault(v any) any {
	if n, ok := v.(json.Number); ok {
		return n.String()
	}
	return v
}
