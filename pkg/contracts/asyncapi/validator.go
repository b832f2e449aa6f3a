package asyncapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// eventTypeKey is the schema extension naming the CloudEvent type a payload
// schema applies to.
const eventTypeKey = "x-event-type"

// EventValidator validates CloudEvent payloads against AsyncAPI schemas.
type EventValidator struct {
	schemas map[string]*jsonschema.Schema
}

// CloudEvent is the structured-mode envelope as it appears on the wire.
type CloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            string      `json:"time,omitempty"`
	DataContentType string      `json:"datacontenttype,omitempty"`
	Data            interface{} `json:"data,omitempty"`
}

// Spec is the part of an AsyncAPI document the validator reads.
type Spec struct {
	AsyncAPI   string `yaml:"asyncapi"`
	Components struct {
		Schemas map[string]interface{} `yaml:"schemas"`
	} `yaml:"components"`
}

// NewEventValidator creates a new event validator from an AsyncAPI specification file.
func NewEventValidator(asyncAPIPath string) (*EventValidator, error) {
	data, err := os.ReadFile(asyncAPIPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read AsyncAPI spec: %w", err)
	}
	return NewEventValidatorFromBytes(data)
}

// NewEventValidatorFromBytes compiles every component schema that carries
// an x-event-type extension.
func NewEventValidatorFromBytes(specBytes []byte) (*EventValidator, error) {
	var spec Spec
	if err := yaml.Unmarshal(specBytes, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse AsyncAPI spec: %w", err)
	}

	// Register all schemas before compiling any of them.
	compiler := jsonschema.NewCompiler()
	for name, schema := range spec.Components.Schemas {
		doc, err := toJSONValue(schema)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		if err := compiler.AddResource(schemaURI(name), doc); err != nil {
			return nil, fmt.Errorf("failed to add schema %s: %w", name, err)
		}
	}

	schemas := make(map[string]*jsonschema.Schema)
	for name, schema := range spec.Components.Schemas {
		schemaMap, ok := schema.(map[string]interface{})
		if !ok {
			continue
		}
		eventType, _ := schemaMap[eventTypeKey].(string)
		if eventType == "" {
			continue
		}

		compiled, err := compiler.Compile(schemaURI(name))
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", name, err)
		}
		schemas[eventType] = compiled
	}

	return &EventValidator{schemas: schemas}, nil
}

func schemaURI(name string) string {
	return "asyncapi://components/schemas/" + name
}

// toJSONValue normalises a YAML-decoded value into the shape jsonschema expects.
func toJSONValue(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(raw))
}

// ValidateEvent validates the envelope and its data payload.
func (v *EventValidator) ValidateEvent(event CloudEvent) error {
	switch {
	case event.SpecVersion != "1.0":
		return fmt.Errorf("unsupported specversion %q", event.SpecVersion)
	case event.Type == "":
		return fmt.Errorf("event type is required")
	case event.Source == "":
		return fmt.Errorf("event source is required")
	case event.ID == "":
		return fmt.Errorf("event id is required")
	}

	schema, ok := v.schemas[event.Type]
	if !ok {
		return fmt.Errorf("no schema found for event type: %s", event.Type)
	}
	if event.Data == nil {
		return fmt.Errorf("event data is required")
	}

	data, err := toJSONValue(event.Data)
	if err != nil {
		return fmt.Errorf("failed to normalise event data: %w", err)
	}
	if err := schema.Validate(data); err != nil {
		return fmt.Errorf("event data validation failed for type %s: %w", event.Type, err)
	}
	return nil
}

// ValidateEventJSON validates a CloudEvent from JSON bytes.
func (v *EventValidator) ValidateEventJSON(eventJSON []byte) error {
	var event CloudEvent
	if err := json.Unmarshal(eventJSON, &event); err != nil {
		return fmt.Errorf("failed to parse CloudEvent: %w", err)
	}
	return v.ValidateEvent(event)
}

// SupportedEventTypes returns the event types that have schemas, sorted.
func (v *EventValidator) SupportedEventTypes() []string {
	types := make([]string, 0, len(v.schemas))
	for eventType := range v.schemas {
		types = append(types, eventType)
	}
	sort.Strings(types)
	return types
}
