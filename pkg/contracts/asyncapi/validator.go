package asyncapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// CloudEvent is the envelope shape used when validating event payloads.
// Only the fields relevant to schema validation are declared.
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

// AsyncAPISpec is a minimal representation of an AsyncAPI document,
// sufficient to extract the payload schemas under components.
type AsyncAPISpec struct {
	AsyncAPI   string             `yaml:"asyncapi"`
	Info       Info               `yaml:"info"`
	Channels   map[string]Channel `yaml:"channels"`
	Components Components         `yaml:"components"`
}

// Info holds the AsyncAPI document metadata.
type Info struct {
	Title       string `yaml:"title"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

// Channel describes a single AsyncAPI channel.
type Channel struct {
	Description string                 `yaml:"description"`
	Subscribe   map[string]interface{} `yaml:"subscribe"`
	Publish     map[string]interface{} `yaml:"publish"`
}

// Components holds the reusable schema definitions.
type Components struct {
	Schemas map[string]interface{} `yaml:"schemas"`
}

// EventValidator validates event payloads against the schemas declared
// in an AsyncAPI specification.
type EventValidator struct {
	schemas    map[string]*jsonschema.Schema
	rawSchemas map[string]interface{}
	compiler   *jsonschema.Compiler
}

// NewEventValidator creates a validator from an AsyncAPI specification file
// already loaded into memory.
func NewEventValidator(specBytes []byte) (*EventValidator, error) {
	return NewEventValidatorFromBytes(specBytes)
}

// NewEventValidatorFromBytes parses an AsyncAPI YAML document and compiles
// every component schema it declares. Schema names map to event types via
// deriveEventTypeFromSchemaName.
func NewEventValidatorFromBytes(specBytes []byte) (*EventValidator, error) {
	var spec AsyncAPISpec
	if err := yaml.Unmarshal(specBytes, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse AsyncAPI spec: %w", err)
	}

	if spec.Components.Schemas == nil {
		return nil, fmt.Errorf("AsyncAPI spec has no component schemas")
	}

	validator := &EventValidator{
		schemas:    make(map[string]*jsonschema.Schema),
		rawSchemas: make(map[string]interface{}),
		compiler:   jsonschema.NewCompiler(),
	}

	for schemaName, rawSchema := range spec.Components.Schemas {
		eventType := deriveEventTypeFromSchemaName(schemaName)
		if eventType == "" {
			continue
		}

		schemaJSON, err := json.Marshal(rawSchema)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal schema %s: %w", schemaName, err)
		}

		schemaURI := fmt.Sprintf("asyncapi:///schemas/%s.json", schemaName)
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			return nil, fmt.Errorf("failed to decode schema %s: %w", schemaName, err)
		}
		if err := validator.compiler.AddResource(schemaURI, doc); err != nil {
			return nil, fmt.Errorf("failed to add schema resource %s: %w", schemaName, err)
		}

		schema, err := validator.compiler.Compile(schemaURI)
		if err != nil {
			return nil, fmt.Errorf("failed to compile schema %s: %w", schemaName, err)
		}

		validator.schemas[eventType] = schema
		validator.rawSchemas[eventType] = rawSchema
	}

	if len(validator.schemas) == 0 {
		return nil, fmt.Errorf("no usable event schemas found in AsyncAPI spec")
	}

	return validator, nil
}

// ValidateEvent validates the data payload of a CloudEvent against the schema
// registered for its event type.
func (v *EventValidator) ValidateEvent(event *CloudEvent) error {
	if event == nil {
		return fmt.Errorf("event is nil")
	}

	schema, ok := v.schemas[event.Type]
	if !ok {
		return fmt.Errorf("no schema registered for event type %s", event.Type)
	}

	// Round-trip through JSON so typed structs validate the same way as
	// payloads freshly decoded off the wire.
	dataJSON, err := json.Marshal(event.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(dataJSON))
	if err != nil {
		return fmt.Errorf("failed to decode event data: %w", err)
	}

	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("event %s failed schema validation: %w", event.Type, err)
	}

	return nil
}

// ValidateEventJSON validates a raw CloudEvent JSON document.
func (v *EventValidator) ValidateEventJSON(eventJSON []byte) error {
	var event CloudEvent
	if err := json.Unmarshal(eventJSON, &event); err != nil {
		return fmt.Errorf("failed to parse event JSON: %w", err)
	}

	if event.Type == "" {
		return fmt.Errorf("event has no type")
	}
	if event.ID == "" {
		return fmt.Errorf("event has no id")
	}
	if event.Time != "" {
		if _, err := time.Parse(time.RFC3339, event.Time); err != nil {
			return fmt.Errorf("event time is not RFC3339: %w", err)
		}
	}

	return v.ValidateEvent(&event)
}

// GetSupportedEventTypes returns the event types this validator has schemas for.
func (v *EventValidator) GetSupportedEventTypes() []string {
	types := make([]string, 0, len(v.schemas))
	for eventType := range v.schemas {
		types = append(types, eventType)
	}
	return types
}

// HasSchema reports whether a schema is registered for the given event type.
func (v *EventValidator) HasSchema(eventType string) bool {
	_, ok := v.schemas[eventType]
	return ok
}

// GetSchema returns the raw schema document for an event type.
func (v *EventValidator) GetSchema(eventType string) (interface{}, bool) {
	schema, ok := v.rawSchemas[eventType]
	return schema, ok
}

// RegisterSchema adds a schema for an event type after construction.
// Used by tests that exercise payloads not covered by the spec file.
func (v *EventValidator) RegisterSchema(eventType string, rawSchema interface{}) error {
	schemaJSON, err := json.Marshal(rawSchema)
	if err != nil {
		return fmt.Errorf("failed to marshal schema: %w", err)
	}

	schemaURI := fmt.Sprintf("asyncapi:///schemas/registered/%s.json", strings.ReplaceAll(eventType, ".", "-"))
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return fmt.Errorf("failed to decode schema: %w", err)
	}
	if err := v.compiler.AddResource(schemaURI, doc); err != nil {
		return fmt.Errorf("failed to add schema resource: %w", err)
	}

	schema, err := v.compiler.Compile(schemaURI)
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	v.schemas[eventType] = schema
	v.rawSchemas[eventType] = rawSchema
	return nil
}

// deriveEventTypeFromSchemaName maps a component schema name to the event
// type it describes. Schema names may carry a Data or Event suffix.
func deriveEventTypeFromSchemaName(schemaName string) string {
	name := strings.TrimSuffix(schemaName, "Data")
	name = strings.TrimSuffix(name, "Event")

	mappings := map[string]string{
		"TransferCreated":           "wms.transfer.created",
		"TransferCancelled":         "wms.transfer.cancelled",
		"TransferReturnedToDraft":   "wms.transfer.returned-to-draft",
		"TransferConfirmed":         "wms.transfer.confirmed",
		"TransferReserved":          "wms.transfer.reserved",
		"TransferWarehouseChanged":  "wms.transfer.warehouse-changed",
		"TransferSerialsPropagated": "wms.transfer.serials-propagated",
		"TransferSnapshot":          "wms.transfer.snapshot-updated",
		"WarehouseSnapshot":         "wms.warehouse.snapshot-updated",
	}

	return mappings[name]
}
