package ports

// Schema types, a JSON-schema subset every analyzer provider can express.
const (
	TypeObject  = "object"
	TypeArray   = "array"
	TypeString  = "string"
	TypeNumber  = "number"
	TypeInteger = "integer"
	TypeBoolean = "boolean"
)

// Schema constrains the value an analyzer must return.
type Schema struct {
	Type        string
	Description string
	Properties  map[string]*Schema
	// PropertyOrder keeps object fields in a stable order for providers that care.
	PropertyOrder []string
	Required      []string
	Items         *Schema
	Enum          []string
	MinItems      *int64
	MaxItems      *int64
	Minimum       *float64
	Maximum       *float64
}

// JSONSchema renders the schema as a JSON-schema document.
func (s *Schema) JSONSchema() map[string]any {
	if s == nil {
		return nil
	}

	out := map[string]any{"type": s.Type}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = prop.JSONSchema()
		}
		out["properties"] = props
		out["additionalProperties"] = false
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	if s.Items != nil {
		out["items"] = s.Items.JSONSchema()
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.MinItems != nil {
		out["minItems"] = *s.MinItems
	}
	if s.MaxItems != nil {
		out["maxItems"] = *s.MaxItems
	}
	if s.Minimum != nil {
		out["minimum"] = *s.Minimum
	}
	if s.Maximum != nil {
		out["maximum"] = *s.Maximum
	}
	return out
}

// Int64 returns a pointer to v, for schema bounds.
func Int64(v int64) *int64 { return &v }

// Float64 returns a pointer to v, for schema bounds.
func Float64(v float64) *float64 { return &v }
