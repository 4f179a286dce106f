package mapping

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/leadaxle/leadaxle/internal/pkg/transform"
)

// PayloadType selects which payload variant the engine builds.
type PayloadType string

const (
	PayloadPing PayloadType = "ping"
	PayloadPost PayloadType = "post"
)

// FieldMapping is one source→target conversion rule. SourceField and
// TargetField are dot-paths; ValueMap substitution runs before Transform.
type FieldMapping struct {
	SourceField   string            `json:"source_field"`
	TargetField   string            `json:"target_field"`
	Required      bool              `json:"required"`
	DefaultValue  interface{}       `json:"default_value,omitempty"`
	Transform     string            `json:"transform,omitempty"`
	ValueMap      map[string]string `json:"value_map,omitempty"`
	IncludeInPing bool              `json:"include_in_ping"`
	IncludeInPost bool              `json:"include_in_post"`
	Order         int               `json:"order"`
}

// Config is a full per-buyer-service mapping configuration: ordered field
// mappings plus separate static-field maps for ping and post payloads.
type Config struct {
	Mappings         []FieldMapping         `json:"mappings"`
	StaticFieldsPing map[string]interface{} `json:"static_fields_ping,omitempty"`
	StaticFieldsPost map[string]interface{} `json:"static_fields_post,omitempty"`
}

// EmptyConfig is the degraded-mode configuration used when a stored config
// cannot be parsed.
func EmptyConfig() *Config {
	return &Config{}
}

// ParseConfig decodes a stored JSON mapping configuration. An empty document
// yields an empty config.
func ParseConfig(data []byte) (*Config, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" || trimmed == "null" || trimmed == "{}" {
		return EmptyConfig(), nil
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse mapping config: %w", err)
	}
	return &cfg, nil
}

// ValidationError reports why a mapping configuration was rejected on save.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a configuration before it is persisted. Duplicate source or
// target fields and unknown transform ids are rejected, never silently
// repaired: the admin must resolve the conflict.
func (c *Config) Validate(registry *transform.Registry) []ValidationError {
	var errs []ValidationError

	seenSource := make(map[string]bool)
	seenTarget := make(map[string]bool)
	for i, m := range c.Mappings {
		where := fmt.Sprintf("mappings[%d]", i)

		if strings.TrimSpace(m.SourceField) == "" {
			errs = append(errs, ValidationError{Field: where, Message: "source_field must not be empty"})
		} else if seenSource[m.SourceField] {
			errs = append(errs, ValidationError{Field: where, Message: fmt.Sprintf("duplicate source_field %q", m.SourceField)})
		}
		seenSource[m.SourceField] = true

		if strings.TrimSpace(m.TargetField) == "" {
			errs = append(errs, ValidationError{Field: where, Message: "target_field must not be empty"})
		} else if seenTarget[m.TargetField] {
			errs = append(errs, ValidationError{Field: where, Message: fmt.Sprintf("duplicate target_field %q", m.TargetField)})
		}
		seenTarget[m.TargetField] = true

		if m.Transform != "" && registry != nil && !registry.Has(m.Transform) {
			errs = append(errs, ValidationError{Field: where, Message: fmt.Sprintf("unknown transform %q", m.Transform)})
		}
	}

	return errs
}
