package mapping

import (
	"fmt"
	"sort"

	"github.com/leadaxle/leadaxle/internal/pkg/transform"
)

// TransformError is a per-field, non-fatal failure. The field is skipped and
// the rest of the payload is still produced.
type TransformError struct {
	SourceField string `json:"source_field"`
	Transform   string `json:"transform"`
	Message     string `json:"message"`
}

func (e TransformError) Error() string {
	return fmt.Sprintf("transform %q on %q: %s", e.Transform, e.SourceField, e.Message)
}

// Engine builds buyer payloads from lead records. It performs no I/O; the
// configuration is already loaded by the caller.
type Engine struct {
	registry *transform.Registry
}

func NewEngine(registry *transform.Registry) *Engine {
	return &Engine{registry: registry}
}

// Registry exposes the transform registry for config validation.
func (e *Engine) Registry() *transform.Registry {
	return e.registry
}

// ApplyFieldMappings produces one payload variant from a lead record. The
// contract is best-effort transformation: per-field failures are reported in
// the returned slice and never prevent the payload from being produced.
func (e *Engine) ApplyFieldMappings(cfg *Config, record map[string]interface{}, payloadType PayloadType) (map[string]interface{}, []TransformError) {
	payload := make(map[string]interface{})
	var errs []TransformError
	if cfg == nil {
		return payload, errs
	}

	mappings := make([]FieldMapping, len(cfg.Mappings))
	copy(mappings, cfg.Mappings)
	sort.SliceStable(mappings, func(i, j int) bool { return mappings[i].Order < mappings[j].Order })

	for _, m := range mappings {
		if payloadType == PayloadPing && !m.IncludeInPing {
			continue
		}
		if payloadType == PayloadPost && !m.IncludeInPost {
			continue
		}

		value, found := resolvePath(record, m.SourceField)
		if !found {
			// Required-with-no-default degrades to an omitted field; the
			// required flag is advisory metadata for validation only.
			if m.DefaultValue == nil {
				continue
			}
			value = m.DefaultValue
		}

		// ValueMap substitution always precedes the transform.
		if len(m.ValueMap) > 0 {
			if s, ok := value.(string); ok {
				if mapped, ok := m.ValueMap[s]; ok {
					value = mapped
				}
			}
		}

		if m.Transform != "" {
			transformed, err := e.registry.Apply(m.Transform, value)
			if err != nil {
				errs = append(errs, TransformError{
					SourceField: m.SourceField,
					Transform:   m.Transform,
					Message:     err.Error(),
				})
				continue
			}
			value = transformed
		}

		writePath(payload, m.TargetField, value)
	}

	// Static fields are applied last and win over mapped fields.
	statics := cfg.StaticFieldsPing
	if payloadType == PayloadPost {
		statics = cfg.StaticFieldsPost
	}
	for key, value := range statics {
		writePath(payload, key, value)
	}

	return payload, errs
}
