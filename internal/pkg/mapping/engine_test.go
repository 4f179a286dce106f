package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadaxle/leadaxle/internal/pkg/transform"
)

func testRecord() map[string]interface{} {
	return map[string]interface{}{
		"first_name": "Jane",
		"phone":      "(555) 123-4567",
		"zip_code":   "90210",
		"service": map[string]interface{}{
			"window_count": float64(5),
			"timeframe":    "within_3_months",
			"owns_home":    true,
		},
	}
}

func TestApplyFieldMappings_DotPathsAndOrder(t *testing.T) {
	engine := NewEngine(transform.NewRegistry())
	cfg := &Config{
		Mappings: []FieldMapping{
			{SourceField: "service.window_count", TargetField: "details.windows", Transform: "number.integer", IncludeInPing: true, IncludeInPost: true, Order: 2},
			{SourceField: "first_name", TargetField: "contact.first", IncludeInPing: false, IncludeInPost: true, Order: 1},
			{SourceField: "phone", TargetField: "contact.phone", Transform: "phone.digits", IncludeInPing: false, IncludeInPost: true, Order: 3},
		},
	}

	ping, errs := engine.ApplyFieldMappings(cfg, testRecord(), PayloadPing)
	require.Empty(t, errs)
	assert.Equal(t, map[string]interface{}{
		"details": map[string]interface{}{"windows": 5},
	}, ping)

	post, errs := engine.ApplyFieldMappings(cfg, testRecord(), PayloadPost)
	require.Empty(t, errs)
	assert.Equal(t, "Jane", post["contact"].(map[string]interface{})["first"])
	assert.Equal(t, "5551234567", post["contact"].(map[string]interface{})["phone"])
}

func TestApplyFieldMappings_ValueMapBeforeTransform(t *testing.T) {
	engine := NewEngine(transform.NewRegistry())
	cfg := &Config{
		Mappings: []FieldMapping{
			{
				SourceField:   "service.timeframe",
				TargetField:   "timeframe",
				Transform:     "string.uppercase",
				ValueMap:      map[string]string{"within_3_months": "1-6 months"},
				IncludeInPing: true,
				IncludeInPost: true,
			},
		},
	}

	payload, errs := engine.ApplyFieldMappings(cfg, testRecord(), PayloadPing)
	require.Empty(t, errs)
	assert.Equal(t, "1-6 MONTHS", payload["timeframe"])
}

func TestApplyFieldMappings_AbsentSource(t *testing.T) {
	engine := NewEngine(transform.NewRegistry())
	cfg := &Config{
		Mappings: []FieldMapping{
			{SourceField: "service.missing", TargetField: "a", Required: true, IncludeInPing: true},
			{SourceField: "service.also_missing", TargetField: "b", DefaultValue: "fallback", IncludeInPing: true},
		},
	}

	payload, errs := engine.ApplyFieldMappings(cfg, testRecord(), PayloadPing)
	require.Empty(t, errs)

	_, present := payload["a"]
	assert.False(t, present, "required field without default must be omitted, not fail")
	assert.Equal(t, "fallback", payload["b"])
}

func TestApplyFieldMappings_TransformFailureSkipsField(t *testing.T) {
	engine := NewEngine(transform.NewRegistry())
	cfg := &Config{
		Mappings: []FieldMapping{
			{SourceField: "first_name", TargetField: "bad_phone", Transform: "phone.digits", IncludeInPing: true},
			{SourceField: "zip_code", TargetField: "zip", IncludeInPing: true},
		},
	}

	payload, errs := engine.ApplyFieldMappings(cfg, testRecord(), PayloadPing)

	require.Len(t, errs, 1)
	assert.Equal(t, "first_name", errs[0].SourceField)
	_, present := payload["bad_phone"]
	assert.False(t, present)
	assert.Equal(t, "90210", payload["zip"], "remaining fields still mapped")
}

func TestApplyFieldMappings_StaticFieldsWin(t *testing.T) {
	engine := NewEngine(transform.NewRegistry())
	cfg := &Config{
		Mappings: []FieldMapping{
			{SourceField: "zip_code", TargetField: "campaign", IncludeInPing: true, IncludeInPost: true},
		},
		StaticFieldsPing: map[string]interface{}{"campaign": "ping-campaign"},
		StaticFieldsPost: map[string]interface{}{"campaign": "post-campaign", "api_version": "2"},
	}

	ping, _ := engine.ApplyFieldMappings(cfg, testRecord(), PayloadPing)
	assert.Equal(t, "ping-campaign", ping["campaign"])

	post, _ := engine.ApplyFieldMappings(cfg, testRecord(), PayloadPost)
	assert.Equal(t, "post-campaign", post["campaign"])
	assert.Equal(t, "2", post["api_version"])
}

func TestApplyFieldMappings_NilConfig(t *testing.T) {
	engine := NewEngine(transform.NewRegistry())

	payload, errs := engine.ApplyFieldMappings(nil, testRecord(), PayloadPing)
	assert.Empty(t, payload)
	assert.Empty(t, errs)
}

func TestConfigValidate(t *testing.T) {
	registry := transform.NewRegistry()

	tests := []struct {
		name    string
		cfg     Config
		wantErr int
	}{
		{
			name: "valid",
			cfg: Config{Mappings: []FieldMapping{
				{SourceField: "a", TargetField: "x", Transform: "string.trim"},
				{SourceField: "b", TargetField: "y"},
			}},
			wantErr: 0,
		},
		{
			name: "duplicate source",
			cfg: Config{Mappings: []FieldMapping{
				{SourceField: "a", TargetField: "x"},
				{SourceField: "a", TargetField: "y"},
			}},
			wantErr: 1,
		},
		{
			name: "duplicate target",
			cfg: Config{Mappings: []FieldMapping{
				{SourceField: "a", TargetField: "x"},
				{SourceField: "b", TargetField: "x"},
			}},
			wantErr: 1,
		},
		{
			name: "empty fields and unknown transform",
			cfg: Config{Mappings: []FieldMapping{
				{SourceField: "", TargetField: "", Transform: "no.such"},
			}},
			wantErr: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.cfg.Validate(registry)
			assert.Len(t, errs, tt.wantErr)
		})
	}
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`{"mappings":[{"source_field":"a","target_field":"b"}]}`))
	require.NoError(t, err)
	require.Len(t, cfg.Mappings, 1)

	empty, err := ParseConfig([]byte("  "))
	require.NoError(t, err)
	assert.Empty(t, empty.Mappings)

	_, err = ParseConfig([]byte(`{"mappings":`))
	assert.Error(t, err)
}
