package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name      string
		transform string
		in        interface{}
		want      interface{}
	}{
		{"yes from bool", "boolean.yesNo", true, "Yes"},
		{"no from string", "boolean.yesNo", "no", "No"},
		{"yes from string y", "boolean.yesNo", "y", "Yes"},
		{"one from bool", "boolean.oneZero", true, "1"},
		{"zero from number", "boolean.oneZero", float64(0), "0"},
		{"uppercase", "string.uppercase", "1-6 months", "1-6 MONTHS"},
		{"lowercase", "string.lowercase", "Bay", "bay"},
		{"trim", "string.trim", "  hi  ", "hi"},
		{"phone strips formatting", "phone.digits", "(555) 123-4567", "5551234567"},
		{"phone strips leading one", "phone.digits", "1-555-123-4567", "5551234567"},
		{"phone e164", "phone.e164", "555.123.4567", "+15551234567"},
		{"iso from us date", "date.isoDate", "07/04/2026", "2026-07-04"},
		{"us from iso date", "date.usDate", "2026-07-04", "07/04/2026"},
		{"currency from float", "number.currency", 42.5, "42.50"},
		{"currency from string", "number.currency", "42", "42.00"},
		{"integer truncates", "number.integer", 42.9, 42},
		{"zip from zip+4", "zip.five", "90210-1234", "90210"},
		{"window type code", "service.windowTypeCode", "Double_Hung", "DH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Apply(tt.transform, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuiltins_Errors(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name      string
		transform string
		in        interface{}
	}{
		{"phone too short", "phone.digits", "12345"},
		{"unparseable bool", "boolean.yesNo", "maybe"},
		{"unparseable date", "date.isoDate", "next tuesday"},
		{"unparseable number", "number.currency", "abc"},
		{"zip too short", "zip.five", "123"},
		{"unknown window type", "service.windowTypeCode", "porthole"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Apply(tt.transform, tt.in)
			assert.Error(t, err)
		})
	}
}

func TestRegistry_UnknownIDPassesThrough(t *testing.T) {
	r := NewRegistry()

	got, err := r.Apply("no.suchTransform", "value")
	require.NoError(t, err)
	assert.Equal(t, "value", got)
}

func TestRegistry_NilShortCircuits(t *testing.T) {
	r := NewRegistry()
	r.Register("panics", func(v interface{}) (interface{}, error) {
		t.Fatal("transform must not run for nil input")
		return nil, nil
	})

	got, err := r.Apply("panics", nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRegistry_IDsSorted(t *testing.T) {
	r := NewRegistry()

	ids := r.IDs()
	require.NotEmpty(t, ids)
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}
	assert.True(t, r.Has("phone.e164"))
	assert.False(t, r.Has("phone.e165"))
}
