package sources

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, s string) map[string]interface{} {
	t.Helper()
	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(s), &doc))
	return doc
}

func TestLookup(t *testing.T) {
	doc := decode(t, `{
		"_id": "A",
		"daytime_phone": "555-123-4567",
		"customer": {"evening_phone": "(555) 123-4568", "fax": null, "ext": 42},
		"customer.flat": "flat value",
		"numeric_phone": 5551234569,
		"tags": ["x"]
	}`)

	tests := []struct {
		path   string
		want   string
		wantOK bool
	}{
		{"daytime_phone", "555-123-4567", true},
		{"customer.evening_phone", "(555) 123-4568", true},
		{"customer.flat", "flat value", true},
		{"customer.ext", "42", true},
		{"numeric_phone", "5551234569", true},
		{"customer.fax", "", false},
		{"customer", "", false},
		{"tags", "", false},
		{"customer.missing", "", false},
		{"daytime_phone.nested", "", false},
		{"missing", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := Lookup(doc, tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProject(t *testing.T) {
	doc := decode(t, `{"customer": {"daytime_phone": "555-123-4567"}, "evening_phone": null}`)

	got := Project(doc, []string{"customer.daytime_phone", "evening_phone", "other"})
	assert.Equal(t, map[string]string{"customer.daytime_phone": "555-123-4567"}, got)
}
