package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProduct_UnmarshalCategoryShapes(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantID   string
		wantName string
	}{
		{"raw identifier", `{"category":"c1"}`, "c1", ""},
		{"populated object", `{"category":{"_id":"c2","name":"Frenos"}}`, "c2", "Frenos"},
		{"null", `{"category":null}`, "", ""},
		{"missing", `{}`, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Product
			require.NoError(t, json.Unmarshal([]byte(tt.body), &p))
			assert.Equal(t, tt.wantID, p.Category.ID)
			assert.Equal(t, tt.wantName, p.Category.Name)
		})
	}
}

func TestProduct_UnmarshalPrice(t *testing.T) {
	var p Product
	require.NoError(t, json.Unmarshal([]byte(`{"_id":"p1","price":1500.5,"stock":3}`), &p))
	require.True(t, p.Price.Valid)
	assert.Equal(t, "1500.5", p.Price.Decimal.String())
	require.NotNil(t, p.Stock)
	assert.Equal(t, 3, *p.Stock)

	var quoted Product
	require.NoError(t, json.Unmarshal([]byte(`{"price":"99.90"}`), &quoted))
	assert.Equal(t, "99.9", quoted.Price.Decimal.String())

	var missing Product
	require.NoError(t, json.Unmarshal([]byte(`{"name":"Filtro"}`), &missing))
	assert.False(t, missing.Price.Valid)
	assert.Nil(t, missing.Stock)
}

func TestCategoryRef_MarshalRoundTrip(t *testing.T) {
	out, err := json.Marshal(CategoryRef{ID: "c1"})
	require.NoError(t, err)
	assert.JSONEq(t, `"c1"`, string(out))

	out, err = json.Marshal(CategoryRef{ID: "c1", Name: "Motor"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"_id":"c1","name":"Motor"}`, string(out))
}
