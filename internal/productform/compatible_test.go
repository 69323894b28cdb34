package productform

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partsadmin/internal/models"
)

func TestParseCompatible(t *testing.T) {
	tests := []struct {
		name string
		raw  []string
		want []string
	}{
		{"stringified array", []string{`["Daily", "Cursor"]`}, []string{"Daily", "Cursor"}},
		{"plain values", []string{"Stralis", "AT"}, []string{"Stralis", "AT"}},
		{"mixed entries", []string{`["Tector"]`, " Hi-Way , Hi-Road,"}, []string{"Tector", "Hi-Way", "Hi-Road"}},
		{"empty pieces dropped", []string{`[]`, "", " , "}, []string{}},
		{"unknown and repeated dropped", []string{`["Daily","Scania","Daily"]`}, []string{"Daily"}},
		{"nil", nil, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseCompatible(tt.raw))
		})
	}
}

func TestForm_ToggleModelTwiceRestores(t *testing.T) {
	f := New(&fakeAPI{}, &models.Product{ID: "p1", Compatible: []string{`["Daily", "Cursor"]`}})
	before := f.Compatible()

	require.NoError(t, f.ToggleModel("Eurocargo"))
	assert.Equal(t, []string{"Daily", "Cursor", "Eurocargo"}, f.Compatible())
	require.NoError(t, f.ToggleModel("Eurocargo"))
	assert.Equal(t, before, f.Compatible())

	require.NoError(t, f.ToggleModel("Daily"))
	require.NoError(t, f.ToggleModel("Daily"))
	assert.Equal(t, []string{"Cursor", "Daily"}, f.Compatible(), "re-added model goes to the end")
}

func TestForm_ToggleUnknownModel(t *testing.T) {
	f := New(&fakeAPI{}, nil)
	err := f.ToggleModel("Actros")
	assert.True(t, errors.Is(err, ErrUnknownModel))
	assert.Empty(t, f.Compatible())
}

func TestCompatibleModels_ReturnsCopy(t *testing.T) {
	vocab := CompatibleModels()
	require.Len(t, vocab, 10)
	vocab[0] = "changed"
	assert.Equal(t, "Daily", CompatibleModels()[0])
	assert.True(t, IsModel("Hi-Road"))
	assert.False(t, IsModel("hi-road"))
}
