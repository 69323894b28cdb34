package productform

import (
	"fmt"
	"slices"
	"strings"
)

// compatibleModels is the vocabulary shared with the shop backend.
var compatibleModels = []string{
	"Daily", "Stralis", "Tector", "Eurocargo", "Vertis",
	"Powerstar", "Hi-Way", "Hi-Road", "Cursor", "AT",
}

// CompatibleModels returns the model vocabulary in display order.
func CompatibleModels() []string {
	return slices.Clone(compatibleModels)
}

func IsModel(name string) bool {
	return slices.Contains(compatibleModels, name)
}

// ParseCompatible flattens the compatibility values stored on a product.
// Entries may be stringified arrays such as `["Daily", "Cursor"]`; brackets
// and quotes are dropped and every comma separated piece becomes one model.
// Names outside the vocabulary and repeats are skipped.
func ParseCompatible(raw []string) []string {
	out := []string{}
	for _, entry := range raw {
		cleaned := strings.NewReplacer("[", "", "]", "", `"`, "").Replace(entry)
		for _, piece := range strings.Split(cleaned, ",") {
			name := strings.TrimSpace(piece)
			if name == "" || !IsModel(name) || slices.Contains(out, name) {
				continue
			}
			out = append(out, name)
		}
	}
	return out
}

// ToggleModel removes model when selected, appends it otherwise.
func (f *Form) ToggleModel(model string) error {
	if !IsModel(model) {
		return fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	if i := slices.Index(f.compatible, model); i >= 0 {
		f.compatible = slices.Delete(f.compatible, i, i+1)
		return nil
	}
	f.compatible = append(f.compatible, model)
	return nil
}

// Compatible returns the selected models in selection order.
func (f *Form) Compatible() []string {
	return slices.Clone(f.compatible)
}

func (f *Form) HasModel(model string) bool {
	return slices.Contains(f.compatible, model)
}
