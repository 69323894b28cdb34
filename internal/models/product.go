package models

import (
	"bytes"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Product is a catalog record as the shop API returns it.
type Product struct {
	ID          string              `json:"_id"`
	Name        string              `json:"name"`
	Price       decimal.NullDecimal `json:"price"`
	Stock       *int                `json:"stock,omitempty"`
	Category    CategoryRef         `json:"category"`
	Brand       string              `json:"brand"`
	PartNumber  string              `json:"partNumber"`
	Description string              `json:"description"`
	Featured    bool                `json:"featured"`
	Compatible  []string            `json:"compatible"`
	Images      []Image             `json:"images"`
}

// Image is an already uploaded product photo.
type Image struct {
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Category is reference data for the category select.
type Category struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

// CategoryRef is the category of a product. The API sends either the bare
// identifier or the populated category object.
type CategoryRef struct {
	ID   string
	Name string
}

func (c *CategoryRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = CategoryRef{}
		return nil
	}
	if data[0] == '"' {
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*c = CategoryRef{ID: id}
		return nil
	}
	var cat Category
	if err := json.Unmarshal(data, &cat); err != nil {
		return err
	}
	*c = CategoryRef{ID: cat.ID, Name: cat.Name}
	return nil
}

func (c CategoryRef) MarshalJSON() ([]byte, error) {
	if c.Name == "" {
		return json.Marshal(c.ID)
	}
	return json.Marshal(Category{ID: c.ID, Name: c.Name})
}
