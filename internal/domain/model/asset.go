// Package model contains domain models passed between layers.
package model

import "time"

// Asset is one collectible owned by a holder or offered in a candidate pool.
// The core never mutates an Asset once it has been handed over.
type Asset struct {
	ID          string         `json:"object_id" koanf:"object_id"`
	Name        string         `json:"name,omitempty" koanf:"name"`
	Collection  string         `json:"collection,omitempty" koanf:"collection"`
	Description string         `json:"description,omitempty" koanf:"description"`
	ImageURL    string         `json:"image_url,omitempty" koanf:"image_url"`
	Metadata    map[string]any `json:"traits,omitempty" koanf:"traits"`

	// Price and ListedAt are only populated for marketplace candidates.
	Price    *float64  `json:"price,omitempty" koanf:"price"`
	ListedAt time.Time `json:"listed_at,omitempty" koanf:"listed_at"`
}

// Tag is a composite attribute token, "<attribute>_<value>", lower-cased.
type Tag string

// NewTag joins an attribute name and value into a Tag.
func NewTag(attribute, value string) Tag {
	return Tag(attribute + "_" + value)
}
