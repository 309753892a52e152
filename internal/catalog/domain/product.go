package domain

import (
	"time"
)

// Product is a catalog entry. Version is a per-row sequence bumped on every
// mutation; it rides along on change events so consumers can fence stale
// writes. The JSON field names are the public wire contract shared with the
// search projection.
type Product struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Brand        string   `json:"brand,omitempty"`
	Model        string   `json:"model,omitempty"`
	Description  string   `json:"description,omitempty"`
	Price        float64  `json:"price"`
	Category     string   `json:"category,omitempty"`
	Color        string   `json:"color,omitempty"`
	Dimensions   string   `json:"dimensions,omitempty"`
	Weight       string   `json:"weight,omitempty"`
	EnergyRating string   `json:"energyRating,omitempty"`
	MadeIn       string   `json:"madeIn,omitempty"`
	Distributor  string   `json:"distributor,omitempty"`
	Warranty     string   `json:"warranty,omitempty"`
	Quality      string   `json:"quality,omitempty"`
	ImageURL     string   `json:"imageURL,omitempty"`
	Features     []string `json:"features,omitempty"`
	Version      int64    `json:"version"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
