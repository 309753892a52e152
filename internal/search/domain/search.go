package domain

import (
	"time"
)

// ProductDocument is a product as stored in the search index. Field names
// mirror the catalog service's wire format. Version is the entity's change
// sequence and drives stale-write fencing in the engine.
type ProductDocument struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Brand        string   `json:"brand"`
	Model        string   `json:"model,omitempty"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	Category     string   `json:"category"`
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
}

// OrderDocument is an order as stored in the search index.
type OrderDocument struct {
	ID         string    `json:"id"`
	OrderID    string    `json:"orderId"`
	CustomerID string    `json:"customerId"`
	ProductID  string    `json:"productId"`
	Status     string    `json:"status"`
	Date       time.Time `json:"date"`
	Version    int64     `json:"version"`
}

// Sort orders.
const (
	OrderAsc  = "asc"
	OrderDesc = "desc"
)

// Pagination bounds. Limit requests above MaxLimit are clamped, not rejected.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Default sort fields per entity type.
const (
	DefaultProductSort = "name"
	DefaultOrderSort   = "date"
)

var productSortFields = map[string]struct{}{
	"name":     {},
	"price":    {},
	"category": {},
}

var orderSortFields = map[string]struct{}{
	"date":       {},
	"status":     {},
	"customerId": {},
}

// ValidProductSort reports whether field is a sortable product field.
func ValidProductSort(field string) bool {
	_, ok := productSortFields[field]
	return ok
}

// ValidOrderSort reports whether field is a sortable order field.
func ValidOrderSort(field string) bool {
	_, ok := orderSortFields[field]
	return ok
}

// ValidOrder reports whether o is "asc" or "desc".
func ValidOrder(o string) bool {
	return o == OrderAsc || o == OrderDesc
}

// ProductQuery holds all parameters for a product search request.
type ProductQuery struct {
	Query    string
	Category *string
	PriceMin *float64
	PriceMax *float64
	Page     int
	Limit    int
	SortBy   string
	Order    string
}

// OrderQuery holds all parameters for an order search request.
type OrderQuery struct {
	Status     *string
	CustomerID *string
	DateFrom   *time.Time
	DateTo     *time.Time
	Page       int
	Limit      int
	SortBy     string
	Order      string
}

// ProductResult is the paginated product search response.
type ProductResult struct {
	Total    int               `json:"total"`
	Products []ProductDocument `json:"products"`
	Page     int               `json:"page"`
	Limit    int               `json:"limit"`
}

// OrderResult is the paginated order search response.
type OrderResult struct {
	Total  int             `json:"total"`
	Orders []OrderDocument `json:"orders"`
	Page   int             `json:"page"`
	Limit  int             `json:"limit"`
}
