package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/eloritzkovitz/voltrico/internal/catalog/domain"
	"github.com/eloritzkovitz/voltrico/internal/catalog/repository"
	"github.com/eloritzkovitz/voltrico/internal/catalog/service"
	apperrors "github.com/eloritzkovitz/voltrico/pkg/errors"
	"github.com/eloritzkovitz/voltrico/pkg/httputil"
	"github.com/eloritzkovitz/voltrico/pkg/validator"
)

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service *service.ProductService
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler.
func NewProductHandler(svc *service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		logger:  logger,
	}
}

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	Name         string   `json:"name" validate:"required,min=1,max=500"`
	Brand        string   `json:"brand" validate:"max=200"`
	Model        string   `json:"model" validate:"max=200"`
	Description  string   `json:"description"`
	Price        float64  `json:"price" validate:"gte=0"`
	Category     string   `json:"category" validate:"max=200"`
	Color        string   `json:"color" validate:"max=100"`
	Dimensions   string   `json:"dimensions" validate:"max=200"`
	Weight       string   `json:"weight" validate:"max=100"`
	EnergyRating string   `json:"energyRating" validate:"max=50"`
	MadeIn       string   `json:"madeIn" validate:"max=200"`
	Distributor  string   `json:"distributor" validate:"max=200"`
	Warranty     string   `json:"warranty" validate:"max=200"`
	Quality      string   `json:"quality" validate:"max=100"`
	ImageURL     string   `json:"imageURL" validate:"omitempty,url"`
	Features     []string `json:"features" validate:"max=100,dive,max=500"`
}

// UpdateProductRequest is the JSON request body for updating a product.
// All fields are optional.
type UpdateProductRequest struct {
	Name         *string  `json:"name" validate:"omitempty,min=1,max=500"`
	Brand        *string  `json:"brand" validate:"omitempty,max=200"`
	Model        *string  `json:"model" validate:"omitempty,max=200"`
	Description  *string  `json:"description"`
	Price        *float64 `json:"price" validate:"omitempty,gte=0"`
	Category     *string  `json:"category" validate:"omitempty,max=200"`
	Color        *string  `json:"color" validate:"omitempty,max=100"`
	Dimensions   *string  `json:"dimensions" validate:"omitempty,max=200"`
	Weight       *string  `json:"weight" validate:"omitempty,max=100"`
	EnergyRating *string  `json:"energyRating" validate:"omitempty,max=50"`
	MadeIn       *string  `json:"madeIn" validate:"omitempty,max=200"`
	Distributor  *string  `json:"distributor" validate:"omitempty,max=200"`
	Warranty     *string  `json:"warranty" validate:"omitempty,max=200"`
	Quality      *string  `json:"quality" validate:"omitempty,max=100"`
	ImageURL     *string  `json:"imageURL" validate:"omitempty,url"`
	Features     []string `json:"features" validate:"omitempty,max=100,dive,max=500"`
}

// listProductsData is the payload of the product list response. The search
// service's reindexer consumes this shape.
type listProductsData struct {
	Products []domain.Product `json:"products"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	Limit    int              `json:"limit"`
}

// ListProducts handles GET /products.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	filter := repository.ProductFilter{
		Page:  1,
		Limit: 20,
	}

	if v := r.URL.Query().Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			httputil.WriteError(w, r, apperrors.InvalidInput("page must be a positive integer"), h.logger)
			return
		}
		filter.Page = page
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			httputil.WriteError(w, r, apperrors.InvalidInput("limit must be a positive integer"), h.logger)
			return
		}
		filter.Limit = limit
	}
	if v := r.URL.Query().Get("category"); v != "" {
		filter.Category = &v
	}
	if v := r.URL.Query().Get("search"); v != "" {
		filter.Search = &v
	}

	products, total, err := h.service.ListProducts(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: listProductsData{
		Products: products,
		Total:    total,
		Page:     filter.Page,
		Limit:    filter.Limit,
	}})
}

// GetProduct handles GET /products/{id}.
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("product id is required"), h.logger)
		return
	}

	product, err := h.service.GetProduct(r.Context(), id)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// CreateProduct handles POST /products.
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req CreateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := &service.CreateProductInput{
		Name:         req.Name,
		Brand:        req.Brand,
		Model:        req.Model,
		Description:  req.Description,
		Price:        req.Price,
		Category:     req.Category,
		Color:        req.Color,
		Dimensions:   req.Dimensions,
		Weight:       req.Weight,
		EnergyRating: req.EnergyRating,
		MadeIn:       req.MadeIn,
		Distributor:  req.Distributor,
		Warranty:     req.Warranty,
		Quality:      req.Quality,
		ImageURL:     req.ImageURL,
		Features:     req.Features,
	}

	product, err := h.service.CreateProduct(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// UpdateProduct handles PUT /products/{id}.
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("product id is required"), h.logger)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req UpdateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, apperrors.InvalidInput("invalid request body: "+err.Error()), h.logger)
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := &service.UpdateProductInput{
		Name:         req.Name,
		Brand:        req.Brand,
		Model:        req.Model,
		Description:  req.Description,
		Price:        req.Price,
		Category:     req.Category,
		Color:        req.Color,
		Dimensions:   req.Dimensions,
		Weight:       req.Weight,
		EnergyRating: req.EnergyRating,
		MadeIn:       req.MadeIn,
		Distributor:  req.Distributor,
		Warranty:     req.Warranty,
		Quality:      req.Quality,
		ImageURL:     req.ImageURL,
		Features:     req.Features,
	}

	product, err := h.service.UpdateProduct(r.Context(), id, input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// DeleteProduct handles DELETE /products/{id}.
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		httputil.WriteError(w, r, apperrors.InvalidInput("product id is required"), h.logger)
		return
	}

	if err := h.service.DeleteProduct(r.Context(), id); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: map[string]string{"id": id, "status": "deleted"}})
}
