package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ConnorDW-SA/marketplace/internal/domain"
	"github.com/ConnorDW-SA/marketplace/internal/query"
	"github.com/ConnorDW-SA/marketplace/internal/service"
	"github.com/ConnorDW-SA/marketplace/pkg/httputil"
	"github.com/ConnorDW-SA/marketplace/pkg/pagination"
)

// ProductHandler handles HTTP requests for product endpoints.
type ProductHandler struct {
	service *service.ProductService
	parser  *query.Parser
	baseURL *url.URL
	logger  *slog.Logger
}

// NewProductHandler creates a new product HTTP handler. Pagination links are
// built on baseURL; when it is nil they are built from the request's own
// scheme and host.
func NewProductHandler(svc *service.ProductService, parser *query.Parser, baseURL *url.URL, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service: svc,
		parser:  parser,
		baseURL: baseURL,
		logger:  logger,
	}
}

// --- Request DTOs ---

// CreateProductRequest is the JSON request body for creating a product.
type CreateProductRequest struct {
	Name        string                `json:"name" validate:"required,notblank"`
	Description string                `json:"description" validate:"required,notblank"`
	Brand       string                `json:"brand" validate:"required,notblank"`
	ImageURL    string                `json:"imageUrl" validate:"required,notblank"`
	Price       *float64              `json:"price" validate:"required"`
	Category    string                `json:"category"`
	Reviews     []CreateReviewRequest `json:"reviews" validate:"omitempty,dive"`
}

// UpdateProductRequest is the JSON request body for updating a product. Only
// the fields present in the body are replaced.
type UpdateProductRequest struct {
	Name        *string  `json:"name" validate:"omitempty,notblank"`
	Description *string  `json:"description" validate:"omitempty,notblank"`
	Brand       *string  `json:"brand" validate:"omitempty,notblank"`
	ImageURL    *string  `json:"imageUrl" validate:"omitempty,notblank"`
	Price       *float64 `json:"price"`
	Category    *string  `json:"category"`
}

// --- Response DTOs ---

// ListProductsResponse is the body of GET /products.
type ListProductsResponse struct {
	Links      pagination.Links `json:"links"`
	TotalPages int              `json:"totalPages"`
	Total      int              `json:"total"`
	Products   any              `json:"products"`
}

// --- Handlers ---

// ListProducts handles GET /products
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()

	q, err := h.parser.Parse(values)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	result, err := h.service.ListProducts(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	products, err := project(result.Products, q.Fields)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, ListProductsResponse{
		Links:      pagination.BuildLinks(h.linkBase(r), values, result.Window, result.Total),
		TotalPages: result.TotalPages(),
		Total:      result.Total,
		Products:   products,
	})
}

// FilterProducts handles GET /products/filter
func (h *ProductHandler) FilterProducts(w http.ResponseWriter, r *http.Request) {
	q, err := h.parser.ParseRange(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	products, err := h.service.FilterProducts(r.Context(), q)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if products == nil {
		products = []domain.Product{}
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: products})
}

// GetProduct handles GET /products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// CreateProduct handles POST /products
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	input := &service.CreateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Brand:       req.Brand,
		ImageURL:    req.ImageURL,
		Price:       *req.Price,
		Category:    req.Category,
	}
	for _, rv := range req.Reviews {
		input.Reviews = append(input.Reviews, rv.input())
	}

	product, err := h.service.CreateProduct(r.Context(), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: product})
}

// UpdateProduct handles PUT /products/{id}
func (h *ProductHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req UpdateProductRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	patch := domain.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Brand:       req.Brand,
		ImageURL:    req.ImageURL,
		Price:       req.Price,
		Category:    req.Category,
	}

	product, err := h.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: product})
}

// DeleteProduct handles DELETE /products/{id}
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// linkBase returns the absolute URL of the current collection without its
// query string.
func (h *ProductHandler) linkBase(r *http.Request) url.URL {
	if h.baseURL != nil {
		u := *h.baseURL
		u.Path = strings.TrimRight(u.Path, "/") + r.URL.Path
		u.RawQuery = ""
		return u
	}

	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path}
}

// project renders products restricted to fields. Without fields the
// products are returned as is.
func project(products []domain.Product, fields []string) (any, error) {
	if len(fields) == 0 {
		if products == nil {
			return []domain.Product{}, nil
		}
		return products, nil
	}

	out := make([]map[string]any, 0, len(products))
	for i := range products {
		doc, err := products[i].Project(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}
