package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/sellorahq/sellora-be/internal/http/respond"
	"github.com/sellorahq/sellora-be/internal/middleware"
	"github.com/sellorahq/sellora-be/internal/models"
	"github.com/sellorahq/sellora-be/internal/models/dto"
	"github.com/sellorahq/sellora-be/internal/storage"
)

const productPageSize = 10

// ProductHandler owns the seller-scoped product catalog endpoints. Every
// operation acts only on records owned by the authenticated user.
type ProductHandler struct {
	store    storage.ProductStore
	validate *validator.Validate
}

// NewProductHandler constructs the handler.
func NewProductHandler(store storage.ProductStore) *ProductHandler {
	return &ProductHandler{store: store, validate: validator.New()}
}

// Handler returns the method-dispatching handler for /products. The caller
// is expected to wrap it with the auth middleware.
func (h *ProductHandler) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := middleware.IdentityFrom(r.Context())
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "authentication required")
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.list(w, r, identity.UserID)
		case http.MethodPost:
			h.create(w, r, identity.UserID)
		case http.MethodPut:
			h.update(w, r, identity.UserID)
		case http.MethodDelete:
			h.delete(w, r, identity.UserID)
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})
}

func (h *ProductHandler) list(w http.ResponseWriter, r *http.Request, userID int64) {
	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			respond.Error(w, http.StatusBadRequest, "Invalid page number")
			return
		}
		page = parsed
	}

	products, total, err := h.store.ProductsByUser(r.Context(), userID, productPageSize, (page-1)*productPageSize)
	if err != nil {
		log.Printf("list products for user %d: %v", userID, err)
		respond.Error(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	if products == nil {
		products = []models.Product{}
	}
	respond.JSON(w, http.StatusOK, dto.ProductPage{Count: total, Results: products})
}

func (h *ProductHandler) create(w http.ResponseWriter, r *http.Request, userID int64) {
	var req dto.ProductCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respond.Error(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	exists, err := h.store.HasProductNamed(r.Context(), userID, req.ProductName)
	if err != nil {
		log.Printf("check product name for user %d: %v", userID, err)
		respond.Error(w, http.StatusInternalServerError, "failed to create product")
		return
	}
	if exists {
		respond.Error(w, http.StatusBadRequest, "You already have a product with this name.")
		return
	}

	product := models.Product{
		UserID:      userID,
		ProductName: req.ProductName,
		CategoryID:  req.Category,
		SKU:         req.SKU,
		ProductImg:  req.ProductImg,
		UnitPrice:   req.UnitPrice,
		Quantity:    req.Quantity,
		Description: req.Description,
	}
	created, err := h.store.CreateProduct(r.Context(), product)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateSKU) {
			respond.Error(w, http.StatusBadRequest, "A product with this SKU already exists.")
			return
		}
		log.Printf("create product for user %d: %v", userID, err)
		respond.Error(w, http.StatusInternalServerError, "failed to create product")
		return
	}
	respond.JSON(w, http.StatusCreated, dto.ProductResponse{
		Message: "Product created successfully!",
		Product: created,
	})
}

func (h *ProductHandler) update(w http.ResponseWriter, r *http.Request, userID int64) {
	productID, ok := productIDFromQuery(w, r)
	if !ok {
		return
	}
	product, err := h.store.ProductByID(r.Context(), userID, productID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "Product not found or you do not have permission to edit it.")
			return
		}
		log.Printf("fetch product %d for user %d: %v", productID, userID, err)
		respond.Error(w, http.StatusInternalServerError, "failed to fetch product")
		return
	}

	var req dto.ProductUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respond.Error(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	applyProductPatch(&product, req)
	updated, err := h.store.UpdateProduct(r.Context(), product)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateSKU) {
			respond.Error(w, http.StatusBadRequest, "A product with this SKU already exists.")
			return
		}
		log.Printf("update product %d for user %d: %v", productID, userID, err)
		respond.Error(w, http.StatusInternalServerError, "failed to update product")
		return
	}
	respond.JSON(w, http.StatusOK, dto.ProductResponse{
		Message: "Product updated successfully!",
		Product: updated,
	})
}

func (h *ProductHandler) delete(w http.ResponseWriter, r *http.Request, userID int64) {
	productID, ok := productIDFromQuery(w, r)
	if !ok {
		return
	}
	if err := h.store.DeleteProduct(r.Context(), userID, productID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			respond.Error(w, http.StatusNotFound, "Product not found or you do not have permission to delete it.")
			return
		}
		log.Printf("delete product %d for user %d: %v", productID, userID, err)
		respond.Error(w, http.StatusInternalServerError, "failed to delete product")
		return
	}
	respond.JSON(w, http.StatusOK, dto.MessageResponse{Message: "Product deleted successfully!"})
}

func productIDFromQuery(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("id")
	if raw == "" {
		respond.Error(w, http.StatusBadRequest, "Product ID is required")
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "Invalid Product ID")
		return 0, false
	}
	return id, true
}

func applyProductPatch(product *models.Product, req dto.ProductUpdateRequest) {
	if req.ProductName != nil {
		product.ProductName = *req.ProductName
	}
	if req.Category != nil {
		product.CategoryID = *req.Category
	}
	if req.SKU != nil {
		product.SKU = *req.SKU
	}
	if req.ProductImg != nil {
		product.ProductImg = req.ProductImg
	}
	if req.UnitPrice != nil {
		product.UnitPrice = *req.UnitPrice
	}
	if req.Quantity != nil {
		product.Quantity = *req.Quantity
	}
	if req.Description != nil {
		product.Description = req.Description
	}
}
