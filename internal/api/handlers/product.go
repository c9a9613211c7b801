package handlers

import (
	"context"
	"net/http"

	"github.com/trellis-commerce/storefront-api/internal/api/middleware"
	"github.com/trellis-commerce/storefront-api/internal/models"
	repository "github.com/trellis-commerce/storefront-api/internal/repositories"
	service "github.com/trellis-commerce/storefront-api/internal/services"
	"github.com/trellis-commerce/storefront-api/internal/utils"
	"github.com/trellis-commerce/storefront-api/internal/utils/response"
	"github.com/trellis-commerce/storefront-api/internal/validation"
	"github.com/go-playground/validator/v10"
)

type ProductHandler struct {
	productService service.ProductService
	products       repository.ProductRepository
	validator      *validator.Validate
	imageClient    *http.Client
}

func NewProductHandler(productService service.ProductService, products repository.ProductRepository,
	imageClient *http.Client) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		products:       products,
		validator:      utils.NewValidator(),
		imageClient:    imageClient,
	}
}

func (h *ProductHandler) ListProducts() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := h.productService.ListProducts(r.Context())
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Error("listing products failed", "error", err)
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, products)
	}
}

func (h *ProductHandler) GetProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		productID, err := utils.ParseIntParam(r, "productId")
		if err != nil {
			response.Fail(w, http.StatusBadRequest, map[string]string{"productId": "must be a positive integer"})
			return
		}

		product, err := h.productService.GetProductByID(r.Context(), productID)
		if err != nil {
			middleware.LoggerFromContext(r.Context()).Error("fetching product failed", "productId", productID, "error", err)
			response.Error(w, err)
			return
		}

		response.Success(w, http.StatusOK, product)
	}
}

func (h *ProductHandler) CreateProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		var req models.CreateProductRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		chain := validation.NewChain().
			Field("name",
				validation.NonEmpty(req.Name),
				validation.Unique(func(ctx context.Context) (bool, error) {
					return h.products.NameTaken(ctx, req.Name, 0)
				}, "product with similar name already exists"),
			).
			Field("imageUrl", validation.ImageURL(h.imageClient, req.ImageURL))
		if !validation.Resolve(w, chain.Run(r.Context())) {
			return
		}

		product, err := h.productService.CreateProduct(r.Context(), &req)
		if err != nil {
			logger.Error("creating product failed", "name", req.Name, "error", err)
			response.Error(w, err)
			return
		}

		logger.Info("product created", "productId", product.ID)
		response.Success(w, http.StatusCreated, product)
	}
}

func (h *ProductHandler) UpdateProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		productID, err := utils.ParseIntParam(r, "productId")
		if err != nil {
			response.Fail(w, http.StatusBadRequest, map[string]string{"productId": "must be a positive integer"})
			return
		}

		var req models.UpdateProductRequest
		if !utils.ParseAndValidate(r, w, &req, h.validator) {
			return
		}

		chain := validation.NewChain()
		if req.Name != nil {
			chain.Field("name",
				validation.NonEmpty(*req.Name),
				validation.Unique(func(ctx context.Context) (bool, error) {
					return h.products.NameTaken(ctx, *req.Name, productID)
				}, "product with similar name already exists"),
			)
		}
		if req.ImageURL != nil {
			chain.Field("imageUrl", validation.ImageURL(h.imageClient, *req.ImageURL))
		}
		if !validation.Resolve(w, chain.Run(r.Context())) {
			return
		}

		product, err := h.productService.UpdateProduct(r.Context(), productID, &req)
		if err != nil {
			logger.Error("updating product failed", "productId", productID, "error", err)
			response.Error(w, err)
			return
		}

		logger.Info("product updated", "productId", productID)
		response.Success(w, http.StatusOK, product)
	}
}

func (h *ProductHandler) DeleteProduct() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := middleware.LoggerFromContext(r.Context())

		productID, err := utils.ParseIntParam(r, "productId")
		if err != nil {
			response.Fail(w, http.StatusBadRequest, map[string]string{"productId": "must be a positive integer"})
			return
		}

		product, err := h.productService.DeleteProduct(r.Context(), productID)
		if err != nil {
			logger.Error("deleting product failed", "productId", productID, "error", err)
			response.Error(w, err)
			return
		}

		logger.Info("product deleted", "productId", productID)
		response.Success(w, http.StatusOK, product)
	}
}
