package handlers

import (
	"net/http"

	"github.com/trellis-commerce/storefront-api/internal/utils/response"
)

// Status is the liveness probe.
func Status() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.Success(w, http.StatusOK, "available")
	}
}
