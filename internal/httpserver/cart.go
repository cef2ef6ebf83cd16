package httpserver

import (
	"net/http"

	"farmstand/internal/domain"
	"github.com/gin-gonic/gin"
)

type quantityRequest struct {
	Quantity *int `json:"quantity"`
}

type quoteRequest struct {
	PromoCode string `json:"promoCode"`
}

func (h *handlers) getCart(c *gin.Context) {
	lines, err := h.deps.CartSvc.Lines(c.Request.Context(), sessionFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if lines == nil {
		lines = []domain.PricedLine{}
	}
	c.JSON(http.StatusOK, gin.H{"lines": lines})
}

func (h *handlers) changeCartLine(c *gin.Context) {
	var req quantityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		abortWithError(c, http.StatusBadRequest, apiError{Code: "invalid_input", Message: "quantity is required"})
		return
	}
	if err := h.deps.CartSvc.ChangeLineQuantity(c.Request.Context(), sessionFrom(c), c.Param("lineId"), *req.Quantity); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) removeCartLine(c *gin.Context) {
	if err := h.deps.CartSvc.RemoveLine(c.Request.Context(), sessionFrom(c), c.Param("lineId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// quote returns the priced summary. An unknown promo code is reported on the quote, not as an error.
func (h *handlers) quote(c *gin.Context) {
	var req quoteRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			abortWithError(c, http.StatusBadRequest, apiError{Code: "invalid_input", Message: "invalid body"})
			return
		}
	}
	q, err := h.deps.CartSvc.Quote(c.Request.Context(), sessionFrom(c), req.PromoCode)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}
