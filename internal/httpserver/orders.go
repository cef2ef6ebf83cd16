package httpserver

import (
	"net/http"
	"strconv"

	"farmstand/internal/domain"
	cancelsvc "farmstand/internal/service/cancellation"
	ordersvc "farmstand/internal/service/order"
	"github.com/gin-gonic/gin"
)

type cancelRequest struct {
	Token        string `json:"token"`
	Reason       string `json:"reason"`
	RefundMethod string `json:"refundMethod"`
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *handlers) listOrders(c *gin.Context) {
	views, err := h.deps.OrderSvc.List(c.Request.Context(), sessionFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	if views == nil {
		views = []ordersvc.View{}
	}
	c.JSON(http.StatusOK, gin.H{"orders": views})
}

func (h *handlers) getOrder(c *gin.Context) {
	v, err := h.deps.OrderSvc.Get(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (h *handlers) prepareCancellation(c *gin.Context) {
	t, err := h.deps.CancelSvc.Prepare(c.Request.Context(), sessionFrom(c), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

func (h *handlers) cancelOrder(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, apiError{Code: "invalid_input", Message: "invalid body"})
		return
	}
	session := sessionFrom(c)
	out, err := h.deps.CancelSvc.RequestCancellation(c.Request.Context(), session, cancelsvc.Request{
		OrderID:      c.Param("id"),
		Token:        req.Token,
		Reason:       req.Reason,
		RefundMethod: req.RefundMethod,
	})
	if err != nil {
		h.logger.Printf("http: cancel order_id=%s buyer_id=%s error=%v", c.Param("id"), session.BuyerID, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *handlers) advanceOrder(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Status == "" {
		abortWithError(c, http.StatusBadRequest, apiError{Code: "invalid_input", Message: "status is required"})
		return
	}
	o, err := h.deps.OrderSvc.Advance(c.Request.Context(), c.Param("id"), domain.OrderStatus(req.Status))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (h *handlers) listAttempts(c *gin.Context) {
	status := domain.AttemptStatus(c.DefaultQuery("status", string(domain.AttemptReconciliationNeeded)))
	if !status.Valid() {
		abortWithError(c, http.StatusBadRequest, apiError{Code: "invalid_input", Message: "unknown attempt status"})
		return
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			abortWithError(c, http.StatusBadRequest, apiError{Code: "invalid_input", Message: "limit must be between 1 and 500"})
			return
		}
		limit = n
	}
	attempts, err := h.deps.CheckoutSvc.Attempts(c.Request.Context(), status, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	if attempts == nil {
		attempts = []domain.CheckoutAttempt{}
	}
	c.JSON(http.StatusOK, gin.H{"attempts": attempts})
}

func (h *handlers) getWallet(c *gin.Context) {
	session := sessionFrom(c)
	balance, err := h.deps.Wallets.WalletBalance(c.Request.Context(), session.BuyerID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"buyerId": session.BuyerID, "balance": balance})
}
