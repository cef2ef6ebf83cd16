package httpserver

import (
	"net/http"

	"farmstand/internal/domain"
	checkoutsvc "farmstand/internal/service/checkout"
	"github.com/gin-gonic/gin"
)

type outcomeRequest struct {
	Outcome string `json:"outcome"`
}

type verifyResponse struct {
	Verification checkoutsvc.VerifyOutcome `json:"verification"`
	Orders       []domain.Order            `json:"orders"`
}

func (h *handlers) initializeCheckout(c *gin.Context) {
	var in checkoutsvc.InitializeInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&in); err != nil {
			abortWithError(c, http.StatusBadRequest, apiError{Code: "invalid_input", Message: "invalid body"})
			return
		}
	}
	session := sessionFrom(c)
	res, err := h.deps.CheckoutSvc.Initialize(c.Request.Context(), session, in)
	if err != nil {
		h.logger.Printf("http: checkout initialize buyer_id=%s error=%v", session.BuyerID, err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (h *handlers) sessionOutcome(c *gin.Context) {
	var req outcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, apiError{Code: "invalid_input", Message: "outcome is required"})
		return
	}
	outcome, ok := domain.ParseSessionOutcome(req.Outcome)
	if !ok {
		abortWithError(c, http.StatusBadRequest, apiError{Code: "invalid_input", Message: "outcome must be completed, cancelled or dismissed"})
		return
	}
	res, err := h.deps.CheckoutSvc.HandleSessionOutcome(c.Request.Context(), sessionFrom(c), c.Param("reference"), outcome)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// verifyCheckout checks the payment and, once it succeeded, creates the vendor orders.
// Calling it again after success returns the same orders.
func (h *handlers) verifyCheckout(c *gin.Context) {
	ctx := c.Request.Context()
	session := sessionFrom(c)
	ref := c.Param("reference")

	v, err := h.deps.CheckoutSvc.Verify(ctx, session, ref)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := verifyResponse{Verification: v, Orders: []domain.Order{}}
	if !v.Succeeded {
		c.JSON(http.StatusOK, resp)
		return
	}
	orders, err := h.deps.CheckoutSvc.Materialize(ctx, session, ref)
	if err != nil {
		h.logger.Printf("http: materialize reference=%s buyer_id=%s error=%v", ref, session.BuyerID, err)
		writeError(c, err)
		return
	}
	resp.Orders = orders
	c.JSON(http.StatusOK, resp)
}
