package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andriansah/go-qris-payflow/internal/fulfill"
	"github.com/andriansah/go-qris-payflow/internal/order"
	"github.com/andriansah/go-qris-payflow/internal/validation"
)

func (h *Handler) checkPayment(c *gin.Context) {
	ctx := c.Request.Context()

	var req validation.CheckOrderRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	res, err := h.cfg.Checker.CheckOrder(ctx, req.OrderID)
	if err != nil {
		if err == fulfill.ErrOrderNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
			return
		}
		h.log.Error("check payment", zap.String("order_id", req.OrderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "check_failed"})
		return
	}

	body := gin.H{
		"orderId": res.OrderID,
		"status":  res.Status,
		"amount":  res.Amount,
	}
	if !res.PaidAt.IsZero() {
		body["paidAt"] = res.PaidAt.UTC().Format(time.RFC3339)
	}

	// delivery happens here: a paid order hands over its account
	if res.Status == order.StatusPaid {
		if cred := h.loadCredential(c, res.OrderID); cred != nil {
			body["credential"] = cred
		}
	}

	c.JSON(http.StatusOK, body)
}

// loadCredential resolves the account attached to a paid order. A lookup
// failure is logged and omitted from the response; the buyer can re-check.
func (h *Handler) loadCredential(c *gin.Context, orderID string) gin.H {
	ctx := c.Request.Context()

	o, err := h.cfg.Orders.Get(ctx, orderID)
	if err != nil || o == nil || o.CredentialID == "" {
		return nil
	}
	cred, err := h.cfg.Credentials.Get(ctx, o.CredentialID)
	if err != nil || cred == nil {
		h.log.Error("load credential",
			zap.String("order_id", orderID),
			zap.String("credential_id", o.CredentialID),
			zap.Error(err))
		return nil
	}
	return gin.H{
		"email":       cred.Email,
		"password":    cred.Password,
		"accountType": cred.AccountType,
	}
}

// getOrder is the public lookup used by the payment page. It never exposes
// the purchased account; delivery goes through the payment check.
func (h *Handler) getOrder(c *gin.Context) {
	ctx := c.Request.Context()
	orderID := c.Param("orderId")

	o, err := h.cfg.Orders.Get(ctx, orderID)
	if err != nil {
		h.log.Error("get order", zap.String("order_id", orderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "order_lookup_failed"})
		return
	}
	if o == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
		return
	}

	body := gin.H{
		"orderId":         o.OrderID,
		"status":          o.Status,
		"baseAmount":      o.BaseAmount,
		"voucherDiscount": o.VoucherDiscount,
		"finalAmount":     o.FinalAmount,
		"uniqueAmount": o.UniqueAmount,
		"qrPayload":    o.QRPayload,
		"qrImage":      o.QRImage,
		"expiresAt":    o.ExpiresAt.UTC().Format(time.RFC3339),
		"createdAt":    o.CreatedAt.UTC().Format(time.RFC3339),
	}
	if !o.PaidAt.IsZero() {
		body["paidAt"] = o.PaidAt.UTC().Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, body)
}
