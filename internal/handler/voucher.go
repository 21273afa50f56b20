package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/andriansah/go-qris-payflow/internal/settings"
	"github.com/andriansah/go-qris-payflow/internal/validation"
	"github.com/andriansah/go-qris-payflow/internal/voucher"
)

// validateVoucher previews a discount without burning a use.
func (h *Handler) validateVoucher(c *gin.Context) {
	ctx := c.Request.Context()

	var req validation.ValidateVoucherRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	amount := req.Amount
	if amount == 0 {
		base, err := h.cfg.Settings.GetInt64(ctx, settings.BasePriceKey, h.cfg.DefaultBasePrice)
		if err != nil {
			h.log.Error("read base price", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "settings_unavailable"})
			return
		}
		amount = base
	}

	code := voucher.Normalize(req.Code)
	v, err := h.cfg.Vouchers.Get(ctx, code)
	if err != nil {
		h.log.Error("read voucher", zap.String("code", code), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "voucher_lookup_failed"})
		return
	}
	if v == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "voucher_not_found"})
		return
	}

	res, err := voucher.Apply(amount, v, h.nowFunc().UTC())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": voucherErrorCode(err)})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":         code,
		"discountType": v.DiscountType,
		"discount":     res.Discount,
		"finalAmount":  res.Final,
	})
}
