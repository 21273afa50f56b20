package handler

import (
	"encoding/base64"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/andriansah/go-qris-payflow/internal/order"
	"github.com/andriansah/go-qris-payflow/internal/payment"
	"github.com/andriansah/go-qris-payflow/internal/qris"
	"github.com/andriansah/go-qris-payflow/internal/settings"
	"github.com/andriansah/go-qris-payflow/internal/validation"
	"github.com/andriansah/go-qris-payflow/internal/voucher"
)

// surcharge retries when the drawn amount collides with a live pending order
const uniqueAmountAttempts = 3

func (h *Handler) createOrder(c *gin.Context) {
	ctx := c.Request.Context()

	var req validation.CreateOrderRequest
	if err := validation.BindAndValidate(c, &req, h.validate); err != nil {
		return
	}

	base, err := h.cfg.Settings.GetInt64(ctx, settings.BasePriceKey, h.cfg.DefaultBasePrice)
	if err != nil {
		h.log.Error("read base price", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "settings_unavailable"})
		return
	}

	now := h.nowFunc().UTC()

	final := base
	var discount int64
	var code string
	if req.VoucherCode != "" {
		code = voucher.Normalize(req.VoucherCode)
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
		res, err := voucher.Apply(base, v, now)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": voucherErrorCode(err)})
			return
		}
		discount = res.Discount
		final = res.Final
	}

	// the surcharge disambiguates concurrent buyers on the settlement feed;
	// regenerate on the rare collision with a live pending order
	var unique int64
	for attempt := 0; attempt < uniqueAmountAttempts; attempt++ {
		unique = h.uniqueAmount(final)
		existing, err := h.cfg.Orders.GetByUniqueAmount(ctx, unique)
		if err != nil {
			h.log.Error("unique amount lookup", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "order_create_failed"})
			return
		}
		if existing == nil || existing.Status != order.StatusPending {
			break
		}
	}

	payload, err := qris.Dynamic(h.cfg.QRISTemplate, unique)
	if err != nil {
		h.log.Error("build payload", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "qris_template_invalid"})
		return
	}

	image, err := qrImageDataURL(payload)
	if err != nil {
		h.log.Error("render qr image", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "qr_render_failed"})
		return
	}

	o := &order.Order{
		OrderID:         "ORDER-" + uuid.NewString(),
		BaseAmount:      base,
		VoucherCode:     code,
		VoucherDiscount: discount,
		FinalAmount:     final,
		UniqueAmount:    unique,
		Status:          order.StatusPending,
		CustomerEmail:   req.Email,
		CustomerPhone:   req.Phone,
		QRPayload:       payload,
		QRImage:         image,
		ExpiresAt:       now.Add(h.cfg.OrderTTL),
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := h.cfg.Orders.Create(ctx, o); err != nil {
		h.log.Error("create order", zap.String("order_id", o.OrderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "order_create_failed"})
		return
	}

	if code != "" {
		// the voucher use is burned once the order exists; failure here only
		// skews the counter, never the order
		if err := h.cfg.Vouchers.IncrementUsed(ctx, code); err != nil {
			h.log.Warn("voucher counter", zap.String("code", code), zap.Error(err))
		}
	}

	h.log.Info("order created",
		zap.String("order_id", o.OrderID),
		zap.Int64("amount", unique),
		zap.String("voucher", code))

	body := gin.H{
		"orderId":         o.OrderID,
		"baseAmount":      base,
		"voucherDiscount": discount,
		"finalAmount":     final,
		"uniqueAmount":    unique,
		"formattedAmount": payment.FormatRupiah(unique),
		"qrPayload":       payload,
		"qrImage":         image,
		"expiresAt":       o.ExpiresAt.Format(time.RFC3339),
	}
	if code != "" {
		body["voucherCode"] = code
	}
	c.JSON(http.StatusCreated, body)
}

func voucherErrorCode(err error) string {
	switch {
	case errors.Is(err, voucher.ErrInactive):
		return "voucher_inactive"
	case errors.Is(err, voucher.ErrNotYetValid):
		return "voucher_not_yet_valid"
	case errors.Is(err, voucher.ErrExpired):
		return "voucher_expired"
	case errors.Is(err, voucher.ErrExhausted):
		return "voucher_exhausted"
	case errors.Is(err, voucher.ErrBelowMinimum):
		return "voucher_below_minimum"
	default:
		return "voucher_invalid"
	}
}

func qrImageDataURL(payload string) (string, error) {
	png, err := qrcode.Encode(payload, qrcode.Medium, 512)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
