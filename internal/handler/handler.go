// Package handler exposes the HTTP surface: order creation, payment status
// checks, voucher previews, and order lookup.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/andriansah/go-qris-payflow/internal/credential"
	"github.com/andriansah/go-qris-payflow/internal/fulfill"
	"github.com/andriansah/go-qris-payflow/internal/order"
	"github.com/andriansah/go-qris-payflow/internal/payment"
	"github.com/andriansah/go-qris-payflow/internal/ratelimit"
	"github.com/andriansah/go-qris-payflow/internal/settings"
	"github.com/andriansah/go-qris-payflow/internal/voucher"
)

// Config groups the handler's dependencies and tunables.
type Config struct {
	Orders      *order.Store
	Credentials *credential.Store
	Vouchers    *voucher.Store
	Settings    *settings.Store
	Checker     *fulfill.Checker
	Limiter     *ratelimit.Limiter
	Logger      *zap.Logger

	QRISTemplate     string
	DefaultBasePrice int64
	OrderTTL         time.Duration
	CreateLimit      int
	CheckLimit       int
	RateWindow       time.Duration
}

// Handler carries the wired dependencies behind the routes.
type Handler struct {
	cfg      Config
	validate *validatorv10.Validate
	log      *zap.Logger
	nowFunc  func() time.Time

	// swapped in tests to pin the surcharge
	uniqueAmount func(base int64) int64
}

// New returns a Handler over cfg.
func New(cfg Config, v *validatorv10.Validate) *Handler {
	return &Handler{
		cfg:          cfg,
		validate:     v,
		log:          cfg.Logger,
		nowFunc:      time.Now,
		uniqueAmount: payment.UniqueAmount,
	}
}

// Register mounts all routes on r.
func (h *Handler) Register(r *gin.Engine) {
	createGuard := ratelimit.Middleware(h.cfg.Limiter, h.cfg.CreateLimit, h.cfg.RateWindow, h.log)
	checkGuard := ratelimit.Middleware(h.cfg.Limiter, h.cfg.CheckLimit, h.cfg.RateWindow, h.log)

	r.POST("/payment/create", createGuard, h.createOrder)
	r.POST("/payment/check", checkGuard, h.checkPayment)
	r.GET("/order/:orderId", h.getOrder)
	r.POST("/voucher/validate", h.validateVoucher)
	r.GET("/health", h.health)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
