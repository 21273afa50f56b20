package validation

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCreateOrderRequest_EmailOnly(t *testing.T) {
	v := New()
	req := CreateOrderRequest{Email: "buyer@mail.test"}
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestCreateOrderRequest_PhoneOnly(t *testing.T) {
	v := New()
	req := CreateOrderRequest{Phone: "081234567890"}
	if err := v.Struct(req); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestCreateOrderRequest_NoContact(t *testing.T) {
	v := New()
	req := CreateOrderRequest{VoucherCode: "DISKON50"}
	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error when both email and phone are empty")
	}
}

func TestCreateOrderRequest_BadEmail(t *testing.T) {
	v := New()
	req := CreateOrderRequest{Email: "not-an-email"}
	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for malformed email")
	}
}

func TestCreateOrderRequest_BadPhone(t *testing.T) {
	v := New()
	req := CreateOrderRequest{Phone: "call-me-maybe"}
	if err := v.Struct(req); err == nil {
		t.Fatal("expected validation error for non-numeric phone")
	}
}

func TestCheckOrderRequest_Required(t *testing.T) {
	v := New()
	if err := v.Struct(CheckOrderRequest{}); err == nil {
		t.Fatal("expected validation error for missing orderId")
	}
	if err := v.Struct(CheckOrderRequest{OrderID: "ORDER-1"}); err != nil {
		t.Fatalf("expected valid, got error: %v", err)
	}
}

func TestValidateVoucherRequest(t *testing.T) {
	v := New()
	if err := v.Struct(ValidateVoucherRequest{}); err == nil {
		t.Fatal("expected validation error for missing code")
	}
	if err := v.Struct(ValidateVoucherRequest{Code: "DISKON50"}); err != nil {
		t.Fatalf("amount should be optional: %v", err)
	}
	if err := v.Struct(ValidateVoucherRequest{Code: "DISKON50", Amount: -5}); err == nil {
		t.Fatal("expected validation error for negative amount")
	}
}

func TestBindAndValidateWrites400(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := New()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/payment/create",
		strings.NewReader(`{"email":"nope"}`))
	c.Request.Header.Set("Content-Type", "application/json")

	var req CreateOrderRequest
	if err := BindAndValidate(c, &req, v); err == nil {
		t.Fatal("expected error")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestBindAndValidateMalformedJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	v := New()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/payment/create",
		strings.NewReader(`{"email":`))
	c.Request.Header.Set("Content-Type", "application/json")

	var req CreateOrderRequest
	if err := BindAndValidate(c, &req, v); err == nil {
		t.Fatal("expected error for truncated body")
	}
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
