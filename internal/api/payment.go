package api

import (
	"io"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/entity"
	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/service"
)

type PaymentHandler struct {
	paymentService *service.PaymentService
}

func NewPaymentHandler(paymentService *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

type createPaymentRequest struct {
	OrderID  int    `json:"order_id"`
	Provider string `json:"provider"`
	Monto    *int64 `json:"monto,omitempty"`
}

func (h *PaymentHandler) CreatePayment(c echo.Context) error {
	req := createPaymentRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	provider := entity.PaymentProvider(strings.ToUpper(req.Provider))
	payment, err := h.paymentService.CreatePayment(c.Request().Context(), req.OrderID, provider, req.Monto)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(201, payment)
}

func (h *PaymentHandler) Confirm(c echo.Context) error {
	payment, err := h.paymentService.Confirm(c.Request().Context(), c.Param("referencia"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(200, payment)
}

func (h *PaymentHandler) Reject(c echo.Context) error {
	payment, err := h.paymentService.Reject(c.Request().Context(), c.Param("referencia"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(200, payment)
}

// Webhook receives provider callbacks. The body is passed through untouched
// so signature verification runs over the exact bytes that were signed.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	provider := entity.PaymentProvider(strings.ToUpper(c.Param("provider")))

	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(400, map[string]string{"error": "Unreadable body"})
	}

	payment, err := h.paymentService.Webhook(c.Request().Context(), provider, body, signatureHeader(c, provider))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(200, map[string]any{"status": "ok", "payment_estado": payment.Estado})
}

func (h *PaymentHandler) Status(c echo.Context) error {
	payment, err := h.paymentService.Status(c.Request().Context(), c.Param("referencia"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(200, payment)
}

func signatureHeader(c echo.Context, provider entity.PaymentProvider) string {
	switch provider {
	case entity.ProviderStripe:
		return c.Request().Header.Get("Stripe-Signature")
	case entity.ProviderKlap:
		return c.Request().Header.Get("X-Klap-Signature")
	default:
		return ""
	}
}
