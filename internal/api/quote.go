package api

import (
	"github.com/labstack/echo/v4"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/service"
)

type QuoteHandler struct {
	quoteService *service.QuoteService
}

func NewQuoteHandler(quoteService *service.QuoteService) *QuoteHandler {
	return &QuoteHandler{quoteService: quoteService}
}

func (h *QuoteHandler) CreateQuote(c echo.Context) error {
	in := service.CreateQuoteInput{}
	if err := c.Bind(&in); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}
	in.ClientIP = c.RealIP()
	in.UserAgent = c.Request().UserAgent()

	quote, err := h.quoteService.CreateQuote(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(201, quote)
}

func (h *QuoteHandler) GetQuote(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	quote, err := h.quoteService.GetQuote(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(200, quote)
}

// ConvertToCart materializes the quote's frozen lines into the owner's active
// cart and returns that cart.
func (h *QuoteHandler) ConvertToCart(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	cart, err := h.quoteService.ConvertToCart(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(200, cart)
}

type cancelQuoteRequest struct {
	Reason  string `json:"reason"`
	ActorID string `json:"actor_id"`
}

func (h *QuoteHandler) CancelQuote(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	req := cancelQuoteRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	if err := h.quoteService.CancelOrDelete(c.Request().Context(), id, req.Reason, req.ActorID); err != nil {
		return respondError(c, err)
	}
	return c.JSON(200, map[string]string{"status": "cancelled"})
}
