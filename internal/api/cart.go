package api

import (
	"github.com/labstack/echo/v4"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/service"
)

type CartHandler struct {
	cartService *service.CartService
}

func NewCartHandler(cartService *service.CartService) *CartHandler {
	return &CartHandler{cartService: cartService}
}

type createCartRequest struct {
	ClienteID *int `json:"cliente_id,omitempty"`
}

type cartItemRequest struct {
	ProductID int `json:"product_id"`
	Cantidad  int `json:"cantidad"`
}

// CreateCart returns the client's active cart, creating one when needed.
func (h *CartHandler) CreateCart(c echo.Context) error {
	req := createCartRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	cart, err := h.cartService.GetOrCreateActiveCart(c.Request().Context(), req.ClienteID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(200, cart)
}

func (h *CartHandler) GetCart(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	cart, err := h.cartService.GetCart(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(200, cart)
}

func (h *CartHandler) AddItem(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	req := cartItemRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	cart, err := h.cartService.AddItem(c.Request().Context(), id, req.ProductID, req.Cantidad)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(200, cart)
}

func (h *CartHandler) SetItemQuantity(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	productID, err := pathID(c, "productId")
	if err != nil {
		return respondError(c, err)
	}
	req := cartItemRequest{}
	if err := c.Bind(&req); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	cart, err := h.cartService.SetItemQuantity(c.Request().Context(), id, productID, req.Cantidad)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(200, cart)
}

func (h *CartHandler) RemoveItem(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}
	productID, err := pathID(c, "productId")
	if err != nil {
		return respondError(c, err)
	}

	cart, err := h.cartService.RemoveItem(c.Request().Context(), id, productID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(200, cart)
}

func (h *CartHandler) Clear(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	cart, err := h.cartService.Clear(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(200, cart)
}
