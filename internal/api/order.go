package api

import (
	"github.com/labstack/echo/v4"

	"github.com/RIDSdiseno/Covasa-Back-Ecomerce-sub000/internal/service"
)

type OrderHandler struct {
	orderService *service.OrderService
}

func NewOrderHandler(orderService *service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	in := service.CreateOrderInput{}
	if err := c.Bind(&in); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}

	order, err := h.orderService.CreateOrder(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(201, order)
}

// CreateFromCart promotes a cart into an order; the cart id travels in the
// path, the rest of the payload matches CreateOrder.
func (h *OrderHandler) CreateFromCart(c echo.Context) error {
	cartID, err := pathID(c, "cartId")
	if err != nil {
		return respondError(c, err)
	}
	in := service.CreateOrderInput{}
	if err := c.Bind(&in); err != nil {
		return c.JSON(400, map[string]string{"error": "Invalid request payload"})
	}
	in.FromCartID = &cartID
	in.Items = nil

	order, err := h.orderService.CreateOrder(c.Request().Context(), in)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(201, order)
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, err)
	}

	order, err := h.orderService.GetOrder(c.Request().Context(), id)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(200, order)
}
