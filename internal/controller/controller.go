package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"order-lifecycle-service/internal/dto"
	"order-lifecycle-service/internal/middleware"
	"order-lifecycle-service/internal/service"
)

const dateLayout = "2006-01-02"

type OrderController struct {
	Service *service.OrderService
	log     *zap.Logger
}

func NewOrderController(s *service.OrderService, logger *zap.Logger) *OrderController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderController{Service: s, log: logger}
}

// POST /orders
func (ctl *OrderController) CreateOrder(c *gin.Context) {
	var req dto.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items := make([]service.OrderItemInput, 0, len(req.OrderItems))
	for _, it := range req.OrderItems {
		items = append(items, service.OrderItemInput{ProductID: it.Product, Quantity: it.Quantity})
	}

	order, err := ctl.Service.CreateOrder(c.Request.Context(), service.CreateOrderInput{
		BuyerID:         c.GetString(middleware.KeyUserID),
		Items:           items,
		ShippingAddress: req.ShippingAddress.Model(),
		PaymentMethod:   req.PaymentMethod,
		Price: service.PriceBreakdown{
			ShippingPrice: req.ShippingPrice,
			TotalPrice:    req.TotalPrice,
		},
	})
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, order)
}

// GET /orders/mine
func (ctl *OrderController) GetMyOrders(c *gin.Context) {
	orders, err := ctl.Service.ListUserOrders(c.Request.Context(), c.GetString(middleware.KeyUserID))
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GET /orders/delivered
func (ctl *OrderController) GetDeliveredOrders(c *gin.Context) {
	orders, err := ctl.Service.ListDeliveredOrders(c.Request.Context(), c.GetString(middleware.KeyUserID))
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// GET /orders/warranties
func (ctl *OrderController) GetMyWarranties(c *gin.Context) {
	ctl.listWarranties(c, c.GetString(middleware.KeyUserID))
}

// GET /admin/warranties/active
func (ctl *OrderController) GetActiveWarranties(c *gin.Context) {
	ctl.listWarranties(c, c.Query("customer"))
}

func (ctl *OrderController) listWarranties(c *gin.Context, customerID string) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	page, err := ctl.Service.ListProductsUnderWarranty(c.Request.Context(),
		service.WarrantyFilters{CustomerID: customerID},
		service.Pagination{Page: q.Page, Limit: q.Limit},
	)
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// PATCH /orders/:orderId/cancel
func (ctl *OrderController) CancelOrder(c *gin.Context) {
	order, err := ctl.Service.CancelOwnOrder(c.Request.Context(), c.Param("orderId"), c.GetString(middleware.KeyUserID))
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// PATCH /orders/:orderId/confirm-delivery
func (ctl *OrderController) ConfirmDelivery(c *gin.Context) {
	order, err := ctl.Service.ConfirmDelivery(c.Request.Context(), c.Param("orderId"), c.GetString(middleware.KeyUserID))
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// GET /admin/orders
func (ctl *OrderController) ListOrders(c *gin.Context) {
	var q dto.ListOrdersQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	filters := service.OrderFilters{Status: q.Status, Search: q.Search}
	var err error
	if filters.FromDate, err = parseDate(q.FromDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fromDate must be YYYY-MM-DD"})
		return
	}
	if filters.ToDate, err = parseDate(q.ToDate); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "toDate must be YYYY-MM-DD"})
		return
	}

	page, err := ctl.Service.ListOrders(c.Request.Context(), filters, service.Pagination{Page: q.Page, Limit: q.Limit})
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// PATCH /admin/orders/:orderId/status
func (ctl *OrderController) UpdateStatus(c *gin.Context) {
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	order, err := ctl.Service.TransitionOrderStatus(
		c.Request.Context(),
		c.Param("orderId"),
		req.Status,
		middleware.CurrentActor(c),
		req.Note,
	)
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// POST /admin/orders/:orderId/warranty
func (ctl *OrderController) ActivateWarranty(c *gin.Context) {
	order, err := ctl.Service.ActivateWarranty(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		ctl.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (ctl *OrderController) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrOwnership):
		c.JSON(http.StatusNotFound, gin.H{"error": service.ErrOwnership.Error()})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		ctl.log.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func parseDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(dateLayout, v, time.UTC)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
