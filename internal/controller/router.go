package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"order-lifecycle-service/internal/middleware"
)

// NewRouter registra las rutas públicas, de cliente y de admin.
func NewRouter(ctl *OrderController, auth middleware.TokenValidator, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authed := r.Group("/")
	authed.Use(middleware.AuthMiddleware(auth, logger))

	authed.POST("/orders", ctl.CreateOrder)
	authed.GET("/orders/mine", ctl.GetMyOrders)
	authed.GET("/orders/delivered", ctl.GetDeliveredOrders)
	authed.GET("/orders/warranties", ctl.GetMyWarranties)
	authed.PATCH("/orders/:orderId/cancel", ctl.CancelOrder)
	authed.PATCH("/orders/:orderId/confirm-delivery", ctl.ConfirmDelivery)

	admin := authed.Group("/admin")
	admin.Use(middleware.AdminOnly())
	admin.GET("/orders", ctl.ListOrders)
	admin.PATCH("/orders/:orderId/status", ctl.UpdateStatus)
	admin.POST("/orders/:orderId/warranty", ctl.ActivateWarranty)
	admin.GET("/warranties/active", ctl.GetActiveWarranties)

	return r
}
