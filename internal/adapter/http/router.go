package http

import (
	"github.com/OzanT1/ECommerce-Backend-System/internal/adapter/http/middleware"
	"github.com/OzanT1/ECommerce-Backend-System/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(oh *OrderHandler, ch *CartHandler, authz *middleware.Authz) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.MetricsMiddleware())
	r.Use(middleware.Logging(logging.New("http")))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"ok": true})
	})
	// Prometheus endpoint (scraped by Prometheus)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1", authz.Require())
	{
		v1.GET("/cart", ch.GetCart)
		v1.POST("/cart/items", ch.AddItem)
		v1.DELETE("/cart/items/:productId", ch.RemoveItem)
		v1.DELETE("/cart", ch.ClearCart)

		v1.POST("/orders", oh.CreateOrder)
		v1.GET("/orders", oh.ListOrders)
		v1.GET("/orders/:id", oh.GetOrder)
		v1.POST("/orders/:id/confirm-payment", oh.ConfirmPayment)
	}

	return r
}
