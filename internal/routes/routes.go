package routes

import (
	"maelio_back_end/internal/handlers"
	"maelio_back_end/internal/handlers/payement"
	"maelio_back_end/internal/handlers/product"
	"maelio_back_end/internal/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, pay *payement.Handler) {
	api := r.Group("/api")

	// Catalogue
	api.GET("/products", product.GetAllProducts)
	api.GET("/products/search", product.SearchProducts)
	api.GET("/products/:id", product.GetProduct)

	// Commandes et paiement
	api.POST("/orders", pay.CreateOrder)
	api.POST("/orders/verify", pay.VerifyPayment)
	api.POST("/webhook/razorpay", pay.RazorpayWebhook)

	// Admin
	api.POST("/admin/login", middleware.LoginRateLimit(), handlers.AdminLogin)

	admin := api.Group("/admin")
	admin.Use(middleware.AuthRequired(), middleware.RequireAdmin)
	{
		admin.POST("/products", product.CreateProduct)
		admin.PUT("/products/:id", product.UpdateProduct)
		admin.DELETE("/products/:id", product.DeleteProduct)

		admin.GET("/orders", pay.GetAllOrders)
		admin.GET("/orders/:orderId", pay.GetOrder)
		admin.PUT("/orders/:orderId/status", pay.UpdateOrderStatus)
		admin.POST("/orders/:orderId/refund", pay.RefundOrder)

		admin.GET("/anomalies", pay.GetAnomalies)
	}
}
