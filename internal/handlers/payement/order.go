package payement

import (
	"log"
	"net/http"

	"maelio_back_end/internal/database"
	"maelio_back_end/internal/models"

	"github.com/gin-gonic/gin"
	"github.com/gocql/gocql"
	"github.com/google/uuid"
)

// CreateOrder crée une commande et la commande Razorpay associée.
// Les prix viennent TOUJOURS de la base : le client n'envoie que des
// identifiants produit et des quantités.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req struct {
		Items []struct {
			ProductID string `json:"product_id" binding:"required"`
			Quantity  int    `json:"quantity" binding:"required,min=1"`
		} `json:"items" binding:"required,min=1"`
		UserDetails struct {
			Name    string `json:"name" binding:"required"`
			Email   string `json:"email" binding:"required,email"`
			Phone   string `json:"phone" binding:"required"`
			Address string `json:"address" binding:"required"`
		} `json:"user_details" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Données invalides", "details": err.Error()})
		return
	}

	// Résoudre prix et stock depuis la base
	session, err := database.GetProductsSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur connexion base de données"})
		return
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		productUUID, err := uuid.Parse(item.ProductID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "ID produit invalide: " + item.ProductID})
			return
		}

		var stock int
		var name string
		var price float64
		err = session.Query("SELECT stock, name, price FROM products WHERE product_id = ?", gocql.UUID(productUUID)).
			Scan(&stock, &name, &price)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Produit introuvable: " + item.ProductID})
			return
		}

		if stock < item.Quantity {
			c.JSON(http.StatusBadRequest, gin.H{
				"success":   false,
				"message":   "Stock insuffisant",
				"product":   name,
				"available": stock,
				"requested": item.Quantity,
			})
			return
		}

		items = append(items, models.OrderItem{
			ProductID: gocql.UUID(productUUID),
			Name:      name,
			Price:     price,
			Quantity:  item.Quantity,
		})
	}

	customer := models.Customer{
		Name:    req.UserDetails.Name,
		Email:   req.UserDetails.Email,
		Phone:   req.UserDetails.Phone,
		Address: req.UserDetails.Address,
	}

	order, err := h.engine.PlaceOrder(c.Request.Context(), customer, items, 0)
	if err != nil {
		log.Printf("❌ Erreur création commande: %v", err)
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":           true,
		"order_id":          order.ID,
		"order_number":      order.OrderNumber,
		"razorpay_order_id": order.RemoteOrderID,
		"total_amount":      order.TotalAmount,
		"currency":          "INR",
	})
}

// VerifyPayment traite le callback navigateur après paiement Razorpay
func (h *Handler) VerifyPayment(c *gin.Context) {
	var req struct {
		RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
		RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
		RazorpaySignature string `json:"razorpay_signature" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Données invalides", "details": err.Error()})
		return
	}

	order, err := h.engine.VerifyPayment(c.Request.Context(),
		req.RazorpayOrderID, req.RazorpayPaymentID, req.RazorpaySignature)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"payment_id":   order.PaymentID,
	})
}
