package main

import (
	"log"
	"os"
	"time"

	"maelio_back_end/internal/config"
	"maelio_back_end/internal/database"
	"maelio_back_end/internal/engine"
	"maelio_back_end/internal/gateway"
	"maelio_back_end/internal/handlers/payement"
	"maelio_back_end/internal/notifier"
	"maelio_back_end/internal/routes"
	"maelio_back_end/internal/store"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	config.Load()

	keyID := os.Getenv("RAZORPAY_KEY_ID")
	keySecret := os.Getenv("RAZORPAY_KEY_SECRET")
	webhookSecret := os.Getenv("RAZORPAY_WEBHOOK_SECRET")
	if keyID == "" || keySecret == "" {
		log.Fatal("❌ Impossible d'initialiser Razorpay : clés manquantes")
	}
	if webhookSecret == "" {
		log.Fatal("❌ RAZORPAY_WEBHOOK_SECRET manquant")
	}
	log.Println("✅ Razorpay initialisé")

	database.ConnectDatabases()

	ordersSession, err := database.GetOrdersSession()
	if err != nil {
		log.Fatalf("❌ Session orders indisponible: %v", err)
	}

	// Construire les dépendances une seule fois, puis les injecter dans
	// le moteur de réconciliation
	gatewayClient := gateway.New(keyID, keySecret, 10*time.Second)
	orderStore := store.NewScyllaOrderStore(ordersSession)
	anomalies := store.NewAnomalyLog(database.Redis)
	emails := notifier.NewEmailNotifier()

	eng := engine.New(orderStore, gatewayClient, emails, anomalies, keySecret)
	payHandler := payement.NewHandler(eng, anomalies, webhookSecret)

	r := gin.Default()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{os.Getenv("FRONTEND_URL")},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	routes.RegisterRoutes(r, payHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("🚀 Serveur Maelio lancé sur le port", port)
	r.Run(":" + port)
}
