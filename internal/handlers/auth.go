package handlers

import (
	"log"
	"net/http"

	"maelio_back_end/internal/database"
	"maelio_back_end/internal/models"
	"maelio_back_end/internal/utils"

	"github.com/gin-gonic/gin"
)

// AdminLogin authentifie un administrateur et émet un JWT
func AdminLogin(c *gin.Context) {
	var input struct {
		Email    string `json:"email" binding:"required,email"`
		Password string `json:"password" binding:"required"`
	}

	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Données invalides"})
		return
	}

	session, err := database.GetUsersSession()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur connexion base de données"})
		return
	}

	var user models.User
	err = session.Query(`SELECT user_id, email, name, password, role, created_at FROM users WHERE email = ?`, input.Email).
		Scan(&user.ID, &user.Email, &user.Name, &user.Password, &user.Role, &user.CreatedAt)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Identifiants invalides"})
		return
	}

	ok, err := utils.VerifyPassword(input.Password, user.Password)
	if err != nil || !ok {
		log.Printf("🚨 Tentative de connexion échouée pour %s", input.Email)
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "message": "Identifiants invalides"})
		return
	}

	if user.Role != "admin" && user.Role != "staff" {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "message": "Accès réservé aux administrateurs"})
		return
	}

	token, err := utils.GenerateJWT(user)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Erreur génération token"})
		return
	}

	log.Printf("✅ Connexion admin: %s", user.Email)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"email":   user.Email,
		"name":    user.Name,
		"role":    user.Role,
	})
}
