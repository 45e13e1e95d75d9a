package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"trade_sentinel_backend/middleware"
)

const tokenTTL = 24 * time.Hour

// AuthController issues admin API tokens.
type AuthController struct {
	jwtSecret         string
	adminUsername     string
	adminPasswordHash string
}

// NewAuthController creates the auth controller.
func NewAuthController(jwtSecret, adminUsername, adminPasswordHash string) *AuthController {
	return &AuthController{
		jwtSecret:         jwtSecret,
		adminUsername:     adminUsername,
		adminPasswordHash: adminPasswordHash,
	}
}

// Login verifies the admin credentials and returns a bearer token.
// POST /api/v1/auth/login
func (ac *AuthController) Login(c *gin.Context) {
	var request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if ac.adminPasswordHash == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin credentials not configured"})
		return
	}

	if request.Username != ac.adminUsername ||
		bcrypt.CompareHashAndPassword([]byte(ac.adminPasswordHash), []byte(request.Password)) != nil {
		middleware.RecordLoginResult(c, false)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, err := middleware.GenerateToken(ac.jwtSecret, request.Username, tokenTTL)
	if err != nil {
		logrus.WithError(err).Error("failed to sign token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
		return
	}

	middleware.RecordLoginResult(c, true)
	c.JSON(http.StatusOK, gin.H{
		"token":      token,
		"expires_in": int(tokenTTL.Seconds()),
	})
}
