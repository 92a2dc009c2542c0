package controllers

import (
	"net/http"

	"salon-booking-backend/services"
	"salon-booking-backend/utils"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	auth   *services.AuthService
	maxAge int
}

func NewAuthController(auth *services.AuthService, tokens *utils.TokenIssuer) *AuthController {
	return &AuthController{auth: auth, maxAge: int(tokens.Expiry().Seconds())}
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// POST /auth/login
func (ctl *AuthController) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	result, err := ctl.auth.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		respondWithServiceError(c, err)
		return
	}

	c.SetCookie(utils.TokenCookie, result.Token, ctl.maxAge, "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"token":   result.Token,
		"user": gin.H{
			"id":    result.User.ID,
			"email": result.User.Email,
			"name":  result.User.Name,
		},
	})
}

// POST /auth/logout
func (ctl *AuthController) Logout(c *gin.Context) {
	c.SetCookie(utils.TokenCookie, "", -1, "/", "", true, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
}

// GET /auth/me
func (ctl *AuthController) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"id":    c.GetString(utils.ContextAdminID),
		"email": c.GetString(utils.ContextEmail),
	})
}
