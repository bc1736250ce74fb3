package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rms-be/middlewares"
	"rms-be/models"
	"rms-be/services"
	"rms-be/utils"
)

// AuthController handles registration and sessions.
type AuthController struct {
	auth         *services.AuthService
	secureCookie bool
}

// NewAuthController creates a new AuthController. secureCookie marks the
// session cookie Secure and SameSite=None for cross-origin production use.
func NewAuthController(auth *services.AuthService, secureCookie bool) *AuthController {
	RegisterValidators()
	return &AuthController{auth: auth, secureCookie: secureCookie}
}

type sessionResponse struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

// Signup registers a citizen account
func (ac *AuthController) Signup(c *gin.Context) {
	var input services.SignupInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondBindError(c, err)
		return
	}

	user, token, err := ac.auth.Signup(c.Request.Context(), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	ac.setToken(c, token, int(ac.auth.TokenTTL().Seconds()))
	utils.Respond(c, http.StatusCreated, "User registered successfully", sessionResponse{User: user, Token: token})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Login handles user login
func (ac *AuthController) Login(c *gin.Context) {
	var input loginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondBindError(c, err)
		return
	}

	user, token, err := ac.auth.Login(c.Request.Context(), input.Email, input.Password)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	ac.setToken(c, token, int(ac.auth.TokenTTL().Seconds()))
	utils.Respond(c, http.StatusOK, "Login successful", sessionResponse{User: user, Token: token})
}

// Logout clears the session cookie
func (ac *AuthController) Logout(c *gin.Context) {
	ac.setToken(c, "", -1)
	utils.Respond(c, http.StatusOK, "Logged out successfully", nil)
}

// Me returns the authenticated user's information
func (ac *AuthController) Me(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "", gin.H{"user": user})
}

func (ac *AuthController) setToken(c *gin.Context, token string, maxAge int) {
	sameSite := http.SameSiteLaxMode
	if ac.secureCookie {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middlewares.TokenCookie,
		Value:    token,
		MaxAge:   maxAge,
		Path:     "/",
		Secure:   ac.secureCookie,
		HttpOnly: true,
		SameSite: sameSite,
	})
}
