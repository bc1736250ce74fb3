package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rms-be/services"
	"rms-be/utils"
)

// UserController serves user directory lookups.
type UserController struct {
	auth *services.AuthService
}

// NewUserController creates a new UserController.
func NewUserController(auth *services.AuthService) *UserController {
	return &UserController{auth: auth}
}

// Authorities lists the users an issue can be assigned to.
func (uc *UserController) Authorities(c *gin.Context) {
	users, err := uc.auth.Authorities(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "", gin.H{"authorities": users})
}
