package routes

import (
	"github.com/gin-gonic/gin"

	"rms-be/middlewares"
	"rms-be/models"
)

func UserRoutes(r *gin.Engine, d Dependencies) {
	users := r.Group("/api/users",
		middlewares.AuthMiddleware(d.Auth),
		middlewares.Authorize(models.RoleAuthority, models.RoleAdmin),
	)
	{
		users.GET("/authorities", d.UserController.Authorities)
	}
}
