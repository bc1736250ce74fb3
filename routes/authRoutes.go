package routes

import (
	"github.com/gin-gonic/gin"

	"rms-be/middlewares"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, d Dependencies) {
	auth := r.Group("/api/auth")
	{
		auth.POST("/signup", d.AuthController.Signup)
		auth.POST("/login", d.AuthController.Login)
		auth.POST("/logout", d.AuthController.Logout)
		auth.GET("/me", middlewares.AuthMiddleware(d.Auth), d.AuthController.Me)
	}
}
