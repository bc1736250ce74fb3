package routes

import (
	"github.com/gin-gonic/gin"

	"rms-be/middlewares"
	"rms-be/models"
)

// AdminRoutes sets up the dashboard routes for authorities and admins
func AdminRoutes(r *gin.Engine, d Dependencies) {
	ac := d.AdminController
	admin := r.Group("/api/admin",
		middlewares.AuthMiddleware(d.Auth),
		middlewares.Authorize(models.RoleAuthority, models.RoleAdmin),
	)
	{
		admin.GET("/issues", ac.ListIssues)
		admin.GET("/stats", ac.Stats)
		admin.PATCH("/issues/:id/status", ac.UpdateStatus)
		admin.PATCH("/issues/:id/assign", ac.AssignIssue)
	}
}
