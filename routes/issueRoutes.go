package routes

import (
	"github.com/gin-gonic/gin"

	"rms-be/middlewares"
)

// IssueRoutes sets up the issue routes
func IssueRoutes(r *gin.Engine, d Dependencies) {
	ic := d.IssueController
	authed := middlewares.AuthMiddleware(d.Auth)

	create := []gin.HandlerFunc{authed}
	if d.IssueLimiter != nil {
		create = append(create, d.IssueLimiter)
	}
	create = append(create, ic.CreateIssue)

	issue := r.Group("/api/issues")
	{
		issue.GET("", middlewares.OptionalAuth(d.Auth), ic.ListIssues)
		issue.GET("/stats", ic.Stats)
		issue.GET("/:id", middlewares.OptionalAuth(d.Auth), ic.GetIssue)
		issue.POST("", create...)
		issue.POST("/upload", authed, ic.UploadImage)
		issue.DELETE("/:id", authed, ic.DeleteIssue)

		issue.POST("/:id/vote", authed, ic.VoteIssue)
		issue.GET("/:id/comments", ic.ListComments)
		issue.POST("/:id/comments", authed, ic.AddComment)
		issue.DELETE("/:id/comments/:commentId", authed, ic.DeleteComment)
	}
}
