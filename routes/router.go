package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"rms-be/controllers"
	"rms-be/middlewares"
)

// Dependencies is everything the HTTP surface needs.
type Dependencies struct {
	Auth           middlewares.Authenticator
	UserController *controllers.UserController

	AuthController  *controllers.AuthController
	IssueController *controllers.IssueController
	AdminController *controllers.AdminController

	// IssueLimiter guards issue creation; nil disables rate limiting.
	IssueLimiter gin.HandlerFunc

	ClientURL      string
	UploadDir      string
	RequestTimeout time.Duration
}

// NewRouter builds the gin engine with middleware and every route group.
func NewRouter(d Dependencies) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middlewares.RequestLogger())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{d.ClientURL},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	if d.RequestTimeout > 0 {
		r.Use(middlewares.Timeout(d.RequestTimeout))
	}

	if d.UploadDir != "" {
		r.Static("/uploads", d.UploadDir)
	}
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "timestamp": time.Now().UTC()})
	})

	AuthRoutes(r, d)
	IssueRoutes(r, d)
	AdminRoutes(r, d)
	UserRoutes(r, d)
	return r
}
