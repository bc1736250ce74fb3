package controllers

import (
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"rms-be/middlewares"
	"rms-be/models"
)

func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		return primitive.NilObjectID, models.NewValidationError(name, "Invalid ID")
	}
	return id, nil
}

// currentUser is only called behind AuthMiddleware.
func currentUser(c *gin.Context) (*models.User, error) {
	user, ok := middlewares.CurrentUser(c)
	if !ok {
		return nil, models.ErrUnauthorized
	}
	return user, nil
}

func viewerID(c *gin.Context) *primitive.ObjectID {
	if user, ok := middlewares.CurrentUser(c); ok {
		id := user.ID
		return &id
	}
	return nil
}
