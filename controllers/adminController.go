package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"rms-be/models"
	"rms-be/services"
	"rms-be/utils"
)

// AdminController serves the authority dashboard.
type AdminController struct {
	issues *services.IssueService
	engine *services.TransitionEngine
}

// NewAdminController creates a new AdminController.
func NewAdminController(issues *services.IssueService, engine *services.TransitionEngine) *AdminController {
	RegisterValidators()
	return &AdminController{issues: issues, engine: engine}
}

func (ac *AdminController) ListIssues(c *gin.Context) {
	var q models.IssueQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.RespondBindError(c, err)
		return
	}

	page, err := ac.issues.AdminList(c.Request.Context(), q)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "", page)
}

func (ac *AdminController) Stats(c *gin.Context) {
	stats, err := ac.issues.AdminStats(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "", stats)
}

type statusRequest struct {
	Status   models.IssueStatus    `json:"status" binding:"required,issuestatus"`
	Message  string                `json:"message" binding:"max=500"`
	Priority *models.IssuePriority `json:"priority" binding:"omitempty,issuepriority"`
}

// UpdateStatus moves an issue through its lifecycle.
func (ac *AdminController) UpdateStatus(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	id, err := objectIDParam(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBindError(c, err)
		return
	}

	issue, err := ac.engine.SetStatus(c.Request.Context(), id, services.StatusChange{
		Status:   req.Status,
		Message:  req.Message,
		Priority: req.Priority,
	}, user.Actor())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ac.respondIssue(c, "Issue status updated successfully", issue)
}

type assignRequest struct {
	// AssignedTo is a user ID; null or "" clears the assignment.
	AssignedTo    *string  `json:"assignedTo"`
	EstimatedCost *float64 `json:"estimatedCost" binding:"omitempty,min=0"`
}

// AssignIssue assigns an issue to an authority or clears its assignee.
func (ac *AdminController) AssignIssue(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	id, err := objectIDParam(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBindError(c, err)
		return
	}

	change := services.AssignmentChange{EstimatedCost: req.EstimatedCost}
	if req.AssignedTo != nil && strings.TrimSpace(*req.AssignedTo) != "" {
		assignee, err := primitive.ObjectIDFromHex(strings.TrimSpace(*req.AssignedTo))
		if err != nil {
			utils.RespondError(c, models.NewValidationError("assignedTo", "Invalid assignee ID"))
			return
		}
		change.AssigneeID = &assignee
	}

	issue, err := ac.engine.SetAssignment(c.Request.Context(), id, change, user.Actor())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	ac.respondIssue(c, "Issue assignment updated successfully", issue)
}

func (ac *AdminController) respondIssue(c *gin.Context, message string, issue *models.Issue) {
	view, err := ac.issues.View(c.Request.Context(), issue)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, message, gin.H{"issue": view})
}
