package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rms-be/models"
	"rms-be/services"
	"rms-be/utils"
)

// IssueController serves the citizen-facing issue endpoints.
type IssueController struct {
	issues   *services.IssueService
	votes    *services.VoteLedger
	comments *services.CommentService
	media    services.MediaStore
}

// NewIssueController creates a new IssueController.
func NewIssueController(issues *services.IssueService, votes *services.VoteLedger, comments *services.CommentService, media services.MediaStore) *IssueController {
	RegisterValidators()
	return &IssueController{issues: issues, votes: votes, comments: comments, media: media}
}

// CreateIssue handles the creation of a new issue
func (ic *IssueController) CreateIssue(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	var input models.IssueInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondBindError(c, err)
		return
	}

	issue, err := ic.issues.Create(c.Request.Context(), user.Actor(), input)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	view, err := ic.issues.View(c.Request.Context(), issue)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, "Issue reported successfully", gin.H{"issue": view})
}

// ListIssues returns one page of issues. Priority filtering is reserved for
// the admin listing.
func (ic *IssueController) ListIssues(c *gin.Context) {
	var q models.IssueQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		utils.RespondBindError(c, err)
		return
	}
	q.Priority = ""

	page, err := ic.issues.List(c.Request.Context(), q, services.PublicPageLimit, viewerID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "", page)
}

// GetIssue returns an issue with its comments and the caller's vote.
func (ic *IssueController) GetIssue(c *gin.Context) {
	id, err := objectIDParam(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	detail, err := ic.issues.Get(c.Request.Context(), id, viewerID(c))
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "", detail)
}

func (ic *IssueController) Stats(c *gin.Context) {
	stats, err := ic.issues.Stats(c.Request.Context())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "", stats)
}

// DeleteIssue soft-deletes an issue owned by the caller.
func (ic *IssueController) DeleteIssue(c *gin.Context) {
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

	if err := ic.issues.Delete(c.Request.Context(), id, user.Actor()); err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Issue deleted successfully", nil)
}

type voteRequest struct {
	Vote models.VoteType `json:"vote" binding:"required,votetype"`
}

var voteMessages = map[models.VoteAction]string{
	models.VoteAdded:   "Vote added",
	models.VoteUpdated: "Vote updated",
	models.VoteRemoved: "Vote removed",
}

// VoteIssue casts, switches or withdraws the caller's vote.
func (ic *IssueController) VoteIssue(c *gin.Context) {
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

	var req voteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBindError(c, err)
		return
	}

	result, err := ic.votes.CastVote(c.Request.Context(), user.ID, id, req.Vote)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	view, err := ic.issues.View(c.Request.Context(), result.Issue)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, voteMessages[result.Action], gin.H{
		"action":       result.Action,
		"upvotesCount": result.Issue.UpvotesCount,
		"issue":        view,
	})
}

type commentRequest struct {
	Text string `json:"text" binding:"required"`
}

// AddComment appends the caller's comment to an issue.
func (ic *IssueController) AddComment(c *gin.Context) {
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

	var req commentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondBindError(c, err)
		return
	}

	comment, err := ic.comments.Add(c.Request.Context(), id, user.ID, req.Text)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, "Comment added successfully", gin.H{"comment": comment})
}

func (ic *IssueController) ListComments(c *gin.Context) {
	id, err := objectIDParam(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	comments, err := ic.comments.List(c.Request.Context(), id)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "", gin.H{"comments": comments})
}

// DeleteComment soft-deletes one of the caller's comments.
func (ic *IssueController) DeleteComment(c *gin.Context) {
	user, err := currentUser(c)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	issueID, err := objectIDParam(c, "id")
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	commentID, err := objectIDParam(c, "commentId")
	if err != nil {
		utils.RespondError(c, err)
		return
	}

	issue, err := ic.comments.Delete(c.Request.Context(), issueID, commentID, user.Actor())
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusOK, "Comment deleted successfully", gin.H{"commentsCount": issue.CommentsCount})
}

// UploadImage stores the multipart "image" field and returns its URL.
func (ic *IssueController) UploadImage(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, services.MaxImageBytes+1<<20)

	header, err := c.FormFile("image")
	if err != nil {
		utils.RespondError(c, models.NewValidationError("image", "Image file is required"))
		return
	}
	if header.Size > services.MaxImageBytes {
		utils.RespondError(c, models.NewValidationError("image", "Image must not exceed 5MB"))
		return
	}

	file, err := header.Open()
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	defer file.Close()

	url, err := ic.media.Save(c.Request.Context(), file)
	if err != nil {
		utils.RespondError(c, err)
		return
	}
	utils.Respond(c, http.StatusCreated, "Image uploaded successfully", gin.H{"imageUrl": url})
}
