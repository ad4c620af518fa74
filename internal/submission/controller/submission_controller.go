package controller

import (
	"codejudge/internal/auth"
	"codejudge/internal/submission/service"
	"codejudge/pkg/errors"
	"codejudge/pkg/utils/response"

	"github.com/gin-gonic/gin"
)

// SubmissionController exposes the submission HTTP API.
type SubmissionController struct {
	dispatch *service.DispatchService
}

// NewSubmissionController creates a submission controller.
func NewSubmissionController(dispatch *service.DispatchService) *SubmissionController {
	return &SubmissionController{dispatch: dispatch}
}

// RegisterRoutes registers the submission routes on a router group. The
// extra middleware guards admission only: status polling stays cheap and
// must not consume the caller's submission budget.
func (ctrl *SubmissionController) RegisterRoutes(group *gin.RouterGroup, admission ...gin.HandlerFunc) {
	handlers := append(append([]gin.HandlerFunc{}, admission...), ctrl.Submit)
	group.POST("/submissions", handlers...)
	group.GET("/submissions/:id", ctrl.GetStatus)
	group.POST("/submissions/:id/redispatch", ctrl.Redispatch)
}

// SubmitRequest is the submission creation payload.
type SubmitRequest struct {
	ProblemID int64  `json:"problem_id" binding:"required"`
	Language  string `json:"language" binding:"required"`
	Code      string `json:"code" binding:"required"`
}

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	SubmissionID string `json:"submission_id"`
	State        string `json:"state"`
}

// Submit handles POST /api/v1/submissions
func (ctrl *SubmissionController) Submit(c *gin.Context) {
	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request body: "+err.Error())
		return
	}
	principal, ok := auth.FromContext(c)
	if !ok {
		response.ErrorWithCode(c, errors.Unauthorized, "")
		return
	}

	out, err := ctrl.dispatch.Submit(c.Request.Context(), principal, service.SubmitInput{
		ProblemID:  req.ProblemID,
		Language:   req.Language,
		SourceCode: req.Code,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, SubmitResponse{
		SubmissionID: out.SubmissionID,
		State:        string(out.State),
	})
}

// GetStatus handles GET /api/v1/submissions/:id
func (ctrl *SubmissionController) GetStatus(c *gin.Context) {
	submissionID := c.Param("id")
	view, err := ctrl.dispatch.GetStatus(c.Request.Context(), submissionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, view)
}

// Redispatch handles POST /api/v1/submissions/:id/redispatch
//
// Operator escape hatch for submissions whose job publish failed. Only
// PENDING submissions are eligible.
func (ctrl *SubmissionController) Redispatch(c *gin.Context) {
	submissionID := c.Param("id")
	if err := ctrl.dispatch.Redispatch(c.Request.Context(), submissionID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"submission_id": submissionID, "state": "PENDING"})
}
