package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dayoff-api/internal/dto"
	"github.com/noah-isme/dayoff-api/internal/models"
	"github.com/noah-isme/dayoff-api/internal/service"
	appErrors "github.com/noah-isme/dayoff-api/pkg/errors"
	"github.com/noah-isme/dayoff-api/pkg/response"
)

type leaveService interface {
	Submit(ctx context.Context, req dto.SubmitLeaveRequest, applicant models.Identity, meta service.RequestMeta) (*models.LeaveApplication, error)
	Decide(ctx context.Context, id string, req dto.DecisionRequest, reviewer models.Identity, meta service.RequestMeta) (*models.LeaveApplication, error)
	Get(ctx context.Context, id string, viewer models.Identity) (*models.LeaveApplication, error)
	Turn(ctx context.Context, id string, viewer models.Identity) (*dto.TurnResponse, error)
	Mine(ctx context.Context, user models.Identity) ([]models.LeaveApplication, error)
	Inbox(ctx context.Context, reviewer models.Identity, query dto.LeaveListQuery) ([]models.LeaveApplication, error)
	Archive(ctx context.Context, reviewer models.Identity, query dto.LeaveListQuery) ([]models.LeaveApplication, error)
	Overview(ctx context.Context, reviewer models.Identity) (*models.LeaveOverview, error)
}

type leaveExporter interface {
	ExportArchive(ctx context.Context, reviewer models.Identity, query dto.LeaveListQuery) (*service.ExportFile, error)
	LetterPDF(ctx context.Context, id string, viewer models.Identity) (*service.ExportFile, error)
}

// LeaveHandler exposes leave application endpoints.
type LeaveHandler struct {
	service  leaveService
	exporter leaveExporter
}

// NewLeaveHandler constructs a leave handler.
func NewLeaveHandler(svc leaveService, exporter leaveExporter) *LeaveHandler {
	return &LeaveHandler{service: svc, exporter: exporter}
}

// Submit godoc
// @Summary Submit leave application
// @Description Submit a leave application on behalf of the authenticated user
// @Tags Leaves
// @Accept json
// @Produce json
// @Param payload body dto.SubmitLeaveRequest true "Leave payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Security BearerAuth
// @Router /leaves [post]
func (h *LeaveHandler) Submit(c *gin.Context) {
	applicant, ok := identityFromContext(c)
	if !ok {
		return
	}
	var req dto.SubmitLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid leave payload"))
		return
	}
	item, err := h.service.Submit(c.Request.Context(), req, applicant, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, item)
}

// Mine godoc
// @Summary List own applications
// @Tags Leaves
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /leaves/mine [get]
func (h *LeaveHandler) Mine(c *gin.Context) {
	user, ok := identityFromContext(c)
	if !ok {
		return
	}
	items, err := h.service.Mine(c.Request.Context(), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items), nil)
}

// Inbox godoc
// @Summary List applications awaiting the reviewer
// @Tags Leaves
// @Produce json
// @Param search query string false "Applicant name or reason"
// @Param class query string false "Class filter"
// @Param role query string false "Applicant role"
// @Param sort query string false "applied_desc or none"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /leaves/inbox [get]
func (h *LeaveHandler) Inbox(c *gin.Context) {
	h.list(c, h.service.Inbox)
}

// Archive godoc
// @Summary List applications visible to the reviewer
// @Tags Leaves
// @Produce json
// @Param search query string false "Applicant name or reason"
// @Param class query string false "Class filter"
// @Param role query string false "Applicant role"
// @Param status query string false "Overall status"
// @Param sort query string false "applied_desc or none"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Security BearerAuth
// @Router /leaves/archive [get]
func (h *LeaveHandler) Archive(c *gin.Context) {
	h.list(c, h.service.Archive)
}

func (h *LeaveHandler) list(c *gin.Context, fetch func(context.Context, models.Identity, dto.LeaveListQuery) ([]models.LeaveApplication, error)) {
	reviewer, ok := identityFromContext(c)
	if !ok {
		return
	}
	var query dto.LeaveListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	items, err := fetch(c.Request.Context(), reviewer, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items), nil)
}

// Export godoc
// @Summary Export the reviewer archive
// @Tags Leaves
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Security BearerAuth
// @Router /leaves/archive/export [get]
func (h *LeaveHandler) Export(c *gin.Context) {
	reviewer, ok := identityFromContext(c)
	if !ok {
		return
	}
	var query dto.LeaveListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	file, err := h.exporter.ExportArchive(c.Request.Context(), reviewer, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// Overview godoc
// @Summary Reviewer dashboard counters
// @Tags Leaves
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /leaves/overview [get]
func (h *LeaveHandler) Overview(c *gin.Context) {
	reviewer, ok := identityFromContext(c)
	if !ok {
		return
	}
	overview, err := h.service.Overview(c.Request.Context(), reviewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, overview)
}

// Get godoc
// @Summary Get leave application
// @Tags Leaves
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /leaves/{id} [get]
func (h *LeaveHandler) Get(c *gin.Context) {
	viewer, ok := identityFromContext(c)
	if !ok {
		return
	}
	item, err := h.service.Get(c.Request.Context(), c.Param("id"), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Turn godoc
// @Summary Check whether the caller may act on an application
// @Tags Leaves
// @Produce json
// @Param id path string true "Application ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /leaves/{id}/turn [get]
func (h *LeaveHandler) Turn(c *gin.Context) {
	viewer, ok := identityFromContext(c)
	if !ok {
		return
	}
	turn, err := h.service.Turn(c.Request.Context(), c.Param("id"), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, turn)
}

// Decide godoc
// @Summary Record a reviewer decision
// @Tags Leaves
// @Accept json
// @Produce json
// @Param id path string true "Application ID"
// @Param payload body dto.DecisionRequest true "Decision payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /leaves/{id}/decision [post]
func (h *LeaveHandler) Decide(c *gin.Context) {
	reviewer, ok := identityFromContext(c)
	if !ok {
		return
	}
	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid decision payload"))
		return
	}
	item, err := h.service.Decide(c.Request.Context(), c.Param("id"), req, reviewer, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item)
}

// Letter godoc
// @Summary Download the generated leave letter
// @Tags Leaves
// @Produce application/pdf
// @Param id path string true "Application ID"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /leaves/{id}/letter [get]
func (h *LeaveHandler) Letter(c *gin.Context) {
	viewer, ok := identityFromContext(c)
	if !ok {
		return
	}
	file, err := h.exporter.LetterPDF(c.Request.Context(), c.Param("id"), viewer)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}
