package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dayoff-api/internal/models"
	"github.com/noah-isme/dayoff-api/internal/service"
	appErrors "github.com/noah-isme/dayoff-api/pkg/errors"
	"github.com/noah-isme/dayoff-api/pkg/response"
)

type sessionOpener interface {
	Open(ctx context.Context, req models.SessionRequest, meta service.RequestMeta) (*models.SessionResponse, error)
}

// AuthHandler wires session endpoints to the session service.
type AuthHandler struct {
	service sessionOpener
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(svc sessionOpener) *AuthHandler {
	return &AuthHandler{service: svc}
}

// Session godoc
// @Summary Open session
// @Description Issue an access token for a directory account
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.SessionRequest true "Session payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/session [post]
func (h *AuthHandler) Session(c *gin.Context) {
	var req models.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}

	res, err := h.service.Open(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Me godoc
// @Summary Current identity
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Security BearerAuth
// @Router /auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	identity, ok := identityFromContext(c)
	if !ok {
		return
	}
	response.JSON(c, http.StatusOK, identity)
}
