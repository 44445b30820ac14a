package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/dayoff-api/internal/middleware"
	"github.com/noah-isme/dayoff-api/internal/models"
	"github.com/noah-isme/dayoff-api/internal/service"
	appErrors "github.com/noah-isme/dayoff-api/pkg/errors"
	"github.com/noah-isme/dayoff-api/pkg/response"
)

// identityFromContext resolves the acting user or writes a 401 when the request carries no claims.
func identityFromContext(c *gin.Context) (models.Identity, bool) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.Identity{}, false
	}
	return claims.Identity(), true
}

func requestMeta(c *gin.Context) service.RequestMeta {
	return service.RequestMeta{IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}
