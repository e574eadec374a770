package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	domainerrors "kailospay.backend/internal/domain/errors"
	"kailospay.backend/pkg/logger"
)

// Success sends a success envelope. Fields of data sit next to "ok".
func Success(c *gin.Context, status int, data gin.H) {
	body := gin.H{"ok": true}
	for k, v := range data {
		body[k] = v
	}
	c.JSON(status, body)
}

// OK is Success with 200.
func OK(c *gin.Context, data gin.H) {
	Success(c, http.StatusOK, data)
}

// Error sends an error envelope. Errors that are not AppErrors are mapped
// through domainerrors.FromError, so unknown failures become 500.
func Error(c *gin.Context, err error) {
	appErr := domainerrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		logger.WithContext(c.Request.Context()).Error("request failed",
			zap.String("path", c.FullPath()),
			zap.Int("status", appErr.Status),
			zap.Error(err),
		)
	}
	c.JSON(appErr.Status, body(appErr))
}

// Abort is Error for middleware: it stops the handler chain as well.
func Abort(c *gin.Context, err error) {
	Error(c, err)
	c.Abort()
}

// Unauthorized writes the single 401 body every auth failure shares.
func Unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"ok":      false,
		"code":    domainerrors.CodeUnauthorized,
		"message": "unauthorized",
	})
}

func body(e *domainerrors.AppError) gin.H {
	h := gin.H{
		"ok":      false,
		"code":    e.Code,
		"message": e.Message,
	}
	if e.Reason != "" {
		h["reason"] = e.Reason
	}
	for k, v := range e.Details {
		if _, taken := h[k]; !taken {
			h[k] = v
		}
	}
	return h
}
