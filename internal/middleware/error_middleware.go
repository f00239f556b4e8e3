package middleware

import (
	stderrors "errors"
	"net/http"

	fylogger "github.com/FyersDev/trading-logger-go"
	"github.com/gin-gonic/gin"

	"ingest-api/pkg/errors"
)

func ErrorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err

		var appErr *errors.AppError
		if stderrors.As(err, &appErr) {
			if appErr.Status >= http.StatusInternalServerError {
				fylogger.ErrorLog(c.Request.Context(), appErr.Message, err, map[string]interface{}{
					"path": c.FullPath(),
					"code": appErr.Code,
				})
			}
			c.JSON(appErr.Status, errors.NewErrorResponse(appErr))
			return
		}

		fylogger.ErrorLog(c.Request.Context(), "unhandled request error", err, map[string]interface{}{
			"path": c.FullPath(),
		})
		c.JSON(http.StatusInternalServerError, errors.NewErrorResponse(errors.ErrInternalServer))
	}
}
