package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/nyayasathi/kanun/internal/middleware"
	"github.com/nyayasathi/kanun/internal/pkg/errcode"
	appErr "github.com/nyayasathi/kanun/internal/pkg/errors"
	"github.com/nyayasathi/kanun/internal/pkg/response"
)

func getUserID(c *gin.Context) string {
	return middleware.UserID(c)
}

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("user_id", getUserID(c)),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrUnauthorized):
		response.Error(c, http.StatusUnauthorized, errcode.ErrUnauthorized, "unauthorized")
	case errors.Is(err, appErr.ErrForbidden):
		response.Error(c, http.StatusForbidden, errcode.ErrForbidden, "forbidden")
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, http.StatusNotFound, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, http.StatusBadRequest, errcode.ErrInvalid, "invalid request")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, http.StatusConflict, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, http.StatusTooManyRequests, errcode.ErrTooMany, "too many requests")
	case errors.Is(err, appErr.ErrRetrieval):
		response.Error(c, http.StatusBadGateway, errcode.ErrRetrievalFailed, "could not search legal documents, please try again")
	case errors.Is(err, appErr.ErrGeneration):
		response.Error(c, http.StatusBadGateway, errcode.ErrGenerationFailed, "could not generate an answer, please try again")
	default:
		response.Error(c, http.StatusInternalServerError, errcode.ErrInternal, "internal error")
	}
}
