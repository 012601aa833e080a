package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/locum-staffing/middlewares"
	"github.com/yeremiapane/locum-staffing/services"
	"github.com/yeremiapane/locum-staffing/utils"
)

var errInternal = errors.New("internal server error")

// StatusFor maps a service error kind to its HTTP status code.
func StatusFor(err error) int {
	switch services.KindOf(err) {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindAuth:
		return http.StatusUnauthorized
	case services.KindForbidden:
		return http.StatusForbidden
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindInvalidState:
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// respondServiceError renders typed errors with their message and hides everything else.
func respondServiceError(c *gin.Context, err error) {
	code := StatusFor(err)
	if code == http.StatusInternalServerError {
		_ = c.Error(err)
		utils.ErrorLogger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		utils.RespondError(c, code, errInternal)
		return
	}
	utils.RespondError(c, code, err)
}

func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid "+name))
		return 0, false
	}
	return uint(id), true
}

func mustSession(c *gin.Context) (services.Session, bool) {
	session, ok := middlewares.GetSession(c)
	if !ok {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("user id not found in context"))
		return services.Session{}, false
	}
	return session, true
}
