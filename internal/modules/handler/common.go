package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/serializer"
	"github.com/lexflow/lexflow-api/internal/modules/service"
	"github.com/lexflow/lexflow-api/internal/pkg/jwtutil"
)

// currentUser returns the caller set by the auth middleware. It writes a
// 401 and returns false when there is none.
func currentUser(c *gin.Context) (*model.User, bool) {
	u, ok := c.Get("user")
	if !ok {
		c.JSON(http.StatusUnauthorized, serializer.CheckLogin())
		return nil, false
	}
	user, ok := u.(*model.User)
	if !ok || user == nil {
		c.JSON(http.StatusUnauthorized, serializer.CheckLogin())
		return nil, false
	}
	return user, true
}

func currentClaims(c *gin.Context) *jwtutil.UserClaims {
	v, ok := c.Get("claims")
	if !ok {
		return nil
	}
	claims, _ := v.(*jwtutil.UserClaims)
	return claims
}

// pathID parses a uuid path parameter, writing a 400 on failure.
func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid "+name, err))
		return uuid.Nil, false
	}
	return id, true
}

// writeErr maps service errors onto status codes.
func writeErr(c *gin.Context, err error) {
	msg := service.PublicMessage(err)
	switch {
	case errors.Is(err, service.ErrTokenMissing),
		errors.Is(err, service.ErrTokenRevoked),
		errors.Is(err, jwtutil.ErrTokenExpired),
		errors.Is(err, jwtutil.ErrTokenInvalid):
		c.JSON(http.StatusUnauthorized, serializer.AuthErr(err.Error()))
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, serializer.AuthErr(msg))
	case errors.Is(err, service.ErrInvalidInput):
		c.JSON(http.StatusBadRequest, serializer.ParamErr(msg, nil))
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, serializer.ForbiddenErr(msg))
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, serializer.NotFoundErr(msg))
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, serializer.ConflictErr(msg))
	case errors.Is(err, service.ErrUpstream):
		c.JSON(http.StatusBadGateway, serializer.UpstreamErr(msg, err))
	default:
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
	}
}
