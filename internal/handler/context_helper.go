package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ihu-online/admissions-api/internal/middleware"
	"github.com/ihu-online/admissions-api/internal/models"
	"github.com/ihu-online/admissions-api/internal/service"
)

// actorFrom builds the audit actor from the authenticated request.
func actorFrom(c *gin.Context) service.Actor {
	actor := service.Actor{
		IPAddress: c.ClientIP(),
		UserAgent: c.GetHeader("User-Agent"),
	}
	if claims, ok := c.Get(middleware.ContextUserKey); ok {
		if jwtClaims, ok := claims.(*models.JWTClaims); ok {
			actor.UserID = jwtClaims.UserID
		}
	}
	return actor
}
