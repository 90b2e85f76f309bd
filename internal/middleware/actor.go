package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ActorKey is the context key where the acting username is stored.
const ActorKey = "actor"

// ActorMiddleware extracts the acting username for the stock movement audit
// trail. The X-Username header is set by the auth gateway; requests without
// it are rejected so movements are never recorded anonymously.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader("X-Username")
		if actor == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "X-Username header is required",
			})
			c.Abort()
			return
		}
		c.Set(ActorKey, actor)
		c.Next()
	}
}

// DevelopmentActorMiddleware fills in a fixed actor for local testing.
func DevelopmentActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader("X-Username")
		if actor == "" {
			actor = "dev"
		}
		c.Set(ActorKey, actor)
		c.Next()
	}
}

// Actor returns the acting username from the request context.
func Actor(c *gin.Context) string {
	return c.GetString(ActorKey)
}
