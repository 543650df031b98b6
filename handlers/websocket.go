package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/Bipolar-Factory/prediction-system-for-cabin-data-blue-star/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// LiveRows streams batches published on channel to websocket clients. A nil
// authService leaves the stream open to anyone.
func LiveRows(cache *services.CacheService, authService *services.AuthService, channel string, logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !cache.Available() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live stream requires redis"})
			return
		}

		if authService != nil {
			tokenStr := c.Query("token")
			if tokenStr == "" {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token query parameter"})
				return
			}
			if _, err := authService.ValidateToken(tokenStr); err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
				return
			}
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.WithError(err).Warn("websocket upgrade failed")
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(c.Request.Context())
		defer cancel()

		// Read pump: detect client disconnect
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		pubsub := cache.Subscribe(ctx, channel)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				err := conn.WriteJSON(gin.H{
					"type": "rows",
					"data": json.RawMessage(msg.Payload),
				})
				if err != nil {
					logger.WithError(err).Debug("ws write error")
					return
				}
			}
		}
	}
}
