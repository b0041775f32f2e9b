package realtime

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/lexflow/lexflow-api/internal/modules/model"
	"github.com/lexflow/lexflow-api/internal/modules/serializer"
)

// ServeWS upgrades an authenticated request into a realtime connection.
// allowedOrigins follows the CORS setting; "*" accepts any origin.
//
//	@Summary		Realtime relay
//	@Description	Upgrade to a websocket carrying {event, data} frames. The token may be passed as ?token=.
//	@Tags			collaboration
//	@Security		BearerAuth
//	@Success		101
//	@Failure		401	{object}	serializer.Response
//	@Router			/collaboration/ws [get]
func (h *Hub) ServeWS(allowedOrigins []string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return func(c *gin.Context) {
		v, ok := c.Get("user")
		user, _ := v.(*model.User)
		if !ok || user == nil {
			c.JSON(http.StatusUnauthorized, serializer.CheckLogin())
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// the upgrader has already written the error response
			h.log.Debug("websocket upgrade", zap.Error(err))
			return
		}

		client := newClient(h, conn, user.ID, user.TenantID, user.Username)
		h.register(client)

		// the request context ends with the handler; pumps outlive it
		go client.writePump()
		go client.readPump(context.WithoutCancel(c.Request.Context()))
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || set[origin]
	}
}
