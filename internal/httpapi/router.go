// Package httpapi wires the HTTP surface: the /ws signaling upgrade,
// a health check, and a read-only room-introspection endpoint.
//
// Grounded on internal/adapters/http/router.go's gin.New() +
// sessions/cookie + client-token middleware shape, generalized from a
// single static-file server to this core's signaling-only surface.
package httpapi

import (
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nimbusrtc/sfucore/internal/registry"
	"github.com/nimbusrtc/sfucore/internal/room"
	"github.com/nimbusrtc/sfucore/internal/signaling"
	"github.com/nimbusrtc/sfucore/internal/transport/ws"
	"github.com/rs/zerolog/log"
)

// Config controls the router's mode and session secret.
type Config struct {
	ReleaseMode    bool
	SessionSecret  string
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// NewRouter builds the gin engine that fronts the Dispatcher.
func NewRouter(cfg Config, reg *registry.Registry, dispatcher *signaling.Dispatcher) *gin.Engine {
	if cfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	if !cfg.ReleaseMode {
		r.Use(gin.Logger())
	}

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	r.Use(sessions.Sessions("sfucoreSession", store))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": snapshotRooms(reg)})
	})

	r.GET("/ws", func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.Debug().Str("module", "httpapi").Err(err).Msg("ws upgrade failed")
			return
		}
		wsConn := ws.New(conn)
		log.Info().Str("module", "httpapi").Str("conn", wsConn.ID()).Msg("connection opened")
		dispatcher.Serve(wsConn)
	})

	return r
}

type roomSummary struct {
	ID    string `json:"id"`
	Peers int    `json:"peers"`
}

// snapshotRooms is a read-only introspection view; spec §2 only
// requires O(1) lookup from the three registry viewpoints, so this
// walks the registry's own listing rather than adding a fourth index.
func snapshotRooms(reg *registry.Registry) []roomSummary {
	rooms := reg.ListRooms()
	out := make([]roomSummary, 0, len(rooms))
	for _, r := range rooms {
		if rm, ok := r.(*room.Room); ok {
			out = append(out, roomSummary{ID: string(rm.ID()), Peers: rm.PeerCount()})
		}
	}
	return out
}
