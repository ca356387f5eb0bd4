// Package http wires the gin router: session directory endpoints, the
// state reload surface and the websocket upgrade route.
package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tavernkeep/tavern/internal/adapters/signal"
	"github.com/tavernkeep/tavern/internal/app"
	"github.com/tavernkeep/tavern/internal/config"
)

// ClientTokenMiddleware gives every browser a stable token, carried in
// the cookie session. Not authentication; it only correlates logs.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		token, _ := sess.Get("ct").(string)
		if token == "" {
			token = uuid.NewString()
			sess.Set("ct", token)
			if err := sess.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save session cookie")
			}
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func Setup(ctx context.Context, cfg *config.Config, coord *app.Coordinator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("TavernSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ctrl := NewSessionController(coord)
	ws := signal.NewController(coord, cfg)

	api := r.Group("/api")
	api.POST("/sessions", ctrl.createSession)
	api.GET("/sessions/code/:code", ctrl.resolveByCode)
	api.POST("/sessions/:id/members", ctrl.join)
	api.GET("/sessions/:id/state", ctrl.state)
	api.POST("/members/:id/character", ctrl.createCharacter)
	api.POST("/roll", ctrl.roll)
	api.GET("/groups", func(c *gin.Context) {
		c.JSON(http.StatusOK, coord.Hub.List())
	})

	api.GET("/ws", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("client", c.GetString("client_token")).Msg("ws endpoint hit")
		ws.HandleSignal(ctx, c)
	})

	return r
}
