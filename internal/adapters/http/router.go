package http

import (
	"context"

	"github.com/dkeye/Cast/internal/adapters/signal"
	"github.com/dkeye/Cast/internal/app/orch"
	"github.com/dkeye/Cast/internal/config"
	api "github.com/dkeye/Cast/internal/transport/http"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	sessionName    = "CastSessions"
	clientTokenKey = "client_token"
	clientTokenTTL = 3600 * 24 * 7
	sessionToken   = "ct"
)

// ClientTokenMiddleware gives every browser a stable token kept in the cookie
// session. It is only a log correlation id; it grants nothing.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(sessionToken).(string)
		if token == "" {
			token = uuid.NewString()
			session.Set(sessionToken, token)
			if err := session.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("save client token")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, ctl *signal.SignalWSController) (*gin.Engine, error) {
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	ice, err := cfg.WebRTCICEServers()
	if err != nil {
		return nil, err
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: clientTokenTTL, HttpOnly: true})
	r.Use(sessions.Sessions(sessionName, store))
	r.Use(ClientTokenMiddleware())

	ws := func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("client_token", c.GetString(clientTokenKey)).Str("path", c.Request.URL.Path).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	}
	r.GET("/", ws)
	r.GET("/ws", ws)
	r.GET("/healthz", api.Health)

	(&api.API{Orch: o, ICEServers: ice}).Register(r.Group("/api"))

	log.Info().Str("module", "adapters.http").Int("ice_servers", len(ice)).Msg("router setup")
	return r, nil
}
