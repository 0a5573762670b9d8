package http

import (
	"context"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/voxmesh/meetrelay/internal/adapters/signal"
	"github.com/voxmesh/meetrelay/internal/app"
	"github.com/voxmesh/meetrelay/internal/config"
	"github.com/voxmesh/meetrelay/internal/domain"
)

// ClientTokenMiddleware assigns each browser a stable opaque token used as
// its session id on the signaling socket.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, orch *app.Orchestrator) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("MeetRelaySession", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	ctl := signal.NewSignalWSController(orch, cfg.MaxRoomSize, cfg.ReadLimit)

	api := r.Group("/api")

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("sid", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	api.POST("/summary/:room", func(c *gin.Context) {
		room := domain.RoomName(c.Param("room"))
		summary := orch.Summary(c.Request.Context(), room)
		c.JSON(http.StatusOK, gin.H{"room": room, "summary": summary})
	})

	api.POST("/adapt", func(c *gin.Context) {
		var stats app.NetworkStats
		if err := c.ShouldBindJSON(&stats); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid stats payload"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"mode":        app.EvaluateNetwork(stats),
			"suggestions": app.Suggestions(stats),
			"metrics":     app.Metrics(stats),
		})
	})

	return r
}
