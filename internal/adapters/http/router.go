package http

import (
	"context"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/WatchParty/internal/adapters/auth"
	syncws "github.com/dkeye/WatchParty/internal/adapters/sync"
	"github.com/dkeye/WatchParty/internal/config"
)

// RequestIDMiddleware tags every request for log correlation.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := uuid.NewString()
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	resolver *auth.Resolver,
	authH *AuthHandlers,
	roomH *RoomHandlers,
	syncCtl *syncws.Controller,
) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.CORSOrigin},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	if cfg.StaticPath != "" {
		r.Static("/static", cfg.StaticPath)
		r.GET("/", func(c *gin.Context) {
			c.File(cfg.StaticPath + "/index.html")
		})
	}

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	ar := api.Group("/auth")
	{
		ar.POST("/register", authH.Register)
		ar.POST("/login", authH.Login)
		ar.GET("/verify-email", authH.VerifyEmail)
		ar.POST("/resend-verification", authH.ResendVerification)
		ar.GET("/me", auth.Protect(resolver), authH.Me)
		ar.PUT("/me/update", auth.Protect(resolver), authH.UpdateMe)
	}

	rr := api.Group("/rooms", auth.Protect(resolver))
	{
		rr.POST("", roomH.Create)
		rr.GET("", roomH.List)
		rr.GET("/myroom", roomH.MyRoom)
		rr.GET("/:roomId", roomH.Get)
		rr.POST("/:roomId/join", roomH.Join)
		rr.POST("/:roomId/leave", roomH.Leave)
		rr.DELETE("/:roomId", roomH.Delete)
	}

	// The socket resolves its own credential; a failed resolution never
	// reaches room logic.
	api.GET("/ws", func(c *gin.Context) {
		syncCtl.Handle(ctx, c)
	})

	return r
}
