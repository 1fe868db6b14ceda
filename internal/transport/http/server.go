package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/shopdesk-server/internal/auth"
	"github.com/vovakirdan/shopdesk-server/internal/config"
	"github.com/vovakirdan/shopdesk-server/internal/core"
	"github.com/vovakirdan/shopdesk-server/internal/media"
	"github.com/vovakirdan/shopdesk-server/internal/service/accounts"
	"github.com/vovakirdan/shopdesk-server/internal/service/carts"
	"github.com/vovakirdan/shopdesk-server/internal/service/catalog"
	"github.com/vovakirdan/shopdesk-server/internal/service/chat"
	"github.com/vovakirdan/shopdesk-server/internal/service/notifications"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Services bundles what the HTTP layer dispatches to.
type Services struct {
	Hub           *core.Hub
	Auth          *auth.Service
	Chat          *chat.Service
	Notifications *notifications.Service
	Carts         *carts.Service
	Accounts      *accounts.Service
	Catalog       *catalog.Service
	Media         *media.Storage
	Store         Pinger
}

// NewServer builds the HTTP server with every route mounted.
// The live channel is served by the stdlib mux directly; everything else goes to gin.
func NewServer(svc Services, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	mux := stdhttp.NewServeMux()
	mux.Handle("/ws", NewWSHandler(svc.Hub, svc.Chat, svc.Notifications, svc.Carts, WSOptions{
		Buffer:     cfg.ClientBuffer,
		RateLimit:  cfg.WSRateLimit,
		RateWindow: cfg.WSRateWindow,
		Origins:    cfg.AllowedOrigins,
	}, logger))
	mux.Handle("/", NewRouter(svc, cfg, logger))

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter builds the gin engine for the REST API.
func NewRouter(svc Services, cfg *config.Config, logger *zerolog.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(LoggerMiddleware(logger))
	engine.Use(MetricsMiddleware())
	engine.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	if cfg.MaxUploadBytes > 0 {
		engine.MaxMultipartMemory = cfg.MaxUploadBytes
	}

	apiHandlers := NewAPIHandlers(svc.Auth, logger)
	roomHandlers := NewRoomHandlers(svc.Chat, svc.Accounts, svc.Media, logger)
	userHandlers := NewUserHandlers(svc.Accounts, logger)
	notificationHandlers := NewNotificationHandlers(svc.Notifications, logger)
	cartHandlers := NewCartHandlers(svc.Carts, logger)
	productHandlers := NewProductHandlers(svc.Catalog, svc.Media, logger)
	requireAdmin := AdminMiddleware(svc.Auth, logger)

	engine.GET("/health", healthHandler(svc.Store))
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	engine.Static(media.URLPrefix, svc.Media.Dir())

	api := engine.Group("/api")
	{
		messages := api.Group("/messages")
		messages.POST("", roomHandlers.SendMessage)
		messages.GET("/rooms", roomHandlers.ListRooms)
		messages.GET("/:room", roomHandlers.GetHistory)
		messages.PUT("/seen/:room", roomHandlers.MarkSeen)
		messages.PUT("/delivered/:room", roomHandlers.MarkDelivered)
		messages.DELETE("/clear/:room", roomHandlers.ClearRoom)
		messages.DELETE("/delete-room/:room", roomHandlers.ClearRoom)
		messages.DELETE("/remove-user/:userId", roomHandlers.RemoveUser)

		notify := api.Group("/notifications")
		notify.POST("", notificationHandlers.Create)
		notify.GET("/:userId", notificationHandlers.ListForUser)
		notify.POST("/read/:id", notificationHandlers.MarkRead)

		cart := api.Group("/cart")
		cart.GET("", cartHandlers.List)
		cart.GET("/:userId", cartHandlers.Get)
		cart.POST("/:userId", cartHandlers.Save)

		users := api.Group("/users")
		users.POST("/register", apiHandlers.Register)
		users.POST("/login", apiHandlers.Login)
		users.GET("", userHandlers.ListUsers)
		users.DELETE("/:userId", requireAdmin, userHandlers.DeleteUser)

		profile := api.Group("/profile")
		profile.GET("/:userId", userHandlers.GetProfile)
		profile.PUT("/:userId", userHandlers.PutProfile)

		products := api.Group("/products")
		products.GET("", productHandlers.List)
		products.GET("/:id", productHandlers.Get)
		products.POST("", requireAdmin, productHandlers.Create)
		products.DELETE("/:id", requireAdmin, productHandlers.Delete)
	}

	// The dashboard API is reachable under both prefixes.
	for _, prefix := range []string{"/api/admin", "/admin"} {
		admin := engine.Group(prefix)
		admin.POST("/login", apiHandlers.AdminLogin)

		protected := admin.Group("", requireAdmin)
		protected.GET("/users", userHandlers.ListUsers)
		protected.DELETE("/users/:userId", userHandlers.DeleteUser)
		protected.GET("/carts", cartHandlers.List)
		protected.DELETE("/cart/:userId", cartHandlers.Delete)
		protected.POST("/notify", notificationHandlers.Create)
		protected.GET("/notify", notificationHandlers.List)
		protected.PUT("/notify/:id", notificationHandlers.Update)
		protected.DELETE("/notify/:id", notificationHandlers.Delete)
		protected.POST("/maintenance/orphan-carts", userHandlers.PurgeOrphanCarts)
	}

	return engine
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || lo.Contains(origins, "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}

func healthHandler(st Pinger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if st != nil {
			if err := st.Ping(c.Request.Context()); err != nil {
				c.String(stdhttp.StatusServiceUnavailable, "store unavailable")
				return
			}
		}
		c.String(stdhttp.StatusOK, "ok")
	}
}
