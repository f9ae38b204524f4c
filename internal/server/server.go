package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emilythestrangee/forum-core/backend/internal/auth"
	"github.com/emilythestrangee/forum-core/backend/internal/config"
	"github.com/emilythestrangee/forum-core/backend/internal/database"
	"github.com/emilythestrangee/forum-core/backend/internal/handlers"
	"github.com/emilythestrangee/forum-core/backend/internal/metrics"
	"github.com/emilythestrangee/forum-core/backend/internal/middleware"
	"github.com/emilythestrangee/forum-core/backend/internal/repository"
)

type Server struct {
	cfg      *config.Config
	log      *zap.Logger
	store    repository.Store
	identity *auth.IdentityContext
	metrics  *metrics.Metrics
	handler  *handlers.Handler
}

// OpenStore opens the store selected by STORE_DRIVER. The postgres store
// is migrated before it is returned.
func OpenStore(cfg *config.Config, log *zap.Logger) (repository.Store, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := database.Open(cfg.DB, log)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			return nil, err
		}
		return repository.NewGormStore(db), nil
	case config.StoreBadger:
		return repository.OpenBadger(repository.BadgerOptions{
			Path:     cfg.Badger.Path,
			InMemory: cfg.Badger.InMemory,
			Logger:   log,
		})
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// New builds a server around an open store.
func New(cfg *config.Config, store repository.Store, log *zap.Logger) *Server {
	secret := []byte(cfg.JWTSecret)
	m := metrics.New()
	return &Server{
		cfg:      cfg,
		log:      log,
		store:    store,
		identity: auth.NewIdentityContext(auth.NewJWTVerifier(secret)),
		metrics:  m,
		handler:  handlers.NewHandler(store, auth.NewIssuer(secret, cfg.TokenTTL), m, log),
	}
}

// HTTPServer returns the http.Server serving the router on cfg.Port.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + s.cfg.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(middleware.Recovery(s.log), middleware.RequestLogger(s.log), s.metrics.Middleware())

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:  []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(s.cfg.CORSOrigins) == 0 || (len(s.cfg.CORSOrigins) == 1 && s.cfg.CORSOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.cfg.CORSOrigins
		corsConfig.AllowCredentials = true
	}
	r.Use(cors.New(corsConfig))

	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/register", s.handler.Auth.Register)
		api.POST("/login", s.handler.Auth.Login)

		// Public reads
		api.GET("/posts", s.handler.Post.GetPosts)
		api.GET("/posts/:id", s.handler.Post.GetPost)
		api.GET("/posts/:id/comments", s.handler.Comment.GetComments)
		api.GET("/posts/:id/comments/:commentId", s.handler.Comment.GetComment)
		api.GET("/users/:id", s.handler.User.GetUserProfile)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(s.identity))
		{
			protected.GET("/me", s.handler.Auth.GetMe)

			protected.POST("/posts", s.handler.Post.CreatePost)
			protected.PUT("/posts/:id", s.handler.Post.UpdatePost)
			protected.DELETE("/posts/:id", s.handler.Post.DeletePost)

			protected.POST("/posts/:id/comments", s.handler.Comment.CreateComment)
			protected.PUT("/posts/:id/comments/:commentId", s.handler.Comment.UpdateComment)
			protected.DELETE("/posts/:id/comments/:commentId", s.handler.Comment.DeleteComment)

			protected.POST("/votes", s.handler.Vote.CastVote)
			protected.GET("/votes", s.handler.Vote.GetVote)
			protected.PUT("/votes/:id", s.handler.Vote.SetDirection)
			protected.DELETE("/votes/:id", s.handler.Vote.RemoveVote)
		}
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
	defer cancel()

	stats := s.store.Health(ctx)
	status := http.StatusOK
	if stats["status"] != "up" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, stats)
}

// Close releases the store.
func (s *Server) Close() error {
	return s.store.Close()
}
