package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yusakitchen/reviewboard/internal/blob"
	"github.com/yusakitchen/reviewboard/internal/config"
	apierrors "github.com/yusakitchen/reviewboard/internal/errors"
	"github.com/yusakitchen/reviewboard/internal/logging"
	"github.com/yusakitchen/reviewboard/internal/middleware"
	"github.com/yusakitchen/reviewboard/internal/monitoring"
	"github.com/yusakitchen/reviewboard/internal/photo"
	"github.com/yusakitchen/reviewboard/internal/render"
	"github.com/yusakitchen/reviewboard/internal/reply"
	"github.com/yusakitchen/reviewboard/internal/review"
	"github.com/yusakitchen/reviewboard/internal/save"
	"github.com/yusakitchen/reviewboard/internal/stats"
)

// Store is the relational store the server is built on.
// Both the postgres and sqlite stores satisfy it.
type Store interface {
	review.Store
	reply.Store
	photo.Store
	save.Store
	stats.Store
	Ping(ctx context.Context) error
}

// APIServer represents the main API server
type APIServer struct {
	config   *config.Config
	router   *gin.Engine
	store    Store
	reviews  *review.Service
	replies  *reply.Service
	photos   *photo.Service
	saves    *save.Service
	stats    *stats.Service
	renderer *render.Renderer
	newRand  func() *rand.Rand
}

// NewAPIServer creates a new API server instance
func NewAPIServer(cfg *config.Config, store Store, blobs blob.Store) (*APIServer, error) {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	renderer, err := render.New()
	if err != nil {
		return nil, err
	}

	router := gin.New()

	// Add middleware in order
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(monitoring.MetricsMiddleware())
	router.Use(logging.RequestLogger())
	router.Use(middleware.BodyLimit(cfg.Server.MaxUploadBytes))

	srv := &APIServer{
		config:   cfg,
		router:   router,
		store:    store,
		reviews:  review.NewService(store),
		replies:  reply.NewService(store),
		photos:   photo.NewService(store, blobs),
		saves:    save.NewService(store),
		stats:    stats.NewService(store),
		renderer: renderer,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}

	srv.setupRoutes()
	return srv, nil
}

// Router returns the gin router
func (s *APIServer) Router() http.Handler {
	return s.router
}

// setupRoutes configures all routes
func (s *APIServer) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/", s.handlePage)

	s.router.GET("/photos/", s.handleServePhoto)
	s.router.GET("/photos/:filename", s.handleServePhoto)

	api := s.router.Group("/api")
	{
		api.GET("/reviews", s.handleListReviews)
		api.POST("/reviews", s.handleCreateReview)
		api.OPTIONS("/reviews", middleware.Preflight(http.MethodGet, http.MethodPost))

		api.GET("/replies", s.handleListReplies)
		api.POST("/replies", s.handleCreateReply)
		api.OPTIONS("/replies", middleware.Preflight(http.MethodGet, http.MethodPost))

		api.GET("/photos", s.handleListPhotos)
		api.OPTIONS("/photos", middleware.Preflight(http.MethodGet))
		api.POST("/photos/upload", s.handleUploadPhotos)
		api.OPTIONS("/photos/upload", middleware.Preflight(http.MethodPost))

		api.POST("/saves", s.handleRecordSave)
		api.OPTIONS("/saves", middleware.Preflight(http.MethodPost))

		api.GET("/stats", s.handleGetStats)
		api.OPTIONS("/stats", middleware.Preflight(http.MethodGet))
	}
}

// Health check handler
func (s *APIServer) healthCheck(c *gin.Context) {
	if err := s.store.Ping(c.Request.Context()); err != nil {
		logging.LogError(err, middleware.GetRequestIDFromContext(c), "server", "health")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": s.config.Server.Name,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": s.config.Server.Name,
	})
}

// handlePage renders the review page
func (s *APIServer) handlePage(c *gin.Context) {
	ctx := c.Request.Context()

	state, err := s.viewState(ctx)
	if err != nil {
		s.logStoreFailure(c, err, "render_page")
		c.String(http.StatusInternalServerError, "Error loading page")
		return
	}
	state.ShowAll = c.Query("all") == "1"
	if saved, err := c.Cookie(render.SavedCookie); err == nil && saved == "1" {
		state.Saved = true
	}

	var buf bytes.Buffer
	if err := s.renderer.Page(&buf, state, s.newRand()); err != nil {
		logging.LogError(err, middleware.GetRequestIDFromContext(c), "server", "render_page")
		c.String(http.StatusInternalServerError, "Error loading page")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (s *APIServer) viewState(ctx context.Context) (render.ViewState, error) {
	reviews, err := s.reviews.List(ctx)
	if err != nil {
		return render.ViewState{}, err
	}
	replies, err := s.replies.List(ctx)
	if err != nil {
		return render.ViewState{}, err
	}
	photos, err := s.photos.List(ctx)
	if err != nil {
		return render.ViewState{}, err
	}
	saveCount, err := s.store.CountSaves(ctx)
	if err != nil {
		return render.ViewState{}, fmt.Errorf("failed to count saves: %w", err)
	}
	return render.ViewState{
		Reviews:   reviews,
		Replies:   replies,
		Photos:    photos,
		SaveCount: saveCount,
	}, nil
}

// respondError writes an APIError as-is, logging it when it is a server fault.
// Anything else is a store failure: it is logged with its cause and answered
// with the generic message.
func (s *APIServer) respondError(c *gin.Context, err error, operation, message string) {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		if apierrors.IsServerError(apiErr) {
			s.logStoreFailure(c, err, operation)
		}
		c.JSON(apiErr.HTTPStatus, apierrors.ErrorResponse{Error: apiErr.Message})
		return
	}

	s.logStoreFailure(c, err, operation)
	storeErr := apierrors.NewStoreFailure(message)
	c.JSON(storeErr.HTTPStatus, apierrors.ErrorResponse{Error: storeErr.Message})
}

func (s *APIServer) logStoreFailure(c *gin.Context, err error, operation string) {
	monitoring.RecordStoreFailure(operation)
	logging.LogError(err, middleware.GetRequestIDFromContext(c), "server", operation)
}
