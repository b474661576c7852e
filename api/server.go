package api

import (
	"context"
	"log"
	"net/http"
	"time"

	"comicreel/pipeline"
	"comicreel/storage"

	"github.com/gin-gonic/gin"
)

// NewRouter constructs a Gin engine with registered routes.
// objects is used to sign download links when the backend supports it.
func NewRouter(svc *pipeline.Service, objects storage.ObjectStore) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	h := &handlers{svc: svc, objects: objects}
	RegisterHealthRoutes(r)
	registerProjectRoutes(r, h)
	registerPanelRoutes(r, h)
	return r
}

// RegisterHealthRoutes registers the liveness endpoint
func RegisterHealthRoutes(r *gin.Engine) {
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Server runs the HTTP API
type Server struct {
	httpServer *http.Server
}

// NewServer binds the router to addr, e.g. ":8080"
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start serves in the background
func (s *Server) Start() {
	log.Printf("Starting API server on %s", s.httpServer.Addr)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down API server...")
	return s.httpServer.Shutdown(ctx)
}
