// Package sink implements the remote note sink: an HTTP service that accepts
// new notes, assigns each a UUID and stores it in a key-value table.
package sink

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aretw0/notenest/pkg/remote"
)

const (
	// NotesPath is the create-note resource.
	NotesPath = "/notes"

	msgCreated       = "Note created"
	msgInternalError = "Internal server error"
)

var (
	allowMethods = []string{http.MethodPost, http.MethodOptions}
	allowHeaders = []string{"Content-Type", "X-Amz-Date", "Authorization", "X-Api-Key", "X-Amz-Security-Token"}
)

// Server handles the sink's HTTP surface.
type Server struct {
	table  Table
	logger *zap.Logger
	router *gin.Engine

	now   func() time.Time
	newID func() string
}

// Option configures a Server.
type Option func(*Server)

// WithClock replaces the time source used for createdAt and updatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

// WithIDGenerator replaces the UUID v4 generator.
func WithIDGenerator(gen func() string) Option {
	return func(s *Server) { s.newID = gen }
}

// NewServer builds the router over table.
func NewServer(cfg *Config, table Table, logger *zap.Logger, opts ...Option) *Server {
	s := &Server{
		table:  table,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(Logger(logger))
	router.Use(cors.New(corsConfig(cfg.AllowedOrigins)))

	router.POST(NotesPath, s.createNote)
	router.OPTIONS(NotesPath, s.preflight)
	s.router = router
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:              allowMethods,
		AllowHeaders:              allowHeaders,
		AllowCredentials:          true,
		OptionsResponseStatusCode: http.StatusOK,
	}
	if len(origins) > 0 {
		allowed := make(map[string]struct{}, len(origins))
		for _, o := range origins {
			allowed[strings.TrimSuffix(o, "/")] = struct{}{}
		}
		cfg.AllowOriginFunc = func(origin string) bool {
			_, ok := allowed[origin]
			return ok
		}
	} else {
		cfg.AllowOriginFunc = func(origin string) bool { return true }
	}
	return cfg
}

// preflight answers OPTIONS requests that carry no Origin header; the cors
// middleware handles the rest before routing.
func (s *Server) preflight(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", strings.Join(allowMethods, ", "))
	h.Set("Access-Control-Allow-Headers", strings.Join(allowHeaders, ","))
	h.Set("Access-Control-Allow-Credentials", "true")
	c.Status(http.StatusOK)
}

func (s *Server) createNote(c *gin.Context) {
	var payload remote.Payload
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.fail(c, "decode payload", err)
		return
	}

	item := NewItem(s.newID(), payload, s.now())
	if err := s.table.Put(c.Request.Context(), item); err != nil {
		s.fail(c, "store note", err)
		return
	}

	s.logger.Debug("note stored", zap.String("note_id", item.NoteID), zap.String("type", string(payload.Type)))
	c.JSON(http.StatusCreated, remote.CreateResponse{Message: msgCreated, NoteID: item.NoteID})
}

func (s *Server) fail(c *gin.Context, op string, err error) {
	s.logger.Error("create note failed", zap.String("op", op), zap.Error(err))
	c.JSON(http.StatusInternalServerError, remote.ErrorResponse{Error: msgInternalError})
}
