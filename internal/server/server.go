package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"gira/internal/auth"
	"gira/internal/models"
	"gira/internal/tracker"
)

const userContextKey = "currentUser"

// Server provides the HTTP handlers for the issue tracking backend.
type Server struct {
	engine  *gin.Engine
	auth    *auth.Authority
	tracker *tracker.Service
	logger  *slog.Logger
}

// New constructs the HTTP server with routes and middleware configured.
func New(authority *auth.Authority, svc *tracker.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	srv := &Server{
		engine:  router,
		auth:    authority,
		tracker: svc,
		logger:  logger,
	}

	srv.registerRoutes()
	return srv
}

// Engine exposes the underlying Gin engine.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// registerRoutes wires all API handlers together.
func (s *Server) registerRoutes() {
	api := s.engine.Group("/api")
	{
		api.GET("/healthz", s.handleHealth)

		users := api.Group("/users")
		{
			users.POST("/register", s.handleRegister)
			users.POST("/login", s.handleLogin)
			users.POST("/edit", s.tokenRequired(), s.handleEditUser)
			users.POST("/logout", s.tokenRequired(), s.handleLogout)
		}

		project := api.Group("/project", s.tokenRequired())
		{
			project.POST("/create", s.handleCreateProject)
			project.GET("/listall", s.handleListProjects)
			project.GET("/view", s.handleViewProject)
			project.POST("/edit", s.handleEditProject)
			project.DELETE("/delete", s.handleDeleteProject)
		}

		issue := api.Group("/issue", s.tokenRequired())
		{
			issue.POST("/create", s.handleCreateIssue)
			issue.GET("/view", s.handleViewIssue)
			issue.POST("/edit", s.handleEditIssue)
			issue.DELETE("/delete", s.handleDeleteIssue)
		}
	}
}

// handleHealth provides a basic readiness endpoint.
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// tokenRequired resolves the bare token from the authorization header and
// threads the identified user through the request context. All failure
// modes collapse to one status code but keep their distinct messages.
func (s *Server) tokenRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.GetHeader("authorization")
		user, err := s.auth.ResolveToken(c.Request.Context(), token)
		if err != nil {
			s.fail(c, http.StatusBadRequest, tokenFailureMessage(err))
			c.Abort()
			return
		}
		c.Set(userContextKey, user)
		c.Next()
	}
}

func tokenFailureMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissingToken):
		return "Valid JWT token is missing"
	case errors.Is(err, auth.ErrUnknownTokenUser):
		return "Sorry. Wrong auth token. This user does not exist."
	case errors.Is(err, auth.ErrTokenRevoked):
		return "Token revoked."
	case errors.Is(err, auth.ErrSessionInactive):
		return "Token expired."
	default:
		return "Token is invalid"
	}
}

// currentUser returns the user resolved by the token middleware.
func currentUser(c *gin.Context) models.User {
	return c.MustGet(userContextKey).(models.User)
}

// parseWireID converts a string id field from a request payload. The wire
// contract carries ids as strings.
func parseWireID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// fail logs and writes a failure envelope. No internal error detail is
// surfaced to the client.
func (s *Server) fail(c *gin.Context, status int, msg string) {
	s.logger.Debug("request failed", slog.String("path", c.FullPath()), slog.String("msg", msg))
	c.JSON(status, gin.H{"success": false, "msg": msg})
}

// ok writes a success envelope with the operation payload merged in.
func ok(c *gin.Context, payload gin.H) {
	body := gin.H{"success": true}
	for k, v := range payload {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}
