package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/zulandar/taskboard/internal/access"
	"github.com/zulandar/taskboard/internal/board"
	"github.com/zulandar/taskboard/internal/guard"
	"github.com/zulandar/taskboard/internal/i18n"
	"github.com/zulandar/taskboard/internal/models"
)

// UserHeader carries the login of the authenticated user, set by the
// fronting proxy.
const UserHeader = "X-Remote-User"

// RequestIDHeader echoes the per-request id.
const RequestIDHeader = "X-Request-Id"

// Context keys.
const (
	keyRequestID = "request_id"
	keyLocale    = "locale"
	keyUser      = "user"
	keyProject   = "project"
	keyBoard     = "board"
	keyParams    = "params"
)

// ProjectFinder resolves the :project route parameter.
type ProjectFinder interface {
	Find(ctx context.Context, idOrIdentifier string) (*models.Project, error)
}

// UserFinder resolves the login from UserHeader.
type UserFinder interface {
	FindByLogin(ctx context.Context, login string) (*models.User, error)
}

// Authorizer answers permission checks.
type Authorizer interface {
	Allowed(ctx context.Context, user *models.User, permission string, project *models.Project) bool
}

// Deps are the collaborators the router dispatches to.
type Deps struct {
	Projects    ProjectFinder
	Users       UserFinder
	Auth        Authorizer
	Issues      guard.Finder[*models.Issue]
	Boards      *board.Session
	Catalog     *i18n.Catalog
	DefaultKind board.Kind
	BasePath    string

	// Revisions feeds the event stream; nil disables change events.
	Revisions         RevisionFeed
	PollInterval      time.Duration
	HeartbeatInterval time.Duration
}

type server struct {
	Deps
	guard *guard.Guard[*models.Issue]
}

// NewRouter builds the gin engine serving boards under
// {BasePath}/projects/:project/rdb.
func NewRouter(deps Deps) *gin.Engine {
	s := &server{Deps: deps, guard: guard.New(deps.Issues)}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(), s.localize, s.currentUser)

	rdb := router.Group(deps.BasePath+"/projects/:project/rdb", s.findProject, s.authorize(access.PermissionViewDashboard))
	rdb.GET("", s.handleRedirect)
	rdb.GET("/:kind", s.setupBoard, s.handleIndex)
	rdb.GET("/:kind/filter", s.setupBoard, s.handleFilter)
	rdb.POST("/:kind/filter", s.setupBoard, s.handleFilter)
	rdb.POST("/:kind/move", s.authorize(access.PermissionEditIssues), s.setupBoard, s.handleMove)
	rdb.POST("/:kind/update", s.authorize(access.PermissionEditIssues), s.setupBoard, s.handleUpdate)
	rdb.GET("/:kind/events", s.handleEvents)

	router.NoRoute(func(c *gin.Context) {
		s.fail(c, http.StatusNotFound, i18n.NotFound)
	})
	return router
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(keyRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		entry := log.WithFields(log.Fields{
			"request_id": c.GetString(keyRequestID),
			"method":     c.Request.Method,
			"path":       c.Request.URL.Path,
			"status":     c.Writer.Status(),
			"latency":    time.Since(start),
		})
		if len(c.Errors) > 0 {
			entry.WithError(c.Errors.Last()).Error("request failed")
			return
		}
		entry.Info("request")
	}
}

func (s *server) localize(c *gin.Context) {
	c.Set(keyLocale, s.Catalog.Negotiate(c.GetHeader("Accept-Language")))
	c.Next()
}

// currentUser maps UserHeader to a user. Unknown logins browse as the
// anonymous user and are rejected by authorize.
func (s *server) currentUser(c *gin.Context) {
	user, err := s.Users.FindByLogin(c.Request.Context(), c.GetHeader(UserHeader))
	if errors.Is(err, access.ErrUserNotFound) {
		user = &models.User{}
	} else if err != nil {
		s.abort(c, err)
		return
	}
	c.Set(keyUser, user)
	c.Next()
}

func (s *server) findProject(c *gin.Context) {
	project, err := s.Projects.Find(c.Request.Context(), c.Param("project"))
	if errors.Is(err, access.ErrProjectNotFound) {
		s.fail(c, http.StatusNotFound, i18n.NotFound)
		c.Abort()
		return
	}
	if err != nil {
		s.abort(c, err)
		return
	}
	c.Set(keyProject, project)
	c.Next()
}

func (s *server) authorize(permission string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.Auth.Allowed(c.Request.Context(), userOf(c), permission, projectOf(c)) {
			s.fail(c, http.StatusForbidden, i18n.Forbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// setupBoard resolves the board for :kind and persists its options once the
// rest of the chain has run, whatever the outcome.
func (s *server) setupBoard(c *gin.Context) {
	ctx := c.Request.Context()
	params := requestParams(c)
	scope := board.Scope{Project: projectOf(c), User: userOf(c)}
	b, ok := s.Boards.Resolve(ctx, scope, board.Kind(c.Param("kind")), params)
	if !ok {
		s.fail(c, http.StatusNotFound, i18n.NotFound)
		c.Abort()
		return
	}
	defer s.Boards.Finalize(context.WithoutCancel(ctx), b)

	c.Set(keyBoard, b)
	c.Set(keyParams, params)
	c.Next()
}

func requestParams(c *gin.Context) url.Values {
	if err := c.Request.ParseForm(); err != nil {
		return c.Request.URL.Query()
	}
	return c.Request.Form
}

func userOf(c *gin.Context) *models.User {
	u, _ := c.Get(keyUser)
	user, _ := u.(*models.User)
	return user
}

func projectOf(c *gin.Context) *models.Project {
	p, _ := c.Get(keyProject)
	project, _ := p.(*models.Project)
	return project
}

func boardOf(c *gin.Context) board.Board {
	return c.MustGet(keyBoard).(board.Board)
}

func paramsOf(c *gin.Context) url.Values {
	return c.MustGet(keyParams).(url.Values)
}
