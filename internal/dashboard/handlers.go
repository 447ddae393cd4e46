package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/zulandar/taskboard/internal/board"
	"github.com/zulandar/taskboard/internal/guard"
	"github.com/zulandar/taskboard/internal/i18n"
	"github.com/zulandar/taskboard/internal/issue"
	"github.com/zulandar/taskboard/internal/models"
)

// flashResponse is the error fragment returned instead of a board.
type flashResponse struct {
	Error  string      `json:"error"`
	Key    string      `json:"key"`
	Update bool        `json:"update,omitempty"`
	Board  *board.View `json:"board,omitempty"`
}

// actionResponse is returned after a successful move or update.
type actionResponse struct {
	Issue issueState  `json:"issue"`
	Board *board.View `json:"board"`
}

type issueState struct {
	ID             uint  `json:"id"`
	LockVersion    int   `json:"lock_version"`
	StatusID       uint  `json:"status_id"`
	AssignedToID   *uint `json:"assigned_to_id"`
	FixedVersionID *uint `json:"fixed_version_id"`
	DoneRatio      int   `json:"done_ratio"`
}

// handleRedirect sends /rdb to the default board.
func (s *server) handleRedirect(c *gin.Context) {
	target := s.BasePath + "/projects/" + url.PathEscape(c.Param("project")) + "/rdb/" + string(s.DefaultKind)
	c.Redirect(http.StatusFound, target)
}

func (s *server) handleIndex(c *gin.Context) {
	s.render(c, paramsOf(c))
}

func (s *server) handleFilter(c *gin.Context) {
	s.render(c, paramsOf(c))
}

func (s *server) render(c *gin.Context, params url.Values) {
	view, err := s.Boards.Materialize(c.Request.Context(), boardOf(c), params)
	if err != nil {
		s.abort(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *server) handleMove(c *gin.Context) {
	s.apply(c, board.Board.Move)
}

func (s *server) handleUpdate(c *gin.Context) {
	s.apply(c, board.Board.Update)
}

type action func(b board.Board, ctx context.Context, iss *models.Issue, params url.Values) error

// rejection is a flash fragment rendered instead of the action response.
type rejection struct {
	status  int
	key     string
	subject string
}

// apply validates the presented lock version, runs the action and renders
// the refreshed board. The board is built exactly once whatever the outcome;
// every rejection renders a flash fragment carrying it.
func (s *server) apply(c *gin.Context, act action) {
	ctx := c.Request.Context()
	b := boardOf(c)

	iss, rej, err := s.attempt(c, b, act)
	view, buildErr := s.Boards.Materialize(ctx, b, nil)
	if err == nil {
		err = buildErr
	}
	if err != nil {
		s.abort(c, err)
		return
	}
	if rej != nil {
		var params []string
		if rej.subject != "" {
			params = append(params, rej.subject)
		}
		s.flash(c, rej.status, rej.key, view, params...)
		return
	}
	c.JSON(http.StatusOK, actionResponse{
		Issue: issueState{
			ID:             iss.ID,
			LockVersion:    iss.LockVersion,
			StatusID:       iss.StatusID,
			AssignedToID:   iss.AssignedToID,
			FixedVersionID: iss.FixedVersionID,
			DoneRatio:      iss.DoneRatio,
		},
		Board: view,
	})
}

// attempt runs act on the issue named by the request. It returns the written
// issue, or a rejection, or an internal error. Issues of other projects are
// reported as not found.
func (s *server) attempt(c *gin.Context, b board.Board, act action) (*models.Issue, *rejection, error) {
	ctx := c.Request.Context()
	params := paramsOf(c)

	res := s.guard.Validate(ctx, params.Get("issue"), params.Get("lock_version"))
	if (res.Outcome == guard.OK || res.Outcome == guard.Stale) && res.Entity.ProjectID != projectOf(c).ID {
		return nil, &rejection{status: http.StatusNotFound, key: i18n.NotFound}, nil
	}
	switch res.Outcome {
	case guard.OK:
	case guard.Missing:
		return nil, &rejection{status: http.StatusUnprocessableEntity, key: i18n.MissingLockVersion}, nil
	case guard.NotFound:
		return nil, &rejection{status: http.StatusNotFound, key: i18n.NotFound}, nil
	case guard.Stale:
		return nil, &rejection{status: http.StatusConflict, key: i18n.StaleObject, subject: res.Entity.DisplaySubject()}, nil
	default:
		return nil, nil, res.Err()
	}

	iss := res.Entity
	err := act(b, ctx, iss, params)
	switch {
	case err == nil:
		return iss, nil, nil
	case errors.Is(err, issue.ErrStale):
		return nil, &rejection{status: http.StatusConflict, key: i18n.StaleObject, subject: iss.DisplaySubject()}, nil
	case errors.Is(err, issue.ErrNotFound):
		return nil, &rejection{status: http.StatusNotFound, key: i18n.NotFound}, nil
	case errors.Is(err, board.ErrInvalidParam),
		errors.Is(err, issue.ErrInvalidTransition),
		errors.Is(err, issue.ErrInvalidChange):
		log.WithError(err).WithField("request_id", c.GetString(keyRequestID)).Debug("board action rejected")
		return nil, &rejection{status: http.StatusUnprocessableEntity, key: i18n.InvalidMove}, nil
	default:
		return nil, nil, err
	}
}

func (s *server) flash(c *gin.Context, status int, key string, view *board.View, params ...string) {
	log.WithField("request_id", c.GetString(keyRequestID)).Infof("render board flash error: %s", key)
	c.JSON(status, flashResponse{
		Error:  s.Catalog.T(c.GetString(keyLocale), key, params...),
		Key:    key,
		Update: view != nil,
		Board:  view,
	})
}

// fail renders a plain error for not-found and forbidden outcomes.
func (s *server) fail(c *gin.Context, status int, key string) {
	c.JSON(status, gin.H{
		"error": s.Catalog.T(c.GetString(keyLocale), key),
		"key":   key,
	})
}

func (s *server) abort(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
