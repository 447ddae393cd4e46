package dashboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/zulandar/taskboard/internal/board"
	"github.com/zulandar/taskboard/internal/i18n"
)

// Default stream intervals.
const (
	defaultPollInterval      = 3 * time.Second
	defaultHeartbeatInterval = 15 * time.Second
)

// RevisionFeed reports the lock version of every issue in a project.
type RevisionFeed interface {
	Revisions(ctx context.Context, projectID uint) (map[uint]int, error)
}

// changeEvent tells a board client that a card it may be showing is stale.
type changeEvent struct {
	ID          uint `json:"id"`
	LockVersion int  `json:"lock_version"`
	Removed     bool `json:"removed,omitempty"`
}

// handleEvents streams issue changes of the project as server-sent events so
// open boards can refresh before their next move is rejected as stale.
func (s *server) handleEvents(c *gin.Context) {
	if _, ok := s.Boards.Registry().Lookup(board.Kind(c.Param("kind"))); !ok {
		s.fail(c, http.StatusNotFound, i18n.NotFound)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	writeSSE(c.Writer, "connected", map[string]string{"type": "connected"})
	c.Writer.Flush()

	// Without a feed the stream only announces itself.
	if s.Revisions == nil {
		return
	}

	ctx := c.Request.Context()
	project := projectOf(c)
	seen, err := s.Revisions.Revisions(ctx, project.ID)
	if err != nil {
		log.WithError(err).WithField("project", project.Identifier).Warn("event stream: initial revisions")
		return
	}

	ticker := time.NewTicker(orDefault(s.PollInterval, defaultPollInterval))
	heartbeat := time.NewTicker(orDefault(s.HeartbeatInterval, defaultHeartbeatInterval))
	defer ticker.Stop()
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-heartbeat.C:
			writeSSE(c.Writer, "heartbeat", map[string]string{
				"timestamp": time.Now().UTC().Format(time.RFC3339),
			})
			c.Writer.Flush()
		case <-ticker.C:
			current, err := s.Revisions.Revisions(ctx, project.ID)
			if err != nil {
				log.WithError(err).WithField("project", project.Identifier).Warn("event stream: poll revisions")
				continue
			}
			changes := diffRevisions(seen, current)
			seen = current
			if len(changes) == 0 {
				continue
			}
			for _, evt := range changes {
				writeSSE(c.Writer, "issue", evt)
			}
			c.Writer.Flush()
		}
	}
}

// diffRevisions returns the issues added, bumped or removed between two
// snapshots, ordered by id.
func diffRevisions(before, after map[uint]int) []changeEvent {
	var changes []changeEvent
	for id, v := range after {
		if old, ok := before[id]; !ok || old != v {
			changes = append(changes, changeEvent{ID: id, LockVersion: v})
		}
	}
	for id, v := range before {
		if _, ok := after[id]; !ok {
			changes = append(changes, changeEvent{ID: id, LockVersion: v, Removed: true})
		}
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].ID < changes[j].ID })
	return changes
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}

// writeSSE writes a single SSE event to the writer.
func writeSSE(w io.Writer, event string, data any) {
	payload, err := sonic.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}
