package board

import (
	"strconv"

	"github.com/zulandar/taskboard/internal/models"
)

// View is the materialized board handed to the renderer.
type View struct {
	Kind    Kind     `json:"kind"`
	Project string   `json:"project"`
	Options Options  `json:"options"`
	Columns []Column `json:"columns"`
	Lanes   []*Lane  `json:"lanes"`
	Total   int      `json:"total"`
}

// Column is a drop target on the board.
type Column struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Closed bool   `json:"closed,omitempty"`
}

// Lane is a horizontal swimlane. Cards are keyed by column ID.
type Lane struct {
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	Cards map[string][]Card `json:"cards"`
}

// Card is one issue on the board. LockVersion is echoed back on move and
// update requests.
type Card struct {
	ID             uint   `json:"id"`
	Subject        string `json:"subject"`
	LockVersion    int    `json:"lock_version"`
	StatusID       uint   `json:"status_id"`
	Status         string `json:"status"`
	AssignedToID   *uint  `json:"assigned_to_id,omitempty"`
	AssignedTo     string `json:"assigned_to,omitempty"`
	FixedVersionID *uint  `json:"fixed_version_id,omitempty"`
	FixedVersion   string `json:"fixed_version,omitempty"`
	DoneRatio      int    `json:"done_ratio"`
	Closed         bool   `json:"closed,omitempty"`
}

// Card returns the card in column columnID of the lane with laneID, if any.
func (v *View) Card(laneID, columnID string, issueID uint) (Card, bool) {
	for _, lane := range v.Lanes {
		if lane.ID != laneID {
			continue
		}
		for _, c := range lane.Cards[columnID] {
			if c.ID == issueID {
				return c, true
			}
		}
	}
	return Card{}, false
}

func newCard(iss models.Issue) Card {
	c := Card{
		ID:             iss.ID,
		Subject:        iss.Subject,
		LockVersion:    iss.LockVersion,
		StatusID:       iss.StatusID,
		Status:         iss.Status.Name,
		AssignedToID:   iss.AssignedToID,
		FixedVersionID: iss.FixedVersionID,
		DoneRatio:      iss.DoneRatio,
		Closed:         iss.Status.IsClosed,
	}
	if iss.AssignedTo != nil {
		c.AssignedTo = iss.AssignedTo.Name
	}
	if iss.FixedVersion != nil {
		c.FixedVersion = iss.FixedVersion.Name
	}
	return c
}

// lanes accumulates swimlanes in insertion order.
type lanes struct {
	list []*Lane
	byID map[string]*Lane
}

func newLanes() *lanes {
	return &lanes{byID: make(map[string]*Lane)}
}

// get returns the lane with id, adding it when missing.
func (l *lanes) get(id, name string) *Lane {
	if lane, ok := l.byID[id]; ok {
		return lane
	}
	lane := &Lane{ID: id, Name: name, Cards: make(map[string][]Card)}
	l.byID[id] = lane
	l.list = append(l.list, lane)
	return lane
}

func idString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
