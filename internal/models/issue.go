package models

import "time"

// Issue is the work item shown as a card on boards. LockVersion is bumped on
// every write and guards against lost updates.
type Issue struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	ProjectID      uint   `gorm:"not null;index"`
	Subject        string `gorm:"size:255;not null"`
	Description    string `gorm:"type:text"`
	StatusID       uint   `gorm:"not null;index"`
	Priority       int    `gorm:"default:2"`
	AssignedToID   *uint  `gorm:"index"`
	FixedVersionID *uint  `gorm:"index"`
	DoneRatio      int    `gorm:"default:0"`
	LockVersion    int    `gorm:"not null;default:0"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ClosedAt       *time.Time

	Status       IssueStatus `gorm:"foreignKey:StatusID"`
	AssignedTo   *User       `gorm:"foreignKey:AssignedToID"`
	FixedVersion *Version    `gorm:"foreignKey:FixedVersionID"`
}

// Revision returns the optimistic-locking counter.
func (i *Issue) Revision() int { return i.LockVersion }

// SetRevision pins the optimistic-locking counter.
func (i *Issue) SetRevision(v int) { i.LockVersion = v }

// DisplaySubject is the human readable title used in conflict messages.
func (i *Issue) DisplaySubject() string { return i.Subject }

// IssueStatus is a workflow state; boards render one column per status.
type IssueStatus struct {
	ID       uint   `gorm:"primaryKey;autoIncrement"`
	Name     string `gorm:"size:32;not null;uniqueIndex"`
	Position int    `gorm:"default:1"`
	IsClosed bool   `gorm:"default:false"`
}

// WorkflowTransition allows moving issues from one status to another. A status
// without any outgoing transitions may move anywhere.
type WorkflowTransition struct {
	FromStatusID uint `gorm:"primaryKey"`
	ToStatusID   uint `gorm:"primaryKey"`
}
