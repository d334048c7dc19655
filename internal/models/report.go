package models

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReportCategory string

const (
	CategoryPothole     ReportCategory = "pothole"
	CategoryStreetlight ReportCategory = "streetlight"
	CategoryTrash       ReportCategory = "trash"
	CategoryGraffiti    ReportCategory = "graffiti"
	CategoryWaterLeak   ReportCategory = "water_leak"
	CategoryOther       ReportCategory = "other"
)

func (c ReportCategory) IsValid() bool {
	switch c {
	case CategoryPothole, CategoryStreetlight, CategoryTrash,
		CategoryGraffiti, CategoryWaterLeak, CategoryOther:
		return true
	}
	return false
}

func AllCategories() []ReportCategory {
	return []ReportCategory{
		CategoryPothole, CategoryStreetlight, CategoryTrash,
		CategoryGraffiti, CategoryWaterLeak, CategoryOther,
	}
}

type ReportStatus string

const (
	StatusSubmitted  ReportStatus = "submitted"
	StatusInReview   ReportStatus = "in_review"
	StatusAssigned   ReportStatus = "assigned"
	StatusInProgress ReportStatus = "in_progress"
	StatusResolved   ReportStatus = "resolved"
	StatusRejected   ReportStatus = "rejected"
)

func (s ReportStatus) IsValid() bool {
	switch s {
	case StatusSubmitted, StatusInReview, StatusAssigned,
		StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// statusTransitions is the server-enforced lifecycle graph. Rejection is
// reachable from every non-terminal state; resolved and rejected are
// terminal.
var statusTransitions = map[ReportStatus][]ReportStatus{
	StatusSubmitted:  {StatusInReview, StatusAssigned, StatusRejected},
	StatusInReview:   {StatusAssigned, StatusRejected},
	StatusAssigned:   {StatusInProgress, StatusRejected},
	StatusInProgress: {StatusResolved, StatusRejected},
	StatusResolved:   {},
	StatusRejected:   {},
}

// CanTransitionTo reports whether the lifecycle graph permits moving from s
// to next.
func (s ReportStatus) CanTransitionTo(next ReportStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ReportStatus) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

// AllowedTransitions returns the statuses reachable from s in one step.
func (s ReportStatus) AllowedTransitions() []ReportStatus {
	out := make([]ReportStatus, len(statusTransitions[s]))
	copy(out, statusTransitions[s])
	return out
}

// Display renders a status for notification text, e.g. "in_review" ->
// "In Review".
func (s ReportStatus) Display() string {
	out := []byte(s)
	upper := true
	for i, c := range out {
		switch {
		case c == '_':
			out[i] = ' '
			upper = true
		case upper && c >= 'a' && c <= 'z':
			out[i] = c - 'a' + 'A'
			upper = false
		default:
			upper = false
		}
	}
	return string(out)
}

type ReportPriority string

const (
	PriorityLow    ReportPriority = "low"
	PriorityMedium ReportPriority = "medium"
	PriorityHigh   ReportPriority = "high"
	PriorityUrgent ReportPriority = "urgent"
)

func (p ReportPriority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// StatusChange is one append-only entry in a report's status history.
type StatusChange struct {
	Status    ReportStatus `bson:"status" json:"status"`
	Timestamp time.Time    `bson:"timestamp" json:"timestamp"`
	Comment   string       `bson:"comment,omitempty" json:"comment,omitempty"`
}

// Assignment records the department a report was routed to.
type Assignment struct {
	Department primitive.ObjectID `bson:"department" json:"department"`
	AssignedAt time.Time          `bson:"assigned_at" json:"assigned_at"`
}

type Report struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Category    ReportCategory     `bson:"category" json:"category"`
	Status      ReportStatus       `bson:"status" json:"status"`
	Priority    ReportPriority     `bson:"priority" json:"priority"`

	Location Location `bson:"location" json:"location"`
	Address  string   `bson:"address" json:"address"`

	Images []string `bson:"images" json:"images"`

	SubmittedBy primitive.ObjectID `bson:"submitted_by" json:"submitted_by"`
	AssignedTo  *Assignment        `bson:"assigned_to,omitempty" json:"assigned_to,omitempty"`

	StatusHistory []StatusChange `bson:"status_history" json:"status_history"`

	ResolvedAt *time.Time `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	CreatedAt  time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `bson:"updated_at" json:"updated_at"`
}

// NewReport builds a report in its initial state with the single mandatory
// history entry.
func NewReport(submitter primitive.ObjectID, title, description string, category ReportCategory, priority ReportPriority, loc Location, address string, images []string) *Report {
	now := time.Now().UTC()
	if images == nil {
		images = []string{}
	}
	return &Report{
		Title:       title,
		Description: description,
		Category:    category,
		Status:      StatusSubmitted,
		Priority:    priority,
		Location:    loc,
		Address:     address,
		Images:      images,
		SubmittedBy: submitter,
		StatusHistory: []StatusChange{{
			Status:    StatusSubmitted,
			Timestamp: now,
			Comment:   "Report submitted",
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ApplyStatus validates the transition and mutates the report in memory:
// appends a history entry, updates Status/UpdatedAt, and stamps ResolvedAt
// when entering resolved (each resolution overwrites the previous stamp).
// Returns false with no mutation when the change is a no-op (same status,
// empty comment).
func (r *Report) ApplyStatus(next ReportStatus, comment string, now time.Time) (bool, error) {
	if !next.IsValid() {
		return false, fmt.Errorf("invalid status %q", next)
	}
	if next == r.Status {
		if comment == "" {
			return false, nil
		}
		// Same status with an explicit comment still gets a history entry.
	} else if !r.Status.CanTransitionTo(next) {
		return false, fmt.Errorf("cannot transition report from %q to %q", r.Status, next)
	}

	if comment == "" {
		comment = "Status updated to " + string(next)
	}
	r.StatusHistory = append(r.StatusHistory, StatusChange{
		Status:    next,
		Timestamp: now,
		Comment:   comment,
	})
	r.Status = next
	r.UpdatedAt = now
	if next == StatusResolved {
		resolved := now
		r.ResolvedAt = &resolved
	}
	return true, nil
}

// Assign routes the report to a department. The status change itself goes
// through ApplyStatus.
func (r *Report) Assign(department primitive.ObjectID, now time.Time) {
	r.AssignedTo = &Assignment{Department: department, AssignedAt: now}
	r.UpdatedAt = now
}

func (r *Report) IsResolved() bool {
	return r.Status == StatusResolved
}

// CurrentHistoryEntry returns the newest history entry. Its status always
// matches Report.Status.
func (r *Report) CurrentHistoryEntry() *StatusChange {
	if len(r.StatusHistory) == 0 {
		return nil
	}
	return &r.StatusHistory[len(r.StatusHistory)-1]
}

// ResolutionHours is the age of the report at resolution time, in hours.
func (r *Report) ResolutionHours() float64 {
	if r.ResolvedAt == nil {
		return 0
	}
	return r.ResolvedAt.Sub(r.CreatedAt).Hours()
}
