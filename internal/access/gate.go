// Package access is the role/ownership gate applied before mutating
// operations. Decisions are pure allow/deny; callers turn a deny into an
// authorization failure.
package access

import (
	"civicreport/internal/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Action string

const (
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Actor is the authenticated principal a request runs as.
type Actor struct {
	ID   primitive.ObjectID
	Role models.Role
}

func (a Actor) IsAdmin() bool {
	return a.Role.IsAdmin()
}

// CanAccessReport: anyone may read; only the submitter or an admin may
// update or delete.
func CanAccessReport(actor Actor, report *models.Report, action Action) bool {
	switch action {
	case ActionRead:
		return true
	case ActionUpdate, ActionDelete:
		return actor.IsAdmin() || actor.ID == report.SubmittedBy
	}
	return false
}

// CanAccessDepartment: active departments are publicly readable, inactive
// ones only by admins; all mutations are admin-only.
func CanAccessDepartment(actor Actor, dept *models.Department, action Action) bool {
	switch action {
	case ActionRead:
		return dept.Active || actor.IsAdmin()
	case ActionUpdate, ActionDelete:
		return actor.IsAdmin()
	}
	return false
}

// CanAccessNotification: only the recipient or an admin, for every action.
// The sole permitted update is flipping the read flag, which the handler
// enforces.
func CanAccessNotification(actor Actor, n *models.Notification, action Action) bool {
	switch action {
	case ActionRead, ActionUpdate, ActionDelete:
		return actor.IsAdmin() || actor.ID == n.Recipient
	}
	return false
}

// CanListUsers: user listings and platform stats are admin-only.
func CanListUsers(actor Actor) bool {
	return actor.IsAdmin()
}

// CanReassignDepartment: only admins may change a report's assigned
// department.
func CanReassignDepartment(actor Actor) bool {
	return actor.IsAdmin()
}
