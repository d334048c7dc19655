package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationReportStatusChange NotificationType = "report_status_change"
	NotificationReportAssigned     NotificationType = "report_assigned"
	NotificationReportResolved     NotificationType = "report_resolved"
	NotificationCommentAdded       NotificationType = "comment_added"
	NotificationAdminAlert         NotificationType = "admin_alert"
)

func (t NotificationType) IsValid() bool {
	switch t {
	case NotificationReportStatusChange, NotificationReportAssigned,
		NotificationReportResolved, NotificationCommentAdded,
		NotificationAdminAlert:
		return true
	}
	return false
}

type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Recipient primitive.ObjectID `bson:"recipient" json:"recipient"`
	Type      NotificationType   `bson:"type" json:"type"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`

	RelatedReport     *primitive.ObjectID `bson:"related_report,omitempty" json:"related_report,omitempty"`
	RelatedDepartment *primitive.ObjectID `bson:"related_department,omitempty" json:"related_department,omitempty"`

	// ReadAt is set exactly when Read first flips to true.
	Read      bool       `bson:"read" json:"read"`
	ReadAt    *time.Time `bson:"read_at,omitempty" json:"read_at,omitempty"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
}
