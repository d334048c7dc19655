package services

import (
	"context"
	"fmt"
	"time"

	"civicreport/internal/errs"
	"civicreport/internal/models"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// NotificationService creates and persists notification records for one or
// more recipients. Fan-out is per-recipient and at-least-once: records
// already written stay written when a later one fails.
type NotificationService struct {
	userCollection         *mongo.Collection
	notificationCollection *mongo.Collection
}

func NewNotificationService(userCollection, notificationCollection *mongo.Collection) *NotificationService {
	return &NotificationService{
		userCollection:         userCollection,
		notificationCollection: notificationCollection,
	}
}

// RecipientSelector resolves to the set of users a dispatch targets.
type RecipientSelector struct {
	userID *primitive.ObjectID
	email  string
	role   models.Role
	all    bool
}

// Single targets one user by id.
func Single(userID primitive.ObjectID) RecipientSelector {
	return RecipientSelector{userID: &userID}
}

// SingleEmail targets one user by email address.
func SingleEmail(email string) RecipientSelector {
	return RecipientSelector{email: email}
}

// ByRole targets every user holding the given role.
func ByRole(role models.Role) RecipientSelector {
	return RecipientSelector{role: role}
}

// All targets every user.
func All() RecipientSelector {
	return RecipientSelector{all: true}
}

func (s RecipientSelector) filter() bson.M {
	switch {
	case s.userID != nil:
		return bson.M{"_id": *s.userID}
	case s.email != "":
		return bson.M{"email": s.email}
	case s.all:
		return bson.M{}
	default:
		return bson.M{"role": s.role}
	}
}

func (s RecipientSelector) describe() string {
	switch {
	case s.userID != nil:
		return "user " + s.userID.Hex()
	case s.email != "":
		return "user " + s.email
	case s.all:
		return "all users"
	default:
		return "role " + string(s.role)
	}
}

// DispatchResult is the explicit partial-failure contract of a fan-out:
// how many records were created, and which recipients failed.
type DispatchResult struct {
	Created int                  `json:"created"`
	Failed  []primitive.ObjectID `json:"failed,omitempty"`
}

// Dispatch resolves the selector and writes one notification per recipient,
// appending each new id to the recipient's notification list. An empty
// recipient set is a not-found error and creates nothing. Individual write
// failures do not stop the loop; they are reported in the result.
func (ns *NotificationService) Dispatch(
	ctx context.Context,
	selector RecipientSelector,
	notificationType models.NotificationType,
	title, message string,
	relatedReport, relatedDepartment *primitive.ObjectID,
) (*DispatchResult, error) {
	if title == "" || message == "" {
		return nil, errs.Validation("notification title and message are required")
	}
	if !notificationType.IsValid() {
		return nil, errs.Validation("invalid notification type %q", notificationType)
	}

	cursor, err := ns.userCollection.Find(ctx, selector.filter())
	if err != nil {
		return nil, errs.Internal("resolving notification recipients", err)
	}
	defer cursor.Close(ctx)

	var recipients []models.User
	if err := cursor.All(ctx, &recipients); err != nil {
		return nil, errs.Internal("decoding notification recipients", err)
	}

	if len(recipients) == 0 {
		return nil, errs.NotFound("no recipients found for %s", selector.describe())
	}

	result := &DispatchResult{}
	for _, recipient := range recipients {
		notification := models.Notification{
			Recipient:         recipient.ID,
			Type:              notificationType,
			Title:             title,
			Message:           message,
			RelatedReport:     relatedReport,
			RelatedDepartment: relatedDepartment,
			Read:              false,
			CreatedAt:         time.Now().UTC(),
		}

		inserted, err := ns.notificationCollection.InsertOne(ctx, notification)
		if err != nil {
			logrus.WithError(err).WithField("recipient", recipient.ID.Hex()).
				Warn("failed to create notification")
			result.Failed = append(result.Failed, recipient.ID)
			continue
		}

		notificationID := inserted.InsertedID.(primitive.ObjectID)
		if _, err := ns.userCollection.UpdateOne(ctx,
			bson.M{"_id": recipient.ID},
			bson.M{"$push": bson.M{"notifications": notificationID}},
		); err != nil {
			// The record exists; only the back-reference is missing.
			logrus.WithError(err).WithField("recipient", recipient.ID.Hex()).
				Warn("failed to link notification to user")
		}

		result.Created++
	}

	return result, nil
}

// Lifecycle wrappers. Each binds a (type, title, message) template to one
// report event; they are sugar over Dispatch.

func (ns *NotificationService) NotifyReportStatusChange(ctx context.Context, report *models.Report, oldStatus models.ReportStatus) (*DispatchResult, error) {
	title := fmt.Sprintf("Report Status Updated: %s", report.Status.Display())
	message := fmt.Sprintf("Your report %q has been updated from %s to %s.",
		report.Title, oldStatus.Display(), report.Status.Display())

	return ns.Dispatch(ctx, Single(report.SubmittedBy),
		models.NotificationReportStatusChange, title, message, &report.ID, nil)
}

func (ns *NotificationService) NotifyReportAssigned(ctx context.Context, report *models.Report, dept *models.Department) (*DispatchResult, error) {
	title := "Report Assigned"
	message := fmt.Sprintf("Your report %q has been assigned to the %s department.",
		report.Title, dept.Name)

	return ns.Dispatch(ctx, Single(report.SubmittedBy),
		models.NotificationReportAssigned, title, message, &report.ID, &dept.ID)
}

func (ns *NotificationService) NotifyReportResolved(ctx context.Context, report *models.Report) (*DispatchResult, error) {
	title := "Report Resolved"
	message := fmt.Sprintf("Your report %q has been marked as resolved.", report.Title)

	return ns.Dispatch(ctx, Single(report.SubmittedBy),
		models.NotificationReportResolved, title, message, &report.ID, nil)
}

func (ns *NotificationService) NotifyAdminsNewReport(ctx context.Context, report *models.Report, submitterName string) (*DispatchResult, error) {
	title := "New Report Submitted"
	message := fmt.Sprintf("%s has submitted a new report: %q.", submitterName, report.Title)

	return ns.Dispatch(ctx, ByRole(models.RoleAdmin),
		models.NotificationAdminAlert, title, message, &report.ID, nil)
}

// NotifyDepartmentSupervisors tells a department's supervisors that a report
// landed on their desk.
func (ns *NotificationService) NotifyDepartmentSupervisors(ctx context.Context, report *models.Report, dept *models.Department) (*DispatchResult, error) {
	if len(dept.Supervisors) == 0 {
		return &DispatchResult{}, nil
	}

	title := "Report Assigned to Your Department"
	message := fmt.Sprintf("Report %q (%s) has been assigned to %s.",
		report.Title, report.Category, dept.Name)

	total := &DispatchResult{}
	for _, supervisorID := range dept.Supervisors {
		res, err := ns.Dispatch(ctx, Single(supervisorID),
			models.NotificationReportAssigned, title, message, &report.ID, &dept.ID)
		if err != nil {
			// Supervisor references can go stale; skip and keep going.
			logrus.WithError(err).WithField("supervisor", supervisorID.Hex()).
				Warn("failed to notify department supervisor")
			total.Failed = append(total.Failed, supervisorID)
			continue
		}
		total.Created += res.Created
		total.Failed = append(total.Failed, res.Failed...)
	}
	return total, nil
}
