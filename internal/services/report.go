package services

import (
	"context"
	"math"
	"strings"
	"time"

	"civicreport/internal/access"
	"civicreport/internal/errs"
	"civicreport/internal/models"
	"civicreport/internal/utils"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ReportService owns the report lifecycle: creation, the status state
// machine, department assignment, field updates and deletion, plus the
// read-side queries (filtered listing, nearby search).
//
// Writes are last-write-wins: concurrent updates to the same report are not
// serialized beyond what single-document updates give us.
type ReportService struct {
	reportCollection     *mongo.Collection
	departmentCollection *mongo.Collection
	userCollection       *mongo.Collection
	notifications        *NotificationService
	geocoder             *GeocodeService
}

func NewReportService(db *mongo.Database, notifications *NotificationService, geocoder *GeocodeService) *ReportService {
	return &ReportService{
		reportCollection:     db.Collection("reports"),
		departmentCollection: db.Collection("departments"),
		userCollection:       db.Collection("users"),
		notifications:        notifications,
		geocoder:             geocoder,
	}
}

// CreateReportInput is the validated payload for a new report.
type CreateReportInput struct {
	Title       string
	Description string
	Category    models.ReportCategory
	Priority    models.ReportPriority
	Latitude    float64
	Longitude   float64
	Address     string
	Images      []string
}

func (in *CreateReportInput) validate() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)

	if in.Title == "" {
		return errs.Validation("title is required")
	}
	if len(in.Title) > 200 {
		return errs.Validation("title must be at most 200 characters")
	}
	if in.Description == "" {
		return errs.Validation("description is required")
	}
	if !in.Category.IsValid() {
		return errs.Validation("invalid category %q", in.Category)
	}
	if in.Priority == "" {
		in.Priority = models.PriorityMedium
	}
	if !in.Priority.IsValid() {
		return errs.Validation("invalid priority %q", in.Priority)
	}
	if !utils.ValidCoordinates(in.Latitude, in.Longitude) {
		return errs.Validation("coordinates out of range")
	}
	return nil
}

// Create persists a new report for the actor and fans an alert out to
// admins. The admin alert is best-effort: its failure never fails the
// creation.
func (s *ReportService) Create(ctx context.Context, actor access.Actor, in CreateReportInput) (*models.Report, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	if in.Address == "" && s.geocoder != nil {
		if addr, err := s.geocoder.ReverseGeocode(ctx, in.Latitude, in.Longitude); err == nil {
			in.Address = addr
		} else {
			logrus.WithError(err).Debug("reverse geocoding failed")
		}
	}

	report := models.NewReport(actor.ID, in.Title, in.Description, in.Category,
		in.Priority, models.NewPoint(in.Longitude, in.Latitude), in.Address, in.Images)

	result, err := s.reportCollection.InsertOne(ctx, report)
	if err != nil {
		return nil, errs.Internal("creating report", err)
	}
	report.ID = result.InsertedID.(primitive.ObjectID)

	var submitter models.User
	submitterName := "A citizen"
	if err := s.userCollection.FindOne(ctx, bson.M{"_id": actor.ID}).Decode(&submitter); err == nil {
		submitterName = submitter.Name
	}

	if _, err := s.notifications.NotifyAdminsNewReport(ctx, report, submitterName); err != nil {
		logrus.WithError(err).WithField("report", report.ID.Hex()).
			Warn("failed to notify admins of new report")
	}

	return report, nil
}

// GetByID fetches one report. Reads are open to any authenticated user.
func (s *ReportService) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	var report models.Report
	err := s.reportCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&report)
	if err == mongo.ErrNoDocuments {
		return nil, errs.NotFound("report not found")
	}
	if err != nil {
		return nil, errs.Internal("fetching report", err)
	}
	return &report, nil
}

// UpdateStatus moves a report along the lifecycle graph and appends the
// history entry. Only the submitter or an admin may do this; the transition
// itself is validated by the state machine regardless of role. Notifying the
// submitter is best-effort.
func (s *ReportService) UpdateStatus(ctx context.Context, actor access.Actor, reportID primitive.ObjectID, next models.ReportStatus, comment string) (*models.Report, error) {
	report, err := s.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !access.CanAccessReport(actor, report, access.ActionUpdate) {
		return nil, errs.Forbidden("you do not have permission to update this report")
	}

	oldStatus := report.Status
	changed, err := report.ApplyStatus(next, comment, time.Now().UTC())
	if err != nil {
		return nil, errs.Validation("%s", err.Error())
	}
	if !changed {
		return report, nil
	}

	update := bson.M{
		"$set": bson.M{
			"status":     report.Status,
			"updated_at": report.UpdatedAt,
		},
		"$push": bson.M{"status_history": *report.CurrentHistoryEntry()},
	}
	if report.Status == models.StatusResolved {
		update["$set"].(bson.M)["resolved_at"] = *report.ResolvedAt
	}

	if _, err := s.reportCollection.UpdateOne(ctx, bson.M{"_id": reportID}, update); err != nil {
		return nil, errs.Internal("updating report status", err)
	}

	if oldStatus != report.Status {
		s.notifyStatusChange(ctx, report, oldStatus)
	}

	return report, nil
}

func (s *ReportService) notifyStatusChange(ctx context.Context, report *models.Report, oldStatus models.ReportStatus) {
	var err error
	if report.Status == models.StatusResolved {
		_, err = s.notifications.NotifyReportResolved(ctx, report)
	} else {
		_, err = s.notifications.NotifyReportStatusChange(ctx, report, oldStatus)
	}
	if err != nil {
		logrus.WithError(err).WithField("report", report.ID.Hex()).
			Warn("failed to notify submitter of status change")
	}
}

// AssignDepartment routes a report to a department, moving it to the
// assigned status. Admin-only.
func (s *ReportService) AssignDepartment(ctx context.Context, actor access.Actor, reportID, departmentID primitive.ObjectID) (*models.Report, error) {
	if !access.CanReassignDepartment(actor) {
		return nil, errs.Forbidden("only administrators can assign reports to departments")
	}

	report, err := s.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	var dept models.Department
	err = s.departmentCollection.FindOne(ctx, bson.M{"_id": departmentID}).Decode(&dept)
	if err == mongo.ErrNoDocuments {
		return nil, errs.NotFound("department not found")
	}
	if err != nil {
		return nil, errs.Internal("fetching department", err)
	}
	if !dept.Active {
		return nil, errs.Validation("cannot assign reports to an inactive department")
	}

	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{
		"assigned_to": models.Assignment{Department: departmentID, AssignedAt: now},
		"updated_at":  now,
	}}

	// Reassignment of an already-assigned report keeps its current status;
	// first assignment moves it along the lifecycle.
	if report.Status.CanTransitionTo(models.StatusAssigned) {
		if _, err := report.ApplyStatus(models.StatusAssigned, "Assigned to "+dept.Name, now); err == nil {
			update["$set"].(bson.M)["status"] = report.Status
			update["$push"] = bson.M{"status_history": *report.CurrentHistoryEntry()}
		}
	}
	report.Assign(departmentID, now)

	if _, err := s.reportCollection.UpdateOne(ctx, bson.M{"_id": reportID}, update); err != nil {
		return nil, errs.Internal("assigning report", err)
	}

	if _, err := s.notifications.NotifyReportAssigned(ctx, report, &dept); err != nil {
		logrus.WithError(err).WithField("report", report.ID.Hex()).
			Warn("failed to notify submitter of assignment")
	}
	if _, err := s.notifications.NotifyDepartmentSupervisors(ctx, report, &dept); err != nil {
		logrus.WithError(err).WithField("department", dept.ID.Hex()).
			Warn("failed to notify department supervisors")
	}

	return report, nil
}

// UpdateFieldsInput carries the mutable descriptive fields. Nil means
// "leave unchanged".
type UpdateFieldsInput struct {
	Title       *string
	Description *string
	Category    *models.ReportCategory
	Priority    *models.ReportPriority
	Address     *string
	Images      []string
}

// UpdateFields edits a report's descriptive fields. Status and assignment
// are excluded on purpose; they have their own operations.
func (s *ReportService) UpdateFields(ctx context.Context, actor access.Actor, reportID primitive.ObjectID, in UpdateFieldsInput) (*models.Report, error) {
	report, err := s.GetByID(ctx, reportID)
	if err != nil {
		return nil, err
	}
	if !access.CanAccessReport(actor, report, access.ActionUpdate) {
		return nil, errs.Forbidden("you do not have permission to update this report")
	}

	set := bson.M{}
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, errs.Validation("title cannot be empty")
		}
		if len(title) > 200 {
			return nil, errs.Validation("title must be at most 200 characters")
		}
		set["title"] = title
		report.Title = title
	}
	if in.Description != nil {
		desc := strings.TrimSpace(*in.Description)
		if desc == "" {
			return nil, errs.Validation("description cannot be empty")
		}
		set["description"] = desc
		report.Description = desc
	}
	if in.Category != nil {
		if !in.Category.IsValid() {
			return nil, errs.Validation("invalid category %q", *in.Category)
		}
		set["category"] = *in.Category
		report.Category = *in.Category
	}
	if in.Priority != nil {
		if !in.Priority.IsValid() {
			return nil, errs.Validation("invalid priority %q", *in.Priority)
		}
		set["priority"] = *in.Priority
		report.Priority = *in.Priority
	}
	if in.Address != nil {
		set["address"] = *in.Address
		report.Address = *in.Address
	}
	if in.Images != nil {
		set["images"] = in.Images
		report.Images = in.Images
	}

	if len(set) == 0 {
		return report, nil
	}
	now := time.Now().UTC()
	set["updated_at"] = now
	report.UpdatedAt = now

	if _, err := s.reportCollection.UpdateOne(ctx, bson.M{"_id": reportID}, bson.M{"$set": set}); err != nil {
		return nil, errs.Internal("updating report", err)
	}
	return report, nil
}

// Delete removes a report. Submitter or admin only.
func (s *ReportService) Delete(ctx context.Context, actor access.Actor, reportID primitive.ObjectID) error {
	report, err := s.GetByID(ctx, reportID)
	if err != nil {
		return err
	}
	if !access.CanAccessReport(actor, report, access.ActionDelete) {
		return errs.Forbidden("you do not have permission to delete this report")
	}

	if _, err := s.reportCollection.DeleteOne(ctx, bson.M{"_id": reportID}); err != nil {
		return errs.Internal("deleting report", err)
	}
	return nil
}

// ListFilter narrows a report listing. Zero values mean "no constraint".
type ListFilter struct {
	Status      models.ReportStatus
	Category    models.ReportCategory
	SubmittedBy *primitive.ObjectID
	Search      string
}

// Page is 1-based; Limit is clamped to [1, maxPageSize].
type Page struct {
	Number int
	Limit  int
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (p Page) normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageSize
	}
	if p.Limit > maxPageSize {
		p.Limit = maxPageSize
	}
	return p
}

// ReportPage is one page of a listing plus its pagination envelope.
type ReportPage struct {
	Reports    []models.Report `json:"reports"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"total_pages"`
}

func (f ListFilter) query() (bson.M, error) {
	filter := bson.M{}
	if f.Status != "" {
		if !f.Status.IsValid() {
			return nil, errs.Validation("invalid status %q", f.Status)
		}
		filter["status"] = f.Status
	}
	if f.Category != "" {
		if !f.Category.IsValid() {
			return nil, errs.Validation("invalid category %q", f.Category)
		}
		filter["category"] = f.Category
	}
	if f.SubmittedBy != nil {
		filter["submitted_by"] = *f.SubmittedBy
	}
	if f.Search != "" {
		pattern := primitive.Regex{Pattern: escapeRegex(f.Search), Options: "i"}
		filter["$or"] = []bson.M{
			{"title": pattern},
			{"description": pattern},
		}
	}
	return filter, nil
}

// List returns a filtered, newest-first page of reports.
func (s *ReportService) List(ctx context.Context, filter ListFilter, page Page) (*ReportPage, error) {
	query, err := filter.query()
	if err != nil {
		return nil, err
	}
	page = page.normalize()

	total, err := s.reportCollection.CountDocuments(ctx, query)
	if err != nil {
		return nil, errs.Internal("counting reports", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page.Number - 1) * page.Limit)).
		SetLimit(int64(page.Limit))

	cursor, err := s.reportCollection.Find(ctx, query, opts)
	if err != nil {
		return nil, errs.Internal("listing reports", err)
	}
	defer cursor.Close(ctx)

	reports := []models.Report{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, errs.Internal("decoding reports", err)
	}

	return &ReportPage{
		Reports:    reports,
		Total:      total,
		Page:       page.Number,
		Limit:      page.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(page.Limit))),
	}, nil
}

const nearbyLimit = 20

// Nearby returns up to 20 reports within radiusMeters of the point, nearest
// first. Backed by the 2dsphere index on location.
func (s *ReportService) Nearby(ctx context.Context, lat, lng, radiusMeters float64) ([]models.Report, error) {
	if !utils.ValidCoordinates(lat, lng) {
		return nil, errs.Validation("coordinates out of range")
	}
	if radiusMeters <= 0 {
		return nil, errs.Validation("radius must be positive")
	}

	query := bson.M{
		"location": bson.M{
			"$near": bson.M{
				"$geometry":    models.NewPoint(lng, lat),
				"$maxDistance": radiusMeters,
			},
		},
	}

	cursor, err := s.reportCollection.Find(ctx, query, options.Find().SetLimit(nearbyLimit))
	if err != nil {
		return nil, errs.Internal("querying nearby reports", err)
	}
	defer cursor.Close(ctx)

	reports := []models.Report{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, errs.Internal("decoding nearby reports", err)
	}
	return reports, nil
}

// escapeRegex neutralizes regex metacharacters in user-supplied search text.
func escapeRegex(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`\.+*?()|[]{}^$`, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
