package services

import (
	"context"

	"civicreport/internal/errs"
	"civicreport/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StatsService computes the admin dashboard aggregates.
type StatsService struct {
	reportCollection *mongo.Collection
	userCollection   *mongo.Collection
}

func NewStatsService(db *mongo.Database) *StatsService {
	return &StatsService{
		reportCollection: db.Collection("reports"),
		userCollection:   db.Collection("users"),
	}
}

type PlatformStats struct {
	TotalReports int64 `json:"total_reports"`
	TotalUsers   int64 `json:"total_users"`

	ByStatus   map[models.ReportStatus]int64   `json:"by_status"`
	ByCategory map[models.ReportCategory]int64 `json:"by_category"`

	// Average hours from submission to resolution, over resolved reports.
	AvgResolutionHours float64 `json:"avg_resolution_hours"`

	RecentReports []models.Report `json:"recent_reports"`
}

func (s *StatsService) Platform(ctx context.Context) (*PlatformStats, error) {
	stats := &PlatformStats{
		ByStatus:   make(map[models.ReportStatus]int64),
		ByCategory: make(map[models.ReportCategory]int64),
	}

	var err error
	if stats.TotalReports, err = s.reportCollection.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, errs.Internal("counting reports", err)
	}
	if stats.TotalUsers, err = s.userCollection.CountDocuments(ctx, bson.M{}); err != nil {
		return nil, errs.Internal("counting users", err)
	}

	if err := s.groupCounts(ctx, "$status", func(key string, count int64) {
		stats.ByStatus[models.ReportStatus(key)] = count
	}); err != nil {
		return nil, err
	}
	if err := s.groupCounts(ctx, "$category", func(key string, count int64) {
		stats.ByCategory[models.ReportCategory(key)] = count
	}); err != nil {
		return nil, err
	}

	if stats.AvgResolutionHours, err = s.avgResolutionHours(ctx); err != nil {
		return nil, err
	}

	recentOpts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(5)
	cursor, err := s.reportCollection.Find(ctx, bson.M{}, recentOpts)
	if err != nil {
		return nil, errs.Internal("fetching recent reports", err)
	}
	defer cursor.Close(ctx)
	stats.RecentReports = []models.Report{}
	if err := cursor.All(ctx, &stats.RecentReports); err != nil {
		return nil, errs.Internal("decoding recent reports", err)
	}

	return stats, nil
}

func (s *StatsService) groupCounts(ctx context.Context, field string, assign func(key string, count int64)) error {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   field,
			"count": bson.M{"$sum": 1},
		}}},
	}
	cursor, err := s.reportCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return errs.Internal("aggregating report counts", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		ID    string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return errs.Internal("decoding report counts", err)
	}
	for _, row := range rows {
		assign(row.ID, row.Count)
	}
	return nil
}

func (s *StatsService) avgResolutionHours(ctx context.Context) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"resolved_at": bson.M{"$ne": nil}}}},
		{{Key: "$project", Value: bson.M{
			"hours": bson.M{"$divide": bson.A{
				bson.M{"$subtract": bson.A{"$resolved_at", "$created_at"}},
				1000 * 60 * 60,
			}},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id": nil,
			"avg": bson.M{"$avg": "$hours"},
		}}},
	}
	cursor, err := s.reportCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, errs.Internal("aggregating resolution time", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Avg float64 `bson:"avg"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, errs.Internal("decoding resolution time", err)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Avg, nil
}
