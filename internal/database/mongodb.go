package database

import (
	"context"
	"fmt"
	"time"

	"civicreport/internal/config"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// NewMongoDB opens the process-wide connection pool. Constructed once at
// startup and passed by reference; Close is the matching teardown.
func NewMongoDB(cfg *config.Config) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.MongoTimeout)*time.Second)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(100).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(30 * time.Second)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	logrus.WithField("database", cfg.DatabaseName).Info("connected to MongoDB")

	return &MongoDB{
		Client:   client,
		Database: client.Database(cfg.DatabaseName),
	}, nil
}

func (m *MongoDB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := m.Client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnecting from MongoDB: %w", err)
	}

	logrus.Info("disconnected from MongoDB")
	return nil
}

// CreateIndexes creates the indexes every collection relies on. bson.D is
// used throughout to keep key order stable.
func (m *MongoDB) CreateIndexes(ctx context.Context) error {
	userIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "role", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}
	if _, err := m.Database.Collection("users").Indexes().CreateMany(ctx, userIndexes); err != nil {
		return fmt.Errorf("creating user indexes: %w", err)
	}

	reportIndexes := []mongo.IndexModel{
		{
			// Geospatial index backing the nearby query.
			Keys: bson.D{{Key: "location", Value: "2dsphere"}},
		},
		{
			Keys: bson.D{
				{Key: "status", Value: 1},
				{Key: "category", Value: 1},
			},
		},
		{
			Keys: bson.D{{Key: "submitted_by", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}
	if _, err := m.Database.Collection("reports").Indexes().CreateMany(ctx, reportIndexes); err != nil {
		return fmt.Errorf("creating report indexes: %w", err)
	}

	departmentIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "responsible_area", Value: "2dsphere"}},
		},
	}
	if _, err := m.Database.Collection("departments").Indexes().CreateMany(ctx, departmentIndexes); err != nil {
		return fmt.Errorf("creating department indexes: %w", err)
	}

	notificationIndexes := []mongo.IndexModel{
		{
			// Unread lookups per recipient.
			Keys: bson.D{
				{Key: "recipient", Value: 1},
				{Key: "read", Value: 1},
			},
		},
		{
			Keys: bson.D{
				{Key: "recipient", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
	}
	if _, err := m.Database.Collection("notifications").Indexes().CreateMany(ctx, notificationIndexes); err != nil {
		return fmt.Errorf("creating notification indexes: %w", err)
	}

	logrus.Info("database indexes created")
	return nil
}
