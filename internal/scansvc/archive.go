// Package scansvc archives the scan stream into MongoDB.
package scansvc

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/avvvet/tapchip-services/internal/chipsvc/models"
	"github.com/avvvet/tapchip-services/internal/db"
)

const collectionName = "scan_events"

type Archive struct {
	coll *mongo.Collection
}

// NewArchive prepares the collection: a TTL index on scanned_at enforces
// retention, and a (chip_id, scanned_at) index serves history reads.
func NewArchive(ctx context.Context, database *mongo.Database, retention time.Duration) (*Archive, error) {
	if err := db.CreateTTLIndexForCollection(ctx, database, collectionName, "scanned_at", retention); err != nil {
		return nil, err
	}
	coll := database.Collection(collectionName)
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "chip_id", Value: 1}, {Key: "scanned_at", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("create chip index: %w", err)
	}
	return &Archive{coll: coll}, nil
}

// Append stores ev. Redelivered events hit the _id key and are ignored.
func (a *Archive) Append(ctx context.Context, ev models.ScanEvent) error {
	_, err := a.coll.InsertOne(ctx, ev)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("archive scan %s: %w", ev.ID, err)
	}
	return nil
}

// ListByChip returns a chip's archived scans, newest first.
func (a *Archive) ListByChip(ctx context.Context, chipID string, since time.Time, limit int64) ([]models.ScanEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "scanned_at", Value: -1}}).SetLimit(limit)
	cur, err := a.coll.Find(ctx, bson.M{"chip_id": chipID, "scanned_at": bson.M{"$gte": since}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []models.ScanEvent
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// DeviceCount is one row of a per-device tally.
type DeviceCount struct {
	Device string `json:"device" bson:"_id"`
	Count  int64  `json:"count" bson:"count"`
}

// CountByDevice tallies a chip's scans per device class since the given time.
func (a *Archive) CountByDevice(ctx context.Context, chipID string, since time.Time) ([]DeviceCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"chip_id": chipID, "scanned_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{"_id": "$device", "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}}}},
	}
	cur, err := a.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var counts []DeviceCount
	if err := cur.All(ctx, &counts); err != nil {
		return nil, err
	}
	return counts, nil
}
