package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/signalflags/signalflags-api/internal/models"
	"github.com/signalflags/signalflags-api/pkg/cursor"
)

// Result collection names.
const (
	LeaderboardCollection     = "leaderboard"
	PracticeResultsCollection = "practice_results"
)

// ResultRepository provides document access for the leaderboard and
// per-user practice history. Both collections are append-only.
type ResultRepository struct {
	leaderboard *mongo.Collection
	practice    *mongo.Collection
}

// NewResultRepository creates a new instance of ResultRepository.
func NewResultRepository(db *mongo.Database) *ResultRepository {
	return &ResultRepository{
		leaderboard: db.Collection(LeaderboardCollection),
		practice:    db.Collection(PracticeResultsCollection),
	}
}

// InsertLeaderboardEntry appends a competitive result and stamps the
// server-assigned submission time.
func (r *ResultRepository) InsertLeaderboardEntry(ctx context.Context, entry *models.LeaderboardEntry) error {
	if entry.ID == "" {
		entry.ID = primitive.NewObjectID().Hex()
	}
	if entry.SubmittedAt.IsZero() {
		entry.SubmittedAt = time.Now().UTC()
	}
	if _, err := r.leaderboard.InsertOne(ctx, entry); err != nil {
		return mapMongoError(err, "insert leaderboard entry")
	}
	return nil
}

// InsertPracticeResult appends a practice result for one user.
func (r *ResultRepository) InsertPracticeResult(ctx context.Context, result *models.PracticeResult) error {
	if result.ID == "" {
		result.ID = primitive.NewObjectID().Hex()
	}
	if result.CompletedAt.IsZero() {
		result.CompletedAt = time.Now().UTC()
	}
	if _, err := r.practice.InsertOne(ctx, result); err != nil {
		return mapMongoError(err, "insert practice result")
	}
	return nil
}

// LeaderboardPage reads one page ordered by rating descending, ties broken
// by submission time ascending then id. A non-nil key resumes strictly after
// the entry it names. Returns up to limit entries and whether more follow.
func (r *ResultRepository) LeaderboardPage(ctx context.Context, after *cursor.Key, limit int) ([]models.LeaderboardEntry, bool, error) {
	filter := bson.M{}
	if after != nil {
		rating := int(after.SortValue)
		filter = bson.M{"$or": bson.A{
			bson.M{"rating": bson.M{"$lt": rating}},
			bson.M{"rating": rating, "submitted_at": bson.M{"$gt": after.Time}},
			bson.M{"rating": rating, "submitted_at": after.Time, "_id": bson.M{"$gt": after.ID}},
		}}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "rating", Value: -1}, {Key: "submitted_at", Value: 1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit + 1))

	cur, err := r.leaderboard.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, mapMongoError(err, "read leaderboard page")
	}
	defer cur.Close(ctx)

	var entries []models.LeaderboardEntry
	if err := cur.All(ctx, &entries); err != nil {
		return nil, false, mapMongoError(err, "decode leaderboard page")
	}

	hasMore := len(entries) > limit
	if hasMore {
		entries = entries[:limit]
	}
	return entries, hasMore, nil
}

// PracticeHistoryPage reads one page of a single user's practice results
// ordered descending by the chosen sort field.
func (r *ResultRepository) PracticeHistoryPage(ctx context.Context, userID string, sortBy models.HistorySort, after *cursor.Key, limit int) ([]models.PracticeResult, bool, error) {
	field := string(sortBy)
	filter := bson.M{"user_id": userID}
	if after != nil {
		var boundary interface{}
		if sortBy == models.SortByCompletedAt {
			boundary = after.Time
		} else {
			boundary = after.SortValue
		}
		filter = bson.M{"user_id": userID, "$or": bson.A{
			bson.M{field: bson.M{"$lt": boundary}},
			bson.M{field: boundary, "_id": bson.M{"$gt": after.ID}},
		}}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: -1}, {Key: "_id", Value: 1}}).
		SetLimit(int64(limit + 1))

	cur, err := r.practice.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, mapMongoError(err, "read practice history page")
	}
	defer cur.Close(ctx)

	var results []models.PracticeResult
	if err := cur.All(ctx, &results); err != nil {
		return nil, false, mapMongoError(err, "decode practice history page")
	}

	hasMore := len(results) > limit
	if hasMore {
		results = results[:limit]
	}
	return results, hasMore, nil
}

// WatchLeaderboard opens a change stream over leaderboard inserts and emits
// a coalesced notification per change until ctx is cancelled. Consumers
// re-read a full snapshot per notification rather than patching.
func (r *ResultRepository) WatchLeaderboard(ctx context.Context) (<-chan struct{}, error) {
	pipeline := mongo.Pipeline{bson.D{{Key: "$match", Value: bson.M{"operationType": "insert"}}}}
	stream, err := r.leaderboard.Watch(ctx, pipeline)
	if err != nil {
		return nil, mapMongoError(err, "watch leaderboard")
	}

	notifications := make(chan struct{}, 1)
	go func() {
		defer close(notifications)
		defer stream.Close(context.Background())
		for stream.Next(ctx) {
			select {
			case notifications <- struct{}{}:
			default:
				// A pending notification already forces a re-read.
			}
		}
	}()

	return notifications, nil
}
