package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/signalflags/signalflags-api/pkg/config"
	"github.com/signalflags/signalflags-api/pkg/database"
)

type collectionIndexes struct {
	collection string
	models     []mongo.IndexModel
}

func main() {
	var timeout time.Duration
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "overall timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, disconnect, err := database.NewMongo(cfg.Mongo)
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer disconnect(context.Background()) //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	plans := []collectionIndexes{
		{
			collection: "users",
			models: []mongo.IndexModel{
				// One user per device.
				{
					Keys:    bson.D{{Key: "device_id", Value: 1}},
					Options: options.Index().SetUnique(true),
				},
			},
		},
		{
			collection: "leaderboard",
			models: []mongo.IndexModel{
				// Matches the read path's sort exactly.
				{
					Keys: bson.D{
						{Key: "rating", Value: -1},
						{Key: "submitted_at", Value: 1},
						{Key: "_id", Value: 1},
					},
				},
			},
		},
		{
			collection: "practice_results",
			models: []mongo.IndexModel{
				{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "completed_at", Value: -1}}},
				{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "accuracy", Value: -1}}},
				{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "score", Value: -1}}},
			},
		},
	}

	for _, plan := range plans {
		names, err := db.Collection(plan.collection).Indexes().CreateMany(ctx, plan.models)
		if err != nil {
			log.Fatalf("failed to create indexes on %s: %v", plan.collection, err)
		}
		fmt.Printf("%s: %v\n", plan.collection, names)
	}
}
