package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-ledger/internal/config"
	"go-ledger/internal/features/staging"
)

// One-shot maintenance: removes staged sessions past the TTL together with
// their uploaded files. The API server runs the same purge on a schedule;
// this exists for manual runs against a stopped server.
func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	coll := client.Database(cfg.DBName).Collection("staged_sessions")
	cutoff := time.Now().Add(-cfg.StagingTTL)

	filter := bson.M{
		"created_at": bson.M{"$lt": cutoff},
		"status":     bson.M{"$ne": staging.SessionStatusCommitted},
	}

	cursor, err := coll.Find(ctx, filter)
	if err != nil {
		log.Fatalf("Failed to find stale sessions: %v", err)
	}

	var sessions []staging.StagedSession
	if err := cursor.All(ctx, &sessions); err != nil {
		log.Fatalf("Failed to decode sessions: %v", err)
	}

	removed := 0
	for _, session := range sessions {
		if session.FilePath != "" {
			if err := os.Remove(filepath.Clean(session.FilePath)); err != nil && !os.IsNotExist(err) {
				log.Printf("Failed to remove file %s: %v\n", session.FilePath, err)
			}
		}
		if _, err := coll.DeleteOne(ctx, bson.M{"_id": session.ID}); err != nil {
			log.Printf("Failed to delete session %s: %v\n", session.ID.Hex(), err)
			continue
		}
		removed++
	}

	fmt.Printf("Removed %d stale staging sessions\n", removed)
}
