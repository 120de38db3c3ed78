package staging

import (
	"context"
	"time"

	"go-ledger/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type StagingRepository interface {
	Create(ctx context.Context, session *StagedSession) error
	Get(ctx context.Context, id string) (*StagedSession, error)
	UpdateStatus(ctx context.Context, id string, status SessionStatus) error
	DiscardStaged(ctx context.Context, programID, shopID, periodDate string) error
	FindStale(ctx context.Context, before time.Time) ([]StagedSession, error)
	Delete(ctx context.Context, id string) error
}

type StagingRepositoryImpl struct {
	collection *mongo.Collection
}

func NewStagingRepository(db *database.MongodbDB) StagingRepository {
	return &StagingRepositoryImpl{
		collection: db.DB.Collection("staged_sessions"),
	}
}

func (r *StagingRepositoryImpl) Create(ctx context.Context, session *StagedSession) error {
	if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
	}
	session.Status = SessionStatusStaged
	session.CreatedAt = time.Now()
	session.UpdatedAt = time.Now()

	_, err := r.collection.InsertOne(ctx, session)
	return err
}

func (r *StagingRepositoryImpl) Get(ctx context.Context, id string) (*StagedSession, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, err
	}

	var session StagedSession
	if err := r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *StagingRepositoryImpl) UpdateStatus(ctx context.Context, id string, status SessionStatus) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}

	_, err = r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": time.Now(),
		},
	})
	return err
}

// DiscardStaged marks every still-staged session for the scope as discarded.
// A new stage call supersedes older ones; they are never merged.
func (r *StagingRepositoryImpl) DiscardStaged(ctx context.Context, programID, shopID, periodDate string) error {
	_, err := r.collection.UpdateMany(ctx,
		bson.M{
			"program_id":  programID,
			"shop_id":     shopID,
			"period_date": periodDate,
			"status":      SessionStatusStaged,
		},
		bson.M{"$set": bson.M{
			"status":     SessionStatusDiscarded,
			"updated_at": time.Now(),
		}},
	)
	return err
}

func (r *StagingRepositoryImpl) FindStale(ctx context.Context, before time.Time) ([]StagedSession, error) {
	cursor, err := r.collection.Find(ctx, bson.M{
		"status":     bson.M{"$in": []SessionStatus{SessionStatusStaged, SessionStatusDiscarded}},
		"created_at": bson.M{"$lt": before},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var sessions []StagedSession
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *StagingRepositoryImpl) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": objID})
	return err
}
