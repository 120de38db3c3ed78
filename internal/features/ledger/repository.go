package ledger

import (
	"context"
	"time"

	"go-ledger/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type LedgerRepository interface {
	InsertMany(ctx context.Context, entries []Entry) error
	DeleteByShopPeriod(ctx context.Context, shopID, periodDate string) (int64, error)
	CountByShopPeriod(ctx context.Context, shopID, periodDate string) (int64, error)
	FindByShopPeriod(ctx context.Context, shopID, periodDate string) ([]Entry, error)
}

type LedgerRepositoryImpl struct {
	collection *mongo.Collection
}

func NewLedgerRepository(db *database.MongodbDB) LedgerRepository {
	return &LedgerRepositoryImpl{
		collection: db.DB.Collection("ledger_entries"),
	}
}

func (r *LedgerRepositoryImpl) InsertMany(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]interface{}, 0, len(entries))
	for i := range entries {
		if entries[i].ID.IsZero() {
			entries[i].ID = primitive.NewObjectID()
		}
		entries[i].CreatedAt = time.Now()
		docs = append(docs, entries[i])
	}
	_, err := r.collection.InsertMany(ctx, docs)
	return err
}

func (r *LedgerRepositoryImpl) DeleteByShopPeriod(ctx context.Context, shopID, periodDate string) (int64, error) {
	res, err := r.collection.DeleteMany(ctx, bson.M{"shop_id": shopID, "period_date": periodDate})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *LedgerRepositoryImpl) CountByShopPeriod(ctx context.Context, shopID, periodDate string) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{"shop_id": shopID, "period_date": periodDate})
}

func (r *LedgerRepositoryImpl) FindByShopPeriod(ctx context.Context, shopID, periodDate string) ([]Entry, error) {
	opts := options.Find().SetSort(bson.M{"entry_date": 1})
	cursor, err := r.collection.Find(ctx, bson.M{"shop_id": shopID, "period_date": periodDate}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []Entry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
