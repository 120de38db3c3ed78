package account

import (
	"context"
	"time"

	"go-ledger/internal/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AccountRepository interface {
	UpsertMaster(ctx context.Context, acc *MasterAccount) error
	ListMasters(ctx context.Context) ([]MasterAccount, error)
	FindMaster(ctx context.Context, accountNumber string) (*MasterAccount, error)

	UpsertShopAccount(ctx context.Context, acc *ShopAccount) error
	ListShopAccounts(ctx context.Context, programID, shopID string) ([]ShopAccount, error)
	SetMasterLink(ctx context.Context, id string, masterAccountNumber string) error
	ListUnmatched(ctx context.Context) ([]ShopAccount, error)
	CountShopAccounts(ctx context.Context, programID, shopID string) (int64, int64, error)
}

type AccountRepositoryImpl struct {
	masters      *mongo.Collection
	shopAccounts *mongo.Collection
}

func NewAccountRepository(db *database.MongodbDB) AccountRepository {
	return &AccountRepositoryImpl{
		masters:      db.DB.Collection("master_accounts"),
		shopAccounts: db.DB.Collection("shop_accounts"),
	}
}

func (r *AccountRepositoryImpl) UpsertMaster(ctx context.Context, acc *MasterAccount) error {
	acc.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"account_name": acc.AccountName,
			"category":     acc.Category,
			"updated_at":   acc.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"account_number": acc.AccountNumber,
			"created_at":     time.Now(),
		},
	}
	_, err := r.masters.UpdateOne(ctx,
		bson.M{"account_number": acc.AccountNumber},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *AccountRepositoryImpl) ListMasters(ctx context.Context) ([]MasterAccount, error) {
	opts := options.Find().SetSort(bson.M{"account_number": 1})
	cursor, err := r.masters.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var accounts []MasterAccount
	if err = cursor.All(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *AccountRepositoryImpl) FindMaster(ctx context.Context, accountNumber string) (*MasterAccount, error) {
	var acc MasterAccount
	err := r.masters.FindOne(ctx, bson.M{"account_number": accountNumber}).Decode(&acc)
	if err != nil {
		return nil, err
	}
	return &acc, nil
}

func (r *AccountRepositoryImpl) UpsertShopAccount(ctx context.Context, acc *ShopAccount) error {
	if acc.ID.IsZero() {
		acc.ID = primitive.NewObjectID()
	}
	acc.UpdatedAt = time.Now()
	update := bson.M{
		"$set": bson.M{
			"account_name":          acc.AccountName,
			"master_account_number": acc.MasterAccountNumber,
			"updated_at":            acc.UpdatedAt,
		},
		"$setOnInsert": bson.M{
			"program_id":     acc.ProgramID,
			"shop_id":        acc.ShopID,
			"account_number": acc.AccountNumber,
			"created_at":     time.Now(),
		},
	}
	_, err := r.shopAccounts.UpdateOne(ctx,
		bson.M{"program_id": acc.ProgramID, "shop_id": acc.ShopID, "account_number": acc.AccountNumber},
		update,
		options.Update().SetUpsert(true),
	)
	return err
}

func (r *AccountRepositoryImpl) ListShopAccounts(ctx context.Context, programID, shopID string) ([]ShopAccount, error) {
	opts := options.Find().SetSort(bson.M{"account_number": 1})
	cursor, err := r.shopAccounts.Find(ctx, bson.M{"program_id": programID, "shop_id": shopID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var accounts []ShopAccount
	if err = cursor.All(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

func (r *AccountRepositoryImpl) SetMasterLink(ctx context.Context, id string, masterAccountNumber string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return err
	}
	_, err = r.shopAccounts.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{
		"$set": bson.M{
			"master_account_number": masterAccountNumber,
			"updated_at":            time.Now(),
		},
	})
	return err
}

func (r *AccountRepositoryImpl) ListUnmatched(ctx context.Context) ([]ShopAccount, error) {
	filter := bson.M{"$or": []bson.M{
		{"master_account_number": bson.M{"$exists": false}},
		{"master_account_number": ""},
	}}
	cursor, err := r.shopAccounts.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var accounts []ShopAccount
	if err = cursor.All(ctx, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

// CountShopAccounts returns (total, matched) for the shop.
func (r *AccountRepositoryImpl) CountShopAccounts(ctx context.Context, programID, shopID string) (int64, int64, error) {
	scope := bson.M{"program_id": programID, "shop_id": shopID}

	total, err := r.shopAccounts.CountDocuments(ctx, scope)
	if err != nil {
		return 0, 0, err
	}

	matchedFilter := bson.M{
		"program_id": programID,
		"shop_id":    shopID,
		"master_account_number": bson.M{
			"$exists": true,
			"$ne":     "",
		},
	}
	matched, err := r.shopAccounts.CountDocuments(ctx, matchedFilter)
	if err != nil {
		return 0, 0, err
	}

	return total, matched, nil
}
