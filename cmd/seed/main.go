package main

import (
	"context"
	"encoding/json"
	"os"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"go-ledger/internal/config"
	"go-ledger/internal/database"
	"go-ledger/internal/features/account"
	"go-ledger/internal/logger"
)

type seedFile struct {
	MasterAccounts []account.MasterAccount `json:"master_accounts"`
	ShopAccounts   []account.ShopAccount   `json:"shop_accounts"`
}

// Seed loads a chart-of-accounts fixture into the database and exits.
// Usage: SEED_FILE=seed.json go run ./cmd/seed
func Seed(
	lc fx.Lifecycle,
	accountRepo account.AccountRepository,
	logger *zap.Logger,
	shutdowner fx.Shutdowner,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() {
					if err := shutdowner.Shutdown(); err != nil {
						logger.Error("Failed to shutdown", zap.Error(err))
					}
				}()

				path := os.Getenv("SEED_FILE")
				if path == "" {
					path = "seed.json"
				}

				b, err := os.ReadFile(path)
				if err != nil {
					logger.Error("Failed to read seed file", zap.String("path", path), zap.Error(err))
					return
				}

				var seed seedFile
				if err := json.Unmarshal(b, &seed); err != nil {
					logger.Error("Failed to parse seed file", zap.Error(err))
					return
				}

				bg := context.Background()
				for i := range seed.MasterAccounts {
					if err := accountRepo.UpsertMaster(bg, &seed.MasterAccounts[i]); err != nil {
						logger.Error("Failed to upsert master account",
							zap.String("account_number", seed.MasterAccounts[i].AccountNumber),
							zap.Error(err))
					}
				}
				for i := range seed.ShopAccounts {
					if err := accountRepo.UpsertShopAccount(bg, &seed.ShopAccounts[i]); err != nil {
						logger.Error("Failed to upsert shop account",
							zap.String("account_number", seed.ShopAccounts[i].AccountNumber),
							zap.Error(err))
					}
				}

				logger.Info("Seeding complete",
					zap.Int("master_accounts", len(seed.MasterAccounts)),
					zap.Int("shop_accounts", len(seed.ShopAccounts)))
			}()
			return nil
		},
	})
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			logger.NewLogger,
			database.NewDatabase,
			account.NewAccountRepository,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(Seed),
	)

	app.Run()
}
