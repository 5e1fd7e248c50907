package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/pensionio/backoffice/internal/repository"
)

func createWebhookSubscriptionsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000003_create_webhook_subscriptions",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.SubscriptionModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_subscriptions_active ON webhook_subscriptions (active) WHERE active`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.SubscriptionModel{})
		},
	}
}
