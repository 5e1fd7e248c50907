package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/pensionio/backoffice/internal/repository"
)

func createBenefitClaimsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_benefit_claims",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.ClaimModel{}); err != nil {
				return err
			}
			indexes := []string{
				// One in-flight claim per member, enforced by the database
				// so concurrent applies cannot both succeed.
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_claims_one_active_per_member ON benefit_claims (member_id) WHERE status IN ('PENDING', 'UNDER_REVIEW', 'APPROVED')`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_claims_reference_number ON benefit_claims (reference_number)`,
				`CREATE INDEX IF NOT EXISTS idx_claims_member_status ON benefit_claims (member_id, status)`,
				`CREATE INDEX IF NOT EXISTS idx_claims_status_applied ON benefit_claims (status, applied_at)`,
			}
			for _, sql := range indexes {
				if err := tx.Exec(sql).Error; err != nil {
					return err
				}
			}
			return nil
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ClaimModel{})
		},
	}
}
