package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/pensionio/backoffice/internal/repository"
)

func createMembersTables() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_members",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.MemberModel{}, &repository.ContributionModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_contributions_member_type ON contributions (member_id, type)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.ContributionModel{}, &repository.MemberModel{})
		},
	}
}
