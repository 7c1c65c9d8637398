package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/terminal-registry/internal/repository"
	"gorm.io/gorm"
)

func createTerminalsTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000001_create_terminals",
		Migrate: func(tx *gorm.DB) error {
			if err := tx.AutoMigrate(&repository.TerminalModel{}); err != nil {
				return err
			}
			return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_terminals_provider_enabled_created ON terminals (provider_id, enabled, created_at)`).Error
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.TerminalModel{})
		},
	}
}
