package migrations

import (
	"github.com/go-gormigrate/gormigrate/v2"
	"github.com/kursadbilgin/terminal-registry/internal/repository"
	"gorm.io/gorm"
)

func createTerminalBatchOutcomesTable() *gormigrate.Migration {
	return &gormigrate.Migration{
		ID: "000002_create_terminal_batch_outcomes",
		Migrate: func(tx *gorm.DB) error {
			return tx.AutoMigrate(&repository.BatchOutcomeModel{})
		},
		Rollback: func(tx *gorm.DB) error {
			return tx.Migrator().DropTable(&repository.BatchOutcomeModel{})
		},
	}
}
