package migrations

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/kursadbilgin/terminal-registry/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestMigrateCreatesTablesAndIsRepeatable(t *testing.T) {
	t.Parallel()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	for i := 0; i < 2; i++ {
		if err := Migrate(db); err != nil {
			t.Fatalf("Migrate() run %d error = %v", i+1, err)
		}
	}

	migrator := db.Migrator()
	if !migrator.HasTable(&repository.TerminalModel{}) {
		t.Fatal("terminals table should exist")
	}
	if !migrator.HasTable(&repository.BatchOutcomeModel{}) {
		t.Fatal("terminal_batch_outcomes table should exist")
	}
	if !migrator.HasIndex(&repository.TerminalModel{}, "idx_terminals_provider_terminal") {
		t.Fatal("unique provider/terminal index should exist")
	}
	if !migrator.HasIndex(&repository.TerminalModel{}, "idx_terminals_provider_enabled_created") {
		t.Fatal("list index should exist")
	}

	var applied int64
	if err := db.Table("migrations").Count(&applied).Error; err != nil {
		t.Fatalf("count migrations: %v", err)
	}
	if applied != 2 {
		t.Fatalf("applied migrations = %d, want 2", applied)
	}
}
