// Package dbtest opens isolated in-memory sqlite databases for repository tests.
package dbtest

import (
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/leasewise/leasewise-backend/pkg/db/models"
)

// AllModels lists every table the engine reads or writes.
func AllModels() []any {
	return []any{
		&models.Property{},
		&models.Unit{},
		&models.Tenant{},
		&models.Lease{},
		&models.Payment{},
		&models.Schedule{},
		&models.DeliveryAttempt{},
		&models.FailureRecord{},
		&models.ReportPreference{},
		&models.PreferenceVersion{},
		&models.RollbackSuggestion{},
		&models.NotificationLog{},
	}
}

// Open returns a fresh database migrated with AllModels. Each call gets its own
// named in-memory database so tests never observe each other's rows.
func Open(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_loc=UTC", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
		Logger:                 gormlogger.New(log.New(io.Discard, "", 0), gormlogger.Config{LogLevel: gormlogger.Silent}),
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := conn.AutoMigrate(AllModels()...); err != nil {
		t.Fatalf("failed to migrate sqlite: %v", err)
	}
	return conn
}
