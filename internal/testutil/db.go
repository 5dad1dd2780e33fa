// Package testutil содержит помощники для интеграционных тестов с PostgreSQL.
// Каждый тест работает в собственной схеме и не мешает соседям.
package testutil

import (
	"fmt"
	"math/rand"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"showroom/server/internal/models"
)

// NewTestDB открывает подключение к тестовой базе в отдельной схеме
// и выполняет миграции. Тест пропускается, если переменная окружения
// SHOWROOM_TEST_DATABASE_URL не установлена.
func NewTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	databaseURL := os.Getenv("SHOWROOM_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set SHOWROOM_TEST_DATABASE_URL to run postgres integration test")
	}

	schema := fmt.Sprintf("test_%d_%04d", time.Now().UnixNano(), rand.Intn(10000))

	admin, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("подключение к тестовой базе: %v", err)
	}
	if err := admin.Exec("CREATE SCHEMA " + schema).Error; err != nil {
		t.Fatalf("создание схемы %s: %v", schema, err)
	}

	db, err := gorm.Open(postgres.Open(withSearchPath(databaseURL, schema)), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("подключение к схеме %s: %v", schema, err)
	}

	if err := models.AutoMigrate(db); err != nil {
		t.Fatalf("миграции в схеме %s: %v", schema, err)
	}

	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
		admin.Exec("DROP SCHEMA " + schema + " CASCADE")
		if sqlDB, err := admin.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return db
}

func withSearchPath(databaseURL, schema string) string {
	u, err := url.Parse(databaseURL)
	if err != nil || !strings.HasPrefix(databaseURL, "postgres") {
		return databaseURL + " search_path=" + schema
	}
	q := u.Query()
	q.Set("search_path", schema)
	u.RawQuery = q.Encode()
	return u.String()
}
