package repository

import (
	"testing"

	"lingua_lms_backend/internal/model"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB opens an in-memory sqlite database migrated with the full schema.
// A single connection keeps the in-memory database alive for the test.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(
		&model.User{},
		&model.Notebook{},
		&model.Source{},
		&model.Note{},
		&model.ChatMessage{},
		&model.Meeting{},
		&model.GenerationJob{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, email string) *model.User {
	t.Helper()
	u := &model.User{Name: "Test User", Email: email, Password: "x", Role: model.Instructor}
	if err := db.Create(u).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func seedNotebook(t *testing.T, db *gorm.DB, ownerID uint, week int) *model.Notebook {
	t.Helper()
	nb := &model.Notebook{OwnerID: ownerID, Week: week, Title: "Week notebook", Status: model.NotebookPending}
	if err := db.Create(nb).Error; err != nil {
		t.Fatalf("seed notebook: %v", err)
	}
	return nb
}
