package main

import (
	"fmt"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mindfulpath/internal/db"
)

func setupSeedTestDB(t *testing.T) {
	t.Helper()

	dsn := fmt.Sprintf("file:seed-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	db.DB = gdb

	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
		db.DB = nil
	})
}

func TestSeedCreatesDashboardData(t *testing.T) {
	setupSeedTestDB(t)

	admin, reader := createTestUsers()
	if !admin.IsAdmin || reader.IsAdmin {
		t.Fatalf("unexpected roles: admin=%v reader=%v", admin.IsAdmin, reader.IsAdmin)
	}

	categories := createTestCategories()
	if len(categories) != 3 {
		t.Fatalf("expected 3 categories, got %d", len(categories))
	}

	blogs := createTestBlogs(admin, categories)
	if len(blogs) != 4 {
		t.Fatalf("expected 4 blogs, got %d", len(blogs))
	}

	createTestVisits(blogs, reader, time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	createTestSubscribers(reader)

	var total, open int64
	db.DB.Model(&db.VisitRecord{}).Count(&total)
	db.DB.Model(&db.VisitRecord{}).Where("exit_time IS NULL").Count(&open)
	if total != int64(len(blogs)*seedVisitsPerBlog) {
		t.Fatalf("expected %d visits, got %d", len(blogs)*seedVisitsPerBlog, total)
	}
	if open != int64(len(blogs)) {
		t.Fatalf("expected one open visit per blog, got %d", open)
	}

	var subscribers int64
	db.DB.Model(&db.Newsletter{}).Count(&subscribers)
	if subscribers != 1 {
		t.Fatalf("expected 1 subscriber, got %d", subscribers)
	}
}

func TestSeedIsRepeatable(t *testing.T) {
	setupSeedTestDB(t)

	admin, _ := createTestUsers()
	againAdmin, _ := createTestUsers()
	if admin.ID != againAdmin.ID {
		t.Fatalf("expected users to be reused, got %d and %d", admin.ID, againAdmin.ID)
	}

	first := createTestCategories()
	second := createTestCategories()
	if len(first) != len(second) {
		t.Fatalf("expected existing categories to be returned, got %d and %d", len(first), len(second))
	}

	createTestBlogs(admin, second)
	blogs := createTestBlogs(admin, second)
	var count int64
	db.DB.Model(&db.Blog{}).Count(&count)
	if count != int64(len(blogs)) {
		t.Fatalf("expected old blogs to be cleared, got %d rows for %d blogs", count, len(blogs))
	}
}
