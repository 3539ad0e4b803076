package service

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mindfulpath/internal/db"
	"github.com/mindfulpath/internal/mail"
	"github.com/mindfulpath/internal/storage"
)

func setupServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s-%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// captureMailer 记录发送的邮件，可以模拟投递失败。
type captureMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *captureMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *captureMailer) last(t *testing.T) mail.Message {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		t.Fatalf("expected an email to be sent")
	}
	return m.sent[len(m.sent)-1]
}

func newTestUploader(t *testing.T) *storage.Uploader {
	t.Helper()
	return storage.NewUploader(storage.NewLocalStore(t.TempDir(), "/static/uploads"))
}

func pngFile(t *testing.T) *storage.File {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 2, 2))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return &storage.File{Name: "image.png", Data: buf.Bytes()}
}

func createUser(t *testing.T, gdb *gorm.DB, username string, admin bool) db.User {
	t.Helper()
	user := db.User{
		Username:   username,
		Email:      username + "@example.com",
		Password:   "unused",
		ProfilePic: db.DefaultProfilePic,
		IsAdmin:    admin,
	}
	if err := gdb.Create(&user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func createCategory(t *testing.T, gdb *gorm.DB, name string) db.Category {
	t.Helper()
	category := db.Category{Name: name, CategoryImage: db.DefaultCategoryImage}
	if err := gdb.Create(&category).Error; err != nil {
		t.Fatalf("create category %s: %v", name, err)
	}
	return category
}

func createBlog(t *testing.T, gdb *gorm.DB, title string, authorID, categoryID uint, live bool) db.Blog {
	t.Helper()
	blog := db.Blog{
		Title:      title,
		Content:    "# " + title + "\n正文",
		Language:   db.LanguageEnglish,
		CategoryID: categoryID,
		Thumbnail:  "https://example.com/thumb.png",
		AuthorID:   authorID,
		IsLive:     live,
	}
	if err := gdb.Create(&blog).Error; err != nil {
		t.Fatalf("create blog %s: %v", title, err)
	}
	return blog
}

func refOf(id uint) Ref {
	return Ref(fmt.Sprintf("%d", id))
}

func floatPtr(v float64) *float64 { return &v }

var pngFileNotImage = storage.File{Name: "notes.txt", Data: []byte("not an image")}
