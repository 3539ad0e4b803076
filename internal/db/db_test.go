package db

import (
	"testing"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/logger"
)

func TestTagListAndJoinTags(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want string
	}{
		{name: "trim and drop empty", in: []string{" go ", "", "gin"}, want: "go,gin"},
		{name: "case insensitive dedup", in: []string{"Go", "go", "GO", "gorm"}, want: "Go,gorm"},
		{name: "empty", in: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := JoinTags(tt.in)
			if got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}

	blog := Blog{Tags: "mind, body ,,soul"}
	list := blog.TagList()
	if len(list) != 3 || list[1] != "body" {
		t.Fatalf("unexpected tag list: %#v", list)
	}
	if len((Blog{}).TagList()) != 0 {
		t.Fatal("expected empty tag list for blank tags")
	}
}

func TestEnsureAdminCreatesAndPromotes(t *testing.T) {
	gdb, err := Open("sqlite", "file:ensure_admin?mode=memory&cache=shared", logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	if err := EnsureAdmin(gdb, "root", " Root@Example.com ", "secret123"); err != nil {
		t.Fatalf("EnsureAdmin returned error: %v", err)
	}

	var admin User
	if err := gdb.Where("email = ?", "root@example.com").First(&admin).Error; err != nil {
		t.Fatalf("admin not created: %v", err)
	}
	if !admin.IsAdmin || admin.Role() != "admin" {
		t.Fatalf("expected admin role, got %+v", admin)
	}
	if bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte("secret123")) != nil {
		t.Fatal("expected bcrypt hashed password")
	}

	member := User{Username: "member", Email: "member@example.com", Password: "x"}
	if err := gdb.Create(&member).Error; err != nil {
		t.Fatalf("failed to seed member: %v", err)
	}
	if err := EnsureAdmin(gdb, "member", "member@example.com", "whatever"); err != nil {
		t.Fatalf("EnsureAdmin promote returned error: %v", err)
	}
	if err := gdb.First(&member, member.ID).Error; err != nil {
		t.Fatalf("reload member: %v", err)
	}
	if !member.IsAdmin {
		t.Fatal("expected existing user to be promoted")
	}

	if err := EnsureAdmin(gdb, "", "", ""); err != nil {
		t.Fatalf("blank credentials should be ignored, got %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mongo", "x", nil); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if _, err := Open("postgres", "", nil); err == nil {
		t.Fatal("expected error for missing postgres dsn")
	}
}
