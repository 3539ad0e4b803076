package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/mindfulpath/internal/db"
)

func TestCategoryService_CRUD(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewCategoryService(gdb, newTestUploader(t), nil)
	ctx := context.Background()

	desc := "Slow down"
	calm, err := svc.Create(ctx, CategoryInput{Name: " Calm ", Description: &desc}, nil)
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if calm.Name != "Calm" || calm.CategoryImage != db.DefaultCategoryImage || calm.Description != "Slow down" {
		t.Fatalf("unexpected category: %+v", calm)
	}
	if _, err := svc.Create(ctx, CategoryInput{Name: "calm"}, nil); !errors.Is(err, ErrCategoryExists) {
		t.Fatalf("expected duplicate name conflict, got %v", err)
	}

	focus, err := svc.Create(ctx, CategoryInput{Name: "Focus"}, pngFile(t))
	if err != nil {
		t.Fatalf("create category with image: %v", err)
	}
	if !strings.HasPrefix(focus.CategoryImage, "/static/uploads/categories/") {
		t.Fatalf("unexpected image url %q", focus.CategoryImage)
	}

	if _, err := svc.Update(ctx, focus.ID, CategoryInput{Name: "Calm"}, nil); !errors.Is(err, ErrCategoryExists) {
		t.Fatalf("expected rename conflict, got %v", err)
	}
	renamed, err := svc.Update(ctx, focus.ID, CategoryInput{Name: "Attention"}, nil)
	if err != nil || renamed.Name != "Attention" {
		t.Fatalf("rename: %+v %v", renamed, err)
	}

	list, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 2 || list[0].Name != "Attention" || list[1].Name != "Calm" {
		t.Fatalf("expected name ordering, got %+v", list)
	}

	if err := svc.Delete(ctx, 9999); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := svc.Delete(ctx, focus.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Create(ctx, CategoryInput{Name: "Attention"}, nil); err != nil {
		t.Fatalf("expected name to be reusable after delete, got %v", err)
	}
}

func TestCategoryService_DeleteInUse(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewCategoryService(gdb, newTestUploader(t), nil)
	ctx := context.Background()
	admin := createUser(t, gdb, "admin", true)
	category := createCategory(t, gdb, "Calm")

	sub, err := svc.CreateSubcategory(ctx, refOf(category.ID), "Breathing")
	if err != nil {
		t.Fatalf("create subcategory: %v", err)
	}
	blog := createBlog(t, gdb, "Breathe", admin.ID, category.ID, true)
	if err := gdb.Model(&blog).Update("subcategory_id", sub.ID).Error; err != nil {
		t.Fatalf("attach subcategory: %v", err)
	}

	if err := svc.Delete(ctx, category.ID); !errors.Is(err, ErrCategoryInUse) {
		t.Fatalf("expected category in use, got %v", err)
	}
	if err := svc.DeleteSubcategory(ctx, sub.ID); !errors.Is(err, ErrSubcategoryInUse) {
		t.Fatalf("expected subcategory in use, got %v", err)
	}

	if err := gdb.Delete(&blog).Error; err != nil {
		t.Fatalf("delete blog: %v", err)
	}
	if err := svc.Delete(ctx, category.ID); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	var remaining int64
	gdb.Unscoped().Model(&db.Subcategory{}).Where("category_id = ?", category.ID).Count(&remaining)
	if remaining != 0 {
		t.Fatalf("expected subcategories to be removed, got %d", remaining)
	}
}

func TestCategoryService_Subcategories(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewCategoryService(gdb, newTestUploader(t), nil)
	ctx := context.Background()
	category := createCategory(t, gdb, "Calm")

	if _, err := svc.CreateSubcategory(ctx, "9999", "Ghost"); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected category not found, got %v", err)
	}
	if _, err := svc.CreateSubcategory(ctx, refOf(category.ID), " "); err == nil {
		t.Fatalf("expected missing name error")
	}

	first, err := svc.CreateSubcategory(ctx, refOf(category.ID), "Walking")
	if err != nil {
		t.Fatalf("create subcategory: %v", err)
	}
	if _, err := svc.CreateSubcategory(ctx, refOf(category.ID), "walking"); !errors.Is(err, ErrSubcategoryExists) {
		t.Fatalf("expected duplicate subcategory conflict, got %v", err)
	}
	if _, err := svc.CreateSubcategory(ctx, refOf(category.ID), "Breathing"); err != nil {
		t.Fatalf("create second subcategory: %v", err)
	}

	renamed, err := svc.UpdateSubcategory(ctx, first.ID, "Mindful walking")
	if err != nil || renamed.Name != "Mindful walking" {
		t.Fatalf("rename subcategory: %+v %v", renamed, err)
	}

	subs, err := svc.ListSubcategories(ctx, category.ID)
	if err != nil {
		t.Fatalf("list subcategories: %v", err)
	}
	if len(subs) != 2 || subs[0].Name != "Breathing" {
		t.Fatalf("unexpected subcategories: %+v", subs)
	}

	if err := svc.DeleteSubcategory(ctx, first.ID); err != nil {
		t.Fatalf("delete subcategory: %v", err)
	}
	if err := svc.DeleteSubcategory(ctx, first.ID); !errors.Is(err, ErrSubcategoryNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}
