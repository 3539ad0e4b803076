package service

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/mindfulpath/internal/apperr"
	"github.com/mindfulpath/internal/db"
)

func insertVisit(t *testing.T, gdb *gorm.DB, blogID uint, session, page, device string, userID *uint, duration *float64) {
	t.Helper()
	visit := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	record := db.VisitRecord{
		SessionID:  session,
		Page:       page,
		BlogID:     blogID,
		UserID:     userID,
		VisitTime:  visit,
		DeviceInfo: device,
	}
	if duration != nil {
		exit := visit.Add(time.Duration(*duration * float64(time.Second)))
		record.ExitTime = &exit
		record.Duration = duration
	}
	if err := gdb.Create(&record).Error; err != nil {
		t.Fatalf("insert visit: %v", err)
	}
}

func TestAnalyticsService_WebsiteOverview(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewAnalyticsService(gdb)
	ctx := context.Background()

	admin := createUser(t, gdb, "admin", true)
	other := createUser(t, gdb, "other", true)
	reader := createUser(t, gdb, "reader", false)
	category := createCategory(t, gdb, "Mindfulness")
	live := createBlog(t, gdb, "Breathing", admin.ID, category.ID, true)
	createBlog(t, gdb, "Draft", admin.ID, category.ID, false)
	createBlog(t, gdb, "Someone else", other.ID, category.ID, true)

	insertVisit(t, gdb, live.ID, "s1", "/blog/1", "ua", &reader.ID, floatPtr(10))
	insertVisit(t, gdb, live.ID, "s2", "/blog/1", "ua", &reader.ID, floatPtr(25))
	insertVisit(t, gdb, live.ID, "s3", "/blog/1", "ua", &admin.ID, floatPtr(45))
	insertVisit(t, gdb, live.ID, "s4", "/blog/1", "ua", nil, nil)

	if err := gdb.Create(&db.Newsletter{Email: "reader@example.com"}).Error; err != nil {
		t.Fatalf("create newsletter: %v", err)
	}

	overview, err := svc.WebsiteOverview(ctx, admin.ID)
	if err != nil {
		t.Fatalf("website overview: %v", err)
	}
	if overview.Views != 2 {
		t.Fatalf("expected 2 views above the dwell threshold, got %d", overview.Views)
	}
	if overview.AvgReadTime != 0.44 {
		t.Fatalf("expected avgReadTime 0.44, got %v", overview.AvgReadTime)
	}
	if overview.ActiveUsers != 2 {
		t.Fatalf("expected 2 active users, got %d", overview.ActiveUsers)
	}
	if overview.TotalPosts != 1 {
		t.Fatalf("expected 1 live post for owner, got %d", overview.TotalPosts)
	}
	if overview.Newsletters != 1 {
		t.Fatalf("expected 1 newsletter subscriber, got %d", overview.Newsletters)
	}
}

func TestAnalyticsService_WebsiteOverviewEmpty(t *testing.T) {
	gdb := setupServiceTestDB(t)
	overview, err := NewAnalyticsService(gdb).WebsiteOverview(context.Background(), 1)
	if err != nil {
		t.Fatalf("website overview: %v", err)
	}
	if overview.Views != 0 || overview.ActiveUsers != 0 || overview.AvgReadTime != 0 {
		t.Fatalf("expected zero overview, got %+v", overview)
	}
}

func TestAnalyticsService_ArticleAnalytics(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewAnalyticsService(gdb)
	ctx := context.Background()

	admin := createUser(t, gdb, "admin", true)
	category := createCategory(t, gdb, "Sleep")
	blog := createBlog(t, gdb, "Rest", admin.ID, category.ID, true)
	untouched := createBlog(t, gdb, "Quiet", admin.ID, category.ID, true)

	insertVisit(t, gdb, blog.ID, "s1", "/blog/rest", "ua", &admin.ID, floatPtr(30))
	insertVisit(t, gdb, blog.ID, "s2", "/blog/rest", "ua", &admin.ID, floatPtr(90))
	insertVisit(t, gdb, blog.ID, "s3", "/blog/rest", "ua", nil, floatPtr(5))

	stats, err := svc.ArticleAnalytics(ctx, blog.ID)
	if err != nil {
		t.Fatalf("article analytics: %v", err)
	}
	if stats.ArticleID != blog.ID || stats.Views != 2 || stats.ActiveUsers != 1 {
		t.Fatalf("unexpected article stats: %+v", stats)
	}
	// (30+90+5)/3 = 41.67s
	if stats.AvgReadTime != 0.69 {
		t.Fatalf("expected avgReadTime 0.69, got %v", stats.AvgReadTime)
	}

	empty, err := svc.ArticleAnalytics(ctx, untouched.ID)
	if err != nil {
		t.Fatalf("article analytics without visits: %v", err)
	}
	if empty.Views != 0 || empty.AvgReadTime != 0 {
		t.Fatalf("expected zero stats, got %+v", empty)
	}

	if _, err := svc.ArticleAnalytics(ctx, 9999); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for missing article, got %v", err)
	}
}

func TestAnalyticsService_PageAnalytics(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewAnalyticsService(gdb)
	ctx := context.Background()

	empty, err := svc.PageAnalytics(ctx, "/nowhere")
	if err != nil {
		t.Fatalf("page analytics: %v", err)
	}
	if empty.TotalVisits != 0 || empty.UniqueVisitors != 0 || empty.AverageVisitDuration != 0 {
		t.Fatalf("expected zero stats, got %+v", empty)
	}
	if empty.DeviceBreakdown == nil || len(empty.DeviceBreakdown) != 0 {
		t.Fatalf("expected empty device breakdown, got %#v", empty.DeviceBreakdown)
	}

	insertVisit(t, gdb, 1, "s1", "/blog/a", "Chrome", nil, floatPtr(10))
	insertVisit(t, gdb, 1, "s1", "/blog/a", "Chrome", nil, floatPtr(20))
	insertVisit(t, gdb, 1, "s2", "/blog/a", "Safari", nil, floatPtr(60))
	insertVisit(t, gdb, 1, "s3", "/blog/a", "Chrome", nil, nil)
	insertVisit(t, gdb, 2, "s4", "/blog/b", "Edge", nil, floatPtr(99))

	stats, err := svc.PageAnalytics(ctx, "/blog/a")
	if err != nil {
		t.Fatalf("page analytics: %v", err)
	}
	if stats.TotalVisits != 4 || stats.UniqueVisitors != 3 {
		t.Fatalf("unexpected visit counts: %+v", stats)
	}
	if stats.AverageVisitDuration != 30 {
		t.Fatalf("expected average duration 30, got %v", stats.AverageVisitDuration)
	}
	if len(stats.DeviceBreakdown) != 2 || stats.DeviceBreakdown[0].DeviceInfo != "Chrome" || stats.DeviceBreakdown[0].Count != 3 {
		t.Fatalf("unexpected device breakdown: %+v", stats.DeviceBreakdown)
	}

	for _, page := range []string{"", "blog/a"} {
		if _, err := svc.PageAnalytics(ctx, page); !apperr.IsKind(err, apperr.KindValidation) {
			t.Fatalf("expected validation error for page %q, got %v", page, err)
		}
	}
}

func TestAnalyticsService_ArticlesWithViewCounts(t *testing.T) {
	gdb := setupServiceTestDB(t)
	svc := NewAnalyticsService(gdb)
	ctx := context.Background()

	admin := createUser(t, gdb, "admin", true)
	calm := createCategory(t, gdb, "Calm")
	focus := createCategory(t, gdb, "Focus")

	first := createBlog(t, gdb, "First", admin.ID, calm.ID, true)
	second := createBlog(t, gdb, "Second", admin.ID, calm.ID, true)
	third := createBlog(t, gdb, "Third", admin.ID, focus.ID, true)
	createBlog(t, gdb, "Hidden", admin.ID, calm.ID, false)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, blog := range []db.Blog{first, second, third} {
		if err := gdb.Model(&db.Blog{}).Where("id = ?", blog.ID).Update("created_at", base.Add(time.Duration(i)*time.Hour)).Error; err != nil {
			t.Fatalf("set created_at: %v", err)
		}
	}

	insertVisit(t, gdb, first.ID, "s1", "/blog/first", "ua", nil, floatPtr(25))
	insertVisit(t, gdb, first.ID, "s2", "/blog/first", "ua", nil, floatPtr(19))
	insertVisit(t, gdb, third.ID, "s3", "/blog/third", "ua", nil, floatPtr(20))
	insertVisit(t, gdb, third.ID, "s4", "/blog/third", "ua", nil, floatPtr(120))

	page, err := svc.ArticlesWithViewCounts(ctx, admin.ID, BlogViewsFilter{Page: 1, Limit: 2})
	if err != nil {
		t.Fatalf("articles with view counts: %v", err)
	}
	if page.Pagination.Total != 3 || page.Pagination.TotalPages != 2 {
		t.Fatalf("unexpected pagination: %+v", page.Pagination)
	}
	if len(page.Blogs) != 2 || page.Blogs[0].ID != third.ID || page.Blogs[1].ID != second.ID {
		t.Fatalf("expected newest first, got %+v", page.Blogs)
	}
	if page.Blogs[0].Views != 2 || page.Blogs[1].Views != 0 {
		t.Fatalf("unexpected view counts: %+v", page.Blogs)
	}

	filtered, err := svc.ArticlesWithViewCounts(ctx, admin.ID, BlogViewsFilter{Category: refOf(calm.ID), Page: 2, Limit: 1})
	if err != nil {
		t.Fatalf("filtered view counts: %v", err)
	}
	if len(filtered.Blogs) != 1 || filtered.Blogs[0].ID != first.ID || filtered.Blogs[0].Views != 1 {
		t.Fatalf("unexpected filtered page: %+v", filtered.Blogs)
	}

	invalid := []BlogViewsFilter{
		{Page: 0, Limit: 10},
		{Page: 1, Limit: -1},
		{Page: 1, Limit: 10, Category: "abc"},
		{Page: 1, Limit: 10, Subcategory: "x1"},
	}
	for _, filter := range invalid {
		if _, err := svc.ArticlesWithViewCounts(ctx, admin.ID, filter); !apperr.IsKind(err, apperr.KindValidation) {
			t.Fatalf("expected validation error for %+v, got %v", filter, err)
		}
	}
}
