package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/mindfulpath/internal/apperr"
	"github.com/mindfulpath/internal/db"
)

// DwellThreshold 是一次浏览被计为有效阅读的最短时长（秒）。
const DwellThreshold = 20.0

// AnalyticsService 基于浏览记录计算只读的统计数据。
type AnalyticsService struct {
	db *gorm.DB
}

// NewAnalyticsService 创建 AnalyticsService。
func NewAnalyticsService(gdb *gorm.DB) *AnalyticsService {
	return &AnalyticsService{db: gdb}
}

// WebsiteOverview 汇总全站数据。
type WebsiteOverview struct {
	Views       int64   `json:"views"`
	ActiveUsers int64   `json:"activeUsers"`
	AvgReadTime float64 `json:"avgReadTime"`
	TotalPosts  int64   `json:"totalPosts"`
	Newsletters int64   `json:"newsletters"`
}

// ArticleAnalytics 是单篇文章的统计。
type ArticleAnalytics struct {
	ArticleID   uint    `json:"articleId"`
	Views       int64   `json:"views"`
	ActiveUsers int64   `json:"activeUsers"`
	AvgReadTime float64 `json:"avgReadTime"`
}

// DeviceCount 是按设备信息分组的访问次数。
type DeviceCount struct {
	DeviceInfo string `json:"deviceInfo"`
	Count      int64  `json:"count"`
}

// PageAnalytics 是某个页面路径的访问统计。
type PageAnalytics struct {
	Page                 string        `json:"page"`
	TotalVisits          int64         `json:"totalVisits"`
	UniqueVisitors       int64         `json:"uniqueVisitors"`
	AverageVisitDuration float64       `json:"averageVisitDuration"`
	DeviceBreakdown      []DeviceCount `json:"deviceBreakdown"`
}

// BlogViews 是带有有效阅读次数的文章摘要。
type BlogViews struct {
	ID          uint      `json:"id"`
	Title       string    `json:"title"`
	Thumbnail   string    `json:"thumbnail"`
	Language    string    `json:"language"`
	Tags        []string  `json:"tags"`
	Category    string    `json:"category"`
	Subcategory string    `json:"subcategory,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	Views       int64     `json:"views"`
}

// BlogViewsPage 是分页的文章阅读统计。
type BlogViewsPage struct {
	Blogs      []BlogViews `json:"blogs"`
	Pagination Pagination  `json:"pagination"`
}

// BlogViewsFilter 描述 articlesWithViewCounts 的查询条件。
type BlogViewsFilter struct {
	Category    Ref
	Subcategory Ref
	Page        int
	Limit       int
}

// WebsiteOverview 汇总全站浏览数据，并统计 ownerID 已上线的文章数与订阅总数。
// avgReadTime 为 (有时长记录的时长总和 / 记录数) / 60，保留两位小数。
func (s *AnalyticsService) WebsiteOverview(ctx context.Context, ownerID uint) (*WebsiteOverview, error) {
	gdb := s.db.WithContext(ctx)
	var overview WebsiteOverview

	views, activeUsers, err := s.engagement(gdb.Model(&db.VisitRecord{}))
	if err != nil {
		return nil, err
	}
	overview.Views = views
	overview.ActiveUsers = activeUsers

	var totals struct {
		Total float64
		Count int64
	}
	if err := gdb.Model(&db.VisitRecord{}).
		Select("COALESCE(SUM(duration), 0) AS total, COUNT(duration) AS count").
		Where("duration IS NOT NULL").
		Scan(&totals).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if totals.Count > 0 {
		overview.AvgReadTime = round2(totals.Total / float64(totals.Count) / 60)
	}

	if err := gdb.Model(&db.Blog{}).
		Where("author_id = ? AND is_live = ?", ownerID, true).
		Count(&overview.TotalPosts).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if err := gdb.Model(&db.Newsletter{}).Count(&overview.Newsletters).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return &overview, nil
}

// ArticleAnalytics 统计单篇文章；avgReadTime 取时长的算术平均值（分钟）。
func (s *AnalyticsService) ArticleAnalytics(ctx context.Context, articleID uint) (*ArticleAnalytics, error) {
	gdb := s.db.WithContext(ctx)

	var blog db.Blog
	if err := gdb.Select("id").First(&blog, articleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlogNotFound
		}
		return nil, apperr.Internal(err)
	}

	scoped := func() *gorm.DB {
		return gdb.Model(&db.VisitRecord{}).Where("blog_id = ?", articleID)
	}

	views, activeUsers, err := s.engagement(scoped())
	if err != nil {
		return nil, err
	}

	var mean struct{ Avg *float64 }
	if err := scoped().Select("AVG(duration) AS avg").Where("duration IS NOT NULL").Scan(&mean).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	stats := &ArticleAnalytics{ArticleID: articleID, Views: views, ActiveUsers: activeUsers}
	if mean.Avg != nil {
		stats.AvgReadTime = round2(*mean.Avg / 60)
	}
	return stats, nil
}

// PageAnalytics 统计某个页面路径的访问；无记录时返回全零与空分组。
func (s *AnalyticsService) PageAnalytics(ctx context.Context, page string) (*PageAnalytics, error) {
	page = strings.TrimSpace(page)
	if page == "" {
		return nil, apperr.Field("page", "is required")
	}
	if !strings.HasPrefix(page, "/") {
		return nil, apperr.Field("page", "must start with /")
	}

	gdb := s.db.WithContext(ctx)
	scoped := func() *gorm.DB {
		return gdb.Model(&db.VisitRecord{}).Where("page = ?", page)
	}

	stats := &PageAnalytics{Page: page, DeviceBreakdown: []DeviceCount{}}
	if err := scoped().Count(&stats.TotalVisits).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if stats.TotalVisits == 0 {
		return stats, nil
	}
	if err := scoped().Distinct("session_id").Count(&stats.UniqueVisitors).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	var mean struct{ Avg *float64 }
	if err := scoped().Select("AVG(duration) AS avg").Where("duration IS NOT NULL").Scan(&mean).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if mean.Avg != nil {
		stats.AverageVisitDuration = round2(*mean.Avg)
	}

	if err := scoped().
		Select("device_info, COUNT(*) AS count").
		Group("device_info").
		Order("count DESC, device_info ASC").
		Scan(&stats.DeviceBreakdown).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return stats, nil
}

// ArticlesWithViewCounts 分页列出 ownerID 已上线的文章及其有效阅读次数，按创建时间倒序。
func (s *AnalyticsService) ArticlesWithViewCounts(ctx context.Context, ownerID uint, filter BlogViewsFilter) (*BlogViewsPage, error) {
	if filter.Page <= 0 {
		return nil, apperr.Field("page", "must be a positive integer")
	}
	if filter.Limit <= 0 {
		return nil, apperr.Field("limit", "must be a positive integer")
	}
	categoryID, err := filter.Category.ParseOptional("category")
	if err != nil {
		return nil, err
	}
	subcategoryID, err := filter.Subcategory.ParseOptional("subcategory")
	if err != nil {
		return nil, err
	}

	gdb := s.db.WithContext(ctx)
	applyFilters := func(query *gorm.DB) *gorm.DB {
		query = query.Where("author_id = ? AND is_live = ?", ownerID, true)
		if categoryID != nil {
			query = query.Where("category_id = ?", *categoryID)
		}
		if subcategoryID != nil {
			query = query.Where("subcategory_id = ?", *subcategoryID)
		}
		return query
	}

	var total int64
	if err := applyFilters(gdb.Model(&db.Blog{})).Count(&total).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	var blogs []db.Blog
	if err := applyFilters(gdb.Model(&db.Blog{})).
		Preload("Category").
		Preload("Subcategory").
		Order("created_at desc, id desc").
		Limit(filter.Limit).
		Offset((filter.Page - 1) * filter.Limit).
		Find(&blogs).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	ids := make([]uint, 0, len(blogs))
	for _, blog := range blogs {
		ids = append(ids, blog.ID)
	}
	counts, err := s.ViewCounts(ctx, ids)
	if err != nil {
		return nil, err
	}

	result := &BlogViewsPage{
		Blogs:      make([]BlogViews, 0, len(blogs)),
		Pagination: newPagination(total, filter.Page, filter.Limit),
	}
	for _, blog := range blogs {
		item := BlogViews{
			ID:        blog.ID,
			Title:     blog.Title,
			Thumbnail: blog.Thumbnail,
			Language:  blog.Language,
			Tags:      blog.TagList(),
			Category:  blog.Category.Name,
			CreatedAt: blog.CreatedAt,
			Views:     counts[blog.ID],
		}
		if blog.Subcategory != nil {
			item.Subcategory = blog.Subcategory.Name
		}
		result.Blogs = append(result.Blogs, item)
	}
	return result, nil
}

// ViewCounts 返回指定文章的有效阅读次数，没有阅读的文章不会出现在结果中。
func (s *AnalyticsService) ViewCounts(ctx context.Context, blogIDs []uint) (map[uint]int64, error) {
	result := make(map[uint]int64, len(blogIDs))
	if len(blogIDs) == 0 {
		return result, nil
	}

	var rows []struct {
		BlogID uint
		Views  int64
	}
	if err := s.db.WithContext(ctx).Model(&db.VisitRecord{}).
		Select("blog_id, COUNT(*) AS views").
		Where("blog_id IN ? AND duration >= ?", blogIDs, DwellThreshold).
		Group("blog_id").
		Scan(&rows).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	for _, row := range rows {
		result[row.BlogID] = row.Views
	}
	return result, nil
}

// engagement 计算有效阅读数与去重的登录用户数。
func (s *AnalyticsService) engagement(scoped *gorm.DB) (int64, int64, error) {
	var views int64
	if err := scoped.Session(&gorm.Session{}).Where("duration >= ?", DwellThreshold).Count(&views).Error; err != nil {
		return 0, 0, apperr.Internal(err)
	}
	var activeUsers int64
	if err := scoped.Session(&gorm.Session{}).Where("user_id IS NOT NULL").Distinct("user_id").Count(&activeUsers).Error; err != nil {
		return 0, 0, apperr.Internal(err)
	}
	return views, activeUsers, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
