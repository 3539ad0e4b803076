package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mindfulpath/internal/apperr"
	"github.com/mindfulpath/internal/db"
	"github.com/mindfulpath/internal/locale"
	"github.com/mindfulpath/internal/storage"
)

var (
	ErrBlogNotFound      = apperr.NotFound("Blog not found")
	ErrThumbnailRequired = apperr.Field("thumbnail", "is required")
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
	thumbnailFolder  = "blogs"
)

// BlogInput 是创建或更新文章时接受的字段；更新时空值表示保持不变。
type BlogInput struct {
	Title         string
	Content       string
	Tags          []string
	Language      string
	CategoryID    Ref
	SubcategoryID Ref
	IsLive        *bool
}

// BlogFilter 描述公开文章列表的筛选条件。
type BlogFilter struct {
	Category    Ref
	Subcategory Ref
	Language    string
	Tag         string
	Search      string
	Page        int
	Limit       int
}

// BlogAuthor 是文章作者的公开信息。
type BlogAuthor struct {
	ID         uint   `json:"id"`
	Username   string `json:"username"`
	ProfilePic string `json:"profilePic"`
}

// NamedRef 是分类或子分类的简要引用。
type NamedRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// BlogSummary 是列表中的文章。
type BlogSummary struct {
	ID          uint       `json:"id"`
	Title       string     `json:"title"`
	Thumbnail   string     `json:"thumbnail"`
	Tags        []string   `json:"tags"`
	Language    string     `json:"language"`
	Category    NamedRef   `json:"category"`
	Subcategory *NamedRef  `json:"subcategory,omitempty"`
	Author      BlogAuthor `json:"author"`
	IsLive      bool       `json:"isLive"`
	Likes       int64      `json:"likes"`
	Bookmarks   int64      `json:"bookmarks"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// BlogDetail 是文章详情，包含渲染后的正文。
type BlogDetail struct {
	BlogSummary
	Content     string `json:"content"`
	ContentHTML string `json:"contentHtml"`
	Comments    int64  `json:"comments"`
}

// BlogListPage 是分页的文章列表。
type BlogListPage struct {
	Blogs      []BlogSummary `json:"blogs"`
	Pagination Pagination    `json:"pagination"`
}

// ToggleResult 是点赞或收藏切换后的状态。
type ToggleResult struct {
	Active bool  `json:"active"`
	Count  int64 `json:"count"`
}

// BlogService 管理文章及其点赞、收藏关系。
type BlogService struct {
	db       *gorm.DB
	uploader *storage.Uploader
	logger   *zap.Logger
}

func NewBlogService(gdb *gorm.DB, uploader *storage.Uploader, logger *zap.Logger) *BlogService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BlogService{db: gdb, uploader: uploader, logger: logger.Named("blogs")}
}

// Create 创建文章，缩略图必填。
func (s *BlogService) Create(ctx context.Context, authorID uint, in BlogInput, thumbnail *storage.File) (*BlogDetail, error) {
	gdb := s.db.WithContext(ctx)

	var problems []apperr.FieldProblem
	if strings.TrimSpace(in.Title) == "" {
		problems = append(problems, apperr.FieldProblem{Field: "title", Reason: "is required"})
	}
	if strings.TrimSpace(in.Content) == "" {
		problems = append(problems, apperr.FieldProblem{Field: "content", Reason: "is required"})
	}
	if in.CategoryID.Empty() {
		problems = append(problems, apperr.FieldProblem{Field: "categoryId", Reason: "is required"})
	}
	if thumbnail == nil {
		problems = append(problems, apperr.FieldProblem{Field: "thumbnail", Reason: "is required"})
	}
	if len(problems) > 0 {
		return nil, apperr.Validation("Missing required fields", problems...)
	}

	language, err := normalizeLanguage(in.Language)
	if err != nil {
		return nil, err
	}
	categoryID, subcategoryID, err := s.resolveCategory(gdb, in.CategoryID, in.SubcategoryID)
	if err != nil {
		return nil, err
	}

	url, err := s.uploader.Upload(ctx, thumbnailFolder, thumbnail)
	if err != nil {
		return nil, err
	}

	blog := db.Blog{
		Title:         strings.TrimSpace(in.Title),
		Content:       in.Content,
		Tags:          db.JoinTags(in.Tags),
		Language:      language,
		CategoryID:    categoryID,
		SubcategoryID: subcategoryID,
		Thumbnail:     url,
		AuthorID:      authorID,
		IsLive:        true,
	}
	if in.IsLive != nil {
		blog.IsLive = *in.IsLive
	}
	if err := gdb.Create(&blog).Error; err != nil {
		s.removeImage(ctx, url)
		return nil, apperr.Internal(err)
	}
	return s.Get(ctx, blog.ID, true)
}

// Update 修改文章；提供新缩略图时替换并删除旧图。
func (s *BlogService) Update(ctx context.Context, id uint, in BlogInput, thumbnail *storage.File) (*BlogDetail, error) {
	gdb := s.db.WithContext(ctx)
	blog, err := s.find(gdb, id)
	if err != nil {
		return nil, err
	}

	if title := strings.TrimSpace(in.Title); title != "" {
		blog.Title = title
	}
	if strings.TrimSpace(in.Content) != "" {
		blog.Content = in.Content
	}
	if in.Tags != nil {
		blog.Tags = db.JoinTags(in.Tags)
	}
	if strings.TrimSpace(in.Language) != "" {
		language, err := normalizeLanguage(in.Language)
		if err != nil {
			return nil, err
		}
		blog.Language = language
	}
	if in.IsLive != nil {
		blog.IsLive = *in.IsLive
	}
	if !in.CategoryID.Empty() || !in.SubcategoryID.Empty() {
		categoryRef := in.CategoryID
		if categoryRef.Empty() {
			categoryRef = Ref(strconv.FormatUint(uint64(blog.CategoryID), 10))
		}
		categoryID, subcategoryID, err := s.resolveCategory(gdb, categoryRef, in.SubcategoryID)
		if err != nil {
			return nil, err
		}
		if in.SubcategoryID.Empty() && categoryID == blog.CategoryID {
			subcategoryID = blog.SubcategoryID
		}
		blog.CategoryID = categoryID
		blog.SubcategoryID = subcategoryID
	}

	oldThumbnail := ""
	if thumbnail != nil {
		url, err := s.uploader.Upload(ctx, thumbnailFolder, thumbnail)
		if err != nil {
			return nil, err
		}
		oldThumbnail = blog.Thumbnail
		blog.Thumbnail = url
	}

	if err := gdb.Model(blog).
		Select("title", "content", "tags", "language", "category_id", "subcategory_id", "thumbnail", "is_live").
		Updates(blog).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if oldThumbnail != "" {
		s.removeImage(ctx, oldThumbnail)
	}
	return s.Get(ctx, blog.ID, true)
}

// Delete 删除文章及其评论与点赞收藏关系，浏览记录保留。
func (s *BlogService) Delete(ctx context.Context, id uint) error {
	gdb := s.db.WithContext(ctx)
	blog, err := s.find(gdb, id)
	if err != nil {
		return err
	}

	if err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("blog_id = ?", blog.ID).Delete(&db.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Model(blog).Association("Likes").Clear(); err != nil {
			return err
		}
		if err := tx.Model(blog).Association("Bookmarks").Clear(); err != nil {
			return err
		}
		return tx.Delete(blog).Error
	}); err != nil {
		return apperr.Internal(err)
	}

	s.removeImage(ctx, blog.Thumbnail)
	return nil
}

// SetAllLive 批量修改所有文章的上线状态，返回受影响的行数。
func (s *BlogService) SetAllLive(ctx context.Context, isLive bool) (int64, error) {
	res := s.db.WithContext(ctx).
		Session(&gorm.Session{AllowGlobalUpdate: true}).
		Model(&db.Blog{}).
		Update("is_live", isLive)
	if res.Error != nil {
		return 0, apperr.Internal(res.Error)
	}
	return res.RowsAffected, nil
}

// Get 返回文章详情；includeHidden 为 false 时下线文章视为不存在。
func (s *BlogService) Get(ctx context.Context, id uint, includeHidden bool) (*BlogDetail, error) {
	gdb := s.db.WithContext(ctx)
	var blog db.Blog
	if err := gdb.Preload("Category").Preload("Subcategory").Preload("Author").First(&blog, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlogNotFound
		}
		return nil, apperr.Internal(err)
	}
	if !blog.IsLive && !includeHidden {
		return nil, ErrBlogNotFound
	}

	summaries, err := s.summarize(gdb, []db.Blog{blog})
	if err != nil {
		return nil, err
	}
	html, err := RenderContent(blog.Content)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	detail := &BlogDetail{BlogSummary: summaries[0], Content: blog.Content, ContentHTML: html}
	if err := gdb.Model(&db.Comment{}).Where("blog_id = ?", blog.ID).Count(&detail.Comments).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return detail, nil
}

// List 返回已上线文章，按创建时间倒序。
func (s *BlogService) List(ctx context.Context, filter BlogFilter) (*BlogListPage, error) {
	page, limit := normalizePage(filter.Page, filter.Limit)
	categoryID, err := filter.Category.ParseOptional("category")
	if err != nil {
		return nil, err
	}
	subcategoryID, err := filter.Subcategory.ParseOptional("subcategory")
	if err != nil {
		return nil, err
	}
	language := strings.TrimSpace(filter.Language)
	if language != "" {
		if language, err = normalizeLanguage(language); err != nil {
			return nil, err
		}
	}

	gdb := s.db.WithContext(ctx)
	applyFilters := func(query *gorm.DB) *gorm.DB {
		query = query.Where("is_live = ?", true)
		if categoryID != nil {
			query = query.Where("category_id = ?", *categoryID)
		}
		if subcategoryID != nil {
			query = query.Where("subcategory_id = ?", *subcategoryID)
		}
		if language != "" {
			query = query.Where("language = ?", language)
		}
		if tag := strings.ToLower(strings.TrimSpace(filter.Tag)); tag != "" {
			query = query.Where(`(',' || LOWER(tags) || ',') LIKE ? ESCAPE '\'`, "%,"+escapeLike(tag)+",%")
		}
		if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
			query = query.Where(`LOWER(title) LIKE ? ESCAPE '\'`, "%"+escapeLike(search)+"%")
		}
		return query
	}

	var total int64
	if err := applyFilters(gdb.Model(&db.Blog{})).Count(&total).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	var blogs []db.Blog
	if err := applyFilters(gdb.Model(&db.Blog{})).
		Preload("Category").Preload("Subcategory").Preload("Author").
		Order("created_at desc, id desc").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&blogs).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	summaries, err := s.summarize(gdb, blogs)
	if err != nil {
		return nil, err
	}
	return &BlogListPage{Blogs: summaries, Pagination: newPagination(total, page, limit)}, nil
}

// ToggleLike 切换用户对文章的点赞。
func (s *BlogService) ToggleLike(ctx context.Context, id, userID uint) (*ToggleResult, error) {
	return s.toggle(ctx, id, userID, "blog_likes")
}

// ToggleBookmark 切换用户对文章的收藏。
func (s *BlogService) ToggleBookmark(ctx context.Context, id, userID uint) (*ToggleResult, error) {
	return s.toggle(ctx, id, userID, "blog_bookmarks")
}

// Saved 返回用户收藏的已上线文章。
func (s *BlogService) Saved(ctx context.Context, userID uint) ([]BlogSummary, error) {
	gdb := s.db.WithContext(ctx)
	var blogs []db.Blog
	if err := gdb.Model(&db.Blog{}).
		Joins("JOIN blog_bookmarks ON blog_bookmarks.blog_id = blogs.id").
		Where("blog_bookmarks.user_id = ? AND blogs.is_live = ?", userID, true).
		Preload("Category").Preload("Subcategory").Preload("Author").
		Order("blogs.created_at desc").
		Find(&blogs).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return s.summarize(gdb, blogs)
}

func (s *BlogService) toggle(ctx context.Context, id, userID uint, table string) (*ToggleResult, error) {
	gdb := s.db.WithContext(ctx)
	blog, err := s.find(gdb, id)
	if err != nil {
		return nil, err
	}
	if !blog.IsLive {
		return nil, ErrBlogNotFound
	}

	result := &ToggleResult{}
	err = gdb.Transaction(func(tx *gorm.DB) error {
		removed := tx.Exec("DELETE FROM "+table+" WHERE blog_id = ? AND user_id = ?", blog.ID, userID)
		if removed.Error != nil {
			return removed.Error
		}
		if removed.RowsAffected > 0 {
			return nil
		}
		result.Active = true
		return insertJoinRow(tx, table, blog.ID, userID)
	})
	if err != nil {
		return nil, apperr.Internal(err)
	}

	if err := gdb.Table(table).Where("blog_id = ?", blog.ID).Count(&result.Count).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return result, nil
}

func (s *BlogService) find(gdb *gorm.DB, id uint) (*db.Blog, error) {
	var blog db.Blog
	if err := gdb.First(&blog, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlogNotFound
		}
		return nil, apperr.Internal(err)
	}
	return &blog, nil
}

// resolveCategory 校验分类存在，且子分类隶属于该分类。
func (s *BlogService) resolveCategory(gdb *gorm.DB, categoryRef, subcategoryRef Ref) (uint, *uint, error) {
	categoryID, err := categoryRef.Parse("categoryId")
	if err != nil {
		return 0, nil, err
	}
	var category db.Category
	if err := gdb.Select("id").First(&category, categoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil, ErrCategoryNotFound
		}
		return 0, nil, apperr.Internal(err)
	}

	subcategoryID, err := subcategoryRef.ParseOptional("subcategoryId")
	if err != nil || subcategoryID == nil {
		return categoryID, nil, err
	}
	var sub db.Subcategory
	if err := gdb.Select("id", "category_id").First(&sub, *subcategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil, ErrSubcategoryNotFound
		}
		return 0, nil, apperr.Internal(err)
	}
	if sub.CategoryID != categoryID {
		return 0, nil, apperr.Field("subcategoryId", "does not belong to the category")
	}
	return categoryID, subcategoryID, nil
}

// summarize 附带点赞与收藏数量。
func (s *BlogService) summarize(gdb *gorm.DB, blogs []db.Blog) ([]BlogSummary, error) {
	ids := make([]uint, 0, len(blogs))
	for _, blog := range blogs {
		ids = append(ids, blog.ID)
	}
	likes, err := countByBlog(gdb, "blog_likes", ids)
	if err != nil {
		return nil, err
	}
	bookmarks, err := countByBlog(gdb, "blog_bookmarks", ids)
	if err != nil {
		return nil, err
	}

	summaries := make([]BlogSummary, 0, len(blogs))
	for _, blog := range blogs {
		summary := BlogSummary{
			ID:        blog.ID,
			Title:     blog.Title,
			Thumbnail: blog.Thumbnail,
			Tags:      blog.TagList(),
			Language:  blog.Language,
			Category:  NamedRef{ID: blog.CategoryID, Name: blog.Category.Name},
			Author: BlogAuthor{
				ID:         blog.AuthorID,
				Username:   blog.Author.Username,
				ProfilePic: blog.Author.ProfilePic,
			},
			IsLive:    blog.IsLive,
			Likes:     likes[blog.ID],
			Bookmarks: bookmarks[blog.ID],
			CreatedAt: blog.CreatedAt,
			UpdatedAt: blog.UpdatedAt,
		}
		if blog.Subcategory != nil {
			summary.Subcategory = &NamedRef{ID: blog.Subcategory.ID, Name: blog.Subcategory.Name}
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *BlogService) removeImage(ctx context.Context, url string) {
	if err := s.uploader.Remove(ctx, url); err != nil {
		s.logger.Warn("remove image failed", zap.String("url", url), zap.Error(err))
	}
}

func countByBlog(gdb *gorm.DB, table string, ids []uint) (map[uint]int64, error) {
	result := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return result, nil
	}
	var rows []struct {
		BlogID uint
		Total  int64
	}
	if err := gdb.Table(table).
		Select("blog_id, COUNT(*) AS total").
		Where("blog_id IN ?", ids).
		Group("blog_id").
		Scan(&rows).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	for _, row := range rows {
		result[row.BlogID] = row.Total
	}
	return result, nil
}

func normalizeLanguage(language string) (string, error) {
	if strings.TrimSpace(language) == "" {
		return db.LanguageEnglish, nil
	}
	if normalized := locale.NormalizeLanguage(language); normalized != "" {
		return normalized, nil
	}
	return "", apperr.Field("language", "must be English or Hindi")
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	return page, limit
}

// insertJoinRow 写入关联行，已存在时不报错。
func insertJoinRow(tx *gorm.DB, table string, blogID, userID uint) error {
	return tx.Table(table).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "blog_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(map[string]any{"blog_id": blogID, "user_id": userID}).Error
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// escapeLike 转义 LIKE 通配符，使用户输入按字面匹配。
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
