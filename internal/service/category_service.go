package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mindfulpath/internal/apperr"
	"github.com/mindfulpath/internal/db"
	"github.com/mindfulpath/internal/storage"
)

var (
	ErrCategoryNotFound    = apperr.NotFound("Category not found")
	ErrSubcategoryNotFound = apperr.NotFound("Subcategory not found")
	ErrCategoryExists      = apperr.Conflict("Category already exists")
	ErrSubcategoryExists   = apperr.Conflict("Subcategory already exists")
	ErrCategoryInUse       = apperr.Conflict("Category is used by existing blogs")
	ErrSubcategoryInUse    = apperr.Conflict("Subcategory is used by existing blogs")
)

const categoryFolder = "categories"

// CategoryInput 是创建或更新分类的字段。
type CategoryInput struct {
	Name        string
	Description *string
}

// SubcategoryView is the JSON shape of a subcategory.
type SubcategoryView struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	CategoryID uint   `json:"categoryId"`
}

// CategoryView is the JSON shape of a category.
type CategoryView struct {
	ID            uint              `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	CategoryImage string            `json:"categoryImage"`
	Subcategories []SubcategoryView `json:"subcategories"`
}

// CategoryService 管理分类与子分类。
type CategoryService struct {
	db       *gorm.DB
	uploader *storage.Uploader
	logger   *zap.Logger
}

func NewCategoryService(gdb *gorm.DB, uploader *storage.Uploader, logger *zap.Logger) *CategoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CategoryService{db: gdb, uploader: uploader, logger: logger.Named("categories")}
}

// List 返回全部分类及其子分类，按名称排序。
func (s *CategoryService) List(ctx context.Context) ([]CategoryView, error) {
	var categories []db.Category
	if err := s.db.WithContext(ctx).
		Preload("Subcategories", func(tx *gorm.DB) *gorm.DB { return tx.Order("name asc") }).
		Order("name asc").
		Find(&categories).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	views := make([]CategoryView, 0, len(categories))
	for _, category := range categories {
		views = append(views, categoryView(category))
	}
	return views, nil
}

// Get 返回单个分类。
func (s *CategoryService) Get(ctx context.Context, id uint) (*CategoryView, error) {
	category, err := s.find(s.db.WithContext(ctx).Preload("Subcategories"), id)
	if err != nil {
		return nil, err
	}
	view := categoryView(*category)
	return &view, nil
}

// Create 创建分类，名称不区分大小写唯一；未上传图片时使用默认封面。
func (s *CategoryService) Create(ctx context.Context, in CategoryInput, image *storage.File) (*CategoryView, error) {
	gdb := s.db.WithContext(ctx)
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Field("name", "is required")
	}
	if err := s.ensureUniqueName(gdb, name, 0); err != nil {
		return nil, err
	}

	category := db.Category{Name: name, CategoryImage: db.DefaultCategoryImage}
	if in.Description != nil {
		category.Description = strings.TrimSpace(*in.Description)
	}
	if image != nil {
		url, err := s.uploader.Upload(ctx, categoryFolder, image)
		if err != nil {
			return nil, err
		}
		category.CategoryImage = url
	}
	if err := gdb.Create(&category).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	view := categoryView(category)
	return &view, nil
}

// Update 修改分类名称、描述或图片。
func (s *CategoryService) Update(ctx context.Context, id uint, in CategoryInput, image *storage.File) (*CategoryView, error) {
	gdb := s.db.WithContext(ctx)
	category, err := s.find(gdb, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(in.Name); name != "" && name != category.Name {
		if err := s.ensureUniqueName(gdb, name, category.ID); err != nil {
			return nil, err
		}
		category.Name = name
	}
	if in.Description != nil {
		category.Description = strings.TrimSpace(*in.Description)
	}
	oldImage := ""
	if image != nil {
		url, err := s.uploader.Upload(ctx, categoryFolder, image)
		if err != nil {
			return nil, err
		}
		oldImage = category.CategoryImage
		category.CategoryImage = url
	}

	if err := gdb.Model(category).Select("name", "description", "category_image").Updates(category).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if oldImage != "" && oldImage != db.DefaultCategoryImage {
		s.removeImage(ctx, oldImage)
	}
	return s.Get(ctx, category.ID)
}

// Delete 删除未被文章引用的分类及其子分类。
func (s *CategoryService) Delete(ctx context.Context, id uint) error {
	gdb := s.db.WithContext(ctx)
	category, err := s.find(gdb, id)
	if err != nil {
		return err
	}

	var inUse int64
	if err := gdb.Model(&db.Blog{}).Where("category_id = ?", category.ID).Count(&inUse).Error; err != nil {
		return apperr.Internal(err)
	}
	if inUse > 0 {
		return ErrCategoryInUse
	}

	if err := gdb.Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("category_id = ?", category.ID).Delete(&db.Subcategory{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(category).Error
	}); err != nil {
		return apperr.Internal(err)
	}
	if category.CategoryImage != db.DefaultCategoryImage {
		s.removeImage(ctx, category.CategoryImage)
	}
	return nil
}

// CreateSubcategory 在已存在的分类下创建子分类。
func (s *CategoryService) CreateSubcategory(ctx context.Context, categoryRef Ref, name string) (*SubcategoryView, error) {
	gdb := s.db.WithContext(ctx)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Field("name", "is required")
	}
	if categoryRef.Empty() {
		return nil, apperr.Field("categoryId", "is required")
	}
	categoryID, err := categoryRef.Parse("categoryId")
	if err != nil {
		return nil, err
	}
	if _, err := s.find(gdb, categoryID); err != nil {
		return nil, err
	}
	if err := s.ensureUniqueSubcategory(gdb, categoryID, name, 0); err != nil {
		return nil, err
	}

	sub := db.Subcategory{Name: name, CategoryID: categoryID}
	if err := gdb.Create(&sub).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	view := subcategoryView(sub)
	return &view, nil
}

// ListSubcategories returns the subcategories of one category.
func (s *CategoryService) ListSubcategories(ctx context.Context, categoryID uint) ([]SubcategoryView, error) {
	gdb := s.db.WithContext(ctx)
	if _, err := s.find(gdb, categoryID); err != nil {
		return nil, err
	}
	var subs []db.Subcategory
	if err := gdb.Where("category_id = ?", categoryID).Order("name asc").Find(&subs).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	views := make([]SubcategoryView, 0, len(subs))
	for _, sub := range subs {
		views = append(views, subcategoryView(sub))
	}
	return views, nil
}

// UpdateSubcategory 重命名子分类。
func (s *CategoryService) UpdateSubcategory(ctx context.Context, id uint, name string) (*SubcategoryView, error) {
	gdb := s.db.WithContext(ctx)
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperr.Field("name", "is required")
	}
	sub, err := s.findSubcategory(gdb, id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureUniqueSubcategory(gdb, sub.CategoryID, name, sub.ID); err != nil {
		return nil, err
	}
	if err := gdb.Model(sub).Update("name", name).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	sub.Name = name
	view := subcategoryView(*sub)
	return &view, nil
}

// DeleteSubcategory 删除未被文章引用的子分类。
func (s *CategoryService) DeleteSubcategory(ctx context.Context, id uint) error {
	gdb := s.db.WithContext(ctx)
	sub, err := s.findSubcategory(gdb, id)
	if err != nil {
		return err
	}
	var inUse int64
	if err := gdb.Model(&db.Blog{}).Where("subcategory_id = ?", sub.ID).Count(&inUse).Error; err != nil {
		return apperr.Internal(err)
	}
	if inUse > 0 {
		return ErrSubcategoryInUse
	}
	if err := gdb.Unscoped().Delete(sub).Error; err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *CategoryService) find(gdb *gorm.DB, id uint) (*db.Category, error) {
	var category db.Category
	if err := gdb.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, apperr.Internal(err)
	}
	return &category, nil
}

func (s *CategoryService) findSubcategory(gdb *gorm.DB, id uint) (*db.Subcategory, error) {
	var sub db.Subcategory
	if err := gdb.First(&sub, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubcategoryNotFound
		}
		return nil, apperr.Internal(err)
	}
	return &sub, nil
}

func (s *CategoryService) ensureUniqueName(gdb *gorm.DB, name string, exceptID uint) error {
	var count int64
	query := gdb.Model(&db.Category{}).Where("LOWER(name) = ?", strings.ToLower(name))
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return apperr.Internal(err)
	}
	if count > 0 {
		return ErrCategoryExists
	}
	return nil
}

func (s *CategoryService) ensureUniqueSubcategory(gdb *gorm.DB, categoryID uint, name string, exceptID uint) error {
	var count int64
	query := gdb.Model(&db.Subcategory{}).Where("category_id = ? AND LOWER(name) = ?", categoryID, strings.ToLower(name))
	if exceptID != 0 {
		query = query.Where("id <> ?", exceptID)
	}
	if err := query.Count(&count).Error; err != nil {
		return apperr.Internal(err)
	}
	if count > 0 {
		return ErrSubcategoryExists
	}
	return nil
}

func (s *CategoryService) removeImage(ctx context.Context, url string) {
	if err := s.uploader.Remove(ctx, url); err != nil {
		s.logger.Warn("remove image failed", zap.String("url", url), zap.Error(err))
	}
}

func categoryView(category db.Category) CategoryView {
	view := CategoryView{
		ID:            category.ID,
		Name:          category.Name,
		Description:   category.Description,
		CategoryImage: category.CategoryImage,
		Subcategories: make([]SubcategoryView, 0, len(category.Subcategories)),
	}
	for _, sub := range category.Subcategories {
		view.Subcategories = append(view.Subcategories, subcategoryView(sub))
	}
	return view
}

func subcategoryView(sub db.Subcategory) SubcategoryView {
	return SubcategoryView{ID: sub.ID, Name: sub.Name, CategoryID: sub.CategoryID}
}
