package db

import "gorm.io/gorm"

// DefaultCategoryImage 是未上传图片时的分类封面。
const DefaultCategoryImage = "https://www.datang-dsspower.co.id/~img/istockphoto_1357365823_612x612-06298-3800_209-twebp80.webp"

// Category 定义了分类模型
type Category struct {
	gorm.Model
	Name          string `gorm:"size:128;uniqueIndex;not null"`
	Description   string
	CategoryImage string
	Subcategories []Subcategory
}

// Subcategory 定义了子分类模型
type Subcategory struct {
	gorm.Model
	Name       string `gorm:"size:128;not null"`
	CategoryID uint   `gorm:"index;not null"`
}
