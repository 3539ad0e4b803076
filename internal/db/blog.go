package db

import (
	"strings"

	"gorm.io/gorm"

	"github.com/mindfulpath/internal/locale"
)

// 支持的文章语言
const (
	LanguageEnglish = locale.English
	LanguageHindi   = locale.Hindi
)

// Blog 定义了文章模型
type Blog struct {
	gorm.Model
	Title         string `gorm:"size:255;not null"`
	Content       string `gorm:"type:text;not null"`
	Tags          string `gorm:"size:1024"`
	Language      string `gorm:"size:16;not null"`
	CategoryID    uint   `gorm:"index;not null"`
	Category      Category
	SubcategoryID *uint `gorm:"index"`
	Subcategory   *Subcategory
	Thumbnail     string `gorm:"not null"`
	AuthorID      uint   `gorm:"index;not null"`
	Author        User
	IsLive        bool   `gorm:"index"`
	Likes         []User `gorm:"many2many:blog_likes;"`
	Bookmarks     []User `gorm:"many2many:blog_bookmarks;"`
}

// TagList 将逗号分隔的标签拆分为切片。
func (b Blog) TagList() []string {
	if strings.TrimSpace(b.Tags) == "" {
		return []string{}
	}
	parts := strings.Split(b.Tags, ",")
	tags := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

// JoinTags 去重并拼接标签，保持输入顺序。
func JoinTags(tags []string) string {
	seen := make(map[string]struct{}, len(tags))
	kept := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, ",")
}
