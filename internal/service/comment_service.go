package service

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/mindfulpath/internal/apperr"
	"github.com/mindfulpath/internal/db"
	"github.com/mindfulpath/internal/security"
)

// MaxCommentLength 是评论允许的最大字符数。
const MaxCommentLength = 2000

var ErrCommentNotFound = apperr.NotFound("Comment not found")

// CommentView is the JSON shape of a comment.
type CommentView struct {
	ID        uint       `json:"id"`
	Comment   string     `json:"comment"`
	BlogID    uint       `json:"blogId"`
	User      BlogAuthor `json:"user"`
	CreatedAt time.Time  `json:"createdAt"`
}

// CommentService 管理文章评论。
type CommentService struct {
	db *gorm.DB
}

func NewCommentService(gdb *gorm.DB) *CommentService {
	return &CommentService{db: gdb}
}

// Add 为已上线的文章添加评论，内容会去除 HTML。
func (s *CommentService) Add(ctx context.Context, blogID, userID uint, text string) (*CommentView, error) {
	gdb := s.db.WithContext(ctx)

	clean := SanitizeText(text)
	if clean == "" {
		return nil, apperr.Field("comment", "is required")
	}
	if utf8.RuneCountInString(clean) > MaxCommentLength {
		return nil, apperr.Field("comment", "must be at most 2000 characters")
	}

	var blog db.Blog
	if err := gdb.Select("id", "is_live").First(&blog, blogID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBlogNotFound
		}
		return nil, apperr.Internal(err)
	}
	if !blog.IsLive {
		return nil, ErrBlogNotFound
	}

	comment := db.Comment{Comment: clean, BlogID: blogID, UserID: userID}
	if err := gdb.Create(&comment).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if err := gdb.Preload("User").First(&comment, comment.ID).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	view := commentView(comment)
	return &view, nil
}

// List 返回文章的评论，最新的在前。
func (s *CommentService) List(ctx context.Context, blogID uint) ([]CommentView, error) {
	var comments []db.Comment
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("blog_id = ?", blogID).
		Order("created_at desc, id desc").
		Find(&comments).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	views := make([]CommentView, 0, len(comments))
	for _, comment := range comments {
		views = append(views, commentView(comment))
	}
	return views, nil
}

// Delete 删除评论，仅评论作者或管理员可以操作。
func (s *CommentService) Delete(ctx context.Context, claims *security.Claims, id uint) error {
	gdb := s.db.WithContext(ctx)
	var comment db.Comment
	if err := gdb.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return apperr.Internal(err)
	}
	if err := security.RequireOwnerOrRole(claims, comment.UserID, security.RoleAdmin); err != nil {
		return err
	}
	if err := gdb.Delete(&comment).Error; err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func commentView(comment db.Comment) CommentView {
	return CommentView{
		ID:      comment.ID,
		Comment: comment.Comment,
		BlogID:  comment.BlogID,
		User: BlogAuthor{
			ID:         comment.UserID,
			Username:   comment.User.Username,
			ProfilePic: comment.User.ProfilePic,
		},
		CreatedAt: comment.CreatedAt,
	}
}
