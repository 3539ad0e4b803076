package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/mindfulpath/internal/apperr"
	"github.com/mindfulpath/internal/db"
)

var ErrNotRegistered = apperr.Validation("You are not registered")

// ContactInput 是联系表单的字段。
type ContactInput struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Message string `json:"message" validate:"required,max=5000"`
}

// EngagementService 处理订阅与联系表单，两者都要求邮箱属于已注册用户。
type EngagementService struct {
	db *gorm.DB
}

func NewEngagementService(gdb *gorm.DB) *EngagementService {
	return &EngagementService{db: gdb}
}

// Subscribe 订阅邮件；已订阅时返回 false 且不报错。
func (s *EngagementService) Subscribe(ctx context.Context, email string) (bool, error) {
	email = db.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return false, err
	}
	gdb := s.db.WithContext(ctx)

	var existing db.Newsletter
	err := gdb.Where("email = ?", email).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, apperr.Internal(err)
	}

	if err := s.requireRegistered(gdb, email); err != nil {
		return false, err
	}
	if err := gdb.Create(&db.Newsletter{Email: email}).Error; err != nil {
		return false, apperr.Internal(err)
	}
	return true, nil
}

// SubmitContact 保存联系表单，消息内容去除 HTML。
func (s *EngagementService) SubmitContact(ctx context.Context, in ContactInput) (*db.Contact, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = db.NormalizeEmail(in.Email)
	in.Message = SanitizeText(in.Message)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	gdb := s.db.WithContext(ctx)
	if err := s.requireRegistered(gdb, in.Email); err != nil {
		return nil, err
	}
	contact := db.Contact{Name: SanitizeText(in.Name), Email: in.Email, Message: in.Message}
	if err := gdb.Create(&contact).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return &contact, nil
}

// SubscriberCount returns the number of newsletter subscribers.
func (s *EngagementService) SubscriberCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&db.Newsletter{}).Count(&count).Error; err != nil {
		return 0, apperr.Internal(err)
	}
	return count, nil
}

func (s *EngagementService) requireRegistered(gdb *gorm.DB, email string) error {
	var count int64
	if err := gdb.Model(&db.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return apperr.Internal(err)
	}
	if count == 0 {
		return ErrNotRegistered
	}
	return nil
}
