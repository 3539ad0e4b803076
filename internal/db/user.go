package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DefaultProfilePic 是新用户的默认头像。
const DefaultProfilePic = "https://tse4.mm.bing.net/th/id/OIP.Me_AqujgECGQ-2cLUY2QhgHaHa?w=1920&h=1920&rs=1&pid=ImgDetMain&o=7&rm=3"

// User 定义了用户模型
type User struct {
	gorm.Model
	Username   string `gorm:"size:64;uniqueIndex;not null"`
	Email      string `gorm:"size:255;uniqueIndex;not null"`
	Password   string `gorm:"not null" json:"-"`
	ProfilePic string
	IsAdmin    bool
	LikedBlogs []Blog `gorm:"many2many:blog_likes;"`
	SavedBlogs []Blog `gorm:"many2many:blog_bookmarks;"`
}

// Role 返回用户在鉴权体系中的角色名称。
func (u User) Role() string {
	if u.IsAdmin {
		return "admin"
	}
	return "user"
}

// NormalizeEmail 统一邮箱的大小写与空白。
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EnsureAdmin 存在性检查：若提供的用户名、邮箱与密码均非空且不存在对应账号，则创建一个 bcrypt 哈希的管理员。
// 已存在的同邮箱账号会被提升为管理员。
func EnsureAdmin(gdb *gorm.DB, username, email, password string) error {
	trimmedUser := strings.TrimSpace(username)
	trimmedEmail := NormalizeEmail(email)
	trimmedPassword := strings.TrimSpace(password)
	if trimmedUser == "" || trimmedEmail == "" || trimmedPassword == "" {
		return nil
	}

	if gdb == nil {
		return errors.New("database not initialized")
	}

	var existing User
	if err := gdb.Where("email = ?", trimmedEmail).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		return gdb.Create(&User{
			Username:   trimmedUser,
			Email:      trimmedEmail,
			Password:   string(hashed),
			ProfilePic: DefaultProfilePic,
			IsAdmin:    true,
		}).Error
	}

	if existing.IsAdmin {
		return nil
	}
	return gdb.Model(&existing).Update("is_admin", true).Error
}
