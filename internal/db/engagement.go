package db

import "gorm.io/gorm"

// Comment 定义了评论模型
type Comment struct {
	gorm.Model
	Comment string `gorm:"type:text;not null"`
	BlogID  uint   `gorm:"index;not null"`
	UserID  uint   `gorm:"index;not null"`
	User    User
}

// Newsletter 记录订阅邮件的地址。
type Newsletter struct {
	gorm.Model
	Email string `gorm:"size:255;uniqueIndex;not null"`
}

// Contact 记录联系表单提交。
type Contact struct {
	gorm.Model
	Name    string `gorm:"size:255;not null"`
	Email   string `gorm:"size:255;not null"`
	Message string `gorm:"type:text;not null"`
}
