package db

import "time"

// VisitRecord 记录一次会话对一篇文章的浏览，从 start 到 end。
// ExitTime 为空表示浏览仍处于打开状态；Duration 仅在关闭后写入，单位为秒。
type VisitRecord struct {
	ID         uint       `gorm:"primaryKey"`
	SessionID  string     `gorm:"size:128;not null;index:idx_visit_open,priority:1"`
	Page       string     `gorm:"size:512;not null;index"`
	BlogID     uint       `gorm:"not null;index:idx_visit_open,priority:2"`
	UserID     *uint      `gorm:"index"`
	VisitTime  time.Time  `gorm:"not null"`
	ExitTime   *time.Time `gorm:"index:idx_visit_open,priority:3"`
	Duration   *float64
	DeviceInfo string `gorm:"size:512;not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName 指定自定义表名。
func (VisitRecord) TableName() string {
	return "visit_records"
}

// IsOpen reports whether the visit has not been closed yet.
func (v VisitRecord) IsOpen() bool {
	return v.ExitTime == nil
}
