package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/mindfulpath/internal/apperr"
	"github.com/mindfulpath/internal/db"
	"github.com/mindfulpath/internal/metrics"
)

var ErrNoOpenVisit = apperr.NotFound("No active session found")

// StartVisitInput 是开始一次浏览的请求参数。
type StartVisitInput struct {
	SessionID  string `json:"sessionId"`
	Page       string `json:"page"`
	ArticleID  Ref    `json:"articleId"`
	UserID     Ref    `json:"userId"`
	DeviceInfo string `json:"deviceInfo"`
}

// EndVisitInput 是结束浏览的请求参数，Duration 为客户端上报的秒数。
type EndVisitInput struct {
	SessionID string   `json:"sessionId"`
	ArticleID Ref      `json:"articleId"`
	Duration  *float64 `json:"duration"`
}

// VisitService 按 (sessionId, articleId) 配对 start/end 事件。
type VisitService struct {
	db     *gorm.DB
	now    func() time.Time
	logger *zap.Logger
}

func NewVisitService(gdb *gorm.DB, logger *zap.Logger) *VisitService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VisitService{db: gdb, now: time.Now, logger: logger.Named("visits")}
}

// WithClock 替换时间源，便于测试。
func (s *VisitService) WithClock(now func() time.Time) *VisitService {
	if now != nil {
		s.now = now
	}
	return s
}

// Start 打开一条新的浏览记录；同一 (session, article) 已有的打开记录会先被关闭。
// 关闭与插入是两次独立写入，并发的重复 start 仍可能留下两条打开记录。
func (s *VisitService) Start(ctx context.Context, in StartVisitInput) (*db.VisitRecord, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	page := strings.TrimSpace(in.Page)
	deviceInfo := strings.TrimSpace(in.DeviceInfo)

	if problems := missingFields(map[string]string{
		"sessionId":  sessionID,
		"page":       page,
		"articleId":  string(in.ArticleID),
		"deviceInfo": deviceInfo,
	}, "sessionId", "page", "articleId", "deviceInfo"); len(problems) > 0 {
		return nil, apperr.Validation("Missing required fields", problems...)
	}

	blogID, err := in.ArticleID.Parse("articleId")
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(page, "/") {
		return nil, apperr.Field("page", "must start with /")
	}

	gdb := s.db.WithContext(ctx)
	now := s.now()

	if _, err := s.closeOpen(gdb, sessionID, blogID, now, nil, metrics.CloseImplicit); err != nil {
		return nil, err
	}

	record := db.VisitRecord{
		SessionID:  sessionID,
		Page:       page,
		BlogID:     blogID,
		UserID:     s.resolveUser(gdb, in.UserID),
		VisitTime:  now,
		DeviceInfo: deviceInfo,
	}
	if err := gdb.Create(&record).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	metrics.RecordVisitStarted()
	return &record, nil
}

// End 关闭 (session, article) 的打开记录；没有打开记录时返回 NotFound。
func (s *VisitService) End(ctx context.Context, in EndVisitInput) (*db.VisitRecord, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if problems := missingFields(map[string]string{
		"sessionId": sessionID,
		"articleId": string(in.ArticleID),
	}, "sessionId", "articleId"); len(problems) > 0 {
		return nil, apperr.Validation("Missing required fields", problems...)
	}
	blogID, err := in.ArticleID.Parse("articleId")
	if err != nil {
		return nil, err
	}
	if in.Duration != nil && *in.Duration < 0 {
		return nil, apperr.Field("duration", "must not be negative")
	}

	closed, err := s.closeOpen(s.db.WithContext(ctx), sessionID, blogID, s.now(), in.Duration, metrics.CloseExplicit)
	if err != nil {
		return nil, err
	}
	if len(closed) == 0 {
		return nil, ErrNoOpenVisit
	}
	return &closed[0], nil
}

// closeOpen 用带 exit_time IS NULL 条件的原子更新关闭所有打开记录，最近的记录排在首位。
// 已被并发请求关闭的记录会被跳过。
func (s *VisitService) closeOpen(gdb *gorm.DB, sessionID string, blogID uint, now time.Time, explicit *float64, reason string) ([]db.VisitRecord, error) {
	var open []db.VisitRecord
	if err := gdb.Where("session_id = ? AND blog_id = ? AND exit_time IS NULL", sessionID, blogID).
		Order("visit_time desc, id desc").
		Find(&open).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	closed := make([]db.VisitRecord, 0, len(open))
	for i, record := range open {
		duration := now.Sub(record.VisitTime).Seconds()
		if explicit != nil && i == 0 {
			duration = *explicit
		}
		if duration < 0 {
			duration = 0
		}

		res := gdb.Model(&db.VisitRecord{}).
			Where("id = ? AND exit_time IS NULL", record.ID).
			Updates(map[string]any{"exit_time": now, "duration": duration})
		if res.Error != nil {
			return nil, apperr.Internal(res.Error)
		}
		if res.RowsAffected == 0 {
			continue
		}

		exit := now
		record.ExitTime = &exit
		record.Duration = &duration
		closed = append(closed, record)
		metrics.RecordVisitClosed(reason)
	}

	if reason == metrics.CloseImplicit && len(closed) > 0 {
		s.logger.Debug("closed stale visit", zap.String("session_id", sessionID), zap.Uint("blog_id", blogID), zap.Int("count", len(closed)))
	}
	return closed, nil
}

// resolveUser 返回存在的用户 ID；无法解析或不存在的用户被静默丢弃。
func (s *VisitService) resolveUser(gdb *gorm.DB, ref Ref) *uint {
	if ref.Empty() {
		return nil
	}
	id, err := ref.Parse("userId")
	if err != nil {
		return nil
	}
	var user db.User
	if err := gdb.Select("id").First(&user, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn("lookup visit user failed", zap.Uint("user_id", id), zap.Error(err))
		}
		return nil
	}
	return &id
}
