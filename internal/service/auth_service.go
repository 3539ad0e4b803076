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
	"github.com/mindfulpath/internal/mail"
	"github.com/mindfulpath/internal/metrics"
	"github.com/mindfulpath/internal/otp"
	"github.com/mindfulpath/internal/security"
	"github.com/mindfulpath/internal/storage"
)

var (
	ErrUserExists         = apperr.Conflict("User already exists")
	ErrUsernameTaken      = apperr.Conflict("Username is already taken")
	ErrUserNotFound       = apperr.NotFound("User not found")
	ErrInvalidCredentials = apperr.Auth("Invalid email or password")
	ErrSamePassword       = apperr.Validation("New password must be different from the current password")
)

const profileFolder = "profiles"

// RegisterInput 是完成注册所需的字段。
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
	OTP      string `json:"otp" validate:"required,len=6,numeric"`
}

// LoginInput 是登录所需的字段。
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// UserView 是返回给客户端的用户信息。
type UserView struct {
	ID         uint      `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	ProfilePic string    `json:"profilePic"`
	IsAdmin    bool      `json:"isAdmin"`
	Role       string    `json:"role"`
	CreatedAt  time.Time `json:"createdAt"`
}

// AuthResult 是注册或登录成功后的令牌与用户。
type AuthResult struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// AuthService 负责账号、登录与基于验证码的注册和重置密码流程。
type AuthService struct {
	db       *gorm.DB
	issuer   *otp.Issuer
	mailer   mail.Mailer
	tokens   *security.JWTManager
	uploader *storage.Uploader
	logger   *zap.Logger
}

func NewAuthService(gdb *gorm.DB, issuer *otp.Issuer, mailer mail.Mailer, tokens *security.JWTManager, uploader *storage.Uploader, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		db:       gdb,
		issuer:   issuer,
		mailer:   mailer,
		tokens:   tokens,
		uploader: uploader,
		logger:   logger.Named("auth"),
	}
}

// RequestRegistrationOTP 为未注册的邮箱签发注册验证码，已注册时返回 Conflict。
func (s *AuthService) RequestRegistrationOTP(ctx context.Context, email string) error {
	email = db.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	exists, err := s.emailExists(s.db.WithContext(ctx), email)
	if err != nil {
		return err
	}
	if exists {
		return ErrUserExists
	}
	return s.issueAndSend(ctx, otp.PurposeRegistration, email)
}

// Register 校验注册验证码并创建账号，成功后验证码被删除。
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = db.NormalizeEmail(in.Email)
	in.OTP = strings.TrimSpace(in.OTP)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	if _, err := s.issuer.Check(ctx, otp.PurposeRegistration, in.Email, in.OTP); err != nil {
		return nil, err
	}

	gdb := s.db.WithContext(ctx)
	exists, err := s.emailExists(gdb, in.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrUserExists
	}
	var taken int64
	if err := gdb.Model(&db.User{}).Where("username = ?", in.Username).Count(&taken).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if taken > 0 {
		return nil, ErrUsernameTaken
	}

	hashed, err := security.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	user := db.User{
		Username:   in.Username,
		Email:      in.Email,
		Password:   hashed,
		ProfilePic: db.DefaultProfilePic,
	}
	if err := gdb.Create(&user).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	if err := s.issuer.Discard(ctx, otp.PurposeRegistration, in.Email); err != nil {
		s.logger.Warn("discard registration otp failed", zap.String("email", in.Email), zap.Error(err))
	}
	metrics.RecordOTPVerified(string(otp.PurposeRegistration))
	return s.authResult(user)
}

// Login 校验邮箱与密码并签发访问令牌。
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	in.Email = db.NormalizeEmail(in.Email)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	var user db.User
	if err := s.db.WithContext(ctx).Where("email = ?", in.Email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, apperr.Internal(err)
	}
	if !security.CheckPassword(user.Password, in.Password) {
		return nil, ErrInvalidCredentials
	}
	return s.authResult(user)
}

// Profile returns the current user.
func (s *AuthService) Profile(ctx context.Context, userID uint) (*UserView, error) {
	user, err := s.findUser(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	view := userView(*user)
	return &view, nil
}

// UpdateProfile 修改用户名或头像，至少需要提供其一。
func (s *AuthService) UpdateProfile(ctx context.Context, userID uint, username string, picture *storage.File) (*UserView, error) {
	gdb := s.db.WithContext(ctx)
	user, err := s.findUser(gdb, userID)
	if err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	if username == "" && picture == nil {
		return nil, apperr.Validation("Nothing to update")
	}
	if username != "" && username != user.Username {
		if len([]rune(username)) < 3 {
			return nil, apperr.Field("username", "must be at least 3 characters")
		}
		var taken int64
		if err := gdb.Model(&db.User{}).Where("username = ? AND id <> ?", username, user.ID).Count(&taken).Error; err != nil {
			return nil, apperr.Internal(err)
		}
		if taken > 0 {
			return nil, ErrUsernameTaken
		}
		user.Username = username
	}

	oldPicture := ""
	if picture != nil {
		url, err := s.uploader.Upload(ctx, profileFolder, picture)
		if err != nil {
			return nil, err
		}
		oldPicture = user.ProfilePic
		user.ProfilePic = url
	}

	if err := gdb.Model(user).Select("username", "profile_pic").Updates(user).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if oldPicture != "" && oldPicture != db.DefaultProfilePic {
		if err := s.uploader.Remove(ctx, oldPicture); err != nil {
			s.logger.Warn("remove profile picture failed", zap.String("url", oldPicture), zap.Error(err))
		}
	}
	view := userView(*user)
	return &view, nil
}

// ForgotPassword 为已注册的邮箱签发重置验证码，未注册时返回 NotFound。
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	s.purgeResetCodes(ctx)
	email = db.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}

	exists, err := s.emailExists(s.db.WithContext(ctx), email)
	if err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}
	return s.issueAndSend(ctx, otp.PurposeReset, email)
}

// VerifyResetOTP 校验重置验证码并标记为已验证，条目保留到 ResetPassword。
func (s *AuthService) VerifyResetOTP(ctx context.Context, email, code string) error {
	s.purgeResetCodes(ctx)
	email = db.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	if strings.TrimSpace(code) == "" {
		return apperr.Field("otp", "is required")
	}
	if err := s.issuer.Verify(ctx, otp.PurposeReset, email, code); err != nil {
		return err
	}
	metrics.RecordOTPVerified(string(otp.PurposeReset))
	return nil
}

// ResetPassword 在验证码已验证的前提下更新密码，并删除验证码条目。
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) error {
	s.purgeResetCodes(ctx)
	email = db.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	if len(newPassword) < 6 {
		return apperr.Field("newPassword", "must be at least 6 characters")
	}

	if err := s.issuer.RequireVerified(ctx, otp.PurposeReset, email); err != nil {
		return err
	}

	gdb := s.db.WithContext(ctx)
	var user db.User
	if err := gdb.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUserNotFound
		}
		return apperr.Internal(err)
	}
	if security.CheckPassword(user.Password, newPassword) {
		return ErrSamePassword
	}

	hashed, err := security.HashPassword(newPassword)
	if err != nil {
		return apperr.Internal(err)
	}
	if err := gdb.Model(&user).Update("password", hashed).Error; err != nil {
		return apperr.Internal(err)
	}
	return s.issuer.Discard(ctx, otp.PurposeReset, email)
}

// issueAndSend 存储验证码后发送邮件；发送失败只记录日志，验证码保持有效。
func (s *AuthService) issueAndSend(ctx context.Context, purpose otp.Purpose, email string) error {
	code, err := s.issuer.Issue(ctx, purpose, email)
	if err != nil {
		return err
	}
	metrics.RecordOTPIssued(string(purpose))

	msg := mail.OTPMessage(email, code, string(purpose), s.issuer.TTL())
	if err := s.mailer.Send(ctx, msg); err != nil {
		metrics.RecordEmailFailed()
		s.logger.Error("send otp email failed",
			zap.String("email", email),
			zap.String("purpose", string(purpose)),
			zap.Error(err),
		)
	}
	return nil
}

func (s *AuthService) purgeResetCodes(ctx context.Context) {
	if err := s.issuer.PurgeExpired(ctx, otp.PurposeReset); err != nil {
		s.logger.Warn("purge expired reset codes failed", zap.Error(err))
	}
}

func (s *AuthService) emailExists(gdb *gorm.DB, email string) (bool, error) {
	var count int64
	if err := gdb.Model(&db.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, apperr.Internal(err)
	}
	return count > 0, nil
}

func (s *AuthService) findUser(gdb *gorm.DB, id uint) (*db.User, error) {
	var user db.User
	if err := gdb.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, apperr.Internal(err)
	}
	return &user, nil
}

func (s *AuthService) authResult(user db.User) (*AuthResult, error) {
	token, err := s.tokens.Sign(user.ID, user.Role())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &AuthResult{Token: token, User: userView(user)}, nil
}

func userView(user db.User) UserView {
	return UserView{
		ID:         user.ID,
		Username:   user.Username,
		Email:      user.Email,
		ProfilePic: user.ProfilePic,
		IsAdmin:    user.IsAdmin,
		Role:       user.Role(),
		CreatedAt:  user.CreatedAt,
	}
}
