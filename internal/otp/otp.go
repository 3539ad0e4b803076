// Package otp 负责一次性验证码的签发、存储与校验，注册与重置密码使用独立的命名空间。
package otp

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/mindfulpath/internal/apperr"
)

// Purpose separates registration codes from password reset codes.
type Purpose string

const (
	PurposeRegistration Purpose = "registration"
	PurposeReset        Purpose = "reset"
)

const (
	// DefaultTTL 是验证码的有效期。
	DefaultTTL = 10 * time.Minute
	codeLength = 6
)

var (
	ErrInvalidOrExpired = apperr.Validation("Invalid or expired OTP")
	ErrNotVerified      = apperr.Validation("OTP not verified")
)

// Entry 是某个邮箱在某个用途下的当前验证码。
type Entry struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
	Verified  bool      `json:"verified"`
}

// Expired reports whether the entry is no longer usable at now.
func (e Entry) Expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

// Store 是验证码的键值存储，键为 (purpose, email)。
// Put 覆盖已有条目；PurgeExpired 对具备原生 TTL 的实现可以是空操作。
type Store interface {
	Put(ctx context.Context, purpose Purpose, email string, entry Entry, ttl time.Duration) error
	Get(ctx context.Context, purpose Purpose, email string) (Entry, bool, error)
	Delete(ctx context.Context, purpose Purpose, email string) error
	PurgeExpired(ctx context.Context, purpose Purpose, now time.Time) (int, error)
}

// Issuer 签发并校验验证码。
type Issuer struct {
	store    Store
	ttl      time.Duration
	now      func() time.Time
	generate func() (string, error)
}

// NewIssuer 创建 Issuer，ttl 非正数时回退到 DefaultTTL。
func NewIssuer(store Store, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{store: store, ttl: ttl, now: time.Now, generate: GenerateCode}
}

// WithClock 允许在测试中替换时间来源。
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	if now != nil {
		i.now = now
	}
	return i
}

// TTL returns the validity window of issued codes.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Issue 生成新验证码并覆盖该邮箱之前未使用的验证码。
func (i *Issuer) Issue(ctx context.Context, purpose Purpose, email string) (string, error) {
	code, err := i.generate()
	if err != nil {
		return "", apperr.Internal(err)
	}
	entry := Entry{Code: code, ExpiresAt: i.now().Add(i.ttl)}
	if err := i.store.Put(ctx, purpose, normalize(email), entry, i.ttl); err != nil {
		return "", apperr.Internal(err)
	}
	return code, nil
}

// Check 校验验证码存在、匹配且未过期，不改变状态。
func (i *Issuer) Check(ctx context.Context, purpose Purpose, email, code string) (Entry, error) {
	entry, ok, err := i.store.Get(ctx, purpose, normalize(email))
	if err != nil {
		return Entry{}, apperr.Internal(err)
	}
	if !ok || entry.Expired(i.now()) {
		return Entry{}, ErrInvalidOrExpired
	}
	given := strings.TrimSpace(code)
	if len(given) != len(entry.Code) || subtle.ConstantTimeCompare([]byte(given), []byte(entry.Code)) != 1 {
		return Entry{}, ErrInvalidOrExpired
	}
	return entry, nil
}

// Verify 校验验证码并标记为已验证，条目保留到 Discard 为止。
func (i *Issuer) Verify(ctx context.Context, purpose Purpose, email, code string) error {
	entry, err := i.Check(ctx, purpose, email, code)
	if err != nil {
		return err
	}
	entry.Verified = true
	remaining := entry.ExpiresAt.Sub(i.now())
	if err := i.store.Put(ctx, purpose, normalize(email), entry, remaining); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// RequireVerified 要求条目已通过 Verify。
func (i *Issuer) RequireVerified(ctx context.Context, purpose Purpose, email string) error {
	entry, ok, err := i.store.Get(ctx, purpose, normalize(email))
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok || !entry.Verified || entry.Expired(i.now()) {
		return ErrNotVerified
	}
	return nil
}

// Discard removes the entry for email.
func (i *Issuer) Discard(ctx context.Context, purpose Purpose, email string) error {
	if err := i.store.Delete(ctx, purpose, normalize(email)); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// PurgeExpired 清理该用途下所有已过期的条目。
func (i *Issuer) PurgeExpired(ctx context.Context, purpose Purpose) error {
	if _, err := i.store.PurgeExpired(ctx, purpose, i.now()); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

// GenerateCode 在 [100000, 999999] 上均匀生成 6 位数字验证码。
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", codeLength, n.Int64()+100000), nil
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
