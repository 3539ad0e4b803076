package security

import "github.com/mindfulpath/internal/apperr"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// roleRank orders roles so that a higher role satisfies a lower requirement.
var roleRank = map[string]int{
	RoleUser:  1,
	RoleAdmin: 2,
}

// RequireRole 是唯一的授权能力检查：claims 缺失返回 AuthError，角色不足返回 Forbidden。
func RequireRole(claims *Claims, role string) error {
	if claims == nil {
		return apperr.Auth("No token provided")
	}
	have, ok := roleRank[claims.Role]
	if !ok {
		return apperr.Forbidden("Unknown role")
	}
	if have < roleRank[role] {
		if role == RoleAdmin {
			return apperr.Forbidden("Admin access required")
		}
		return apperr.Forbidden("Insufficient role")
	}
	return nil
}

// RequireOwnerOrRole 允许资源所有者或具备指定角色的调用者。
func RequireOwnerOrRole(claims *Claims, ownerID uint, role string) error {
	if claims == nil {
		return apperr.Auth("No token provided")
	}
	if id, err := claims.UserID(); err == nil && id == ownerID {
		return nil
	}
	return RequireRole(claims, role)
}
