package utils

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims 管理端会话令牌 Claims
// 系统只有一个共享管理员口令，令牌不携带用户身份，只携带角色
type AdminClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateAdminToken 登录成功后签发管理端会话令牌
func GenerateAdminToken(secret string, expire time.Duration) (string, error) {
	now := time.Now()

	claims := AdminClaims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
			Issuer:    "suzu-discount",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAdminToken 验证管理端会话令牌
func ParseAdminToken(secret, tokenString string) (*AdminClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*AdminClaims); ok && token.Valid && claims.Role == "admin" {
		return claims, nil
	}

	return nil, jwt.ErrTokenInvalidClaims
}
