// Package middleware 提供JWT认证和授权中间件。
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/resp"
)

// 上下文键定义
const (
	contextKeyClaims contextKey = "auth_claims"
)

// 角色常量，与认证服务签发的 role 声明对应。
const (
	RoleAdmin   = "ADMIN"
	RoleManager = "MANAGER"
	RoleStaff   = "STAFF"
)

// Claims 访问令牌声明。令牌由外部认证服务以 HS256 签发，本服务只校验。
type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware JWT认证中间件。
// 验证请求头中的访问令牌，并将声明注入请求上下文。
func AuthMiddleware(secret, issuer string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := RequestIDFromContext(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("missing authorization header", zap.String("request_id", reqID))
				resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "authorization header required", reqID, "")
				return
			}

			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				logger.Warn("invalid authorization header format", zap.String("request_id", reqID))
				resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "invalid authorization header format", reqID, "")
				return
			}

			tokenString := strings.TrimPrefix(authHeader, bearerPrefix)
			claims, err := parseAccessToken(tokenString, secret, issuer)
			if err != nil {
				logger.Warn("token validation failed",
					zap.String("request_id", reqID),
					zap.Error(err),
				)
				if errors.Is(err, jwt.ErrTokenExpired) {
					resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "token expired", reqID, "")
				} else {
					resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "invalid token", reqID, "")
				}
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyClaims, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles 角色授权中间件，任一角色匹配即放行。必须挂在 AuthMiddleware 之后。
func RequireRoles(logger *zap.Logger, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := RequestIDFromContext(r.Context())

			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "authentication required", reqID, "")
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			logger.Warn("insufficient role",
				zap.String("request_id", reqID),
				zap.String("username", claims.Username),
				zap.String("role", claims.Role),
			)
			resp.Error(w, http.StatusForbidden, resp.CodeInvalidParam, "insufficient permissions", reqID, "")
		})
	}
}

// ClaimsFromContext 从上下文读取令牌声明（可能为 nil）。
func ClaimsFromContext(ctx context.Context) *Claims {
	if v := ctx.Value(contextKeyClaims); v != nil {
		if c, ok := v.(*Claims); ok {
			return c
		}
	}
	return nil
}

// parseAccessToken 解析并校验访问令牌。
func parseAccessToken(tokenString, secret, issuer string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(issuer), jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
