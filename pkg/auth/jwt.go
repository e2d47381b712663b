package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	sf "github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt"
	"github.com/nsxzhou1114/bookmarks-api/internal/config"
)

// TokenType 定义token类型
type TokenType string

const (
	// AccessToken 访问令牌，用于访问资源
	AccessToken TokenType = "access"
	// RefreshToken 刷新令牌，用于获取新的访问令牌
	RefreshToken TokenType = "refresh"
)

var (
	ErrTokenRevoked = errors.New("令牌已被撤销")
	ErrInvalidToken = errors.New("无效的令牌")
)

// Claims 自定义JWT声明结构体
type Claims struct {
	UserID   uint      `json:"user_id"`
	Role     string    `json:"role"`
	Type     TokenType `json:"type"`
	TokenID  string    `json:"jti,omitempty"`      // 令牌唯一ID
	Previous string    `json:"previous,omitempty"` // 前一个刷新令牌的ID，用于令牌轮换
	jwt.StandardClaims
}

// TokenPair 包含访问令牌和刷新令牌
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"` // 访问令牌过期时间（秒）
	TokenID      string `json:"token_id"`
}

// Manager 负责签发、解析、撤销令牌
type Manager struct {
	cfg       config.JWTConfig
	blacklist Blacklist
	node      *sf.Node
}

// NewManager 创建令牌管理器
func NewManager(cfg config.JWTConfig, blacklist Blacklist, node *sf.Node) *Manager {
	return &Manager{cfg: cfg, blacklist: blacklist, node: node}
}

// GenerateTokenPair 生成访问令牌和刷新令牌对
func (m *Manager) GenerateTokenPair(userID uint, role string, remember bool) (*TokenPair, error) {
	return m.generatePair(userID, role, remember, "")
}

func (m *Manager) generatePair(userID uint, role string, remember bool, previous string) (*TokenPair, error) {
	accessExpire := time.Duration(m.cfg.AccessExpireSeconds) * time.Second
	refreshExpire := time.Duration(m.cfg.RefreshExpireSeconds) * time.Second
	// 记住登录时延长有效期
	if remember {
		accessExpire = 7 * 24 * time.Hour
		refreshExpire = 30 * 24 * time.Hour
	}

	tokenID := m.node.Generate().String()

	accessToken, err := m.sign(userID, role, AccessToken, accessExpire, tokenID, "")
	if err != nil {
		return nil, err
	}
	refreshToken, err := m.sign(userID, role, RefreshToken, refreshExpire, tokenID, previous)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(accessExpire.Seconds()),
		TokenID:      tokenID,
	}, nil
}

// sign 创建指定类型的JWT令牌
func (m *Manager) sign(userID uint, role string, tokenType TokenType, expiration time.Duration, tokenID, previous string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:   userID,
		Role:     role,
		Type:     tokenType,
		TokenID:  tokenID,
		Previous: previous,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(expiration).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    m.cfg.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.cfg.SecretKey))
}

func (m *Manager) parse(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.cfg.SecretKey), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrInvalidToken
}

// ParseToken 解析JWT令牌并检查黑名单
func (m *Manager) ParseToken(ctx context.Context, tokenString string) (*Claims, error) {
	revoked, err := m.blacklist.IsBlacklisted(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, ErrTokenRevoked
	}
	return m.parse(tokenString)
}

// ExpiresSoon 令牌是否将在缓冲时间内过期
func (m *Manager) ExpiresSoon(claims *Claims) bool {
	buffer := time.Duration(m.cfg.BufferSeconds) * time.Second
	return time.Until(time.Unix(claims.ExpiresAt, 0)) < buffer
}

// Refresh 使用刷新令牌换取新的令牌对，旧的刷新令牌加入黑名单
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	claims, err := m.ParseToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if claims.Type != RefreshToken {
		return nil, ErrInvalidToken
	}

	pair, err := m.generatePair(claims.UserID, claims.Role, false, claims.TokenID)
	if err != nil {
		return nil, err
	}
	if err := m.blacklist.Add(ctx, refreshToken, time.Unix(claims.ExpiresAt, 0)); err != nil {
		return nil, err
	}
	return pair, nil
}

// Revoke 撤销令牌（登出时使用）
func (m *Manager) Revoke(ctx context.Context, tokenString string) error {
	claims, err := m.parse(tokenString)
	if err != nil {
		return err
	}
	return m.blacklist.Add(ctx, tokenString, time.Unix(claims.ExpiresAt, 0))
}
