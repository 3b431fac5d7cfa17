// Package auth 门户会话凭证校验与自动重新登录
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"dkmverify/internal/metrics"
	"dkmverify/internal/model"
	"dkmverify/internal/portal"
)

// SessionStore 凭证持久化接口
type SessionStore interface {
	Load(ctx context.Context) (model.Credential, error)
	Save(ctx context.Context, cred model.Credential) error
}

// Gateway 凭证校验 / 登录服务
type Gateway interface {
	Validate(ctx context.Context, cookie string) (portal.Validation, error)
	Login(ctx context.Context, username, password string) (portal.LoginResult, error)
}

// AuthFailure 凭证无效且重新登录失败，需要人工重新认证
type AuthFailure struct {
	Reason string
	Err    error
}

func (e *AuthFailure) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth failure: %s: %v", e.Reason, e.Err)
	}
	return "auth failure: " + e.Reason
}

func (e *AuthFailure) Unwrap() error { return e.Err }

// IsAuthFailure 判断错误链中是否包含 AuthFailure
func IsAuthFailure(err error) bool {
	var af *AuthFailure
	return errors.As(err, &af)
}

// Guard 凭证守卫：每次调用最多重新登录一次
type Guard struct {
	store   SessionStore
	gateway Gateway
	logger  *zap.Logger
	metrics *metrics.Recorder
	now     func() time.Time
	mu      sync.Mutex
}

// NewGuard 创建凭证守卫
func NewGuard(store SessionStore, gateway Gateway, logger *zap.Logger, rec *metrics.Recorder) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		store:   store,
		gateway: gateway,
		logger:  logger,
		metrics: rec,
		now:     time.Now,
	}
}

// EnsureValid 校验已保存的凭证，必要时重新登录一次，返回登录名
func (g *Guard) EnsureValid(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cred, err := g.store.Load(ctx)
	if err != nil {
		return "", &AuthFailure{Reason: "load credential", Err: err}
	}

	if cred.Cookie != "" {
		start := time.Now()
		v, err := g.gateway.Validate(ctx, cred.Cookie)
		g.metrics.ObserveUpstream("validate", start)
		if err != nil {
			return "", &AuthFailure{Reason: "validate credential", Err: err}
		}
		if v.Valid {
			return g.persistIdentity(ctx, cred, v.Name)
		}
		g.logger.Info("stored portal session is no longer valid")
	}

	if !cred.CanRelogin() {
		return "", &AuthFailure{Reason: "session invalid and no login stored"}
	}

	cookie, err := g.relogin(ctx, cred)
	if err != nil {
		return "", err
	}
	cred.Cookie = cookie

	// 重新登录后只再校验一次
	v, err := g.gateway.Validate(ctx, cred.Cookie)
	if err != nil {
		return "", &AuthFailure{Reason: "validate after re-login", Err: err}
	}
	if !v.Valid {
		return "", &AuthFailure{Reason: "session still invalid after re-login"}
	}
	return g.persistIdentity(ctx, cred, v.Name)
}

func (g *Guard) relogin(ctx context.Context, cred model.Credential) (string, error) {
	start := time.Now()
	res, err := g.gateway.Login(ctx, cred.Username, cred.Password)
	g.metrics.ObserveUpstream("login", start)
	if err != nil {
		g.metrics.Relogin("error")
		return "", &AuthFailure{Reason: "re-login", Err: err}
	}
	if res.SessionID == "" {
		g.metrics.Relogin("rejected")
		reason := "re-login rejected"
		if res.Error != "" {
			reason += ": " + res.Error
		}
		return "", &AuthFailure{Reason: reason}
	}
	g.metrics.Relogin("success")

	cred.Cookie = res.SessionID
	cred.UpdatedAt = g.now()
	if err := g.store.Save(ctx, cred); err != nil {
		return "", &AuthFailure{Reason: "save credential", Err: err}
	}
	g.logger.Info("portal re-login succeeded", zap.String("username", cred.Username))
	return res.SessionID, nil
}

func (g *Guard) persistIdentity(ctx context.Context, cred model.Credential, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = cred.Identity
	}
	if name != cred.Identity {
		cred.Identity = name
		cred.UpdatedAt = g.now()
		if err := g.store.Save(ctx, cred); err != nil {
			g.logger.Warn("failed to persist identity", zap.Error(err))
		}
	}
	return name, nil
}

// SetCookie 手动设置会话 cookie（登录名可选）
func (g *Guard) SetCookie(ctx context.Context, cookie, identity string) error {
	cookie = strings.TrimSpace(cookie)
	if cookie == "" {
		return errors.New("cookie is empty")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	cred, err := g.store.Load(ctx)
	if err != nil {
		return err
	}
	cred.Cookie = cookie
	cred.Identity = strings.TrimSpace(identity)
	cred.UpdatedAt = g.now()
	return g.store.Save(ctx, cred)
}

// SetLogin 保存重新登录所用的用户名和密码
func (g *Guard) SetLogin(ctx context.Context, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return errors.New("username and password are required")
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	cred, err := g.store.Load(ctx)
	if err != nil {
		return err
	}
	cred.Username = strings.TrimSpace(username)
	cred.Password = password
	cred.UpdatedAt = g.now()
	return g.store.Save(ctx, cred)
}

// Cookie 当前保存的会话 cookie
func (g *Guard) Cookie(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cred, err := g.store.Load(ctx)
	if err != nil {
		return "", err
	}
	return cred.Cookie, nil
}

// Identity 最近一次校验得到的登录名
func (g *Guard) Identity(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	cred, err := g.store.Load(ctx)
	if err != nil {
		return "", err
	}
	return cred.Identity, nil
}
