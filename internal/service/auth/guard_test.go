package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dkmverify/internal/metrics"
	"dkmverify/internal/model"
	"dkmverify/internal/portal"
	"dkmverify/internal/service/store"
)

// fakeGateway 按顺序返回预设的校验结果，并统计登录次数
type fakeGateway struct {
	validations []portal.Validation
	validateErr error
	login       portal.LoginResult
	loginErr    error

	validateCalls int
	loginCalls    int
	cookies       []string
}

func (f *fakeGateway) Validate(ctx context.Context, cookie string) (portal.Validation, error) {
	f.cookies = append(f.cookies, cookie)
	f.validateCalls++
	if f.validateErr != nil {
		return portal.Validation{}, f.validateErr
	}
	if len(f.validations) == 0 {
		return portal.Validation{}, nil
	}
	v := f.validations[0]
	if len(f.validations) > 1 {
		f.validations = f.validations[1:]
	}
	return v, nil
}

func (f *fakeGateway) Login(ctx context.Context, username, password string) (portal.LoginResult, error) {
	f.loginCalls++
	return f.login, f.loginErr
}

// TestEnsureValidReturnsIdentity 测试有效凭证直接返回登录名并保存
func TestEnsureValidReturnsIdentity(t *testing.T) {
	sessions := store.NewMemoryStoreWith(model.Credential{Cookie: "sess-1"})
	gw := &fakeGateway{validations: []portal.Validation{{Valid: true, Name: "Verifikator A"}}}
	guard := NewGuard(sessions, gw, nil, nil)

	name, err := guard.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Verifikator A", name)
	assert.Equal(t, 0, gw.loginCalls)

	cred, _ := sessions.Load(context.Background())
	assert.Equal(t, "Verifikator A", cred.Identity)
}

// TestEnsureValidReloginOnce 测试两次无效校验只触发一次重新登录
func TestEnsureValidReloginOnce(t *testing.T) {
	sessions := store.NewMemoryStoreWith(model.Credential{Cookie: "old", Username: "u", Password: "p"})
	gw := &fakeGateway{
		validations: []portal.Validation{{Valid: false}, {Valid: false}},
		login:       portal.LoginResult{SessionID: "new"},
	}
	rec := metrics.New()
	guard := NewGuard(sessions, gw, nil, rec)

	_, err := guard.EnsureValid(context.Background())
	require.Error(t, err)
	assert.True(t, IsAuthFailure(err))
	assert.Equal(t, 1, gw.loginCalls)
	assert.Equal(t, 2, gw.validateCalls)
	assert.Equal(t, []string{"old", "new"}, gw.cookies)

	// 新 cookie 已保存
	cred, _ := sessions.Load(context.Background())
	assert.Equal(t, "new", cred.Cookie)
}

// TestEnsureValidReloginSuccess 测试重新登录后校验通过
func TestEnsureValidReloginSuccess(t *testing.T) {
	sessions := store.NewMemoryStoreWith(model.Credential{Cookie: "old", Username: "u", Password: "p"})
	gw := &fakeGateway{
		validations: []portal.Validation{{Valid: false}, {Valid: true, Name: "Verifikator B"}},
		login:       portal.LoginResult{SessionID: "new"},
	}
	guard := NewGuard(sessions, gw, nil, nil)

	name, err := guard.EnsureValid(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Verifikator B", name)
	assert.Equal(t, 1, gw.loginCalls)

	cred, _ := sessions.Load(context.Background())
	assert.Equal(t, "new", cred.Cookie)
	assert.Equal(t, "Verifikator B", cred.Identity)
}

// TestEnsureValidWithoutLogin 测试无用户名密码时直接失败
func TestEnsureValidWithoutLogin(t *testing.T) {
	sessions := store.NewMemoryStoreWith(model.Credential{Cookie: "old"})
	gw := &fakeGateway{validations: []portal.Validation{{Valid: false}}}
	guard := NewGuard(sessions, gw, nil, nil)

	_, err := guard.EnsureValid(context.Background())
	assert.True(t, IsAuthFailure(err))
	assert.Equal(t, 0, gw.loginCalls)
}

// TestEnsureValidLoginRejected 测试登录被拒绝
func TestEnsureValidLoginRejected(t *testing.T) {
	sessions := store.NewMemoryStoreWith(model.Credential{Username: "u", Password: "wrong"})
	gw := &fakeGateway{login: portal.LoginResult{Error: "Login gagal"}}
	guard := NewGuard(sessions, gw, nil, nil)

	_, err := guard.EnsureValid(context.Background())
	var af *AuthFailure
	require.True(t, errors.As(err, &af))
	assert.Contains(t, af.Reason, "Login gagal")
	// 无 cookie 时不调用校验
	assert.Equal(t, 0, gw.validateCalls)
	assert.Equal(t, 1, gw.loginCalls)
}

// TestEnsureValidTransportError 测试校验服务不可达
func TestEnsureValidTransportError(t *testing.T) {
	sessions := store.NewMemoryStoreWith(model.Credential{Cookie: "c", Username: "u", Password: "p"})
	boom := errors.New("connection refused")
	gw := &fakeGateway{validateErr: boom}
	guard := NewGuard(sessions, gw, nil, nil)

	_, err := guard.EnsureValid(context.Background())
	assert.True(t, IsAuthFailure(err))
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, gw.loginCalls)
}

func TestSetCookieAndLogin(t *testing.T) {
	sessions := store.NewMemoryStore()
	guard := NewGuard(sessions, &fakeGateway{}, nil, nil)
	ctx := context.Background()

	assert.Error(t, guard.SetCookie(ctx, "  ", ""))
	require.NoError(t, guard.SetCookie(ctx, " abc ", "Verifikator C"))
	require.NoError(t, guard.SetLogin(ctx, "user", "pass"))
	assert.Error(t, guard.SetLogin(ctx, "", "pass"))

	cookie, _ := guard.Cookie(ctx)
	identity, _ := guard.Identity(ctx)
	assert.Equal(t, "abc", cookie)
	assert.Equal(t, "Verifikator C", identity)

	cred, _ := sessions.Load(ctx)
	assert.True(t, cred.CanRelogin())
}
