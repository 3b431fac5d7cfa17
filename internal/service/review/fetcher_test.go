package review

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dkmverify/internal/model"
	"dkmverify/internal/registry"
	"dkmverify/internal/service/auth"
)

const detailLink = "r_detail.php?id=8812&npsn=20212345&tok=a%2Fb%3D&status=1&note="

type fetchFixture struct {
	auth     *fakeAuth
	portal   *fakePortal
	registry *fakeRegistry
	fetcher  *Fetcher
	row      model.SheetRow
}

func newFetchFixture(t *testing.T) *fetchFixture {
	t.Helper()
	fx := &fetchFixture{
		auth:     &fakeAuth{identity: "A", cookie: "sess-1"},
		portal:   newFakePortal(),
		registry: &fakeRegistry{records: map[string]*model.RegistryRecord{"20212345": sampleRecord()}},
	}
	fx.portal.ready("20212345", detailLink, sampleDetail())
	fx.fetcher = NewFetcher(fx.auth, fx.portal, fx.registry, "NPSN", nil, nil)

	headers := make([]string, len(testHeader))
	for i, h := range testHeader {
		headers[i] = h.(string)
	}
	fx.row = model.SheetRow{RowIndex: 5, Cells: row(20212345.0, "A", ""), Header: headers}
	return fx
}

// TestFetchReadyCase 测试就绪案件的完整获取
func TestFetchReadyCase(t *testing.T) {
	fx := newFetchFixture(t)

	out, err := fx.fetcher.Fetch(context.Background(), fx.row)
	require.NoError(t, err)
	require.False(t, out.AutoSkip)
	require.NotNil(t, out.Case)

	rc := out.Case
	assert.NotEmpty(t, rc.ID)
	assert.Equal(t, "20212345", rc.Key)
	assert.Equal(t, 5, rc.Row.RowIndex)
	assert.True(t, rc.Portal.Ready)
	assert.Equal(t, "r_detail.php", rc.Portal.DetailPath)
	assert.Equal(t, "Siti Aminah", rc.Registry.PrincipalName)
	assert.Equal(t, []string{"sess-1"}, fx.portal.cookies)

	// 历史记录保持门户顺序
	if diff := cmp.Diff(sampleDetail().History, rc.Portal.History); diff != "" {
		t.Fatalf("history mismatch (-want +got):\n%s", diff)
	}
	// 路由参数原样保留
	assert.Equal(t, "id=8812&npsn=20212345&tok=a%2Fb%3D&status=1&note=", rc.Portal.Routing.Encode())
	assert.Equal(t, "a/b=", rc.Portal.Routing.Get("tok"))
}

// TestFetchAutoSkip 测试未就绪返回 AutoSkip 且不读取详情和登记库
func TestFetchAutoSkip(t *testing.T) {
	fx := newFetchFixture(t)
	fx.portal.notReady("20212345")
	fx.registry.err = errors.New("must not be called")

	out, err := fx.fetcher.Fetch(context.Background(), fx.row)
	require.NoError(t, err)
	assert.True(t, out.AutoSkip)
	assert.Nil(t, out.Case)

	// 列表为空同样视为未就绪
	delete(fx.portal.listings, "20212345")
	out, err = fx.fetcher.Fetch(context.Background(), fx.row)
	require.NoError(t, err)
	assert.True(t, out.AutoSkip)
}

// TestFetchMissingKey 测试缺少 NPSN
func TestFetchMissingKey(t *testing.T) {
	fx := newFetchFixture(t)
	fx.row.Cells[1] = "  "

	_, err := fx.fetcher.Fetch(context.Background(), fx.row)
	var keyErr *MissingKeyError
	require.True(t, errors.As(err, &keyErr))
	assert.Equal(t, 5, keyErr.RowIndex)
	assert.Equal(t, 0, fx.auth.calls)

	fx.row.Header = []string{"NO"}
	_, err = fx.fetcher.Fetch(context.Background(), fx.row)
	assert.True(t, errors.As(err, &keyErr))
}

// TestFetchAuthFailure 测试凭证失效时不访问门户
func TestFetchAuthFailure(t *testing.T) {
	fx := newFetchFixture(t)
	fx.auth.fail()

	_, err := fx.fetcher.Fetch(context.Background(), fx.row)
	assert.True(t, auth.IsAuthFailure(err))
	assert.Equal(t, 0, fx.portal.listCalls)
}

// TestFetchRegistryError 测试登记库错误携带上游状态码
func TestFetchRegistryError(t *testing.T) {
	fx := newFetchFixture(t)
	fx.registry.err = &registry.StatusError{Key: "20212345", Status: http.StatusBadGateway}

	_, err := fx.fetcher.Fetch(context.Background(), fx.row)
	var regErr *RegistryError
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, http.StatusBadGateway, regErr.Status)
}

// TestFetchPortalError 测试详情页非 2xx
func TestFetchPortalError(t *testing.T) {
	fx := newFetchFixture(t)
	delete(fx.portal.details, detailLink)

	_, err := fx.fetcher.Fetch(context.Background(), fx.row)
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "detail", fetchErr.Op)
	assert.Equal(t, 404, fetchErr.Status)
	assert.Equal(t, "not found", fetchErr.Detail)
}

func TestFetchReadyWithoutLink(t *testing.T) {
	fx := newFetchFixture(t)
	entry := fx.portal.listings["20212345"]
	entry.DetailLink = ""
	fx.portal.listings["20212345"] = entry

	_, err := fx.fetcher.Fetch(context.Background(), fx.row)
	var fetchErr *FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, "listing", fetchErr.Op)
}
