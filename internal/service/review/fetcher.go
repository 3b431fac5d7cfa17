package review

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dkmverify/internal/metrics"
	"dkmverify/internal/model"
	"dkmverify/internal/portal"
	"dkmverify/internal/registry"
)

// Authenticator 凭证守卫（auth.Guard）
type Authenticator interface {
	EnsureValid(ctx context.Context) (string, error)
	Cookie(ctx context.Context) (string, error)
}

// Registry 参考登记库
type Registry interface {
	Lookup(ctx context.Context, key string) (*model.RegistryRecord, error)
}

// FetchOutcome 获取结果：AutoSkip 为 true 时 Case 为 nil，调用方应按 SkipNotReadyYet 跳过
type FetchOutcome struct {
	Case     *model.ReviewCase
	AutoSkip bool
}

// Fetcher 案件获取器：门户列表 → 详情 → 登记库
type Fetcher struct {
	auth      Authenticator
	portal    portal.Client
	registry  Registry
	keyColumn string
	logger    *zap.Logger
	metrics   *metrics.Recorder
	now       func() time.Time
}

// NewFetcher 创建案件获取器；keyColumn 为查找键列名（默认 NPSN）
func NewFetcher(auth Authenticator, client portal.Client, reg Registry, keyColumn string, logger *zap.Logger, rec *metrics.Recorder) *Fetcher {
	if keyColumn == "" {
		keyColumn = "NPSN"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		auth:      auth,
		portal:    client,
		registry:  reg,
		keyColumn: keyColumn,
		logger:    logger,
		metrics:   rec,
		now:       time.Now,
	}
}

// CaseKey 从行中取出查找键
func (f *Fetcher) CaseKey(row model.SheetRow) (string, error) {
	key, ok := row.Column(f.keyColumn)
	key = strings.TrimSpace(key)
	if !ok || key == "" {
		return "", &MissingKeyError{RowIndex: row.RowIndex, Column: f.keyColumn}
	}
	return key, nil
}

// Fetch 获取并整合一行对应的案件
func (f *Fetcher) Fetch(ctx context.Context, row model.SheetRow) (FetchOutcome, error) {
	key, err := f.CaseKey(row)
	if err != nil {
		f.metrics.Fetch("missing_key")
		return FetchOutcome{}, err
	}

	if _, err := f.auth.EnsureValid(ctx); err != nil {
		f.metrics.Fetch("auth_failed")
		return FetchOutcome{}, err
	}
	cookie, err := f.auth.Cookie(ctx)
	if err != nil {
		return FetchOutcome{}, err
	}

	start := time.Now()
	entry, err := f.portal.Listing(ctx, cookie, key)
	f.metrics.ObserveUpstream("portal", start)
	if err != nil {
		f.metrics.Fetch("error")
		return FetchOutcome{}, portalError("listing", err)
	}
	if !entry.Found || !entry.Ready {
		f.metrics.Fetch("auto_skip")
		f.logger.Info("case not ready on portal",
			zap.Int("row", row.RowIndex),
			zap.String("npsn", key),
			zap.Bool("found", entry.Found))
		return FetchOutcome{AutoSkip: true}, nil
	}
	if entry.DetailLink == "" {
		f.metrics.Fetch("error")
		return FetchOutcome{}, &FetchError{Op: "listing", Detail: "detail link not found"}
	}

	start = time.Now()
	page, err := f.portal.Detail(ctx, cookie, entry.DetailLink)
	f.metrics.ObserveUpstream("portal", start)
	if err != nil {
		f.metrics.Fetch("error")
		return FetchOutcome{}, portalError("detail", err)
	}

	start = time.Now()
	rec, err := f.registry.Lookup(ctx, key)
	f.metrics.ObserveUpstream("registry", start)
	if err != nil {
		f.metrics.Fetch("error")
		regErr := &RegistryError{Key: key, Err: err}
		var statusErr *registry.StatusError
		if errors.As(err, &statusErr) {
			regErr.Status = statusErr.Status
		}
		return FetchOutcome{}, regErr
	}

	detailPath, routing := model.ParseRouting(entry.DetailLink)
	rc := &model.ReviewCase{
		ID:       uuid.NewString(),
		Key:      key,
		Row:      row,
		Registry: rec,
		Portal: model.PortalRecord{
			Ready:        true,
			SchoolFields: page.Fields,
			Images:       page.Images,
			History:      page.History,
			DetailPath:   detailPath,
			Routing:      routing,
		},
		FetchedAt: f.now(),
	}
	f.metrics.Fetch("ready")
	f.logger.Info("case fetched",
		zap.Int("row", row.RowIndex),
		zap.String("npsn", key),
		zap.Int("images", len(page.Images)),
		zap.Int("history", len(page.History)))
	return FetchOutcome{Case: rc}, nil
}

func portalError(op string, err error) error {
	var statusErr *portal.StatusError
	if errors.As(err, &statusErr) {
		return &FetchError{Op: op, Status: statusErr.Status, Detail: statusErr.Body, Err: err}
	}
	return &FetchError{Op: op, Err: err}
}
