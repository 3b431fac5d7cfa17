package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"dkmverify/internal/config"
	"dkmverify/internal/metrics"
	"dkmverify/internal/portal"
	"dkmverify/internal/registry"
	"dkmverify/internal/service/auth"
	"dkmverify/internal/service/evaluation"
	"dkmverify/internal/service/review"
	"dkmverify/internal/sheet"
	"dkmverify/internal/store"
)

const dbFileName = "verifier.db"

// app 组装好的运行时依赖
type app struct {
	store   *store.Store
	metrics *metrics.Recorder
	guard   *auth.Guard
	session *review.Session
}

// newApp 按配置组装：sqlite → 凭证守卫 → 门户 / 登记库 / 工作表 → 审核会话
func newApp(cfg *config.AppConfig, logger *zap.Logger) (*app, error) {
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	st, err := store.New(filepath.Join(dataDir, dbFileName))
	if err != nil {
		return nil, err
	}

	rules, err := evaluation.LoadRules(cfg.Rules.Path)
	if err != nil {
		st.Close()
		return nil, err
	}
	sheets, err := newSheetStore(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}

	rec := metrics.New()
	gateway := portal.NewGateway(cfg.Auth.ValidateURL, cfg.Auth.LoginURL, cfg.Auth.Timeout.Duration)
	guard := auth.NewGuard(st, gateway, logger.Named("auth"), rec)

	client := portal.NewV1(portal.NewExecutor(cfg.Portal.BaseURL, cfg.Portal.Timeout.Duration), portal.V1Options{
		IndexPath:   cfg.Portal.IndexPath,
		ListingPath: cfg.Portal.ListingPath,
		KeyParam:    cfg.Portal.KeyParam,
		SubmitPath:  cfg.Portal.SubmitPath,
	})
	reg := registry.NewClient(cfg.Registry.BaseURL, cfg.Registry.Timeout.Duration)

	reviewLogger := logger.Named("review")
	session := review.NewSession(review.SessionDeps{
		Queue:   review.NewQueue(sheets, queueOptions(cfg.Sheet), reviewLogger, rec),
		Fetcher: review.NewFetcher(guard, client, reg, cfg.Sheet.KeyColumn, reviewLogger, rec),
		Submitter: review.NewSubmitter(guard, client, sheets, st, review.SubmitOptions{
			StatusParam:    cfg.Portal.StatusParam,
			NoteParam:      cfg.Portal.NoteParam,
			AcceptedStatus: cfg.Portal.AcceptedStatus,
			RejectedStatus: cfg.Portal.RejectedStatus,
		}, reviewLogger, rec),
		Auth:   guard,
		Rules:  rules,
		Prefs:  st,
		Logger: reviewLogger,
	})

	return &app{store: st, metrics: rec, guard: guard, session: session}, nil
}

// Close 结束会话并关闭数据库
func (a *app) Close() error {
	a.session.Close()
	return a.store.Close()
}

// newSheetStore 按 backend 选择工作表实现
func newSheetStore(cfg *config.AppConfig) (sheet.Store, error) {
	sc := cfg.Sheet
	switch strings.ToLower(strings.TrimSpace(sc.Backend)) {
	case "", "http":
		if sc.Endpoint == "" {
			return nil, fmt.Errorf("sheet.endpoint is required for the http backend")
		}
		return sheet.NewHTTPStore(sc.Endpoint, sc.SheetName, cfg.Portal.Timeout.Duration), nil
	case "workbook", "xlsx":
		if sc.WorkbookPath == "" {
			return nil, fmt.Errorf("sheet.workbook_path is required for the workbook backend")
		}
		return sheet.NewWorkbook(sc.WorkbookPath, sc.SheetName, sc.NoteColumn), nil
	default:
		return nil, fmt.Errorf("unknown sheet backend %q", sc.Backend)
	}
}

func queueOptions(sc config.SheetConfig) review.QueueOptions {
	return review.QueueOptions{
		HeaderRow:      sc.HeaderRow,
		AssigneeColumn: sc.AssigneeColumn,
		StatusColumn:   sc.StatusColumn,
	}
}
