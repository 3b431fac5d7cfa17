package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	v1 "dkmverify/internal/api/v1"
	"dkmverify/internal/server"
	"dkmverify/internal/util"
)

var (
	servePort      int
	serveDev       bool
	serveDataDir   string
	serveNoBrowser bool
)

// serveCmd 启动审核服务
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "启动审核服务（HTTP API）",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "服务端口 (config.toml 优先；仅当未显式配置 port 时生效)")
	serveCmd.Flags().BoolVar(&serveDev, "dev", false, "开发模式")
	serveCmd.Flags().StringVar(&serveDataDir, "data-dir", "", "数据目录 (覆盖配置文件)")
	serveCmd.Flags().BoolVar(&serveNoBrowser, "no-browser", false, "不自动打开浏览器")
}

func runServe(cmd *cobra.Command, args []string) error {
	// 命令行参数覆盖配置
	if servePort > 0 && !info.PortSpecified {
		cfg.Server.Port = servePort
	}
	if serveDev {
		cfg.Server.DevMode = true
	}
	if serveDataDir != "" {
		cfg.Data.DataDir = serveDataDir
	}
	if serveNoBrowser {
		cfg.Server.OpenBrowser = false
	}

	a, err := newApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	port, err := util.FindAvailablePort(cfg.Server.Port, 20)
	if err != nil {
		return err
	}
	if port != cfg.Server.Port {
		logger.Warn("configured port is busy", zap.Int("configured", cfg.Server.Port), zap.Int("port", port))
	}

	handler := v1.NewHandler(a.session, a.guard, a.store)
	srv := server.NewServer(cfg, handler, a.metrics, a.store, logger.Named("http"))

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(fmt.Sprintf(":%d", port))
	}()

	url := fmt.Sprintf("http://localhost:%d", port)
	logger.Info("verifier started", zap.String("url", url), zap.String("config", info.Path))
	if cfg.Server.OpenBrowser && !cfg.Server.DevMode {
		if err := util.OpenBrowserWithFallback(url); err != nil {
			logger.Info("could not open browser", zap.String("url", url), zap.Error(err))
		}
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// 先放弃进行中的门户调用，再关闭 HTTP
	a.session.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
