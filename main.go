package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"menusync/server"
)

// 入口：加载配置，启动世界 Tick 与 HTTP + WebSocket 服务
func main() {
	var cfgPath, addr string
	flag.StringVar(&cfgPath, "config", "", "path to config.yaml (defaults are used when empty)")
	flag.StringVar(&addr, "addr", "", "override listen address, e.g. :8080")
	flag.Parse()

	cfg, err := server.LoadConfig(cfgPath)
	if err != nil {
		panic(err)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if err := server.InitLogger(cfg.Log); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	journal := server.NewJournal(cfg.Journal.Dir)
	defer func() {
		if err := journal.Close(); err != nil {
			server.Log.Errorw("failed to close transfer journal", "err", err)
		}
	}()
	world := server.InitWorld(cfg, journal)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", server.HandleWS)
	// 管理与监控接口
	mux.HandleFunc("/admin/config", server.HandleAdminConfig)
	mux.HandleFunc("/metrics", server.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		server.Log.Infof("menu sync server listening on %s (%d TPS)", cfg.Addr, cfg.TickRateHz)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		server.Log.Warnw("http shutdown", "err", err)
	}
	world.Stop()
}
