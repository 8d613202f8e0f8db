package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shashinkan/internal/camera"
	"shashinkan/internal/config"
	"shashinkan/internal/printer"
	"shashinkan/internal/storage"

	"github.com/gin-gonic/gin"
)

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	engine     *gin.Engine
	httpServer *http.Server
	cleanup    func() // シャットダウン後に呼ばれる後始末（カメラ解放など）
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, handler *Handler) *Server {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())

	registerRoutes(engine, handler)

	return &Server{
		config: cfg,
		engine: engine,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
	}
}

// NewFromConfig は実デバイス向けの依存を組み立ててServerを作成する
// カメラはV4L2、プリンターはCUPSコマンド、保存はローカルファイルシステム
func NewFromConfig(cfg *config.Config) *Server {
	opts := camera.Options{
		MaxWidth:         cfg.Camera.MaxWidth,
		MaxHeight:        cfg.Camera.MaxHeight,
		DefaultQuality:   cfg.Camera.DefaultQuality,
		PreviewQuality:   cfg.Camera.PreviewQuality,
		StartStopTimeout: cfg.Camera.StartStopTimeout,
		QueryTimeout:     cfg.Camera.QueryTimeout,
	}

	discovery := camera.NewDiscovery()
	registry := camera.NewRegistry(camera.NewV4L2Opener(discovery), opts)
	controller := camera.NewController(registry, discovery, opts)

	handler := NewHandler(
		cfg,
		controller,
		printer.New(cfg.Printer.CommandTimeout),
		storage.New(cfg.Storage.BaseDir),
	)

	srv := New(cfg, handler)
	srv.cleanup = registry.Shutdown
	return srv
}

// registerRoutes はHTTPルートを設定する
func registerRoutes(engine *gin.Engine, h *Handler) {
	// ヘルスチェック
	engine.GET("/health", h.HealthCheck)

	api := engine.Group("/api")
	{
		api.GET("/status", h.GetStatus)

		// カメラ制御コマンド
		api.GET("/cameras", h.ListCameras)
		api.POST("/camera/start", h.StartCamera)
		api.POST("/camera/stop", h.StopCamera)
		api.GET("/camera/status", h.GetCameraStatus)
		api.POST("/camera/capture", h.CaptureFrame)
		api.GET("/camera/preview", h.GetPreviewFrame)

		// プリンターのパススルー
		api.GET("/printers", h.ListPrinters)
		api.GET("/printers/default", h.GetDefaultPrinter)
		api.POST("/print/test", h.PrintTestPage)
		api.POST("/print/photo", h.PrintPhoto)

		// ファイル保存のパススルー
		api.POST("/files/save", h.SaveFile)
		api.GET("/files/writable", h.CheckDirWritable)
	}
}

// Engine はテスト用にGinエンジンを返す
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Start はサーバーを起動し、シグナルかコンテキストの終了まで動き続ける
func (s *Server) Start(ctx context.Context) error {
	// シャットダウン用のチャンネル
	shutdownCh := make(chan error, 1)

	// サーバーを別ゴルーチンで起動
	go func() {
		log.Printf("HTTPサーバーを起動しています: %s", s.config.ServerAddress())
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			shutdownCh <- fmt.Errorf("サーバーの起動に失敗: %w", err)
		}
	}()

	// シグナルハンドリング
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// コンテキストかシグナルを待つ
	select {
	case <-ctx.Done():
		log.Println("コンテキストがキャンセルされました")
	case sig := <-sigCh:
		log.Printf("シグナルを受信しました: %v", sig)
	case err := <-shutdownCh:
		return err
	}

	// グレースフルシャットダウン
	return s.Shutdown()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
func (s *Server) Shutdown() error {
	log.Println("サーバーをシャットダウンしています...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("サーバーのシャットダウンに失敗: %w", err)
	}

	// リクエストが止まってからカメラワーカーを終了させる
	if s.cleanup != nil {
		s.cleanup()
	}

	log.Println("サーバーが正常にシャットダウンされました")
	return nil
}
