package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Camera  CameraConfig  `yaml:"camera"`
	Printer PrinterConfig `yaml:"printer"`
	Storage StorageConfig `yaml:"storage"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `yaml:"host"` // リッスンするホスト
	Port int    `yaml:"port"` // リッスンするポート番号

	// タイムアウト設定
	ReadTimeout  time.Duration `yaml:"read_timeout"`  // 読み込みタイムアウト
	WriteTimeout time.Duration `yaml:"write_timeout"` // 書き込みタイムアウト
}

// CameraConfig はカメラ制御の設定
type CameraConfig struct {
	// 解像度ネゴシエーションの上限。この値以下で最も高い解像度を要求する
	MaxWidth  uint32 `yaml:"max_width"`
	MaxHeight uint32 `yaml:"max_height"`

	// JPEG品質
	DefaultQuality int `yaml:"default_quality"` // キャプチャのデフォルト品質
	PreviewQuality int `yaml:"preview_quality"` // プレビューの固定品質

	// コマンドの返信待ち上限
	StartStopTimeout time.Duration `yaml:"start_stop_timeout"` // Start/Stop用
	QueryTimeout     time.Duration `yaml:"query_timeout"`      // Status/Capture用
}

// PrinterConfig は印刷まわりの設定
type PrinterConfig struct {
	// lpstat/lpコマンドの実行上限時間
	CommandTimeout time.Duration `yaml:"command_timeout"`
}

// StorageConfig はファイル保存の設定
type StorageConfig struct {
	// 写真のデフォルト保存先ディレクトリ
	BaseDir string `yaml:"base_dir"`
}

// Load は設定を読み込む
// デフォルト値 → 設定ファイル（SHASHINKAN_CONFIG） → 環境変数 の順に上書きする
func Load() (*Config, error) {
	cfg := defaultConfig()

	// 設定ファイルがあれば読み込む
	if path := os.Getenv("SHASHINKAN_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("設定ファイルの解析に失敗: %w", err)
		}
	}

	// 環境変数による上書き
	cfg.Server.Host = getEnvOrDefault("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvAsIntOrDefault("PORT", cfg.Server.Port)
	cfg.Storage.BaseDir = getEnvOrDefault("SHASHINKAN_SAVE_DIR", cfg.Storage.BaseDir)

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return cfg, nil
}

// defaultConfig はデフォルト設定を作成する
func defaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8080,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Camera: CameraConfig{
			MaxWidth:         1920,
			MaxHeight:        1080,
			DefaultQuality:   90,
			PreviewQuality:   60,
			StartStopTimeout: 5 * time.Second,
			QueryTimeout:     2 * time.Second,
		},
		Printer: PrinterConfig{
			CommandTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			BaseDir: home + "/Pictures/shashinkan",
		},
	}
}

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("無効なポート番号: %d", c.Server.Port)
	}

	if c.Camera.MaxWidth == 0 || c.Camera.MaxHeight == 0 {
		return fmt.Errorf("無効な解像度上限: %dx%d", c.Camera.MaxWidth, c.Camera.MaxHeight)
	}

	if c.Camera.StartStopTimeout <= 0 || c.Camera.QueryTimeout <= 0 {
		return fmt.Errorf("無効なコマンドタイムアウト")
	}

	if c.Storage.BaseDir == "" {
		return fmt.Errorf("保存先ディレクトリが設定されていません")
	}

	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// getEnvOrDefault は環境変数を取得し、設定されていない場合はデフォルト値を返す
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault は環境変数を整数として取得し、設定されていない場合はデフォルト値を返す
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		if _, err := fmt.Sscanf(value, "%d", &intVal); err == nil {
			return intVal
		}
	}
	return defaultValue
}
