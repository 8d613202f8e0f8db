package camera

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Options はコントローラーの動作設定
type Options struct {
	MaxWidth  uint32 // 要求する解像度の上限幅
	MaxHeight uint32 // 要求する解像度の上限高さ

	DefaultQuality int // キャプチャのデフォルトJPEG品質
	PreviewQuality int // プレビュー用の固定JPEG品質

	StartStopTimeout time.Duration // Start/Stopの返信待ち上限
	QueryTimeout     time.Duration // Status/Captureの返信待ち上限
}

// DefaultOptions はデフォルトの動作設定を返す
func DefaultOptions() Options {
	return Options{
		MaxWidth:         1920,
		MaxHeight:        1080,
		DefaultQuality:   90,
		PreviewQuality:   60,
		StartStopTimeout: 5 * time.Second,
		QueryTimeout:     2 * time.Second,
	}
}

// Controller は呼び出し側向けの同期APIを提供するファサード
// 各呼び出しはコマンドと使い捨ての返信チャンネルを組み立てて送信し、
// タイムアウト付きで返信を待つ。タイムアウトしても送信済みコマンドは
// キャンセルされず、ワーカー側で完了して結果だけが破棄される
type Controller struct {
	registry *Registry
	lister   Lister
	opts     Options
}

// NewController は新しいControllerを作成する
func NewController(registry *Registry, lister Lister, opts Options) *Controller {
	return &Controller{
		registry: registry,
		lister:   lister,
		opts:     opts,
	}
}

// ListDevices は利用可能なキャプチャデバイスを列挙する
// アクターを経由しないステートレスな操作
func (c *Controller) ListDevices(ctx context.Context) ([]DeviceInfo, error) {
	devices, err := c.lister.ScanDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("デバイスの列挙に失敗: %w", err)
	}

	log.Printf("キャプチャデバイスを%d台検出しました", len(devices))
	return devices, nil
}

// Start はカメラを開始する
// deviceIDが空文字列の場合は最初に列挙されたデバイスを使う
// 既に開始済みの場合、前のデバイスは解放されてから新しく開かれる
func (c *Controller) Start(deviceID string) (Status, error) {
	log.Printf("カメラの開始を要求します: device_id=%q", deviceID)

	// 返信チャンネルはバッファ1の使い捨て
	// 呼び出し側がタイムアウトで去ってもワーカーの送信はブロックしない
	reply := make(chan startResult, 1)
	if err := c.registry.submit(startCmd{deviceID: deviceID, reply: reply}); err != nil {
		return Status{}, err
	}

	select {
	case res := <-reply:
		return res.status, res.err
	case <-time.After(c.opts.StartStopTimeout):
		return Status{}, fmt.Errorf("%w: start", ErrTimeout)
	}
}

// Stop はカメラを停止する。停止済みでも成功する
func (c *Controller) Stop() error {
	log.Printf("カメラの停止を要求します")

	reply := make(chan error, 1)
	if err := c.registry.submit(stopCmd{reply: reply}); err != nil {
		return err
	}

	select {
	case err := <-reply:
		return err
	case <-time.After(c.opts.StartStopTimeout):
		return fmt.Errorf("%w: stop", ErrTimeout)
	}
}

// Status は現在のカメラ状態を取得する
func (c *Controller) Status() (Status, error) {
	reply := make(chan Status, 1)
	if err := c.registry.submit(statusCmd{reply: reply}); err != nil {
		return Status{}, err
	}

	select {
	case status := <-reply:
		return status, nil
	case <-time.After(c.opts.QueryTimeout):
		return Status{}, fmt.Errorf("%w: status", ErrTimeout)
	}
}

// Capture は1フレームをキャプチャしてdata URI文字列を返す
// qualityがnilの場合はデフォルト品質を使う
func (c *Controller) Capture(quality *int) (string, error) {
	q := c.opts.DefaultQuality
	if quality != nil {
		q = *quality
	}
	return c.capture(q)
}

// Preview はプレビュー用の低品質キャプチャを返す
// 品質以外のセマンティクスはCaptureと同一
func (c *Controller) Preview() (string, error) {
	return c.capture(c.opts.PreviewQuality)
}

// capture はキャプチャコマンドの共通実装
func (c *Controller) capture(quality int) (string, error) {
	reply := make(chan captureResult, 1)
	if err := c.registry.submit(captureCmd{quality: quality, reply: reply}); err != nil {
		return "", err
	}

	select {
	case res := <-reply:
		return res.image, res.err
	case <-time.After(c.opts.QueryTimeout):
		return "", fmt.Errorf("%w: capture", ErrTimeout)
	}
}
