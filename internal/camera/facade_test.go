package camera

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestController_ListDevices(t *testing.T) {
	opener := NewMockOpener(map[string]*MockDevice{})
	opts := newTestOptions()
	registry := NewRegistry(opener, opts)
	t.Cleanup(registry.Shutdown)

	lister := &MockLister{Infos: []DeviceInfo{
		{ID: "0", Name: "テストカメラ 1"},
		{ID: "2", Name: "テストカメラ 2"},
	}}
	ctrl := NewController(registry, lister, opts)

	devices, err := ctrl.ListDevices(context.Background())
	if err != nil {
		t.Fatalf("ListDevices failed: %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("Expected 2 devices, got %d", len(devices))
	}
	if devices[0].ID != "0" || devices[1].ID != "2" {
		t.Errorf("Unexpected device IDs: %v", devices)
	}
}

func TestController_ListDevicesError(t *testing.T) {
	opener := NewMockOpener(map[string]*MockDevice{})
	opts := newTestOptions()
	registry := NewRegistry(opener, opts)
	t.Cleanup(registry.Shutdown)

	lister := &MockLister{ScanErr: errors.New("v4l2-ctlが見つかりません")}
	ctrl := NewController(registry, lister, opts)

	if _, err := ctrl.ListDevices(context.Background()); err == nil {
		t.Error("Expected error from ListDevices")
	}
}

func TestController_TimeoutDoesNotCancelCommand(t *testing.T) {
	dev := NewMockDevice("テストカメラ 1", 640, 480)
	dev.SetFrames([]*Frame{makeJPEGFrame(t, 64, 48)})
	opener := NewMockOpener(map[string]*MockDevice{"0": dev})

	// Openをブロックさせて、呼び出し側を先にタイムアウトさせる
	wait := make(chan struct{})
	opener.SetOpenWait(wait)

	opts := newTestOptions()
	opts.StartStopTimeout = 50 * time.Millisecond
	registry := NewRegistry(opener, opts)
	t.Cleanup(registry.Shutdown)
	ctrl := NewController(registry, &MockLister{}, opts)

	// 呼び出し側はタイムアウトで戻る
	_, err := ctrl.Start("")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Expected ErrTimeout, got %v", err)
	}

	// コマンド自体はキャンセルされず、ワーカー側で完了する
	close(wait)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		status, err := ctrl.Status()
		if err == nil && status.IsActive {
			// タイムアウト後もStartの状態遷移は適用されている
			if status.DeviceName == nil || *status.DeviceName != "テストカメラ 1" {
				t.Errorf("Unexpected device name: %v", status.DeviceName)
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("Start did not complete after caller timeout")
}

func TestController_TimeoutErrorDistinctFromClosed(t *testing.T) {
	opener := NewMockOpener(map[string]*MockDevice{})
	opts := newTestOptions()
	registry := NewRegistry(opener, opts)
	ctrl := NewController(registry, &MockLister{}, opts)

	registry.Shutdown()

	// ワーカー到達不能はタイムアウトとは別のエラー
	err := ctrl.Stop()
	if !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("Expected ErrChannelClosed, got %v", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("ErrChannelClosed should not match ErrTimeout")
	}
}

func TestController_PreviewSharesCaptureSemantics(t *testing.T) {
	dev := NewMockDevice("テストカメラ 1", 160, 120)
	dev.SetFrames([]*Frame{makeYUYVFrame(160, 120)})
	opener := NewMockOpener(map[string]*MockDevice{"0": dev})
	ctrl, _ := newTestController(t, opener)

	// 未開始ではキャプチャ同様にErrNotStarted
	if _, err := ctrl.Preview(); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("Expected ErrNotStarted, got %v", err)
	}

	if _, err := ctrl.Start(""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	preview, err := ctrl.Preview()
	if err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if !strings.HasPrefix(preview, "data:image/jpeg;base64,") {
		t.Errorf("Expected data URI prefix, got %.40q", preview)
	}

	// プレビューは低品質固定のため、高品質キャプチャより大きくならない
	quality := 95
	capture, err := ctrl.Capture(&quality)
	if err != nil {
		t.Fatalf("Capture failed: %v", err)
	}
	if len(preview) > len(capture) {
		t.Errorf("Expected preview (quality %d) <= capture (quality 95): %d > %d",
			DefaultOptions().PreviewQuality, len(preview), len(capture))
	}
}

func TestController_CaptureDefaultQuality(t *testing.T) {
	dev := NewMockDevice("テストカメラ 1", 64, 48)
	dev.SetFrames([]*Frame{makeJPEGFrame(t, 64, 48)})
	opener := NewMockOpener(map[string]*MockDevice{"0": dev})
	ctrl, _ := newTestController(t, opener)

	if _, err := ctrl.Start(""); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// 品質未指定はデフォルト品質で成功する
	encoded, err := ctrl.Capture(nil)
	if err != nil {
		t.Fatalf("Capture with default quality failed: %v", err)
	}
	if encoded == "" {
		t.Error("Expected non-empty image")
	}
}
