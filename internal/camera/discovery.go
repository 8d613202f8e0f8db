package camera

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Lister はキャプチャデバイスの列挙機能を提供する
type Lister interface {
	// ScanDevices はシステム内の利用可能なキャプチャデバイスを列挙する
	ScanDevices(ctx context.Context) ([]DeviceInfo, error)
}

// Discovery はLinux環境でのキャプチャデバイス検出を担う
// アクターの外で動くステートレスな列挙処理
type Discovery struct{}

// NewDiscovery は新しいDiscoveryを作成する
func NewDiscovery() *Discovery {
	return &Discovery{}
}

// ScanDevices はシステム内の利用可能なキャプチャデバイスを列挙する
// IDはデバイス番号（/dev/videoN の N）の文字列表現
func (d *Discovery) ScanDevices(ctx context.Context) ([]DeviceInfo, error) {
	matches, err := filepath.Glob("/dev/video*")
	if err != nil {
		return nil, fmt.Errorf("デバイスのスキャンに失敗: %w", err)
	}

	// デバイス番号でソート
	sort.Slice(matches, func(i, j int) bool {
		return extractDeviceNumber(matches[i]) < extractDeviceNumber(matches[j])
	})

	var devices []DeviceInfo
	seen := map[string]bool{} // 同じ物理カメラの複数チャンネルを除外する

	for _, path := range matches {
		select {
		case <-ctx.Done():
			return devices, ctx.Err()
		default:
		}

		if !d.isDeviceAccessible(path) {
			continue
		}
		if !d.isColorCaptureDevice(ctx, path) {
			continue
		}

		name := d.DeviceName(ctx, path)
		if name == "" {
			name = fmt.Sprintf("カメラ %d", extractDeviceNumber(path))
		}
		if seen[name] {
			continue
		}
		seen[name] = true

		devices = append(devices, DeviceInfo{
			ID:   strconv.Itoa(extractDeviceNumber(path)),
			Name: name,
		})
	}

	return devices, nil
}

// DeviceName はv4l2-ctlを使って実際のデバイス名を取得する
// 取得できない場合は空文字列を返す
func (d *Discovery) DeviceName(ctx context.Context, path string) string {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	cmd := exec.CommandContext(ctx, "v4l2-ctl", "--device", path, "--info")
	output, err := cmd.Output()
	if err != nil {
		return ""
	}

	// "Card type" の行からカメラ名を抽出
	for _, line := range strings.Split(string(output), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "Card type") {
			parts := strings.SplitN(line, ":", 2)
			if len(parts) == 2 {
				return strings.TrimSpace(parts[1])
			}
		}
	}

	return ""
}

// isDeviceAccessible はデバイスファイルが存在し読み取れるかチェックする
func (d *Discovery) isDeviceAccessible(path string) bool {
	if matched, _ := regexp.MatchString(`^/dev/video\d+$`, path); !matched {
		return false
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false
	}

	file, err := os.OpenFile(path, os.O_RDONLY, 0)
	if err != nil {
		return false
	}
	defer func() {
		_ = file.Close()
	}()

	return true
}

// isColorCaptureDevice はカラーフォーマットを出力できるデバイスか判定する
// メタデータ専用チャンネルやグレースケールセンサーを除外する
func (d *Discovery) isColorCaptureDevice(ctx context.Context, path string) bool {
	cmd := exec.CommandContext(ctx, "v4l2-ctl", "--device", path, "--list-formats-ext")
	output, err := cmd.Output()
	if err != nil {
		return false
	}

	formats := string(output)
	return strings.Contains(formats, "MJPG") ||
		strings.Contains(formats, "JPEG") ||
		strings.Contains(formats, "YUYV")
}

// devicePath はデバイス番号からデバイスパスを組み立てる
func devicePath(id string) string {
	return "/dev/video" + id
}

// extractDeviceNumber はデバイスパスから番号を抽出する
func extractDeviceNumber(path string) int {
	re := regexp.MustCompile(`video(\d+)`)
	matches := re.FindStringSubmatch(path)
	if len(matches) < 2 {
		return 0
	}

	num, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0
	}
	return num
}

// MockLister はテスト用のデバイス列挙の実装
type MockLister struct {
	Infos   []DeviceInfo
	ScanErr error
}

// ScanDevices はモックのデバイス一覧を返す
func (m *MockLister) ScanDevices(_ context.Context) ([]DeviceInfo, error) {
	if m.ScanErr != nil {
		return nil, m.ScanErr
	}
	return m.Infos, nil
}
