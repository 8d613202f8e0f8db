package camera

import (
	"context"
	"fmt"
	"sync"
)

// FrameFormat は生フレームのピクセルレイアウトを表す
type FrameFormat string

const (
	// FormatMJPEG はJPEG圧縮済みフレーム
	FormatMJPEG FrameFormat = "MJPG"
	// FormatYUYV はYUV 4:2:2パックドフレーム
	FormatYUYV FrameFormat = "YUYV"
)

// Frame はデバイスから取得した生フレーム
type Frame struct {
	Data   []byte      // フレームデータ本体
	Format FrameFormat // ピクセルレイアウト
	Width  uint32      // 幅
	Height uint32      // 高さ
}

// OpenRequest はデバイスオープン時の要求内容
type OpenRequest struct {
	DeviceID  string // デバイス識別子（例: "0"）。空文字列は最初のデバイス
	MaxWidth  uint32 // 要求する解像度の上限幅
	MaxHeight uint32 // 要求する解像度の上限高さ
}

// Device は排他所有されるキャプチャデバイスのハンドル
// ワーカーゴルーチン以外のスレッドから読み書きしてはならない
type Device interface {
	// Name はデバイスの表示名を返す
	Name() string

	// Resolution はネゴシエート済みの解像度を返す
	Resolution() Resolution

	// ReadFrame は1フレームを取得する
	ReadFrame(ctx context.Context) (*Frame, error)

	// Close はデバイスを解放する
	Close() error
}

// Opener はキャプチャデバイスを開く機能を提供する
type Opener interface {
	// Open は要求に従ってデバイスを開き、ストリーミングを開始する
	Open(ctx context.Context, req OpenRequest) (Device, error)
}

// MockDevice はテスト用のモックデバイス実装
type MockDevice struct {
	DeviceName string
	Res        Resolution
	Frames     []*Frame // ReadFrameが順に返すフレーム
	ReadErr    error    // 設定するとReadFrameが必ず失敗する
	CloseErr   error    // 設定するとCloseが失敗する

	mu         sync.Mutex
	readCount  int
	closeCount int
}

// NewMockDevice は新しいMockDeviceを作成する
func NewMockDevice(name string, width, height uint32) *MockDevice {
	return &MockDevice{
		DeviceName: name,
		Res:        Resolution{Width: width, Height: height},
	}
}

// Name はデバイスの表示名を返す
func (m *MockDevice) Name() string {
	return m.DeviceName
}

// Resolution はネゴシエート済みの解像度を返す
func (m *MockDevice) Resolution() Resolution {
	return m.Res
}

// ReadFrame は設定済みのフレームを順に返す
func (m *MockDevice) ReadFrame(_ context.Context) (*Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	if len(m.Frames) == 0 {
		return nil, fmt.Errorf("%w: モックフレームが設定されていません", ErrFrameAcquisition)
	}

	frame := m.Frames[m.readCount%len(m.Frames)]
	m.readCount++
	return frame, nil
}

// Close は解放回数を記録する
func (m *MockDevice) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeCount++
	return m.CloseErr
}

// CloseCount はCloseが呼ばれた回数を返す
func (m *MockDevice) CloseCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeCount
}

// ReadCount はReadFrameが呼ばれた回数を返す
func (m *MockDevice) ReadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.readCount
}

// SetFrames はReadFrameが返すフレームを設定する
func (m *MockDevice) SetFrames(frames []*Frame) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Frames = frames
}

// SetReadErr はテスト用にReadFrame失敗を設定する
func (m *MockDevice) SetReadErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadErr = err
}

// MockOpener はテスト用のモックOpener実装
type MockOpener struct {
	Devices map[string]*MockDevice // デバイスID -> モックデバイス
	OpenErr error                  // 設定するとOpenが必ず失敗する

	mu       sync.Mutex
	openLog  []string
	openWait chan struct{} // 設定するとOpenがクローズまでブロックする
}

// NewMockOpener は新しいMockOpenerを作成する
func NewMockOpener(devices map[string]*MockDevice) *MockOpener {
	return &MockOpener{Devices: devices}
}

// Open はIDに対応するモックデバイスを返す
// 空のIDは "0" として扱う（最初のデバイス）
func (o *MockOpener) Open(_ context.Context, req OpenRequest) (Device, error) {
	o.mu.Lock()
	wait := o.openWait
	openErr := o.OpenErr
	o.openLog = append(o.openLog, req.DeviceID)
	o.mu.Unlock()

	if wait != nil {
		<-wait
	}

	if openErr != nil {
		return nil, openErr
	}

	id := req.DeviceID
	if id == "" {
		id = "0"
	}

	dev, ok := o.Devices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}
	return dev, nil
}

// OpenLog はOpenに渡されたデバイスIDの履歴を返す
func (o *MockOpener) OpenLog() []string {
	o.mu.Lock()
	defer o.mu.Unlock()

	log := make([]string, len(o.openLog))
	copy(log, o.openLog)
	return log
}

// SetOpenWait はOpenをブロックさせるチャンネルを設定する
func (o *MockOpener) SetOpenWait(ch chan struct{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.openWait = ch
}

// SetOpenErr はテスト用にOpen失敗を設定する
func (o *MockOpener) SetOpenErr(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.OpenErr = err
}
