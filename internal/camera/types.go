package camera

import "errors"

// Resolution はカメラの解像度を表す
type Resolution struct {
	Width  uint32 `json:"width"`  // 幅
	Height uint32 `json:"height"` // 高さ
}

// Status はカメラの動作状態を表す値型
// IsActiveがtrueのとき、DeviceNameとResolutionは必ず設定される
type Status struct {
	IsActive   bool        `json:"is_active"`   // カメラが動作中か
	DeviceName *string     `json:"device_name"` // デバイスの表示名（停止中はnil）
	Resolution *Resolution `json:"resolution"`  // ネゴシエート済み解像度（停止中はnil）
}

// DeviceInfo は列挙されたキャプチャデバイスの情報
type DeviceInfo struct {
	ID   string `json:"id"`   // デバイス識別子（例: "0"）
	Name string `json:"name"` // デバイスの表示名
}

// エラー分類
// すべてのエラーは発生箇所で捕捉され、呼び出し元へ値として返される
var (
	// ErrDeviceNotFound はデバイスが存在しない、または使用中の場合
	ErrDeviceNotFound = errors.New("カメラデバイスが見つかりません")
	// ErrFormatNegotiation は解像度・フォーマットの交渉に失敗した場合
	ErrFormatNegotiation = errors.New("フォーマットのネゴシエーションに失敗しました")
	// ErrNotStarted はカメラ未開始でのキャプチャ要求
	ErrNotStarted = errors.New("カメラが開始されていません")
	// ErrFrameAcquisition はフレーム取得の失敗
	ErrFrameAcquisition = errors.New("フレームの取得に失敗しました")
	// ErrDecode は生フレームのデコード失敗
	ErrDecode = errors.New("フレームのデコードに失敗しました")
	// ErrEncode はJPEGエンコードの失敗
	ErrEncode = errors.New("JPEGエンコードに失敗しました")
	// ErrChannelClosed はワーカーへコマンドを送れない場合
	ErrChannelClosed = errors.New("カメラワーカーに到達できません")
	// ErrTimeout は返信待ちのタイムアウト
	ErrTimeout = errors.New("カメラコマンドがタイムアウトしました")
)

// command はワーカーへ送られるコマンドの直和型
// 各コマンドは自分専用の使い捨て返信チャンネルを1つだけ持つ
type command interface {
	isCommand()
}

// startCmd はカメラの開始要求
type startCmd struct {
	deviceID string // 空文字列は最初に列挙されたデバイス
	reply    chan startResult
}

type startResult struct {
	status Status
	err    error
}

// stopCmd はカメラの停止要求。停止済みでも成功する
type stopCmd struct {
	reply chan error
}

// captureCmd は1フレームのキャプチャ要求
type captureCmd struct {
	quality int // JPEG品質 0-100。範囲外はエンコーダーにそのまま渡す
	reply   chan captureResult
}

type captureResult struct {
	image string // data:image/jpeg;base64,... 形式
	err   error
}

// statusCmd は現在状態の取得要求。状態を変更しない
type statusCmd struct {
	reply chan Status
}

func (startCmd) isCommand()   {}
func (stopCmd) isCommand()    {}
func (captureCmd) isCommand() {}
func (statusCmd) isCommand()  {}
