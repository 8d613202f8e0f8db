package camera

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vladimirvivien/go4vl/device"
	"github.com/vladimirvivien/go4vl/v4l2"
)

// フレーム取得の上限時間
// ストリーミング開始直後はドライバーのウォームアップで数フレーム分かかる
const frameReadTimeout = 3 * time.Second

// V4L2Device はgo4vlを使ったDeviceの実装
// ストリーミング中のバッファはmmapで再利用されるため、
// フレームは取得時に必ずコピーする
type V4L2Device struct {
	dev    *device.Device
	cancel context.CancelFunc // ストリーミングの停止用
	frames <-chan []byte
	name   string
	res    Resolution
	format FrameFormat
}

// V4L2Opener はV4L2デバイスを開くOpenerの実装
type V4L2Opener struct {
	discovery *Discovery
}

// NewV4L2Opener は新しいV4L2Openerを作成する
func NewV4L2Opener(discovery *Discovery) *V4L2Opener {
	return &V4L2Opener{discovery: discovery}
}

// Open は要求に従ってV4L2デバイスを開き、ストリーミングを開始する
// 解像度は上限以下で最も高いものをドライバーと交渉する
func (o *V4L2Opener) Open(ctx context.Context, req OpenRequest) (Device, error) {
	path, err := o.resolvePath(ctx, req.DeviceID)
	if err != nil {
		return nil, err
	}

	// MJPEG優先で解像度上限を要求する。ドライバーは最も近い
	// サポート値に調整して返す
	dev, err := device.Open(
		path,
		device.WithIOType(v4l2.IOTypeMMAP),
		device.WithPixFormat(v4l2.PixFormat{
			PixelFormat: v4l2.PixelFmtMJPEG,
			Width:       req.MaxWidth,
			Height:      req.MaxHeight,
			Field:       v4l2.FieldNone,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s を開けません: %v", ErrDeviceNotFound, path, err)
	}

	// 実際に適用されたフォーマットを確認する
	pixFmt, err := dev.GetPixFormat()
	if err != nil {
		_ = dev.Close() // ベストエフォートの解放。エラーは破棄する
		return nil, fmt.Errorf("%w: フォーマットを確認できません: %v", ErrFormatNegotiation, err)
	}

	format, ok := frameFormatOf(pixFmt.PixelFormat)
	if !ok {
		// MJPEGが通らなかった場合はYUYVで再交渉する
		pixFmt.PixelFormat = v4l2.PixelFmtYUYV
		if err := dev.SetPixFormat(pixFmt); err != nil {
			_ = dev.Close()
			return nil, fmt.Errorf("%w: YUYVを設定できません: %v", ErrFormatNegotiation, err)
		}
		pixFmt, err = dev.GetPixFormat()
		if err != nil {
			_ = dev.Close()
			return nil, fmt.Errorf("%w: フォーマットを確認できません: %v", ErrFormatNegotiation, err)
		}
		format, ok = frameFormatOf(pixFmt.PixelFormat)
		if !ok {
			_ = dev.Close()
			return nil, fmt.Errorf("%w: サポートされないピクセルフォーマット: 0x%08x",
				ErrFormatNegotiation, pixFmt.PixelFormat)
		}
	}

	// ストリーミングを開始する
	// 停止はCloseでキャンセルする（呼び出し元のctxには紐付けない）
	streamCtx, cancel := context.WithCancel(context.Background())
	if err := dev.Start(streamCtx); err != nil {
		cancel()
		_ = dev.Close()
		return nil, fmt.Errorf("%w: ストリーミングを開始できません: %v", ErrDeviceNotFound, err)
	}

	name := dev.Capability().Card
	if name == "" {
		name = o.discovery.DeviceName(ctx, path)
	}

	return &V4L2Device{
		dev:    dev,
		cancel: cancel,
		frames: dev.GetOutput(),
		name:   name,
		res:    Resolution{Width: pixFmt.Width, Height: pixFmt.Height},
		format: format,
	}, nil
}

// resolvePath はデバイスIDをデバイスパスへ解決する
func (o *V4L2Opener) resolvePath(ctx context.Context, deviceID string) (string, error) {
	// 空のIDは最初に列挙されたデバイス
	if deviceID == "" {
		devices, err := o.discovery.ScanDevices(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
		}
		if len(devices) == 0 {
			return "", fmt.Errorf("%w: 利用可能なデバイスがありません", ErrDeviceNotFound)
		}
		return devicePath(devices[0].ID), nil
	}

	// フルパス指定も許容する
	if strings.HasPrefix(deviceID, "/dev/") {
		return deviceID, nil
	}

	if _, err := strconv.Atoi(deviceID); err != nil {
		return "", fmt.Errorf("%w: 無効なデバイスID: %s", ErrDeviceNotFound, deviceID)
	}
	return devicePath(deviceID), nil
}

// Name はデバイスの表示名を返す
func (d *V4L2Device) Name() string {
	return d.name
}

// Resolution はネゴシエート済みの解像度を返す
func (d *V4L2Device) Resolution() Resolution {
	return d.res
}

// ReadFrame はストリームから1フレームを取得する
func (d *V4L2Device) ReadFrame(ctx context.Context) (*Frame, error) {
	timer := time.NewTimer(frameReadTimeout)
	defer timer.Stop()

	select {
	case buf, ok := <-d.frames:
		if !ok {
			return nil, fmt.Errorf("%w: ストリームが終了しました", ErrFrameAcquisition)
		}
		// mmapバッファは再利用されるためコピーする
		data := make([]byte, len(buf))
		copy(data, buf)
		return &Frame{
			Data:   data,
			Format: d.format,
			Width:  d.res.Width,
			Height: d.res.Height,
		}, nil
	case <-timer.C:
		return nil, fmt.Errorf("%w: フレームが届きません", ErrFrameAcquisition)
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrFrameAcquisition, ctx.Err())
	}
}

// Close はストリーミングを停止してデバイスを解放する
func (d *V4L2Device) Close() error {
	d.cancel()
	return d.dev.Close()
}

// frameFormatOf はV4L2のピクセルフォーマットをFrameFormatへ変換する
func frameFormatOf(pixelFormat v4l2.FourCCType) (FrameFormat, bool) {
	switch pixelFormat {
	case v4l2.PixelFmtMJPEG, v4l2.PixelFmtJPEG:
		return FormatMJPEG, true
	case v4l2.PixelFmtYUYV:
		return FormatYUYV, true
	default:
		return "", false
	}
}
