package camera

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// Actor はキャプチャデバイスを排他所有する常駐ワーカー
// コマンドを受信順に1つずつ、完了まで処理する。2つのコマンドが
// 同時に実行されることはなく、デバイスハンドルはワーカーの
// ゴルーチン以外から一切触れられない
type Actor struct {
	opener Opener
	codec  *Codec
	maxRes Resolution
}

// newActor は新しいActorを作成する
func newActor(opener Opener, codec *Codec, maxRes Resolution) *Actor {
	return &Actor{
		opener: opener,
		codec:  codec,
		maxRes: maxRes,
	}
}

// run はワーカーループ。commandsがクローズされるまで処理を続ける
// コマンドの失敗はそのコマンドの返信にのみ現れ、ループ自体は死なない
func (a *Actor) run(commands <-chan command) {
	var current Device

	for cmd := range commands {
		switch c := cmd.(type) {
		case startCmd:
			current = a.handleStart(current, c)
		case stopCmd:
			current = a.handleStop(current, c)
		case captureCmd:
			c.reply <- a.handleCapture(current, c.quality)
		case statusCmd:
			c.reply <- statusOf(current)
		}
	}

	// ワーカー終了時、開いているデバイスはベストエフォートで解放する
	if current != nil {
		_ = current.Close() // エラーは破棄する
		log.Printf("カメラワーカーを終了しました")
	}
}

// handleStart はデバイスを開いてOpen状態へ遷移する
// 失敗した場合はClosed状態のまま、エラーを返信する
func (a *Actor) handleStart(current Device, c startCmd) Device {
	// 既存のデバイスは新しいオープンの前に停止・解放する
	// 解放の失敗はベストエフォートとして破棄する
	if current != nil {
		_ = current.Close()
		current = nil
	}

	dev, err := a.opener.Open(context.Background(), OpenRequest{
		DeviceID:  c.deviceID,
		MaxWidth:  a.maxRes.Width,
		MaxHeight: a.maxRes.Height,
	})
	if err != nil {
		c.reply <- startResult{err: err}
		return nil
	}

	res := dev.Resolution()
	log.Printf("カメラを開始しました: %s (%dx%d)", dev.Name(), res.Width, res.Height)

	c.reply <- startResult{status: statusOf(dev)}
	return dev
}

// handleStop はデバイスを解放してClosed状態へ遷移する
// 冪等であり、停止済みでも成功を返信する
func (a *Actor) handleStop(current Device, c stopCmd) Device {
	if current != nil {
		_ = current.Close() // ベストエフォートの解放。エラーは破棄する
		log.Printf("カメラを停止しました")
	}
	c.reply <- nil
	return nil
}

// handleCapture は1フレームを取得してJPEGのdata URIへ変換する
// どの段階で失敗してもOpen状態は変化しない
func (a *Actor) handleCapture(current Device, quality int) captureResult {
	if current == nil {
		return captureResult{err: ErrNotStarted}
	}

	frame, err := current.ReadFrame(context.Background())
	if err != nil {
		if !errors.Is(err, ErrFrameAcquisition) {
			err = fmt.Errorf("%w: %v", ErrFrameAcquisition, err)
		}
		return captureResult{err: err}
	}

	image, err := a.codec.Encode(frame, quality)
	if err != nil {
		return captureResult{err: err}
	}

	return captureResult{image: image}
}

// statusOf はデバイスハンドルから現在状態を組み立てる
// IsActive ⇔ DeviceNameとResolutionが共に設定される、を常に満たす
func statusOf(dev Device) Status {
	if dev == nil {
		return Status{IsActive: false}
	}

	name := dev.Name()
	res := dev.Resolution()
	return Status{
		IsActive:   true,
		DeviceName: &name,
		Resolution: &res,
	}
}
