// Package camera キャプチャデバイスの排他制御を担う
//
// # 責務
// - キャプチャデバイスの排他所有とコマンドの逐次実行（アクターモデル）
// - デバイスのオープン・解像度ネゴシエーション・解放
// - 1フレームのキャプチャとJPEGエンコード（data URI形式）
// - キャプチャデバイスの列挙
//
// # 使い分け
// このパッケージは以下の場合に使用する：
// - 複数のゴルーチンから単一のカメラデバイスを安全に操作したい
// - カメラから静止画を取得してUIに埋め込みたい
// - デバイスの開始・停止・状態取得を同期的な呼び出しとして扱いたい
//
// # 仕様
// - Device: V4L2デバイスのハンドルラッパー。ワーカー以外から触れてはならない
// - Actor: デバイスを所有する常駐ワーカー。コマンドをFIFOで1つずつ処理する
// - Registry: ワーカーを高々1つだけ生成する遅延初期化レジストリ
// - Facade: 呼び出し側向けの同期API。返信チャンネルとタイムアウトを隠蔽する
// - タイムアウトしたコマンドはキャンセルされず、結果だけが破棄される
//
// # 前提要件
//   - V4L2対応のキャプチャデバイス（例: /dev/video0）
//   - v4l-utils: デバイス名の取得とフォーマット判定に使用
//     Ubuntu/Debian: sudo apt install v4l-utils
//   - videoグループへの参加: デバイスアクセス権限
//     sudo usermod -a -G video $USER
package camera
