// Package server フロントエンドUI向けのHTTPコマンドサーフェスを提供する
//
// # 責務
// - カメラ制御コマンド（開始・停止・状態・キャプチャ・プレビュー）の公開
// - プリンター列挙と印刷ジョブ投入のパススルー
// - 写真ファイル保存のパススルー
// - グレースフルシャットダウン
//
// # 仕様
// - Ginフレームワークによるリクエスト/レスポンス形式のAPI
// - すべての操作は成功値かエラー応答のどちらかを返し、プロセスを落とさない
package server
