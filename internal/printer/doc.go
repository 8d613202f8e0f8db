// Package printer OSの印刷スプールへのパススルーを担う
//
// # 責務
// - プリンターの列挙とデフォルトプリンターの取得
// - テストページと写真の印刷ジョブ投入
//
// # 仕様
// - CUPSのコマンドラインツール（lpstat / lp）経由で操作する
// - 内部に状態機械を持たない。すべて同期的な単発呼び出し
// - 失敗はエラー値として返し、プロセスを落とさない
//
// # 前提要件
//   - cups-client: lpstat / lpコマンドに使用
//     Ubuntu/Debian: sudo apt install cups-client
package printer
