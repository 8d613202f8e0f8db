// Package storage 撮影した写真のファイル保存を担う
//
// # 責務
// - base64エンコードされた画像データのディスク保存
// - 保存先ディレクトリの作成と書き込み可否の確認
//
// # 仕様
// - 内部状態を持たないOSファイルシステムへのパススルー
// - 保存先は設定で与えられたデフォルトか、呼び出しごとの明示指定
package storage

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Service はファイル保存のステートレスなパススルー
type Service struct {
	baseDir string // デフォルトの保存先ディレクトリ
}

// New は新しいServiceを作成する
func New(baseDir string) *Service {
	return &Service{baseDir: baseDir}
}

// BaseDir はデフォルトの保存先ディレクトリを返す
func (s *Service) BaseDir() string {
	return s.baseDir
}

// SaveFile はbase64エンコードされたデータをファイルへ保存する
// dirPathが空の場合はデフォルトの保存先を使う
// ディレクトリは必要に応じて再帰的に作成する。保存したパスを返す
func (s *Service) SaveFile(dirPath, fileName, dataBase64 string) (string, error) {
	if dirPath == "" {
		dirPath = s.baseDir
	}
	if fileName == "" {
		return "", fmt.Errorf("ファイル名が指定されていません")
	}
	if strings.Contains(fileName, string(os.PathSeparator)) || fileName == ".." {
		return "", fmt.Errorf("不正なファイル名: %s", fileName)
	}

	if err := os.MkdirAll(dirPath, 0o755); err != nil {
		return "", fmt.Errorf("ディレクトリの作成に失敗: %w", err)
	}

	// data URI形式のプレフィックスは取り除く
	data := dataBase64
	if strings.HasPrefix(data, "data:") {
		parts := strings.SplitN(data, ",", 2)
		if len(parts) != 2 {
			return "", fmt.Errorf("画像データの形式が不正です")
		}
		data = parts[1]
	}

	payload, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return "", fmt.Errorf("base64のデコードに失敗: %w", err)
	}

	filePath := filepath.Join(dirPath, fileName)
	if err := os.WriteFile(filePath, payload, 0o644); err != nil {
		return "", fmt.Errorf("ファイルの書き込みに失敗: %w", err)
	}

	return filePath, nil
}

// CheckDirWritable はディレクトリが書き込み可能か確認する
// 存在しない場合は作成を試みる
func (s *Service) CheckDirWritable(dirPath string) (bool, error) {
	if dirPath == "" {
		dirPath = s.baseDir
	}

	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		if err := os.MkdirAll(dirPath, 0o755); err != nil {
			return false, fmt.Errorf("ディレクトリを作成できません: %w", err)
		}
	}

	// 実際に書いてみて確認する
	probe := filepath.Join(dirPath, ".shashinkan_probe")
	if err := os.WriteFile(probe, []byte("probe"), 0o644); err != nil {
		return false, nil
	}
	_ = os.Remove(probe) // ベストエフォートの後始末。エラーは破棄する

	return true, nil
}
