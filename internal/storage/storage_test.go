package storage

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
)

func TestService_SaveFile(t *testing.T) {
	dir := t.TempDir()
	svc := New(dir)

	raw := []byte{0xFF, 0xD8, 0xFF, 0xD9}
	encoded := base64.StdEncoding.EncodeToString(raw)

	// サブディレクトリも含めて作成される
	target := filepath.Join(dir, "2026", "08")
	path, err := svc.SaveFile(target, "photo.jpg", encoded)
	if err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}

	if path != filepath.Join(target, "photo.jpg") {
		t.Errorf("Unexpected path: %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("保存ファイルの読み込みに失敗: %v", err)
	}
	if string(data) != string(raw) {
		t.Errorf("保存内容が一致しません: %v", data)
	}
}

func TestService_SaveFileDataURI(t *testing.T) {
	dir := t.TempDir()
	svc := New(dir)

	raw := []byte("photo payload")
	dataURI := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(raw)

	// data URI形式でも保存できる。dirPath省略時はデフォルト保存先
	path, err := svc.SaveFile("", "photo.jpg", dataURI)
	if err != nil {
		t.Fatalf("SaveFile failed: %v", err)
	}
	if filepath.Dir(path) != dir {
		t.Errorf("Expected default base dir, got %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("保存ファイルの読み込みに失敗: %v", err)
	}
	if string(data) != string(raw) {
		t.Errorf("保存内容が一致しません: %q", data)
	}
}

func TestService_SaveFileErrors(t *testing.T) {
	svc := New(t.TempDir())

	testCases := []struct {
		name     string
		fileName string
		data     string
	}{
		{"ファイル名なし", "", "aGVsbG8="},
		{"パス区切りを含むファイル名", "a/b.jpg", "aGVsbG8="},
		{"不正なbase64", "photo.jpg", "!!!"},
		{"カンマのないdata URI", "photo.jpg", "data:image/jpeg;base64"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.SaveFile("", tc.fileName, tc.data); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

func TestService_CheckDirWritable(t *testing.T) {
	dir := t.TempDir()
	svc := New(dir)

	// 既存ディレクトリ
	ok, err := svc.CheckDirWritable(dir)
	if err != nil {
		t.Fatalf("CheckDirWritable failed: %v", err)
	}
	if !ok {
		t.Error("Expected writable")
	}

	// 存在しないディレクトリは作成される
	missing := filepath.Join(dir, "new", "nested")
	ok, err = svc.CheckDirWritable(missing)
	if err != nil {
		t.Fatalf("CheckDirWritable failed: %v", err)
	}
	if !ok {
		t.Error("Expected writable after creation")
	}
	if _, err := os.Stat(missing); err != nil {
		t.Errorf("Expected directory to exist: %v", err)
	}

	// 後始末のプローブファイルが残っていない
	entries, err := os.ReadDir(missing)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected empty directory, got %d entries", len(entries))
	}
}
