package printer

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordedCall はMockRunnerが記録した1回のコマンド実行
type recordedCall struct {
	name  string
	args  []string
	stdin []byte
}

// MockRunner はテスト用のRunner実装
type MockRunner struct {
	mu      sync.Mutex
	calls   []recordedCall
	outputs map[string][]byte // "name arg1 arg2..." -> 標準出力
	errs    map[string]error
}

// NewMockRunner は新しいMockRunnerを作成する
func NewMockRunner() *MockRunner {
	return &MockRunner{
		outputs: map[string][]byte{},
		errs:    map[string]error{},
	}
}

// Run は記録して設定済みの出力を返す
func (m *MockRunner) Run(_ context.Context, name string, args []string, stdin []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, recordedCall{name: name, args: args, stdin: stdin})

	key := name + " " + strings.Join(args, " ")
	if err, ok := m.errs[key]; ok {
		return nil, err
	}
	if out, ok := m.outputs[key]; ok {
		return out, nil
	}
	// lpコマンドはジョブ名がランダムなため前方一致で解決する
	for k, out := range m.outputs {
		if strings.HasPrefix(key, k) {
			return out, nil
		}
	}
	for k, err := range m.errs {
		if strings.HasPrefix(key, k) {
			return nil, err
		}
	}
	return nil, errors.New("モック: 未設定のコマンド: " + key)
}

// Calls は記録された実行履歴を返す
func (m *MockRunner) Calls() []recordedCall {
	m.mu.Lock()
	defer m.mu.Unlock()

	calls := make([]recordedCall, len(m.calls))
	copy(calls, m.calls)
	return calls
}

func newTestService(runner Runner) *Service {
	return NewWithRunner(runner, 5*time.Second)
}

func TestService_List(t *testing.T) {
	runner := NewMockRunner()
	runner.outputs["lpstat -p"] = []byte(
		"printer HP_LaserJet is idle.  enabled since Mon 01 Jan 2026\n" +
			"printer Canon_Photo disabled since Mon 01 Jan 2026\n")
	runner.outputs["lpstat -d"] = []byte("system default destination: Canon_Photo\n")

	svc := newTestService(runner)
	printers, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	if len(printers) != 2 {
		t.Fatalf("Expected 2 printers, got %d", len(printers))
	}
	if printers[0].Name != "HP_LaserJet" || printers[0].IsDefault {
		t.Errorf("Unexpected first printer: %+v", printers[0])
	}
	if printers[1].Name != "Canon_Photo" || !printers[1].IsDefault {
		t.Errorf("Expected Canon_Photo to be default: %+v", printers[1])
	}
	if !strings.Contains(printers[0].State, "idle") {
		t.Errorf("Unexpected state: %q", printers[0].State)
	}
}

func TestService_ListNoPrinters(t *testing.T) {
	runner := NewMockRunner()
	runner.errs["lpstat -p"] = errors.New("lpstat: プリンターがありません")

	svc := newTestService(runner)
	printers, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(printers) != 0 {
		t.Errorf("Expected empty list, got %d", len(printers))
	}
}

func TestService_DefaultNone(t *testing.T) {
	runner := NewMockRunner()
	runner.outputs["lpstat -d"] = []byte("no system default destination\n")

	svc := newTestService(runner)
	info, err := svc.Default(context.Background())
	if err != nil {
		t.Fatalf("Default failed: %v", err)
	}
	if info != nil {
		t.Errorf("Expected nil default printer, got %+v", info)
	}
}

func TestService_PrintPhoto(t *testing.T) {
	payload := []byte{0xFF, 0xD8, 0xFF, 0xD9} // 最小のJPEGマーカー列
	dataURI := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(payload)

	runner := NewMockRunner()
	runner.outputs["lpstat -p"] = []byte("printer HP_LaserJet is idle.\n")
	runner.outputs["lpstat -d"] = []byte("system default destination: HP_LaserJet\n")
	runner.outputs["lp -d HP_LaserJet"] = []byte("request id is HP_LaserJet-42\n")

	svc := newTestService(runner)

	// data URIプレフィックスは取り除かれ、デコード済みバイト列が投入される
	msg, err := svc.PrintPhoto(context.Background(), dataURI, "")
	if err != nil {
		t.Fatalf("PrintPhoto failed: %v", err)
	}
	if !strings.Contains(msg, "HP_LaserJet") {
		t.Errorf("Unexpected message: %q", msg)
	}

	var lpCall *recordedCall
	for _, call := range runner.Calls() {
		if call.name == "lp" {
			c := call
			lpCall = &c
		}
	}
	if lpCall == nil {
		t.Fatal("Expected lp to be invoked")
	}
	if !bytes.Equal(lpCall.stdin, payload) {
		t.Errorf("Expected decoded payload on stdin, got %v", lpCall.stdin)
	}
	if lpCall.args[0] != "-d" || lpCall.args[1] != "HP_LaserJet" {
		t.Errorf("Unexpected lp args: %v", lpCall.args)
	}
}

func TestService_PrintPhotoInvalidData(t *testing.T) {
	runner := NewMockRunner()
	svc := newTestService(runner)

	_, err := svc.PrintPhoto(context.Background(), "data:image/jpeg;base64,!!!invalid!!!", "")
	if err == nil {
		t.Fatal("Expected error for invalid base64")
	}

	// デコード失敗時はコマンドが一切実行されない
	if len(runner.Calls()) != 0 {
		t.Errorf("Expected no commands, got %d", len(runner.Calls()))
	}
}

func TestService_PrintPhotoPrinterNotFound(t *testing.T) {
	runner := NewMockRunner()
	runner.outputs["lpstat -p"] = []byte("printer HP_LaserJet is idle.\n")
	runner.outputs["lpstat -d"] = []byte("system default destination: HP_LaserJet\n")

	svc := newTestService(runner)
	data := base64.StdEncoding.EncodeToString([]byte("x"))

	_, err := svc.PrintPhoto(context.Background(), data, "存在しないプリンター")
	if err == nil {
		t.Fatal("Expected error for unknown printer")
	}
}

func TestService_PrintTestPage(t *testing.T) {
	runner := NewMockRunner()
	runner.outputs["lpstat -p"] = []byte("printer HP_LaserJet is idle.\n")
	runner.outputs["lpstat -d"] = []byte("no system default destination\n")
	runner.outputs["lp -d HP_LaserJet"] = []byte("request id is HP_LaserJet-1\n")

	svc := newTestService(runner)
	msg, err := svc.PrintTestPage(context.Background(), "HP_LaserJet")
	if err != nil {
		t.Fatalf("PrintTestPage failed: %v", err)
	}
	if !strings.Contains(msg, "HP_LaserJet") {
		t.Errorf("Unexpected message: %q", msg)
	}

	// テストページの本文にプリンター名が入っている
	for _, call := range runner.Calls() {
		if call.name == "lp" {
			if !strings.Contains(string(call.stdin), "HP_LaserJet") {
				t.Error("Expected printer name in test page content")
			}
		}
	}
}

func TestDecodeImagePayload(t *testing.T) {
	raw := []byte("こんにちは")
	encoded := base64.StdEncoding.EncodeToString(raw)

	testCases := []struct {
		name      string
		input     string
		expectErr bool
	}{
		{"生のbase64", encoded, false},
		{"data URI形式", "data:image/jpeg;base64," + encoded, false},
		{"PNGのdata URI", "data:image/png;base64," + encoded, false},
		{"カンマのないdata URI", "data:image/jpeg;base64", true},
		{"不正なbase64", "data:image/jpeg;base64,???", true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			payload, err := decodeImagePayload(tc.input)
			if tc.expectErr {
				if err == nil {
					t.Error("Expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !bytes.Equal(payload, raw) {
				t.Errorf("Payload mismatch: %v", payload)
			}
		})
	}
}
