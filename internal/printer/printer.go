package printer

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Info はプリンターの情報
type Info struct {
	Name      string `json:"name"`       // プリンター名（CUPS上の宛先名）
	IsDefault bool   `json:"is_default"` // システムデフォルトか
	State     string `json:"state"`      // 状態の説明文
}

// Runner はOSコマンドの実行を抽象化する（テスト差し替え用）
type Runner interface {
	// Run はコマンドを実行し、標準出力を返す
	Run(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error)
}

// execRunner は実際にコマンドを実行するRunner
type execRunner struct{}

// Run はexec.CommandContextでコマンドを実行する
func (execRunner) Run(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s の実行に失敗: %w (stderr: %s)", name, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// Service はOS印刷スプールへのステートレスなパススルー
type Service struct {
	runner  Runner
	timeout time.Duration
}

// New は新しいServiceを作成する
func New(timeout time.Duration) *Service {
	return NewWithRunner(execRunner{}, timeout)
}

// NewWithRunner はRunnerを差し替えてServiceを作成する
func NewWithRunner(runner Runner, timeout time.Duration) *Service {
	return &Service{runner: runner, timeout: timeout}
}

// List は利用可能なプリンターを列挙する
func (s *Service) List(ctx context.Context) ([]Info, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	output, err := s.runner.Run(ctx, "lpstat", []string{"-p"}, nil)
	if err != nil {
		// プリンターが1台もない環境ではlpstatが失敗する
		// 列挙としては空のリストを返す
		return []Info{}, nil
	}

	defaultName := s.defaultName(ctx)

	var printers []Info
	for _, line := range strings.Split(string(output), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 || fields[0] != "printer" {
			continue
		}

		printers = append(printers, Info{
			Name:      fields[1],
			IsDefault: fields[1] == defaultName,
			State:     strings.TrimSpace(strings.Join(fields[2:], " ")),
		})
	}

	return printers, nil
}

// Default はシステムデフォルトのプリンターを返す
// 設定されていない場合はnilを返す（エラーではない）
func (s *Service) Default(ctx context.Context) (*Info, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	name := s.defaultName(ctx)
	if name == "" {
		return nil, nil
	}

	printers, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range printers {
		if printers[i].Name == name {
			return &printers[i], nil
		}
	}

	// 宛先はあるがlpstat -pに現れない場合も宛先名だけ返す
	return &Info{Name: name, IsDefault: true}, nil
}

// PrintTestPage は指定プリンターへテストページを印刷する
func (s *Service) PrintTestPage(ctx context.Context, printerName string) (string, error) {
	target, err := s.resolve(ctx, printerName)
	if err != nil {
		return "", err
	}

	content := fmt.Sprintf(`
Shashinkan プリンターテストページ
=================================

プリンター: %s
状態: %s

この文字がはっきり読めれば、プリンターは正常に動作しています。

印刷日時: %s

Shashinkan フォトブースシステム
`, target.Name, target.State, time.Now().Format("2006-01-02 15:04:05"))

	if err := s.submit(ctx, target.Name, "shashinkan-test-page", []byte(content)); err != nil {
		return "", err
	}
	return fmt.Sprintf("テストページをプリンターへ送信しました: %s", target.Name), nil
}

// PrintPhoto は写真を印刷する
// imageDataはbase64エンコードされたJPEG。data URI形式のプレフィックスは取り除く
// printerNameが空の場合はデフォルトプリンターを使う
func (s *Service) PrintPhoto(ctx context.Context, imageData, printerName string) (string, error) {
	payload, err := decodeImagePayload(imageData)
	if err != nil {
		return "", err
	}

	target, err := s.resolve(ctx, printerName)
	if err != nil {
		return "", err
	}

	if err := s.submit(ctx, target.Name, "shashinkan-photo", payload); err != nil {
		return "", err
	}
	return fmt.Sprintf("写真をプリンターへ送信しました: %s", target.Name), nil
}

// resolve は印刷先のプリンターを決定する
// 名前が空の場合はデフォルトプリンターへフォールバックする
func (s *Service) resolve(ctx context.Context, printerName string) (*Info, error) {
	if printerName == "" {
		target, err := s.Default(ctx)
		if err != nil {
			return nil, err
		}
		if target == nil {
			return nil, fmt.Errorf("プリンターが見つかりません")
		}
		return target, nil
	}

	printers, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range printers {
		if printers[i].Name == printerName {
			return &printers[i], nil
		}
	}
	return nil, fmt.Errorf("プリンター '%s' が見つかりません", printerName)
}

// submit はlpコマンドで印刷ジョブを投入する
// ジョブ名にはUUIDの先頭8桁を付けて識別可能にする
func (s *Service) submit(ctx context.Context, printerName, jobPrefix string, payload []byte) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	jobName := fmt.Sprintf("%s-%.8s", jobPrefix, uuid.New().String())
	args := []string{"-d", printerName, "-t", jobName, "-"}

	if _, err := s.runner.Run(ctx, "lp", args, payload); err != nil {
		return fmt.Errorf("印刷ジョブの投入に失敗: %w", err)
	}
	return nil
}

// defaultName はlpstat -dからデフォルト宛先名を取り出す
func (s *Service) defaultName(ctx context.Context) string {
	output, err := s.runner.Run(ctx, "lpstat", []string{"-d"}, nil)
	if err != nil {
		return ""
	}

	// 例: "system default destination: HP_LaserJet"
	line := strings.TrimSpace(string(output))
	parts := strings.SplitN(line, ":", 2)
	if len(parts) != 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// decodeImagePayload はbase64文字列（data URI形式も可）をバイト列へ戻す
func decodeImagePayload(imageData string) ([]byte, error) {
	data := imageData
	if strings.HasPrefix(data, "data:image") {
		parts := strings.SplitN(data, ",", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("画像データの形式が不正です")
		}
		data = parts[1]
	}

	payload, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("画像データのデコードに失敗: %w", err)
	}
	return payload, nil
}
