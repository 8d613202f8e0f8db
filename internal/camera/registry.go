package camera

import "sync"

// commandQueueSize はコマンドキューのバッファ長
// 送信側が通常ブロックしない程度の余裕を持たせる
const commandQueueSize = 64

// Registry はワーカーの生成を高々1回に制限するレジストリ
// コマンドキューの送信エンドポイントをプロセス全体で共有し、
// 初回利用時にワーカーを1つだけ生成する。一度生成されたワーカーは
// Shutdownまで生き続け、置き換えられることはない
type Registry struct {
	actor *Actor

	mu       sync.Mutex // 遅延生成のcheck-and-createを直列化する
	commands chan command
	spawned  int // 生成されたワーカー数（テスト検証用）

	sendMu sync.RWMutex // 送信中のクローズを防ぐ
	closed bool
}

// NewRegistry は新しいRegistryを作成する
// ワーカーはこの時点では生成されず、初回のコマンド送信で生成される
func NewRegistry(opener Opener, opts Options) *Registry {
	return &Registry{
		actor: newActor(opener, NewCodec(), Resolution{
			Width:  opts.MaxWidth,
			Height: opts.MaxHeight,
		}),
	}
}

// ensureStarted はコマンドキューを返す。ワーカーが存在しなければ
// ロックの中で1つだけ生成する。同時に呼ばれても2つ目は作られない
func (r *Registry) ensureStarted() chan command {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.commands == nil {
		r.commands = make(chan command, commandQueueSize)
		r.spawned++
		go r.actor.run(r.commands)
	}
	return r.commands
}

// submit はコマンドをワーカーへ送る
// シャットダウン済みの場合はErrChannelClosedを返す
func (r *Registry) submit(cmd command) error {
	r.sendMu.RLock()
	defer r.sendMu.RUnlock()

	if r.closed {
		return ErrChannelClosed
	}
	ch := r.ensureStarted()
	ch <- cmd
	return nil
}

// Shutdown はコマンドキューを閉じ、ワーカーにデバイスの解放を促す
// 以降のコマンド送信はErrChannelClosedになる
func (r *Registry) Shutdown() {
	r.sendMu.Lock()
	defer r.sendMu.Unlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.commands != nil && !r.closed {
		close(r.commands)
	}
	r.closed = true
}

// workerCount は生成されたワーカー数を返す（テスト検証用）
func (r *Registry) workerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.spawned
}
