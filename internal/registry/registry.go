// Package registry は完了したレンダーパスのインメモリ保管を提供する。
// パスはTTL（デフォルト15分）を超過すると定期スイープで削除される。
// 永続化は行わない。プロセス再起動でパスは消える前提の設計。
package registry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hitoshi/mrhud/internal/model"
)

// Store は完了したパスのインメモリレジストリ。
// 保存・参照・スイープは単一ミューテックスで直列化される。
type Store struct {
	mu     sync.RWMutex
	passes map[string]entry
	logger *slog.Logger
	TTL    time.Duration // パスの保持期間（デフォルト: 15分）
}

type entry struct {
	pass     *model.Pass
	storedAt time.Time
}

// NewStore は新しいStoreを生成する。
// デフォルトのTTLは15分。
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		passes: make(map[string]entry),
		logger: logger,
		TTL:    15 * time.Minute,
	}
}

// Save はパスを保存する。同一idの再保存は上書きになる。
func (s *Store) Save(pass *model.Pass) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passes[pass.ID] = entry{pass: pass, storedAt: time.Now()}
}

// Find はidでパスを参照する。不在またはTTL超過は(nil, false)。
// 超過済みエントリの削除はスイープに委ね、ここでは読み取りに留める。
func (s *Store) Find(id string) (*model.Pass, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.passes[id]
	if !ok {
		return nil, false
	}
	if time.Since(e.storedAt) > s.TTL {
		return nil, false
	}
	return e.pass, true
}

// Len は保持中のパス数を返す（超過済みを含む）。
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.passes)
}

// Sweep はTTLを超過したパスを削除し、削除件数を返す。
// 冪等: 削除対象がない場合でも安全に完了する。
func (s *Store) Sweep() int {
	start := time.Now()

	s.mu.Lock()
	evicted := 0
	for id, e := range s.passes {
		if time.Since(e.storedAt) > s.TTL {
			delete(s.passes, id)
			evicted++
		}
	}
	remaining := len(s.passes)
	s.mu.Unlock()

	if evicted > 0 {
		s.logger.Info("期限切れパスのスイープが完了しました",
			slog.Int("evicted_count", evicted),
			slog.Int("remaining_count", remaining),
			slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
		)
	}
	return evicted
}

// RunSweeper はコンテキストが取り消されるまで定期的にSweepを実行する。
// intervalが0以下の場合はTTLの半分を使う。
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = s.TTL / 2
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("パススイーパーを開始します",
		slog.String("interval", interval.String()),
		slog.String("ttl", s.TTL.String()),
	)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("パススイーパーを停止します")
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
