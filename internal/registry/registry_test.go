package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/hitoshi/mrhud/internal/model"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestNewStore_DefaultTTL(t *testing.T) {
	s := NewStore(discardLogger())

	if s.TTL != 15*time.Minute {
		t.Errorf("TTL = %v, want 15m", s.TTL)
	}
}

func TestStore_SaveAndFind(t *testing.T) {
	s := NewStore(discardLogger())

	pass := &model.Pass{ID: "p1"}
	s.Save(pass)

	got, ok := s.Find("p1")
	if !ok {
		t.Fatal("保存したパスが参照できない")
	}
	if got.ID != "p1" {
		t.Errorf("ID = %q, want %q", got.ID, "p1")
	}
}

func TestStore_FindUnknownID(t *testing.T) {
	s := NewStore(discardLogger())

	if _, ok := s.Find("nonexistent"); ok {
		t.Error("未知のidで ok=true を返してはならない")
	}
}

func TestStore_SaveOverwritesSameID(t *testing.T) {
	s := NewStore(discardLogger())

	s.Save(&model.Pass{ID: "p1"})
	s.Save(&model.Pass{ID: "p1", ProjectID: 55})

	got, ok := s.Find("p1")
	if !ok {
		t.Fatal("上書き後のパスが参照できない")
	}
	if got.ProjectID != 55 {
		t.Errorf("ProjectID = %d, want 55 (上書きされるべき)", got.ProjectID)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestStore_FindExpiredPass(t *testing.T) {
	s := NewStore(discardLogger())
	s.TTL = 10 * time.Millisecond

	s.Save(&model.Pass{ID: "p1"})
	time.Sleep(20 * time.Millisecond)

	if _, ok := s.Find("p1"); ok {
		t.Error("TTL超過後のパスは参照できないべき")
	}
}

func TestStore_SweepEvictsExpired(t *testing.T) {
	var buf bytes.Buffer
	s := NewStore(newTestLogger(&buf))
	s.TTL = 10 * time.Millisecond

	s.Save(&model.Pass{ID: "old"})
	time.Sleep(20 * time.Millisecond)
	s.Save(&model.Pass{ID: "fresh"})

	evicted := s.Sweep()
	if evicted != 1 {
		t.Errorf("evicted = %d, want 1", evicted)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
	if _, ok := s.Find("fresh"); !ok {
		t.Error("期限内のパスはスイープ後も残るべき")
	}

	// スイープ件数がログに記録されること
	var entry map[string]interface{}
	found := false
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue
		}
		if count, ok := entry["evicted_count"]; ok && count == float64(1) {
			found = true
			break
		}
	}
	if !found {
		t.Errorf("ログに evicted_count=1 が記録されていない。ログ出力: %s", buf.String())
	}
}

func TestStore_SweepIdempotent(t *testing.T) {
	s := NewStore(discardLogger())

	if got := s.Sweep(); got != 0 {
		t.Errorf("空ストアのSweep = %d, want 0", got)
	}
	if got := s.Sweep(); got != 0 {
		t.Errorf("2回目のSweep = %d, want 0", got)
	}
}

func TestStore_RunSweeperStopsOnCancel(t *testing.T) {
	s := NewStore(discardLogger())
	s.TTL = 5 * time.Millisecond

	s.Save(&model.Pass{ID: "p1"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunSweeper(ctx, 10*time.Millisecond)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("キャンセル後にスイーパーが停止しない")
	}

	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0 (スイーパーが期限切れパスを削除するべき)", s.Len())
	}
}
