package classify

import (
	"testing"
	"time"

	"github.com/hitoshi/mrhud/internal/model"
)

var now = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

// readyItem はReady条件をすべて満たすアイテムを返す。
func readyItem() model.Item {
	return model.Item{
		ID:            10,
		CreatedAt:     now.Add(-24 * time.Hour),
		LikeCount:     2,
		PipelineState: model.PipelineSuccess,
	}
}

func TestHasPassedReview(t *testing.T) {
	tests := []struct {
		name    string
		pending bool
		done    bool
		want    bool
	}{
		{"ラベルなしは通過扱い", false, false, true},
		{"テスト待ちのみは未通過", true, false, false},
		{"テスト待ち+完了は通過", true, true, true},
		{"完了のみは通過", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := model.Item{
				HasPendingReviewLabel: tt.pending,
				HasReviewDoneLabel:    tt.done,
			}
			if got := HasPassedReview(item); got != tt.want {
				t.Errorf("HasPassedReview = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestClassify_Ready(t *testing.T) {
	// シナリオ: likes=2, WIPなし, テスト待ちなし, コンフリクトなし,
	// パイプライン成功, 未解決議論なし ⇒ Ready かつ release-ready
	item := readyItem()

	c := Classify(item, now)

	if c.Status != model.StatusReady {
		t.Errorf("Status = %q, want %q", c.Status, model.StatusReady)
	}
	if !IsReleaseReady(item) {
		t.Error("IsReleaseReady = false, want true")
	}
}

func TestClassify_AlmostReady(t *testing.T) {
	item := readyItem()
	item.LikeCount = 1

	c := Classify(item, now)

	if c.Status != model.StatusAlmostReady {
		t.Errorf("Status = %q, want %q", c.Status, model.StatusAlmostReady)
	}
}

func TestClassify_ConflictBeatsReady(t *testing.T) {
	// コンフリクトマーク付きはReady/AlmostReadyになり得ない
	item := readyItem()
	item.HasConflictMarker = true

	c := Classify(item, now)

	if c.Status != model.StatusConflict {
		t.Errorf("Status = %q, want %q", c.Status, model.StatusConflict)
	}
}

func TestClassify_ConflictNeverReadyRegardlessOfLikes(t *testing.T) {
	for likes := 0; likes <= 5; likes++ {
		item := readyItem()
		item.LikeCount = likes
		item.HasConflictMarker = true

		c := Classify(item, now)

		if c.RawStatus == model.StatusReady || c.RawStatus == model.StatusAlmostReady {
			t.Errorf("likes=%d: RawStatus = %q, コンフリクト時はReady系にならない", likes, c.RawStatus)
		}
	}
}

func TestClassify_Old(t *testing.T) {
	// シナリオ: 20日前に作成, likes=0, コンフリクトなし, レビュー通過 ⇒ Old
	item := model.Item{
		ID:        11,
		CreatedAt: now.Add(-20 * 24 * time.Hour),
		LikeCount: 0,
	}

	c := Classify(item, now)

	if c.Status != model.StatusOld {
		t.Errorf("Status = %q, want %q", c.Status, model.StatusOld)
	}
}

func TestClassify_OldThresholdIsExactly20166Minutes(t *testing.T) {
	// 閾値は14日（20160分）ではなく歴史的な20166分
	item := model.Item{ID: 12, CreatedAt: now.Add(-20166 * time.Minute)}
	if c := Classify(item, now); c.Status != model.StatusNeutral {
		t.Errorf("ちょうど20166分ではまだOldではない, got %q", c.Status)
	}

	item.CreatedAt = now.Add(-20167 * time.Minute)
	if c := Classify(item, now); c.Status != model.StatusOld {
		t.Errorf("20166分超でOldになるべき, got %q", c.Status)
	}
}

func TestClassify_Neutral(t *testing.T) {
	item := model.Item{
		ID:        13,
		CreatedAt: now.Add(-time.Hour),
		LikeCount: 0,
	}

	c := Classify(item, now)

	if c.Status != model.StatusNeutral {
		t.Errorf("Status = %q, want %q", c.Status, model.StatusNeutral)
	}
}

func TestClassify_WipBlocksReady(t *testing.T) {
	item := readyItem()
	item.IsWorkInProgress = true

	c := Classify(item, now)

	if c.Status == model.StatusReady || c.Status == model.StatusAlmostReady {
		t.Errorf("WIPはReady系にならない, got %q", c.Status)
	}
	if !c.Opacity {
		t.Error("Opacity = false, want true for WIP")
	}
}

func TestClassify_DiscussedOverride(t *testing.T) {
	// 未解決議論がある場合、元の状態がConflictやReadyでも
	// 最終状態はDiscussedに強制される
	tests := []struct {
		name string
		item model.Item
		raw  model.Status
	}{
		{"over Ready", readyItem(), model.StatusReady},
		{"over Conflict", func() model.Item {
			i := readyItem()
			i.HasConflictMarker = true
			return i
		}(), model.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.item.HasOpenedDiscussions = true

			c := Classify(tt.item, now)

			if c.Status != model.StatusDiscussed {
				t.Errorf("Status = %q, want %q", c.Status, model.StatusDiscussed)
			}
			if c.RawStatus != tt.raw {
				t.Errorf("RawStatus = %q, want %q", c.RawStatus, tt.raw)
			}
		})
	}
}

func TestClassify_DiscussedOverrideKeepsModifiers(t *testing.T) {
	item := readyItem()
	item.HasOpenedDiscussions = true
	item.IsWorkInProgress = true
	item.LikedByCurrentUser = true
	item.PipelineState = model.PipelineWarning

	c := Classify(item, now)

	if c.Status != model.StatusDiscussed {
		t.Fatalf("Status = %q, want %q", c.Status, model.StatusDiscussed)
	}
	if !c.Opacity {
		t.Error("Opacity = false, want true")
	}
	if !c.LikedColor {
		t.Error("LikedColor = false, want true")
	}
	// WIPなので枠線はなし（WIP判定が先）
	if c.PipelineBorder != model.PipelineBorderNone {
		t.Errorf("PipelineBorder = %q, want %q", c.PipelineBorder, model.PipelineBorderNone)
	}
}

func TestClassify_RawStatusIsExactlyOne(t *testing.T) {
	// どのItemでもオーバーライド前の状態は5種のうちちょうど1つ
	items := []model.Item{
		readyItem(),
		{CreatedAt: now.Add(-30 * 24 * time.Hour)},
		{CreatedAt: now, HasConflictMarker: true},
		{CreatedAt: now, LikeCount: 1},
		{CreatedAt: now, IsWorkInProgress: true, LikeCount: 5},
	}
	valid := map[model.Status]bool{
		model.StatusConflict:    true,
		model.StatusReady:       true,
		model.StatusAlmostReady: true,
		model.StatusOld:         true,
		model.StatusNeutral:     true,
	}

	for i, item := range items {
		c := Classify(item, now)
		if !valid[c.RawStatus] {
			t.Errorf("item %d: RawStatus = %q, 5種のいずれかであるべき", i, c.RawStatus)
		}
	}
}

func TestClassify_ReadyImpliesAlmostReadyPredicate(t *testing.T) {
	// ReadyはAlmostReadyの生述語より真に強い
	item := readyItem()
	if !isReady(item) {
		t.Fatal("isReady = false, want true")
	}
	if !isAlmostReady(item) {
		t.Error("Readyを満たすアイテムはAlmostReadyの述語も満たすべき")
	}
}

func TestPipelineBorder(t *testing.T) {
	tests := []struct {
		name  string
		state model.PipelineState
		wip   bool
		want  model.PipelineBorder
	}{
		{"成功は枠線なし", model.PipelineSuccess, false, model.PipelineBorderNone},
		{"実行中は枠線なし", model.PipelineRunning, false, model.PipelineBorderNone},
		{"警告は警告枠線", model.PipelineWarning, false, model.PipelineBorderWarning},
		{"失敗はニュートラル枠線", model.PipelineFailed, false, model.PipelineBorderNeutral},
		{"不明はニュートラル枠線", model.PipelineUnknown, false, model.PipelineBorderNeutral},
		{"WIPは常に枠線なし", model.PipelineWarning, true, model.PipelineBorderNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := model.Item{PipelineState: tt.state, IsWorkInProgress: tt.wip, CreatedAt: now}
			c := Classify(item, now)
			if c.PipelineBorder != tt.want {
				t.Errorf("PipelineBorder = %q, want %q", c.PipelineBorder, tt.want)
			}
		})
	}
}

func TestIsReleaseReady_StrictSubsetOfStatusReady(t *testing.T) {
	// release-readyなアイテムは必ず状態もReady（逆は成り立たない）
	item := readyItem()
	if !IsReleaseReady(item) {
		t.Fatal("IsReleaseReady = false, want true")
	}
	if c := Classify(item, now); c.Status != model.StatusReady {
		t.Errorf("release-readyなのにStatus = %q", c.Status)
	}

	// 状態Readyでもテスト完了ラベル経由ならrelease-readyではない
	labeled := readyItem()
	labeled.HasPendingReviewLabel = true
	labeled.HasReviewDoneLabel = true
	if c := Classify(labeled, now); c.Status != model.StatusReady {
		t.Fatalf("Status = %q, want %q", c.Status, model.StatusReady)
	}
	if IsReleaseReady(labeled) {
		t.Error("テスト待ちラベルが残る限りrelease-readyではない")
	}
}

func TestIsReleaseReady_RequiresPipelineSuccess(t *testing.T) {
	item := readyItem()
	item.PipelineState = model.PipelineRunning

	if IsReleaseReady(item) {
		t.Error("パイプライン成功以外はrelease-readyではない")
	}
}

func TestIsReleaseReady_BlockedByOpenDiscussions(t *testing.T) {
	// シナリオ: Ready条件を満たすが未解決ノートが1件ある ⇒
	// 状態はDiscussedに上書きされ、release-readyでもない
	item := readyItem()
	item.HasOpenedDiscussions = true
	item.PendingReviewerNotes = map[string]model.Note{
		"alice": {ID: 1, Author: model.Identity{Username: "alice"}},
	}

	c := Classify(item, now)

	if c.Status != model.StatusDiscussed {
		t.Errorf("Status = %q, want %q", c.Status, model.StatusDiscussed)
	}
	if IsReleaseReady(item) {
		t.Error("IsReleaseReady = true, want false")
	}
}
