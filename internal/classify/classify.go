// Package classify はItemの状態分類を行う純粋関数を提供する。
// 優先順位付きの状態判定、独立した表示修飾、およびフィルタ用の
// より厳格なリリース可能判定を含む。
package classify

import (
	"time"

	"github.com/hitoshi/mrhud/internal/model"
)

const (
	// readyLikeThreshold はマージ可能と判定する賛成票数。
	readyLikeThreshold = 2
	// almostReadyLikeThreshold はあと1票で可能と判定する賛成票数。
	almostReadyLikeThreshold = 1
	// oldAge は放置判定の閾値。歴史的に20166分（14日=20160分ではない）が
	// 使われてきたため、丸めずにそのまま維持する。
	oldAge = 20166 * time.Minute
)

// HasPassedReview はアイテムが手動テストを通過済みかを返す。
// テスト待ちラベルがなければ通過扱い、あれば完了ラベルが必要。
func HasPassedReview(item model.Item) bool {
	if !item.HasPendingReviewLabel {
		return true
	}
	return item.HasReviewDoneLabel
}

// isReady はマージ可能条件を満たすかを返す。
func isReady(item model.Item) bool {
	if !HasPassedReview(item) {
		return false
	}
	if item.LikeCount < readyLikeThreshold || item.IsWorkInProgress {
		return false
	}
	if item.HasConflictMarker {
		return false
	}
	return true
}

// isAlmostReady はあと1票でマージ可能な条件を満たすかを返す。
// Readyの条件を弱めたもので、Readyが先に判定されるため相互排他になる。
func isAlmostReady(item model.Item) bool {
	if item.HasConflictMarker {
		return false
	}
	if !HasPassedReview(item) {
		return false
	}
	if item.LikeCount < almostReadyLikeThreshold || item.IsWorkInProgress {
		return false
	}
	return true
}

// rawStatus はオーバーライド適用前の状態を優先順位どおりに判定する。
// 最初に真になった述語が勝つ。
func rawStatus(item model.Item, now time.Time) model.Status {
	switch {
	case item.HasConflictMarker:
		return model.StatusConflict
	case isReady(item):
		return model.StatusReady
	case isAlmostReady(item):
		return model.StatusAlmostReady
	case now.Sub(item.CreatedAt) > oldAge:
		return model.StatusOld
	default:
		return model.StatusNeutral
	}
}

// pipelineBorder はパイプライン状態の枠線種別を判定する。
// WIPの行、および成功・実行中のパイプラインには枠線を付けない。
func pipelineBorder(item model.Item) model.PipelineBorder {
	if item.IsWorkInProgress {
		return model.PipelineBorderNone
	}
	switch item.PipelineState {
	case model.PipelineSuccess, model.PipelineRunning:
		return model.PipelineBorderNone
	case model.PipelineWarning:
		return model.PipelineBorderWarning
	default:
		return model.PipelineBorderNeutral
	}
}

// Classify はItemを分類する。nowは1パス内で共通のスナップショット時刻。
// 未解決の議論がある場合、最終状態はDiscussedに強制される
// （独立修飾のOpacity/PipelineBorder/LikedColorは抑制されない）。
func Classify(item model.Item, now time.Time) model.Classification {
	raw := rawStatus(item, now)

	status := raw
	if item.HasOpenedDiscussions {
		status = model.StatusDiscussed
	}

	return model.Classification{
		Status:         status,
		RawStatus:      raw,
		Opacity:        item.IsWorkInProgress,
		PipelineBorder: pipelineBorder(item),
		LikedColor:     item.LikedByCurrentUser,
	}
}

// IsReleaseReady はフィルタの「Ready」ボタンが使う、状態Readyより
// 厳格な述語。パイプライン成功に加えて、未解決の議論と
// テスト待ちラベルがないことを要求する。
func IsReleaseReady(item model.Item) bool {
	return item.PipelineState == model.PipelineSuccess &&
		item.LikeCount >= readyLikeThreshold &&
		!item.IsWorkInProgress &&
		!item.HasConflictMarker &&
		!item.HasOpenedDiscussions &&
		!item.HasPendingReviewLabel
}
