// Package assemble は行の生の事実からItemを組み立てる。
// 議論フェッチは最適化であり、省略しても他のフィールドに影響しない。
package assemble

import (
	"context"
	"log/slog"
	"strings"

	"github.com/hitoshi/mrhud/internal/model"
	"github.com/hitoshi/mrhud/internal/reconcile"
)

// wipMarker はタイトル内の作業中マーカー。
const wipMarker = "WIP"

// 手動テスト関連のラベルテキスト（歴史的な表記ゆれを含む）。
var (
	toTestLabels   = []string{"toTest", "To test"}
	testDoneLabels = []string{"testDone", "Tested"}
)

// DiscussionFetcher は行の議論スレッド取得のインターフェース。
type DiscussionFetcher interface {
	// Discussions は指定プロジェクト・行の議論スレッド一覧を返す。
	Discussions(ctx context.Context, projectID, itemIID int) ([]model.Discussion, error)
}

// PassContext は1レンダーパス内で共有される読み取り専用の事実。
// パス開始時に1回だけ取得され、パスの残りでは変化しない。
type PassContext struct {
	ProjectID     int          // 0は未特定
	CurrentUserID int          // 0は未認証
	LikedItemIDs  map[int]bool // 閲覧者がリアクション済みの行id集合
}

// Assembler は行の事実と議論フェッチからItemを組み立てる。
type Assembler struct {
	fetcher DiscussionFetcher
	logger  *slog.Logger
}

// New はAssemblerの新しいインスタンスを生成する。
func New(fetcher DiscussionFetcher, logger *slog.Logger) *Assembler {
	return &Assembler{
		fetcher: fetcher,
		logger:  logger,
	}
}

// Build は1行分の事実を正規化されたItemに変換する。
// プロジェクト未特定またはコメント0件の行は議論フェッチを省略する。
// フェッチ失敗は議論なしのItemへのフォールバックであり、エラーにしない。
func (a *Assembler) Build(ctx context.Context, facts model.RowFacts, pc PassContext) model.Item {
	item := model.Item{
		ID:                    facts.ID,
		ProjectID:             pc.ProjectID,
		CurrentUserID:         pc.CurrentUserID,
		CreatedAt:             facts.CreatedAt,
		LikeCount:             facts.LikeCount,
		LikedByCurrentUser:    pc.LikedItemIDs[facts.ID],
		IsWorkInProgress:      strings.Contains(facts.Title, wipMarker),
		HasPendingReviewLabel: hasAnyLabel(facts.LabelTexts, toTestLabels),
		HasReviewDoneLabel:    hasAnyLabel(facts.LabelTexts, testDoneLabels),
		HasConflictMarker:     facts.HasConflictMarker,
		PipelineState:         facts.PipelineState,
		PendingReviewerNotes:  make(map[string]model.Note),
		DiscussionsState:      model.RemoteSkipped,
	}

	if pc.ProjectID == 0 || facts.CommentCount == 0 {
		return item
	}

	discussions, err := a.fetcher.Discussions(ctx, pc.ProjectID, facts.ID)
	if err != nil {
		a.logger.Warn("議論スレッドの取得に失敗しました",
			slog.Int("project_id", pc.ProjectID),
			slog.Int("item_iid", facts.ID),
			slog.String("error", err.Error()),
		)
		item.DiscussionsState = model.RemoteFailed
		return item
	}

	item.Discussions = discussions
	item.DiscussionsState = model.RemoteFetched

	result := reconcile.Reconcile(discussions, pc.CurrentUserID)
	item.PendingReviewerNotes = result.PendingReviewerNotes
	item.HasOpenedDiscussions = result.HasOpenedDiscussions
	item.HasDiscussionByUser = result.HasDiscussionByUser

	return item
}

// hasAnyLabel はラベルテキスト一覧が候補のいずれかを含むかを返す。
// 比較は前後の空白を除去して行う。
func hasAnyLabel(labels, candidates []string) bool {
	for _, l := range labels {
		trimmed := strings.TrimSpace(l)
		for _, c := range candidates {
			if trimmed == c {
				return true
			}
		}
	}
	return false
}
