// Package reconcile は議論スレッド群の照合を行う。
// 同一レビュアーの並行した議論を「1人につき未解決の問い1件」に集約する。
package reconcile

import "github.com/hitoshi/mrhud/internal/model"

// Result は照合の出力。Itemに書き戻される導出値のみを含む。
type Result struct {
	// PendingReviewerNotes はレビュアーのusernameごとに
	// created_atが最新の未解決・解決可能ノート1件を保持する。
	PendingReviewerNotes map[string]model.Note
	// HasOpenedDiscussions はPendingReviewerNotesが空でないこと。
	HasOpenedDiscussions bool
	// HasDiscussionByUser は単独ノートでないスレッドのいずれかに
	// 閲覧ユーザーが書いたノートが含まれること。
	HasDiscussionByUser bool
}

// Reconcile は議論スレッド群を照合する。純粋関数であり、
// 同じ入力に対して常に同じ出力を返す（冪等）。
// 著者に表示名がないノートは落とさず、空usernameのグループとして扱う。
func Reconcile(discussions []model.Discussion, currentUserID int) Result {
	result := Result{
		PendingReviewerNotes: make(map[string]model.Note),
	}

	if len(discussions) == 0 {
		return result
	}

	// 閲覧ユーザーの参加判定: 単独ノートのスレッドは対象外
	if currentUserID != 0 {
		for _, d := range discussions {
			if d.IsIndividualNote {
				continue
			}
			for _, n := range d.Notes {
				if n.Author.ID == currentUserID {
					result.HasDiscussionByUser = true
					break
				}
			}
			if result.HasDiscussionByUser {
				break
			}
		}
	}

	// 候補プール: 全スレッドの未解決・解決可能ノートをフラット化し、
	// 著者usernameごとにcreated_atが最大の1件だけを残す。
	// 同時刻の場合は先に出現したノートが勝つ（決定的なタイブレーク）。
	for _, d := range discussions {
		for _, n := range d.Notes {
			if !n.IsResolvable || n.IsResolved {
				continue
			}
			name := n.Author.Username
			kept, ok := result.PendingReviewerNotes[name]
			if !ok || n.CreatedAt.After(kept.CreatedAt) {
				result.PendingReviewerNotes[name] = n
			}
		}
	}

	result.HasOpenedDiscussions = len(result.PendingReviewerNotes) > 0

	return result
}
