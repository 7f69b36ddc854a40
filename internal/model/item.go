// Package model はドメインモデルを定義する。
package model

import "time"

// PipelineState は行のCIパイプライン状態を表す。
type PipelineState string

const (
	// PipelineSuccess はパイプライン成功状態。
	PipelineSuccess PipelineState = "success"
	// PipelineRunning はパイプライン実行中状態。
	PipelineRunning PipelineState = "running"
	// PipelineWarning は警告付き成功状態。
	PipelineWarning PipelineState = "warning"
	// PipelineFailed はパイプライン失敗状態。
	PipelineFailed PipelineState = "failed"
	// PipelineUnknown はパイプライン状態が判別できない場合。
	PipelineUnknown PipelineState = "unknown"
)

// RowFacts はページから抽出済みの1行分の生の事実を表す。
// 抽出そのものは外部コラボレータの責務で、ここにはパース済みの
// プリミティブ値だけが渡される。
type RowFacts struct {
	ID                int           // 行の参照id（iid）。0は欠落扱い
	CreatedAt         time.Time     // 行に表示された作成時刻。ゼロ値は欠落扱い
	LikeCount         int           // 賛成票の数
	CommentCount      int           // コメント数。議論フェッチの要否判定に使う
	Title             string        // タイトルテキスト。WIPマーカー判定に使う
	LabelTexts        []string      // ラベルテキスト一覧
	PipelineState     PipelineState // パイプラインアイコンから判別した状態
	HasConflictMarker bool          // パイプライン破損マークの有無
}

// Malformed は行の必須マーカー（id、作成時刻）が欠けているかを返す。
// 欠けた行は分類をスキップして残りの行の処理を続行する。
func (f RowFacts) Malformed() bool {
	return f.ID == 0 || f.CreatedAt.IsZero()
}

// RemoteState は遠隔データの取得結果を表す。
// 取得の成否を暗黙のログではなく値として持ち回る。
type RemoteState string

const (
	// RemoteFetched は遠隔データの取得に成功した状態。
	RemoteFetched RemoteState = "fetched"
	// RemoteSkipped は取得条件を満たさず取得を省略した状態。
	RemoteSkipped RemoteState = "skipped"
	// RemoteFailed は取得を試みて失敗した状態。
	RemoteFailed RemoteState = "failed"
)

// Item は1つのマージリクエスト行のイミュータブルなスナップショット。
// レンダーパスごとに構築し直され、構築後に書き換えられることはない。
// 振る舞いはデータに埋め込まず、classify等のフリー関数が扱う。
type Item struct {
	ID                 int // 行の参照id（iid）
	ProjectID          int // 所属プロジェクトid。0は横断一覧などで未特定
	CurrentUserID      int // 閲覧ユーザーのid。0は未認証
	CreatedAt          time.Time
	LikeCount          int
	LikedByCurrentUser bool

	IsWorkInProgress      bool // タイトルにWIPマーカーを含む
	HasPendingReviewLabel bool // 手動テスト待ちラベル付き
	HasReviewDoneLabel    bool // 手動テスト完了ラベル付き
	HasConflictMarker     bool
	PipelineState         PipelineState

	// Discussions は遠隔フェッチが行われた場合のみ埋まる。
	Discussions []Discussion

	// PendingReviewerNotes はレビュアーのusernameごとに最新の
	// 未解決ノート1件を保持する（照合済みの導出値）。
	PendingReviewerNotes map[string]Note
	HasOpenedDiscussions bool
	HasDiscussionByUser  bool

	// DiscussionsState は議論フェッチの取得結果。
	// フェッチ省略・失敗時も他のフィールドは変化しない。
	DiscussionsState RemoteState
}
