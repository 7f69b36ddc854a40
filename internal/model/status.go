// Package model はドメインモデルを定義する。
package model

// Status は優先順位付きで相互排他な分類ラベルを表す。
type Status string

const (
	// StatusConflict はブロッキング状態（コンフリクト）を示す。
	StatusConflict Status = "conflict"
	// StatusReady はマージ可能な状態を示す。
	StatusReady Status = "ready"
	// StatusAlmostReady はあと1票でマージ可能な状態を示す。
	StatusAlmostReady Status = "almost_ready"
	// StatusOld は作成から閾値を超えて放置された状態を示す。
	StatusOld Status = "old"
	// StatusNeutral は上記いずれにも該当しない状態を示す。
	StatusNeutral Status = "neutral"
	// StatusDiscussed は未解決の議論がある状態を示す。
	// レビュアーの未解決の問いは常に表示上の最優先となる。
	StatusDiscussed Status = "discussed"
)

// PipelineBorder はパイプライン状態に応じた枠線の種別を表す。
type PipelineBorder string

const (
	// PipelineBorderNone は枠線なし。
	PipelineBorderNone PipelineBorder = "none"
	// PipelineBorderWarning は警告枠線。
	PipelineBorderWarning PipelineBorder = "warning"
	// PipelineBorderNeutral は不明・失敗時のニュートラル枠線。
	PipelineBorderNeutral PipelineBorder = "neutral"
)

// Classification は1アイテムの分類結果と独立した表示修飾を表す。
type Classification struct {
	// Status は議論オーバーライド適用後の最終的な表示状態。
	Status Status
	// RawStatus はオーバーライド適用前の状態。
	// {Conflict, Ready, AlmostReady, Old, Neutral}のちょうど1つになる。
	RawStatus Status
	// Opacity は行を薄く表示するか（WIP）。
	Opacity bool
	// PipelineBorder はパイプライン状態の枠線種別。
	PipelineBorder PipelineBorder
	// LikedColor は票数の色付け（閲覧者がリアクション済み）。
	LikedColor bool
}
