// Package filterlist は分類済みアイテム一覧の表示フィルタを提供する。
// 条件は常に1つだけ有効で、選択のたびに可視・不可視の分割を
// まるごと作り直す（フィルタの積み重ねはしない）。
package filterlist

import (
	"github.com/hitoshi/mrhud/internal/classify"
	"github.com/hitoshi/mrhud/internal/model"
)

// Kind はフィルタ条件の種別を表す。
type Kind string

const (
	// KindMatch は描画要素に対するセレクタ一致による構造マッチ。
	// セレクタ評価はプレゼンテーション側の責務で、コアには
	// 一致したアイテムidの集合だけが渡される。
	KindMatch Kind = "match"
	// KindReady はrelease-ready述語によるフィルタ。
	KindReady Kind = "ready"
)

// Criterion は1つのフィルタ条件を表す。
type Criterion struct {
	Kind       Kind
	MatchedIDs map[int]bool // KindMatchのとき: 構造マッチした行のid集合
}

// Validate は条件種別が既知であることを検証する。
func (c Criterion) Validate() error {
	switch c.Kind {
	case KindMatch, KindReady:
		return nil
	default:
		return model.NewInvalidCriterionError(string(c.Kind))
	}
}

// Partition は可視・不可視に分割されたアイテムid列を表す。
// 順序は入力のアイテム順を保つ。
type Partition struct {
	Visible []int
	Hidden  []int
}

// Apply は分類済みアイテム列を条件で分割する。純粋関数。
func Apply(items []model.ClassifiedItem, c Criterion) Partition {
	p := Partition{
		Visible: make([]int, 0, len(items)),
		Hidden:  make([]int, 0, len(items)),
	}

	for _, ci := range items {
		if matches(ci, c) {
			p.Visible = append(p.Visible, ci.Item.ID)
		} else {
			p.Hidden = append(p.Hidden, ci.Item.ID)
		}
	}

	return p
}

// matches は1アイテムが条件に一致するかを返す。
func matches(ci model.ClassifiedItem, c Criterion) bool {
	switch c.Kind {
	case KindReady:
		return classify.IsReleaseReady(ci.Item)
	case KindMatch:
		return c.MatchedIDs[ci.Item.ID]
	default:
		return false
	}
}
