// Package model はドメインモデルを定義する。
package model

import "time"

// ClassifiedItem は分類済みの1アイテムを表す。
type ClassifiedItem struct {
	Item           Item
	Classification Classification
}

// SkippedRow は分類をスキップした行とその理由を表す。
// 1行の不正がパス全体を中断させることはない。
type SkippedRow struct {
	Index  int    // 入力行のインデックス
	Reason string // スキップ理由（missing id / missing timestamp）
}

// Pass は1回のレンダーパスの分類結果を表す。
// レンダーパスごとに全体が構築し直され、更新されることはない。
type Pass struct {
	ID          string
	ProjectID   int       // 0は未特定（横断一覧）
	User        *Identity // nilは未認証
	Items       []ClassifiedItem
	SkippedRows []SkippedRow
	CreatedAt   time.Time
}

// Lookup はアイテムidで分類結果を引く。
func (p *Pass) Lookup(id int) (ClassifiedItem, bool) {
	for _, ci := range p.Items {
		if ci.Item.ID == id {
			return ci, true
		}
	}
	return ClassifiedItem{}, false
}
