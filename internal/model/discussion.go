// Package model はドメインモデルを定義する。
package model

import "time"

// Identity はユーザーの識別情報を表す。
// 閲覧ユーザーとノートの著者の両方に使用する。
type Identity struct {
	ID        int
	Name      string
	Username  string
	AvatarURL string
	WebURL    string
}

// Discussion は1つの議論スレッド（ノートの順序付き列）を表す。
type Discussion struct {
	ID string
	// IsIndividualNote は往復のないスタンドアロンの単独ノートであることを示す。
	IsIndividualNote bool
	Notes            []Note
}

// Note はスレッド内の1コメントを表す。
type Note struct {
	ID           int
	Author       Identity
	CreatedAt    time.Time
	IsResolvable bool
	IsResolved   bool
}

// Label はプロジェクトに定義されたラベルを表す。
// ツールバー組み立て側のコラボレータのみが消費する。
type Label struct {
	ID    int
	Name  string
	Color string
}
