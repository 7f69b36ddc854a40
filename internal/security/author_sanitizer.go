// Package security はアプリケーションのセキュリティ機能を提供する。
//
// AuthorSanitizerService はGitLab APIから取得したノート著者の表示フィールドを
// サニタイズする。未解決ノートのパネルとしてページに挿入される値のため、
// タグや属性を一切許可しないbluemondayの厳格ポリシーでXSSを防ぐ。
package security

import "github.com/microcosm-cc/bluemonday"

// AuthorSanitizerService は著者表示フィールドのサニタイズ機能の
// インターフェースを定義する。
type AuthorSanitizerService interface {
	// SanitizeText はテキストからHTMLをすべて除去して返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	SanitizeText(raw string) string
}

// authorSanitizer はAuthorSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフに処理を行う。
type authorSanitizer struct {
	policy *bluemonday.Policy
}

// NewAuthorSanitizer はAuthorSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはタグ・属性を一切通さず、テキストだけを残す。
func NewAuthorSanitizer() *authorSanitizer {
	return &authorSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// SanitizeText はテキストからHTMLをすべて除去して返す。
func (s *authorSanitizer) SanitizeText(raw string) string {
	return s.policy.Sanitize(raw)
}
