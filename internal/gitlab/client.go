// Package gitlab はGitLab REST API (v4) のクライアントを提供する。
// レンダーパスが消費する読み取り専用の取得系（閲覧ユーザー、プロジェクト検索、
// 議論スレッド、リアクション済みid、ラベル定義）のみを扱い、
// リモートのレビューシステムを変更することはない。
package gitlab

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/mrhud/internal/model"
	"github.com/hitoshi/mrhud/internal/security"
)

// userAgent は全リクエストに付与するUser-Agentヘッダ。
const userAgent = "mrhud/1.0 merge request annotator"

// StatusRecorder はAPI呼び出しのHTTPステータスを記録するインターフェース。
// nilの場合は記録しない。
type StatusRecorder interface {
	RecordRemoteStatus(endpoint string, statusCode int)
}

// ClientConfig はClientの設定パラメータ。
type ClientConfig struct {
	// BaseURL はGitLabのベースURL（例: https://gitlab.example.com）。
	BaseURL string
	// Token はPRIVATE-TOKENヘッダに設定するアクセストークン。
	// 空の場合は未認証でアクセスする。
	Token string
	// RequestsPerSec はAPI呼び出しのレート上限（req/sec）。
	RequestsPerSec float64
	// Burst はレート制限のバーストサイズ。
	Burst int
}

// Client はGitLab v4 APIのクライアント。
// 全呼び出しはレートリミッタで間隔制御され、著者の表示フィールドは
// レスポンス変換時にサニタイズされる。
type Client struct {
	httpClient *http.Client
	sanitizer  security.AuthorSanitizerService
	recorder   StatusRecorder
	limiter    *rate.Limiter
	logger     *slog.Logger
	baseURL    string // テスト用にエンドポイントを差し替え可能
	token      string
}

// NewClient はClientの新しいインスタンスを生成する。
// recorderはnil可。
func NewClient(
	cfg ClientConfig,
	httpClient *http.Client,
	sanitizer security.AuthorSanitizerService,
	recorder StatusRecorder,
	logger *slog.Logger,
) *Client {
	rps := cfg.RequestsPerSec
	if rps <= 0 {
		rps = 5
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 10
	}
	return &Client{
		httpClient: httpClient,
		sanitizer:  sanitizer,
		recorder:   recorder,
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     logger,
		baseURL:    cfg.BaseURL,
		token:      cfg.Token,
	}
}

// --- APIレスポンスのワイヤ型 ---

type apiUser struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
	WebURL    string `json:"web_url"`
}

type apiProject struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type apiNote struct {
	ID         int       `json:"id"`
	Author     apiUser   `json:"author"`
	CreatedAt  time.Time `json:"created_at"`
	Resolvable bool      `json:"resolvable"`
	Resolved   bool      `json:"resolved"`
}

type apiDiscussion struct {
	ID             string    `json:"id"`
	IndividualNote bool      `json:"individual_note"`
	Notes          []apiNote `json:"notes"`
}

type apiMergeRequest struct {
	IID   int    `json:"iid"`
	State string `json:"state"`
}

type apiLabel struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CurrentUser は認証中の閲覧ユーザーを取得する。
// GET /api/v4/user
func (c *Client) CurrentUser(ctx context.Context) (*model.Identity, error) {
	var user apiUser
	if err := c.getJSON(ctx, "user", "/api/v4/user", nil, &user); err != nil {
		return nil, err
	}
	identity := c.toIdentity(user)
	return &identity, nil
}

// ProjectByName はプロジェクト名で検索し、完全一致するプロジェクトidを返す。
// 完全一致がない場合は(0, nil)を返す（不在はエラーにしない）。
// GET /api/v4/search?scope=projects&search={name}
func (c *Client) ProjectByName(ctx context.Context, name string) (int, error) {
	q := url.Values{}
	q.Set("scope", "projects")
	q.Set("search", name)

	var projects []apiProject
	if err := c.getJSON(ctx, "project_search", "/api/v4/search", q, &projects); err != nil {
		return 0, err
	}

	// 検索結果は部分一致を含むため完全一致を要求する
	for _, p := range projects {
		if p.Name == name {
			return p.ID, nil
		}
	}
	return 0, nil
}

// Discussions は指定行の議論スレッド一覧を取得する。
// GET /api/v4/projects/{id}/merge_requests/{iid}/discussions
func (c *Client) Discussions(ctx context.Context, projectID, itemIID int) ([]model.Discussion, error) {
	path := fmt.Sprintf("/api/v4/projects/%d/merge_requests/%d/discussions", projectID, itemIID)

	var raw []apiDiscussion
	if err := c.getJSON(ctx, "discussions", path, nil, &raw); err != nil {
		return nil, err
	}

	discussions := make([]model.Discussion, 0, len(raw))
	for _, d := range raw {
		notes := make([]model.Note, 0, len(d.Notes))
		for _, n := range d.Notes {
			notes = append(notes, model.Note{
				ID:           n.ID,
				Author:       c.toIdentity(n.Author),
				CreatedAt:    n.CreatedAt,
				IsResolvable: n.Resolvable,
				IsResolved:   n.Resolved,
			})
		}
		discussions = append(discussions, model.Discussion{
			ID:               d.ID,
			IsIndividualNote: d.IndividualNote,
			Notes:            notes,
		})
	}
	return discussions, nil
}

// ReactedItemIDs は閲覧者がリアクション済みのオープンな行のiid一覧を取得する。
// projectIDが0の場合は横断エンドポイントを使う。
// GET /api/v4/projects/{id}/merge_requests?my_reaction_emoji=Any
func (c *Client) ReactedItemIDs(ctx context.Context, projectID int) ([]int, error) {
	path := "/api/v4/merge_requests"
	if projectID != 0 {
		path = fmt.Sprintf("/api/v4/projects/%d/merge_requests", projectID)
	}
	q := url.Values{}
	q.Set("my_reaction_emoji", "Any")

	var raw []apiMergeRequest
	if err := c.getJSON(ctx, "reacted_items", path, q, &raw); err != nil {
		return nil, err
	}

	// オープン状態の行だけを対象にする
	ids := make([]int, 0, len(raw))
	for _, mr := range raw {
		if mr.State == "opened" {
			ids = append(ids, mr.IID)
		}
	}
	return ids, nil
}

// LabelDefinitions はプロジェクトのラベル定義一覧を取得する。
// コアは消費せず、ツールバー組み立て側のコラボレータ向けに公開する。
// GET /api/v4/projects/{id}/labels
func (c *Client) LabelDefinitions(ctx context.Context, projectID int) ([]model.Label, error) {
	path := fmt.Sprintf("/api/v4/projects/%d/labels", projectID)

	var raw []apiLabel
	if err := c.getJSON(ctx, "labels", path, nil, &raw); err != nil {
		return nil, err
	}

	labels := make([]model.Label, 0, len(raw))
	for _, l := range raw {
		labels = append(labels, model.Label{
			ID:    l.ID,
			Name:  c.sanitizer.SanitizeText(l.Name),
			Color: l.Color,
		})
	}
	return labels, nil
}

// toIdentity はAPIのユーザー表現をドメインのIdentityに変換する。
// ページに挿入され得る表示フィールドをサニタイズする。
func (c *Client) toIdentity(u apiUser) model.Identity {
	return model.Identity{
		ID:        u.ID,
		Name:      c.sanitizer.SanitizeText(u.Name),
		Username:  c.sanitizer.SanitizeText(u.Username),
		AvatarURL: u.AvatarURL,
		WebURL:    u.WebURL,
	}
}

// getJSON はレート制御付きでGETリクエストを実行しJSONをデコードする。
func (c *Client) getJSON(ctx context.Context, endpoint, path string, query url.Values, v any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("レート制限の待機が中断されました: %w", err)
	}

	reqURL, err := url.Parse(c.baseURL + path)
	if err != nil {
		return fmt.Errorf("リクエストURLの構築に失敗しました: %w", err)
	}
	if query != nil {
		reqURL.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("PRIVATE-TOKEN", c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("GitLab APIの呼び出しに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer resp.Body.Close()

	if c.recorder != nil {
		c.recorder.RecordRemoteStatus(endpoint, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("GitLab APIがエラーステータスを返しました",
			slog.String("endpoint", endpoint),
			slog.Int("http_status", resp.StatusCode),
		)
		return fmt.Errorf("GitLab APIがステータス %d を返しました", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("レスポンスボディの読み取りに失敗しました: %w", err)
	}

	if err := json.Unmarshal(body, v); err != nil {
		c.logger.Error("GitLab APIのレスポンスのパースに失敗しました",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("レスポンスJSONのパースに失敗しました: %w", err)
	}

	return nil
}
