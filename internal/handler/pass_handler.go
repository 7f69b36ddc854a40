// Package handler はHTTP APIのハンドラー層を提供する。
// リクエストの検証とワイヤ形式への変換だけを担当し、
// 分類・照合のロジックはコア層に委譲する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/mrhud/internal/filterlist"
	"github.com/hitoshi/mrhud/internal/middleware"
	"github.com/hitoshi/mrhud/internal/model"
)

// defaultMaxRowsPerPass は1回のレンダーパスで受け付ける行数の上限（デフォルト）。
const defaultMaxRowsPerPass = 500

// PassRunner はレンダーパス実行のインターフェース。
type PassRunner interface {
	// Run は与えられた行の事実から1回のレンダーパスを実行する。
	Run(ctx context.Context, projectName string, rows []model.RowFacts) *model.Pass
}

// PassStore は完了したパスの保管のインターフェース。
type PassStore interface {
	Save(pass *model.Pass)
	Find(id string) (*model.Pass, bool)
}

// PassHandler はレンダーパスAPIのHTTPハンドラー。
type PassHandler struct {
	runner  PassRunner
	store   PassStore
	maxRows int
}

// NewPassHandler はPassHandlerを生成する。
// maxRowsが0以下の場合はデフォルト値500を使用する。
func NewPassHandler(runner PassRunner, store PassStore, maxRows int) *PassHandler {
	if maxRows <= 0 {
		maxRows = defaultMaxRowsPerPass
	}
	return &PassHandler{
		runner:  runner,
		store:   store,
		maxRows: maxRows,
	}
}

// --- リクエスト・レスポンス型 ---

// rowFactsRequest は抽出済みの1行分の事実のワイヤ形式。
type rowFactsRequest struct {
	ID                int      `json:"id"`
	CreatedAt         string   `json:"created_at"` // RFC3339
	LikeCount         int      `json:"like_count"`
	CommentCount      int      `json:"comment_count"`
	Title             string   `json:"title"`
	LabelTexts        []string `json:"label_texts"`
	PipelineState     string   `json:"pipeline_state"`
	HasConflictMarker bool     `json:"has_conflict_marker"`
}

// createPassRequest はレンダーパス実行リクエストのボディ。
type createPassRequest struct {
	ProjectName string            `json:"project_name"`
	Rows        []rowFactsRequest `json:"rows"`
}

// identityResponse はユーザー情報のレスポンス。
type identityResponse struct {
	Name      string `json:"name"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url,omitempty"`
	WebURL    string `json:"web_url,omitempty"`
}

// reviewerNoteResponse は未解決ノート1件のレスポンス。
type reviewerNoteResponse struct {
	Author    identityResponse `json:"author"`
	CreatedAt time.Time        `json:"created_at"`
}

// classifiedItemResponse は分類済みの1アイテムのレスポンス。
type classifiedItemResponse struct {
	ID                   int                    `json:"id"`
	Status               string                 `json:"status"`
	RawStatus            string                 `json:"raw_status"`
	Opacity              bool                   `json:"opacity"`
	PipelineBorder       string                 `json:"pipeline_border"`
	LikedColor           bool                   `json:"liked_color"`
	PendingReviewerNotes []reviewerNoteResponse `json:"pending_reviewer_notes"`
	DiscussionsState     string                 `json:"discussions_state"`
}

// skippedRowResponse はスキップされた行のレスポンス。
type skippedRowResponse struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// passResponse はレンダーパス結果のレスポンス。
type passResponse struct {
	PassID      string                   `json:"pass_id"`
	ProjectID   int                      `json:"project_id,omitempty"`
	User        *identityResponse        `json:"user,omitempty"`
	Items       []classifiedItemResponse `json:"items"`
	SkippedRows []skippedRowResponse     `json:"skipped_rows"`
	CreatedAt   time.Time                `json:"created_at"`
}

// filterRequest はフィルタ適用リクエストのボディ。
type filterRequest struct {
	Kind       string `json:"kind"`
	MatchedIDs []int  `json:"matched_ids"`
}

// filterResponse はフィルタ適用結果のレスポンス。
type filterResponse struct {
	Visible []int `json:"visible"`
	Hidden  []int `json:"hidden"`
}

// CreatePass はレンダーパスを実行して結果を返す。
// POST /api/passes
func (h *PassHandler) CreatePass(w http.ResponseWriter, r *http.Request) {
	var req createPassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("ボディの解析に失敗しました"))
		return
	}

	if len(req.Rows) > h.maxRows {
		middleware.WriteErrorResponse(w, http.StatusRequestEntityTooLarge,
			model.NewTooManyRowsError(len(req.Rows), h.maxRows))
		return
	}

	rows := make([]model.RowFacts, len(req.Rows))
	for i, raw := range req.Rows {
		rows[i] = toRowFacts(raw)
	}

	pass := h.runner.Run(r.Context(), req.ProjectName, rows)
	h.store.Save(pass)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(toPassResponse(pass))
}

// GetPass は保管済みのパスを再取得する。
// GET /api/passes/:id
func (h *PassHandler) GetPass(w http.ResponseWriter, r *http.Request) {
	passID := chi.URLParam(r, "id")

	pass, ok := h.store.Find(passID)
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewPassNotFoundError(passID))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(toPassResponse(pass))
}

// FilterPass は保管済みパスにフィルタ条件を適用し、可視・不可視の分割を返す。
// 条件は毎回まるごと置き換えられる（積み重ねはしない）。
// POST /api/passes/:id/filter
func (h *PassHandler) FilterPass(w http.ResponseWriter, r *http.Request) {
	passID := chi.URLParam(r, "id")

	pass, ok := h.store.Find(passID)
	if !ok {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewPassNotFoundError(passID))
		return
	}

	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteErrorResponse(w, http.StatusBadRequest,
			model.NewInvalidRequestError("ボディの解析に失敗しました"))
		return
	}

	criterion := filterlist.Criterion{Kind: filterlist.Kind(req.Kind)}
	if err := criterion.Validate(); err != nil {
		var apiErr *model.APIError
		if errors.As(err, &apiErr) {
			middleware.WriteErrorResponse(w, http.StatusBadRequest, apiErr)
			return
		}
		middleware.WriteInternalServerError(w)
		return
	}

	if criterion.Kind == filterlist.KindMatch {
		criterion.MatchedIDs = make(map[int]bool, len(req.MatchedIDs))
		for _, id := range req.MatchedIDs {
			criterion.MatchedIDs[id] = true
		}
	}

	partition := filterlist.Apply(pass.Items, criterion)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(filterResponse{
		Visible: partition.Visible,
		Hidden:  partition.Hidden,
	})
}

// toRowFacts はワイヤ形式をドメインのRowFactsに変換する。
// created_atのパース失敗はゼロ値になり、不正な行としてパス側でスキップされる。
func toRowFacts(raw rowFactsRequest) model.RowFacts {
	createdAt, err := time.Parse(time.RFC3339, raw.CreatedAt)
	if err != nil {
		slog.Warn("created_atの解析に失敗しました",
			slog.Int("row_id", raw.ID),
			slog.String("created_at", raw.CreatedAt),
		)
		createdAt = time.Time{}
	}

	return model.RowFacts{
		ID:                raw.ID,
		CreatedAt:         createdAt,
		LikeCount:         raw.LikeCount,
		CommentCount:      raw.CommentCount,
		Title:             raw.Title,
		LabelTexts:        raw.LabelTexts,
		PipelineState:     model.PipelineState(raw.PipelineState),
		HasConflictMarker: raw.HasConflictMarker,
	}
}

// toPassResponse はドメインのPassをワイヤ形式に変換する。
func toPassResponse(pass *model.Pass) passResponse {
	resp := passResponse{
		PassID:      pass.ID,
		ProjectID:   pass.ProjectID,
		Items:       make([]classifiedItemResponse, 0, len(pass.Items)),
		SkippedRows: make([]skippedRowResponse, 0, len(pass.SkippedRows)),
		CreatedAt:   pass.CreatedAt,
	}

	if pass.User != nil {
		u := toIdentityResponse(*pass.User)
		resp.User = &u
	}

	for _, ci := range pass.Items {
		resp.Items = append(resp.Items, toClassifiedItemResponse(ci))
	}
	for _, sr := range pass.SkippedRows {
		resp.SkippedRows = append(resp.SkippedRows, skippedRowResponse{
			Index:  sr.Index,
			Reason: sr.Reason,
		})
	}

	return resp
}

func toIdentityResponse(id model.Identity) identityResponse {
	return identityResponse{
		Name:      id.Name,
		Username:  id.Username,
		AvatarURL: id.AvatarURL,
		WebURL:    id.WebURL,
	}
}

func toClassifiedItemResponse(ci model.ClassifiedItem) classifiedItemResponse {
	notes := make([]reviewerNoteResponse, 0, len(ci.Item.PendingReviewerNotes))
	// マップの列挙順は不定のためusernameでソートして安定化する
	usernames := make([]string, 0, len(ci.Item.PendingReviewerNotes))
	for username := range ci.Item.PendingReviewerNotes {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)
	for _, username := range usernames {
		note := ci.Item.PendingReviewerNotes[username]
		notes = append(notes, reviewerNoteResponse{
			Author:    toIdentityResponse(note.Author),
			CreatedAt: note.CreatedAt,
		})
	}

	return classifiedItemResponse{
		ID:                   ci.Item.ID,
		Status:               string(ci.Classification.Status),
		RawStatus:            string(ci.Classification.RawStatus),
		Opacity:              ci.Classification.Opacity,
		PipelineBorder:       string(ci.Classification.PipelineBorder),
		LikedColor:           ci.Classification.LikedColor,
		PendingReviewerNotes: notes,
		DiscussionsState:     string(ci.Item.DiscussionsState),
	}
}
