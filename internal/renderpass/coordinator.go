// Package renderpass は1回のレンダーパス全体の調整を行う。
// パス共通コンテキストの取得、行ごとの並行エンリッチメント、
// 構造化された合流、分類、レジストリ書き込み用の結果構築を含む。
package renderpass

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/mrhud/internal/assemble"
	"github.com/hitoshi/mrhud/internal/classify"
	"github.com/hitoshi/mrhud/internal/model"
)

// Gateway はレンダーパスが消費する遠隔取得のインターフェース。
type Gateway interface {
	// CurrentUser は閲覧ユーザーを返す。
	CurrentUser(ctx context.Context) (*model.Identity, error)
	// ProjectByName は完全一致するプロジェクトidを返す。不在は(0, nil)。
	ProjectByName(ctx context.Context, name string) (int, error)
	// ReactedItemIDs は閲覧者がリアクション済みのオープンな行のiid一覧を返す。
	ReactedItemIDs(ctx context.Context, projectID int) ([]int, error)
	// Discussions は指定行の議論スレッド一覧を返す。
	Discussions(ctx context.Context, projectID, itemIID int) ([]model.Discussion, error)
}

// MetricsRecorder はパス実行のメトリクス記録のインターフェース。
type MetricsRecorder interface {
	RecordPass(duration time.Duration, itemCount int)
	RecordMalformedRow()
	RecordEnrichment(state model.RemoteState)
}

// Coordinator はレンダーパスの調整役。
// semaphoreパターンで行ごとのエンリッチメントの並列数を制御し、
// 全行の完了を待ち合わせてからパスを完成とする。
type Coordinator struct {
	gateway        Gateway
	metrics        MetricsRecorder
	logger         *slog.Logger
	maxConcurrency int
}

// NewCoordinator はCoordinatorの新しいインスタンスを生成する。
// maxConcurrencyが0以下の場合はデフォルト値10を使用する。
// metricsはnil可。
func NewCoordinator(
	gateway Gateway,
	metrics MetricsRecorder,
	logger *slog.Logger,
	maxConcurrency int,
) *Coordinator {
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &Coordinator{
		gateway:        gateway,
		metrics:        metrics,
		logger:         logger,
		maxConcurrency: maxConcurrency,
	}
}

// Run は1回のレンダーパスを実行する。
// パス共通の事実（閲覧ユーザー、プロジェクトid、リアクション済みid）は
// ここで1回だけ取得され、パスの残りでは読み取り専用になる。
// いずれの遠隔取得の失敗も致命的でなく、空・中立のデフォルトに劣化する。
// 不正な行は分類をスキップして記録し、残りの行の処理を続行する。
func (c *Coordinator) Run(ctx context.Context, projectName string, rows []model.RowFacts) *model.Pass {
	start := time.Now()

	pass := &model.Pass{
		ID:        uuid.NewString(),
		CreatedAt: start,
	}

	// 閲覧ユーザー: 失敗・未認証は未認証として続行
	user, err := c.gateway.CurrentUser(ctx)
	if err != nil {
		c.logger.Warn("閲覧ユーザーの取得に失敗しました。未認証として続行します",
			slog.String("pass_id", pass.ID),
			slog.String("error", err.Error()),
		)
		user = nil
	}
	pass.User = user

	// プロジェクトid: 名前が与えられた場合のみ検索する
	projectID := 0
	if projectName != "" {
		projectID, err = c.gateway.ProjectByName(ctx, projectName)
		if err != nil {
			c.logger.Warn("プロジェクト検索に失敗しました。プロジェクト未特定として続行します",
				slog.String("pass_id", pass.ID),
				slog.String("project_name", projectName),
				slog.String("error", err.Error()),
			)
			projectID = 0
		}
	}
	pass.ProjectID = projectID

	// リアクション済みid: 失敗は空集合に劣化する
	liked := make(map[int]bool)
	if ids, err := c.gateway.ReactedItemIDs(ctx, projectID); err != nil {
		c.logger.Warn("リアクション済みidの取得に失敗しました。空集合として続行します",
			slog.String("pass_id", pass.ID),
			slog.String("error", err.Error()),
		)
	} else {
		for _, id := range ids {
			liked[id] = true
		}
	}

	pc := assemble.PassContext{
		ProjectID:    projectID,
		LikedItemIDs: liked,
	}
	if user != nil {
		pc.CurrentUserID = user.ID
	}

	assembler := assemble.New(c.gateway, c.logger)

	// 行ごとのエンリッチメントを並行実行し、結果はチャネル経由で
	// このgoroutineに集める。各行のItemを書くのは所有タスク1つだけで、
	// パスへの集約はこのgoroutineだけが行う。
	type indexedItem struct {
		index int
		item  model.Item
	}
	results := make(chan indexedItem, len(rows))
	sem := make(chan struct{}, c.maxConcurrency)
	var wg sync.WaitGroup

	for i, facts := range rows {
		if facts.Malformed() {
			reason := "missing timestamp"
			if facts.ID == 0 {
				reason = "missing id"
			}
			pass.SkippedRows = append(pass.SkippedRows, model.SkippedRow{Index: i, Reason: reason})
			if c.metrics != nil {
				c.metrics.RecordMalformedRow()
			}
			c.logger.Warn("必須マーカーを欠く行をスキップします",
				slog.String("pass_id", pass.ID),
				slog.Int("row_index", i),
				slog.String("reason", reason),
			)
			continue
		}

		wg.Add(1)
		sem <- struct{}{} // semaphore取得（ブロック）

		go func(index int, f model.RowFacts) {
			defer wg.Done()
			defer func() { <-sem }() // semaphore解放

			results <- indexedItem{index: index, item: assembler.Build(ctx, f, pc)}
		}(i, facts)
	}

	// 構造化された合流: 全行の完了を待ってからパスを完成とする
	wg.Wait()
	close(results)

	byIndex := make(map[int]model.Item, len(rows))
	for r := range results {
		byIndex[r.index] = r.item
	}

	// 分類は入力行の順序を保って行う。nowはパス内で共通。
	now := time.Now()
	pass.Items = make([]model.ClassifiedItem, 0, len(byIndex))
	for i := range rows {
		item, ok := byIndex[i]
		if !ok {
			continue
		}
		pass.Items = append(pass.Items, model.ClassifiedItem{
			Item:           item,
			Classification: classify.Classify(item, now),
		})
		if c.metrics != nil {
			c.metrics.RecordEnrichment(item.DiscussionsState)
		}
	}

	duration := time.Since(start)
	if c.metrics != nil {
		c.metrics.RecordPass(duration, len(pass.Items))
	}

	c.logger.Info("レンダーパスが完了しました",
		slog.String("pass_id", pass.ID),
		slog.Int("row_count", len(rows)),
		slog.Int("item_count", len(pass.Items)),
		slog.Int("skipped_rows", len(pass.SkippedRows)),
		slog.Int("project_id", projectID),
		slog.Bool("authenticated", user != nil),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return pass
}
