package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/mrhud/internal/model"
)

// TestNewCollector_ReturnsNonNil はCollectorが正常に生成されることを検証する。
func TestNewCollector_ReturnsNonNil(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	if c == nil {
		t.Fatal("expected non-nil Collector")
	}
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	for _, mf := range metrics {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetCounter().GetValue()
		}
	}
	t.Fatalf("%s metric not found", name)
	return 0
}

// TestRecordPass_IncrementsCounters はパス完了でカウンタとヒストグラムが更新されることを検証する。
func TestRecordPass_IncrementsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordPass(100*time.Millisecond, 7)
	c.RecordPass(2*time.Second, 3)

	if val := counterValue(t, reg, "mrhud_render_pass_total"); val != 2 {
		t.Errorf("render_pass_total = %v, want 2", val)
	}
	if val := counterValue(t, reg, "mrhud_rows_classified_total"); val != 10 {
		t.Errorf("rows_classified_total = %v, want 10", val)
	}

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	found := false
	for _, mf := range metrics {
		if mf.GetName() == "mrhud_render_pass_latency_seconds" {
			found = true
			h := mf.GetMetric()[0].GetHistogram()
			if h.GetSampleCount() != 2 {
				t.Errorf("sample_count = %d, want 2", h.GetSampleCount())
			}
			// 合計は0.1 + 2.0 = 2.1秒
			if h.GetSampleSum() < 2.0 || h.GetSampleSum() > 2.2 {
				t.Errorf("sample_sum = %v, want ~2.1", h.GetSampleSum())
			}
		}
	}
	if !found {
		t.Error("mrhud_render_pass_latency_seconds metric not found")
	}
}

// TestRecordMalformedRow_IncrementsCounter は不正行カウンタが増加することを検証する。
func TestRecordMalformedRow_IncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordMalformedRow()
	c.RecordMalformedRow()
	c.RecordMalformedRow()

	if val := counterValue(t, reg, "mrhud_rows_malformed_total"); val != 3 {
		t.Errorf("rows_malformed_total = %v, want 3", val)
	}
}

// TestRecordEnrichment_IncrementsCounterWithLabel はエンリッチメント結果がラベル付きで記録されることを検証する。
func TestRecordEnrichment_IncrementsCounterWithLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordEnrichment(model.RemoteFetched)
	c.RecordEnrichment(model.RemoteFetched)
	c.RecordEnrichment(model.RemoteFailed)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "mrhud_enrichment_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
			for _, m := range mf.GetMetric() {
				label := m.GetLabel()[0].GetValue()
				val := m.GetCounter().GetValue()
				switch label {
				case string(model.RemoteFetched):
					if val != 2 {
						t.Errorf("enrichment_total{result=fetched} = %v, want 2", val)
					}
				case string(model.RemoteFailed):
					if val != 1 {
						t.Errorf("enrichment_total{result=failed} = %v, want 1", val)
					}
				default:
					t.Errorf("unexpected label value: %s", label)
				}
			}
		}
	}
	if !found {
		t.Error("mrhud_enrichment_total metric not found")
	}
}

// TestRecordRemoteStatus_IncrementsCounterWithLabels はAPI呼び出しがエンドポイント・ステータス別に記録されることを検証する。
func TestRecordRemoteStatus_IncrementsCounterWithLabels(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordRemoteStatus("discussions", 200)
	c.RecordRemoteStatus("discussions", 200)
	c.RecordRemoteStatus("user", 401)

	metrics, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}

	found := false
	for _, mf := range metrics {
		if mf.GetName() == "mrhud_gitlab_request_total" {
			found = true
			if len(mf.GetMetric()) != 2 {
				t.Fatalf("expected 2 label combinations, got %d", len(mf.GetMetric()))
			}
		}
	}
	if !found {
		t.Error("mrhud_gitlab_request_total metric not found")
	}
}

// TestMetricsHandler_ReturnsPrometheusFormat は/metricsエンドポイントがPrometheus形式で返すことを検証する。
func TestMetricsHandler_ReturnsPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	// いくつかのメトリクスを記録
	c.RecordPass(500*time.Millisecond, 5)
	c.RecordMalformedRow()
	c.RecordEnrichment(model.RemoteSkipped)
	c.RecordRemoteStatus("user", 200)

	handler := Handler(reg)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	resp := w.Result()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", resp.StatusCode, http.StatusOK)
	}

	body, _ := io.ReadAll(resp.Body)
	bodyStr := string(body)

	// Prometheus形式のメトリクスが含まれていることを確認
	expectedMetrics := []string{
		"mrhud_render_pass_total",
		"mrhud_render_pass_latency_seconds",
		"mrhud_rows_classified_total",
		"mrhud_rows_malformed_total",
		"mrhud_enrichment_total",
		"mrhud_gitlab_request_total",
	}

	for _, metric := range expectedMetrics {
		if !strings.Contains(bodyStr, metric) {
			t.Errorf("response body does not contain %q", metric)
		}
	}
}

// TestCollector_ImplementsMetricsCollectorInterface はCollectorがMetricsCollectorインターフェースを実装することを検証する。
func TestCollector_ImplementsMetricsCollectorInterface(t *testing.T) {
	reg := prometheus.NewRegistry()
	var _ MetricsCollector = NewCollector(reg)
}

// TestMultipleCollectors_IndependentRegistries は異なるレジストリで独立に動作することを検証する。
func TestMultipleCollectors_IndependentRegistries(t *testing.T) {
	reg1 := prometheus.NewRegistry()
	reg2 := prometheus.NewRegistry()
	c1 := NewCollector(reg1)
	c2 := NewCollector(reg2)

	c1.RecordMalformedRow()
	c2.RecordMalformedRow()
	c2.RecordMalformedRow()

	if val := counterValue(t, reg1, "mrhud_rows_malformed_total"); val != 1 {
		t.Errorf("reg1 rows_malformed = %v, want 1", val)
	}
	if val := counterValue(t, reg2, "mrhud_rows_malformed_total"); val != 2 {
		t.Errorf("reg2 rows_malformed = %v, want 2", val)
	}
}
