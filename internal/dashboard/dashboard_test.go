package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"gemini-bot/internal/models"
	"gemini-bot/internal/storage/storagetest"
)

func seed(t *testing.T) *Aggregator {
	t.Helper()
	store, db := storagetest.SQLite(t)
	ctx := context.Background()

	for id := int64(1); id <= 7; id++ {
		if _, err := store.RegisterUser(ctx, id, "user", ""); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	for id, n := range map[int64]int64{3: 4, 5: 4, 6: 9, 2: 1} {
		if err := db.Model(&models.User{}).Where("chat_id = ?", id).
			UpdateColumn("referral_count", n).Error; err != nil {
			t.Fatalf("seed count: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		if err := store.AppendChat(ctx, &models.ChatRecord{UserID: 1, UserMessage: "q", BotResponse: "a"}); err != nil {
			t.Fatalf("append chat: %v", err)
		}
	}
	return NewAggregator(store)
}

func TestSnapshot(t *testing.T) {
	agg := seed(t)

	stats, err := agg.Snapshot(context.Background(), 0)
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if stats.TotalUsers != 7 || stats.ActiveUsers != 0 || stats.TotalMessages != 3 {
		t.Fatalf("unexpected counters %+v", stats)
	}
	want := []int64{6, 3, 5, 2, 1}
	if len(stats.TopUsers) != len(want) {
		t.Fatalf("want %d top users, got %d", len(want), len(stats.TopUsers))
	}
	for i, id := range want {
		if stats.TopUsers[i].ChatID != id {
			t.Fatalf("rank %d: want %d got %d", i, id, stats.TopUsers[i].ChatID)
		}
	}
}

func TestTopReferrersRespectsLimit(t *testing.T) {
	agg := seed(t)
	top, err := agg.TopReferrers(context.Background(), 2)
	if err != nil {
		t.Fatalf("top: %v", err)
	}
	if len(top) != 2 || top[0].ChatID != 6 || top[1].ChatID != 3 {
		t.Fatalf("unexpected top %+v", top)
	}
}

func TestStatsEndpoint(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, err := NewServer(seed(t), nil, nil)
	if err != nil {
		t.Fatalf("server: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/stats?limit=3", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", rec.Code, rec.Body.String())
	}
	var body models.DashboardStats
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.TotalUsers != 7 || len(body.TopUsers) != 3 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestStatsEndpointRejectsBadLimit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, err := NewServer(seed(t), nil, nil)
	if err != nil {
		t.Fatalf("server: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/?limit=abc", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("want 400, got %d", rec.Code)
	}
}

func TestAllowList(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, err := NewServer(seed(t), nil, []string{"10.0.0.0/8"})
	if err != nil {
		t.Fatalf("server: %v", err)
	}

	denied := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	denied.RemoteAddr = "203.0.113.9:5000"
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, denied)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("want 403, got %d", rec.Code)
	}

	allowed := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	allowed.RemoteAddr = "10.2.3.4:5000"
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, allowed)
	if rec.Code != http.StatusOK {
		t.Fatalf("want 200, got %d", rec.Code)
	}

	health := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	health.RemoteAddr = "203.0.113.9:5000"
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, health)
	if rec.Code != http.StatusOK {
		t.Fatalf("health check should stay open, got %d", rec.Code)
	}
}

type brokenSource struct{ Source }

func (brokenSource) CountUsers(context.Context) (int64, error) { return 0, errors.New("db down") }

func TestStatsEndpointStorageFailure(t *testing.T) {
	gin.SetMode(gin.TestMode)
	srv, err := NewServer(NewAggregator(brokenSource{}), nil, nil)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("want 500, got %d", rec.Code)
	}
}

func TestNewServerRejectsBadCIDR(t *testing.T) {
	if _, err := NewServer(NewAggregator(brokenSource{}), nil, []string{"nope/1"}); err == nil {
		t.Fatalf("expected error")
	}
}
