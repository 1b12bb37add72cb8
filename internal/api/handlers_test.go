package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/yangwenmai/storeops/internal/catalog"
	"github.com/yangwenmai/storeops/internal/chat"
	"github.com/yangwenmai/storeops/internal/engine"
	"github.com/yangwenmai/storeops/internal/model"
	"github.com/yangwenmai/storeops/internal/scan"
	"github.com/yangwenmai/storeops/internal/store"
)

func newTestServer(t *testing.T, chatOpts ...chat.Option) (*Server, *store.Store) {
	t.Helper()
	db, err := store.OpenMemory()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := store.New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	p, err := engine.NewPipeline(s, cat, engine.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("new pipeline: %v", err)
	}
	if err := p.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	// Always pick the "poor" scenario.
	a, err := scan.NewAnalyzer(cat.Scenarios, scan.WithDelay(0), scan.WithPicker(func(n int) int { return n - 1 }))
	if err != nil {
		t.Fatalf("new analyzer: %v", err)
	}

	chatOpts = append([]chat.Option{chat.WithReplyDelay(10*time.Millisecond, 0)}, chatOpts...)
	sess := chat.NewSession(context.Background(), cat.Matcher(), cat.Chat.Welcome, chatOpts...)
	t.Cleanup(sess.Close)

	srv := New(Deps{
		Store:    s,
		Pipeline: p,
		Scans:    a,
		Chat:     sess,
		Prompts:  cat.Chat.Prompts,
		Logger:   zerolog.Nop(),
	})
	return srv, s
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var result map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode JSON: %v\nbody: %s", err, rr.Body.String())
	}
	return result
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var result []map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode JSON: %v\nbody: %s", err, rr.Body.String())
	}
	return result
}

func TestGetState(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rr := doRequest(t, h, "GET", "/api/state", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	result := decodeJSON(t, rr)
	if result["category"] != "All" || result["persona"] != "Store Manager" {
		t.Errorf("state = %v", result)
	}
	counts := result["counts"].(map[string]any)
	if counts["recommendations"] != float64(10) || counts["tasks"] != float64(7) {
		t.Errorf("counts = %v", counts)
	}
}

func TestPutState(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	// Dismiss an insight, then switch to the operations persona: the feed
	// is rebuilt for the new category.
	doRequest(t, h, "DELETE", "/api/insights/1", "")
	rr := doRequest(t, h, "PUT", "/api/state", `{"category":"Dairy","persona":"Operations Manager"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	result := decodeJSON(t, rr)
	if result["category"] != "Dairy" || result["persona"] != "Operations Manager" {
		t.Errorf("state = %v", result)
	}
	counts := result["counts"].(map[string]any)
	if counts["insights"] != float64(2) || counts["alerts"] != float64(2) {
		t.Errorf("counts = %v, want the Dairy feed", counts)
	}

	// Missing fields keep the current value.
	rr = doRequest(t, h, "PUT", "/api/state", `{"category":"Snacks"}`)
	result = decodeJSON(t, rr)
	if result["persona"] != "Operations Manager" {
		t.Errorf("persona = %v, want unchanged", result["persona"])
	}
}

func TestPutState_Invalid(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	for _, body := range []string{`{"category":"Toys"}`, `{"persona":"Intern"}`, `not json`} {
		rr := doRequest(t, h, "PUT", "/api/state", body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", body, rr.Code)
		}
	}
}

func TestListTasks(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rr := doRequest(t, h, "GET", "/api/tasks", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := len(decodeList(t, rr)); got != 7 {
		t.Errorf("tasks = %d, want 7", got)
	}

	rr = doRequest(t, h, "GET", "/api/tasks?status=Done&category=Beverages", "")
	tasks := decodeList(t, rr)
	if len(tasks) != 1 || tasks[0]["id"] != "t-comp-1" {
		t.Errorf("filtered tasks = %v", tasks)
	}

	rr = doRequest(t, h, "GET", "/api/tasks?category=Toys", "")
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("empty list body = %q, want []", rr.Body.String())
	}
}

func TestUpdateTaskStatus(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rr := doRequest(t, h, "PATCH", "/api/tasks/t1/status", `{"status":"In Progress"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	if got := decodeJSON(t, rr)["status"]; got != model.StatusInProgress {
		t.Errorf("task status = %v", got)
	}

	rr = doRequest(t, h, "PATCH", "/api/tasks/t1/status", `{"status":"To Do"}`)
	if rr.Code != http.StatusConflict {
		t.Errorf("backwards: status = %d, want 409", rr.Code)
	}

	rr = doRequest(t, h, "PATCH", "/api/tasks/t1/status", `{"status":"Blocked"}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("unknown status: status = %d, want 400", rr.Code)
	}

	rr = doRequest(t, h, "PATCH", "/api/tasks/t1/status", `{}`)
	if got := decodeJSON(t, rr)["status"]; got != model.StatusDone {
		t.Errorf("empty status should advance to Done, got %v", got)
	}

	rr = doRequest(t, h, "PATCH", "/api/tasks/nope/status", `{"status":"Done"}`)
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing task: status = %d, want 404", rr.Code)
	}
}

func TestTaskActions(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rr := doRequest(t, h, "POST", "/api/tasks/t1/pause", `{"reason":"Awaiting delivery"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("pause: status = %d, body: %s", rr.Code, rr.Body.String())
	}
	result := decodeJSON(t, rr)
	if result["paused"] != true || result["pause_reason"] != "Awaiting delivery" {
		t.Errorf("paused task = %v", result)
	}

	rr = doRequest(t, h, "POST", "/api/tasks/t1/resume", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("resume: status = %d", rr.Code)
	}
	if _, ok := decodeJSON(t, rr)["paused"]; ok {
		t.Error("resumed task still paused")
	}

	rr = doRequest(t, h, "POST", "/api/tasks/t1/escalate", `{"reason":"SLA Risk"}`)
	if got := decodeJSON(t, rr)["escalated"]; got != true {
		t.Errorf("escalated = %v", got)
	}

	rr = doRequest(t, h, "POST", "/api/tasks/t1/complete", "")
	result = decodeJSON(t, rr)
	if result["status"] != model.StatusDone {
		t.Errorf("completed status = %v", result["status"])
	}
	if _, ok := result["escalated"]; ok {
		t.Error("completed task still escalated")
	}

	rr = doRequest(t, h, "POST", "/api/tasks/t1/pause", `{"reason":"late"}`)
	if rr.Code != http.StatusConflict {
		t.Errorf("pause done task: status = %d, want 409", rr.Code)
	}

	rr = doRequest(t, h, "POST", "/api/tasks/t1/pause", `{bad`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad body: status = %d, want 400", rr.Code)
	}
}

func TestConvertRecommendation(t *testing.T) {
	srv, s := newTestServer(t)
	h := srv.Handler()

	rr := doRequest(t, h, "POST", "/api/recommendations/1/convert", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	task := decodeJSON(t, rr)
	if task["description"] != "Restock: Fresh Milk" || task["source"] != model.SourceStoreManager {
		t.Errorf("task = %v", task)
	}

	tasks, _ := s.ListTasks(context.Background(), model.TaskFilter{})
	if len(tasks) != 8 || tasks[0].ID != task["id"] {
		t.Errorf("new task not at head: %d tasks, head %q", len(tasks), tasks[0].ID)
	}

	rr = doRequest(t, h, "POST", "/api/recommendations/1/convert", "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("second convert: status = %d, want 204", rr.Code)
	}
}

func TestDismiss(t *testing.T) {
	srv, s := newTestServer(t)
	h := srv.Handler()

	for _, path := range []string{
		"/api/recommendations/2",
		"/api/recommendations/2",
		"/api/insights/1",
		"/api/alerts/1",
		"/api/alerts/999",
	} {
		rr := doRequest(t, h, "DELETE", path, "")
		if rr.Code != http.StatusNoContent {
			t.Errorf("DELETE %s: status = %d, want 204", path, rr.Code)
		}
	}

	c, _ := s.Counts(context.Background())
	if c.Recommendations != 9 || c.Insights != 4 || c.Alerts != 7 || c.Tasks != 7 {
		t.Errorf("counts = %+v", c)
	}

	rr := doRequest(t, h, "DELETE", "/api/alerts/abc", "")
	if rr.Code != http.StatusBadRequest {
		t.Errorf("non-integer id: status = %d, want 400", rr.Code)
	}
}

func TestConvertInsight(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rr := doRequest(t, h, "GET", "/api/insights", "")
	if got := len(decodeList(t, rr)); got != 5 {
		t.Fatalf("insights = %d, want 5", got)
	}

	rr = doRequest(t, h, "POST", "/api/insights/1/convert", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	task := decodeJSON(t, rr)
	if task["category"] != "All" || task["source"] != model.SourceAutonomous {
		t.Errorf("task = %v", task)
	}

	rr = doRequest(t, h, "POST", "/api/insights/1/convert", "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("second convert: status = %d, want 204", rr.Code)
	}

	rr = doRequest(t, h, "GET", "/api/alerts", "")
	if got := len(decodeList(t, rr)); got != 8 {
		t.Errorf("alerts = %d, want 8", got)
	}
}

func TestScanAndRestock(t *testing.T) {
	srv, s := newTestServer(t)
	h := srv.Handler()

	rr := doRequest(t, h, "POST", "/api/scans", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("scan: status = %d, body: %s", rr.Code, rr.Body.String())
	}
	result := decodeJSON(t, rr)
	if result["name"] != "poor" || result["compliance_score"] != float64(48) {
		t.Errorf("scan = %v", result)
	}
	session := result["session_id"].(string)

	rr = doRequest(t, h, "POST", "/api/scans/"+session+"/restock", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("restock: status = %d, body: %s", rr.Code, rr.Body.String())
	}
	if got := len(decodeList(t, rr)); got != 5 {
		t.Errorf("restock tasks = %d, want 5", got)
	}

	rr = doRequest(t, h, "POST", "/api/scans/"+session+"/restock", "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("repeat restock: status = %d, want 204", rr.Code)
	}

	c, _ := s.Counts(context.Background())
	if c.Tasks != 12 {
		t.Errorf("tasks = %d, want 12", c.Tasks)
	}

	rr = doRequest(t, h, "POST", "/api/scans/unknown/restock", "")
	if rr.Code != http.StatusNotFound {
		t.Errorf("unknown session: status = %d, want 404", rr.Code)
	}
}

func TestScore(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rr := doRequest(t, h, "POST", "/api/score",
		`{"correct":8,"misplaced":2,"low":1,"empty":1,"total_expected_skus":12,"facing_issues":2}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	result := decodeJSON(t, rr)
	if result["total"] != float64(76) || result["band"] != "Moderate Compliance" {
		t.Errorf("score = %v", result)
	}

	rr = doRequest(t, h, "POST", "/api/score", `[]`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad body: status = %d, want 400", rr.Code)
	}
}

func TestSuggestions(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rr := doRequest(t, h, "GET", "/api/suggestions?q=stock", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	got := decodeList(t, rr)
	if len(got) == 0 || len(got) > 5 {
		t.Errorf("suggestions = %d, want 1..5", len(got))
	}

	rr = doRequest(t, h, "GET", "/api/suggestions?q=s", "")
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("short query body = %q, want []", rr.Body.String())
	}
}

func TestChat(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rr := doRequest(t, h, "POST", "/api/chat", `{"text":"what is low stock?"}`)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body: %s", rr.Code, rr.Body.String())
	}
	if got := decodeJSON(t, rr)["id"]; got != "user-1" {
		t.Errorf("turn id = %v", got)
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		rr = doRequest(t, h, "GET", "/api/chat", "")
		result := decodeJSON(t, rr)
		turns := result["turns"].([]any)
		if len(turns) == 3 && result["pending"] == false {
			reply := turns[2].(map[string]any)
			if reply["sender"] != "ai" || !strings.Contains(reply["text"].(string), "inventory") {
				t.Errorf("reply = %v", reply)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no reply: %v", result)
		}
		time.Sleep(5 * time.Millisecond)
	}

	rr = doRequest(t, h, "POST", "/api/chat", `{"text":"   "}`)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty text: status = %d, want 400", rr.Code)
	}
}

func TestChat_Serialized(t *testing.T) {
	srv, _ := newTestServer(t, chat.WithReplyDelay(time.Hour, 0), chat.WithSerialize(true))
	h := srv.Handler()

	doRequest(t, h, "POST", "/api/chat", `{"text":"hello"}`)
	rr := doRequest(t, h, "POST", "/api/chat", `{"text":"again"}`)
	if rr.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rr.Code)
	}
}

func TestChat_Closed(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	srv.chat.Close()
	rr := doRequest(t, h, "POST", "/api/chat", `{"text":"hello"}`)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rr.Code)
	}
}

func TestCORS(t *testing.T) {
	srv, _ := newTestServer(t)
	h := srv.Handler()

	rr := doRequest(t, h, "OPTIONS", "/api/tasks", "")
	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want 204", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("origin = %q", got)
	}
}
