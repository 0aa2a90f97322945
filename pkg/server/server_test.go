package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/openai/openai-go/v3"

	"fable/pkg/pipeline"
)

type stubInferencer struct {
	calls atomic.Int64
	out   string
	err   error
}

func (s *stubInferencer) Infer(ctx context.Context, _ *openai.ChatCompletionNewParams, _, _ string) (string, error) {
	s.calls.Add(1)
	return s.out, s.err
}

func (s *stubInferencer) Edit(ctx context.Context, params *openai.ChatCompletionNewParams, system, user string) (string, error) {
	return s.Infer(ctx, params, system, user)
}

const storyJSON = `{"title":"The Lost Kite","chapters":[{"heading":"One","text":"Once...","scene":"a kite"}]}`

func testServer(inf *stubInferencer) *Server {
	runner := pipeline.NewRunner(inf)
	runner.StepDelay = 0
	return NewServer(context.Background(), nil, runner, inf)
}

func request(s *Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Echo.ServeHTTP(rec, req)
	return rec
}

func TestValidateEndpoint(t *testing.T) {
	s := testServer(&stubInferencer{})

	body := `{
		"roles": [{"role_id":"hero","required":true},{"role_id":"sidekick"}],
		"assignments": {}
	}`
	rec := request(s, http.MethodPost, "/api/validate", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var result struct {
		OK      bool     `json:"ok"`
		Missing []string `json:"missing_role_ids"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.OK || len(result.Missing) != 1 || result.Missing[0] != "hero" {
		t.Errorf("result = %+v", result)
	}
}

func TestCandidatesEndpoint(t *testing.T) {
	s := testServer(&stubInferencer{})

	body := `{
		"role": {"role_id":"hero","constraints":{"min_age":6,"max_age":10}},
		"characters": [
			{"character_id":"a","attributes":{"age":8}},
			{"character_id":"b","attributes":{"age":14}}
		]
	}`
	rec := request(s, http.MethodPost, "/api/candidates", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var result struct {
		Strict []struct {
			CharacterID string `json:"character_id"`
		} `json:"strict"`
		All []struct {
			CharacterID string `json:"character_id"`
		} `json:"all"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Strict) != 1 || result.Strict[0].CharacterID != "a" {
		t.Errorf("strict = %+v", result.Strict)
	}
	if len(result.All) != 2 {
		t.Errorf("all = %+v", result.All)
	}
}

func TestGenerateRejectsInvalidInputWithoutBackendCall(t *testing.T) {
	inf := &stubInferencer{out: storyJSON}
	s := testServer(inf)

	body := `{"config":{"topic":"space","character_ids":[]}}`
	rec := request(s, http.MethodPost, "/api/generate", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	if !strings.Contains(rec.Body.String(), "invalid_input") {
		t.Errorf("body should carry the typed kind: %s", rec.Body)
	}
	if n := inf.calls.Load(); n != 0 {
		t.Errorf("backend called %d times for rejected input, want 0", n)
	}
}

func TestGenerateRunsJobToCompletion(t *testing.T) {
	inf := &stubInferencer{out: storyJSON}
	s := testServer(inf)

	body := `{"config":{"topic":"a lost kite","character_ids":["a"]}}`
	rec := request(s, http.MethodPost, "/api/generate", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var view struct {
		JobID  string `json:"job_id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatal(err)
	}
	if view.JobID == "" {
		t.Fatal("no job id returned")
	}

	job, ok := s.Jobs.Load(view.JobID)
	if !ok {
		t.Fatal("job not stored")
	}
	select {
	case <-job.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("job did not finish")
	}

	rec = request(s, http.MethodGet, "/api/jobs/"+view.JobID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("snapshot status = %d", rec.Code)
	}
	var snap struct {
		Status string `json:"status"`
		Phase  string `json:"phase"`
		Result *struct {
			Title string `json:"title"`
		} `json:"result"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &snap); err != nil {
		t.Fatal(err)
	}
	if snap.Status != "succeeded" || snap.Phase != "complete" {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.Result == nil || snap.Result.Title != "The Lost Kite" {
		t.Errorf("result = %+v", snap.Result)
	}
	if n := inf.calls.Load(); n != 1 {
		t.Errorf("backend called %d times, want exactly 1", n)
	}
}

func TestJobLookupUnknownID(t *testing.T) {
	s := testServer(&stubInferencer{})

	if rec := request(s, http.MethodGet, "/api/jobs/unknown", ""); rec.Code != http.StatusNotFound {
		t.Errorf("get status = %d, want 404", rec.Code)
	}
	if rec := request(s, http.MethodDelete, "/api/jobs/unknown", ""); rec.Code != http.StatusNotFound {
		t.Errorf("delete status = %d, want 404", rec.Code)
	}
}

func TestReviseEndpoint(t *testing.T) {
	inf := &stubInferencer{out: "The kite soared even higher."}
	s := testServer(inf)

	body := `{"story_id":"s1","selection":"The kite soared.","prompt":"make it more exciting"}`
	rec := request(s, http.MethodPost, "/api/revise", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}

	var result struct {
		Result string `json:"result"`
		Diff   []struct {
			Op   int    `json:"op"`
			Text string `json:"text"`
		} `json:"diff"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Result != "The kite soared even higher." {
		t.Errorf("result = %q", result.Result)
	}
	if len(result.Diff) == 0 {
		t.Error("expected a word diff")
	}

	history, ok := s.Revisions.Load("s1")
	if !ok || len(history) != 1 {
		t.Errorf("history = %+v", history)
	}

	rec = request(s, http.MethodPost, "/api/revise", `{"story_id":"s1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing fields should 400, got %d", rec.Code)
	}
}
