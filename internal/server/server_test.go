package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"adforge/internal/config"
	"adforge/internal/core"
	"adforge/internal/llm"
	"adforge/internal/rundir"
	"adforge/internal/scrape"
	"adforge/internal/store"
	"adforge/internal/trends"
)

// scriptedGenerator returns queued responses in order; a nil entry yields an
// error for that call.
type scriptedGenerator struct {
	responses []*llm.Response
	calls     int
}

func (g *scriptedGenerator) GenerateContent(ctx context.Context, model, prompt, system string, temperature float32) (*llm.Response, error) {
	if g.calls >= len(g.responses) {
		return nil, fmt.Errorf("unexpected generation call %d", g.calls)
	}
	resp := g.responses[g.calls]
	g.calls++
	if resp == nil {
		return nil, fmt.Errorf("scripted failure on call %d", g.calls)
	}
	return resp, nil
}

func textResponse(payload string) *llm.Response {
	return &llm.Response{Text: payload}
}

// stubMedia completes every operation immediately. noMedia makes video
// operations finish without a payload.
type stubMedia struct {
	noMedia bool
}

func (m *stubMedia) GenerateImage(ctx context.Context, model, prompt string) (*llm.MediaResult, error) {
	return &llm.MediaResult{Bytes: []byte("image-bytes"), MIMEType: "image/png"}, nil
}

func (m *stubMedia) StartVideo(ctx context.Context, model, prompt string, durationSeconds int32) (any, error) {
	return "operations/op-1", nil
}

func (m *stubMedia) GetOperation(ctx context.Context, handle any, name string) (*llm.OperationStatus, error) {
	status := &llm.OperationStatus{Name: "operations/op-1", Done: true}
	if !m.noMedia {
		status.Media = &llm.MediaResult{Bytes: []byte("video-bytes"), MIMEType: "video/mp4"}
	}
	return status, nil
}

// flakyVideoMedia fails the first video start and serves the rest normally.
type flakyVideoMedia struct {
	stubMedia
	videoCalls int
}

func (m *flakyVideoMedia) StartVideo(ctx context.Context, model, prompt string, durationSeconds int32) (any, error) {
	m.videoCalls++
	if m.videoCalls == 1 {
		return nil, fmt.Errorf("quota exceeded")
	}
	return m.stubMedia.StartVideo(ctx, model, prompt, durationSeconds)
}

type fixedTrendProvider struct {
	series []float64
}

func (p *fixedTrendProvider) InterestOverTime(ctx context.Context, keywords []string, lookbackDays int, geo string) ([]float64, error) {
	return p.series, nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App: config.App{Version: "v1", DataDir: t.TempDir()},
		AI: config.AI{Gemini: config.GeminiConfig{
			TextModel:  "text-model",
			ImageModel: "image-model",
			VideoModel: "video-model",
			MaxRetries: 0,
		}},
		Pipeline: config.Pipeline{
			PersonaCount:  2,
			PatchCount:    1,
			IdeasPerPatch: 2,
			TopIdeaCount:  2,
			TopVideoCount: 2,
			Temperatures:  []float32{0.2, 0.35},
		},
		Scoring: config.Scoring{
			LLMWeight:           0.45,
			TrendWeight:         0.35,
			ViralWeight:         0.20,
			PredictiveBatchSize: 8,
			ViralBatchSize:      8,
		},
		Trends: config.Trends{LookbackDays: 30, KeywordsPerIdea: 3, Concurrency: 2, Geo: "US"},
		Media: config.Media{
			PollInterval:    time.Millisecond,
			PollMaxAttempts: 3,
			VideoSeconds:    6,
		},
		Output: config.Output{Directory: t.TempDir()},
		Server: config.Server{Host: "localhost", Port: 0},
	}
}

func newTestServer(t *testing.T, gen *scriptedGenerator, media llm.MediaGenerator) (*Server, *store.Store) {
	t.Helper()
	cfg := testConfig(t)

	st, err := store.New(t.TempDir())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	scorer := trends.NewScorer(&fixedTrendProvider{series: []float64{60}},
		cfg.Trends.LookbackDays, cfg.Trends.KeywordsPerIdea, cfg.Trends.Geo)

	srv := New(cfg, llm.NewClient(gen), media, st, scrape.NewSampler(), scorer)
	return srv, st
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

// seedCompany writes a company with a selected anchor persona and two scored
// ideas straight into the store, skipping the generation endpoints.
func seedCompany(t *testing.T, st *store.Store, companyID string) {
	t.Helper()
	now := time.Now().UTC()

	err := st.SaveCompanyContext(core.CompanyContext{
		CompanyID:     companyID,
		URL:           "https://example.com",
		UVP:           "ship faster",
		BrandHeadline: "Ship faster",
		GeneratedAt:   now,
	}, "")
	if err != nil {
		t.Fatalf("SaveCompanyContext: %v", err)
	}

	personas := []core.Persona{
		{PersonaID: "p1", Name: "Ana", Role: "Head of Growth"},
		{PersonaID: "p2", Name: "Ben", Role: "Founder"},
	}
	if err := st.SavePersonas(companyID, personas); err != nil {
		t.Fatalf("SavePersonas: %v", err)
	}
	if err := st.SetAnchorPersona(companyID, "p1"); err != nil {
		t.Fatalf("SetAnchorPersona: %v", err)
	}

	meta := core.PatchMetadata{PatchID: "patch-1", PersonaID: "p1", GeneratedAt: now}
	ideas := []core.Idea{
		{ScriptID: "s1", PatchID: "patch-1", PersonaID: "p1", Headline: "H1", Body: "B1", CTA: "C1", Keywords: []string{"speed"}, CreatedAt: now},
		{ScriptID: "s2", PatchID: "patch-1", PersonaID: "p1", Headline: "H2", Body: "B2", CTA: "C2", Keywords: []string{"automation"}, CreatedAt: now},
	}
	if err := st.SavePatch(meta, ideas, ""); err != nil {
		t.Fatalf("SavePatch: %v", err)
	}

	scores := []core.IdeaScore{
		{ScriptID: "s1", TrendScore: 60, LLMScore: 80, ViralScore: 40, FinalScore: 65, ScoredAt: now},
		{ScriptID: "s2", TrendScore: 60, LLMScore: 50, ViralScore: 50, FinalScore: 54, ScoredAt: now},
	}
	if err := st.SaveScores(scores); err != nil {
		t.Fatalf("SaveScores: %v", err)
	}
}

func briefResponse(scriptID string) *llm.Response {
	return textResponse(fmt.Sprintf(`{
		"image_brief": "product shot for %s",
		"video_brief": {
			"hook": "Still doing this by hand?",
			"scenes": [{"time": "0-2s", "visual": "cluttered desk"}],
			"cta": "Start free"
		}
	}`, scriptID))
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedGenerator{}, &stubMedia{})

	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp HealthResponse
	decodeBody(t, rec, &resp)
	if resp.Status != "ok" || resp.Checks["store"] != "ok" {
		t.Errorf("health = %+v", resp)
	}
}

func TestStatus(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedGenerator{}, &stubMedia{})

	rec := doJSON(t, srv, http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp StatusResponse
	decodeBody(t, rec, &resp)
	if resp.Version != "v1" || resp.Models["text"] != "text-model" {
		t.Errorf("status = %+v", resp)
	}
}

func TestIngest(t *testing.T) {
	gen := &scriptedGenerator{responses: []*llm.Response{
		textResponse(`{
			"company_id": "c1",
			"url": "http://127.0.0.1:0",
			"uvp": "ship faster",
			"brand_headline": "Ship faster",
			"brand_keywords": ["speed"],
			"tone": "confident"
		}`),
	}}
	srv, st := newTestServer(t, gen, &stubMedia{})

	// The URL is unreachable on purpose; ingest falls back to the UVP sample.
	rec := doJSON(t, srv, http.MethodPost, "/api/ingest",
		map[string]string{"url": "http://127.0.0.1:0", "uvp": "ship faster"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp core.CompanyContext
	decodeBody(t, rec, &resp)
	if resp.BrandHeadline != "Ship faster" {
		t.Errorf("headline = %q", resp.BrandHeadline)
	}

	stored, err := st.GetCompanyContext(resp.CompanyID)
	if err != nil {
		t.Fatalf("context was not persisted: %v", err)
	}
	if stored.BrandHeadline != "Ship faster" {
		t.Errorf("stored headline = %q", stored.BrandHeadline)
	}
}

func TestIngestValidation(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedGenerator{}, &stubMedia{})

	rec := doJSON(t, srv, http.MethodPost, "/api/ingest", map[string]string{"url": "https://example.com"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing uvp: status = %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/ingest", bytes.NewBufferString("{not json"))
	rec2 := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec2, req)
	if rec2.Code != http.StatusBadRequest {
		t.Errorf("malformed body: status = %d", rec2.Code)
	}
}

func TestGeneratePersonasUnknownCompany(t *testing.T) {
	srv, _ := newTestServer(t, &scriptedGenerator{}, &stubMedia{})

	rec := doJSON(t, srv, http.MethodPost, "/api/personas/generate",
		map[string]string{"company_id": "missing"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestPersonaGenerateAndSelect(t *testing.T) {
	gen := &scriptedGenerator{responses: []*llm.Response{
		textResponse(`{
			"personas": [
				{"persona_id": "p1", "name": "Ana", "role": "Head of Growth", "company_size": "50-200",
				 "motivations": ["pipeline"], "pain_points": ["manual work"],
				 "preferred_channels": ["linkedin"], "tone": "direct"},
				{"persona_id": "p2", "name": "Ben", "role": "Founder", "company_size": "1-10",
				 "motivations": ["growth"], "pain_points": ["time"],
				 "preferred_channels": ["twitter"], "tone": "casual"}
			]
		}`),
	}}
	srv, st := newTestServer(t, gen, &stubMedia{})

	err := st.SaveCompanyContext(core.CompanyContext{CompanyID: "c1", URL: "u", UVP: "v"}, "")
	if err != nil {
		t.Fatalf("SaveCompanyContext: %v", err)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/personas/generate",
		map[string]string{"company_id": "c1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("generate: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var genResp struct {
		Personas []core.Persona `json:"personas"`
	}
	decodeBody(t, rec, &genResp)
	if len(genResp.Personas) != 2 || genResp.Personas[0].Name != "Ana" {
		t.Fatalf("personas = %+v", genResp.Personas)
	}

	rec = doJSON(t, srv, http.MethodPost, "/api/personas/select",
		map[string]any{"company_id": "c1", "index": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("select: status = %d, body %s", rec.Code, rec.Body.String())
	}
	var anchor core.Persona
	decodeBody(t, rec, &anchor)
	if anchor.PersonaID != "p2" {
		t.Errorf("anchor = %+v, want p2", anchor)
	}

	stored, err := st.GetAnchorPersona("c1")
	if err != nil {
		t.Fatalf("anchor was not persisted: %v", err)
	}
	if stored.PersonaID != "p2" {
		t.Errorf("stored anchor = %q", stored.PersonaID)
	}
}

func TestSelectPersonaIndexOutOfRange(t *testing.T) {
	srv, st := newTestServer(t, &scriptedGenerator{}, &stubMedia{})
	seedCompany(t, st, "c1")

	for _, index := range []int{-1, 2} {
		rec := doJSON(t, srv, http.MethodPost, "/api/personas/select",
			map[string]any{"company_id": "c1", "index": index})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("index %d: status = %d, want 400", index, rec.Code)
		}
	}
}

func TestGenerateScripts(t *testing.T) {
	gen := &scriptedGenerator{responses: []*llm.Response{
		textResponse(`{
			"ideas": [
				{"script_id": "n1", "headline": "New H1", "body": "B", "cta": "C", "keywords": ["speed"]},
				{"script_id": "n2", "headline": "New H2", "body": "B", "cta": "C", "keywords": []}
			]
		}`),
	}}
	srv, st := newTestServer(t, gen, &stubMedia{})
	seedCompany(t, st, "c1")

	rec := doJSON(t, srv, http.MethodPost, "/api/scripts/generate",
		map[string]any{"company_id": "c1", "batches": 1})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Ideas []core.Idea `json:"ideas"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Ideas) != 2 || resp.Ideas[0].ScriptID != "n1" {
		t.Fatalf("ideas = %+v", resp.Ideas)
	}
	if resp.Ideas[0].PersonaID != "p1" {
		t.Errorf("idea persona = %q, want the anchor", resp.Ideas[0].PersonaID)
	}

	stored, err := st.GetIdea("n1")
	if err != nil {
		t.Fatalf("idea was not persisted: %v", err)
	}
	if stored.Headline != "New H1" {
		t.Errorf("stored headline = %q", stored.Headline)
	}
}

func TestGenerateScriptsWithoutAnchor(t *testing.T) {
	srv, st := newTestServer(t, &scriptedGenerator{}, &stubMedia{})
	err := st.SaveCompanyContext(core.CompanyContext{CompanyID: "c1", URL: "u", UVP: "v"}, "")
	if err != nil {
		t.Fatalf("SaveCompanyContext: %v", err)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/scripts/generate",
		map[string]any{"company_id": "c1"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for missing anchor", rec.Code)
	}
}

func TestCalculateScores(t *testing.T) {
	gen := &scriptedGenerator{responses: []*llm.Response{
		// Predictive batch, then viral batch.
		textResponse(`{"scores": [
			{"script_id": "s1", "llm_score": 80, "rationale": "strong hook"},
			{"script_id": "s2", "llm_score": 50, "rationale": "flat"}
		]}`),
		textResponse(`{"scores": [
			{"script_id": "s1", "viral_score": 40, "rationale": "niche"},
			{"script_id": "s2", "viral_score": 50, "rationale": "relatable"}
		]}`),
	}}
	srv, st := newTestServer(t, gen, &stubMedia{})
	seedCompany(t, st, "c1")

	rec := doJSON(t, srv, http.MethodPost, "/api/scores/calculate",
		map[string]any{"company_id": "c1", "script_ids": []string{"s1", "s2"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Scores []core.IdeaScore `json:"scores"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Scores) != 2 {
		t.Fatalf("scores = %+v", resp.Scores)
	}
	// 0.45*80 + 0.35*60 + 0.20*40 = 65
	if got := resp.Scores[0]; got.ScriptID != "s1" || got.LLMScore != 80 || got.TrendScore != 60 || got.FinalScore != 65 {
		t.Errorf("s1 score = %+v", got)
	}

	stored, err := st.GetScore("s1")
	if err != nil {
		t.Fatalf("score was not persisted: %v", err)
	}
	if stored.FinalScore != 65 {
		t.Errorf("stored final = %d", stored.FinalScore)
	}
}

func TestCalculateScoresDefaultsToAnchorIdeas(t *testing.T) {
	gen := &scriptedGenerator{responses: []*llm.Response{
		textResponse(`{"scores": [
			{"script_id": "s1", "llm_score": 80, "rationale": "strong hook"},
			{"script_id": "s2", "llm_score": 50, "rationale": "flat"}
		]}`),
		textResponse(`{"scores": [
			{"script_id": "s1", "viral_score": 40, "rationale": "niche"},
			{"script_id": "s2", "viral_score": 50, "rationale": "relatable"}
		]}`),
	}}
	srv, st := newTestServer(t, gen, &stubMedia{})
	seedCompany(t, st, "c1")

	// No script_ids: every idea of the anchor persona gets scored.
	rec := doJSON(t, srv, http.MethodPost, "/api/scores/calculate",
		map[string]any{"company_id": "c1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Scores []core.IdeaScore `json:"scores"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Scores) != 2 {
		t.Fatalf("scores = %+v, want both anchor ideas scored", resp.Scores)
	}
}

func TestCalculateScoresUnknownScript(t *testing.T) {
	srv, st := newTestServer(t, &scriptedGenerator{}, &stubMedia{})
	seedCompany(t, st, "c1")

	rec := doJSON(t, srv, http.MethodPost, "/api/scores/calculate",
		map[string]any{"company_id": "c1", "script_ids": []string{"missing"}})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGenerateImages(t *testing.T) {
	gen := &scriptedGenerator{responses: []*llm.Response{briefResponse("s1")}}
	srv, st := newTestServer(t, gen, &stubMedia{})
	seedCompany(t, st, "c1")

	rec := doJSON(t, srv, http.MethodPost, "/api/assets/generate-images",
		map[string]any{"company_id": "c1", "script_ids": []string{"s1"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		OutputDir string   `json:"output_dir"`
		Written   []string `json:"written"`
		Failed    []string `json:"failed"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Written) != 1 || resp.Written[0] != "s1" || len(resp.Failed) != 0 {
		t.Fatalf("response = %+v", resp)
	}

	data, err := os.ReadFile(rundir.Open(resp.OutputDir).Path(rundir.ImageFile("s1")))
	if err != nil {
		t.Fatalf("image was not written: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Errorf("image content = %q", data)
	}

	if _, err := st.GetBrief("s1"); err != nil {
		t.Errorf("brief was not persisted: %v", err)
	}
}

func TestGenerateImagesReusesPersistedBriefs(t *testing.T) {
	// No scripted responses: any generation call fails the test.
	gen := &scriptedGenerator{}
	srv, st := newTestServer(t, gen, &stubMedia{})
	seedCompany(t, st, "c1")

	saved := core.AssetBrief{
		ScriptID:    "s1",
		ImageBrief:  "persisted prompt",
		VideoBrief:  core.VideoBrief{Hook: "hook", CTA: "cta"},
		GeneratedAt: time.Now().UTC(),
	}
	if err := st.SaveBrief(saved, ""); err != nil {
		t.Fatalf("SaveBrief: %v", err)
	}

	outputDir := t.TempDir()
	rec := doJSON(t, srv, http.MethodPost, "/api/assets/generate-images",
		map[string]any{"company_id": "c1", "script_ids": []string{"s1"}, "output_dir": outputDir})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if gen.calls != 0 {
		t.Errorf("generation calls = %d, want 0 when the brief is persisted", gen.calls)
	}

	var resp struct {
		OutputDir string   `json:"output_dir"`
		Written   []string `json:"written"`
	}
	decodeBody(t, rec, &resp)
	if resp.OutputDir != outputDir {
		t.Errorf("output_dir = %q, want the requested %q", resp.OutputDir, outputDir)
	}
	if _, err := os.Stat(rundir.Open(outputDir).Path(rundir.ImageFile("s1"))); err != nil {
		t.Errorf("image was not written into the requested dir: %v", err)
	}
}

func TestGenerateImagesUnscoredScript(t *testing.T) {
	srv, st := newTestServer(t, &scriptedGenerator{}, &stubMedia{})
	seedCompany(t, st, "c1")

	now := time.Now().UTC()
	meta := core.PatchMetadata{PatchID: "patch-2", PersonaID: "p1", GeneratedAt: now}
	unscored := []core.Idea{{ScriptID: "s9", PatchID: "patch-2", PersonaID: "p1", Headline: "H", Body: "B", CTA: "C", CreatedAt: now}}
	if err := st.SavePatch(meta, unscored, ""); err != nil {
		t.Fatalf("SavePatch: %v", err)
	}

	rec := doJSON(t, srv, http.MethodPost, "/api/assets/generate-images",
		map[string]any{"company_id": "c1", "script_ids": []string{"s9"}})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for unscored script", rec.Code)
	}
}

func TestGenerateVideos(t *testing.T) {
	gen := &scriptedGenerator{responses: []*llm.Response{briefResponse("s1")}}
	srv, st := newTestServer(t, gen, &stubMedia{})
	seedCompany(t, st, "c1")

	rec := doJSON(t, srv, http.MethodPost, "/api/assets/generate-videos",
		map[string]any{"company_id": "c1", "script_ids": []string{"s1"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		OutputDir string   `json:"output_dir"`
		Written   []string `json:"written"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Written) != 1 || resp.Written[0] != "s1" {
		t.Fatalf("response = %+v", resp)
	}

	data, err := os.ReadFile(rundir.Open(resp.OutputDir).Path(rundir.VideoFile("s1")))
	if err != nil {
		t.Fatalf("video was not written: %v", err)
	}
	if string(data) != "video-bytes" {
		t.Errorf("video content = %q", data)
	}
}

func TestGenerateVideosPartialFailure(t *testing.T) {
	gen := &scriptedGenerator{responses: []*llm.Response{briefResponse("s1"), briefResponse("s2")}}
	srv, st := newTestServer(t, gen, &flakyVideoMedia{})
	seedCompany(t, st, "c1")

	rec := doJSON(t, srv, http.MethodPost, "/api/assets/generate-videos",
		map[string]any{"company_id": "c1", "script_ids": []string{"s1", "s2"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s; one failing script must not abort the batch", rec.Code, rec.Body.String())
	}

	var resp struct {
		OutputDir string   `json:"output_dir"`
		Written   []string `json:"written"`
		Failed    []string `json:"failed"`
	}
	decodeBody(t, rec, &resp)
	// Briefs render in ranked order, so s1 hits the failing first start.
	if len(resp.Written) != 1 || resp.Written[0] != "s2" {
		t.Errorf("written = %v, want [s2]", resp.Written)
	}
	if len(resp.Failed) != 1 || resp.Failed[0] != "s1" {
		t.Errorf("failed = %v, want [s1]", resp.Failed)
	}

	if _, err := os.Stat(rundir.Open(resp.OutputDir).Path(rundir.VideoFile("s2"))); err != nil {
		t.Errorf("surviving video was not written: %v", err)
	}
}

func TestGenerateVideosNoMediaPayload(t *testing.T) {
	gen := &scriptedGenerator{responses: []*llm.Response{briefResponse("s1")}}
	srv, st := newTestServer(t, gen, &stubMedia{noMedia: true})
	seedCompany(t, st, "c1")

	rec := doJSON(t, srv, http.MethodPost, "/api/assets/generate-videos",
		map[string]any{"company_id": "c1", "script_ids": []string{"s1"}})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502 when the provider returns no payload", rec.Code)
	}
}
