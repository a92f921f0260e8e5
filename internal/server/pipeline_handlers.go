package server

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"adforge/internal/core"
	"adforge/internal/llm"
	"adforge/internal/pipeline"
	"adforge/internal/prompts"
	"adforge/internal/rundir"
	"adforge/internal/store"

	"github.com/google/uuid"
)

// handleIngest runs the context stage: scrape the URL (best effort) and
// extract the brand context. POST /api/ingest {url, uvp}.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
		UVP string `json:"uvp"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.URL == "" || req.UVP == "" {
		s.respondError(w, http.StatusBadRequest, "url and uvp are required")
		return
	}

	result, err := pipeline.GenerateCompanyContext(r.Context(), s.client, s.sampler, pipeline.ContextOptions{
		CompanyID:  uuid.NewString(),
		URL:        req.URL,
		UVP:        req.UVP,
		Model:      s.cfg.AI.Gemini.TextModel,
		MaxRetries: s.cfg.AI.Gemini.MaxRetries,
	})
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}
	if err := s.store.SaveCompanyContext(result.Context, result.RawText); err != nil {
		s.respondPipelineError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, result.Context)
}

// handleGeneratePersonas generates the persona candidates for an ingested
// company. POST /api/personas/generate {company_id}.
func (s *Server) handleGeneratePersonas(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyID string `json:"company_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CompanyID == "" {
		s.respondError(w, http.StatusBadRequest, "company_id is required")
		return
	}

	companyContext, err := s.store.GetCompanyContext(req.CompanyID)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}

	result, err := pipeline.GeneratePersonas(r.Context(), s.client, pipeline.PersonaOptions{
		Context:    *companyContext,
		Count:      s.cfg.Pipeline.PersonaCount,
		Model:      s.cfg.AI.Gemini.TextModel,
		MaxRetries: s.cfg.AI.Gemini.MaxRetries,
	})
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}
	if err := s.store.SavePersonas(req.CompanyID, result.Personas); err != nil {
		s.respondPipelineError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"personas": result.Personas})
}

// handleSelectPersona records the anchor persona choice.
// POST /api/personas/select {company_id, index}.
func (s *Server) handleSelectPersona(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyID string `json:"company_id"`
		Index     int    `json:"index"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CompanyID == "" {
		s.respondError(w, http.StatusBadRequest, "company_id is required")
		return
	}

	personas, err := s.store.GetPersonas(req.CompanyID)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}
	if req.Index < 0 || req.Index >= len(personas) {
		s.respondError(w, http.StatusBadRequest,
			fmt.Sprintf("index %d out of range (have %d personas)", req.Index, len(personas)))
		return
	}

	anchor := personas[req.Index]
	if err := s.store.SetAnchorPersona(req.CompanyID, anchor.PersonaID); err != nil {
		s.respondPipelineError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, anchor)
}

// handleGenerateScripts runs idea batches for the company's anchor persona.
// POST /api/scripts/generate {company_id, batches}; batches defaults to the
// configured patch count.
func (s *Server) handleGenerateScripts(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyID string `json:"company_id"`
		Batches   int    `json:"batches"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CompanyID == "" {
		s.respondError(w, http.StatusBadRequest, "company_id is required")
		return
	}
	if req.Batches <= 0 {
		req.Batches = s.cfg.Pipeline.PatchCount
	}

	companyContext, err := s.store.GetCompanyContext(req.CompanyID)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}
	anchor, err := s.store.GetAnchorPersona(req.CompanyID)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}

	var ideas []core.Idea
	for i := 0; i < req.Batches; i++ {
		patch, err := pipeline.GeneratePatch(r.Context(), s.client, pipeline.PatchOptions{
			Context:       *companyContext,
			Persona:       *anchor,
			Seed:          prompts.SeedForBatch(i),
			Temperature:   prompts.TemperatureForBatch(s.cfg.Pipeline.Temperatures, i),
			BatchIndex:    i,
			IdeasPerPatch: s.cfg.Pipeline.IdeasPerPatch,
			Model:         s.cfg.AI.Gemini.TextModel,
			MaxRetries:    s.cfg.AI.Gemini.MaxRetries,
		})
		if err != nil {
			s.respondPipelineError(w, err)
			return
		}
		if err := s.store.SavePatch(patch.Metadata, patch.Ideas, patch.RawText); err != nil {
			s.respondPipelineError(w, err)
			return
		}
		ideas = append(ideas, patch.Ideas...)
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"ideas": ideas})
}

// handleCalculateScores scores scripts against the company's anchor persona.
// POST /api/scores/calculate {company_id, script_ids}; omitting script_ids
// scores every idea generated for the anchor.
func (s *Server) handleCalculateScores(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CompanyID string   `json:"company_id"`
		ScriptIDs []string `json:"script_ids"`
	}
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CompanyID == "" {
		s.respondError(w, http.StatusBadRequest, "company_id is required")
		return
	}

	companyContext, err := s.store.GetCompanyContext(req.CompanyID)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}
	anchor, err := s.store.GetAnchorPersona(req.CompanyID)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}

	var ideas []core.Idea
	if len(req.ScriptIDs) > 0 {
		ideas, err = s.store.ListIdeasByScriptIDs(req.ScriptIDs)
	} else {
		ideas, err = s.store.ListIdeasByPersona(anchor.PersonaID)
	}
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}

	llmWeight, trendWeight, viralWeight := s.cfg.Scoring.Weights()
	scores, err := pipeline.ScoreAll(r.Context(), s.client, s.trends, pipeline.ScoringOptions{
		Ideas:            ideas,
		Persona:          *anchor,
		Context:          *companyContext,
		Model:            s.cfg.AI.Gemini.TextModel,
		Weights:          pipeline.Weights{LLM: llmWeight, Trend: trendWeight, Viral: viralWeight},
		PredictiveBatch:  s.cfg.Scoring.PredictiveBatchSize,
		ViralBatch:       s.cfg.Scoring.ViralBatchSize,
		TrendConcurrency: s.cfg.Trends.Concurrency,
		MaxRetries:       s.cfg.AI.Gemini.MaxRetries,
	})
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}
	if err := s.store.SaveScores(scores); err != nil {
		s.respondPipelineError(w, err)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{"scores": scores})
}

// assetRequest names the scripts to render media for. OutputDir optionally
// reuses an existing run directory so images and videos for the same request
// land together.
type assetRequest struct {
	CompanyID string   `json:"company_id"`
	ScriptIDs []string `json:"script_ids"`
	OutputDir string   `json:"output_dir"`
}

// assetRunDir opens the requested run directory, or creates a fresh one when
// the request does not name one.
func (s *Server) assetRunDir(req assetRequest) (*rundir.RunDir, error) {
	if req.OutputDir != "" {
		return rundir.Open(req.OutputDir), nil
	}
	return rundir.New(s.cfg.Output.Directory, req.CompanyID)
}

// loadAssetInputs resolves an asset request into briefs: persisted briefs are
// reused, only scripts without one get a generation call.
func (s *Server) loadAssetInputs(r *http.Request, req assetRequest) ([]core.AssetBrief, error) {
	companyContext, err := s.store.GetCompanyContext(req.CompanyID)
	if err != nil {
		return nil, err
	}
	anchor, err := s.store.GetAnchorPersona(req.CompanyID)
	if err != nil {
		return nil, err
	}
	ideas, err := s.store.ListIdeasByScriptIDs(req.ScriptIDs)
	if err != nil {
		return nil, err
	}

	scores := make([]core.IdeaScore, 0, len(ideas))
	briefsByID := make(map[string]core.AssetBrief, len(ideas))
	missingIdeas := make([]core.Idea, 0, len(ideas))
	missingScores := make([]core.IdeaScore, 0, len(ideas))
	for _, idea := range ideas {
		score, err := s.store.GetScore(idea.ScriptID)
		if err != nil {
			return nil, err
		}
		scores = append(scores, *score)

		brief, err := s.store.GetBrief(idea.ScriptID)
		switch {
		case err == nil:
			briefsByID[idea.ScriptID] = *brief
		case errors.Is(err, store.ErrNotFound):
			missingIdeas = append(missingIdeas, idea)
			missingScores = append(missingScores, *score)
		default:
			return nil, err
		}
	}

	if len(missingIdeas) > 0 {
		generated, err := pipeline.GenerateBriefs(r.Context(), s.client, pipeline.AssetOptions{
			Scores:       missingScores,
			Ideas:        missingIdeas,
			Persona:      *anchor,
			Context:      *companyContext,
			TextModel:    s.cfg.AI.Gemini.TextModel,
			TopIdeaCount: len(missingIdeas),
			MaxRetries:   s.cfg.AI.Gemini.MaxRetries,
		})
		if err != nil {
			return nil, err
		}
		for _, brief := range generated {
			if err := s.store.SaveBrief(brief, ""); err != nil {
				return nil, err
			}
			briefsByID[brief.ScriptID] = brief
		}
	}

	// Ranked order over the whole request, reused and generated alike.
	briefs := make([]core.AssetBrief, 0, len(briefsByID))
	for _, score := range pipeline.RankByFinalScore(scores) {
		if brief, ok := briefsByID[score.ScriptID]; ok {
			briefs = append(briefs, brief)
		}
	}
	return briefs, nil
}

// handleGenerateImages generates briefs and images for the named scripts.
// POST /api/assets/generate-images {company_id, script_ids}.
func (s *Server) handleGenerateImages(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CompanyID == "" || len(req.ScriptIDs) == 0 {
		s.respondError(w, http.StatusBadRequest, "company_id and script_ids are required")
		return
	}

	briefs, err := s.loadAssetInputs(r, req)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}

	dir, err := s.assetRunDir(req)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}
	written, failed := pipeline.GenerateImages(r.Context(), s.media, dir, s.cfg.AI.Gemini.ImageModel, briefs)

	s.respondJSON(w, http.StatusOK, map[string]any{
		"output_dir": dir.Root(),
		"written":    written,
		"failed":     failed,
	})
}

// handleGenerateVideos generates briefs and videos for the named scripts,
// strictly one video at a time. Per-script failures are logged, counted and
// skipped; the error mapping (502 no payload, 504 poll timeout) applies only
// when no script succeeds. POST /api/assets/generate-videos
// {company_id, script_ids}.
func (s *Server) handleGenerateVideos(w http.ResponseWriter, r *http.Request) {
	var req assetRequest
	if err := decodeJSON(r, &req); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.CompanyID == "" || len(req.ScriptIDs) == 0 {
		s.respondError(w, http.StatusBadRequest, "company_id and script_ids are required")
		return
	}

	briefs, err := s.loadAssetInputs(r, req)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}

	dir, err := s.assetRunDir(req)
	if err != nil {
		s.respondPipelineError(w, err)
		return
	}

	opts := pipeline.AssetOptions{
		VideoModel:   s.cfg.AI.Gemini.VideoModel,
		VideoSeconds: s.cfg.Media.VideoSeconds,
		VideoDelay:   s.cfg.Media.VideoDelay,
	}
	poller := llm.NewPoller(s.media, s.cfg.Media.PollInterval, s.cfg.Media.PollMaxAttempts)

	written := make([]string, 0, len(briefs))
	failed := make([]string, 0)
	var firstErr error
	for i, brief := range briefs {
		if i > 0 && opts.VideoDelay > 0 {
			select {
			case <-r.Context().Done():
				s.respondPipelineError(w, r.Context().Err())
				return
			case <-time.After(opts.VideoDelay):
			}
		}
		if err := pipeline.RenderVideo(r.Context(), s.media, poller, dir, opts, brief); err != nil {
			s.log.Warn("Video generation failed", "script_id", brief.ScriptID, "error", err.Error())
			failed = append(failed, brief.ScriptID)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		written = append(written, brief.ScriptID)
	}

	if len(written) == 0 && firstErr != nil {
		s.respondPipelineError(w, firstErr)
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]any{
		"output_dir": dir.Root(),
		"written":    written,
		"failed":     failed,
	})
}
