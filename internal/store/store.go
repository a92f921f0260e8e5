// Package store persists pipeline records in SQLite. Structured fields are
// stored as JSON text columns; every stage writes its output here before the
// next stage starts, which is what makes runs replayable.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"adforge/internal/core"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the SQLite-backed record store.
type Store struct {
	db   *sql.DB
	path string
}

// New creates a store instance, creating the data directory and schema as
// needed.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "adforge.db")
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initialize(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) initialize() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS companies (
			company_id TEXT PRIMARY KEY,
			url TEXT,
			uvp TEXT,
			context TEXT,
			raw_response TEXT,
			anchor_persona_id TEXT,
			generated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS personas (
			persona_id TEXT PRIMARY KEY,
			company_id TEXT,
			persona TEXT,
			position INTEGER,
			FOREIGN KEY (company_id) REFERENCES companies (company_id)
		);`,
		`CREATE TABLE IF NOT EXISTS patches (
			patch_id TEXT PRIMARY KEY,
			persona_id TEXT,
			metadata TEXT,
			raw_response TEXT,
			generated_at DATETIME
		);`,
		`CREATE TABLE IF NOT EXISTS ideas (
			script_id TEXT PRIMARY KEY,
			patch_id TEXT,
			persona_id TEXT,
			idea TEXT,
			created_at DATETIME,
			FOREIGN KEY (patch_id) REFERENCES patches (patch_id)
		);`,
		`CREATE TABLE IF NOT EXISTS scores (
			script_id TEXT PRIMARY KEY,
			score TEXT,
			scored_at DATETIME,
			FOREIGN KEY (script_id) REFERENCES ideas (script_id)
		);`,
		`CREATE TABLE IF NOT EXISTS briefs (
			script_id TEXT PRIMARY KEY,
			brief TEXT,
			raw_response TEXT,
			generated_at DATETIME,
			FOREIGN KEY (script_id) REFERENCES ideas (script_id)
		);`,
		`CREATE TABLE IF NOT EXISTS experiments (
			experiment_id TEXT PRIMARY KEY,
			manifest TEXT,
			started_at DATETIME,
			completed_at DATETIME
		);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// SaveCompanyContext stores a company context together with the raw model
// response for audit.
func (s *Store) SaveCompanyContext(context core.CompanyContext, rawResponse string) error {
	payload, err := json.Marshal(context)
	if err != nil {
		return fmt.Errorf("failed to marshal company context: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO companies (company_id, url, uvp, context, raw_response, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		context.CompanyID, context.URL, context.UVP, string(payload), rawResponse, context.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save company context: %w", err)
	}
	return nil
}

// GetCompanyContext loads a company context by id.
func (s *Store) GetCompanyContext(companyID string) (*core.CompanyContext, error) {
	var payload string
	err := s.db.QueryRow(`SELECT context FROM companies WHERE company_id = ?`, companyID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("company %s: %w", companyID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load company context: %w", err)
	}

	var context core.CompanyContext
	if err := json.Unmarshal([]byte(payload), &context); err != nil {
		return nil, fmt.Errorf("failed to unmarshal company context: %w", err)
	}
	return &context, nil
}

// SavePersonas replaces the persona set for a company.
func (s *Store) SavePersonas(companyID string, personas []core.Persona) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM personas WHERE company_id = ?`, companyID); err != nil {
		return fmt.Errorf("failed to clear personas: %w", err)
	}

	for i, persona := range personas {
		payload, err := json.Marshal(persona)
		if err != nil {
			return fmt.Errorf("failed to marshal persona: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT INTO personas (persona_id, company_id, persona, position) VALUES (?, ?, ?, ?)`,
			persona.PersonaID, companyID, string(payload), i,
		); err != nil {
			return fmt.Errorf("failed to save persona: %w", err)
		}
	}
	return tx.Commit()
}

// GetPersonas loads a company's personas in generation order.
func (s *Store) GetPersonas(companyID string) ([]core.Persona, error) {
	rows, err := s.db.Query(
		`SELECT persona FROM personas WHERE company_id = ? ORDER BY position`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load personas: %w", err)
	}
	defer rows.Close()

	var personas []core.Persona
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan persona: %w", err)
		}
		var persona core.Persona
		if err := json.Unmarshal([]byte(payload), &persona); err != nil {
			return nil, fmt.Errorf("failed to unmarshal persona: %w", err)
		}
		personas = append(personas, persona)
	}
	return personas, rows.Err()
}

// GetPersona loads a single persona by id.
func (s *Store) GetPersona(personaID string) (*core.Persona, error) {
	var payload string
	err := s.db.QueryRow(`SELECT persona FROM personas WHERE persona_id = ?`, personaID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("persona %s: %w", personaID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load persona: %w", err)
	}

	var persona core.Persona
	if err := json.Unmarshal([]byte(payload), &persona); err != nil {
		return nil, fmt.Errorf("failed to unmarshal persona: %w", err)
	}
	return &persona, nil
}

// SetAnchorPersona records the selected anchor persona for a company.
func (s *Store) SetAnchorPersona(companyID, personaID string) error {
	result, err := s.db.Exec(
		`UPDATE companies SET anchor_persona_id = ? WHERE company_id = ?`, personaID, companyID)
	if err != nil {
		return fmt.Errorf("failed to set anchor persona: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check anchor update: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("company %s: %w", companyID, ErrNotFound)
	}
	return nil
}

// GetAnchorPersona loads the anchor persona recorded for a company.
// ErrNotFound covers both an unknown company and a company with no anchor set.
func (s *Store) GetAnchorPersona(companyID string) (*core.Persona, error) {
	var personaID sql.NullString
	err := s.db.QueryRow(
		`SELECT anchor_persona_id FROM companies WHERE company_id = ?`, companyID).Scan(&personaID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("company %s: %w", companyID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load anchor persona: %w", err)
	}
	if !personaID.Valid || personaID.String == "" {
		return nil, fmt.Errorf("company %s has no anchor persona: %w", companyID, ErrNotFound)
	}
	return s.GetPersona(personaID.String)
}

// SavePatch stores one batch's metadata and all its ideas atomically.
func (s *Store) SavePatch(metadata core.PatchMetadata, ideas []core.Idea, rawResponse string) error {
	metaPayload, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal patch metadata: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(
		`INSERT OR REPLACE INTO patches (patch_id, persona_id, metadata, raw_response, generated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		metadata.PatchID, metadata.PersonaID, string(metaPayload), rawResponse, metadata.GeneratedAt,
	); err != nil {
		return fmt.Errorf("failed to save patch: %w", err)
	}

	for _, idea := range ideas {
		ideaPayload, err := json.Marshal(idea)
		if err != nil {
			return fmt.Errorf("failed to marshal idea: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO ideas (script_id, patch_id, persona_id, idea, created_at)
			 VALUES (?, ?, ?, ?, ?)`,
			idea.ScriptID, idea.PatchID, idea.PersonaID, string(ideaPayload), idea.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to save idea: %w", err)
		}
	}
	return tx.Commit()
}

// GetIdea loads one idea by script id.
func (s *Store) GetIdea(scriptID string) (*core.Idea, error) {
	var payload string
	err := s.db.QueryRow(`SELECT idea FROM ideas WHERE script_id = ?`, scriptID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("idea %s: %w", scriptID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load idea: %w", err)
	}

	var idea core.Idea
	if err := json.Unmarshal([]byte(payload), &idea); err != nil {
		return nil, fmt.Errorf("failed to unmarshal idea: %w", err)
	}
	return &idea, nil
}

// ListIdeasByPersona loads all ideas generated for a persona in creation order.
func (s *Store) ListIdeasByPersona(personaID string) ([]core.Idea, error) {
	rows, err := s.db.Query(
		`SELECT idea FROM ideas WHERE persona_id = ? ORDER BY created_at, script_id`, personaID)
	if err != nil {
		return nil, fmt.Errorf("failed to list ideas: %w", err)
	}
	defer rows.Close()

	return scanIdeas(rows)
}

// ListIdeasByScriptIDs loads the named ideas, preserving the requested order.
// A missing script id yields ErrNotFound.
func (s *Store) ListIdeasByScriptIDs(scriptIDs []string) ([]core.Idea, error) {
	ideas := make([]core.Idea, 0, len(scriptIDs))
	for _, scriptID := range scriptIDs {
		idea, err := s.GetIdea(scriptID)
		if err != nil {
			return nil, err
		}
		ideas = append(ideas, *idea)
	}
	return ideas, nil
}

func scanIdeas(rows *sql.Rows) ([]core.Idea, error) {
	var ideas []core.Idea
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan idea: %w", err)
		}
		var idea core.Idea
		if err := json.Unmarshal([]byte(payload), &idea); err != nil {
			return nil, fmt.Errorf("failed to unmarshal idea: %w", err)
		}
		ideas = append(ideas, idea)
	}
	return ideas, rows.Err()
}

// SaveScores upserts one score per idea; rescoring overwrites.
func (s *Store) SaveScores(scores []core.IdeaScore) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, score := range scores {
		payload, err := json.Marshal(score)
		if err != nil {
			return fmt.Errorf("failed to marshal score: %w", err)
		}
		if _, err := tx.Exec(
			`INSERT OR REPLACE INTO scores (script_id, score, scored_at) VALUES (?, ?, ?)`,
			score.ScriptID, string(payload), score.ScoredAt,
		); err != nil {
			return fmt.Errorf("failed to save score: %w", err)
		}
	}
	return tx.Commit()
}

// GetScore loads the score for one idea.
func (s *Store) GetScore(scriptID string) (*core.IdeaScore, error) {
	var payload string
	err := s.db.QueryRow(`SELECT score FROM scores WHERE script_id = ?`, scriptID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("score for %s: %w", scriptID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load score: %w", err)
	}

	var score core.IdeaScore
	if err := json.Unmarshal([]byte(payload), &score); err != nil {
		return nil, fmt.Errorf("failed to unmarshal score: %w", err)
	}
	return &score, nil
}

// SaveBrief stores an asset brief with its raw model response.
func (s *Store) SaveBrief(brief core.AssetBrief, rawResponse string) error {
	payload, err := json.Marshal(brief)
	if err != nil {
		return fmt.Errorf("failed to marshal brief: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO briefs (script_id, brief, raw_response, generated_at)
		 VALUES (?, ?, ?, ?)`,
		brief.ScriptID, string(payload), rawResponse, brief.GeneratedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save brief: %w", err)
	}
	return nil
}

// GetBrief loads the asset brief for one idea.
func (s *Store) GetBrief(scriptID string) (*core.AssetBrief, error) {
	var payload string
	err := s.db.QueryRow(`SELECT brief FROM briefs WHERE script_id = ?`, scriptID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("brief for %s: %w", scriptID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load brief: %w", err)
	}

	var brief core.AssetBrief
	if err := json.Unmarshal([]byte(payload), &brief); err != nil {
		return nil, fmt.Errorf("failed to unmarshal brief: %w", err)
	}
	return &brief, nil
}

// SaveExperiment stores the run manifest.
func (s *Store) SaveExperiment(experiment core.Experiment) error {
	payload, err := json.Marshal(experiment)
	if err != nil {
		return fmt.Errorf("failed to marshal experiment: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO experiments (experiment_id, manifest, started_at, completed_at)
		 VALUES (?, ?, ?, ?)`,
		experiment.ExperimentID, string(payload), experiment.StartedAt, experiment.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save experiment: %w", err)
	}
	return nil
}
