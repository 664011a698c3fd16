package configstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ferro-labs/llm-orchestration-gateway/internal/budget"
	"github.com/ferro-labs/llm-orchestration-gateway/internal/router"

	// Register Postgres SQL driver.
	_ "github.com/lib/pq"
	// Register SQLite SQL driver.
	_ "modernc.org/sqlite"
)

type sqlDialect string

const (
	dialectSQLite   sqlDialect = "sqlite"
	dialectPostgres sqlDialect = "postgres"
)

// entityKind names one of the document's top-level collections; each gets
// its own row-set in the config_entities table, keyed by (kind, entity_id).
type entityKind string

const (
	kindModel       entityKind = "model"
	kindRoutingRule entityKind = "routing_rule"
	kindABTest      entityKind = "ab_test"
	kindBudget      entityKind = "budget"
	kindUserTier    entityKind = "user_tier"
	kindCaching     entityKind = "caching_config"
	kindRateLimit   entityKind = "rate_limit_config"
)

// singleton config rows that aren't collections use this fixed entity id.
const singletonID = "_singleton"

// SQLStore persists a configstore.Document as one row per entity, dialect-
// switched between SQLite and Postgres the same way internal/admin's
// SQLConfigStore does, so a single admin mutation only rewrites the rows
// that changed instead of the whole document.
type SQLStore struct {
	db      *sql.DB
	dialect sqlDialect
}

// NewSQLiteStore opens (and migrates) a SQLite-backed configuration store.
func NewSQLiteStore(dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "ferrogw-configstore.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite configstore: %w", err)
	}
	s := &SQLStore{db: db, dialect: dialectSQLite}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore opens (and migrates) a Postgres-backed configuration store.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres configstore: %w", err)
	}
	s := &SQLStore{db: db, dialect: dialectPostgres}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("ping %s configstore: %w", s.dialect, err)
	}

	var ddl string
	switch s.dialect {
	case dialectPostgres:
		ddl = `
CREATE TABLE IF NOT EXISTS config_entities (
	kind TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	body_json TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (kind, entity_id)
);`
	default:
		ddl = `
CREATE TABLE IF NOT EXISTS config_entities (
	kind TEXT NOT NULL,
	entity_id TEXT NOT NULL,
	body_json TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL,
	PRIMARY KEY (kind, entity_id)
);`
	}

	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("initialize configstore schema: %w", err)
	}
	return nil
}

// bind rewrites "?" placeholders to "$N" for Postgres, matching
// internal/admin's SQLStore.bind.
func (s *SQLStore) bind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) upsert(kind entityKind, entityID string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s %s: %w", kind, entityID, err)
	}

	query := s.bind(`
INSERT INTO config_entities(kind, entity_id, body_json, updated_at)
VALUES(?, ?, ?, ?)
ON CONFLICT(kind, entity_id) DO UPDATE SET body_json = excluded.body_json, updated_at = excluded.updated_at`)
	if s.dialect == dialectPostgres {
		query = strings.Replace(query, "excluded.", "EXCLUDED.", -1)
	}

	if _, err := s.db.Exec(query, string(kind), entityID, string(body), time.Now().UTC()); err != nil {
		return fmt.Errorf("save %s %s: %w", kind, entityID, err)
	}
	return nil
}

func (s *SQLStore) deleteKind(kind entityKind) error {
	query := s.bind(`DELETE FROM config_entities WHERE kind = ?`)
	if _, err := s.db.Exec(query, string(kind)); err != nil {
		return fmt.Errorf("clear %s rows: %w", kind, err)
	}
	return nil
}

func (s *SQLStore) loadKind(kind entityKind, each func(body []byte) error) error {
	query := s.bind(`SELECT body_json FROM config_entities WHERE kind = ? ORDER BY entity_id`)
	rows, err := s.db.Query(query, string(kind))
	if err != nil {
		return fmt.Errorf("load %s rows: %w", kind, err)
	}
	defer rows.Close()

	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return fmt.Errorf("scan %s row: %w", kind, err)
		}
		if err := each([]byte(raw)); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Save replaces every row-set with doc's current contents. Collections are
// fully truncated and re-inserted; this keeps deletions (e.g. a removed
// routing rule) simple to express without tracking per-row diffs.
func (s *SQLStore) Save(doc Document) error {
	if err := s.replaceCollection(kindModel, len(doc.Models), func(i int) (string, any) {
		return doc.Models[i].ModelID, doc.Models[i]
	}); err != nil {
		return err
	}
	if err := s.replaceCollection(kindRoutingRule, len(doc.RoutingRules), func(i int) (string, any) {
		return doc.RoutingRules[i].RuleID, doc.RoutingRules[i]
	}); err != nil {
		return err
	}
	if err := s.replaceCollection(kindABTest, len(doc.ABTests), func(i int) (string, any) {
		return doc.ABTests[i].TestID, doc.ABTests[i]
	}); err != nil {
		return err
	}
	if err := s.replaceCollection(kindBudget, len(doc.Budgets), func(i int) (string, any) {
		return doc.Budgets[i].BudgetID, doc.Budgets[i]
	}); err != nil {
		return err
	}
	if err := s.replaceCollection(kindUserTier, len(doc.UserTiers), func(i int) (string, any) {
		return doc.UserTiers[i].TierID, doc.UserTiers[i]
	}); err != nil {
		return err
	}
	if err := s.upsert(kindCaching, singletonID, doc.Caching); err != nil {
		return err
	}
	if err := s.upsert(kindRateLimit, singletonID, doc.RateLimit); err != nil {
		return err
	}
	return nil
}

func (s *SQLStore) replaceCollection(kind entityKind, n int, at func(i int) (string, any)) error {
	if err := s.deleteKind(kind); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		id, v := at(i)
		if err := s.upsert(kind, id, v); err != nil {
			return err
		}
	}
	return nil
}

// Load hydrates a Document from every row-set. ok is false only when the
// table is entirely empty (first run, nothing persisted yet).
func (s *SQLStore) Load() (Document, bool, error) {
	var doc Document
	found := false

	if err := s.loadKind(kindModel, func(body []byte) error {
		found = true
		var m ModelConfig
		if err := json.Unmarshal(body, &m); err != nil {
			return err
		}
		doc.Models = append(doc.Models, m)
		return nil
	}); err != nil {
		return Document{}, false, err
	}
	if err := s.loadKind(kindRoutingRule, func(body []byte) error {
		found = true
		var r router.RoutingRule
		if err := json.Unmarshal(body, &r); err != nil {
			return err
		}
		doc.RoutingRules = append(doc.RoutingRules, r)
		return nil
	}); err != nil {
		return Document{}, false, err
	}
	if err := s.loadKind(kindABTest, func(body []byte) error {
		found = true
		var t router.ABTest
		if err := json.Unmarshal(body, &t); err != nil {
			return err
		}
		doc.ABTests = append(doc.ABTests, t)
		return nil
	}); err != nil {
		return Document{}, false, err
	}
	if err := s.loadKind(kindBudget, func(body []byte) error {
		found = true
		var b budget.Config
		if err := json.Unmarshal(body, &b); err != nil {
			return err
		}
		doc.Budgets = append(doc.Budgets, b)
		return nil
	}); err != nil {
		return Document{}, false, err
	}
	if err := s.loadKind(kindUserTier, func(body []byte) error {
		found = true
		var t UserTier
		if err := json.Unmarshal(body, &t); err != nil {
			return err
		}
		doc.UserTiers = append(doc.UserTiers, t)
		return nil
	}); err != nil {
		return Document{}, false, err
	}
	if err := s.loadKind(kindCaching, func(body []byte) error {
		found = true
		return json.Unmarshal(body, &doc.Caching)
	}); err != nil {
		return Document{}, false, err
	}
	if err := s.loadKind(kindRateLimit, func(body []byte) error {
		found = true
		return json.Unmarshal(body, &doc.RateLimit)
	}); err != nil {
		return Document{}, false, err
	}

	return doc, found, nil
}

// Close releases the underlying *sql.DB.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
