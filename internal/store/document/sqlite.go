package document

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"bioterms/internal/logging"
	"bioterms/internal/model"
)

// SQLiteStore is the embedded-relational fallback Store: one shared
// concepts table keyed by (prefix, concept_id) with the search text as a
// column, plus a shared concept_ngrams sidecar table; no prefix gets a
// table of its own. Modeled after the teacher's
// NewLocalStore connection-setup discipline: a single shared *sql.DB with
// WAL journaling and a serializing mutex around writes.
type SQLiteStore struct {
	db      *sql.DB
	mu      sync.Mutex
	workers int
}

// NewSQLiteStore opens (creating if absent) the sqlite document store at
// path, applying the same pragmas the teacher's LocalStore uses: WAL
// journal mode, a 5s busy timeout, and NORMAL synchronous durability.
func NewSQLiteStore(path string, workers int) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create document store directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, model.NewError(model.ErrTransientStore, "failed to open document store", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("failed to apply pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db, workers: workers}
	if err := s.initialize(); err != nil {
		return nil, err
	}
	logging.DocStore("sqlite document store opened at %s", path)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS concepts (
			prefix TEXT NOT NULL,
			concept_id TEXT NOT NULL,
			concept_types TEXT,
			label TEXT,
			synonyms TEXT,
			definition TEXT,
			comment TEXT,
			status TEXT NOT NULL,
			vector_id TEXT,
			search_text TEXT,
			extra TEXT,
			PRIMARY KEY (prefix, concept_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_concepts_prefix ON concepts(prefix)`,
		`CREATE INDEX IF NOT EXISTS idx_concepts_label ON concepts(prefix, label)`,
		`CREATE TABLE IF NOT EXISTS concept_ngrams (
			prefix TEXT NOT NULL,
			concept_id TEXT NOT NULL,
			ngram TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_ngrams_lookup ON concept_ngrams(prefix, ngram)`,
		`CREATE INDEX IF NOT EXISTS idx_ngrams_concept ON concept_ngrams(prefix, concept_id)`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS api_keys (
			user_id TEXT NOT NULL,
			label TEXT NOT NULL,
			hash_hex TEXT NOT NULL UNIQUE,
			revoked INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_api_keys_hash ON api_keys(hash_hex)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize document store schema: %w", err)
		}
	}
	return nil
}

// CreateIndex is a no-op for the sqlite backend: all indices are created
// eagerly at initialize() time and are prefix-agnostic,
// so overwrite=false never conflicts here.
func (s *SQLiteStore) CreateIndex(ctx context.Context, prefix model.Prefix, field string, unique bool, overwrite bool) error {
	logging.DocStoreDebug("CreateIndex no-op for sqlite backend: prefix=%s field=%s", prefix, field)
	return nil
}

func (s *SQLiteStore) SaveTerms(ctx context.Context, terms []*model.Concept) error {
	if len(terms) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	conceptIDs := make([]string, len(terms))
	labels := make([]string, len(terms))
	synonyms := make([][]string, len(terms))
	for i, t := range terms {
		conceptIDs[i] = t.ConceptID
		labels[i] = t.Label
		synonyms[i] = t.Synonyms
	}
	nGramSets, searchTexts := indexTerms(s.workers, conceptIDs, labels, synonyms)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.NewError(model.ErrTransientStore, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	upsertStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO concepts (prefix, concept_id, concept_types, label, synonyms, definition, comment, status, vector_id, search_text, extra)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(prefix, concept_id) DO UPDATE SET
			concept_types=excluded.concept_types, label=excluded.label, synonyms=excluded.synonyms,
			definition=excluded.definition, comment=excluded.comment, status=excluded.status,
			vector_id=excluded.vector_id, search_text=excluded.search_text, extra=excluded.extra
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare concept upsert: %w", err)
	}
	defer upsertStmt.Close()

	delNGramStmt, err := tx.PrepareContext(ctx, `DELETE FROM concept_ngrams WHERE prefix=? AND concept_id=?`)
	if err != nil {
		return fmt.Errorf("failed to prepare ngram delete: %w", err)
	}
	defer delNGramStmt.Close()

	insNGramStmt, err := tx.PrepareContext(ctx, `INSERT INTO concept_ngrams (prefix, concept_id, ngram) VALUES (?,?,?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare ngram insert: %w", err)
	}
	defer insNGramStmt.Close()

	var failed int
	for i, t := range terms {
		typesJSON, _ := json.Marshal(t.ConceptTypes)
		synJSON, _ := json.Marshal(t.Synonyms)
		extraJSON, _ := json.Marshal(t.Extra)

		if _, err := upsertStmt.ExecContext(ctx, string(t.Prefix), t.ConceptID, string(typesJSON), t.Label,
			string(synJSON), t.Definition, t.Comment, string(t.Status), t.VectorID, searchTexts[i], string(extraJSON)); err != nil {
			logging.DocStoreDebug("SaveTerms: record %s/%s failed: %v", t.Prefix, t.ConceptID, err)
			failed++
			continue
		}

		if _, err := delNGramStmt.ExecContext(ctx, string(t.Prefix), t.ConceptID); err != nil {
			return fmt.Errorf("failed to clear old ngrams: %w", err)
		}
		for _, g := range nGramSets[i] {
			if _, err := insNGramStmt.ExecContext(ctx, string(t.Prefix), t.ConceptID, g); err != nil {
				return fmt.Errorf("failed to insert ngram: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return model.NewError(model.ErrTransientStore, "failed to commit term batch", err)
	}
	if failed > 0 {
		logging.DocStore("SaveTerms: %d/%d records failed within batch", failed, len(terms))
	}
	return nil
}

func (s *SQLiteStore) CountTerms(ctx context.Context, prefix model.Prefix) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM concepts WHERE prefix=?`, string(prefix)).Scan(&n)
	return n, err
}

func (s *SQLiteStore) DeleteAllForLabel(ctx context.Context, prefix model.Prefix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM concepts WHERE prefix=?`, string(prefix)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM concept_ngrams WHERE prefix=?`, string(prefix)); err != nil {
		return err
	}
	return tx.Commit()
}

func rowToConcept(rowPrefix, conceptID, typesJSON, label, synJSON, definition, comment, status, vectorID, extraJSON sql.NullString) *model.Concept {
	c := &model.Concept{
		Prefix:     model.Prefix(rowPrefix.String),
		ConceptID:  conceptID.String,
		Label:      label.String,
		Definition: definition.String,
		Comment:    comment.String,
		Status:     model.Status(status.String),
		VectorID:   vectorID.String,
	}
	if typesJSON.Valid {
		_ = json.Unmarshal([]byte(typesJSON.String), &c.ConceptTypes)
	}
	if synJSON.Valid {
		_ = json.Unmarshal([]byte(synJSON.String), &c.Synonyms)
	}
	if extraJSON.Valid && extraJSON.String != "" && extraJSON.String != "null" {
		var extra model.ConceptExtra
		if err := json.Unmarshal([]byte(extraJSON.String), &extra); err == nil {
			c.Extra = &extra
		}
	}
	return c
}

type sqlRowsIterator struct {
	rows *sql.Rows
}

func (it *sqlRowsIterator) Next(ctx context.Context) (*model.Concept, bool, error) {
	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	var prefix, conceptID, types, label, syn, def, comment, status, vectorID, extra sql.NullString
	if err := it.rows.Scan(&prefix, &conceptID, &types, &label, &syn, &def, &comment, &status, &vectorID, &extra); err != nil {
		return nil, false, err
	}
	return rowToConcept(prefix, conceptID, types, label, syn, def, comment, status, vectorID, extra), true, nil
}

func (it *sqlRowsIterator) Close() error { return it.rows.Close() }

const conceptSelectColumns = `prefix, concept_id, concept_types, label, synonyms, definition, comment, status, vector_id, extra`

func (s *SQLiteStore) GetTermsIter(ctx context.Context, prefix model.Prefix, limit int) (ConceptIterator, error) {
	query := fmt.Sprintf(`SELECT %s FROM concepts WHERE prefix=?`, conceptSelectColumns)
	args := []interface{}{string(prefix)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRowsIterator{rows: rows}, nil
}

func (s *SQLiteStore) GetTermsByIDsIter(ctx context.Context, prefix model.Prefix, ids []string) (ConceptIterator, error) {
	if len(ids) == 0 {
		return &sqlRowsIterator{rows: nil}, nil
	}
	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(`SELECT %s FROM concepts WHERE prefix=? AND concept_id IN (%s)`, conceptSelectColumns, placeholders)
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, string(prefix))
	for _, id := range ids {
		args = append(args, id)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return &sqlRowsIterator{rows: rows}, nil
}

// autoCompleteRow is an intermediate result used to implement the total
// ordering from the auto-complete contract before streaming concepts out.
type autoCompleteRow struct {
	conceptID     string
	positionScore int
	labelLength   int
}

// AutoCompleteIter implements the auto-complete query: n-gram superset
// match in SQL, then (positionScore, labelLength, conceptId) ordering
// computed in Go because SQLite has no indexOf() builtin usable here.
func (s *SQLiteStore) AutoCompleteIter(ctx context.Context, prefix model.Prefix, query string, limit int) (ConceptIterator, error) {
	normalized := stripPunctuation(strings.ToLower(query))
	tokens := make([]string, 0)
	for _, t := range strings.Fields(normalized) {
		if len(t) >= 3 {
			tokens = append(tokens, t)
		}
	}
	scoreQuery := strings.Join(strings.Fields(normalized), "")

	if len(tokens) == 0 {
		return &sliceIterator{}, nil
	}

	// Candidates whose n-gram set is a superset of tokens: a concept id
	// qualifies only if it has a matching ngram row for every token.
	placeholders := strings.Repeat("?,", len(tokens))
	placeholders = placeholders[:len(placeholders)-1]
	candidateQuery := fmt.Sprintf(`
		SELECT concept_id FROM concept_ngrams
		WHERE prefix=? AND ngram IN (%s)
		GROUP BY concept_id
		HAVING COUNT(DISTINCT ngram) = ?
	`, placeholders)
	args := make([]interface{}, 0, len(tokens)+2)
	args = append(args, string(prefix))
	for _, t := range tokens {
		args = append(args, t)
	}
	args = append(args, len(tokens))

	rows, err := s.db.QueryContext(ctx, candidateQuery, args...)
	if err != nil {
		return nil, err
	}
	var candidateIDs []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		candidateIDs = append(candidateIDs, id)
	}
	rows.Close()

	if len(candidateIDs) == 0 {
		return &sliceIterator{}, nil
	}

	concepts := make(map[string]*model.Concept, len(candidateIDs))
	searchTexts := make(map[string]string, len(candidateIDs))

	idPlaceholders := strings.Repeat("?,", len(candidateIDs))
	idPlaceholders = idPlaceholders[:len(idPlaceholders)-1]
	detailQuery := fmt.Sprintf(`SELECT %s, search_text FROM concepts WHERE prefix=? AND concept_id IN (%s)`, conceptSelectColumns, idPlaceholders)
	detailArgs := make([]interface{}, 0, len(candidateIDs)+1)
	detailArgs = append(detailArgs, string(prefix))
	for _, id := range candidateIDs {
		detailArgs = append(detailArgs, id)
	}
	detailRows, err := s.db.QueryContext(ctx, detailQuery, detailArgs...)
	if err != nil {
		return nil, err
	}
	for detailRows.Next() {
		var p, cid, types, label, syn, def, comment, status, vectorID, extra, searchText sql.NullString
		if err := detailRows.Scan(&p, &cid, &types, &label, &syn, &def, &comment, &status, &vectorID, &extra, &searchText); err != nil {
			detailRows.Close()
			return nil, err
		}
		c := rowToConcept(p, cid, types, label, syn, def, comment, status, vectorID, extra)
		concepts[cid.String] = c
		searchTexts[cid.String] = searchText.String
	}
	detailRows.Close()

	ranked := make([]autoCompleteRow, 0, len(concepts))
	for id, c := range concepts {
		pos := strings.Index(searchTexts[id], scoreQuery)
		labelLen := len(c.Label)
		if labelLen == 0 {
			labelLen = 999
		}
		ranked = append(ranked, autoCompleteRow{conceptID: id, positionScore: pos, labelLength: labelLen})
	}

	sortAutoCompleteRows(ranked)

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]*model.Concept, len(ranked))
	for i, r := range ranked {
		results[i] = concepts[r.conceptID]
	}
	return &sliceIterator{items: results}, nil
}

type sliceIterator struct {
	items []*model.Concept
	pos   int
}

func (it *sliceIterator) Next(ctx context.Context) (*model.Concept, bool, error) {
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	default:
	}
	if it.pos >= len(it.items) {
		return nil, false, nil
	}
	c := it.items[it.pos]
	it.pos++
	return c, true, nil
}

func (it *sliceIterator) Close() error { return nil }

func (s *SQLiteStore) UpdateVectorMapping(ctx context.Context, prefix model.Prefix, mapping map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, `UPDATE concepts SET vector_id=? WHERE prefix=? AND concept_id=?`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for conceptID, vectorID := range mapping {
		if _, err := stmt.ExecContext(ctx, vectorID, string(prefix), conceptID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteStore) Users() UserRepository { return &sqliteUserRepo{db: s.db, mu: &s.mu} }

func (s *SQLiteStore) Close() error { return s.db.Close() }

// HashAPIKey is the standard hashing used by FindByAPIKeyHash callers; no
// credential-hashing library appears anywhere in the retrieval pack, so
// this uses the standard library (see DESIGN.md).
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

type sqliteUserRepo struct {
	db *sql.DB
	mu *sync.Mutex
}

func (r *sqliteUserRepo) Create(ctx context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.db.ExecContext(ctx, `INSERT INTO users (id, email) VALUES (?,?)`, u.ID, u.Email); err != nil {
		return err
	}
	return r.saveKeys(ctx, u)
}

func (r *sqliteUserRepo) saveKeys(ctx context.Context, u *User) error {
	for _, k := range u.APIKeys {
		revoked := 0
		if k.Revoked {
			revoked = 1
		}
		if _, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO api_keys (user_id, label, hash_hex, revoked) VALUES (?,?,?,?)`,
			u.ID, k.Label, k.HashHex, revoked); err != nil {
			return err
		}
	}
	return nil
}

func (r *sqliteUserRepo) Get(ctx context.Context, id string) (*User, error) {
	var u User
	u.ID = id
	if err := r.db.QueryRowContext(ctx, `SELECT email FROM users WHERE id=?`, id).Scan(&u.Email); err != nil {
		return nil, err
	}
	rows, err := r.db.QueryContext(ctx, `SELECT label, hash_hex, revoked FROM api_keys WHERE user_id=?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var k APIKey
		var revoked int
		if err := rows.Scan(&k.Label, &k.HashHex, &revoked); err != nil {
			return nil, err
		}
		k.Revoked = revoked == 1
		u.APIKeys = append(u.APIKeys, k)
	}
	return &u, nil
}

func (r *sqliteUserRepo) Update(ctx context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.db.ExecContext(ctx, `UPDATE users SET email=? WHERE id=?`, u.Email, u.ID); err != nil {
		return err
	}
	return r.saveKeys(ctx, u)
}

func (r *sqliteUserRepo) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.db.ExecContext(ctx, `DELETE FROM api_keys WHERE user_id=?`, id); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id=?`, id)
	return err
}

func (r *sqliteUserRepo) FindByAPIKeyHash(ctx context.Context, hashHex string) (*User, error) {
	var userID string
	if err := r.db.QueryRowContext(ctx, `SELECT user_id FROM api_keys WHERE hash_hex=? AND revoked=0`, hashHex).Scan(&userID); err != nil {
		return nil, err
	}
	return r.Get(ctx, userID)
}
