package graph

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"bioterms/internal/logging"
	"bioterms/internal/model"
)

// SQLiteStore is the embedded fallback graph Store. It reuses the teacher's
// local_graph.go convention of a single RWMutex guarding all traversal
// state, with an internal non-locking helper used by the BFS expansion so
// a multi-hop traversal never attempts to re-acquire a read lock it
// already holds.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens (creating if absent) the sqlite graph store at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create graph store directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, model.NewError(model.ErrTransientStore, "failed to open graph store", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, p := range []string{"PRAGMA busy_timeout=5000", "PRAGMA journal_mode=WAL", "PRAGMA synchronous=NORMAL"} {
		if _, err := db.Exec(p); err != nil {
			return nil, fmt.Errorf("failed to apply pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.initialize(); err != nil {
		return nil, err
	}
	logging.GraphStore("sqlite graph store opened at %s", path)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS nodes (
			prefix TEXT NOT NULL,
			concept_id TEXT NOT NULL,
			labels TEXT,
			PRIMARY KEY (prefix, concept_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_prefix ON nodes(prefix)`,
		`CREATE TABLE IF NOT EXISTS internal_edges (
			prefix TEXT NOT NULL,
			from_id TEXT NOT NULL,
			to_id TEXT NOT NULL,
			label TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_internal_from ON internal_edges(prefix, from_id, label)`,
		`CREATE INDEX IF NOT EXISTS idx_internal_to ON internal_edges(prefix, to_id, label)`,
		`CREATE TABLE IF NOT EXISTS annotations (
			prefix_from TEXT NOT NULL,
			concept_from TEXT NOT NULL,
			prefix_to TEXT NOT NULL,
			concept_to TEXT NOT NULL,
			annotation_type TEXT NOT NULL,
			properties TEXT,
			PRIMARY KEY (prefix_from, concept_from, prefix_to, concept_to, annotation_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_annotations_pair ON annotations(prefix_from, prefix_to)`,
		`CREATE TABLE IF NOT EXISTS similarity_edges (
			prefix_a TEXT NOT NULL,
			concept_a TEXT NOT NULL,
			prefix_b TEXT NOT NULL,
			concept_b TEXT NOT NULL,
			score_key TEXT NOT NULL,
			score REAL NOT NULL,
			PRIMARY KEY (prefix_a, concept_a, prefix_b, concept_b, score_key)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_similarity_a ON similarity_edges(prefix_a, concept_a)`,
		`CREATE INDEX IF NOT EXISTS idx_similarity_b ON similarity_edges(prefix_b, concept_b)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize graph store schema: %w", err)
		}
	}
	return nil
}

func withRetry(op string, fn func() error) error {
	var err error
	backoff := time.Second
	for attempt := 0; attempt < 3; attempt++ {
		if err = fn(); err == nil {
			return nil
		}
		if !model.IsKind(err, model.ErrTransientStore) {
			return err
		}
		logging.GraphStore("%s: transient failure attempt %d/3: %v", op, attempt+1, err)
		time.Sleep(backoff)
		backoff *= 2
	}
	return err
}

func (s *SQLiteStore) SaveVocabularyGraph(ctx context.Context, concepts []*model.Concept, rels []model.InternalRelationship) error {
	return withRetry("SaveVocabularyGraph", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return model.NewError(model.ErrTransientStore, "failed to begin transaction", err)
		}
		defer tx.Rollback()

		nodeStmt, err := tx.PrepareContext(ctx, `INSERT INTO nodes (prefix, concept_id, labels) VALUES (?,?,?)
			ON CONFLICT(prefix, concept_id) DO UPDATE SET labels=excluded.labels`)
		if err != nil {
			return err
		}
		defer nodeStmt.Close()

		for _, c := range concepts {
			labels := strings.Join(c.ConceptTypes, ",")
			if _, err := nodeStmt.ExecContext(ctx, string(c.Prefix), c.ConceptID, labels); err != nil {
				return err
			}
		}

		edgeStmt, err := tx.PrepareContext(ctx, `INSERT INTO internal_edges (prefix, from_id, to_id, label) VALUES (?,?,?,?)`)
		if err != nil {
			return err
		}
		defer edgeStmt.Close()

		for _, r := range rels {
			label := r.Label
			if label == "" {
				label = model.RelationRelatedTo
			}
			if _, err := edgeStmt.ExecContext(ctx, string(r.Prefix), r.FromID, r.ToID, string(label)); err != nil {
				return err
			}
		}

		if err := tx.Commit(); err != nil {
			return model.NewError(model.ErrTransientStore, "failed to commit vocabulary graph", err)
		}
		return nil
	})
}

func (s *SQLiteStore) GetVocabularyGraph(ctx context.Context, prefix model.Prefix) (*Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getVocabularyGraphLocked(ctx, prefix)
}

// getVocabularyGraphLocked assumes the caller already holds at least mu.RLock.
func (s *SQLiteStore) getVocabularyGraphLocked(ctx context.Context, prefix model.Prefix) (*Graph, error) {
	g := &Graph{Nodes: make(map[string]*model.Concept), Edges: make(map[string][]model.InternalRelationship)}

	rows, err := s.db.QueryContext(ctx, `SELECT concept_id, labels FROM nodes WHERE prefix=?`, string(prefix))
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var id, labels string
		if err := rows.Scan(&id, &labels); err != nil {
			rows.Close()
			return nil, err
		}
		var types []string
		if labels != "" {
			types = strings.Split(labels, ",")
		}
		g.Nodes[id] = &model.Concept{Prefix: prefix, ConceptID: id, ConceptTypes: types}
	}
	rows.Close()

	erows, err := s.db.QueryContext(ctx, `SELECT from_id, to_id, label FROM internal_edges WHERE prefix=?`, string(prefix))
	if err != nil {
		return nil, err
	}
	defer erows.Close()
	for erows.Next() {
		var from, to, label string
		if err := erows.Scan(&from, &to, &label); err != nil {
			return nil, err
		}
		g.Edges[from] = append(g.Edges[from], model.InternalRelationship{
			Prefix: prefix, FromID: from, ToID: to, Label: model.RelationLabel(label),
		})
	}
	return g, nil
}

func (s *SQLiteStore) DeleteVocabularyGraph(ctx context.Context, prefix model.Prefix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE prefix=?`, string(prefix)); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM internal_edges WHERE prefix=?`, string(prefix)); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) CountTerms(ctx context.Context, prefix model.Prefix) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes WHERE prefix=?`, string(prefix)).Scan(&n)
	return n, err
}

func (s *SQLiteStore) CountInternalRelationships(ctx context.Context, prefix model.Prefix) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM internal_edges WHERE prefix=?`, string(prefix)).Scan(&n)
	return n, err
}

func (s *SQLiteStore) SaveAnnotations(ctx context.Context, annotations []model.Annotation) error {
	return withRetry("SaveAnnotations", func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO annotations (prefix_from, concept_from, prefix_to, concept_to, annotation_type, properties)
			VALUES (?,?,?,?,?,?)
			ON CONFLICT(prefix_from, concept_from, prefix_to, concept_to, annotation_type)
			DO UPDATE SET properties=excluded.properties
		`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, a := range annotations {
			props := encodeProps(a.Properties)
			if _, err := stmt.ExecContext(ctx, string(a.PrefixFrom), a.ConceptIDFrom, string(a.PrefixTo), a.ConceptIDTo, string(a.AnnotationType), props); err != nil {
				return err
			}
		}
		return tx.Commit()
	})
}

func encodeProps(props map[string]string) string {
	if len(props) == 0 {
		return ""
	}
	keys := make([]string, 0, len(props))
	for k := range props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(props[k])
	}
	return b.String()
}

func decodeProps(s string) map[string]string {
	if s == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ";") {
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) == 2 {
			out[kv[0]] = kv[1]
		}
	}
	return out
}

func (s *SQLiteStore) GetAnnotationGraph(ctx context.Context, p1, p2 model.Prefix) ([]model.Annotation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT prefix_from, concept_from, prefix_to, concept_to, annotation_type, properties
		FROM annotations
		WHERE (prefix_from=? AND prefix_to=?) OR (prefix_from=? AND prefix_to=?)
	`, string(p1), string(p2), string(p2), string(p1))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Annotation
	for rows.Next() {
		var pf, cf, pt, ct, at, props string
		if err := rows.Scan(&pf, &cf, &pt, &ct, &at, &props); err != nil {
			return nil, err
		}
		out = append(out, model.Annotation{
			PrefixFrom: model.Prefix(pf), ConceptIDFrom: cf,
			PrefixTo: model.Prefix(pt), ConceptIDTo: ct,
			AnnotationType: model.AnnotationType(at), Properties: decodeProps(props),
		})
	}
	return out, nil
}

func (s *SQLiteStore) DeleteAnnotations(ctx context.Context, p1, p2 model.Prefix) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM annotations WHERE (prefix_from=? AND prefix_to=?) OR (prefix_from=? AND prefix_to=?)
	`, string(p1), string(p2), string(p2), string(p1))
	return err
}

func (s *SQLiteStore) CountAnnotations(ctx context.Context, p1, p2 model.Prefix) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM annotations WHERE (prefix_from=? AND prefix_to=?) OR (prefix_from=? AND prefix_to=?)
	`, string(p1), string(p2), string(p2), string(p1)).Scan(&n)
	return n, err
}

const similarityBatchSize = 1000

func (s *SQLiteStore) SaveSimilarityScores(ctx context.Context, prefixFrom, prefixTo model.Prefix, scores []model.SimilarityEdge, method model.SimilarityMethod, corpusPrefix model.Prefix) error {
	key := model.ScoreKey(method, corpusPrefix)
	for start := 0; start < len(scores); start += similarityBatchSize {
		end := start + similarityBatchSize
		if end > len(scores) {
			end = len(scores)
		}
		batch := scores[start:end]
		if err := withRetry("SaveSimilarityScores", func() error {
			s.mu.Lock()
			defer s.mu.Unlock()
			tx, err := s.db.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
			defer tx.Rollback()
			stmt, err := tx.PrepareContext(ctx, `
				INSERT INTO similarity_edges (prefix_a, concept_a, prefix_b, concept_b, score_key, score)
				VALUES (?,?,?,?,?,?)
				ON CONFLICT(prefix_a, concept_a, prefix_b, concept_b, score_key) DO UPDATE SET score=excluded.score
			`)
			if err != nil {
				return err
			}
			defer stmt.Close()
			for _, edge := range batch {
				pa, ca, pb, cb := model.CanonicalPairKey(prefixFrom, edge.ConceptIDA, prefixTo, edge.ConceptIDB)
				if _, err := stmt.ExecContext(ctx, string(pa), ca, string(pb), cb, key, edge.Scores[key]); err != nil {
					return err
				}
			}
			return tx.Commit()
		}); err != nil {
			return err
		}
		logging.SimilarityDebug("SaveSimilarityScores: flushed batch %d-%d of %d", start, end, len(scores))
	}
	return nil
}

func (s *SQLiteStore) CountSimilarityRelationships(ctx context.Context, prefixFrom, prefixTo model.Prefix) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM similarity_edges WHERE (prefix_a=? AND prefix_b=?) OR (prefix_a=? AND prefix_b=?)
	`, string(prefixFrom), string(prefixTo), string(prefixTo), string(prefixFrom)).Scan(&n)
	return n, err
}

// ExpandTermsIter performs BFS over the reverse of IS_A edges (i.e.
// parent->child traversal), expanding each root independently with global
// node-uniqueness, grounded on the teacher's local_graph.go TraversePath:
// it holds a single RLock for the whole expansion and uses the
// non-locking getVocabularyGraphLocked helper instead of re-entering RLock
// per hop, avoiding the nested-RLock deadlock the teacher's code works
// around.
func (s *SQLiteStore) ExpandTermsIter(ctx context.Context, prefix model.Prefix, conceptIDs []string, maxDepth int, limit int) (ExpansionIterator, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, err := s.getVocabularyGraphLocked(ctx, prefix)
	if err != nil {
		return nil, err
	}

	// children[parent] = list of child ids, the reverse of IS_A edges.
	children := make(map[string][]string)
	for from, rels := range g.Edges {
		for _, r := range rels {
			if r.Label == model.RelationIsA {
				children[r.ToID] = append(children[r.ToID], from)
			}
		}
	}

	results := make([]*model.ExpansionResult, 0, len(conceptIDs))
	for _, root := range conceptIDs {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		visited := map[string]bool{root: true}
		type queued struct {
			id    string
			depth int
		}
		queue := []queued{{id: root, depth: 0}}
		var descendants []string

		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if maxDepth > 0 && cur.depth >= maxDepth {
				continue
			}
			for _, child := range children[cur.id] {
				if visited[child] {
					continue
				}
				visited[child] = true
				descendants = append(descendants, child)
				queue = append(queue, queued{id: child, depth: cur.depth + 1})
			}
		}

		sort.Strings(descendants)
		if limit > 0 && len(descendants) > limit {
			descendants = descendants[:limit]
		}
		results = append(results, &model.ExpansionResult{ConceptID: root, Descendants: descendants})
	}

	return &expansionSliceIterator{items: results}, nil
}

type expansionSliceIterator struct {
	items []*model.ExpansionResult
	pos   int
}

func (it *expansionSliceIterator) Next(ctx context.Context) (*model.ExpansionResult, bool, error) {
	if it.pos >= len(it.items) {
		return nil, false, nil
	}
	r := it.items[it.pos]
	it.pos++
	return r, true, nil
}
func (it *expansionSliceIterator) Close() error { return nil }

// matchesFilter implements the key-matching rule from getSimilarTermsIter:
// method alone matches keys equal to method or prefixed "method:"; corpus
// alone matches keys suffixed ":corpusPrefix"; both require both; neither
// disables filtering.
func matchesFilter(key string, method model.SimilarityMethod, corpusPrefix model.Prefix) bool {
	hasMethod := method != ""
	hasCorpus := corpusPrefix != ""
	if !hasMethod && !hasCorpus {
		return true
	}
	parts := strings.SplitN(key, ":", 2)
	keyMethod := parts[0]
	keyCorpus := ""
	if len(parts) == 2 {
		keyCorpus = parts[1]
	}
	if hasMethod && keyMethod != string(method) {
		return false
	}
	if hasCorpus && keyCorpus != string(corpusPrefix) {
		return false
	}
	return true
}

func (s *SQLiteStore) GetSimilarTermsIter(ctx context.Context, opts SimilarTermsQuery) (SimilarIterator, error) {
	results := make([]*model.SimilarTermResult, 0, len(opts.ConceptIDs))

	for _, id := range opts.ConceptIDs {
		rows, err := s.db.QueryContext(ctx, `
			SELECT prefix_a, concept_a, prefix_b, concept_b, score_key, score FROM similarity_edges
			WHERE (prefix_a=? AND concept_a=?) OR (prefix_b=? AND concept_b=?)
		`, string(opts.Prefix), id, string(opts.Prefix), id)
		if err != nil {
			return nil, err
		}

		type neighbor struct {
			prefix model.Prefix
			id     string
			score  float64
		}
		best := make(map[string]neighbor)

		for rows.Next() {
			var pa, ca, pb, cb, key string
			var score float64
			if err := rows.Scan(&pa, &ca, &pb, &cb, &key, &score); err != nil {
				rows.Close()
				return nil, err
			}
			if score < opts.Threshold || !matchesFilter(key, opts.Method, opts.CorpusPrefix) {
				continue
			}
			var otherPrefix model.Prefix
			var otherID string
			if pa == string(opts.Prefix) && ca == id {
				otherPrefix, otherID = model.Prefix(pb), cb
			} else {
				otherPrefix, otherID = model.Prefix(pa), ca
			}
			if opts.SamePrefix && otherPrefix != opts.Prefix {
				continue
			}
			nk := string(otherPrefix) + ":" + otherID
			if existing, ok := best[nk]; !ok || score > existing.score {
				best[nk] = neighbor{prefix: otherPrefix, id: otherID, score: score}
			}
		}
		rows.Close()

		groups := make(map[model.Prefix][]model.SimilarConcept)
		for _, n := range best {
			groups[n.prefix] = append(groups[n.prefix], model.SimilarConcept{ConceptID: n.id, Score: n.score})
		}

		result := &model.SimilarTermResult{ConceptID: id}
		for p, g := range groups {
			sort.Slice(g, func(i, j int) bool {
				if g[i].Score != g[j].Score {
					return g[i].Score > g[j].Score
				}
				return g[i].ConceptID < g[j].ConceptID
			})
			if opts.Limit > 0 && len(g) > opts.Limit {
				g = g[:opts.Limit]
			}
			result.Groups = append(result.Groups, model.SimilarGroup{Prefix: p, Similar: g})
		}
		sort.Slice(result.Groups, func(i, j int) bool { return result.Groups[i].Prefix < result.Groups[j].Prefix })

		results = append(results, result)
	}

	return &similarSliceIterator{items: results}, nil
}

type similarSliceIterator struct {
	items []*model.SimilarTermResult
	pos   int
}

func (it *similarSliceIterator) Next(ctx context.Context) (*model.SimilarTermResult, bool, error) {
	if it.pos >= len(it.items) {
		return nil, false, nil
	}
	r := it.items[it.pos]
	it.pos++
	return r, true, nil
}
func (it *similarSliceIterator) Close() error { return nil }

func (s *SQLiteStore) TranslateTermsIter(ctx context.Context, opts TranslateQuery) (TranslateIterator, error) {
	var results []*model.TranslatedTerm

	for _, id := range opts.OriginalIDs {
		rows, err := s.db.QueryContext(ctx, `
			SELECT prefix_a, concept_a, prefix_b, concept_b, score FROM similarity_edges
			WHERE (prefix_a=? AND concept_a=?) OR (prefix_b=? AND concept_b=?)
		`, string(opts.OriginalPrefix), id, string(opts.OriginalPrefix), id)
		if err != nil {
			return nil, err
		}

		var best *model.TranslatedTerm
		for rows.Next() {
			var pa, ca, pb, cb string
			var score float64
			if err := rows.Scan(&pa, &ca, &pb, &cb, &score); err != nil {
				rows.Close()
				return nil, err
			}
			if score < opts.Threshold {
				continue
			}
			var targetPrefix model.Prefix
			var targetID string
			if pa == string(opts.OriginalPrefix) && ca == id {
				targetPrefix, targetID = model.Prefix(pb), cb
			} else {
				targetPrefix, targetID = model.Prefix(pa), ca
			}
			allowed, ok := opts.ConstraintIDs[targetPrefix]
			if !ok {
				continue
			}
			if _, inSet := allowed[targetID]; !inSet {
				continue
			}
			if best == nil || score > best.Score {
				best = &model.TranslatedTerm{ConceptID: targetID, Prefix: targetPrefix, Score: score}
			}
		}
		rows.Close()

		if best != nil {
			results = append(results, best)
		}
	}

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return &translateSliceIterator{items: results}, nil
}

type translateSliceIterator struct {
	items []*model.TranslatedTerm
	pos   int
}

func (it *translateSliceIterator) Next(ctx context.Context) (*model.TranslatedTerm, bool, error) {
	if it.pos >= len(it.items) {
		return nil, false, nil
	}
	r := it.items[it.pos]
	it.pos++
	return r, true, nil
}
func (it *translateSliceIterator) Close() error { return nil }

func (s *SQLiteStore) Close() error { return s.db.Close() }
