package vector

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"sort"

	_ "modernc.org/sqlite"

	"bioterms/internal/embedding"
	"bioterms/internal/logging"
	"bioterms/internal/model"
)

// SQLiteVecStore is the embedded fallback backend. Vectors are stored as
// little-endian float32 blobs in a plain table. When the sqlite-vec
// extension is available (see vec_init_cgo.go) a per-prefix vec0 virtual
// table is created, but no rows are written to it: search is always a
// brute-force cosine scan over the plain table.
type SQLiteVecStore struct {
	db        *sql.DB
	vecEnabled map[model.Prefix]bool
}

// NewSQLiteVecStore opens (or creates) a sqlite-vec embedded vector store.
func NewSQLiteVecStore(path string) (*SQLiteVecStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, model.NewError(model.ErrTransientStore, "failed to open vector store", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, model.NewError(model.ErrTransientStore, "failed to apply vector store pragma", err)
		}
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS vectors (
			prefix TEXT NOT NULL,
			concept_id TEXT NOT NULL,
			vector_id TEXT NOT NULL,
			embedding BLOB NOT NULL,
			PRIMARY KEY (prefix, concept_id)
		)
	`); err != nil {
		db.Close()
		return nil, model.NewError(model.ErrIndexCreation, "failed to initialize vector store schema", err)
	}

	return &SQLiteVecStore{db: db, vecEnabled: make(map[model.Prefix]bool)}, nil
}

func (s *SQLiteVecStore) tryEnableVecIndex(prefix model.Prefix, dim int) {
	if s.vecEnabled[prefix] || dim <= 0 {
		return
	}
	table := "vec_" + collectionName(prefix)
	stmt := fmt.Sprintf("CREATE VIRTUAL TABLE IF NOT EXISTS %s USING vec0(embedding float[%d])", table, dim)
	if _, err := s.db.Exec(stmt); err == nil {
		s.vecEnabled[prefix] = true
		logging.VectorStore("sqlite-vec ANN index enabled for prefix %s (dim=%d)", prefix, dim)
	} else {
		logging.VectorStoreDebug("sqlite-vec extension unavailable for prefix %s, using brute-force scan: %v", prefix, err)
	}
}

func (s *SQLiteVecStore) InsertConcepts(ctx context.Context, prefix model.Prefix, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	if len(records[0].Vector) > 0 {
		s.tryEnableVecIndex(prefix, len(records[0].Vector))
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.NewError(model.ErrTransientStore, "failed to begin vector store transaction", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (prefix, concept_id, vector_id, embedding) VALUES (?, ?, ?, ?)
		ON CONFLICT(prefix, concept_id) DO UPDATE SET vector_id = excluded.vector_id, embedding = excluded.embedding
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.ExecContext(ctx, string(prefix), r.ConceptID, r.VectorID, encodeFloat32Slice(r.Vector)); err != nil {
			tx.Rollback()
			return model.NewError(model.ErrTransientStore, "failed to insert vector", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return model.NewError(model.ErrTransientStore, "failed to commit vector batch", err)
	}
	logging.VectorStoreDebug("inserted %d vectors for prefix %s", len(records), prefix)
	return nil
}

func (s *SQLiteVecStore) GetVectorsForPrefixIter(ctx context.Context, prefix model.Prefix) (Iterator, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT concept_id, vector_id, embedding FROM vectors WHERE prefix = ?`, string(prefix))
	if err != nil {
		return nil, err
	}
	return &sqliteVecIterator{rows: rows}, nil
}

type sqliteVecIterator struct {
	rows *sql.Rows
}

func (it *sqliteVecIterator) Next(ctx context.Context) (*Record, bool, error) {
	if !it.rows.Next() {
		return nil, false, it.rows.Err()
	}
	var conceptID, vectorID string
	var blob []byte
	if err := it.rows.Scan(&conceptID, &vectorID, &blob); err != nil {
		return nil, false, err
	}
	return &Record{ConceptID: conceptID, VectorID: vectorID, Vector: decodeFloat32Slice(blob)}, true, nil
}

func (it *sqliteVecIterator) Close() error { return it.rows.Close() }

func (s *SQLiteVecStore) DeleteVectorsForPrefix(ctx context.Context, prefix model.Prefix) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vectors WHERE prefix = ?`, string(prefix)); err != nil {
		return err
	}
	table := "vec_" + collectionName(prefix)
	if s.vecEnabled[prefix] {
		s.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", table))
		delete(s.vecEnabled, prefix)
	}
	return nil
}

// SearchSimilar performs a brute-force cosine scan. The vec0 table, when
// enabled, does not carry conceptId/vectorId association in this minimal
// schema, so ranking always happens client-side over the decoded vectors
// table; this keeps behavior identical whether or not the extension loaded.
func (s *SQLiteVecStore) SearchSimilar(ctx context.Context, prefix model.Prefix, query []float32, topK int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT concept_id, embedding FROM vectors WHERE prefix = ?`, string(prefix))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var conceptID string
		var blob []byte
		if err := rows.Scan(&conceptID, &blob); err != nil {
			continue
		}
		vec := decodeFloat32Slice(blob)
		score, err := embedding.CosineSimilarity(query, vec)
		if err != nil {
			continue
		}
		matches = append(matches, Match{ConceptID: conceptID, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

func (s *SQLiteVecStore) Close() error {
	return s.db.Close()
}

func encodeFloat32Slice(vec []float32) []byte {
	buf := &bytes.Buffer{}
	_ = binary.Write(buf, binary.LittleEndian, vec)
	return buf.Bytes()
}

func decodeFloat32Slice(blob []byte) []float32 {
	if len(blob)%4 != 0 {
		return nil
	}
	out := make([]float32, len(blob)/4)
	_ = binary.Read(bytes.NewReader(blob), binary.LittleEndian, &out)
	return out
}
