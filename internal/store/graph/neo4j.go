package graph

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"bioterms/internal/logging"
	"bioterms/internal/model"
)

// Neo4jStore is the primary Store backend. Nodes carry a fixed :Concept
// label plus one additional label per conceptType; internal edges are
// typed relationships named after their RelationLabel; similarity edges
// are a single :SIMILAR_TO relationship whose properties accumulate one
// float per method[:corpus] key.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
}

// NewNeo4jStore connects to dsn, passing username/password to the driver
// as basic auth rather than inside the connection string.
func NewNeo4jStore(ctx context.Context, dsn, username, password string) (*Neo4jStore, error) {
	driver, err := neo4j.NewDriverWithContext(dsn, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, model.NewError(model.ErrTransientStore, "failed to create graph store driver", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, model.NewError(model.ErrTransientStore, "graph store connectivity check failed", err)
	}
	logging.GraphStore("neo4j graph store connected")
	return &Neo4jStore{driver: driver}, nil
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{})
}

func (s *Neo4jStore) SaveVocabularyGraph(ctx context.Context, concepts []*model.Concept, rels []model.InternalRelationship) error {
	return withRetry("SaveVocabularyGraph", func() error {
		session := s.session(ctx)
		defer session.Close(ctx)

		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			for _, c := range concepts {
				labels := "Concept"
				for _, t := range c.ConceptTypes {
					labels += ":" + sanitizeLabel(t)
				}
				query := fmt.Sprintf(`MERGE (n:%s {prefix: $prefix, conceptId: $conceptId})`, labels)
				if _, err := tx.Run(ctx, query, map[string]any{"prefix": string(c.Prefix), "conceptId": c.ConceptID}); err != nil {
					return nil, model.NewError(model.ErrTransientStore, "failed node upsert", err)
				}
			}
			for _, r := range rels {
				label := r.Label
				if label == "" {
					label = model.RelationRelatedTo
				}
				query := fmt.Sprintf(`
					MATCH (a:Concept {prefix: $prefix, conceptId: $from})
					MATCH (b:Concept {prefix: $prefix, conceptId: $to})
					MERGE (a)-[:%s]->(b)
				`, sanitizeLabel(string(label)))
				if _, err := tx.Run(ctx, query, map[string]any{"prefix": string(r.Prefix), "from": r.FromID, "to": r.ToID}); err != nil {
					return nil, model.NewError(model.ErrTransientStore, "failed edge upsert", err)
				}
			}
			return nil, nil
		})
		return err
	})
}

func sanitizeLabel(s string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '_' {
			return r
		}
		return '_'
	}, s)
}

func (s *Neo4jStore) GetVocabularyGraph(ctx context.Context, prefix model.Prefix) (*Graph, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	g := &Graph{Nodes: make(map[string]*model.Concept), Edges: make(map[string][]model.InternalRelationship)}

	result, err := session.Run(ctx, `MATCH (n:Concept {prefix: $prefix}) RETURN n.conceptId AS id, labels(n) AS labels`,
		map[string]any{"prefix": string(prefix)})
	if err != nil {
		return nil, err
	}
	for result.Next(ctx) {
		rec := result.Record()
		id, _ := rec.Get("id")
		labelsRaw, _ := rec.Get("labels")
		var types []string
		if ls, ok := labelsRaw.([]any); ok {
			for _, l := range ls {
				if ls, ok := l.(string); ok && ls != "Concept" {
					types = append(types, ls)
				}
			}
		}
		g.Nodes[id.(string)] = &model.Concept{Prefix: prefix, ConceptID: id.(string), ConceptTypes: types}
	}
	if err := result.Err(); err != nil {
		return nil, err
	}

	erows, err := session.Run(ctx, `
		MATCH (a:Concept {prefix: $prefix})-[r]->(b:Concept {prefix: $prefix})
		RETURN a.conceptId AS from, b.conceptId AS to, type(r) AS label
	`, map[string]any{"prefix": string(prefix)})
	if err != nil {
		return nil, err
	}
	for erows.Next(ctx) {
		rec := erows.Record()
		from, _ := rec.Get("from")
		to, _ := rec.Get("to")
		label, _ := rec.Get("label")
		g.Edges[from.(string)] = append(g.Edges[from.(string)], model.InternalRelationship{
			Prefix: prefix, FromID: from.(string), ToID: to.(string), Label: model.RelationLabel(label.(string)),
		})
	}
	return g, erows.Err()
}

func (s *Neo4jStore) DeleteVocabularyGraph(ctx context.Context, prefix model.Prefix) error {
	session := s.session(ctx)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `MATCH (n:Concept {prefix: $prefix}) DETACH DELETE n`, map[string]any{"prefix": string(prefix)})
	})
	return err
}

func (s *Neo4jStore) CountTerms(ctx context.Context, prefix model.Prefix) (int64, error) {
	session := s.session(ctx)
	defer session.Close(ctx)
	result, err := session.Run(ctx, `MATCH (n:Concept {prefix: $prefix}) RETURN count(n) AS c`, map[string]any{"prefix": string(prefix)})
	if err != nil {
		return 0, err
	}
	if result.Next(ctx) {
		c, _ := result.Record().Get("c")
		return c.(int64), nil
	}
	return 0, result.Err()
}

func (s *Neo4jStore) CountInternalRelationships(ctx context.Context, prefix model.Prefix) (int64, error) {
	session := s.session(ctx)
	defer session.Close(ctx)
	result, err := session.Run(ctx, `MATCH (:Concept {prefix: $prefix})-[r]->(:Concept {prefix: $prefix}) RETURN count(r) AS c`,
		map[string]any{"prefix": string(prefix)})
	if err != nil {
		return 0, err
	}
	if result.Next(ctx) {
		c, _ := result.Record().Get("c")
		return c.(int64), nil
	}
	return 0, result.Err()
}

func (s *Neo4jStore) SaveAnnotations(ctx context.Context, annotations []model.Annotation) error {
	session := s.session(ctx)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		for _, a := range annotations {
			query := `
				MERGE (x:Concept {prefix: $pf, conceptId: $cf})
				MERGE (y:Concept {prefix: $pt, conceptId: $ct})
				MERGE (x)-[r:ANNOTATES {annotationType: $at}]->(y)
				SET r.properties = $props
			`
			if _, err := tx.Run(ctx, query, map[string]any{
				"pf": string(a.PrefixFrom), "cf": a.ConceptIDFrom,
				"pt": string(a.PrefixTo), "ct": a.ConceptIDTo,
				"at": string(a.AnnotationType), "props": encodeProps(a.Properties),
			}); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	return err
}

func (s *Neo4jStore) GetAnnotationGraph(ctx context.Context, p1, p2 model.Prefix) ([]model.Annotation, error) {
	session := s.session(ctx)
	defer session.Close(ctx)
	result, err := session.Run(ctx, `
		MATCH (x:Concept)-[r:ANNOTATES]->(y:Concept)
		WHERE (x.prefix = $p1 AND y.prefix = $p2) OR (x.prefix = $p2 AND y.prefix = $p1)
		RETURN x.prefix AS pf, x.conceptId AS cf, y.prefix AS pt, y.conceptId AS ct, r.annotationType AS at, r.properties AS props
	`, map[string]any{"p1": string(p1), "p2": string(p2)})
	if err != nil {
		return nil, err
	}
	var out []model.Annotation
	for result.Next(ctx) {
		rec := result.Record()
		pf, _ := rec.Get("pf")
		cf, _ := rec.Get("cf")
		pt, _ := rec.Get("pt")
		ct, _ := rec.Get("ct")
		at, _ := rec.Get("at")
		props, _ := rec.Get("props")
		propsStr, _ := props.(string)
		out = append(out, model.Annotation{
			PrefixFrom: model.Prefix(pf.(string)), ConceptIDFrom: cf.(string),
			PrefixTo: model.Prefix(pt.(string)), ConceptIDTo: ct.(string),
			AnnotationType: model.AnnotationType(at.(string)), Properties: decodeProps(propsStr),
		})
	}
	return out, result.Err()
}

func (s *Neo4jStore) DeleteAnnotations(ctx context.Context, p1, p2 model.Prefix) error {
	session := s.session(ctx)
	defer session.Close(ctx)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MATCH (x:Concept)-[r:ANNOTATES]->(y:Concept)
			WHERE (x.prefix = $p1 AND y.prefix = $p2) OR (x.prefix = $p2 AND y.prefix = $p1)
			DELETE r
		`, map[string]any{"p1": string(p1), "p2": string(p2)})
	})
	return err
}

func (s *Neo4jStore) CountAnnotations(ctx context.Context, p1, p2 model.Prefix) (int64, error) {
	session := s.session(ctx)
	defer session.Close(ctx)
	result, err := session.Run(ctx, `
		MATCH (x:Concept)-[r:ANNOTATES]->(y:Concept)
		WHERE (x.prefix = $p1 AND y.prefix = $p2) OR (x.prefix = $p2 AND y.prefix = $p1)
		RETURN count(r) AS c
	`, map[string]any{"p1": string(p1), "p2": string(p2)})
	if err != nil {
		return 0, err
	}
	if result.Next(ctx) {
		c, _ := result.Record().Get("c")
		return c.(int64), nil
	}
	return 0, result.Err()
}

func (s *Neo4jStore) SaveSimilarityScores(ctx context.Context, prefixFrom, prefixTo model.Prefix, scores []model.SimilarityEdge, method model.SimilarityMethod, corpusPrefix model.Prefix) error {
	key := model.ScoreKey(method, corpusPrefix)
	propKey := "sim_" + sanitizeLabel(key)

	for start := 0; start < len(scores); start += similarityBatchSize {
		end := start + similarityBatchSize
		if end > len(scores) {
			end = len(scores)
		}
		batch := scores[start:end]

		session := s.session(ctx)
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			for _, edge := range batch {
				pa, ca, pb, cb := model.CanonicalPairKey(prefixFrom, edge.ConceptIDA, prefixTo, edge.ConceptIDB)
				query := fmt.Sprintf(`
					MATCH (a:Concept {prefix: $pa, conceptId: $ca})
					MATCH (b:Concept {prefix: $pb, conceptId: $cb})
					MERGE (a)-[r:SIMILAR_TO]->(b)
					SET r.%s = $score
				`, propKey)
				if _, err := tx.Run(ctx, query, map[string]any{
					"pa": string(pa), "ca": ca, "pb": string(pb), "cb": cb, "score": edge.Scores[key],
				}); err != nil {
					return nil, err
				}
			}
			return nil, nil
		})
		session.Close(ctx)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *Neo4jStore) CountSimilarityRelationships(ctx context.Context, prefixFrom, prefixTo model.Prefix) (int64, error) {
	session := s.session(ctx)
	defer session.Close(ctx)
	result, err := session.Run(ctx, `
		MATCH (a:Concept)-[r:SIMILAR_TO]->(b:Concept)
		WHERE (a.prefix = $pf AND b.prefix = $pt) OR (a.prefix = $pt AND b.prefix = $pf)
		RETURN count(r) AS c
	`, map[string]any{"pf": string(prefixFrom), "pt": string(prefixTo)})
	if err != nil {
		return 0, err
	}
	if result.Next(ctx) {
		c, _ := result.Record().Get("c")
		return c.(int64), nil
	}
	return 0, result.Err()
}

// ExpandTermsIter issues one variable-length-path Cypher query per root,
// bounded by maxDepth, relying on the server's own BFS rather than
// reimplementing it client-side (unlike the sqlite fallback, which must).
func (s *Neo4jStore) ExpandTermsIter(ctx context.Context, prefix model.Prefix, conceptIDs []string, maxDepth int, limit int) (ExpansionIterator, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	depthClause := "*"
	if maxDepth > 0 {
		depthClause = fmt.Sprintf("*1..%d", maxDepth)
	}

	var results []*model.ExpansionResult
	for _, root := range conceptIDs {
		query := fmt.Sprintf(`
			MATCH (root:Concept {prefix: $prefix, conceptId: $root})
			MATCH (root)<-[:IS_A%s]-(descendant:Concept {prefix: $prefix})
			RETURN DISTINCT descendant.conceptId AS id
			ORDER BY id
		`, depthClause)
		if limit > 0 {
			query += fmt.Sprintf(" LIMIT %d", limit)
		}
		result, err := session.Run(ctx, query, map[string]any{"prefix": string(prefix), "root": root})
		if err != nil {
			return nil, err
		}
		var descendants []string
		for result.Next(ctx) {
			id, _ := result.Record().Get("id")
			descendants = append(descendants, id.(string))
		}
		if err := result.Err(); err != nil {
			return nil, err
		}
		results = append(results, &model.ExpansionResult{ConceptID: root, Descendants: descendants})
	}
	return &expansionSliceIterator{items: results}, nil
}

func (s *Neo4jStore) GetSimilarTermsIter(ctx context.Context, opts SimilarTermsQuery) (SimilarIterator, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	var results []*model.SimilarTermResult
	for _, id := range opts.ConceptIDs {
		query := `
			MATCH (a:Concept {prefix: $prefix, conceptId: $id})-[r:SIMILAR_TO]-(b:Concept)
			RETURN b.prefix AS prefix, b.conceptId AS conceptId, properties(r) AS props
		`
		result, err := session.Run(ctx, query, map[string]any{"prefix": string(opts.Prefix), "id": id})
		if err != nil {
			return nil, err
		}

		groups := make(map[model.Prefix]map[string]float64)
		for result.Next(ctx) {
			rec := result.Record()
			bPrefixRaw, _ := rec.Get("prefix")
			bIDRaw, _ := rec.Get("conceptId")
			propsRaw, _ := rec.Get("props")
			bPrefix := model.Prefix(bPrefixRaw.(string))
			bID := bIDRaw.(string)

			if opts.SamePrefix && bPrefix != opts.Prefix {
				continue
			}
			props, _ := propsRaw.(map[string]any)
			var best float64 = -1
			for k, v := range props {
				score, ok := v.(float64)
				if !ok {
					continue
				}
				trimmed := strings.TrimPrefix(k, "sim_")
				if score < opts.Threshold || !matchesFilter(trimmed, opts.Method, opts.CorpusPrefix) {
					continue
				}
				if score > best {
					best = score
				}
			}
			if best < 0 {
				continue
			}
			if groups[bPrefix] == nil {
				groups[bPrefix] = make(map[string]float64)
			}
			if cur, ok := groups[bPrefix][bID]; !ok || best > cur {
				groups[bPrefix][bID] = best
			}
		}
		if err := result.Err(); err != nil {
			return nil, err
		}

		r := &model.SimilarTermResult{ConceptID: id}
		for prefix, scores := range groups {
			var sims []model.SimilarConcept
			for cid, score := range scores {
				sims = append(sims, model.SimilarConcept{ConceptID: cid, Score: score})
			}
			sort.Slice(sims, func(i, j int) bool {
				if sims[i].Score != sims[j].Score {
					return sims[i].Score > sims[j].Score
				}
				return sims[i].ConceptID < sims[j].ConceptID
			})
			if opts.Limit > 0 && len(sims) > opts.Limit {
				sims = sims[:opts.Limit]
			}
			r.Groups = append(r.Groups, model.SimilarGroup{Prefix: prefix, Similar: sims})
		}
		sort.Slice(r.Groups, func(i, j int) bool { return r.Groups[i].Prefix < r.Groups[j].Prefix })
		results = append(results, r)
	}
	return &similarSliceIterator{items: results}, nil
}

func (s *Neo4jStore) TranslateTermsIter(ctx context.Context, opts TranslateQuery) (TranslateIterator, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	var results []*model.TranslatedTerm
	for _, id := range opts.OriginalIDs {
		query := `
			MATCH (a:Concept {prefix: $prefix, conceptId: $id})-[r:SIMILAR_TO]-(b:Concept)
			RETURN b.prefix AS prefix, b.conceptId AS conceptId, properties(r) AS props
		`
		result, err := session.Run(ctx, query, map[string]any{"prefix": string(opts.OriginalPrefix), "id": id})
		if err != nil {
			return nil, err
		}

		var best *model.TranslatedTerm
		for result.Next(ctx) {
			rec := result.Record()
			bPrefixRaw, _ := rec.Get("prefix")
			bIDRaw, _ := rec.Get("conceptId")
			propsRaw, _ := rec.Get("props")
			targetPrefix := model.Prefix(bPrefixRaw.(string))
			targetID := bIDRaw.(string)

			allowed, ok := opts.ConstraintIDs[targetPrefix]
			if !ok {
				continue
			}
			if _, inSet := allowed[targetID]; !inSet {
				continue
			}
			props, _ := propsRaw.(map[string]any)
			var maxScore float64 = -1
			for _, v := range props {
				if score, ok := v.(float64); ok && score > maxScore {
					maxScore = score
				}
			}
			if maxScore < opts.Threshold {
				continue
			}
			if best == nil || maxScore > best.Score {
				best = &model.TranslatedTerm{ConceptID: targetID, Prefix: targetPrefix, Score: maxScore}
			}
		}
		if err := result.Err(); err != nil {
			return nil, err
		}
		if best != nil {
			results = append(results, best)
		}
	}

	if opts.Limit > 0 && len(results) > opts.Limit {
		results = results[:opts.Limit]
	}
	return &translateSliceIterator{items: results}, nil
}

func (s *Neo4jStore) Close() error {
	return s.driver.Close(context.Background())
}
