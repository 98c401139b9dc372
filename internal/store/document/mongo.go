package document

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bioterms/internal/logging"
	"bioterms/internal/model"
)

// MongoStore is the primary Store backend: one collection per prefix,
// named "concepts_<prefix>". CreateIndex always builds the nGrams
// (multi-key) and unique conceptId indexes, plus one on the requested
// field when that is another field.
type MongoStore struct {
	client  *mongo.Client
	db      *mongo.Database
	workers int
}

// NewMongoStore connects to dsn and selects dbName.
func NewMongoStore(ctx context.Context, dsn, dbName string, workers int) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
	if err != nil {
		return nil, model.NewError(model.ErrTransientStore, "failed to connect to document store", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, model.NewError(model.ErrTransientStore, "document store ping failed", err)
	}
	logging.DocStore("mongo document store connected: db=%s", dbName)
	return &MongoStore{client: client, db: client.Database(dbName), workers: workers}, nil
}

func (s *MongoStore) collection(prefix model.Prefix) *mongo.Collection {
	return s.db.Collection("concepts_" + string(prefix))
}

func (s *MongoStore) CreateIndex(ctx context.Context, prefix model.Prefix, field string, unique bool, overwrite bool) error {
	coll := s.collection(prefix)

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "nGrams", Value: 1}}},
		{Keys: bson.D{{Key: "conceptId", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if field != "" && field != "conceptId" && field != "nGrams" {
		indexes = append(indexes, mongo.IndexModel{Keys: bson.D{{Key: field, Value: 1}}, Options: options.Index().SetUnique(unique)})
	}

	_, err := coll.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		if !overwrite && mongo.IsDuplicateKeyError(err) {
			return model.NewError(model.ErrIndexCreation, fmt.Sprintf("index conflict on %s.%s", prefix, field), err)
		}
		return model.NewError(model.ErrIndexCreation, "failed to create index", err)
	}
	return nil
}

type mongoConceptDoc struct {
	model.Concept `bson:",inline"`
}

func (s *MongoStore) SaveTerms(ctx context.Context, terms []*model.Concept) error {
	if len(terms) == 0 {
		return nil
	}

	conceptIDs := make([]string, len(terms))
	labels := make([]string, len(terms))
	synonyms := make([][]string, len(terms))
	for i, t := range terms {
		conceptIDs[i] = t.ConceptID
		labels[i] = t.Label
		synonyms[i] = t.Synonyms
	}
	nGramSets, searchTexts := indexTerms(s.workers, conceptIDs, labels, synonyms)

	byPrefix := make(map[model.Prefix][]mongo.WriteModel)
	for i, t := range terms {
		t.NGrams = nGramSets[i]
		t.SearchText = searchTexts[i]
		writeModel := mongo.NewUpdateOneModel().
			SetFilter(bson.M{"conceptId": t.ConceptID}).
			SetUpdate(bson.M{"$set": t}).
			SetUpsert(true)
		byPrefix[t.Prefix] = append(byPrefix[t.Prefix], writeModel)
	}

	var failures int
	for prefix, models := range byPrefix {
		res, err := s.collection(prefix).BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
		if err != nil {
			logging.DocStore("SaveTerms: bulk write error for prefix=%s: %v", prefix, err)
			failures++
			continue
		}
		logging.DocStoreDebug("SaveTerms: prefix=%s upserted=%d modified=%d", prefix, res.UpsertedCount, res.ModifiedCount)
	}
	if failures == len(byPrefix) && failures > 0 {
		return model.NewError(model.ErrTransientStore, "all prefix batches failed", nil)
	}
	return nil
}

func (s *MongoStore) CountTerms(ctx context.Context, prefix model.Prefix) (int64, error) {
	return s.collection(prefix).CountDocuments(ctx, bson.M{})
}

func (s *MongoStore) DeleteAllForLabel(ctx context.Context, prefix model.Prefix) error {
	return s.collection(prefix).Drop(ctx)
}

type mongoCursorIterator struct {
	cursor *mongo.Cursor
}

func (it *mongoCursorIterator) Next(ctx context.Context) (*model.Concept, bool, error) {
	if !it.cursor.Next(ctx) {
		if err := it.cursor.Err(); err != nil {
			return nil, false, err
		}
		return nil, false, nil
	}
	var c model.Concept
	if err := it.cursor.Decode(&c); err != nil {
		return nil, false, err
	}
	c.NGrams = nil
	c.SearchText = ""
	return &c, true, nil
}

func (it *mongoCursorIterator) Close() error { return it.cursor.Close(context.Background()) }

func (s *MongoStore) GetTermsIter(ctx context.Context, prefix model.Prefix, limit int) (ConceptIterator, error) {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := s.collection(prefix).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	return &mongoCursorIterator{cursor: cursor}, nil
}

func (s *MongoStore) GetTermsByIDsIter(ctx context.Context, prefix model.Prefix, ids []string) (ConceptIterator, error) {
	cursor, err := s.collection(prefix).Find(ctx, bson.M{"conceptId": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	return &mongoCursorIterator{cursor: cursor}, nil
}

func (s *MongoStore) AutoCompleteIter(ctx context.Context, prefix model.Prefix, query string, limit int) (ConceptIterator, error) {
	normalized := stripPunctuation(strings.ToLower(query))
	var tokens []string
	for _, t := range strings.Fields(normalized) {
		if len(t) >= 3 {
			tokens = append(tokens, t)
		}
	}
	if len(tokens) == 0 {
		return &sliceIterator{}, nil
	}
	scoreQuery := strings.Join(strings.Fields(normalized), "")

	cursor, err := s.collection(prefix).Find(ctx, bson.M{"nGrams": bson.M{"$all": tokens}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var candidates []*model.Concept
	for cursor.Next(ctx) {
		var c model.Concept
		if err := cursor.Decode(&c); err != nil {
			return nil, err
		}
		candidates = append(candidates, &c)
	}

	ranked := make([]autoCompleteRow, len(candidates))
	byID := make(map[string]*model.Concept, len(candidates))
	for i, c := range candidates {
		pos := strings.Index(c.SearchText, scoreQuery)
		labelLen := len(c.Label)
		if labelLen == 0 {
			labelLen = 999
		}
		ranked[i] = autoCompleteRow{conceptID: c.ConceptID, positionScore: pos, labelLength: labelLen}
		byID[c.ConceptID] = c
	}

	sortAutoCompleteRows(ranked)
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	results := make([]*model.Concept, len(ranked))
	for i, r := range ranked {
		c := byID[r.conceptID]
		c.NGrams = nil
		c.SearchText = ""
		results[i] = c
	}
	return &sliceIterator{items: results}, nil
}

func (s *MongoStore) UpdateVectorMapping(ctx context.Context, prefix model.Prefix, mapping map[string]string) error {
	var models []mongo.WriteModel
	for conceptID, vectorID := range mapping {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"conceptId": conceptID}).
			SetUpdate(bson.M{"$set": bson.M{"vectorId": vectorID}}))
	}
	if len(models) == 0 {
		return nil
	}
	_, err := s.collection(prefix).BulkWrite(ctx, models)
	return err
}

func (s *MongoStore) Users() UserRepository {
	return &mongoUserRepo{coll: s.db.Collection("users")}
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

type mongoUserRepo struct {
	coll *mongo.Collection
}

func (r *mongoUserRepo) Create(ctx context.Context, u *User) error {
	_, err := r.coll.InsertOne(ctx, u)
	return err
}

func (r *mongoUserRepo) Get(ctx context.Context, id string) (*User, error) {
	var u User
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *mongoUserRepo) Update(ctx context.Context, u *User) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"id": u.ID}, u)
	return err
}

func (r *mongoUserRepo) Delete(ctx context.Context, id string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	return err
}

func (r *mongoUserRepo) FindByAPIKeyHash(ctx context.Context, hashHex string) (*User, error) {
	var u User
	if err := r.coll.FindOne(ctx, bson.M{"apiKeys.hashHex": hashHex, "apiKeys.revoked": false}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}
