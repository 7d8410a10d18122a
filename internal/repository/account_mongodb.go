package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"chatbot-economy-api/internal/logging"
	"chatbot-economy-api/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// maxMongoAttempts bounds optimistic retries on version conflicts.
const maxMongoAttempts = 5

var errVersionConflict = errors.New("concurrent modification")

// MongoAccountStore implements Backend using MongoDB.
// Single-account writes use a version compare-and-swap; pair writes run
// inside a session transaction, which needs a replica set.
type MongoAccountStore struct {
	client   *mongo.Client
	db       *mongo.Database
	accounts *mongo.Collection
	journal  *mongo.Collection
	now      func() time.Time
}

// NewMongoAccountStore connects to MongoDB and prepares the collections.
func NewMongoAccountStore(uri, database string) (*MongoAccountStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(5 * time.Minute).
		SetRetryWrites(true)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	db := client.Database(database)
	journal := db.Collection("ledger_journal")

	indexModel := mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	}
	if _, err := journal.Indexes().CreateOne(ctx, indexModel); err != nil {
		logging.Component("mongo-store").Warnf("failed to create journal index: %v", err)
	}

	logging.Component("mongo-store").Infof("Connected to %s", database)
	return &MongoAccountStore{
		client:   client,
		db:       db,
		accounts: db.Collection("economy_accounts"),
		journal:  journal,
		now:      time.Now,
	}, nil
}

// Get returns the account or model.ErrAccountNotFound.
func (r *MongoAccountStore) Get(ctx context.Context, userID string) (model.Account, error) {
	acc, found, err := r.load(ctx, userID)
	if err != nil {
		return model.Account{}, err
	}
	if !found {
		return model.Account{}, model.ErrAccountNotFound
	}
	return acc, nil
}

func (r *MongoAccountStore) find(res *mongo.SingleResult) (model.Account, bool, error) {
	var acc model.Account
	err := res.Decode(&acc)
	if err == mongo.ErrNoDocuments {
		return model.Account{}, false, nil
	}
	if err != nil {
		return model.Account{}, false, model.Unavailable("get account", err)
	}
	if acc.Inventory == nil {
		acc.Inventory = []model.InventoryItem{}
	}
	return acc, true, nil
}

// GetOrCreate returns the account, creating it with defaults when missing.
func (r *MongoAccountStore) GetOrCreate(ctx context.Context, userID string) (model.Account, error) {
	return r.Update(ctx, userID, func(acc model.Account) (model.Account, error) {
		return acc, ErrNoChange
	})
}

// Update runs fn against the latest state, creating the account when missing.
func (r *MongoAccountStore) Update(ctx context.Context, userID string, fn MutateFunc) (model.Account, error) {
	return r.update(ctx, userID, true, fn)
}

// UpdateExisting is Update without lazy creation.
func (r *MongoAccountStore) UpdateExisting(ctx context.Context, userID string, fn MutateFunc) (model.Account, error) {
	return r.update(ctx, userID, false, fn)
}

func (r *MongoAccountStore) update(ctx context.Context, userID string, create bool, fn MutateFunc) (model.Account, error) {
	if err := validateID(userID); err != nil {
		return model.Account{}, err
	}
	return casUpdate(ctx, r, userID, create, r.now, fn)
}

// versionedDocs is the document access casUpdate needs.
type versionedDocs interface {
	load(ctx context.Context, userID string) (model.Account, bool, error)
	// swap inserts next when exists is false, else replaces the stored
	// document only if its version still equals current's. A lost race
	// is errVersionConflict.
	swap(ctx context.Context, current, next model.Account, exists bool) error
}

// casUpdate runs fn against the latest document and retries lost races up
// to maxMongoAttempts times before giving up with ErrStoreUnavailable.
func casUpdate(ctx context.Context, docs versionedDocs, userID string, create bool, now func() time.Time, fn MutateFunc) (model.Account, error) {
	for attempt := 0; attempt < maxMongoAttempts; attempt++ {
		current, exists, err := docs.load(ctx, userID)
		if err != nil {
			return model.Account{}, err
		}
		if !exists {
			if !create {
				return model.Account{}, model.ErrAccountNotFound
			}
			current = model.NewAccount(userID, now())
		}

		next, write, err := applyMutation(current, fn, now())
		if err != nil {
			return model.Account{}, err
		}
		if !write && exists {
			return current, nil
		}

		err = docs.swap(ctx, current, next, exists)
		if errors.Is(err, errVersionConflict) {
			continue
		}
		if err != nil {
			return model.Account{}, err
		}
		return next, nil
	}
	return model.Account{}, model.Unavailable("update account", errVersionConflict)
}

func (r *MongoAccountStore) load(ctx context.Context, userID string) (model.Account, bool, error) {
	return r.find(r.accounts.FindOne(ctx, bson.M{"_id": userID}))
}

// swap inserts a new document or replaces an existing one if its version is unchanged.
func (r *MongoAccountStore) swap(ctx context.Context, current, next model.Account, exists bool) error {
	if !exists {
		_, err := r.accounts.InsertOne(ctx, next)
		if mongo.IsDuplicateKeyError(err) {
			return errVersionConflict
		}
		if err != nil {
			return model.Unavailable("insert account", err)
		}
		return nil
	}

	filter := bson.M{"_id": current.UserID, "version": current.Version}
	res, err := r.accounts.ReplaceOne(ctx, filter, next)
	if err != nil {
		return model.Unavailable("replace account", err)
	}
	if res.MatchedCount == 0 {
		return errVersionConflict
	}
	return nil
}

// UpdatePair mutates two accounts inside a MongoDB transaction.
func (r *MongoAccountStore) UpdatePair(ctx context.Context, firstID, secondID string, fn PairMutateFunc) (model.Account, model.Account, error) {
	if err := validatePair(firstID, secondID); err != nil {
		return model.Account{}, model.Account{}, err
	}

	session, err := r.client.StartSession()
	if err != nil {
		return model.Account{}, model.Account{}, model.Unavailable("start session", err)
	}
	defer session.EndSession(ctx)

	var first, second model.Account
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		now := r.now()
		loaded := make([]model.Account, 2)
		existed := make([]bool, 2)
		for i, id := range []string{firstID, secondID} {
			acc, ok, err := r.load(sc, id)
			if err != nil {
				return nil, err
			}
			if !ok {
				acc = model.NewAccount(id, now)
			}
			loaded[i], existed[i] = acc, ok
		}

		nextFirst, nextSecond, write, err := applyPair(loaded[0], loaded[1], fn, now)
		if err != nil {
			return nil, mutationError{err}
		}
		if write {
			for i, next := range []model.Account{nextFirst, nextSecond} {
				if err := r.swap(sc, loaded[i], next, existed[i]); err != nil {
					return nil, err
				}
			}
		}
		first, second = nextFirst, nextSecond
		return nil, nil
	})
	if err != nil {
		return model.Account{}, model.Account{}, unwrapMutation("update account pair", err)
	}
	return first, second, nil
}

// ListIDs returns every stored user id.
func (r *MongoAccountStore) ListIDs(ctx context.Context) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.accounts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, model.Unavailable("list accounts", err)
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc struct {
			ID string `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, model.Unavailable("decode account id", err)
		}
		ids = append(ids, doc.ID)
	}
	return ids, cursor.Err()
}

// Append inserts journal entries.
func (r *MongoAccountStore) Append(ctx context.Context, entries ...model.JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}

	docs := make([]interface{}, len(entries))
	for i, e := range entries {
		docs[i] = e
	}
	opts := options.InsertMany().SetOrdered(false)
	if _, err := r.journal.InsertMany(ctx, docs, opts); err != nil {
		return fmt.Errorf("failed to insert journal entries: %w", err)
	}
	return nil
}

// ListByUser returns the newest entries of userID first.
func (r *MongoAccountStore) ListByUser(ctx context.Context, userID string, limit int) ([]model.JournalEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.journal.Find(ctx, bson.M{"user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list journal: %w", err)
	}
	defer cursor.Close(ctx)

	out := []model.JournalEntry{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode journal: %w", err)
	}
	return out, nil
}

// Stats returns statistics about the account collection.
func (r *MongoAccountStore) Stats(ctx context.Context) (map[string]interface{}, error) {
	stats := make(map[string]interface{})
	stats["status"] = "connected"

	count, err := r.accounts.CountDocuments(ctx, bson.M{})
	if err != nil {
		return stats, err
	}
	stats["total_accounts"] = count

	result := r.db.RunCommand(ctx, bson.D{{Key: "collStats", Value: r.accounts.Name()}})
	var collStats bson.M
	if err := result.Decode(&collStats); err == nil {
		if size, ok := collStats["size"].(int64); ok {
			stats["db_size_bytes"] = size
		} else if size, ok := collStats["size"].(int32); ok {
			stats["db_size_bytes"] = int64(size)
		}
	}

	return stats, nil
}

// Close closes the MongoDB connection.
func (r *MongoAccountStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

var _ Backend = (*MongoAccountStore)(nil)
