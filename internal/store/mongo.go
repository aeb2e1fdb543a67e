package store

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"repopulse/internal/data"
)

const (
	collSnapshots    = "repository_snapshots"
	collPullRequests = "pull_requests"
)

// MongoStore is the production Store backed by a MongoDB database.
type MongoStore struct {
	client    *mongo.Client
	snapshots *mongo.Collection
	pulls     *mongo.Collection
	log       *zap.SugaredLogger
}

// NewMongoStore connects, pings, and ensures the identity indexes that make
// upserts idempotent.
func NewMongoStore(ctx context.Context, uri, database string, log *zap.SugaredLogger) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:    client,
		snapshots: db.Collection(collSnapshots),
		pulls:     db.Collection(collPullRequests),
		log:       log.Named("store.mongo"),
	}

	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

func (s *MongoStore) ensureIndexes(ctx context.Context) error {
	_, err := s.snapshots.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "target.owner", Value: 1}, {Key: "target.repo", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create snapshot index: %w", err)
	}

	_, err = s.pulls.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "repository", Value: 1}, {Key: "number", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create pull_requests index: %w", err)
	}
	return nil
}

func snapshotFilter(target data.ScanTarget) bson.M {
	return bson.M{"target.owner": target.Owner, "target.repo": target.Repo}
}

func (s *MongoStore) UpsertSnapshot(ctx context.Context, snapshot *data.RepositorySnapshot) error {
	if snapshot == nil || !snapshot.Target.Valid() {
		return fmt.Errorf("upsert snapshot: invalid target")
	}

	// ReplaceOne with upsert is a single-document write, which MongoDB
	// applies atomically; readers never observe a half-written snapshot.
	_, err := s.snapshots.ReplaceOne(ctx,
		snapshotFilter(snapshot.Target),
		snapshot,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert snapshot for %s: %w", snapshot.Target.FullName(), err)
	}
	s.log.Debugw("snapshot upserted", "target", snapshot.Target.FullName())
	return nil
}

func (s *MongoStore) UpsertPullRequests(ctx context.Context, records []data.PullRequestRecord) error {
	if len(records) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(records))
	for _, rec := range records {
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"repository": rec.Repository, "number": rec.Number}).
			SetUpdate(bson.M{"$set": rec}).
			SetUpsert(true))
	}

	res, err := s.pulls.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return fmt.Errorf("upsert pull requests: %w", err)
	}
	s.log.Debugw("pull requests upserted",
		"matched", res.MatchedCount,
		"upserted", res.UpsertedCount,
	)
	return nil
}

func (s *MongoStore) GetSnapshot(ctx context.Context, target data.ScanTarget) (*data.RepositorySnapshot, error) {
	var snap data.RepositorySnapshot
	err := s.snapshots.FindOne(ctx, snapshotFilter(target)).Decode(&snap)
	if err == mongo.ErrNoDocuments {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot for %s: %w", target.FullName(), err)
	}
	return &snap, nil
}

func (s *MongoStore) ListSnapshots(ctx context.Context) ([]data.RepositorySnapshot, error) {
	cur, err := s.snapshots.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer cur.Close(ctx)

	var out []data.RepositorySnapshot
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode snapshots: %w", err)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Target.FullName() < out[j].Target.FullName()
	})
	return out, nil
}

func (s *MongoStore) ListPullRequests(ctx context.Context, repository string) ([]data.PullRequestRecord, error) {
	cur, err := s.pulls.Find(ctx, bson.M{"repository": repository},
		options.Find().SetSort(bson.D{{Key: "number", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list pull requests for %s: %w", repository, err)
	}
	defer cur.Close(ctx)

	var out []data.PullRequestRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode pull requests: %w", err)
	}
	return out, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
