package cache

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/emrgen/grantcore/internal/model"
)

const maxWatchRetries = 3

func documentKey(id string) string {
	return "document:" + id
}

// NewRedisClient connects to redis at addr.
func NewRedisClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		Protocol: 2,
	})
}

var _ DocumentCache = (*RedisDocumentCache)(nil)

// RedisDocumentCache keeps document snapshots as JSON under document:<id>
// and the head version of every cached document in the document:head hash.
type RedisDocumentCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDocumentCache(client *redis.Client, ttl time.Duration) *RedisDocumentCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisDocumentCache{client: client, ttl: ttl}
}

func (r *RedisDocumentCache) GetDocument(ctx context.Context, id uuid.UUID) (*model.Document, error) {
	res := r.client.Get(ctx, documentKey(id.String()))
	if res.Err() != nil {
		if errors.Is(res.Err(), redis.Nil) {
			return nil, nil
		}
		return nil, res.Err()
	}

	buf, err := res.Bytes()
	if err != nil {
		return nil, err
	}

	doc := &model.Document{}
	if err := doc.UnmarshalBinary(buf); err != nil {
		return nil, err
	}

	return doc, nil
}

// SetDocument uses an optimistic redis transaction so a slow reader can not
// put back a snapshot older than the one a writer just stored.
func (r *RedisDocumentCache) SetDocument(ctx context.Context, doc *model.Document) error {
	key := documentKey(doc.ID.String())
	marshal, err := doc.MarshalBinary()
	if err != nil {
		return err
	}

	txf := func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			cached := &model.Document{}
			if cached.UnmarshalBinary(current) == nil && newer(cached, doc) {
				return nil
			}
		}

		_, err = tx.TxPipelined(ctx, func(p redis.Pipeliner) error {
			p.Set(ctx, key, marshal, r.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err = r.client.Watch(ctx, txf, key)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
	}

	logrus.Warnf("gave up caching document %s after %d contended attempts", doc.ID, maxWatchRetries)
	return nil
}

func (r *RedisDocumentCache) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	return r.client.Del(ctx, documentKey(id.String())).Err()
}
