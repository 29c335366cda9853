package storage

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dshelkov/imagestore/core"
	apperrors "github.com/dshelkov/imagestore/errors"
)

// Redis persists image blobs, entity records and metadata documents in a
// redis-compatible store.  Inject any go-redis UniversalClient (single node,
// sentinel, or cluster).
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis creates a Redis adapter.  prefix namespaces all keys; pass an
// empty string for the default "imagestore".
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	if prefix == "" {
		prefix = "imagestore"
	}
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) blobKey(accountKey, imageID string) string {
	return r.prefix + ":blob:" + accountKey + ":" + imageID
}

func (r *Redis) entityKey(accountKey, imageID string) string {
	return r.prefix + ":entity:" + accountKey + ":" + imageID
}

func (r *Redis) metaKey(accountKey, imageID string) string {
	return r.prefix + ":meta:" + accountKey + ":" + imageID
}

func (r *Redis) modKey(accountKey, imageID string) string {
	return r.prefix + ":mod:" + accountKey + ":" + imageID
}

func (r *Redis) touch(ctx context.Context, accountKey, imageID string) error {
	return r.client.Set(ctx, r.modKey(accountKey, imageID),
		time.Now().UTC().Format(time.RFC3339Nano), 0).Err()
}

func (r *Redis) InsertImage(ctx context.Context, accountKey, imageID string, img *core.Image) error {
	// SET is idempotent; duplicate identical content overwrites with the
	// same bytes, satisfying the insert no-op rule.
	if err := r.client.Set(ctx, r.blobKey(accountKey, imageID), img.Blob, 0).Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "redis.insert.blob", err)
	}
	entity := map[string]interface{}{
		"media_type": string(img.MediaType),
		"extension":  img.Extension,
		"size":       img.Size,
		"width":      img.Width,
		"height":     img.Height,
		"added_at":   img.AddedAt.UTC().Format(time.RFC3339Nano),
	}
	if err := r.client.HSet(ctx, r.entityKey(accountKey, imageID), entity).Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "redis.insert.entity", err)
	}
	if err := r.touch(ctx, accountKey, imageID); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "redis.insert.touch", err)
	}
	return nil
}

func (r *Redis) DeleteImage(ctx context.Context, accountKey, imageID string) error {
	removed, err := r.client.Del(ctx, r.blobKey(accountKey, imageID)).Result()
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "redis.delete", err)
	}
	if removed == 0 {
		return notFound("redis.delete", accountKey, imageID)
	}
	r.client.Del(ctx, r.entityKey(accountKey, imageID),
		r.metaKey(accountKey, imageID), r.modKey(accountKey, imageID))
	return nil
}

func (r *Redis) Load(ctx context.Context, accountKey, imageID string, img *core.Image) error {
	blob, err := r.client.Get(ctx, r.blobKey(accountKey, imageID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return notFound("redis.load", accountKey, imageID)
		}
		return apperrors.Wrap(apperrors.CategoryStorage, "redis.load.blob", err)
	}
	entity, err := r.client.HGetAll(ctx, r.entityKey(accountKey, imageID)).Result()
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "redis.load.entity", err)
	}

	img.ID = imageID
	img.AccountKey = accountKey
	img.MediaType = core.MediaType(entity["media_type"])
	img.Extension = entity["extension"]
	img.Blob = blob
	img.Size, _ = strconv.ParseInt(entity["size"], 10, 64)
	img.Width, _ = strconv.Atoi(entity["width"])
	img.Height, _ = strconv.Atoi(entity["height"])
	if t, err := time.Parse(time.RFC3339Nano, entity["added_at"]); err == nil {
		img.AddedAt = t
	}
	img.Transformed = false
	return nil
}

func (r *Redis) UpdateMetadata(ctx context.Context, accountKey, imageID string, doc map[string]string) error {
	if len(doc) > 0 {
		fields := make(map[string]interface{}, len(doc))
		for k, v := range doc {
			fields[k] = v
		}
		if err := r.client.HSet(ctx, r.metaKey(accountKey, imageID), fields).Err(); err != nil {
			return apperrors.Wrap(apperrors.CategoryStorage, "redis.metadata.update", err)
		}
	}
	if err := r.touch(ctx, accountKey, imageID); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "redis.metadata.touch", err)
	}
	return nil
}

func (r *Redis) DeleteMetadata(ctx context.Context, accountKey, imageID string) error {
	if err := r.client.Del(ctx, r.metaKey(accountKey, imageID)).Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "redis.metadata.delete", err)
	}
	if err := r.touch(ctx, accountKey, imageID); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "redis.metadata.touch", err)
	}
	return nil
}

func (r *Redis) GetMetadata(ctx context.Context, accountKey, imageID string) (map[string]string, error) {
	doc, err := r.client.HGetAll(ctx, r.metaKey(accountKey, imageID)).Result()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "redis.metadata.get", err)
	}
	if len(doc) == 0 {
		return nil, notFound("redis.metadata.get", accountKey, imageID)
	}
	return doc, nil
}

func (r *Redis) GetLastModified(ctx context.Context, accountKey, imageID string) (time.Time, error) {
	raw, err := r.client.Get(ctx, r.modKey(accountKey, imageID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, notFound("redis.lastmodified", accountKey, imageID)
		}
		return time.Time{}, apperrors.Wrap(apperrors.CategoryStorage, "redis.lastmodified", err)
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, apperrors.Wrap(apperrors.CategoryStorage, "redis.lastmodified", err)
	}
	return t, nil
}
