package storage

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/dshelkov/imagestore/core"
	apperrors "github.com/dshelkov/imagestore/errors"
)

// Local stores image blobs on the local filesystem with JSON side-car files
// for the entity record and the metadata document.
type Local struct {
	rootDir     string
	permissions os.FileMode
}

// localEntity is the persisted shape of an Image record, blob excluded.
type localEntity struct {
	MediaType core.MediaType `json:"media_type"`
	Extension string         `json:"extension"`
	Size      int64          `json:"size"`
	Width     int            `json:"width"`
	Height    int            `json:"height"`
	AddedAt   time.Time      `json:"added_at"`
}

// NewLocal creates a Local adapter rooted at dir.
func NewLocal(dir string, perm os.FileMode) (*Local, error) {
	if perm == 0 {
		perm = 0o644
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.mkdir", err)
	}
	return &Local{rootDir: dir, permissions: perm}, nil
}

func (l *Local) blobPath(accountKey, imageID string) string {
	// Shard by the first hex byte of the identifier to keep directories flat.
	shard := imageID
	if len(shard) > 2 {
		shard = shard[:2]
	}
	return filepath.Join(l.rootDir, filepath.Clean(accountKey), shard, imageID)
}

func (l *Local) writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, l.permissions)
}

func (l *Local) InsertImage(ctx context.Context, accountKey, imageID string, img *core.Image) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.insert", err)
	}
	path := l.blobPath(accountKey, imageID)
	if _, err := os.Stat(path); err == nil {
		// Duplicate identical content; overwrite would be byte-identical.
		return nil
	}
	if err := l.writeFile(path, img.Blob); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.insert.blob", err)
	}
	entity, err := json.Marshal(localEntity{
		MediaType: img.MediaType,
		Extension: img.Extension,
		Size:      img.Size,
		Width:     img.Width,
		Height:    img.Height,
		AddedAt:   img.AddedAt,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.insert.entity", err)
	}
	if err := l.writeFile(path+".entity.json", entity); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.insert.entity", err)
	}
	return nil
}

func (l *Local) DeleteImage(ctx context.Context, accountKey, imageID string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.delete", err)
	}
	path := l.blobPath(accountKey, imageID)
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return notFound("local.delete", accountKey, imageID)
		}
		return apperrors.Wrap(apperrors.CategoryStorage, "local.delete", err)
	}
	_ = os.Remove(path + ".entity.json")
	_ = os.Remove(path + ".meta.json")
	return nil
}

func (l *Local) Load(ctx context.Context, accountKey, imageID string, img *core.Image) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.load", err)
	}
	path := l.blobPath(accountKey, imageID)

	blob, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return notFound("local.load", accountKey, imageID)
		}
		return apperrors.Wrap(apperrors.CategoryStorage, "local.load.blob", err)
	}
	raw, err := os.ReadFile(path + ".entity.json")
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.load.entity", err)
	}
	var entity localEntity
	if err := json.Unmarshal(raw, &entity); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.load.entity", err)
	}

	img.ID = imageID
	img.AccountKey = accountKey
	img.MediaType = entity.MediaType
	img.Extension = entity.Extension
	img.Size = entity.Size
	img.Width = entity.Width
	img.Height = entity.Height
	img.Blob = blob
	img.AddedAt = entity.AddedAt
	img.Transformed = false
	return nil
}

func (l *Local) UpdateMetadata(ctx context.Context, accountKey, imageID string, doc map[string]string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.metadata.update", err)
	}
	path := l.blobPath(accountKey, imageID) + ".meta.json"

	merged := make(map[string]string, len(doc))
	if raw, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(raw, &merged)
	}
	for k, v := range doc {
		merged[k] = v
	}
	raw, err := json.Marshal(merged)
	if err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.metadata.update", err)
	}
	if err := l.writeFile(path, raw); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.metadata.update", err)
	}
	return nil
}

func (l *Local) DeleteMetadata(ctx context.Context, accountKey, imageID string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.metadata.delete", err)
	}
	path := l.blobPath(accountKey, imageID) + ".meta.json"
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return apperrors.Wrap(apperrors.CategoryStorage, "local.metadata.delete", err)
	}
	return nil
}

func (l *Local) GetMetadata(ctx context.Context, accountKey, imageID string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.metadata.get", err)
	}
	raw, err := os.ReadFile(l.blobPath(accountKey, imageID) + ".meta.json")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, notFound("local.metadata.get", accountKey, imageID)
		}
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.metadata.get", err)
	}
	doc := make(map[string]string)
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "local.metadata.get", err)
	}
	return doc, nil
}

func (l *Local) GetLastModified(ctx context.Context, accountKey, imageID string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, apperrors.Wrap(apperrors.CategoryStorage, "local.lastmodified", err)
	}
	path := l.blobPath(accountKey, imageID)

	latest := time.Time{}
	found := false
	for _, p := range []string{path, path + ".entity.json", path + ".meta.json"} {
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		found = true
		if fi.ModTime().After(latest) {
			latest = fi.ModTime()
		}
	}
	if !found {
		return time.Time{}, notFound("local.lastmodified", accountKey, imageID)
	}
	return latest.UTC(), nil
}
