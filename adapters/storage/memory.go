// Package storage provides StorageAdapter / MetadataAdapter implementations.
package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dshelkov/imagestore/core"
	apperrors "github.com/dshelkov/imagestore/errors"
	"github.com/dshelkov/imagestore/utils"
)

// Memory keeps images and metadata in process memory.  Intended for tests
// and examples; safe for concurrent use.
type Memory struct {
	mu       sync.RWMutex
	images   map[string]core.Image
	metadata map[string]map[string]string
	modified map[string]time.Time
}

// NewMemory returns an empty in-memory adapter pair.
func NewMemory() *Memory {
	return &Memory{
		images:   make(map[string]core.Image),
		metadata: make(map[string]map[string]string),
		modified: make(map[string]time.Time),
	}
}

func memKey(accountKey, imageID string) string { return accountKey + "/" + imageID }

func notFound(op, accountKey, imageID string) error {
	return apperrors.New(apperrors.CategoryNotFound, op,
		fmt.Errorf("%w: %s/%s", apperrors.ErrNotFound, accountKey, imageID))
}

func (m *Memory) InsertImage(ctx context.Context, accountKey, imageID string, img *core.Image) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "memory.insert", err)
	}
	key := memKey(accountKey, imageID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.images[key]; ok {
		// Content-addressing: an existing identifier means byte-identical
		// content, so re-insertion is a no-op rather than an error.
		return nil
	}
	stored := *img
	stored.Blob = utils.CloneBytes(img.Blob)
	stored.Transformed = false
	m.images[key] = stored
	m.modified[key] = time.Now().UTC()
	return nil
}

func (m *Memory) DeleteImage(ctx context.Context, accountKey, imageID string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "memory.delete", err)
	}
	key := memKey(accountKey, imageID)

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.images[key]; !ok {
		return notFound("memory.delete", accountKey, imageID)
	}
	delete(m.images, key)
	delete(m.metadata, key)
	delete(m.modified, key)
	return nil
}

func (m *Memory) Load(ctx context.Context, accountKey, imageID string, img *core.Image) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "memory.load", err)
	}
	key := memKey(accountKey, imageID)

	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.images[key]
	if !ok {
		return notFound("memory.load", accountKey, imageID)
	}
	*img = stored
	img.Blob = utils.CloneBytes(stored.Blob)
	return nil
}

func (m *Memory) UpdateMetadata(ctx context.Context, accountKey, imageID string, doc map[string]string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "memory.metadata.update", err)
	}
	key := memKey(accountKey, imageID)

	m.mu.Lock()
	defer m.mu.Unlock()
	merged := make(map[string]string, len(doc))
	for k, v := range m.metadata[key] {
		merged[k] = v
	}
	for k, v := range doc {
		merged[k] = v
	}
	m.metadata[key] = merged
	m.modified[key] = time.Now().UTC()
	return nil
}

func (m *Memory) DeleteMetadata(ctx context.Context, accountKey, imageID string) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(apperrors.CategoryStorage, "memory.metadata.delete", err)
	}
	key := memKey(accountKey, imageID)

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.metadata, key)
	m.modified[key] = time.Now().UTC()
	return nil
}

func (m *Memory) GetMetadata(ctx context.Context, accountKey, imageID string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.CategoryStorage, "memory.metadata.get", err)
	}
	key := memKey(accountKey, imageID)

	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.metadata[key]
	if !ok {
		return nil, notFound("memory.metadata.get", accountKey, imageID)
	}
	out := make(map[string]string, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out, nil
}

func (m *Memory) GetLastModified(ctx context.Context, accountKey, imageID string) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, apperrors.Wrap(apperrors.CategoryStorage, "memory.lastmodified", err)
	}
	key := memKey(accountKey, imageID)

	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.modified[key]
	if !ok {
		return time.Time{}, notFound("memory.lastmodified", accountKey, imageID)
	}
	return t, nil
}

// ImageCount reports the number of stored images; used by tests to verify
// the insert idempotency rule.
func (m *Memory) ImageCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.images)
}
