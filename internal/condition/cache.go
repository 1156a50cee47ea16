package condition

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/pricelens/pricelens/internal/storage"
	"github.com/rs/zerolog/log"
)

// CachedAssessor wraps an Assessor with a content-addressed cache. Condition
// depends only on the photo, so the image hash alone is the key.
type CachedAssessor struct {
	inner Assessor
	store storage.Store
}

// NewCachedAssessor creates a caching decorator around inner.
func NewCachedAssessor(inner Assessor, store storage.Store) *CachedAssessor {
	return &CachedAssessor{inner: inner, store: store}
}

// Assess implements Assessor with caching.
func (c *CachedAssessor) Assess(ctx context.Context, image []byte, description string) (string, error) {
	sum := sha256.Sum256(image)
	hash := hex.EncodeToString(sum[:])

	if c.store != nil {
		cached, ok, err := c.store.Get(storage.KindCondition, hash)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check condition cache")
		} else if ok {
			log.Debug().Str("hash", hash[:16]).Msg("condition cache hit")
			return cached, nil
		}
	}

	assessment, err := c.inner.Assess(ctx, image, description)
	if err != nil {
		return "", err
	}

	if c.store != nil {
		if err := c.store.Set(storage.KindCondition, hash, assessment); err != nil {
			log.Warn().Err(err).Msg("failed to cache condition assessment")
		}
	}

	return assessment, nil
}
