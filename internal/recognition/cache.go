package recognition

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/pricelens/pricelens/internal/storage"
	"github.com/rs/zerolog/log"
)

// CachedRecognizer wraps a Recognizer with a content-addressed cache.
// Cache failures are never fatal; they only cost a backend call.
type CachedRecognizer struct {
	inner Recognizer
	mode  string
	store storage.Store
}

// NewCachedRecognizer creates a caching decorator around inner. The mode is
// part of the cache key: the two variants see different things in the same
// image.
func NewCachedRecognizer(inner Recognizer, mode string, store storage.Store) *CachedRecognizer {
	return &CachedRecognizer{inner: inner, mode: mode, store: store}
}

// HashImage creates a hex sha256 of the image bytes for cache keying.
func HashImage(image []byte) string {
	sum := sha256.Sum256(image)
	return hex.EncodeToString(sum[:])
}

// Recognize implements Recognizer with caching.
func (c *CachedRecognizer) Recognize(ctx context.Context, image []byte) ([]Match, error) {
	hash := c.mode + ":" + HashImage(image)

	if c.store != nil {
		cached, ok, err := c.store.Get(storage.KindRecognition, hash)
		if err != nil {
			log.Warn().Err(err).Msg("failed to check recognition cache")
		} else if ok {
			var matches []Match
			if err := json.Unmarshal([]byte(cached), &matches); err != nil {
				log.Warn().Err(err).Msg("failed to decode cached recognition entry")
			} else {
				log.Debug().Str("hash", hash[:16]).Msg("recognition cache hit")
				return matches, nil
			}
		}
	}

	matches, err := c.inner.Recognize(ctx, image)
	if err != nil {
		return nil, err
	}

	if c.store != nil {
		encoded, err := json.Marshal(matches)
		if err == nil {
			if err := c.store.Set(storage.KindRecognition, hash, string(encoded)); err != nil {
				log.Warn().Err(err).Msg("failed to cache recognition result")
			} else {
				log.Debug().Str("hash", hash[:16]).Msg("cached recognition result")
			}
		}
	}

	return matches, nil
}
