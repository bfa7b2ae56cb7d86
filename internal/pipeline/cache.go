package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/MeKo-Tech/filingocr/internal/cache"
	"github.com/MeKo-Tech/filingocr/internal/extraction"
	"github.com/MeKo-Tech/filingocr/internal/strategy"
)

// Cache is the byte store behind result caching; cache.Client satisfies it.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CacheKey identifies the final result of doc under this pipeline's
// configuration. Changing the content, the caller-supplied metadata, or any
// setting that affects the outcome changes the key.
func (p *Pipeline) CacheKey(doc *extraction.Document) string {
	h := sha256.New()
	for _, part := range []string{
		doc.Fingerprint(),
		string(doc.FilingType),
		strconv.Itoa(doc.ExpectedPageCount),
		p.configKey,
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return "result:" + hex.EncodeToString(h.Sum(nil))
}

func (p *Pipeline) lookup(ctx context.Context, doc *extraction.Document) (*extraction.Result, bool) {
	if p.cache == nil {
		return nil, false
	}
	data, err := p.cache.Get(ctx, p.CacheKey(doc))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			p.logger.Warn("Cache lookup failed", "document_id", doc.ID, "error", err)
		}
		return nil, false
	}
	var r extraction.Result
	if err := json.Unmarshal(data, &r); err != nil {
		p.logger.Warn("Discarding unreadable cache entry", "document_id", doc.ID, "error", err)
		return nil, false
	}
	r.DocumentID = doc.ID
	return &r, true
}

func (p *Pipeline) store(ctx context.Context, doc *extraction.Document, r *extraction.Result) {
	if p.cache == nil {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		p.logger.Warn("Result not cached", "document_id", doc.ID, "error", err)
		return
	}
	if err := p.cache.Set(ctx, p.CacheKey(doc), data, p.cacheTTL); err != nil {
		p.logger.Warn("Result not cached", "document_id", doc.ID, "error", err)
	}
}

type strategyKey struct {
	Descriptor  strategy.Descriptor `json:"descriptor"`
	Fingerprint string              `json:"fingerprint"`
}

func configFingerprint(cfg Config, strategies []strategy.Strategy) string {
	keys := make([]strategyKey, len(strategies))
	for i, s := range strategies {
		keys[i] = strategyKey{Descriptor: s.Descriptor(), Fingerprint: strategy.FingerprintOf(s)}
	}
	data, _ := json.Marshal(struct {
		Config     Config        `json:"config"`
		Strategies []strategyKey `json:"strategies"`
	}{cfg, keys})
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
