package main

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/CTAG07/vomarkov/pkg/corpus"
	"github.com/CTAG07/vomarkov/pkg/markov"
	"github.com/CTAG07/vomarkov/pkg/text"
)

// buildFunc builds the chain for a named corpus.
type buildFunc func(ctx context.Context, name string) (*markov.Chain[text.Token], error)

// cacheVersion identifies the state of a corpus entry. Invalidate bumps n for
// one corpus, Reset bumps epoch for all of them.
type cacheVersion struct {
	epoch uint64
	n     uint64
}

// ChainCache holds the chains built from stored corpora, keyed by corpus
// name. Chains are built on first use and kept until invalidated.
//
// Concurrent misses for the same corpus share one build. A build that
// overlaps an Invalidate is returned to its callers but never cached, so a
// chain built from tokens older than the last write cannot stick.
type ChainCache struct {
	logger *slog.Logger
	build  buildFunc
	flight singleflight.Group

	mu       sync.RWMutex
	chains   map[string]*markov.Chain[text.Token]
	versions map[string]uint64
	epoch    uint64
}

// NewChainCache creates an empty cache. A nil source leaves the chains on the
// global random source.
func NewChainCache(store *corpus.Store, source markov.Source, logger *slog.Logger) *ChainCache {
	build := func(ctx context.Context, name string) (*markov.Chain[text.Token], error) {
		info, err := store.GetCorpusInfo(ctx, name)
		if err != nil {
			return nil, err
		}
		return store.Build(ctx, info, markov.WithSource(source), markov.WithLogger(logger))
	}
	return newChainCache(build, logger)
}

func newChainCache(build buildFunc, logger *slog.Logger) *ChainCache {
	return &ChainCache{
		logger:   logger,
		build:    build,
		chains:   make(map[string]*markov.Chain[text.Token]),
		versions: make(map[string]uint64),
	}
}

// versionLocked returns the current version of name. c.mu must be held.
func (c *ChainCache) versionLocked(name string) cacheVersion {
	return cacheVersion{epoch: c.epoch, n: c.versions[name]}
}

// Get returns the chain for the named corpus, building it if needed. It
// returns sql.ErrNoRows if the corpus does not exist.
func (c *ChainCache) Get(ctx context.Context, name string) (*markov.Chain[text.Token], error) {
	c.mu.RLock()
	chain, ok := c.chains[name]
	version := c.versionLocked(name)
	c.mu.RUnlock()
	if ok {
		return chain, nil
	}

	// Keyed by version so callers arriving after an Invalidate start a fresh
	// build instead of joining one that may have read the old tokens.
	key := fmt.Sprintf("%s\x00%d\x00%d", name, version.epoch, version.n)
	result, err, shared := c.flight.Do(key, func() (any, error) {
		// The build is shared, so one caller's cancellation must not fail the rest.
		built, err := c.build(context.WithoutCancel(ctx), name)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.versionLocked(name) != version {
			c.logger.Debug("Discarding chain built before an invalidation", "corpus_name", name)
			return built, nil
		}
		c.chains[name] = built
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.Debug("Chain build shared between requests", "corpus_name", name)
	}
	return result.(*markov.Chain[text.Token]), nil
}

// Invalidate drops the cached chain for a corpus, so the next Get rebuilds it.
// Builds already in flight for the corpus will not be cached.
func (c *ChainCache) Invalidate(name string) {
	c.mu.Lock()
	c.versions[name]++
	delete(c.chains, name)
	c.mu.Unlock()
	c.logger.Debug("Chain cache entry dropped", "corpus_name", name)
}

// Reset drops every cached chain and disowns every build in flight.
func (c *ChainCache) Reset() {
	c.mu.Lock()
	c.epoch++
	clear(c.chains)
	c.mu.Unlock()
}

// Len returns the number of cached chains.
func (c *ChainCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.chains)
}
