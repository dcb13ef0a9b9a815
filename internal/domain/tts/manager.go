// Package tts hosts the model manager that owns engine lifecycles and
// serves synthesis requests against the variant catalog.
package tts

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/leechanwoo-kor/chatterbox/internal/domain/tts/cache"
	"github.com/leechanwoo-kor/chatterbox/internal/domain/tts/inter"
	"github.com/leechanwoo-kor/chatterbox/internal/platform/errors"
	"github.com/leechanwoo-kor/chatterbox/internal/utils"
)

// Manager lazily loads model variants on first use and keeps them
// resident. Loads for the same variant are collapsed so concurrent
// first requests trigger exactly one load.
type Manager struct {
	factory inter.EngineFactory
	cache   cache.Store
	device  string
	logger  *utils.Logger

	group   singleflight.Group
	mu      sync.RWMutex
	engines map[string]inter.Engine
}

// NewManager wires a manager. A nil store disables caching.
func NewManager(factory inter.EngineFactory, store cache.Store, device string, logger *utils.Logger) (*Manager, error) {
	if factory == nil {
		return nil, errors.New(errors.KindModel, "manager.new", "engine factory is required")
	}
	if store == nil {
		store = cache.NewNoop()
	}
	return &Manager{
		factory: factory,
		cache:   store,
		device:  device,
		logger:  logger,
		engines: make(map[string]inter.Engine),
	}, nil
}

// Device reports the compute device engines are loaded on.
func (m *Manager) Device() string { return m.device }

// Engine returns the engine for variant, loading it on first use.
func (m *Manager) Engine(ctx context.Context, variant string) (inter.Engine, error) {
	if _, err := LookupVariant(variant); err != nil {
		return nil, err
	}

	m.mu.RLock()
	eng, ok := m.engines[variant]
	m.mu.RUnlock()
	if ok {
		return eng, nil
	}

	v, err, _ := m.group.Do(variant, func() (any, error) {
		m.mu.RLock()
		eng, ok := m.engines[variant]
		m.mu.RUnlock()
		if ok {
			return eng, nil
		}

		if m.logger != nil {
			m.logger.InfoTag("Model", "loading %s on %s", variant, m.device)
		}
		loaded, err := m.factory.Load(ctx, variant, m.device)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.engines[variant] = loaded
		m.mu.Unlock()
		if m.logger != nil {
			m.logger.InfoTag("Model", "%s loaded", variant)
		}
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(inter.Engine), nil
}

// Preload loads the given variants up front. The first failure aborts.
func (m *Manager) Preload(ctx context.Context, variants []string) error {
	for _, variant := range variants {
		if _, err := m.Engine(ctx, variant); err != nil {
			return fmt.Errorf("preload %s: %w", variant, err)
		}
	}
	return nil
}

// LoadedVariants lists resident variants in stable order.
func (m *Manager) LoadedVariants() []string {
	m.mu.RLock()
	names := make([]string, 0, len(m.engines))
	for name := range m.engines {
		names = append(names, name)
	}
	m.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Synthesize renders text with the requested variant, consulting the
// cache first. Results are cached on success.
func (m *Manager) Synthesize(ctx context.Context, variant string, req inter.SynthesizeRequest) (*inter.SynthesizeResult, error) {
	const op = "manager.synthesize"

	v, err := LookupVariant(variant)
	if err != nil {
		return nil, err
	}
	if req.LanguageID != "" && !v.SupportsLanguage(req.LanguageID) {
		return nil, errors.New(errors.KindModel, op,
			fmt.Sprintf("model %s does not support language %q", variant, req.LanguageID))
	}

	voiceDigest := ""
	if req.VoicePath != "" {
		voiceDigest, err = digestFile(req.VoicePath)
		if err != nil {
			return nil, errors.Wrap(errors.KindAudio, op, "read reference voice", err)
		}
	}
	key := cache.Key(variant, req.Text, req.LanguageID, voiceDigest)

	if entry, ok, err := m.cache.Get(ctx, key); err != nil {
		if m.logger != nil {
			m.logger.WarnTag("Cache", "lookup failed: %v", err)
		}
	} else if ok {
		if m.logger != nil {
			m.logger.DebugTag("Cache", "hit for %s", variant)
		}
		return &inter.SynthesizeResult{Audio: entry.Audio, SampleRate: entry.SampleRate}, nil
	}

	eng, err := m.Engine(ctx, variant)
	if err != nil {
		return nil, err
	}
	result, err := eng.Generate(ctx, req)
	if err != nil {
		if errors.IsKind(err, errors.KindEngine) {
			m.evict(variant, eng)
		}
		return nil, err
	}

	if err := m.cache.Put(ctx, variant, key, cache.Entry{
		Audio:      result.Audio,
		SampleRate: result.SampleRate,
	}); err != nil && m.logger != nil {
		m.logger.WarnTag("Cache", "store failed: %v", err)
	}
	return result, nil
}

// evict drops a dead engine so the next request loads a fresh one.
func (m *Manager) evict(variant string, eng inter.Engine) {
	m.mu.Lock()
	if current, ok := m.engines[variant]; ok && current == eng {
		delete(m.engines, variant)
	}
	m.mu.Unlock()
	eng.Close()
	if m.logger != nil {
		m.logger.WarnTag("Model", "evicted %s after engine failure", variant)
	}
}

// CacheStats exposes the cache backend's counters.
func (m *Manager) CacheStats(ctx context.Context) (map[string]any, error) {
	return m.cache.Stats(ctx)
}

// Close shuts down all resident engines and the cache.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	engines := m.engines
	m.engines = make(map[string]inter.Engine)
	m.mu.Unlock()

	var firstErr error
	for variant, eng := range engines {
		if err := eng.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close %s: %w", variant, err)
		}
	}
	if err := m.cache.Close(ctx); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func digestFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
