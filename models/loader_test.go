// Copyright 2025 LLM Shield Authors
// SPDX-License-Identifier: Apache-2.0

package models

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession counts closes and returns canned logits.
type fakeSession struct {
	logits []float32

	mu     sync.Mutex
	closed int
}

func (f *fakeSession) Run(enc Encoding) ([]float32, error) {
	return f.logits, nil
}

func (f *fakeSession) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// newTestLoader wires a Loader over a file:// registry and a fake
// session constructor, returning the loader and the catalog key.
func newTestLoader(t *testing.T, construct func(path string) (Session, error)) (*Loader, ModelKey) {
	t.Helper()

	modelData := []byte("model bytes")
	url := writeModelSource(t, modelData)
	yaml := catalogYAML(t.TempDir(),
		catalogEntry("prompt_injection", "fp16", url, sha256Hex(modelData)))
	reg, err := ParseRegistry(yaml)
	require.NoError(t, err)
	reg.SetLogger(nil)

	loader := NewLoader(reg, nil)
	loader.newSession = construct
	return loader, ModelKey{TaskPromptInjection, VariantFP16}
}

func TestLoaderLoadCachesSession(t *testing.T) {
	var constructed int
	loader, key := newTestLoader(t, func(path string) (Session, error) {
		constructed++
		return &fakeSession{logits: []float32{0.1, 0.9}}, nil
	})

	first, err := loader.Load(context.Background(), key)
	require.NoError(t, err)

	second, err := loader.Load(context.Background(), key)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, constructed)

	stats := loader.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, []ModelKey{key}, stats.Loaded)
}

func TestLoaderLoadUnknownModel(t *testing.T) {
	loader, _ := newTestLoader(t, func(path string) (Session, error) {
		t.Fatal("constructor must not run for unknown models")
		return nil, nil
	})

	_, err := loader.Load(context.Background(), ModelKey{TaskSentiment, VariantINT8})
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestLoaderLoadConstructorFailure(t *testing.T) {
	loader, key := newTestLoader(t, func(path string) (Session, error) {
		return nil, ErrModelLoad
	})

	_, err := loader.Load(context.Background(), key)
	assert.ErrorIs(t, err, ErrModelLoad)
	assert.False(t, loader.IsLoaded(key))
}

func TestLoaderUnload(t *testing.T) {
	sess := &fakeSession{}
	loader, key := newTestLoader(t, func(path string) (Session, error) {
		return sess, nil
	})

	_, err := loader.Load(context.Background(), key)
	require.NoError(t, err)
	require.True(t, loader.IsLoaded(key))

	assert.True(t, loader.Unload(key))
	assert.False(t, loader.IsLoaded(key))
	assert.Equal(t, 1, sess.closed)

	// Unloading again is a no-op.
	assert.False(t, loader.Unload(key))
	assert.Equal(t, 1, sess.closed)
}

func TestLoaderClose(t *testing.T) {
	sess := &fakeSession{}
	loader, key := newTestLoader(t, func(path string) (Session, error) {
		return sess, nil
	})

	_, err := loader.Load(context.Background(), key)
	require.NoError(t, err)

	loader.Close()
	assert.False(t, loader.IsLoaded(key))
	assert.Equal(t, 1, sess.closed)

	// The loader stays usable after Close.
	_, err = loader.Load(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, loader.IsLoaded(key))
}

func TestLoaderPreload(t *testing.T) {
	loader, key := newTestLoader(t, func(path string) (Session, error) {
		return &fakeSession{}, nil
	})

	require.NoError(t, loader.Preload(context.Background(), key))
	assert.True(t, loader.IsLoaded(key))

	err := loader.Preload(context.Background(), key, ModelKey{TaskToxicity, VariantFP16})
	assert.ErrorIs(t, err, ErrModelNotFound)
}

func TestLoaderPreloadContinuesPastFailures(t *testing.T) {
	loader, key := newTestLoader(t, func(path string) (Session, error) {
		return &fakeSession{}, nil
	})

	// A bad key first in the batch must not block the valid key after
	// it; its failure is still reported.
	bad := ModelKey{TaskToxicity, VariantFP16}
	err := loader.Preload(context.Background(), bad, key)
	assert.ErrorIs(t, err, ErrModelNotFound)
	assert.True(t, loader.IsLoaded(key))
	assert.False(t, loader.IsLoaded(bad))

	// Two bad keys report both failures.
	other := ModelKey{TaskSentiment, VariantINT8}
	err = loader.Preload(context.Background(), bad, other)
	require.Error(t, err)
	assert.Contains(t, err.Error(), bad.String())
	assert.Contains(t, err.Error(), other.String())
}

func TestLoaderConcurrentColdLoad(t *testing.T) {
	var mu sync.Mutex
	var built []*fakeSession
	loader, key := newTestLoader(t, func(path string) (Session, error) {
		s := &fakeSession{}
		mu.Lock()
		built = append(built, s)
		mu.Unlock()
		return s, nil
	})

	const callers = 8
	var wg sync.WaitGroup
	results := make([]Session, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := loader.Load(context.Background(), key)
			assert.NoError(t, err)
			results[i] = sess
		}(i)
	}
	wg.Wait()

	// Every caller got the same cached session.
	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}

	// Losing racers closed their redundant sessions; the winner stays
	// open.
	var open int
	for _, s := range built {
		if s.closed == 0 {
			open++
		}
	}
	assert.Equal(t, 1, open)
}

func TestLoaderErrorIsUnloadRace(t *testing.T) {
	errBoom := errors.New("close failed")
	loader, key := newTestLoader(t, func(path string) (Session, error) {
		return &failingCloseSession{err: errBoom}, nil
	})

	_, err := loader.Load(context.Background(), key)
	require.NoError(t, err)

	// A failing Close is logged, not surfaced; the entry is still gone.
	assert.True(t, loader.Unload(key))
	assert.False(t, loader.IsLoaded(key))
}

type failingCloseSession struct {
	err error
}

func (f *failingCloseSession) Run(enc Encoding) ([]float32, error) { return nil, nil }
func (f *failingCloseSession) Close() error                        { return f.err }
