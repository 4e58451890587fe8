package deps

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Norgate-AV/respite/internal/compiler/compilertest"
	"github.com/Norgate-AV/respite/internal/config"
)

func newTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{
		BaseDir:    t.TempDir(),
		SourceDir:  "src",
		DepDir:     ".respite/dep",
		ObjDir:     ".respite/obj",
		BinDir:     ".",
		Output:     "a.respite",
		Compiler:   "g++",
		Extensions: []string{".cpp"},
		LogFormat:  "text",
	}
	require.NoError(t, cfg.Validate())

	return cfg
}

func writeFile(t *testing.T, path string, mtime time.Time) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("// "+filepath.Base(path)), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func mtimeOf(t *testing.T, path string) time.Time {
	t.Helper()

	info, err := os.Stat(path)
	require.NoError(t, err)

	return info.ModTime()
}

type fixture struct {
	cfg    *config.Config
	fake   *compilertest.FakeCompiler
	cache  *Cache
	source string
	header string
}

// newFixture lays out src/b.cpp including src/h.hpp, both an hour old
func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := newTestConfig(t)
	past := time.Now().Add(-time.Hour)

	source := filepath.Join(cfg.SourceDir, "b.cpp")
	header := filepath.Join(cfg.SourceDir, "h.hpp")
	writeFile(t, source, past)
	writeFile(t, header, past)

	fake := compilertest.New()
	fake.Deps[source] = []string{source, header}

	return &fixture{
		cfg:    cfg,
		fake:   fake,
		cache:  New(cfg, fake, slog.New(slog.DiscardHandler)),
		source: source,
		header: header,
	}
}

func TestCache_PathFor(t *testing.T) {
	cfg := newTestConfig(t)
	c := New(cfg, compilertest.New(), slog.New(slog.DiscardHandler))

	assert.Equal(t, filepath.Join(cfg.DepDir, "lib", "x.dep"), c.PathFor(filepath.Join("lib", "x.cpp")))
	assert.Equal(t, filepath.Join(cfg.SourceDir, "lib", "x.cpp"), c.SourcePath(filepath.Join("lib", "x.cpp")))
}

func TestCache_Resolve_NoCacheFile(t *testing.T) {
	f := newFixture(t)

	rec, err := f.cache.Resolve(context.Background(), "b.cpp")
	require.NoError(t, err)

	// Listed exactly once
	assert.Len(t, f.fake.CallsOf(compilertest.ModeDeps), 1)
	assert.True(t, rec.Regenerated)
	assert.Equal(t, []string{f.source, f.header}, rec.Deps)

	// Persisted, and at least as new as everything it lists
	persisted, err := ReadFile(rec.Path)
	require.NoError(t, err)
	assert.Equal(t, rec.Deps, persisted)

	cacheTime := mtimeOf(t, rec.Path)
	for _, d := range rec.Deps {
		assert.False(t, mtimeOf(t, d).After(cacheTime), "%s newer than cache file", d)
	}
}

func TestCache_Resolve_Idempotent(t *testing.T) {
	f := newFixture(t)

	first, err := f.cache.Resolve(context.Background(), "b.cpp")
	require.NoError(t, err)

	second, err := f.cache.Resolve(context.Background(), "b.cpp")
	require.NoError(t, err)

	assert.Len(t, f.fake.CallsOf(compilertest.ModeDeps), 1, "second resolve must not list again")
	assert.False(t, second.Regenerated)
	assert.Equal(t, first.Deps, second.Deps)
}

func TestCache_Resolve_InvalidatedByNewerDependency(t *testing.T) {
	f := newFixture(t)

	rec, err := f.cache.Resolve(context.Background(), "b.cpp")
	require.NoError(t, err)

	// Touch the header past the cache file
	touched := mtimeOf(t, rec.Path).Add(time.Minute)
	require.NoError(t, os.Chtimes(f.header, touched, touched))

	rec, err = f.cache.Resolve(context.Background(), "b.cpp")
	require.NoError(t, err)

	assert.Len(t, f.fake.CallsOf(compilertest.ModeDeps), 2)
	assert.True(t, rec.Regenerated)
}

func TestCache_Resolve_EqualMtimeIsFresh(t *testing.T) {
	f := newFixture(t)

	rec, err := f.cache.Resolve(context.Background(), "b.cpp")
	require.NoError(t, err)

	same := mtimeOf(t, rec.Path)
	require.NoError(t, os.Chtimes(f.header, same, same))

	rec, err = f.cache.Resolve(context.Background(), "b.cpp")
	require.NoError(t, err)

	assert.Len(t, f.fake.CallsOf(compilertest.ModeDeps), 1)
	assert.False(t, rec.Regenerated)
}

func TestCache_Resolve_MissingDependencyRegenerates(t *testing.T) {
	f := newFixture(t)

	_, err := f.cache.Resolve(context.Background(), "b.cpp")
	require.NoError(t, err)

	// The header goes away and the source no longer includes it
	require.NoError(t, os.Remove(f.header))
	f.fake.Deps[f.source] = []string{f.source}

	rec, err := f.cache.Resolve(context.Background(), "b.cpp")
	require.NoError(t, err)

	assert.True(t, rec.Regenerated)
	assert.Equal(t, []string{f.source}, rec.Deps)
}

func TestCache_Resolve_MissingAfterRegeneration(t *testing.T) {
	f := newFixture(t)

	_, err := f.cache.Resolve(context.Background(), "b.cpp")
	require.NoError(t, err)

	// The header goes away but the listing still names it
	require.NoError(t, os.Remove(f.header))

	rec, err := f.cache.Resolve(context.Background(), "b.cpp")
	require.NoError(t, err)

	// Regenerated once, not retried
	assert.Len(t, f.fake.CallsOf(compilertest.ModeDeps), 2)
	assert.True(t, rec.Regenerated)
	assert.Contains(t, rec.Deps, f.header)
}

func TestCache_Resolve_EmptyCacheFileRegenerates(t *testing.T) {
	f := newFixture(t)

	path := f.cache.PathFor("b.cpp")
	writeFile(t, path, time.Now())
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	rec, err := f.cache.Resolve(context.Background(), "b.cpp")
	require.NoError(t, err)

	assert.True(t, rec.Regenerated)
	assert.Equal(t, []string{f.source, f.header}, rec.Deps)
}

func TestCache_Resolve_ScanFailure(t *testing.T) {
	f := newFixture(t)
	f.fake.DepsFail[f.source] = "b.cpp:1:10: fatal error: gone.hpp: No such file or directory\n"

	_, err := f.cache.Resolve(context.Background(), "b.cpp")
	require.Error(t, err)

	assert.True(t, errors.Is(err, ErrDependencyScan))

	var scanErr *ScanError
	require.True(t, errors.As(err, &scanErr))
	assert.Equal(t, f.source, scanErr.Source)
	assert.Contains(t, err.Error(), "gone.hpp")

	// Nothing persisted, so the next run lists again
	_, statErr := os.Stat(f.cache.PathFor("b.cpp"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestCache_Resolve_RelativeListing(t *testing.T) {
	f := newFixture(t)

	// Real compilers print paths relative to where they ran
	f.fake.Deps[f.source] = []string{"src/b.cpp", "src/./sub/../h.hpp"}

	rec, err := f.cache.Resolve(context.Background(), "b.cpp")
	require.NoError(t, err)

	assert.Equal(t, []string{f.source, f.header}, rec.Deps)
}

func TestCache_Resolve_NestedUnit(t *testing.T) {
	f := newFixture(t)

	nested := filepath.Join(f.cfg.SourceDir, "lib", "n.cpp")
	writeFile(t, nested, time.Now().Add(-time.Hour))

	rec, err := f.cache.Resolve(context.Background(), filepath.Join("lib", "n.cpp"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(f.cfg.DepDir, "lib", "n.dep"), rec.Path)
	assert.FileExists(t, rec.Path)
	assert.Equal(t, []string{nested}, rec.Deps)
}

func TestCache_Resolve_HeaderWithSpace(t *testing.T) {
	f := newFixture(t)

	spaced := filepath.Join(f.cfg.SourceDir, "my header.hpp")
	writeFile(t, spaced, time.Now().Add(-time.Hour))
	f.fake.Deps[f.source] = []string{f.source, spaced}

	rec, err := f.cache.Resolve(context.Background(), "b.cpp")
	require.NoError(t, err)
	assert.Equal(t, []string{f.source, spaced}, rec.Deps)

	// Read back from the cache file on the next call
	rec, err = f.cache.Resolve(context.Background(), "b.cpp")
	require.NoError(t, err)
	assert.False(t, rec.Regenerated)
	assert.Equal(t, []string{f.source, spaced}, rec.Deps)
}
