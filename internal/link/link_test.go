package link

import (
	"context"
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

type linkFixture struct {
	cfg     *config.Config
	fake    *compilertest.FakeCompiler
	stage   *Stage
	exe     string
	objects []string
	t0      time.Time
}

func newLinkFixture(t *testing.T) *linkFixture {
	t.Helper()

	cfg := &config.Config{
		BaseDir:    t.TempDir(),
		SourceDir:  "src",
		DepDir:     ".respite/dep",
		ObjDir:     ".respite/obj",
		BinDir:     "bin",
		Output:     "app",
		Compiler:   "g++",
		LDLibs:     "-lm",
		Extensions: []string{".cpp"},
		LogFormat:  "text",
	}
	require.NoError(t, cfg.Validate())

	f := &linkFixture{
		cfg:  cfg,
		fake: compilertest.New(),
		exe:  cfg.ExecutablePath(),
		t0:   time.Now().Add(-time.Hour),
	}
	f.stage = New(cfg, f.fake, slog.New(slog.DiscardHandler))

	for _, name := range []string{"a.o", "b.o"} {
		obj := filepath.Join(cfg.ObjDir, name)
		writeAt(t, obj, f.t0)
		f.objects = append(f.objects, obj)
	}

	return f
}

func writeAt(t *testing.T, path string, mtime time.Time) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(filepath.Base(path)), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestNeedsRelink(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *linkFixture)
		want  bool
	}{
		{
			name:  "no executable",
			setup: func(t *testing.T, f *linkFixture) {},
			want:  true,
		},
		{
			name: "executable newer than every object",
			setup: func(t *testing.T, f *linkFixture) {
				writeAt(t, f.exe, f.t0.Add(time.Minute))
			},
			want: false,
		},
		{
			name: "executable as old as the objects",
			setup: func(t *testing.T, f *linkFixture) {
				writeAt(t, f.exe, f.t0)
			},
			want: false,
		},
		{
			name: "one object newer",
			setup: func(t *testing.T, f *linkFixture) {
				writeAt(t, f.exe, f.t0.Add(time.Minute))
				writeAt(t, f.objects[1], f.t0.Add(2*time.Minute))
			},
			want: true,
		},
		{
			name: "object missing",
			setup: func(t *testing.T, f *linkFixture) {
				writeAt(t, f.exe, f.t0.Add(time.Minute))
				require.NoError(t, os.Remove(f.objects[0]))
			},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newLinkFixture(t)
			tt.setup(t, f)

			got, err := f.stage.NeedsRelink(f.exe, f.objects)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRun_Links(t *testing.T) {
	f := newLinkFixture(t)

	res, err := f.stage.Run(context.Background(), f.exe, f.objects)
	require.NoError(t, err)

	assert.True(t, res.Relinked)
	assert.True(t, res.Success)
	assert.FileExists(t, f.exe)

	calls := f.fake.CallsOf(compilertest.ModeLink)
	require.Len(t, calls, 1)
	assert.Equal(t, []string{f.objects[0], f.objects[1], "-lm", "-o", f.exe}, calls[0].Args)
}

func TestRun_UpToDateIsNoop(t *testing.T) {
	f := newLinkFixture(t)
	writeAt(t, f.exe, f.t0.Add(time.Minute))

	res, err := f.stage.Run(context.Background(), f.exe, f.objects)
	require.NoError(t, err)

	assert.False(t, res.Relinked)
	assert.True(t, res.Success)
	assert.Empty(t, f.fake.Calls(), "linker must not be invoked")
}

func TestRun_LinkFailure(t *testing.T) {
	f := newLinkFixture(t)
	f.fake.LinkFail = "undefined reference to `main'\n"

	res, err := f.stage.Run(context.Background(), f.exe, f.objects)
	require.NoError(t, err)

	assert.True(t, res.Relinked)
	assert.False(t, res.Success)
	assert.Equal(t, "undefined reference to `main'\n", res.Diagnostics)
}
