package profile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLookupKnownProjects(t *testing.T) {
	reg := Builtin()

	for _, name := range reg.Names() {
		t.Run(name, func(t *testing.T) {
			p, err := reg.Lookup(name)
			require.NoError(t, err)
			require.Equal(t, name, p.Name)
			require.NotEmpty(t, p.Repo)
			require.NotEmpty(t, p.Commands)
			for _, c := range p.Commands {
				require.NotEmpty(t, c.Argv)
			}
		})
	}
}

func TestLookupUnknownProject(t *testing.T) {
	reg := Builtin()

	for _, name := range []string{"", "linux", "Redis", "redis "} {
		_, err := reg.Lookup(name)
		require.Error(t, err)

		var unknown *UnknownProjectError
		require.True(t, errors.As(err, &unknown))
		require.Equal(t, name, unknown.Name)
	}
}

func TestCloneArgv(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		want    []string
	}{
		{
			name:    "plain",
			profile: Profile{Name: "redis", Repo: "https://example.com/redis.git"},
			want:    []string{"git", "clone", "https://example.com/redis.git", "/tmp/t/redis"},
		},
		{
			name:    "shallow with ref",
			profile: Profile{Name: "redis", Repo: "https://example.com/redis.git", Depth: 1, Ref: "7.2"},
			want:    []string{"git", "clone", "--depth", "1", "--branch", "7.2", "https://example.com/redis.git", "/tmp/t/redis"},
		},
		{
			name:    "override",
			profile: Profile{Name: "mock", Clone: []string{"sh", "-c", "mkdir mock"}},
			want:    []string{"sh", "-c", "mkdir mock"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dst := tt.profile.CheckoutDir("/tmp/t")
			require.Equal(t, tt.want, tt.profile.CloneArgv(dst))
		})
	}
}

func TestMergeValidation(t *testing.T) {
	reg := Builtin()

	err := reg.Merge([]Profile{{Name: ""}})
	require.Error(t, err)

	err = reg.Merge([]Profile{{Name: "empty-build"}})
	require.Error(t, err)

	err = reg.Merge([]Profile{{
		Name:     "empty-argv",
		Commands: []Command{{Argv: []string{"make"}}, {Argv: nil}},
	}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "build command 1")

	err = reg.Merge([]Profile{{
		Name:     "blank-argv",
		Commands: []Command{{Argv: []string{""}}},
	}})
	require.Error(t, err)

	err = reg.Merge([]Profile{{
		Name:     "empty-clone",
		Clone:    []string{},
		Commands: []Command{{Argv: []string{"make"}}},
	}})
	require.Error(t, err)
	require.Contains(t, err.Error(), "clone override")
}

func TestLoadFileMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	content := `profiles:
  - name: hello
    repo: https://example.com/hello.git
    depth: 1
    commands:
      - argv: [make]
      - argv: [make, check]
        dir: tests
    marker: hello
  - name: redis
    repo: https://example.com/redis-fork.git
    commands:
      - argv: [make, noopt]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	profiles, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, profiles, 2)

	reg := Builtin()
	require.NoError(t, reg.Merge(profiles))

	hello, err := reg.Lookup("hello")
	require.NoError(t, err)
	require.Equal(t, 1, hello.Depth)
	require.Equal(t, "tests", hello.Commands[1].Dir)
	require.Equal(t, "hello", hello.Marker)

	// Overlay replaces the builtin entry.
	redis, err := reg.Lookup("redis")
	require.NoError(t, err)
	require.Equal(t, "https://example.com/redis-fork.git", redis.Repo)
	require.Equal(t, []string{"make", "noopt"}, redis.Commands[0].Argv)
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
