// Package profile defines the per-project clone and build recipes used
// by the workload runner. Profiles are declarative data: an ordered list
// of commands plus clone parameters, so new projects can be added
// without touching the runner.
package profile

import (
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
)

// Command is a single build step: an argv to execute and the directory
// to execute it in, relative to the project checkout.
type Command struct {
	// Argv is the command and its arguments, not shell-interpreted
	Argv []string `yaml:"argv"`
	// Dir is the working directory relative to the checkout root.
	// Empty means the checkout root itself.
	Dir string `yaml:"dir,omitempty"`
}

// Profile describes how to materialize and build one project.
type Profile struct {
	// Project identifier (e.g. "redis")
	Name string `yaml:"name"`
	// Git repository URL
	Repo string `yaml:"repo"`
	// Ref to check out (branch or tag); empty means the default branch
	Ref string `yaml:"ref,omitempty"`
	// Shallow clone depth; 0 means a full clone
	Depth int `yaml:"depth,omitempty"`
	// Clone overrides the git clone argv entirely. The command runs in
	// the target directory and is expected to create the checkout.
	Clone []string `yaml:"clone,omitempty"`
	// Commands is the ordered build sequence
	Commands []Command `yaml:"commands"`
	// Marker is a path relative to the checkout that must exist after
	// a successful build (e.g. the built binary). Empty disables the
	// check.
	Marker string `yaml:"marker,omitempty"`
}

// UnknownProjectError is returned by Lookup for identifiers outside the
// registry.
type UnknownProjectError struct {
	Name string
}

func (e *UnknownProjectError) Error() string {
	return fmt.Sprintf("unknown project %q", e.Name)
}

// builtin mirrors the classic compile-workload project set. Each entry
// encodes that project's own configure/build quirks.
var builtin = map[string]Profile{
	"redis": {
		Name: "redis",
		Repo: "https://github.com/redis/redis.git",
		Commands: []Command{
			{Argv: []string{"make"}},
		},
		Marker: "src/redis-server",
	},
	"postgres": {
		Name: "postgres",
		Repo: "https://github.com/postgres/postgres.git",
		Commands: []Command{
			{Argv: []string{"./configure"}},
			{Argv: []string{"make"}},
		},
		Marker: "src/backend/postgres",
	},
	"nginx": {
		Name: "nginx",
		Repo: "https://github.com/nginx/nginx.git",
		Commands: []Command{
			{Argv: []string{"./auto/configure"}},
			{Argv: []string{"make"}},
		},
		Marker: "objs/nginx",
	},
	"apache": {
		Name: "apache",
		Repo: "https://github.com/apache/httpd.git",
		Commands: []Command{
			// httpd needs APR vendored into its tree before buildconf
			{Argv: []string{"git", "clone", "https://github.com/apache/apr.git", "srclib/apr"}},
			{Argv: []string{"./buildconf"}},
			{Argv: []string{"./configure", "--with-included-apr"}},
			{Argv: []string{"make"}},
		},
		Marker: "httpd",
	},
	"ruby": {
		Name: "ruby",
		Repo: "https://github.com/ruby/ruby.git",
		Commands: []Command{
			{Argv: []string{"autoconf"}},
			{Argv: []string{"./configure"}},
			{Argv: []string{"make"}},
		},
		Marker: "ruby",
	},
	"python": {
		Name: "python",
		Repo: "https://github.com/python/cpython.git",
		Commands: []Command{
			{Argv: []string{"./configure"}},
			{Argv: []string{"make"}},
		},
		Marker: "python",
	},
}

// Registry maps project identifiers to their profiles.
type Registry struct {
	profiles map[string]Profile
}

// Builtin returns a registry holding the built-in project set.
func Builtin() *Registry {
	profiles := make(map[string]Profile, len(builtin))
	for name, p := range builtin {
		profiles[name] = p
	}
	return &Registry{profiles: profiles}
}

// Lookup returns the profile for the given identifier. It has no side
// effects and fails with UnknownProjectError for anything outside the
// registry.
func (r *Registry) Lookup(name string) (Profile, error) {
	p, ok := r.profiles[name]
	if !ok {
		return Profile{}, &UnknownProjectError{Name: name}
	}
	return p, nil
}

// Names returns the sorted list of registered project identifiers.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.profiles))
	for name := range r.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Merge adds the given profiles to the registry, replacing any existing
// entries with the same name.
func (r *Registry) Merge(profiles []Profile) error {
	for _, p := range profiles {
		if p.Name == "" {
			return fmt.Errorf("profile with empty name")
		}
		if len(p.Commands) == 0 {
			return fmt.Errorf("profile %q has no build commands", p.Name)
		}
		for i, c := range p.Commands {
			if len(c.Argv) == 0 || c.Argv[0] == "" {
				return fmt.Errorf("profile %q: build command %d has no argv", p.Name, i)
			}
		}
		if p.Clone != nil && (len(p.Clone) == 0 || p.Clone[0] == "") {
			return fmt.Errorf("profile %q: clone override has no argv", p.Name)
		}
		r.profiles[p.Name] = p
	}
	return nil
}

// CheckoutDir returns the directory the project is cloned into, one
// level below the target directory.
func (p Profile) CheckoutDir(targetDir string) string {
	return filepath.Join(targetDir, p.Name)
}

// CloneArgv builds the argv that materializes the checkout at dst. The
// Clone override, when set, wins; it is expected to create dst itself.
func (p Profile) CloneArgv(dst string) []string {
	if len(p.Clone) > 0 {
		return append([]string(nil), p.Clone...)
	}
	argv := []string{"git", "clone"}
	if p.Depth > 0 {
		argv = append(argv, "--depth", strconv.Itoa(p.Depth))
	}
	if p.Ref != "" {
		argv = append(argv, "--branch", p.Ref)
	}
	return append(argv, p.Repo, dst)
}
