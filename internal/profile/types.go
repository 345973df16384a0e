package profile

import (
	"fmt"
	"sort"

	"github.com/kballard/go-shellquote"
)

// Profile describes a spawnable shell: the command line, initial geometry,
// and extra environment entries.
type Profile struct {
	Name    string            `yaml:"name" json:"name"`
	Command string            `yaml:"command" json:"command"`
	Cols    int               `yaml:"cols,omitempty" json:"cols,omitempty"`
	Rows    int               `yaml:"rows,omitempty" json:"rows,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	Notes   string            `yaml:"notes,omitempty" json:"notes,omitempty"`
}

// Argv splits the command line into an argv slice, honoring shell quoting.
func (p *Profile) Argv() ([]string, error) {
	argv, err := shellquote.Split(p.Command)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", p.Command, err)
	}
	if len(argv) == 0 {
		return nil, fmt.Errorf("parse command %q: empty", p.Command)
	}
	return argv, nil
}

// EnvSlice flattens Env into sorted KEY=VALUE entries.
func (p *Profile) EnvSlice() []string {
	if len(p.Env) == 0 {
		return nil
	}
	keys := make([]string, 0, len(p.Env))
	for k := range p.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+p.Env[k])
	}
	return out
}
