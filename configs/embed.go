package configs

import "embed"

// ProfileDefaults contains shipped default shell profile YAML files.
//
//go:embed profiles/*.yaml
var ProfileDefaults embed.FS

// DefaultConfig is the baseline configuration every load starts from.
//
//go:embed default.yaml
var DefaultConfig []byte
