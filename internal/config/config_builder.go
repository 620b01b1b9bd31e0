// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package config

import (
	"errors"
	"fmt"

	"dario.cat/mergo"
)

// layer is one named configuration source.
type layer struct {
	name string
	cfg  *StructuredConfig
}

// configBuilder collects layers in priority order and merges them on build.
// Source errors are accumulated so that all of them are reported at once.
type configBuilder struct {
	layers []layer
	err    error
}

func newConfigBuilder() *configBuilder {
	return &configBuilder{
		layers: make([]layer, 0, 4),
	}
}

func (b *configBuilder) add(name string, cfg *StructuredConfig, err error) *configBuilder {
	if err != nil {
		b.err = errors.Join(b.err, fmt.Errorf("%s: %w", name, err))
		return b
	}
	b.layers = append(b.layers, layer{name: name, cfg: cfg})
	return b
}

func (b *configBuilder) build() (*StructuredConfig, error) {
	if b.err != nil {
		return nil, fmt.Errorf("error occured during building config: %w", b.err)
	}

	merged := new(StructuredConfig)
	for _, l := range b.layers {
		if err := mergo.Merge(merged, l.cfg, mergo.WithOverride); err != nil {
			return nil, fmt.Errorf("error merging %s config: %w", l.name, err)
		}
	}

	return merged, merged.validate()
}

func (b *configBuilder) withDefaults() *configBuilder {
	return b.add("defaults", defaultConfig(), nil)
}

func (b *configBuilder) withEnv() *configBuilder {
	cfg := new(StructuredConfig)
	return b.add("env", cfg, parseEnv(cfg))
}

func (b *configBuilder) withFlags(args []string) *configBuilder {
	cfg, err := ParseFlags(newFlagSet(), args)
	return b.add("flags", cfg, err)
}

// withJSON appends the file named by the last layer that set JSONFilePath.
func (b *configBuilder) withJSON() *configBuilder {
	path := b.jsonPath()
	if path == "" {
		return b
	}

	cfg, err := parseJSON(path)
	return b.add("json", cfg, err)
}

func (b *configBuilder) jsonPath() string {
	var path string
	for _, l := range b.layers {
		if l.cfg.JSONFilePath != "" {
			path = l.cfg.JSONFilePath
		}
	}
	return path
}
