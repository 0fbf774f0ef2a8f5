// Copyright ©2024 The Octopus Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the settings loadable from a YAML file or the
// command line for the octopus-readmanager demonstration CLI (see /cmd).
package config

import (
	"os"

	"gopkg.in/yaml.v2"
)

// ReadManagerConfig mirrors readmanager.Config's fields in a form
// loadable from a YAML settings file.
type ReadManagerConfig struct {
	// FilePaths lists the aligned-read files to manage.
	FilePaths []string `yaml:"file_paths"`

	// MaxOpenFiles caps simultaneously open file handles.
	MaxOpenFiles int `yaml:"max_open_files"`
}

// LoadFile reads and unmarshals a YAML settings file into a
// ReadManagerConfig.
func LoadFile(path string) (ReadManagerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ReadManagerConfig{}, err
	}
	var c ReadManagerConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return ReadManagerConfig{}, err
	}
	return c, nil
}
