// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The ProbeChain is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the ProbeChain. If not, see <http://www.gnu.org/licenses/>.

// Package rvconfig loads and merges the simulator/project-engine's TOML
// config file with CLI-flag overrides, layering flags on top of the file.
package rvconfig

import (
	"fmt"
	"os"

	"github.com/naoina/toml"
)

// Config is the top-level on-disk/CLI-overridable configuration.
type Config struct {
	Sim     SimConfig     `toml:"sim"`
	Project ProjectConfig `toml:"project"`
	Socket  SocketConfig  `toml:"socket"`
}

// SimConfig controls the pipeline simulator core.
type SimConfig struct {
	ResetPC    uint64 `toml:"reset_pc"`
	MemBase    uint64 `toml:"mem_base"`
	MemSize    uint64 `toml:"mem_size"`
	TrapVector uint64 `toml:"trap_vector"`
}

// ProjectConfig controls the project/operation engine and generate-compile-
// simulate pipeline.
type ProjectConfig struct {
	WorkDir       string `toml:"work_dir"`
	GeneratorPath string `toml:"generator_path"`
	CompilerPath  string `toml:"compiler_path"`
}

// SocketConfig controls the command and log TCP listeners.
type SocketConfig struct {
	CommandAddr       string  `toml:"command_addr"`
	LogAddr           string  `toml:"log_addr"`
	FramesPerSecond   float64 `toml:"frames_per_second"`
	FrameBurst        int     `toml:"frame_burst"`
}

// Default returns the built-in configuration used when no file is given
// and no flags override it.
func Default() Config {
	return Config{
		Sim: SimConfig{
			ResetPC: 0x1000,
			MemBase: 0x1000,
			MemSize: 64 << 20,
		},
		Project: ProjectConfig{
			WorkDir: "./rv64pipe-work",
		},
		Socket: SocketConfig{
			CommandAddr:     "127.0.0.1:8761",
			LogAddr:         "127.0.0.1:8762",
			FramesPerSecond: 200,
			FrameBurst:      64,
		},
	}
}

// Load reads a TOML file at path into a copy of Default, leaving any field
// the file doesn't mention at its default value.
func Load(path string) (Config, error) {
	cfg := Default()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("rvconfig: open %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("rvconfig: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path as TOML, creating or truncating the file.
func Save(path string, cfg Config) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rvconfig: create %s: %w", path, err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(&cfg); err != nil {
		return fmt.Errorf("rvconfig: encode %s: %w", path, err)
	}
	return nil
}

// ApplyOverrides layers non-zero CLI-flag values from o onto cfg, returning
// the merged result. Only fields the CLI actually sets should be non-zero
// in o.
func ApplyOverrides(cfg Config, o Config) Config {
	if o.Sim.ResetPC != 0 {
		cfg.Sim.ResetPC = o.Sim.ResetPC
	}
	if o.Sim.MemBase != 0 {
		cfg.Sim.MemBase = o.Sim.MemBase
	}
	if o.Sim.MemSize != 0 {
		cfg.Sim.MemSize = o.Sim.MemSize
	}
	if o.Sim.TrapVector != 0 {
		cfg.Sim.TrapVector = o.Sim.TrapVector
	}
	if o.Project.WorkDir != "" {
		cfg.Project.WorkDir = o.Project.WorkDir
	}
	if o.Project.GeneratorPath != "" {
		cfg.Project.GeneratorPath = o.Project.GeneratorPath
	}
	if o.Project.CompilerPath != "" {
		cfg.Project.CompilerPath = o.Project.CompilerPath
	}
	if o.Socket.CommandAddr != "" {
		cfg.Socket.CommandAddr = o.Socket.CommandAddr
	}
	if o.Socket.LogAddr != "" {
		cfg.Socket.LogAddr = o.Socket.LogAddr
	}
	if o.Socket.FramesPerSecond != 0 {
		cfg.Socket.FramesPerSecond = o.Socket.FramesPerSecond
	}
	if o.Socket.FrameBurst != 0 {
		cfg.Socket.FrameBurst = o.Socket.FrameBurst
	}
	return cfg
}
