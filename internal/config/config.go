// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config holds the bootstrap runtime settings needed before the
// layered deployment file (pkg/config) has been read: working directory,
// data directory, debug mode.
package config

import (
	"os"
	"path/filepath"
	"sync"
)

var (
	globalRuntime *Runtime
	globalOnce    sync.Once
)

// Runtime is process-wide bootstrap state.
type Runtime struct {
	mu         sync.RWMutex
	workingDir string
	dataDir    string
	debug      bool
}

// Get returns the process-wide bootstrap runtime, creating it on first use.
func Get() *Runtime {
	globalOnce.Do(func() {
		globalRuntime = &Runtime{
			workingDir: ".",
			dataDir:    DataDir(),
		}
	})
	return globalRuntime
}

// Set replaces the process-wide bootstrap runtime; later Get calls return
// r. It is not safe to call concurrently with Get.
func Set(r *Runtime) {
	globalOnce.Do(func() {})
	globalRuntime = r
}

// WorkingDir returns the working directory.
func (r *Runtime) WorkingDir() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.workingDir
}

// SetWorkingDir sets the working directory.
func (r *Runtime) SetWorkingDir(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workingDir = dir
}

// DataDir returns the directory this runtime persists state under.
func (r *Runtime) DataDir() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dataDir
}

// SetDataDir overrides the data directory.
func (r *Runtime) SetDataDir(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dataDir = dir
}

// Debug reports whether development-mode logging/behavior was requested.
func (r *Runtime) Debug() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.debug
}

// SetDebug toggles development-mode logging/behavior.
func (r *Runtime) SetDebug(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.debug = v
}

// DataDir returns the default data directory: $COREROUTER_DATA_DIR, or
// ~/.corerouter if unset.
//
// This is read directly from os.Getenv, not from a Runtime, so it can be
// called during bootstrap before any Runtime exists.
func DataDir() string {
	if dir := os.Getenv("COREROUTER_DATA_DIR"); dir != "" {
		return expandPath(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".corerouter"
	}
	return filepath.Join(home, ".corerouter")
}

func expandPath(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
