//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Test groups test targets.
type Test mg.Namespace

// All runs every package's tests.
func (Test) All() error {
	return sh.RunV(binGo, "test", "-v", "./...")
}

// Short skips the slower tests that start redis or watch the filesystem.
func (Test) Short() error {
	return sh.RunV(binGo, "test", "-short", "./...")
}

// Race runs every package's tests under the race detector. The monitor and
// notify packages are the ones that need it.
func (Test) Race() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// Cover writes a coverage profile to bin/coverage.out and prints the
// per-function summary.
func (Test) Cover() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	profile := filepath.Join(binaryDir, "coverage.out")
	if err := sh.RunV(binGo, "test", "-coverprofile", profile, "./..."); err != nil {
		return err
	}
	return sh.RunV(binGo, "tool", "cover", "-func", profile)
}

// Smoke builds gridctl and runs it against a throwaway config and data
// directory.
func (Test) Smoke() error {
	mg.Deps(Build)
	dir, err := os.MkdirTemp("", "gridctl-smoke-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	bin, err := filepath.Abs(binaryPath())
	if err != nil {
		return err
	}
	base := []string{"--config-dir", filepath.Join(dir, "config"), "--data-dir", filepath.Join(dir, "data")}
	steps := [][]string{
		{"version"},
		{"init"},
		{"catalog", "add", "1", "Bandages"},
		{"layout", "place", "--col", "0", "--row", "0"},
		{"layout", "assign", "0", "--name", "Bandages", "--color", "red"},
		{"kit", "create", "--id", "SMOKE", "--name", "Smoke kit"},
		{"kit", "show", "SMOKE"},
		{"refresh"},
	}
	for _, step := range steps {
		fmt.Println("gridctl", step)
		if err := sh.RunV(bin, append(base, step...)...); err != nil {
			return err
		}
	}
	return nil
}
