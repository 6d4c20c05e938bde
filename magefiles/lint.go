//go:build mage

// Copyright (c) 2026 Petar Djukic. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import "github.com/magefile/mage/sh"

const binLint = "golangci-lint"

// Lint vets gridctl and its packages, then runs golangci-lint over them.
func Lint() error {
	if err := sh.RunV(binGo, "vet", "./cmd/...", "./internal/...", "./pkg/..."); err != nil {
		return err
	}
	return sh.RunV(binLint, "run", "./cmd/...", "./internal/...", "./pkg/...")
}
