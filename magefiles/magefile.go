//go:build mage

// Package main provides build targets for commonspace using Mage.
//
// Usage:
//
//	mage build     Compile the commonspace binary to bin/
//	mage test      Run all tests (integration tests need TEST_DATABASE_URL)
//	mage testUnit  Run tests with the test database disabled
//	mage migrate   Build and create the database schema
//	mage lint      Run golangci-lint
//	mage clean     Remove build artifacts
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binGo      = "go"
	binLint    = "golangci-lint"
	binaryName = "commonspace"
	binaryDir  = "bin"
)

// Build compiles the commonspace binary to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	return sh.RunV(binGo, "build", "-v", "-o", filepath.Join(binaryDir, binaryName), ".")
}

// Test runs all tests.
func Test() error {
	return sh.RunV(binGo, "test", "-race", "./...")
}

// TestUnit runs all tests with TEST_DATABASE_URL unset, so database tests skip.
func TestUnit() error {
	return sh.RunWithV(map[string]string{"TEST_DATABASE_URL": ""}, binGo, "test", "./...")
}

// Migrate builds the binary and creates the database schema.
func Migrate() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binaryDir, binaryName), "migrate")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV(binLint, "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV(binGo, "clean")
}
