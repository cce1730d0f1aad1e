// Copyright (c) Microsoft Corporation. All rights reserved.
// Licensed under the MIT License.

//go:build mage
// +build mage

package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/magefile/mage/mg"
)

type Tcinfra mg.Namespace

// Build compiles the tcinfra binary into ./bin.
func (Tcinfra) Build(ctx context.Context) error {
	return run(ctx, "go", "build", "-o", "./bin/tcinfra", ".")
}

func (Tcinfra) Test(ctx context.Context) error {
	return run(ctx, "go", "test", "./...")
}

// Lint runs go vet followed by a gofmt check.
func (Tcinfra) Lint(ctx context.Context) error {
	mg.CtxDeps(ctx, Tcinfra.Vet)

	out, err := exec.CommandContext(ctx, "gofmt", "-l", "main.go", "cmd", "internal", "pkg", "test").Output()
	if err != nil {
		return err
	}
	if len(out) > 0 {
		return fmt.Errorf("files need formatting:\n%s", out)
	}
	return nil
}

func (Tcinfra) Vet(ctx context.Context) error {
	return run(ctx, "go", "vet", "./...")
}

func run(ctx context.Context, name string, args ...string) error {
	c := exec.CommandContext(ctx, name, args...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	fmt.Println(c.String())
	return c.Run()
}
