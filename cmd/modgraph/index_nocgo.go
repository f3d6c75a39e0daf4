//go:build !cgo

package main

import (
	"context"
	"errors"

	"github.com/dusk-indust/modgraph/internal/index"
)

var errNoCgo = errors.New("the persistent index requires a cgo build")

func newServeIndex() (index.Store, error) {
	return index.NewMemStore(), nil
}

func runIndex([]string) error { return errNoCgo }

func runDeps([]string) error { return errNoCgo }

func diagramFromIndex(context.Context, string) (string, error) { return "", errNoCgo }
