// Package api holds the shared plumbing for the HTTP API: handler
// dependencies, JSON helpers, and the error envelope.
package api

import (
	"context"
	"sync/atomic"

	"github.com/aditya-xq/PicToWebP/pkg/config"
	"github.com/aditya-xq/PicToWebP/pkg/convexec"
	"github.com/aditya-xq/PicToWebP/pkg/notify"
	"github.com/aditya-xq/PicToWebP/pkg/runs"
)

// ConversionRunner starts a conversion run. Satisfied by *convexec.Service;
// defined here so handlers can be tested against a fake.
type ConversionRunner interface {
	Run(ctx context.Context, params convexec.Params) (*convexec.Result, error)
}

// Deps holds dependencies for API handlers.
// This pattern enables dependency injection and easier testing.
type Deps struct {
	// Runner executes conversion runs.
	Runner ConversionRunner

	// Registry tracks run lifecycle and stats.
	Registry *runs.Store

	// Hub fans progress events out to event-stream subscribers.
	Hub *notify.Hub

	// Defaults are applied when a request omits quality or threads.
	Defaults config.ConvertConfig

	// Ready flag for readiness check.
	Ready *atomic.Bool
}
