//go:build cgo

package audio

import (
	"log/slog"

	"github.com/gen2brain/malgo"
)

// audioContext wraps malgo.AllocatedContext with lifecycle management. One
// context is shared by every device a MalgoBackend opens; the backend closes
// it when the backend itself closes.
type audioContext struct {
	ctx *malgo.AllocatedContext
}

func newAudioContext() (*audioContext, error) {
	slog.Debug("initializing audio context")

	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(message string) {
		slog.Debug("malgo internal", "message", message)
	})
	if err != nil {
		slog.Error("failed to initialize audio context", "error", err)
		return nil, err
	}

	slog.Debug("audio context initialized")
	return &audioContext{ctx: ctx}, nil
}

// Close releases the context. malgo requires both Uninit and Free.
func (c *audioContext) Close() error {
	if c.ctx == nil {
		slog.Debug("audio context already closed")
		return nil
	}

	slog.Debug("closing audio context")

	if err := c.ctx.Uninit(); err != nil {
		slog.Error("failed to uninitialize audio context", "error", err)
		return err
	}

	c.ctx.Free()
	c.ctx = nil

	slog.Debug("audio context closed")
	return nil
}

// raw exposes the handle malgo device calls need.
func (c *audioContext) raw() malgo.Context {
	return c.ctx.Context
}
