// ABOUTME: Wraps a backend so every call holds the process-wide serialization gate
// ABOUTME: The gate is held from request send until the reply (or stream) is fully consumed
package llm

import (
	"context"

	"github.com/harper/local-agent-core/internal/gate"
)

// GatedBackend serializes calls to Backend through Runner
type GatedBackend struct {
	Backend Backend
	Runner  gate.Runner
}

// Complete runs the wrapped call under the gate
func (g *GatedBackend) Complete(ctx context.Context, req Request) (string, error) {
	var out string
	err := g.Runner.Run(ctx, func() error {
		var err error
		out, err = g.Backend.Complete(ctx, req)
		return err
	})
	return out, err
}

// Stream holds the gate for the whole stream
func (g *GatedBackend) Stream(ctx context.Context, req Request, onChunk ChunkFunc) error {
	return g.Runner.Run(ctx, func() error {
		return g.Backend.Stream(ctx, req, onChunk)
	})
}
