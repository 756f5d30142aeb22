package engine

import (
	"context"
	"fmt"

	"github.com/easeaico/agent-social/internal/memory"
	"github.com/easeaico/agent-social/internal/moderation"
	"github.com/easeaico/agent-social/internal/relationship"
)

// Names of the persisted state documents.
const (
	StateModeration    = "moderation"
	StateMemory        = "memory"
	StateRelationships = "relationships"
)

// StateStore keeps the engine's component state between passes.
type StateStore interface {
	SaveState(ctx context.Context, name string, v any) error
	LoadState(ctx context.Context, name string, v any) (bool, error)
}

// LoadState restores moderation, memory and relationship state saved by a
// previous pass. Missing documents leave the component fresh.
func (e *Engine) LoadState(ctx context.Context, store StateStore) error {
	var mod moderation.Snapshot
	ok, err := store.LoadState(ctx, StateModeration, &mod)
	if err != nil {
		return err
	}
	if ok {
		e.Moderation.Restore(mod)
	}

	var mem memory.Snapshot
	if ok, err = store.LoadState(ctx, StateMemory, &mem); err != nil {
		return err
	}
	if ok {
		e.Memory.Restore(mem)
	}

	var rels []relationship.State
	if ok, err = store.LoadState(ctx, StateRelationships, &rels); err != nil {
		return err
	}
	if ok {
		e.Relations.Restore(rels)
	}
	return nil
}

// SaveState persists the component state for the next pass.
func (e *Engine) SaveState(ctx context.Context, store StateStore) error {
	if err := store.SaveState(ctx, StateModeration, e.Moderation.Snapshot()); err != nil {
		return fmt.Errorf("failed to save moderation state: %w", err)
	}
	if err := store.SaveState(ctx, StateMemory, e.Memory.Snapshot()); err != nil {
		return fmt.Errorf("failed to save memory state: %w", err)
	}
	if err := store.SaveState(ctx, StateRelationships, e.Relations.Snapshot()); err != nil {
		return fmt.Errorf("failed to save relationship state: %w", err)
	}
	return nil
}
