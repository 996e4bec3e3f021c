// Package index drives the lifecycle of declared vector tables: creation,
// emptiness-gated population, and destructive resets. Backends attach via
// an explicit registration table instead of name-based hook lookup, so a
// new record type needs only a schema declaration and two hook functions.
package index

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/amiralserge/homevec/internal/domain"
)

// Hook signatures quoted by MissingHookError so the failure names exactly
// what the backend must provide.
const (
	createSignature   = "CreateTable(ctx context.Context, schema *domain.Schema, reset bool) error"
	populateSignature = "PopulateTable(ctx context.Context, schema *domain.Schema, reset bool) error"
)

// TableHooks are the two backend operations every declared table requires.
// Create must be idempotent when reset is false.
type TableHooks struct {
	Create   func(ctx context.Context, schema *domain.Schema, reset bool) error
	Populate func(ctx context.Context, schema *domain.Schema, reset bool) error
}

// RowCounter reports whether a created table holds any rows.
type RowCounter interface {
	TableEmpty(ctx context.Context, table string) (bool, error)
}

type declaration struct {
	name   string
	schema *domain.Schema
	hooks  TableHooks
}

// Manager initializes declared tables in registration order.
type Manager struct {
	counter RowCounter
	logger  *zap.Logger
	decls   []declaration
}

// NewManager creates a lifecycle manager.
func NewManager(counter RowCounter, logger *zap.Logger) *Manager {
	return &Manager{counter: counter, logger: logger}
}

// Register declares a table with its schema and backend hooks. Declaration
// order is initialization order. A malformed schema is a fatal
// configuration error surfaced immediately, not at Init time.
func (m *Manager) Register(name string, schema *domain.Schema, hooks TableHooks) error {
	if name == "" {
		return fmt.Errorf("%w: table name is required", domain.ErrInvalidSchema)
	}
	for _, d := range m.decls {
		if d.name == name {
			return fmt.Errorf("%w: table %q declared twice", domain.ErrInvalidSchema, name)
		}
	}
	if schema == nil {
		return fmt.Errorf("%w: table %q has no schema", domain.ErrInvalidSchema, name)
	}
	if err := schema.Validate(); err != nil {
		return fmt.Errorf("%w: table %q: %v", domain.ErrInvalidSchema, name, err)
	}

	m.decls = append(m.decls, declaration{name: name, schema: schema, hooks: hooks})
	return nil
}

// Init ensures every declared table exists and is populated. For each
// table, in declaration order: the create hook runs first (forced when
// reset is true); the populate hook runs only when reset is true or the
// table is empty, so re-running Init over a populated store is a no-op for
// existing rows. reset=true is destructive: the create hook discards prior
// rows before population re-fills them.
func (m *Manager) Init(ctx context.Context, reset bool) error {
	for _, d := range m.decls {
		if d.hooks.Create == nil {
			return &domain.MissingHookError{Table: d.name, Hook: "create", Signature: createSignature}
		}
		if d.hooks.Populate == nil {
			return &domain.MissingHookError{Table: d.name, Hook: "populate", Signature: populateSignature}
		}

		m.logger.Info("Initializing table", zap.String("table", d.name), zap.Bool("reset", reset))

		if err := d.hooks.Create(ctx, d.schema, reset); err != nil {
			return fmt.Errorf("create table %s: %w", d.name, err)
		}

		populate := reset
		if !populate {
			empty, err := m.counter.TableEmpty(ctx, d.name)
			if err != nil {
				return fmt.Errorf("check table %s: %w", d.name, err)
			}
			populate = empty
		}

		if !populate {
			m.logger.Info("Table already populated, skipping load", zap.String("table", d.name))
			continue
		}

		if err := d.hooks.Populate(ctx, d.schema, reset); err != nil {
			return fmt.Errorf("populate table %s: %w", d.name, err)
		}
		m.logger.Info("Table populated", zap.String("table", d.name))
	}
	return nil
}
