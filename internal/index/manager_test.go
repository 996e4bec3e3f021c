package index

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/amiralserge/homevec/internal/domain"
)

type mockCounter struct {
	empty map[string]bool
	err   error
}

func (m *mockCounter) TableEmpty(_ context.Context, table string) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	return m.empty[table], nil
}

func testSchema() *domain.Schema {
	return &domain.Schema{
		PrimaryKey: "id",
		Fields: []domain.Field{
			{Name: "id", Kind: domain.FieldTag},
			{Name: "vec", Kind: domain.FieldVector, VectorDim: 4},
		},
	}
}

func countingHooks(created, populated *int) TableHooks {
	return TableHooks{
		Create: func(_ context.Context, _ *domain.Schema, _ bool) error {
			*created++
			return nil
		},
		Populate: func(_ context.Context, _ *domain.Schema, _ bool) error {
			*populated++
			return nil
		},
	}
}

func TestInit_PopulatesEmptyTable(t *testing.T) {
	var created, populated int
	m := NewManager(&mockCounter{empty: map[string]bool{"listings": true}}, zap.NewNop())
	if err := m.Register("listings", testSchema(), countingHooks(&created, &populated)); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := m.Init(context.Background(), false); err != nil {
		t.Fatalf("init: %v", err)
	}
	if created != 1 || populated != 1 {
		t.Fatalf("created=%d populated=%d, want 1/1", created, populated)
	}
}

func TestInit_SkipsPopulatedTable(t *testing.T) {
	var created, populated int
	m := NewManager(&mockCounter{empty: map[string]bool{"listings": false}}, zap.NewNop())
	if err := m.Register("listings", testSchema(), countingHooks(&created, &populated)); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Two idempotent runs: creation re-invoked, population never.
	for i := 0; i < 2; i++ {
		if err := m.Init(context.Background(), false); err != nil {
			t.Fatalf("init #%d: %v", i, err)
		}
	}
	if created != 2 {
		t.Fatalf("create hook must run on every init, got %d", created)
	}
	if populated != 0 {
		t.Fatalf("populate hook must not run on populated table, got %d", populated)
	}
}

func TestInit_ResetRepopulates(t *testing.T) {
	var created, populated int
	// Table reports non-empty; reset must repopulate regardless.
	m := NewManager(&mockCounter{empty: map[string]bool{"listings": false}}, zap.NewNop())
	if err := m.Register("listings", testSchema(), countingHooks(&created, &populated)); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := m.Init(context.Background(), true); err != nil {
		t.Fatalf("init: %v", err)
	}
	if created != 1 || populated != 1 {
		t.Fatalf("created=%d populated=%d, want 1/1", created, populated)
	}
}

func TestInit_MissingCreateHook(t *testing.T) {
	m := NewManager(&mockCounter{}, zap.NewNop())
	if err := m.Register("listings", testSchema(), TableHooks{}); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := m.Init(context.Background(), false)
	var mh *domain.MissingHookError
	if !errors.As(err, &mh) {
		t.Fatalf("expected MissingHookError, got %v", err)
	}
	if mh.Table != "listings" {
		t.Fatalf("wrong table: %q", mh.Table)
	}
	if !strings.Contains(err.Error(), "CreateTable(ctx context.Context, schema *domain.Schema, reset bool) error") {
		t.Fatalf("error must name the expected hook signature: %v", err)
	}
}

func TestInit_MissingPopulateHook(t *testing.T) {
	m := NewManager(&mockCounter{}, zap.NewNop())
	hooks := TableHooks{
		Create: func(_ context.Context, _ *domain.Schema, _ bool) error { return nil },
	}
	if err := m.Register("listings", testSchema(), hooks); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := m.Init(context.Background(), false)
	var mh *domain.MissingHookError
	if !errors.As(err, &mh) {
		t.Fatalf("expected MissingHookError, got %v", err)
	}
	if !strings.Contains(err.Error(), "PopulateTable(ctx context.Context, schema *domain.Schema, reset bool) error") {
		t.Fatalf("error must name the expected hook signature: %v", err)
	}
}

func TestInit_DeclarationOrder(t *testing.T) {
	var order []string
	hooksFor := func(name string) TableHooks {
		return TableHooks{
			Create: func(_ context.Context, _ *domain.Schema, _ bool) error {
				order = append(order, "create:"+name)
				return nil
			},
			Populate: func(_ context.Context, _ *domain.Schema, _ bool) error {
				order = append(order, "populate:"+name)
				return nil
			},
		}
	}

	m := NewManager(&mockCounter{empty: map[string]bool{"a": true, "b": true}}, zap.NewNop())
	if err := m.Register("a", testSchema(), hooksFor("a")); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := m.Register("b", testSchema(), hooksFor("b")); err != nil {
		t.Fatalf("register b: %v", err)
	}

	if err := m.Init(context.Background(), false); err != nil {
		t.Fatalf("init: %v", err)
	}

	want := []string{"create:a", "populate:a", "create:b", "populate:b"}
	if len(order) != len(want) {
		t.Fatalf("got order %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("got order %v, want %v", order, want)
		}
	}
}

func TestRegister_InvalidSchema(t *testing.T) {
	m := NewManager(&mockCounter{}, zap.NewNop())
	bad := &domain.Schema{PrimaryKey: "id"} // no fields
	err := m.Register("listings", bad, TableHooks{})
	if !errors.Is(err, domain.ErrInvalidSchema) {
		t.Fatalf("expected ErrInvalidSchema, got %v", err)
	}
}

func TestRegister_DuplicateTable(t *testing.T) {
	m := NewManager(&mockCounter{}, zap.NewNop())
	if err := m.Register("listings", testSchema(), TableHooks{}); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := m.Register("listings", testSchema(), TableHooks{}); err == nil {
		t.Fatal("expected error for duplicate declaration")
	}
}
