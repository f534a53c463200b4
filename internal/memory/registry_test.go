package memory

import (
	"context"
	"errors"
	"testing"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	registry, err := NewRegistry(func() (*Store, error) {
		return NewStore(&fakeSummarizer{}, 4, testLogger())
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	return registry
}

func TestRegistryReusesConversation(t *testing.T) {
	registry := testRegistry(t)

	first, err := registry.Get("conv-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	second, err := registry.Get("conv-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if first != second {
		t.Fatal("expected the same conversation for the same id")
	}

	other, err := registry.Get("conv-2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if other == first {
		t.Fatal("expected distinct conversations for distinct ids")
	}
}

func TestRegistryIsolatesConversations(t *testing.T) {
	registry := testRegistry(t)

	first, err := registry.Get("conv-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	err = first.Do(func(store *Store) error {
		if err := store.AddMessage(context.Background(), RoleHuman, "hello"); err != nil {
			return err
		}
		return store.AddMessage(context.Background(), RoleAI, "hi there")
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}

	second, err := registry.Get("conv-2")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	_ = second.Do(func(store *Store) error {
		if got := len(store.Snapshot().Buffer); got != 0 {
			t.Fatalf("expected empty buffer in fresh conversation, got %d turns", got)
		}
		return nil
	})
}

func TestRegistryLookup(t *testing.T) {
	registry := testRegistry(t)

	if _, ok := registry.Lookup("missing"); ok {
		t.Fatal("expected lookup miss for unknown conversation")
	}
	if _, err := registry.Get("conv-1"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if _, ok := registry.Lookup("conv-1"); !ok {
		t.Fatal("expected lookup hit after Get")
	}
}

func TestRegistryRequiresConversationID(t *testing.T) {
	registry := testRegistry(t)
	if _, err := registry.Get(""); err == nil {
		t.Fatal("expected error for empty conversation id")
	}
}

func TestRegistryPropagatesFactoryFailure(t *testing.T) {
	registry, err := NewRegistry(func() (*Store, error) {
		return nil, errors.New("bad summarizer")
	})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if _, err := registry.Get("conv-1"); err == nil {
		t.Fatal("expected factory error to propagate")
	}
}
