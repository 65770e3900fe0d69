package session

import (
	"path/filepath"
	"testing"

	"github.com/bryfeng/sherpa-front-sub002/internal/model"
	"github.com/bryfeng/sherpa-front-sub002/internal/panel"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "session.db"), filepath.Join(dir, "session.lock"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreRoundTrip(t *testing.T) {
	store := openTestStore(t)

	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("fresh store: ok=%v err=%v", ok, err)
	}

	snap := Snapshot{
		ConversationID: "conv-123",
		Messages: []model.ChatMessage{
			{Role: "user", Content: "swap 1 eth to usdc"},
			{Role: "assistant", Content: "Here is a quote."},
		},
		Widgets: []panel.Widget{
			{ID: "conv_swap_1", Kind: panel.KindCard, Title: "Swap quote", Order: 0},
			{ID: "token-price", Kind: panel.KindPrices, Title: "Prices", Order: 1},
		},
		Highlighted: []string{"conv_swap_1"},
	}
	if err := store.Save(snap); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("Load failed: ok=%v err=%v", ok, err)
	}
	if got.ConversationID != "conv-123" {
		t.Fatalf("unexpected conversation id: %s", got.ConversationID)
	}
	if len(got.Widgets) != 2 || got.Widgets[1].ID != "token-price" {
		t.Fatalf("unexpected widgets: %+v", got.Widgets)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "user" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
	if got.UpdatedAt.IsZero() {
		t.Fatal("expected save to stamp updated_at")
	}
}

func TestStoreSaveOverwrites(t *testing.T) {
	store := openTestStore(t)

	if err := store.Save(Snapshot{ConversationID: "first"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save(Snapshot{ConversationID: "second"}); err != nil {
		t.Fatalf("Save update failed: %v", err)
	}
	got, ok, err := store.Load()
	if err != nil || !ok {
		t.Fatalf("Load failed: ok=%v err=%v", ok, err)
	}
	if got.ConversationID != "second" {
		t.Fatalf("expected latest snapshot, got %s", got.ConversationID)
	}
}

func TestStoreReset(t *testing.T) {
	store := openTestStore(t)

	if err := store.Save(Snapshot{ConversationID: "live"}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Reset(); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if _, ok, err := store.Load(); err != nil || ok {
		t.Fatalf("expected empty store after reset: ok=%v err=%v", ok, err)
	}
}
