// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/morganforge/tllm/internal/model"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "tllm.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// =============================================================================
// CREATE TESTS
// =============================================================================

func TestCreateInvariant(t *testing.T) {
	s := newTestStore(t)

	// Without a system prompt the new conversation is empty.
	id, err := s.Create("")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	conv, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(conv.Messages) != 0 {
		t.Errorf("messages = %d, want 0", len(conv.Messages))
	}

	// With a system prompt it holds exactly one system message, first.
	id2, err := s.Create("be brief")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	conv2, err := s.Get(id2)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(conv2.Messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(conv2.Messages))
	}
	if conv2.Messages[0].Role != model.RoleSystem {
		t.Errorf("first message role = %q, want system", conv2.Messages[0].Role)
	}
	if conv2.Messages[0].Content != "be brief" {
		t.Errorf("system content = %q", conv2.Messages[0].Content)
	}
}

// =============================================================================
// APPEND TESTS
// =============================================================================

func TestAppendAndGetOrder(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.Create("sys")

	if err := s.Append(id, model.NewUserMessage("q1")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Append(id, model.NewAssistantMessage("a1", "openai")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := s.Append(id, model.NewUserMessage("q2")); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	conv, err := s.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	wantRoles := []model.Role{model.RoleSystem, model.RoleUser, model.RoleAssistant, model.RoleUser}
	if len(conv.Messages) != len(wantRoles) {
		t.Fatalf("messages = %d, want %d", len(conv.Messages), len(wantRoles))
	}
	for i, want := range wantRoles {
		if conv.Messages[i].Role != want {
			t.Errorf("message %d role = %q, want %q", i, conv.Messages[i].Role, want)
		}
	}
	if conv.Messages[2].Provider != "openai" {
		t.Errorf("assistant provider = %q", conv.Messages[2].Provider)
	}
}

func TestAppendNotFound(t *testing.T) {
	s := newTestStore(t)

	err := s.Append("conv_missing", model.NewUserMessage("hello"))
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestAppendUpdatesLastUpdated(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.Create("")

	before, err := s.Get(id)
	if err != nil {
		t.Fatal(err)
	}

	msg := model.NewUserMessage("hello")
	msg.Timestamp = time.Now().Add(time.Minute)
	if err := s.Append(id, msg); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	after, err := s.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Error("Append should advance updated_at atomically with the message insert")
	}
}

func TestAppendTruncatedMessage(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.Create("")

	s.Append(id, model.NewUserMessage("capital of france?"))
	partial := model.NewAssistantMessage("Paris", "openai")
	partial.Truncated = true
	if err := s.Append(id, partial); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	conv, _ := s.Get(id)
	last := conv.GetLastMessage()
	if !last.Truncated {
		t.Error("truncated flag should survive a round trip")
	}
	if last.Content != "Paris" {
		t.Errorf("content = %q", last.Content)
	}
}

// =============================================================================
// LOOKUP TESTS
// =============================================================================

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Get("conv_missing")
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound, got %v", err)
	}
}

// =============================================================================
// LISTING TESTS
// =============================================================================

func TestListRecentOrdering(t *testing.T) {
	s := newTestStore(t)

	first, _ := s.Create("")
	second, _ := s.Create("")
	third, _ := s.Create("")

	base := time.Now()
	appendAt := func(id string, at time.Time) {
		msg := model.NewUserMessage("ping")
		msg.Timestamp = at
		if err := s.Append(id, msg); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	appendAt(second, base.Add(1*time.Minute))
	appendAt(first, base.Add(2*time.Minute))
	appendAt(third, base.Add(3*time.Minute))

	entries, err := s.ListRecent()
	if err != nil {
		t.Fatalf("ListRecent failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}

	wantOrder := []string{third, first, second}
	for i, want := range wantOrder {
		if entries[i].ID != want {
			t.Errorf("entry %d = %s, want %s", i, entries[i].ID, want)
		}
	}

	// Ordering matches updated_at descending.
	for i := 1; i < len(entries); i++ {
		if entries[i].UpdatedAt.After(entries[i-1].UpdatedAt) {
			t.Error("listing should be most-recently-updated first")
		}
	}
}

func TestMostRecentIdempotent(t *testing.T) {
	s := newTestStore(t)

	s.Create("")
	id2, _ := s.Create("")
	msg := model.NewUserMessage("latest")
	msg.Timestamp = time.Now().Add(time.Minute)
	s.Append(id2, msg)

	first, err := s.MostRecent()
	if err != nil {
		t.Fatalf("MostRecent failed: %v", err)
	}
	second, err := s.MostRecent()
	if err != nil {
		t.Fatalf("MostRecent failed: %v", err)
	}
	if first != second {
		t.Errorf("MostRecent should be stable without intervening appends: %s vs %s", first, second)
	}
	if first != id2 {
		t.Errorf("MostRecent = %s, want %s", first, id2)
	}
}

func TestMostRecentEmpty(t *testing.T) {
	s := newTestStore(t)

	_, err := s.MostRecent()
	if !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound on empty store, got %v", err)
	}
}

// =============================================================================
// TITLE TESTS
// =============================================================================

func TestSetTitle(t *testing.T) {
	s := newTestStore(t)
	id, _ := s.Create("")

	if err := s.SetTitle(id, "capital_cities"); err != nil {
		t.Fatalf("SetTitle failed: %v", err)
	}
	conv, _ := s.Get(id)
	if conv.Title != "capital_cities" {
		t.Errorf("title = %q", conv.Title)
	}

	if err := s.SetTitle("conv_missing", "x"); !errors.Is(err, ErrConversationNotFound) {
		t.Errorf("expected ErrConversationNotFound, got %v", err)
	}
}

func TestSetTitlePreservesRecency(t *testing.T) {
	s := newTestStore(t)
	older, _ := s.Create("")
	newer, _ := s.Create("")

	msg := model.NewUserMessage("hi")
	msg.Timestamp = time.Now().Add(time.Minute)
	s.Append(newer, msg)

	if err := s.SetTitle(older, "renamed"); err != nil {
		t.Fatal(err)
	}

	head, _ := s.MostRecent()
	if head != newer {
		t.Error("SetTitle must not change recency ordering")
	}
}

// =============================================================================
// EXPORT TESTS
// =============================================================================

func TestExportAll(t *testing.T) {
	s := newTestStore(t)

	id1, _ := s.Create("sys")
	s.Append(id1, model.NewUserMessage("one"))
	id2, _ := s.Create("")
	s.Append(id2, model.NewUserMessage("two"))

	var seen []string
	err := s.ExportAll(func(conv *model.Conversation) error {
		seen = append(seen, conv.ID)
		if len(conv.Messages) == 0 {
			t.Errorf("conversation %s exported without messages", conv.ID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("ExportAll failed: %v", err)
	}
	if len(seen) != 2 {
		t.Errorf("exported %d conversations, want 2", len(seen))
	}
}

func TestExportAllStopsOnError(t *testing.T) {
	s := newTestStore(t)
	s.Create("")
	s.Create("")

	wantErr := errors.New("sink full")
	calls := 0
	err := s.ExportAll(func(*model.Conversation) error {
		calls++
		return wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("expected callback error to propagate, got %v", err)
	}
	if calls != 1 {
		t.Errorf("iteration should stop on first error, got %d calls", calls)
	}
}

// =============================================================================
// DURABILITY
// =============================================================================

func TestReopenPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tllm.db")

	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	id, _ := s.Create("sys")
	s.Append(id, model.NewUserMessage("hello"))
	s.Append(id, model.NewAssistantMessage("hi", "openai"))
	s.Close()

	s2, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()

	conv, err := s2.Get(id)
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if len(conv.Messages) != 3 {
		t.Errorf("messages after reopen = %d, want 3", len(conv.Messages))
	}
}
