package session

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/MohamedRasheqA/bents-v3/internal/log"
	"github.com/MohamedRasheqA/bents-v3/internal/testutil"
)

func TestStoreIntegration(t *testing.T) {
	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := New(NewQueries(db.Pool), db.Pool, log.NewNop())

	t.Run("create and get", func(t *testing.T) {
		sess, err := store.Create(ctx, "Dust collection")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if sess.ID == uuid.Nil {
			t.Fatal("session ID is nil")
		}

		got, err := store.Get(ctx, sess.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Title != "Dust collection" {
			t.Errorf("title = %q", got.Title)
		}
	})

	t.Run("empty title stores null", func(t *testing.T) {
		sess, err := store.Create(ctx, "")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		got, err := store.Get(ctx, sess.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Title != "" {
			t.Errorf("title = %q, want empty", got.Title)
		}
	})

	t.Run("update title", func(t *testing.T) {
		sess, err := store.Create(ctx, "")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if err := store.UpdateTitle(ctx, sess.ID, "Jointer knife replacement"); err != nil {
			t.Fatalf("UpdateTitle() error = %v", err)
		}
		got, err := store.Get(ctx, sess.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Title != "Jointer knife replacement" {
			t.Errorf("title = %q", got.Title)
		}

		if err := store.UpdateTitle(ctx, uuid.New(), "x"); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("unknown session error = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("append turn assigns contiguous sequence numbers", func(t *testing.T) {
		sess, err := store.Create(ctx, "sequencing")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if err := store.AppendTurn(ctx, sess.ID, "first question", "first answer"); err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}
		if err := store.AppendTurn(ctx, sess.ID, "second question", "second answer"); err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}

		msgs, err := store.Messages(ctx, sess.ID)
		if err != nil {
			t.Fatalf("Messages() error = %v", err)
		}
		if len(msgs) != 4 {
			t.Fatalf("got %d messages, want 4", len(msgs))
		}
		for i, msg := range msgs {
			if msg.SequenceNumber != int32(i+1) {
				t.Errorf("message %d sequence = %d, want %d", i, msg.SequenceNumber, i+1)
			}
		}
		if msgs[0].Role != RoleUser || msgs[1].Role != RoleModel {
			t.Errorf("roles = %q, %q", msgs[0].Role, msgs[1].Role)
		}

		history, err := store.History(ctx, sess.ID)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(history) != 4 {
			t.Errorf("history length = %d, want 4", len(history))
		}
		if history[2].Text() != "second question" {
			t.Errorf("history[2] = %q", history[2].Text())
		}
	})

	t.Run("append turn to unknown session", func(t *testing.T) {
		err := store.AppendTurn(ctx, uuid.New(), "q", "a")
		if !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("error = %v, want ErrSessionNotFound", err)
		}
	})

	t.Run("delete cascades to messages", func(t *testing.T) {
		sess, err := store.Create(ctx, "doomed")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if err := store.AppendTurn(ctx, sess.ID, "q", "a"); err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}

		if err := store.Delete(ctx, sess.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if _, err := store.Get(ctx, sess.ID); !errors.Is(err, ErrSessionNotFound) {
			t.Errorf("Get() error = %v, want ErrSessionNotFound", err)
		}

		msgs, err := store.Messages(ctx, sess.ID)
		if err != nil {
			t.Fatalf("Messages() error = %v", err)
		}
		if len(msgs) != 0 {
			t.Errorf("got %d orphaned messages", len(msgs))
		}
	})

	t.Run("list orders by most recently updated", func(t *testing.T) {
		first, err := store.Create(ctx, "older")
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if _, err := store.Create(ctx, "newer"); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		// appending bumps updated_at, moving the older session to the front
		if err := store.AppendTurn(ctx, first.ID, "q", "a"); err != nil {
			t.Fatalf("AppendTurn() error = %v", err)
		}

		sessions, err := store.List(ctx, 50, 0)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(sessions) < 2 {
			t.Fatalf("got %d sessions", len(sessions))
		}
		if sessions[0].ID != first.ID {
			t.Errorf("first listed = %s, want %s", sessions[0].ID, first.ID)
		}
	})
}
