package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirdavid001/online-exam-system/internal/session"
)

func TestMemoryStore_PutGetDelete(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()

	if _, ok, err := store.Get(ctx, 1, 2); ok || err != nil {
		t.Fatalf("expected absent session, ok=%v err=%v", ok, err)
	}

	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	want := session.ExamSession{QuestionIDs: []int64{3, 1, 2}, StartedAt: started}
	if err := store.Put(ctx, 1, 2, want); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := store.Get(ctx, 1, 2)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(got.QuestionIDs) != 3 || got.QuestionIDs[0] != 3 {
		t.Fatalf("question order not preserved: %v", got.QuestionIDs)
	}
	if !got.StartedAt.Equal(started) {
		t.Fatalf("started at mismatch: %v", got.StartedAt)
	}

	// Distinct (student, course) pairs do not collide.
	if _, ok, _ := store.Get(ctx, 2, 1); ok {
		t.Fatalf("key collision between (1,2) and (2,1)")
	}

	if err := store.Delete(ctx, 1, 2); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, 1, 2); ok {
		t.Fatalf("expected session gone after delete")
	}
}

func TestMemoryStore_LastStartWins(t *testing.T) {
	ctx := context.Background()
	store := session.NewMemoryStore()

	first := session.ExamSession{QuestionIDs: []int64{1, 2}, StartedAt: time.Now()}
	second := session.ExamSession{QuestionIDs: []int64{2, 1}, StartedAt: time.Now().Add(time.Minute)}

	if err := store.Put(ctx, 5, 5, first); err != nil {
		t.Fatalf("put first: %v", err)
	}
	if err := store.Put(ctx, 5, 5, second); err != nil {
		t.Fatalf("put second: %v", err)
	}

	got, ok, err := store.Get(ctx, 5, 5)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.QuestionIDs[0] != 2 {
		t.Fatalf("expected the later session to win, got %v", got.QuestionIDs)
	}
}

func TestMemoryStore_DeleteMissingIsNoop(t *testing.T) {
	if err := session.NewMemoryStore().Delete(context.Background(), 9, 9); err != nil {
		t.Fatalf("delete of absent session should not error: %v", err)
	}
}
