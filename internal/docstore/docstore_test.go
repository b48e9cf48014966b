package docstore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:): %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func mustCreate(t *testing.T, s *Store, title, content string) string {
	t.Helper()
	doc, err := s.CreateDocument(context.Background(), title, content)
	if err != nil {
		t.Fatalf("CreateDocument(%q): %v", title, err)
	}
	return doc.ID
}

// ---

func Test_Store_CreateAndGetDocument(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	doc, err := s.CreateDocument(ctx, "Pricing Plans", "Basic is $99/month.")
	if err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}
	if doc.ID == "" {
		t.Fatal("CreateDocument returned empty id")
	}
	if doc.CreatedAt.IsZero() {
		t.Fatal("CreateDocument returned zero timestamp")
	}

	got, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Title != doc.Title || got.Content != doc.Content {
		t.Errorf("GetDocument = %+v, want %+v", got, doc)
	}
	if !got.CreatedAt.Equal(doc.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, doc.CreatedAt)
	}
}

func Test_Store_CreateDocument_Validation(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.CreateDocument(ctx, "", "body"); !errors.Is(err, ErrEmptyTitle) {
		t.Errorf("empty title: err = %v, want ErrEmptyTitle", err)
	}
	if _, err := s.CreateDocument(ctx, "title", ""); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("empty content: err = %v, want ErrEmptyContent", err)
	}
}

func Test_Store_GetDocument_NotFound(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	_, err := s.GetDocument(context.Background(), "no-such-id")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func Test_Store_ListAndRecent_NewestFirst(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	// Same creation second is likely in-memory; ordering falls back to id,
	// so force distinct timestamps directly.
	ids := []string{
		mustCreate(t, s, "first", "a"),
		mustCreate(t, s, "second", "b"),
		mustCreate(t, s, "third", "c"),
	}
	base := time.Now().Unix()
	for i, id := range ids {
		if _, err := s.db.ExecContext(ctx, `UPDATE documents SET created_at = ? WHERE id = ?`, base+int64(i), id); err != nil {
			t.Fatalf("backdate: %v", err)
		}
	}

	all, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("ListDocuments returned %d docs, want 3", len(all))
	}
	if all[0].Title != "third" || all[2].Title != "first" {
		t.Errorf("ListDocuments order = [%s %s %s], want newest first", all[0].Title, all[1].Title, all[2].Title)
	}

	recent, err := s.RecentDocuments(ctx, 2)
	if err != nil {
		t.Fatalf("RecentDocuments: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("RecentDocuments returned %d docs, want 2", len(recent))
	}
	if recent[0].Title != "third" || recent[1].Title != "second" {
		t.Errorf("RecentDocuments = [%s %s], want [third second]", recent[0].Title, recent[1].Title)
	}
}

func Test_Store_DeleteDocument_CascadesVector(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	id := mustCreate(t, s, "doomed", "gone soon")
	if _, err := s.CreateVector(ctx, id, []float32{0.1, 0.2, 0.3}); err != nil {
		t.Fatalf("CreateVector: %v", err)
	}

	if err := s.DeleteDocument(ctx, id); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	if _, err := s.GetDocument(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetDocument after delete: err = %v, want ErrNotFound", err)
	}
	n, err := s.CountVectors(ctx)
	if err != nil {
		t.Fatalf("CountVectors: %v", err)
	}
	if n != 0 {
		t.Errorf("CountVectors after cascade = %d, want 0", n)
	}
}

func Test_Store_DeleteDocument_NotFound(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	if err := s.DeleteDocument(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// ---

func Test_Store_CreateVector_RoundTrip(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	id := mustCreate(t, s, "doc", "body")
	want := []float32{0.25, -0.5, 1.0}
	if _, err := s.CreateVector(ctx, id, want); err != nil {
		t.Fatalf("CreateVector: %v", err)
	}

	v, err := s.GetVector(ctx, id)
	if err != nil {
		t.Fatalf("GetVector: %v", err)
	}
	if len(v.Embedding) != len(want) {
		t.Fatalf("embedding length = %d, want %d", len(v.Embedding), len(want))
	}
	for i := range want {
		if v.Embedding[i] != want[i] {
			t.Errorf("embedding[%d] = %v, want %v", i, v.Embedding[i], want[i])
		}
	}
}

func Test_Store_CreateVector_ReplacesExisting(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	id := mustCreate(t, s, "doc", "body")
	if _, err := s.CreateVector(ctx, id, []float32{1, 0, 0}); err != nil {
		t.Fatalf("first CreateVector: %v", err)
	}
	if _, err := s.CreateVector(ctx, id, []float32{0, 1, 0}); err != nil {
		t.Fatalf("second CreateVector: %v", err)
	}

	n, err := s.CountVectors(ctx)
	if err != nil {
		t.Fatalf("CountVectors: %v", err)
	}
	if n != 1 {
		t.Errorf("CountVectors = %d, want 1 (upsert must replace)", n)
	}
	v, err := s.GetVector(ctx, id)
	if err != nil {
		t.Fatalf("GetVector: %v", err)
	}
	if v.Embedding[1] != 1 {
		t.Errorf("embedding = %v, want the replacement vector", v.Embedding)
	}
}

func Test_Store_CreateVector_DimensionMismatch(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	a := mustCreate(t, s, "a", "x")
	b := mustCreate(t, s, "b", "y")

	if _, err := s.CreateVector(ctx, a, []float32{1, 2, 3}); err != nil {
		t.Fatalf("CreateVector: %v", err)
	}
	if _, err := s.CreateVector(ctx, b, []float32{1, 2}); err == nil {
		t.Error("CreateVector accepted a vector with mismatched dimensions")
	}

	dims, err := s.VectorDims(ctx)
	if err != nil {
		t.Fatalf("VectorDims: %v", err)
	}
	if dims != 3 {
		t.Errorf("VectorDims = %d, want 3", dims)
	}
}

func Test_Store_CreateVector_UnknownDocument(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	if _, err := s.CreateVector(context.Background(), "no-doc", []float32{1}); err == nil {
		t.Error("CreateVector accepted a vector for a nonexistent document")
	}
}

func Test_Store_DeleteAllVectors(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b"} {
		id := mustCreate(t, s, name, "body")
		if _, err := s.CreateVector(ctx, id, []float32{1, 2}); err != nil {
			t.Fatalf("CreateVector(%s): %v", name, err)
		}
	}

	n, err := s.DeleteAllVectors(ctx)
	if err != nil {
		t.Fatalf("DeleteAllVectors: %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteAllVectors = %d, want 2", n)
	}

	docs, err := s.ListDocuments(ctx)
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Errorf("documents survived = %d, want 2 (vector wipe must not touch documents)", len(docs))
	}
	dims, err := s.VectorDims(ctx)
	if err != nil {
		t.Fatalf("VectorDims: %v", err)
	}
	if dims != 0 {
		t.Errorf("VectorDims after wipe = %d, want 0", dims)
	}
}

func Test_Store_Ping(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	if err := s.Ping(context.Background()); err != nil {
		t.Errorf("Ping: %v", err)
	}
}
