package vectordb

import (
	"errors"
	"os"
	"slices"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	f, err := os.CreateTemp("", "vaultsearch-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	f.Close()
	t.Cleanup(func() {
		os.Remove(f.Name())
		os.Remove(f.Name() + "-wal")
		os.Remove(f.Name() + "-shm")
	})

	db, err := Open(f.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func vec(xs ...float32) []float32 { return xs }

func sampleNote(id string) NoteRecord {
	return NoteRecord{
		ID:     id,
		Path:   "Notes/" + id + ".md",
		Title:  id,
		Gist:   "This is a test note",
		Type:   "note",
		Status: "active",
		Area:   "tech",
		Tags:   []string{"test", "go", "test"},
		MTime:  1704067200,
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	for _, table := range []string{"notes", "embeddings", "index_meta"} {
		var count int
		if err := db.conn.QueryRow(`SELECT count(*) FROM ` + table).Scan(&count); err != nil {
			t.Errorf("%s table missing: %v", table, err)
		}
	}
}

func TestUpsertAndGetNote(t *testing.T) {
	db := testDB(t)
	want := sampleNote("test-note")
	if err := db.UpsertNote(want, vec(0.1, 0.2, 0.3)); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}

	got, err := db.GetNote("test-note")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got == nil {
		t.Fatal("GetNote returned nil")
	}
	if got.Title != want.Title || got.Path != want.Path || got.Gist != want.Gist ||
		got.Type != want.Type || got.Status != want.Status || got.Area != want.Area || got.MTime != want.MTime {
		t.Errorf("GetNote = %+v, want %+v", got, want)
	}
	if !slices.Equal(got.Tags, want.Tags) {
		t.Errorf("tags = %v, want %v (order and duplicates preserved)", got.Tags, want.Tags)
	}

	emb, err := db.GetEmbedding("test-note")
	if err != nil {
		t.Fatalf("GetEmbedding: %v", err)
	}
	if !slices.Equal(emb, vec(0.1, 0.2, 0.3)) {
		t.Errorf("embedding = %v", emb)
	}
}

func TestUpsert_OptionalFieldsStayEmpty(t *testing.T) {
	db := testDB(t)
	if err := db.UpsertNote(NoteRecord{ID: "bare", Path: "bare.md", Title: "bare"}, vec(1)); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	got, _ := db.GetNote("bare")
	if got.Gist != "" || got.Type != "" || got.Status != "" || got.Area != "" {
		t.Errorf("optional fields = %+v, want empty", got)
	}
	if got.Tags == nil || len(got.Tags) != 0 {
		t.Errorf("tags = %#v, want empty slice", got.Tags)
	}

	var gist *string
	if err := db.conn.QueryRow(`SELECT gist FROM notes WHERE id = 'bare'`).Scan(&gist); err != nil {
		t.Fatal(err)
	}
	if gist != nil {
		t.Errorf("empty gist stored as %q, want NULL", *gist)
	}
}

func TestUpsertReplacesExisting(t *testing.T) {
	db := testDB(t)
	first := sampleNote("up")
	second := sampleNote("up")
	second.Title = "Updated"
	second.Tags = []string{"new"}

	_ = db.UpsertNote(first, vec(1, 0))
	if err := db.UpsertNote(second, vec(0, 1)); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}

	st, err := db.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.DocumentCount != 1 || st.EmbeddingCount != 1 {
		t.Errorf("stats = %+v, want one document and one embedding", st)
	}
	got, _ := db.GetNote("up")
	if got.Title != "Updated" || !slices.Equal(got.Tags, []string{"new"}) {
		t.Errorf("second write not in effect: %+v", got)
	}
	emb, _ := db.GetEmbedding("up")
	if !slices.Equal(emb, vec(0, 1)) {
		t.Errorf("embedding = %v, want [0 1]", emb)
	}
}

func TestDeleteNote(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(sampleNote("del"), vec(1, 2))

	if err := db.DeleteNote("del"); err != nil {
		t.Fatalf("DeleteNote: %v", err)
	}
	got, err := db.GetNote("del")
	if err != nil {
		t.Fatalf("GetNote: %v", err)
	}
	if got != nil {
		t.Errorf("deleted note still present: %+v", got)
	}
	st, _ := db.Stats()
	if st.EmbeddingCount != 0 {
		t.Errorf("embedding_count = %d after delete, want 0", st.EmbeddingCount)
	}
	if err := db.DeleteNote("never-existed"); err != nil {
		t.Errorf("deleting unknown id: %v", err)
	}
}

func TestForeignKeyCascade(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(sampleNote("cascade"), vec(1))

	if _, err := db.conn.Exec(`DELETE FROM notes WHERE id = 'cascade'`); err != nil {
		t.Fatal(err)
	}
	var n int
	_ = db.conn.QueryRow(`SELECT count(*) FROM embeddings`).Scan(&n)
	if n != 0 {
		t.Errorf("embeddings left after note row delete: %d", n)
	}
}

func TestGetNote_NotFound(t *testing.T) {
	db := testDB(t)
	got, err := db.GetNote("nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
	emb, err := db.GetEmbedding("nonexistent")
	if err != nil || emb != nil {
		t.Errorf("GetEmbedding = %v, %v; want nil, nil", emb, err)
	}
}

func TestSearch_OrderingAndLimit(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(sampleNote("exact"), vec(1, 0, 0))
	_ = db.UpsertNote(sampleNote("close"), vec(0.9, 0.1, 0))
	_ = db.UpsertNote(sampleNote("far"), vec(0, 1, 0))
	_ = db.UpsertNote(sampleNote("opposite"), vec(-1, 0, 0))

	res, err := db.Search(vec(1, 0, 0), 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	var ids []string
	for _, r := range res {
		ids = append(ids, r.Note.ID)
	}
	if want := []string{"exact", "close", "far", "opposite"}; !slices.Equal(ids, want) {
		t.Errorf("order = %v, want %v", ids, want)
	}
	for i := 1; i < len(res); i++ {
		if res[i].Score > res[i-1].Score {
			t.Errorf("scores not non-increasing at %d: %v > %v", i, res[i].Score, res[i-1].Score)
		}
	}
	if res[0].Score < 0.999 || res[3].Score > -0.999 {
		t.Errorf("score range = [%v, %v], want ~[-1, 1]", res[3].Score, res[0].Score)
	}

	res, _ = db.Search(vec(1, 0, 0), 2)
	if len(res) != 2 {
		t.Errorf("k=2 returned %d results", len(res))
	}
	res, _ = db.Search(vec(1, 0, 0), 0)
	if len(res) != 0 {
		t.Errorf("k=0 returned %d results", len(res))
	}
}

func TestSearch_TieBreakByID(t *testing.T) {
	db := testDB(t)
	for _, id := range []string{"charlie", "alpha", "bravo"} {
		_ = db.UpsertNote(sampleNote(id), vec(0, 1))
	}
	res, err := db.Search(vec(0, 1), 3)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	var ids []string
	for _, r := range res {
		ids = append(ids, r.Note.ID)
	}
	if want := []string{"alpha", "bravo", "charlie"}; !slices.Equal(ids, want) {
		t.Errorf("tie order = %v, want %v", ids, want)
	}
}

func TestSearch_Empty(t *testing.T) {
	db := testDB(t)
	res, err := db.Search(vec(1, 0), 5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if res == nil || len(res) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", res)
	}
}

func TestSearch_CorruptBlob(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(sampleNote("bad"), vec(1, 0))
	if _, err := db.conn.Exec(`UPDATE embeddings SET embedding = x'00000000ff' WHERE note_id = 'bad'`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.Search(vec(1, 0), 5); !errors.Is(err, ErrCorruptEmbedding) {
		t.Errorf("err = %v, want ErrCorruptEmbedding", err)
	}
}

func TestCorruptTags(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(sampleNote("tagged"), vec(1, 0))
	if _, err := db.conn.Exec(`UPDATE notes SET tags = 'not json' WHERE id = 'tagged'`); err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetNote("tagged"); !errors.Is(err, ErrCorruptTags) {
		t.Errorf("GetNote err = %v, want ErrCorruptTags", err)
	}
	if _, err := db.Search(vec(1, 0), 5); !errors.Is(err, ErrCorruptTags) {
		t.Errorf("Search err = %v, want ErrCorruptTags", err)
	}
}

func TestMeta(t *testing.T) {
	db := testDB(t)
	if _, ok, err := db.GetMeta("missing"); err != nil || ok {
		t.Errorf("GetMeta(missing) ok=%v err=%v", ok, err)
	}
	_ = db.SetMeta("indexed_count", "1")
	if err := db.SetMeta("indexed_count", "2"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	v, ok, err := db.GetMeta("indexed_count")
	if err != nil || !ok || v != "2" {
		t.Errorf("GetMeta = %q, %v, %v; want 2, true, nil", v, ok, err)
	}
}

func TestStats_LastIndexed(t *testing.T) {
	db := testDB(t)
	st, err := db.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.DocumentCount != 0 || st.EmbeddingCount != 0 || st.LastIndexed != 0 {
		t.Errorf("empty stats = %+v", st)
	}

	db.now = func() time.Time { return time.Unix(1700000000, 0) }
	_ = db.UpsertNote(sampleNote("a"), vec(1))
	db.now = func() time.Time { return time.Unix(1700000500, 0) }
	_ = db.UpsertNote(sampleNote("b"), vec(1))

	st, _ = db.Stats()
	if st.LastIndexed != 1700000500 {
		t.Errorf("last_indexed = %d, want 1700000500", st.LastIndexed)
	}
}

func TestAllMtimes(t *testing.T) {
	db := testDB(t)
	a := sampleNote("a")
	a.MTime = 100
	b := sampleNote("b")
	b.MTime = 200
	_ = db.UpsertNote(a, vec(1))
	_ = db.UpsertNote(b, vec(1))

	got, err := db.AllMtimes()
	if err != nil {
		t.Fatalf("AllMtimes: %v", err)
	}
	if len(got) != 2 || got["a"] != 100 || got["b"] != 200 {
		t.Errorf("AllMtimes = %v", got)
	}
}

func TestReset(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertNote(sampleNote("a"), vec(1))
	_ = db.SetMeta("k", "v")

	if err := db.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	st, _ := db.Stats()
	if st.DocumentCount != 0 || st.EmbeddingCount != 0 {
		t.Errorf("stats after reset = %+v", st)
	}
	if _, ok, _ := db.GetMeta("k"); ok {
		t.Error("meta survived reset")
	}
}

func TestOpenInMemory(t *testing.T) {
	db, err := OpenInMemory()
	if err != nil {
		t.Fatalf("OpenInMemory: %v", err)
	}
	defer db.Close()

	if err := db.UpsertNote(sampleNote("mem"), vec(1, 0)); err != nil {
		t.Fatalf("UpsertNote: %v", err)
	}
	got, _ := db.GetNote("mem")
	if got == nil {
		t.Fatal("in-memory note not found")
	}
	_ = db.DeleteNote("mem")
	st, _ := db.Stats()
	if st.DocumentCount != 0 || st.EmbeddingCount != 0 {
		t.Errorf("stats = %+v", st)
	}
}
