package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"pdf-chat-backend/internal/apperr"
)

func TestNewChunkerRejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name          string
		size, overlap int
	}{
		{"zero size", 0, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewChunker(tt.size, tt.overlap)
			if !errors.Is(err, apperr.ErrSplit) {
				t.Fatalf("expected split error, got %v", err)
			}
		})
	}
}

func mustChunker(t *testing.T, size, overlap int) *Chunker {
	t.Helper()
	c, err := NewChunker(size, overlap)
	if err != nil {
		t.Fatalf("NewChunker: %v", err)
	}
	return c
}

func TestSplitShortDocumentYieldsOneChunk(t *testing.T) {
	c := mustChunker(t, 1000, 200)
	chunks := c.Split("Atlas is a document database.\n\nIt stores JSON.")
	if len(chunks) != 1 {
		t.Fatalf("got %d chunks, want 1: %q", len(chunks), chunks)
	}
}

func TestSplitRespectsMaximumSize(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 60; i++ {
		b.WriteString("Paragraph number ")
		b.WriteString(strings.Repeat("word ", i%17+1))
		b.WriteString("ends here. Another sentence follows with ünïcödé text.\n")
		if i%5 == 0 {
			b.WriteString("\n")
		}
	}
	b.WriteString(strings.Repeat("x", 250))

	for _, cfg := range []struct{ size, overlap int }{{1000, 200}, {120, 30}, {40, 10}} {
		c := mustChunker(t, cfg.size, cfg.overlap)
		chunks := c.Split(b.String())
		if len(chunks) < 2 {
			t.Fatalf("size %d: expected several chunks, got %d", cfg.size, len(chunks))
		}
		for i, chunk := range chunks {
			if n := utf8.RuneCountInString(chunk); n > cfg.size {
				t.Errorf("size %d: chunk %d has %d runes", cfg.size, i, n)
			}
			if chunk == "" {
				t.Errorf("size %d: chunk %d is empty", cfg.size, i)
			}
		}
	}
}

func TestSplitCarriesOverlapBetweenChunks(t *testing.T) {
	c := mustChunker(t, 10, 3)
	chunks := c.Split("abcdefghijklmnopqrstuvwxyz")

	if len(chunks) < 3 {
		t.Fatalf("got %d chunks", len(chunks))
	}
	for i := 1; i < len(chunks); i++ {
		prev, next := chunks[i-1], chunks[i]
		if !strings.HasPrefix(next, prev[len(prev)-3:]) {
			t.Errorf("chunk %d %q does not start with the last 3 runes of %q", i, next, prev)
		}
	}
}

func TestSplitOverlapsWordsAcrossChunks(t *testing.T) {
	c := mustChunker(t, 30, 12)
	words := strings.Fields("one two three four five six seven eight nine ten eleven twelve thirteen fourteen")
	chunks := c.Split(strings.Join(words, " "))

	for i := 1; i < len(chunks); i++ {
		first := strings.Fields(chunks[i])[0]
		if !strings.Contains(chunks[i-1], first) {
			t.Errorf("chunk %d starts with %q, which is not carried over from %q", i, first, chunks[i-1])
		}
	}
}

func TestSplitPrefersParagraphBoundaries(t *testing.T) {
	c := mustChunker(t, 50, 0)
	para1 := "First paragraph talks about clusters."
	para2 := "Second paragraph talks about indexes."
	chunks := c.Split(para1 + "\n\n" + para2)

	if len(chunks) != 2 || chunks[0] != para1 || chunks[1] != para2 {
		t.Errorf("unexpected chunks: %q", chunks)
	}
}

func TestSplitKeepsParagraphsAfterPageNormalization(t *testing.T) {
	c := mustChunker(t, 60, 0)
	page := "First paragraph  about clusters here.\n \n\n\nSecond para - graph about\tindexes here.\n"
	chunks := c.Split(normalizePageText(page))

	want := []string{"First paragraph about clusters here.", "Second paragraph about indexes here."}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks: %q", len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestSplitKeepsSentencePeriods(t *testing.T) {
	c := mustChunker(t, 30, 0)
	chunks := c.Split("Atlas stores documents. Atlas builds indexes. Atlas scales out.")

	want := []string{"Atlas stores documents.", "Atlas builds indexes.", "Atlas scales out."}
	if len(chunks) != len(want) {
		t.Fatalf("got %d chunks: %q", len(chunks), chunks)
	}
	for i := range want {
		if chunks[i] != want[i] {
			t.Errorf("chunk %d = %q, want %q", i, chunks[i], want[i])
		}
	}
}

func TestChunksIsRestartable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	text := strings.Repeat("Atlas replicates data across nodes. ", 80)
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		t.Fatal(err)
	}
	c := mustChunker(t, 200, 40)

	collect := func() []string {
		var out []string
		for chunk, err := range c.Chunks(context.Background(), path) {
			if err != nil {
				t.Fatalf("Chunks: %v", err)
			}
			if chunk.Source != path || chunk.Page != 1 || chunk.ID == "" {
				t.Fatalf("unexpected chunk metadata: %+v", chunk)
			}
			out = append(out, chunk.ID)
		}
		return out
	}

	first, second := collect(), collect()
	if len(first) == 0 || len(first) != len(second) {
		t.Fatalf("runs differ in length: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chunk %d id differs between runs", i)
		}
	}
}

func TestChunksStopsEarly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.txt")
	if err := os.WriteFile(path, []byte(strings.Repeat("word ", 500)), 0o644); err != nil {
		t.Fatal(err)
	}
	c := mustChunker(t, 50, 10)

	seen := 0
	for range c.Chunks(context.Background(), path) {
		seen++
		if seen == 2 {
			break
		}
	}
	if seen != 2 {
		t.Errorf("seen = %d", seen)
	}
}

func TestChunksMissingFileYieldsLoadError(t *testing.T) {
	c := mustChunker(t, 100, 10)
	var got error
	for _, err := range c.Chunks(context.Background(), filepath.Join(t.TempDir(), "missing.pdf")) {
		got = err
	}
	if !errors.Is(got, apperr.ErrLoad) {
		t.Fatalf("expected load error, got %v", got)
	}
}
