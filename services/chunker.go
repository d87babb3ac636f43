package services

import (
	"context"
	"iter"
	"strings"
	"unicode/utf8"

	"pdf-chat-backend/internal/apperr"
	"pdf-chat-backend/models"
)

// separators are tried in order: paragraph, line, sentence, word, character.
var separators = []string{"\n\n", "\n", sentenceSep, " ", ""}

// Sentence pieces keep their period and are rejoined with a space.
const sentenceSep = ". "

// Chunker splits documents into overlapping chunks of at most size runes.
type Chunker struct {
	size    int
	overlap int
}

// NewChunker validates the splitting parameters.
func NewChunker(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, apperr.New(apperr.ErrSplit, "services.NewChunker", "chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, apperr.New(apperr.ErrSplit, "services.NewChunker", "chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Chunks loads the document at path and yields its chunks page by page.
// Each range over the sequence reloads the document.
func (c *Chunker) Chunks(ctx context.Context, path string) iter.Seq2[models.Chunk, error] {
	return func(yield func(models.Chunk, error) bool) {
		pages, err := LoadDocument(path)
		if err != nil {
			yield(models.Chunk{}, err)
			return
		}

		order := 0
		for _, page := range pages {
			for _, text := range c.Split(page.Text) {
				if err := ctx.Err(); err != nil {
					yield(models.Chunk{}, apperr.Wrap(apperr.ErrLoad, "services.Chunker.Chunks", err))
					return
				}
				if !yield(models.NewChunk(path, page.Number, order, text), nil) {
					return
				}
				order++
			}
		}
	}
}

// Split breaks text on the coarsest separator present, recursing into pieces that are
// still too long, then merges neighbours back up to the chunk size.
func (c *Chunker) Split(text string) []string {
	return c.split(text, separators)
}

func (c *Chunker) split(text string, seps []string) []string {
	sep := seps[len(seps)-1]
	var finer []string
	for i, s := range seps {
		if s == "" || strings.Contains(text, s) {
			sep = s
			finer = seps[i+1:]
			break
		}
	}

	var chunks, small []string
	for _, piece := range splitOn(text, sep) {
		if utf8.RuneCountInString(piece) < c.size {
			small = append(small, piece)
			continue
		}
		if len(small) > 0 {
			chunks = append(chunks, c.merge(small, joinerFor(sep))...)
			small = nil
		}
		if len(finer) == 0 {
			chunks = append(chunks, piece)
		} else {
			chunks = append(chunks, c.split(piece, finer)...)
		}
	}
	if len(small) > 0 {
		chunks = append(chunks, c.merge(small, joinerFor(sep))...)
	}
	return chunks
}

func joinerFor(sep string) string {
	if sep == sentenceSep {
		return " "
	}
	return sep
}

func splitOn(text, sep string) []string {
	var parts []string
	if sep == "" {
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}
	if sep == sentenceSep {
		for _, part := range strings.SplitAfter(text, sep) {
			if part = strings.TrimSuffix(part, " "); part != "" {
				parts = append(parts, part)
			}
		}
		return parts
	}
	for _, part := range strings.Split(text, sep) {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// merge packs pieces into chunks of at most size runes. Each new chunk starts with the
// trailing pieces of the previous one, up to overlap runes.
func (c *Chunker) merge(pieces []string, sep string) []string {
	sepLen := utf8.RuneCountInString(sep)
	joined := func(n int) int {
		if n > 0 {
			return sepLen
		}
		return 0
	}

	var chunks, window []string
	total := 0
	for _, piece := range pieces {
		n := utf8.RuneCountInString(piece)
		if total+n+joined(len(window)) > c.size && len(window) > 0 {
			if chunk := strings.TrimSpace(strings.Join(window, sep)); chunk != "" {
				chunks = append(chunks, chunk)
			}
			for total > c.overlap || (total > 0 && total+n+joined(len(window)) > c.size) {
				total -= utf8.RuneCountInString(window[0]) + joined(len(window)-1)
				window = window[1:]
			}
		}
		window = append(window, piece)
		total += n + joined(len(window)-1)
	}
	if chunk := strings.TrimSpace(strings.Join(window, sep)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}
