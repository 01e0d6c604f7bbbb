// Package chunker splits note text into bounded, overlap-aware
// fragments sized for an embedding provider's input limit.
package chunker

import (
	"fmt"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chunk is a contiguous fragment of a source text. Offsets are byte
// positions in the source; chunks are never mutated after creation.
type Chunk struct {
	Text       string
	Index      int // 0-based, consecutive across a chunking call
	StartPos   int
	EndPos     int
	TokenCount int
}

// Config controls chunk sizing. Token counts are estimated from
// character length; this is an approximation, not a real tokenizer.
type Config struct {
	MaxTokens     int
	OverlapTokens int
	CharsPerToken float64
}

// DefaultConfig returns sizing defaults tuned for prose notes.
func DefaultConfig() Config {
	return Config{
		MaxTokens:     512,
		OverlapTokens: 50,
		CharsPerToken: 4.0,
	}
}

// ChunkSizeChars returns the approximate chunk size in bytes.
func (c Config) ChunkSizeChars() int {
	return int(float64(c.MaxTokens) * c.CharsPerToken)
}

// OverlapSizeChars returns the overlap size in bytes.
func (c Config) OverlapSizeChars() int {
	return int(float64(c.OverlapTokens) * c.CharsPerToken)
}

// EstimateTokens estimates the token count of text as
// ceil(len/CharsPerToken).
func (c Config) EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(math.Ceil(float64(len(text)) / c.CharsPerToken))
}

// Chunker splits documents into fragments according to its Config.
type Chunker struct {
	cfg Config
}

// New creates a chunker with the default configuration.
func New() *Chunker {
	return &Chunker{cfg: DefaultConfig()}
}

// WithConfig creates a chunker with a custom configuration.
func WithConfig(cfg Config) *Chunker {
	return &Chunker{cfg: cfg}
}

// Config returns the active configuration.
func (c *Chunker) Config() Config {
	return c.cfg
}

// ChunkText splits text with a sliding window and overlap. Window ends
// that fall mid-document are snapped backward to the nearest word or
// sentence boundary. A trailing fragment smaller than a quarter of the
// chunk size is merged into the previous chunk instead of being
// emitted on its own, so the last chunk always ends at len(text).
func (c *Chunker) ChunkText(text string) ([]Chunk, error) {
	if text == "" {
		return nil, nil
	}

	estimated := c.cfg.EstimateTokens(text)
	if estimated <= c.cfg.MaxTokens {
		return []Chunk{{
			Text:       text,
			Index:      0,
			StartPos:   0,
			EndPos:     len(text),
			TokenCount: estimated,
		}}, nil
	}

	chunkSize := c.cfg.ChunkSizeChars()
	overlapSize := c.cfg.OverlapSizeChars()
	step := chunkSize - overlapSize
	if step <= 0 {
		return nil, fmt.Errorf("overlap size (%d chars) must be smaller than chunk size (%d chars)", overlapSize, chunkSize)
	}

	var chunks []Chunk
	index := 0
	start := 0

	for start < len(text) {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}
		if end < len(text) {
			if snapped := c.wordBoundary(text, end); snapped > start {
				end = snapped
			}
		}

		piece := text[start:end]
		chunks = append(chunks, Chunk{
			Text:       piece,
			Index:      index,
			StartPos:   start,
			EndPos:     end,
			TokenCount: c.cfg.EstimateTokens(piece),
		})
		index++

		start += step
		if start >= len(text) {
			break
		}

		// Merge a degenerate tail into the previous chunk.
		if len(text)-start < chunkSize/4 {
			last := &chunks[len(chunks)-1]
			last.Text = text[last.StartPos:]
			last.EndPos = len(text)
			last.TokenCount = c.cfg.EstimateTokens(last.Text)
			break
		}
	}

	return chunks, nil
}

// wordBoundary snaps pos backward to just after the nearest whitespace
// or sentence punctuation within a bounded look-back. Returns pos
// unchanged when no boundary is found.
func (c *Chunker) wordBoundary(text string, pos int) int {
	const lookback = 50

	searchStart := pos - lookback
	if searchStart < 0 {
		searchStart = 0
	}
	window := text[searchStart:pos]

	idx := strings.LastIndexFunc(window, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(".!?,;:", r)
	})
	if idx < 0 {
		return pos
	}
	_, size := utf8.DecodeRuneInString(window[idx:])
	return searchStart + idx + size
}

// ChunkByParagraphs splits on blank-line-separated paragraphs,
// greedily packing paragraphs into a chunk until the next one would
// exceed MaxTokens. A single paragraph larger than MaxTokens falls
// back to the sliding-window strategy; indices stay consecutive across
// the fallback boundary.
func (c *Chunker) ChunkByParagraphs(text string) ([]Chunk, error) {
	if text == "" {
		return nil, nil
	}

	estimated := c.cfg.EstimateTokens(text)
	if estimated <= c.cfg.MaxTokens {
		return []Chunk{{
			Text:       text,
			Index:      0,
			StartPos:   0,
			EndPos:     len(text),
			TokenCount: estimated,
		}}, nil
	}

	const sep = "\n\n"
	paragraphs := strings.Split(text, sep)

	var chunks []Chunk
	var current strings.Builder
	currentStart := 0
	index := 0
	offset := 0 // byte offset of the paragraph being visited

	flush := func() {
		if current.Len() == 0 {
			return
		}
		piece := current.String()
		chunks = append(chunks, Chunk{
			Text:       piece,
			Index:      index,
			StartPos:   currentStart,
			EndPos:     currentStart + len(piece),
			TokenCount: c.cfg.EstimateTokens(piece),
		})
		index++
		current.Reset()
	}

	for _, paragraph := range paragraphs {
		paraTokens := c.cfg.EstimateTokens(paragraph)

		// An oversized paragraph is chunked on its own with the
		// sliding window, offsets shifted into the source text.
		if paraTokens > c.cfg.MaxTokens {
			flush()

			sub, err := c.ChunkText(paragraph)
			if err != nil {
				return nil, err
			}
			for _, sc := range sub {
				sc.Index = index
				sc.StartPos += offset
				sc.EndPos += offset
				chunks = append(chunks, sc)
				index++
			}

			offset += len(paragraph) + len(sep)
			continue
		}

		currentTokens := c.cfg.EstimateTokens(current.String())
		if currentTokens+paraTokens > c.cfg.MaxTokens && current.Len() > 0 {
			flush()
		}

		if current.Len() == 0 {
			currentStart = offset
		} else {
			current.WriteString(sep)
		}
		current.WriteString(paragraph)

		offset += len(paragraph) + len(sep)
	}

	flush()

	return chunks, nil
}
