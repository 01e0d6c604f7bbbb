package chunker

import (
	"strings"
	"testing"
)

func TestChunkText_SmallText(t *testing.T) {
	c := New()
	text := "A small note that fits in a single chunk."

	chunks, err := c.ChunkText(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	got := chunks[0]
	if got.Text != text {
		t.Errorf("expected chunk text to equal input")
	}
	if got.Index != 0 || got.StartPos != 0 || got.EndPos != len(text) {
		t.Errorf("unexpected chunk bounds: index=%d start=%d end=%d", got.Index, got.StartPos, got.EndPos)
	}
}

func TestChunkText_Empty(t *testing.T) {
	chunks, err := New().ChunkText("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty text, got %d", len(chunks))
	}
}

func TestChunkText_LargeText(t *testing.T) {
	c := New()
	text := strings.Repeat("word ", 3000) // well above 512 estimated tokens

	chunks, err := c.ChunkText(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("chunk %d has index %d, expected consecutive", i, chunk.Index)
		}
	}

	if chunks[0].StartPos != 0 {
		t.Errorf("first chunk starts at %d, expected 0", chunks[0].StartPos)
	}
	if last := chunks[len(chunks)-1]; last.EndPos != len(text) {
		t.Errorf("last chunk ends at %d, expected %d", last.EndPos, len(text))
	}

	// Adjacent chunks must overlap.
	for i := 0; i < len(chunks)-1; i++ {
		if chunks[i+1].StartPos >= chunks[i].EndPos {
			t.Errorf("chunk %d ends at %d but chunk %d starts at %d: no overlap",
				i, chunks[i].EndPos, i+1, chunks[i+1].StartPos)
		}
	}
}

func TestChunkText_OverlapGeqMaxFails(t *testing.T) {
	c := WithConfig(Config{MaxTokens: 100, OverlapTokens: 100, CharsPerToken: 4.0})

	_, err := c.ChunkText(strings.Repeat("a", 10000))
	if err == nil {
		t.Fatal("expected a configuration error when overlap >= max tokens, not an infinite loop")
	}
}

func TestChunkText_WordBoundary(t *testing.T) {
	c := WithConfig(Config{MaxTokens: 20, OverlapTokens: 4, CharsPerToken: 4.0})
	text := strings.Repeat("some words to split on boundaries here ", 20)

	chunks, err := c.ChunkText(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	// Non-final chunks should end just after whitespace or punctuation.
	for _, chunk := range chunks[:len(chunks)-1] {
		lastByte := chunk.Text[len(chunk.Text)-1]
		if lastByte != ' ' && !strings.ContainsRune(".!?,;:", rune(lastByte)) {
			t.Errorf("chunk %d ends mid-word: %q", chunk.Index, chunk.Text[len(chunk.Text)-10:])
		}
	}
}

func TestChunkText_TailMerge(t *testing.T) {
	// chunk size 400 bytes, step 360; a 450-byte unbreakable text
	// leaves a 90-byte tail (< 100 = quarter chunk), which must be
	// merged into the previous chunk.
	c := WithConfig(Config{MaxTokens: 100, OverlapTokens: 10, CharsPerToken: 4.0})
	text := strings.Repeat("a", 450)

	chunks, err := c.ChunkText(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected tail merged into a single chunk, got %d", len(chunks))
	}
	if chunks[0].EndPos != len(text) {
		t.Errorf("merged chunk ends at %d, expected %d", chunks[0].EndPos, len(text))
	}
	if chunks[0].Text != text {
		t.Error("merged chunk should cover the whole text")
	}
}

// Scenario from the sizing contract: 2000 characters at 100 tokens per
// chunk and 5 chars per token must yield several bounded, overlapping
// chunks.
func TestChunkText_SizingScenario(t *testing.T) {
	cfg := Config{MaxTokens: 100, OverlapTokens: 10, CharsPerToken: 5.0}
	c := WithConfig(cfg)
	text := strings.Repeat("a", 2000) // no boundaries: raw window ends

	chunks, err := c.ChunkText(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}

	for i, chunk := range chunks {
		// The merged final chunk may exceed the cap by the tail size.
		if i < len(chunks)-1 && chunk.TokenCount > cfg.MaxTokens {
			t.Errorf("chunk %d has %d estimated tokens, cap is %d", i, chunk.TokenCount, cfg.MaxTokens)
		}
	}

	overlap := cfg.OverlapSizeChars() // 50 chars
	for i := 0; i < len(chunks)-1; i++ {
		got := chunks[i].EndPos - chunks[i+1].StartPos
		if got < overlap {
			t.Errorf("chunks %d/%d overlap by %d chars, expected >= %d", i, i+1, got, overlap)
		}
	}
}

func TestChunkByParagraphs_Small(t *testing.T) {
	chunks, err := New().ChunkByParagraphs("Paragraph one.\n\nParagraph two.\n\nParagraph three.")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected a single chunk for a small text, got %d", len(chunks))
	}
}

func TestChunkByParagraphs_Packing(t *testing.T) {
	c := New()
	para1 := strings.Repeat("alpha ", 300)
	para2 := strings.Repeat("beta ", 300)
	para3 := strings.Repeat("gamma ", 300)
	text := para1 + "\n\n" + para2 + "\n\n" + para3

	chunks, err := c.ChunkByParagraphs(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("chunk %d has index %d, expected consecutive", i, chunk.Index)
		}
	}
}

func TestChunkByParagraphs_OversizedParagraphFallback(t *testing.T) {
	c := WithConfig(Config{MaxTokens: 50, OverlapTokens: 5, CharsPerToken: 4.0})
	small := "A short opening paragraph."
	big := strings.Repeat("long paragraph content ", 100) // far above 50 tokens
	text := small + "\n\n" + big

	chunks, err := c.ChunkByParagraphs(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected fallback to produce several chunks, got %d", len(chunks))
	}

	// Indices stay globally consecutive across the fallback boundary.
	for i, chunk := range chunks {
		if chunk.Index != i {
			t.Errorf("chunk %d has index %d", i, chunk.Index)
		}
	}

	// Fallback chunk offsets are positions in the original text.
	bigStart := len(small) + 2
	for _, chunk := range chunks[1:] {
		if chunk.StartPos < bigStart {
			t.Errorf("fallback chunk starts at %d, before the oversized paragraph at %d",
				chunk.StartPos, bigStart)
		}
		if got := text[chunk.StartPos:chunk.EndPos]; got != chunk.Text {
			t.Errorf("chunk text does not match its offsets in the source")
		}
	}
}

func TestEstimateTokens(t *testing.T) {
	cfg := DefaultConfig()

	// 10 chars / 4 chars per token = 2.5 -> 3 tokens.
	if got := cfg.EstimateTokens("hola mundo"); got != 3 {
		t.Errorf("expected 3 estimated tokens, got %d", got)
	}
	if got := cfg.EstimateTokens(""); got != 0 {
		t.Errorf("expected 0 tokens for empty text, got %d", got)
	}
}

func TestConfigSizes(t *testing.T) {
	cfg := Config{MaxTokens: 100, OverlapTokens: 10, CharsPerToken: 5.0}
	if got := cfg.ChunkSizeChars(); got != 500 {
		t.Errorf("expected chunk size 500, got %d", got)
	}
	if got := cfg.OverlapSizeChars(); got != 50 {
		t.Errorf("expected overlap size 50, got %d", got)
	}
}
