package stubserver

import (
	"strings"
)

// ChunkOptions controls how text is chunked.
type ChunkOptions struct {
	MaxChars int
}

// Chunk represents a slice of the document text.
type Chunk struct {
	Index      int
	Text       string
	TokenCount int
}

// ChunkText merges blank-line separated paragraphs into chunks of at most
// MaxChars characters. A paragraph longer than MaxChars is split on word
// boundaries. Tokens are approximated by whitespace-delimited words.
func ChunkText(text string, opts ChunkOptions) []Chunk {
	if opts.MaxChars <= 0 {
		opts.MaxChars = 300
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var pieces []string
	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if len(para) > opts.MaxChars {
			pieces = append(pieces, splitWords(para, opts.MaxChars)...)
			continue
		}
		pieces = append(pieces, para)
	}

	var chunks []Chunk
	var current string
	flush := func() {
		if current == "" {
			return
		}
		chunks = append(chunks, Chunk{
			Index:      len(chunks),
			Text:       current,
			TokenCount: len(strings.Fields(current)),
		})
		current = ""
	}
	for _, p := range pieces {
		if current != "" && len(current)+len("\n\n")+len(p) > opts.MaxChars {
			flush()
		}
		if current == "" {
			current = p
		} else {
			current += "\n\n" + p
		}
	}
	flush()
	return chunks
}

// splitWords cuts s into windows of whole words no longer than limit. A
// single word longer than limit becomes its own window.
func splitWords(s string, limit int) []string {
	var out []string
	var b strings.Builder
	for _, w := range strings.Fields(s) {
		if b.Len() > 0 && b.Len()+1+len(w) > limit {
			out = append(out, b.String())
			b.Reset()
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(w)
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
