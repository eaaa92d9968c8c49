package stubserver

import (
	"sort"
	"strings"
	"time"
)

const excerptLen = 200

// Source is one ranked chunk in an answer.
type Source struct {
	ChunkID       int      `json:"chunk_id"`
	Content       string   `json:"content"`
	Similarity    float64  `json:"similarity"`
	SemanticScore *float64 `json:"semantic_score,omitempty"`
	KeywordScore  *float64 `json:"keyword_score,omitempty"`
}

type Answer struct {
	Answer       string   `json:"answer"`
	Confidence   float64  `json:"confidence"`
	ResponseTime float64  `json:"response_time"`
	Sources      []Source `json:"sources"`
}

type scoredChunk struct {
	chunk Chunk
	score int
}

// answerQuestion ranks chunks by question-word occurrences and builds an
// extractive answer from the best one. It is a development stand-in, not a
// retrieval model.
func answerQuestion(question string, chunks []Chunk, n int, hybrid bool) Answer {
	start := time.Now()
	if len(chunks) == 0 {
		return Answer{
			Answer:       "No content found for this document.",
			Sources:      []Source{},
			ResponseTime: time.Since(start).Seconds(),
		}
	}

	words := questionWords(question)
	var ranked []scoredChunk
	for _, c := range chunks {
		lower := strings.ToLower(c.Text)
		score := 0
		for _, w := range words {
			if len(w) > 2 {
				score += strings.Count(lower, w)
			}
		}
		if score > 0 {
			ranked = append(ranked, scoredChunk{chunk: c, score: score})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > n {
		ranked = ranked[:n]
	}
	if len(ranked) == 0 {
		ranked = []scoredChunk{{chunk: chunks[0], score: 1}}
	}

	sources := make([]Source, 0, len(ranked))
	for _, r := range ranked {
		src := Source{
			ChunkID:    r.chunk.Index,
			Content:    excerpt(r.chunk.Text),
			Similarity: min(0.9, float64(r.score)/10),
		}
		if hybrid {
			keyword := src.Similarity
			semantic := overlap(words, r.chunk.Text)
			src.KeywordScore = &keyword
			src.SemanticScore = &semantic
		}
		sources = append(sources, src)
	}

	return Answer{
		Answer:       firstSentence(ranked[0].chunk.Text),
		Confidence:   min(0.9, float64(ranked[0].score)/float64(max(1, len(words)))),
		Sources:      sources,
		ResponseTime: time.Since(start).Seconds(),
	}
}

func questionWords(q string) []string {
	fields := strings.Fields(strings.ToLower(q))
	out := fields[:0]
	for _, f := range fields {
		if f = strings.Trim(f, `?!.,;:"'()`); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// overlap is the share of distinct question words present in text, in [0,1].
func overlap(words []string, text string) float64 {
	if len(words) == 0 {
		return 0
	}
	present := make(map[string]bool)
	for _, f := range strings.Fields(strings.ToLower(text)) {
		present[strings.Trim(f, `?!.,;:"'()`)] = true
	}
	seen := make(map[string]bool)
	hits := 0
	for _, w := range words {
		if seen[w] {
			continue
		}
		seen[w] = true
		if present[w] {
			hits++
		}
	}
	return float64(hits) / float64(len(seen))
}

func firstSentence(text string) string {
	for _, s := range strings.Split(text, ".") {
		if s = strings.TrimSpace(s); len(s) > 20 {
			return s + "."
		}
	}
	return excerpt(text)
}

func excerpt(text string) string {
	r := []rune(text)
	if len(r) <= excerptLen {
		return text
	}
	return string(r[:excerptLen]) + "..."
}
