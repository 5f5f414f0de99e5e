package docindex

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"research_assistant/pkg/core/period"
)

// DefaultChunkTokens bounds the size of passages cut from local reports.
const DefaultChunkTokens = 400

var fileQuarter = regexp.MustCompile(`(?i)(\d{4})[-_ ]?q([1-4])`)

// MemoryIndex keeps passages in memory and ranks them by term overlap with
// the query. It serves local report directories and tests.
type MemoryIndex struct {
	mu       sync.RWMutex
	passages []Passage
}

func NewMemoryIndex(passages ...Passage) *MemoryIndex {
	ix := &MemoryIndex{}
	ix.Add(passages...)
	return ix
}

func (ix *MemoryIndex) Add(passages ...Passage) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.passages = append(ix.passages, passages...)
}

func (ix *MemoryIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.passages)
}

// LoadDirectory indexes every .md and .txt file under dir whose name carries
// a quarter token such as "2023q2". Other files are skipped.
func (ix *MemoryIndex) LoadDirectory(dir string) (int, error) {
	added := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		ext := strings.ToLower(filepath.Ext(path))
		if d.IsDir() || (ext != ".md" && ext != ".txt") {
			return nil
		}
		m := fileQuarter.FindStringSubmatch(d.Name())
		if m == nil {
			return nil
		}
		q, err := period.Parse(m[1] + "q" + m[2])
		if err != nil {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		for i, chunk := range Chunk(string(data), DefaultChunkTokens) {
			ix.Add(Passage{Content: chunk, Period: q, Locator: fmt.Sprintf("%s#%d", d.Name(), i)})
			added++
		}
		return nil
	})
	return added, err
}

func (ix *MemoryIndex) Search(_ context.Context, query string, tr *period.TimeRange, topK int) ([]Passage, error) {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 || topK <= 0 {
		return nil, nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	var hits []Passage
	for _, p := range ix.passages {
		if tr != nil && !tr.Contains(p.Period) {
			continue
		}
		content := strings.ToLower(p.Content)
		matched := 0
		for _, term := range terms {
			if strings.Contains(content, term) {
				matched++
			}
		}
		if matched == 0 {
			continue
		}
		p.Score = float64(matched) / float64(len(terms))
		hits = append(hits, p)
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Chunk splits text on paragraph boundaries into pieces of roughly maxTokens
// (four bytes per token). A single oversized paragraph is cut at the last
// rune boundary that fits.
func Chunk(text string, maxTokens int) []string {
	maxChars := maxTokens * 4
	var chunks []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			chunks = append(chunks, s)
		}
		cur.Reset()
	}

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		if cur.Len() > 0 && cur.Len()+len(para) > maxChars {
			flush()
		}
		for len(para) > maxChars {
			cut := runeBoundary(para, maxChars)
			chunks = append(chunks, para[:cut])
			para = para[cut:]
		}
		if cur.Len() > 0 {
			cur.WriteString("\n\n")
		}
		cur.WriteString(para)
	}
	flush()
	return chunks
}

// runeBoundary returns the largest cut <= n that does not split a rune, and
// at least one whole rune.
func runeBoundary(s string, n int) int {
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		_, cut = utf8.DecodeRuneInString(s)
	}
	return cut
}
