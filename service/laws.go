package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sbcesar/contractguardian/model"
)

const maxSearchResults = 5

// minQueryTokenLen filters out short connective words (de, el, la, en...)
const minQueryTokenLen = 3

// LawStore holds the legal reference collection. It is loaded once at startup
// and never mutated afterwards, so searches need no locking.
type LawStore struct {
	articles []model.LawArticle
}

// lawFile is the on-disk wrapper form: {"domain": "LAU", "articles": [...]}
type lawFile struct {
	Domain   string             `json:"domain"`
	Articles []model.LawArticle `json:"articles"`
}

// NewLawStore loads every JSON file in dir. Supported shapes: a bare article
// list, an object with an "articles" key, or a single flat article object.
// Records missing id, title or text are logged and skipped; a bad file never
// aborts loading.
func NewLawStore(dir string) (*LawStore, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read laws directory: %w", err)
	}

	store := &LawStore{}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			slog.Error("failed to read law file", "file", entry.Name(), "error", err)
			continue
		}
		loaded := store.loadFile(data, entry.Name())
		slog.Info("loaded law articles", "file", entry.Name(), "count", loaded)
	}

	slog.Info("law store initialized", "total_articles", len(store.articles))
	return store, nil
}

func (s *LawStore) loadFile(data []byte, filename string) int {
	defaultDomain := strings.ToUpper(strings.TrimSuffix(filename, ".json"))

	// List of articles
	var list []model.LawArticle
	if err := json.Unmarshal(data, &list); err == nil {
		return s.appendValid(list, defaultDomain, filename)
	}

	// Object with "articles" key
	var file lawFile
	if err := json.Unmarshal(data, &file); err == nil && len(file.Articles) > 0 {
		domain := file.Domain
		if domain == "" {
			domain = defaultDomain
		}
		return s.appendValid(file.Articles, domain, filename)
	}

	// Single flat article
	var single model.LawArticle
	if err := json.Unmarshal(data, &single); err == nil && single.ID != "" {
		return s.appendValid([]model.LawArticle{single}, defaultDomain, filename)
	}

	slog.Warn("unrecognized law file format", "file", filename)
	return 0
}

func (s *LawStore) appendValid(articles []model.LawArticle, domain, filename string) int {
	count := 0
	for _, a := range articles {
		if strings.TrimSpace(a.ID) == "" || strings.TrimSpace(a.Title) == "" || strings.TrimSpace(a.Text) == "" {
			slog.Warn("skipping invalid law article", "file", filename, "id", a.ID)
			continue
		}
		if a.Domain == "" {
			a.Domain = domain
		}
		s.articles = append(s.articles, a)
		count++
	}
	return count
}

// Count returns the number of loaded articles
func (s *LawStore) Count() int {
	return len(s.articles)
}

// Articles returns the full reference collection
func (s *LawStore) Articles() []model.LawArticle {
	return s.articles
}

// DomainStats returns the number of articles per domain tag
func (s *LawStore) DomainStats() map[string]int {
	stats := make(map[string]int)
	for _, a := range s.articles {
		domain := a.Domain
		if domain == "" {
			domain = "unknown"
		}
		stats[domain]++
	}
	return stats
}

// scoredArticle pairs an article with its relevance for ranking; it only
// lives for the duration of one search
type scoredArticle struct {
	article model.LawArticle
	score   int
	matches []string
}

// Search ranks the collection against a free-text topic. Scoring: +1 per
// query token occurring in the searchable text (title, body, keywords,
// notes), +2 bonus when any token hits the title. Ties keep collection
// order; the top 5 matches are returned.
func (s *LawStore) Search(topic string) model.LawSearchResult {
	topic = strings.ToLower(strings.TrimSpace(topic))
	if topic == "" {
		return model.LawSearchResult{
			Status:  "error",
			Message: "Topic parameter is required",
			Results: []model.LawArticle{},
		}
	}

	var tokens []string
	for _, word := range strings.Fields(topic) {
		if len([]rune(word)) > minQueryTokenLen {
			tokens = append(tokens, word)
		}
	}
	// A topic made only of short words falls back to the whole phrase
	if len(tokens) == 0 {
		tokens = []string{topic}
	}

	var scored []scoredArticle
	for _, entry := range s.articles {
		title := strings.ToLower(entry.Title)
		searchable := strings.Join([]string{
			title,
			strings.ToLower(entry.Text),
			strings.ToLower(strings.Join(entry.Keywords, " ")),
			strings.ToLower(entry.Notes),
		}, " ")

		score := 0
		var matches []string
		for _, token := range tokens {
			if strings.Contains(searchable, token) {
				score++
				matches = append(matches, token)
			}
		}
		if score == 0 {
			continue
		}
		// Title hits weigh more than body hits
		for _, token := range tokens {
			if strings.Contains(title, token) {
				score += 2
				break
			}
		}
		scored = append(scored, scoredArticle{article: entry, score: score, matches: matches})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	results := make([]model.LawArticle, 0, maxSearchResults)
	for i, sa := range scored {
		if i >= maxSearchResults {
			break
		}
		results = append(results, sa.article)
	}

	slog.Info("law lookup", "query", topic, "tokens", tokens, "results", len(scored))

	return model.LawSearchResult{
		Status:       "ok",
		Query:        topic,
		TokensUsed:   tokens,
		TotalResults: len(scored),
		Results:      results,
	}
}
