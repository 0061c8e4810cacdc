package model

// LawArticle is one legal reference record. The collection is loaded once at
// startup and is read-only afterwards, so articles are safe to share across
// concurrent searches.
type LawArticle struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	Keywords []string `json:"keywords,omitempty"`
	Notes    string   `json:"notes,omitempty"`
	Domain   string   `json:"domain,omitempty"`
}

// LawSearchResult is the ranked response of a reference lookup
type LawSearchResult struct {
	Status       string       `json:"status"` // ok, error
	Message      string       `json:"message,omitempty"`
	Query        string       `json:"query"`
	TokensUsed   []string     `json:"tokens_used,omitempty"`
	TotalResults int          `json:"total_results"`
	Results      []LawArticle `json:"results"`
}
