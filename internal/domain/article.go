package domain

import "time"

// Candidate is a feed entry eligible for processing in the current run.
// Identity is the source URL.
type Candidate struct {
	SourceURL   string
	Title       string
	PublishedAt time.Time
}

// Content is the extracted article body plus the outbound links found in it.
// Lives only inside a single processor invocation; never persisted directly.
type Content struct {
	SourceURL     string
	Text          string
	ReferenceURLs []string
}

// ProcessedArticle is the enriched record committed to the knowledge base,
// keyed by SourceURL. Repeated writes for the same URL overwrite the record.
type ProcessedArticle struct {
	SourceURL         string
	Title             string
	TranslatedBody    string
	TranslatedSummary string
	ServiceTags       []string
	ReferenceURLs     []string
	PublishedAt       time.Time
	ProcessedAt       time.Time
}
