package feed

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"NewsFlow/internal/domain"
	"NewsFlow/internal/ports"
)

// pubDate formats observed on syndication feeds, most specific first.
var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
}

// RSSSource fetches candidates from an RSS 2.0 feed.
type RSSSource struct {
	url    string
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
}

var _ ports.FeedSource = (*RSSSource)(nil)

// NewRSSSource wires the feed URL with an HTTP client.
func NewRSSSource(url string, client *http.Client, logger *slog.Logger) *RSSSource {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &RSSSource{url: url, client: client, logger: logger, now: time.Now}
}

type rssDocument struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
}

// Fetch returns candidates published within the trailing window, newest
// first. Entries without a parseable publication date are skipped; an empty
// window is a valid, empty result.
func (s *RSSSource) Fetch(ctx context.Context, windowDays int) ([]domain.Candidate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, domain.NewStageError(domain.KindSourceUnavailable, "feed", fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", "NewsFlow/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, domain.NewStageError(domain.KindSourceUnavailable, "feed", fmt.Errorf("request feed: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.NewStageError(domain.KindSourceUnavailable, "feed", fmt.Errorf("feed returned %s", resp.Status))
	}

	var doc rssDocument
	if err := xml.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, domain.NewStageError(domain.KindSourceUnavailable, "feed", fmt.Errorf("decode feed: %w", err))
	}

	cutoff := s.now().UTC().AddDate(0, 0, -windowDays)
	candidates := make([]domain.Candidate, 0, len(doc.Channel.Items))
	for _, item := range doc.Channel.Items {
		published, ok := parsePubDate(item.PubDate)
		if !ok {
			s.debug("skipping entry without publication date", "title", item.Title)
			continue
		}
		if published.Before(cutoff) {
			continue
		}
		if item.Link == "" {
			continue
		}
		candidates = append(candidates, domain.Candidate{
			SourceURL:   item.Link,
			Title:       item.Title,
			PublishedAt: published,
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].PublishedAt.After(candidates[j].PublishedAt)
	})

	s.debug("feed fetched", "items", len(doc.Channel.Items), "candidates", len(candidates), "window_days", windowDays)
	return candidates, nil
}

func parsePubDate(value string) (time.Time, bool) {
	for _, layout := range pubDateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), true
		}
	}
	return time.Time{}, false
}

func (s *RSSSource) debug(msg string, args ...any) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}
