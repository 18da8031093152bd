package extractor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"NewsFlow/internal/domain"
	"NewsFlow/internal/ports"
)

// AWS news pages carry the announcement body inside this container.
const awsContentSelector = "#aws-page-content"

const maxBodyBytes = 4 << 20

// PageExtractor retrieves article pages and strips them down to body text.
// It first looks for the AWS announcement container, then falls back to
// generic readability extraction before giving up on the page.
type PageExtractor struct {
	client *http.Client
	logger *slog.Logger
}

var _ ports.ContentExtractor = (*PageExtractor)(nil)

// NewPageExtractor wires an HTTP client; a nil client gets a sane default.
func NewPageExtractor(client *http.Client, logger *slog.Logger) *PageExtractor {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	return &PageExtractor{client: client, logger: logger}
}

// Extract returns the substantive text of the page at pageURL. Transport and
// HTTP-status failures surface as fetch errors (retryable); a retrieved page
// with no recognizable article body surfaces as an extraction error.
func (e *PageExtractor) Extract(ctx context.Context, pageURL string) (domain.Content, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return domain.Content{}, domain.NewStageError(domain.KindFetch, "extract", fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", "NewsFlow/1.0")

	resp, err := e.client.Do(req)
	if err != nil {
		return domain.Content{}, domain.NewStageError(domain.KindFetch, "extract", fmt.Errorf("request page: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Content{}, domain.NewStageError(domain.KindFetch, "extract", fmt.Errorf("page returned %s", resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return domain.Content{}, domain.NewStageError(domain.KindFetch, "extract", fmt.Errorf("read page: %w", err))
	}

	content, err := e.extractBody(body, pageURL)
	if err != nil {
		return domain.Content{}, err
	}
	content.SourceURL = pageURL

	e.debug("page extracted", "url", pageURL, "text_len", len(content.Text), "refs", len(content.ReferenceURLs))
	return content, nil
}

func (e *PageExtractor) extractBody(body []byte, pageURL string) (domain.Content, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return domain.Content{}, domain.NewStageError(domain.KindExtraction, "extract", fmt.Errorf("parse page: %w", err))
	}

	container := doc.Find(awsContentSelector).First()
	if container.Length() > 0 {
		var paragraphs []string
		container.Find("p").Each(func(_ int, p *goquery.Selection) {
			text := strings.TrimSpace(p.Text())
			if text != "" {
				paragraphs = append(paragraphs, text)
			}
		})

		if len(paragraphs) > 0 {
			return domain.Content{
				Text:          strings.Join(paragraphs, "\n\n"),
				ReferenceURLs: collectLinks(container),
			}, nil
		}
	}

	return e.readabilityFallback(body, pageURL)
}

func (e *PageExtractor) readabilityFallback(body []byte, pageURL string) (domain.Content, error) {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return domain.Content{}, domain.NewStageError(domain.KindExtraction, "extract", fmt.Errorf("invalid page url: %w", err))
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return domain.Content{}, domain.NewStageError(domain.KindExtraction, "extract", fmt.Errorf("readability: %w", err))
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return domain.Content{}, domain.NewStageError(domain.KindExtraction, "extract", fmt.Errorf("no article body found"))
	}

	e.debug("readability fallback used", "url", pageURL)
	return domain.Content{Text: text}, nil
}

func collectLinks(container *goquery.Selection) []string {
	var links []string
	seen := map[string]struct{}{}
	container.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !strings.HasPrefix(href, "http") {
			return
		}
		if _, ok := seen[href]; ok {
			return
		}
		seen[href] = struct{}{}
		links = append(links, href)
	})
	return links
}

func (e *PageExtractor) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}
