package scraper

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/DeafMist/bounty-radar/internal/models"
	"github.com/DeafMist/bounty-radar/internal/processing"
	"github.com/DeafMist/bounty-radar/internal/valuation"
)

const (
	defaultTimeout  = 15 * time.Second
	maxPriceSamples = 5
	minLineLength   = 20
	maxTitleLength  = 100
	maxBodyBytes    = 10 << 20
)

// nonContentSelectors lists elements stripped before reading page text.
const nonContentSelectors = "script, style, noscript"

var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Upgrade-Insecure-Requests": "1",
}

// Scraper turns the bounty listing page into bounty records.
type Scraper struct {
	listingURL string
	client     *http.Client
	log        *slog.Logger
	now        func() time.Time
}

// Option customises a Scraper.
type Option func(*Scraper)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Scraper) { s.client = c }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scraper) { s.now = now }
}

// New creates a scraper for listingURL.
func New(listingURL string, timeout time.Duration, logger *slog.Logger, opts ...Option) *Scraper {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Scraper{
		listingURL: listingURL,
		client:     &http.Client{Timeout: timeout},
		log:        logger,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListingURL is the page this scraper reads.
func (s *Scraper) ListingURL() string {
	return s.listingURL
}

// Scrape fetches and parses the listing page. It never fails: fetch or parse
// errors yield a single fallback record.
func (s *Scraper) Scrape(ctx context.Context) []models.Bounty {
	body, err := s.fetch(ctx)
	if err != nil {
		s.log.Error("scrape bounties", slog.String("url", s.listingURL), slog.Any("err", err))
		return []models.Bounty{s.placeholder("Demo: API Integration Project", 500, models.SourceFallback)}
	}

	bounties, err := s.Parse(body)
	if err != nil {
		s.log.Error("parse bounties", slog.String("url", s.listingURL), slog.Any("err", err))
		return []models.Bounty{s.placeholder("Demo: API Integration Project", 500, models.SourceFallback)}
	}

	s.log.Info("scraped bounties", slog.Int("count", len(bounties)))
	return bounties
}

func (s *Scraper) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.listingURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	res, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("get listing: unexpected status %s", res.Status)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read listing: %w", err)
	}
	return body, nil
}

type bountyLink struct {
	text      string
	href      string
	createdAt time.Time
}

// Parse extracts bounties from a listing page. An empty result is replaced by
// a demo record. Results are ordered by value, highest first.
func (s *Scraper) Parse(body []byte) ([]models.Bounty, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	doc.Find(nonContentSelectors).Remove()

	now := s.now()
	pageText := doc.Text()
	s.log.Debug("page content", slog.Int("length", len(pageText)))

	links := s.bountyLinks(doc, now)
	var bounties []models.Bounty

	prices := valuation.FindAll(pageText)
	if len(prices) > 0 {
		s.log.Debug("price indicators found", slog.Int("count", len(prices)))
	}
	for i, price := range prices {
		if i >= maxPriceSamples {
			break
		}
		b := models.Bounty{
			Title:     fmt.Sprintf("Bounty #%d", i+1),
			URL:       s.listingURL,
			Value:     price,
			CreatedAt: now,
			RawText:   fmt.Sprintf("Found price: $%.2f", price),
			Source:    models.SourcePriceDetection,
		}
		if i < len(links) {
			if links[i].text != "" {
				b.Title = links[i].text
			}
			b.URL = links[i].href
			b.CreatedAt = links[i].createdAt
		}
		bounties = append(bounties, b)
	}

	for _, line := range processing.Lines(pageText) {
		if len([]rune(line)) <= minLineLength {
			continue
		}
		if !strings.Contains(line, "$") && !strings.Contains(strings.ToLower(line), "bounty") {
			continue
		}
		value := valuation.Extract(line)
		if value <= 0 {
			continue
		}
		bounties = append(bounties, models.Bounty{
			Title:     processing.Truncate(line, maxTitleLength),
			URL:       s.listingURL,
			Value:     value,
			CreatedAt: now,
			RawText:   line,
			Source:    models.SourceTextParsing,
		})
	}

	if len(bounties) == 0 {
		s.log.Warn("no bounties found, using demo bounty")
		bounties = append(bounties, s.placeholder("Demo: Build a React Dashboard", 750, models.SourceDemo))
	}

	for i := range bounties {
		bounties[i].ID = s.identify(bounties[i])
	}

	sort.SliceStable(bounties, func(i, j int) bool {
		return bounties[i].Value > bounties[j].Value
	})

	return bounties, nil
}

func (s *Scraper) bountyLinks(doc *goquery.Document, now time.Time) []bountyLink {
	var links []bountyLink
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if !isBountyHref(href) {
			return
		}
		links = append(links, bountyLink{
			text:      processing.CleanText(a.Text()),
			href:      processing.ResolveURL(s.listingURL, href),
			createdAt: postedAt(a, now),
		})
	})
	return links
}

func isBountyHref(href string) bool {
	lower := strings.ToLower(href)
	return strings.Contains(lower, "bounty") || strings.Contains(lower, "bounties")
}

// postedAt reads a <time datetime> inside the link or its card. Without one the
// scrape time is used; an unreadable one yields the zero time.
func postedAt(a *goquery.Selection, now time.Time) time.Time {
	tm := a.Find("time[datetime]").First()
	if tm.Length() == 0 {
		if card := cardOf(a); card != nil {
			tm = card.Find("time[datetime]").First()
		}
	}
	if tm.Length() == 0 {
		return now
	}
	raw, _ := tm.Attr("datetime")
	return processing.ParseTimestamp(raw)
}

// cardOf returns the closest li/article/div around a, provided it holds no
// other bounty link. A wrapper shared by several links is not a card.
func cardOf(a *goquery.Selection) *goquery.Selection {
	card := a.Closest("li, article, div")
	if card.Length() == 0 {
		return nil
	}
	links := card.Find("a[href]").FilterFunction(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		return isBountyHref(href)
	})
	if links.Length() != 1 {
		return nil
	}
	return card
}

func (s *Scraper) identify(b models.Bounty) string {
	if slug := processing.Slug(b.URL, s.listingURL); slug != "" {
		// IDs end up in archive URLs; user and name are joined without a slash.
		return strings.ReplaceAll(slug, "/", ":")
	}
	return processing.BuildBountyID(b.Title, b.Value)
}

func (s *Scraper) placeholder(title string, value float64, source string) models.Bounty {
	b := models.Bounty{
		Title:     title,
		URL:       s.listingURL,
		Value:     value,
		CreatedAt: s.now(),
		RawText:   fmt.Sprintf("Demo bounty for testing purposes - $%.0f", value),
		Source:    source,
	}
	b.ID = s.identify(b)
	return b
}
