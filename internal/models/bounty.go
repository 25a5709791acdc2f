package models

import "time"

// Bounty is a single listing scraped from the bounty page.
// A zero CreatedAt means the page carried a timestamp that could not be parsed.
type Bounty struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
	Value     float64   `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	RawText   string    `json:"raw_text,omitempty"`
	Source    string    `json:"source"`
}

// Origin tags for Bounty.Source.
const (
	SourcePriceDetection = "price_detection"
	SourceTextParsing    = "text_parsing"
	SourceDemo           = "demo"
	SourceFallback       = "fallback"
)

// NotifiedEvent is published once a bounty has been delivered to the webhook.
type NotifiedEvent struct {
	EventID    string    `json:"event_id"`
	Bounty     Bounty    `json:"bounty"`
	Trigger    string    `json:"trigger"`
	NotifiedAt time.Time `json:"notified_at"`
}

// ArchivedBounty is the document stored in Elasticsearch for notified bounties.
type ArchivedBounty struct {
	Bounty
	EventID    string    `json:"event_id"`
	Trigger    string    `json:"trigger"`
	NotifiedAt time.Time `json:"notified_at"`
}
