package notify

import (
	"fmt"
	"time"

	"github.com/DeafMist/bounty-radar/internal/models"
)

// Message is a Slack block-kit payload.
type Message struct {
	Text   string  `json:"text"`
	Blocks []Block `json:"blocks"`
}

type Block struct {
	Type     string    `json:"type"`
	Text     *Text     `json:"text,omitempty"`
	Fields   []Text    `json:"fields,omitempty"`
	Elements []Element `json:"elements,omitempty"`
}

type Text struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type Element struct {
	Type  string `json:"type"`
	Text  Text   `json:"text"`
	URL   string `json:"url,omitempty"`
	Style string `json:"style,omitempty"`
}

// BuildMessage renders the alert for b.
func BuildMessage(b models.Bounty) Message {
	posted := "unknown"
	if !b.CreatedAt.IsZero() {
		posted = b.CreatedAt.Format(time.DateOnly)
	}

	return Message{
		Text: "🎯 New High-Value Bounty Alert!",
		Blocks: []Block{
			{
				Type: "header",
				Text: &Text{Type: "plain_text", Text: "🎯 New High-Value Bounty!"},
			},
			{
				Type: "section",
				Text: &Text{Type: "mrkdwn", Text: fmt.Sprintf("*%s*", b.Title)},
			},
			{
				Type: "section",
				Fields: []Text{
					{Type: "mrkdwn", Text: fmt.Sprintf("*Value:* $%.2f", b.Value)},
					{Type: "mrkdwn", Text: fmt.Sprintf("*Posted:* %s", posted)},
				},
			},
			{
				Type: "actions",
				Elements: []Element{
					{
						Type:  "button",
						Text:  Text{Type: "plain_text", Text: "View Bounty 🚀"},
						URL:   b.URL,
						Style: "primary",
					},
				},
			},
		},
	}
}
