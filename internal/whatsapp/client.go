// Package whatsapp is a minimal WhatsApp Cloud API client.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/metalagman/coopfunnel/internal/funnel"
)

const (
	defaultBaseURL = "https://graph.facebook.com/v20.0"
	defaultTimeout = 30 * time.Second

	maxTextBody     = 4096
	maxRowTitle     = 24
	maxRowDesc      = 72
	maxSectionTitle = 24
	maxListBody     = 1024
	listButton      = "Ver vagas"
	maxMediaBytes   = 16 << 20
)

// Config configures the Cloud API client.
type Config struct {
	Token         string
	PhoneNumberID string
	BaseURL       string
	Timeout       time.Duration
}

// Client sends messages and downloads media.
type Client struct {
	cfg  Config
	http *http.Client
}

// APIError is a non-2xx response from the Graph API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("whatsapp api status %d: %s", e.Status, e.Body)
}

// NewClient validates cfg and builds a client. A nil httpClient gets one with cfg.Timeout.
func NewClient(cfg Config, httpClient *http.Client) (*Client, error) {
	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.PhoneNumberID = strings.TrimSpace(cfg.PhoneNumberID)
	if cfg.Token == "" {
		return nil, fmt.Errorf("whatsapp token is required")
	}
	if cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("whatsapp phone number id is required")
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{cfg: cfg, http: httpClient}, nil
}

type textBody struct {
	Body string `json:"body"`
}

type listRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type listSection struct {
	Title string    `json:"title"`
	Rows  []listRow `json:"rows"`
}

type listAction struct {
	Button   string        `json:"button"`
	Sections []listSection `json:"sections"`
}

type interactive struct {
	Type   string     `json:"type"`
	Body   textBody   `json:"body"`
	Action listAction `json:"action"`
}

type outbound struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             *textBody    `json:"text,omitempty"`
	Interactive      *interactive `json:"interactive,omitempty"`
}

// SendText sends a plain text message, cut to the channel limit.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	return c.send(ctx, outbound{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             &textBody{Body: cut(body, maxTextBody)},
	})
}

// SendSelectionList sends an interactive list with at most ten rows.
func (c *Client) SendSelectionList(ctx context.Context, to string, sel *funnel.Selection) error {
	if sel == nil || len(sel.Items) == 0 {
		return fmt.Errorf("selection list is empty")
	}
	rows := make([]listRow, 0, funnel.MaxSelectionItems)
	for i, it := range sel.Items {
		if i == funnel.MaxSelectionItems {
			break
		}
		title := cut(it.Title, maxRowTitle)
		if strings.TrimSpace(title) == "" {
			title = "Vaga"
		}
		rows = append(rows, listRow{ID: it.ID, Title: title, Description: cut(it.Description, maxRowDesc)})
	}
	section := cut(sel.Title, maxSectionTitle)
	if strings.TrimSpace(section) == "" {
		section = "Vagas"
	}
	return c.send(ctx, outbound{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "interactive",
		Interactive: &interactive{
			Type: "list",
			Body: textBody{Body: cut(sel.Prompt, maxListBody)},
			Action: listAction{
				Button:   listButton,
				Sections: []listSection{{Title: section, Rows: rows}},
			},
		},
	})
}

func (c *Client) send(ctx context.Context, msg outbound) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode whatsapp message: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/"+c.cfg.PhoneNumberID+"/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build whatsapp request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	_, err = c.do(req)
	return err
}

type mediaMeta struct {
	URL      string `json:"url"`
	MimeType string `json:"mime_type"`
}

// FetchMedia resolves a media id and downloads its bytes.
func (c *Client) FetchMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/"+mediaID, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build media lookup: %w", err)
	}
	raw, err := c.do(req)
	if err != nil {
		return nil, "", fmt.Errorf("lookup media %s: %w", mediaID, err)
	}
	var meta mediaMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, "", fmt.Errorf("decode media %s: %w", mediaID, err)
	}
	if meta.URL == "" {
		return nil, "", fmt.Errorf("media %s has no download url", mediaID)
	}

	req, err = http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build media download: %w", err)
	}
	data, err := c.do(req)
	if err != nil {
		return nil, "", fmt.Errorf("download media %s: %w", mediaID, err)
	}
	return data, meta.MimeType, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxMediaBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	return body, nil
}

// cut truncates s to at most n runes.
func cut(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
