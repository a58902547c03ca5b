package inbound

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/metalagman/coopfunnel/internal/funnel"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultText stands in for events that carry nothing usable.
	DefaultText = funnel.PlaceholderText
	// AudioApology replaces audio that could not be transcribed.
	AudioApology = funnel.AudioApology
	// UntitledSelection stands in for list options without a title.
	UntitledSelection = funnel.UntitledSelection

	defaultAudioMime = "audio/ogg"
)

// MediaFetcher downloads inbound media by id.
type MediaFetcher interface {
	FetchMedia(ctx context.Context, mediaID string) ([]byte, string, error)
}

// Transcriber converts speech to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mime string) (string, error)
}

// Normalizer maps channel messages to canonical text. It never fails.
type Normalizer struct {
	media       MediaFetcher
	transcriber Transcriber
}

// NewNormalizer builds a normalizer. Without media or transcriber audio always gets the apology.
func NewNormalizer(media MediaFetcher, transcriber Transcriber) *Normalizer {
	return &Normalizer{media: media, transcriber: transcriber}
}

// Normalize returns the canonical text for msg.
func (n *Normalizer) Normalize(ctx context.Context, msg Message) string {
	var text string
	switch msg.Type {
	case "text":
		if msg.Text != nil {
			text = msg.Text.Body
		}
	case "interactive":
		text = interactiveText(msg.Interactive)
	case "button":
		if msg.Button != nil {
			text = msg.Button.Text
		}
	case "audio":
		text = n.audioText(ctx, msg.Audio)
	}
	if strings.TrimSpace(text) == "" && msg.Text != nil {
		text = msg.Text.Body
	}
	if strings.TrimSpace(text) == "" {
		return DefaultText
	}
	return text
}

func interactiveText(in *Interactive) string {
	if in == nil {
		return ""
	}
	switch {
	case in.ListReply != nil:
		if id, ok := strings.CutPrefix(in.ListReply.ID, funnel.SelectionPrefix); ok && strings.TrimSpace(id) != "" {
			return funnel.SelectCommand + " " + strings.TrimSpace(id)
		}
		if in.ListReply.Title != "" {
			return in.ListReply.Title
		}
		return UntitledSelection
	case in.ButtonReply != nil:
		return in.ButtonReply.Title
	}
	return ""
}

func (n *Normalizer) audioText(ctx context.Context, m *Media) string {
	text, err := n.transcribe(ctx, m)
	if err != nil {
		log.Warn().Err(err).Msg("audio transcription failed")
		return AudioApology
	}
	return text
}

func (n *Normalizer) transcribe(ctx context.Context, m *Media) (string, error) {
	if m == nil || m.ID == "" {
		return "", errors.New("audio message without media id")
	}
	if n.media == nil || n.transcriber == nil {
		return "", errors.New("audio transcription is not configured")
	}
	audio, mime, err := n.media.FetchMedia(ctx, m.ID)
	if err != nil {
		return "", fmt.Errorf("fetch media %s: %w", m.ID, err)
	}
	text, err := n.transcriber.Transcribe(ctx, audio, audioMime(m.MimeType, mime))
	if err != nil {
		return "", fmt.Errorf("transcribe media %s: %w", m.ID, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty transcript for media %s", m.ID)
	}
	return strings.TrimSpace(text), nil
}

// audioMime drops codec parameters; WhatsApp sends "audio/ogg; codecs=opus".
func audioMime(candidates ...string) string {
	for _, c := range candidates {
		base, _, _ := strings.Cut(c, ";")
		if base = strings.TrimSpace(base); base != "" {
			return base
		}
	}
	return defaultAudioMime
}

// Annotate prefixes the text with the sender's display name for the language model.
func Annotate(name, text string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return text
	}
	return fmt.Sprintf("(Nome: %s) %s", name, text)
}
