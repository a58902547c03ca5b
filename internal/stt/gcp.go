package stt

import (
	"context"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

// CloudConfig tunes Google Cloud Speech recognition.
type CloudConfig struct {
	LanguageCode    string
	Model           string
	SampleRateHertz int
}

type recognizeFunc func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)

// Cloud transcribes short voice notes with synchronous Cloud Speech recognition.
type Cloud struct {
	cfg       CloudConfig
	recognize recognizeFunc
	close     func() error
}

// NewCloud dials Cloud Speech. opts carry credentials (see gcp.ClientOptions).
func NewCloud(ctx context.Context, cfg CloudConfig, opts ...option.ClientOption) (*Cloud, error) {
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	c := newCloud(cfg, func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
		return client.Recognize(ctx, req)
	})
	c.close = client.Close
	return c, nil
}

func newCloud(cfg CloudConfig, recognize recognizeFunc) *Cloud {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "pt-BR"
	}
	if cfg.SampleRateHertz <= 0 {
		cfg.SampleRateHertz = 16000
	}
	return &Cloud{cfg: cfg, recognize: recognize, close: func() error { return nil }}
}

// Close releases the underlying connection.
func (c *Cloud) Close() error {
	return c.close()
}

// Transcribe implements inbound.Transcriber.
func (c *Cloud) Transcribe(ctx context.Context, audio []byte, mime string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("empty audio")
	}
	rc := &speechpb.RecognitionConfig{
		LanguageCode:               c.cfg.LanguageCode,
		Model:                      c.cfg.Model,
		EnableAutomaticPunctuation: true,
		Encoding:                   encodingFor(mime),
	}
	if rc.Encoding == speechpb.RecognitionConfig_OGG_OPUS {
		rc.SampleRateHertz = int32(c.cfg.SampleRateHertz)
	}
	resp, err := c.recognize(ctx, &speechpb.RecognizeRequest{
		Config: rc,
		Audio:  &speechpb.RecognitionAudio{AudioSource: &speechpb.RecognitionAudio_Content{Content: audio}},
	})
	if err != nil {
		return "", fmt.Errorf("speech recognize: %w", err)
	}

	parts := make([]string, 0, len(resp.GetResults()))
	for _, r := range resp.GetResults() {
		if alts := r.GetAlternatives(); len(alts) > 0 {
			if t := strings.TrimSpace(alts[0].GetTranscript()); t != "" {
				parts = append(parts, t)
			}
		}
	}
	return strings.Join(parts, " "), nil
}

func encodingFor(mime string) speechpb.RecognitionConfig_AudioEncoding {
	m := strings.ToLower(strings.TrimSpace(mime))
	switch {
	case strings.Contains(m, "ogg"), strings.Contains(m, "opus"):
		return speechpb.RecognitionConfig_OGG_OPUS
	case strings.Contains(m, "wav"):
		return speechpb.RecognitionConfig_LINEAR16
	case strings.Contains(m, "flac"):
		return speechpb.RecognitionConfig_FLAC
	case strings.Contains(m, "mpeg"), strings.Contains(m, "mp3"):
		return speechpb.RecognitionConfig_MP3
	case strings.Contains(m, "amr"):
		return speechpb.RecognitionConfig_AMR
	}
	return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
}
