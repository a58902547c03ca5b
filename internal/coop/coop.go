// Package coop loads the cooperative presentation shown to candidates.
package coop

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/metalagman/coopfunnel/internal/funnel"
	"gopkg.in/yaml.v3"
)

//go:embed coop.yaml
var defaultYAML []byte

// Info is the coop.yaml document.
type Info struct {
	Name       string            `yaml:"nome"`
	Quota      string            `yaml:"cota"`
	UniformBag string            `yaml:"uniforme_bag"`
	Benefits   string            `yaml:"beneficios"`
	Messages   map[string]string `yaml:"mensagens"`
}

// Parse decodes a coop.yaml document.
func Parse(data []byte) (Info, error) {
	var info Info
	if err := yaml.Unmarshal(data, &info); err != nil {
		return Info{}, fmt.Errorf("parse coop info: %w", err)
	}
	return info, nil
}

// Summary renders the pitch as short lines.
func (i Info) Summary() string {
	name := strings.TrimSpace(i.Name)
	if name == "" {
		name = "(nome)"
	}
	lines := []string{"Cooperativa: " + name}
	if v := strings.TrimSpace(i.Quota); v != "" {
		lines = append(lines, "- Cota: "+v)
	}
	if v := strings.TrimSpace(i.UniformBag); v != "" {
		lines = append(lines, "- Uniforme/Bag: "+v)
	}
	if v := strings.TrimSpace(i.Benefits); v != "" {
		lines = append(lines, "- Benefícios: "+v)
	}
	return strings.Join(lines, "\n")
}

// Presentation converts the document to the funnel's view of it.
func (i Info) Presentation() funnel.Presentation {
	msgs := make(map[string]string, len(i.Messages))
	for k, v := range i.Messages {
		msgs[k] = v
	}
	return funnel.Presentation{Summary: i.Summary(), Messages: msgs}
}

// Provider serves the presentation from a file, re-read on every call so edits apply
// without a restart. An empty path serves the built-in document.
type Provider struct {
	path string
}

// NewProvider returns a provider for path.
func NewProvider(path string) *Provider {
	return &Provider{path: strings.TrimSpace(path)}
}

// Presentation implements funnel.CoopInfo.
func (p *Provider) Presentation(context.Context) (funnel.Presentation, error) {
	data := defaultYAML
	if p.path != "" {
		raw, err := os.ReadFile(p.path)
		if err != nil {
			return funnel.Presentation{}, fmt.Errorf("read coop info: %w", err)
		}
		data = raw
	}
	info, err := Parse(data)
	if err != nil {
		return funnel.Presentation{}, err
	}
	return info.Presentation(), nil
}
