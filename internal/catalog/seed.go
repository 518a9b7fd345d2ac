package catalog

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// SeedTopic is one entry of a seed file.
type SeedTopic struct {
	ID             string `yaml:"id,omitempty" toml:"id"`
	Label          string `yaml:"label" toml:"label"`
	Guide          string `yaml:"guide,omitempty" toml:"guide"`
	DefaultComment string `yaml:"default_comment,omitempty" toml:"default_comment"`
}

// Seed is the on-disk catalog format used to populate a store:
//
//	topics:
//	  - id: greeting
//	    label: Greeting
//	    guide: Did the agent greet the customer by name?
//	    default_comment: Greeted the customer > using the standard script.
type Seed struct {
	Topics []SeedTopic `yaml:"topics" toml:"topics"`
}

// SeedFile pairs a parsed seed with where it came from.
type SeedFile struct {
	Seed Seed
	Path string
}

// ParseSeedYAML decodes and validates a YAML seed payload.
func ParseSeedYAML(data []byte) (Seed, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Seed{}, fmt.Errorf("catalog: seed payload is empty")
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("catalog: decode seed: %w", err)
	}
	return seed.normalized()
}

// ParseSeedTOML decodes and validates a TOML seed payload
// (`[[topics]]` tables with the same keys as the YAML form).
func ParseSeedTOML(data []byte) (Seed, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return Seed{}, fmt.Errorf("catalog: seed payload is empty")
	}
	var seed Seed
	if _, err := toml.Decode(string(data), &seed); err != nil {
		return Seed{}, fmt.Errorf("catalog: decode seed: %w", err)
	}
	return seed.normalized()
}

// LoadSeedFile reads a .yaml/.yml/.toml seed file.
func LoadSeedFile(path string) (SeedFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return SeedFile{}, fmt.Errorf("catalog: stat %s: %w", path, err)
	}
	if info.IsDir() {
		return SeedFile{}, fmt.Errorf("catalog: %s is a directory", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return SeedFile{}, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	var seed Seed
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		seed, err = ParseSeedYAML(data)
	case ".toml":
		seed, err = ParseSeedTOML(data)
	default:
		return SeedFile{}, fmt.Errorf("catalog: %s: unsupported seed format %q", path, ext)
	}
	if err != nil {
		return SeedFile{}, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return SeedFile{Seed: seed, Path: filepath.Clean(path)}, nil
}

func (s Seed) normalized() (Seed, error) {
	if len(s.Topics) == 0 {
		return Seed{}, fmt.Errorf("catalog: seed has no topics")
	}
	out := Seed{Topics: make([]SeedTopic, 0, len(s.Topics))}
	seen := map[string]struct{}{}
	for i, t := range s.Topics {
		t.Label = strings.TrimSpace(t.Label)
		t.ID = strings.TrimSpace(t.ID)
		t.Guide = strings.TrimSpace(t.Guide)
		t.DefaultComment = strings.TrimSpace(t.DefaultComment)
		if t.Label == "" {
			return Seed{}, fmt.Errorf("catalog: topics[%d]: label is required", i)
		}
		if t.ID == "" {
			t.ID = string(Slug(t.Label))
		}
		if _, dup := seen[t.ID]; dup {
			return Seed{}, fmt.Errorf("catalog: topics[%d]: duplicate id %q", i, t.ID)
		}
		seen[t.ID] = struct{}{}
		out.Topics = append(out.Topics, t)
	}
	return out, nil
}

// CatalogTopics returns the seed's topics in file order.
func (s Seed) CatalogTopics() []Topic {
	out := make([]Topic, len(s.Topics))
	for i, t := range s.Topics {
		out[i] = Topic{ID: TopicID(t.ID), Label: t.Label, Guide: t.Guide, Position: i}
	}
	return out
}

// DefaultComments returns the label-keyed default comments present in the seed.
func (s Seed) DefaultComments() map[string]string {
	out := make(map[string]string, len(s.Topics))
	for _, t := range s.Topics {
		if t.DefaultComment == "" {
			continue
		}
		out[t.Label] = t.DefaultComment
	}
	return out
}

// FetchTopics lets a seed act as a read-only Source.
func (s Seed) FetchTopics(context.Context) ([]Topic, error) {
	return s.CatalogTopics(), nil
}

// FetchDefaultComments implements Source.
func (s Seed) FetchDefaultComments(context.Context) (map[string]string, error) {
	return s.DefaultComments(), nil
}
