package content

import (
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

// ErrInvalidContent is returned when reading material fails validation.
var ErrInvalidContent = errors.New("invalid reading material")

//go:embed schema.json
var materialSchema []byte

// Load returns the embedded catalog when path is empty, otherwise the catalog
// built from the YAML file at path.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads, validates and wraps reading material from a YAML file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading content file: %w", err)
	}

	m, err := ParseMaterial(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	c, err := NewCatalog(m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	slog.Info("content loaded",
		"path", path,
		"questions", c.QuestionCount(),
		"vocabulary", len(m.Vocabulary),
	)
	return c, nil
}

// ParseMaterial decodes a YAML document and checks it against the material schema.
func ParseMaterial(data []byte) (Material, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Material{}, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewBytesLoader(materialSchema),
		gojsonschema.NewGoLoader(doc),
	)
	if err != nil {
		return Material{}, fmt.Errorf("validating material: %w", err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return Material{}, fmt.Errorf("%w: %s", ErrInvalidContent, strings.Join(msgs, "; "))
	}

	var m Material
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Material{}, fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	return m, checkMaterial(m)
}

func checkMaterial(m Material) error {
	if strings.TrimSpace(m.Passage) == "" {
		return fmt.Errorf("%w: passage is empty", ErrInvalidContent)
	}
	if len(m.Questions) == 0 {
		return fmt.Errorf("%w: no questions", ErrInvalidContent)
	}

	seen := make(map[int]bool, len(m.Questions))
	for _, q := range m.Questions {
		if seen[q.ID] {
			return fmt.Errorf("%w: duplicate question id %d", ErrInvalidContent, q.ID)
		}
		seen[q.ID] = true

		if len(q.Options) != OptionCount {
			return fmt.Errorf("%w: question %d has %d options, want %d", ErrInvalidContent, q.ID, len(q.Options), OptionCount)
		}
		if q.Answer < 0 || q.Answer >= OptionCount {
			return fmt.Errorf("%w: question %d answer index %d out of range", ErrInvalidContent, q.ID, q.Answer)
		}
	}
	return nil
}
