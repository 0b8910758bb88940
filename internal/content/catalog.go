// Package content holds the static reference data of the reader: the level and
// topic catalogs and the reading material (passage, questions, vocabulary).
// Everything exposed here is read-only; accessors hand out copies.
package content

import (
	_ "embed"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed reading.yaml
var defaultMaterial []byte

var levels = []LevelInfo{
	{Key: LevelA1, Label: "A1", Description: "Beginner"},
	{Key: LevelA2, Label: "A2", Description: "Elementary"},
	{Key: LevelB1, Label: "B1", Description: "Intermediate"},
	{Key: LevelB2, Label: "B2", Description: "Upper Intermediate"},
}

var topicKeys = []Topic{TopicTravel, TopicTechnology, TopicBusiness, TopicLifestyle, TopicHealth}

// Catalog is the immutable set of reference data a quiz session runs against.
type Catalog struct {
	levels     []LevelInfo
	topics     []TopicInfo
	material   Material
	questionAt map[int]int
}

// NewCatalog builds a catalog around validated reading material.
func NewCatalog(m Material) (*Catalog, error) {
	if err := checkMaterial(m); err != nil {
		return nil, err
	}

	title := cases.Title(language.English)
	topics := make([]TopicInfo, 0, len(topicKeys))
	for _, k := range topicKeys {
		topics = append(topics, TopicInfo{Key: k, Label: title.String(string(k))})
	}

	c := &Catalog{
		levels:     slices.Clone(levels),
		topics:     topics,
		material:   cloneMaterial(m),
		questionAt: make(map[int]int, len(m.Questions)),
	}
	for i, q := range c.material.Questions {
		c.questionAt[q.ID] = i
	}
	return c, nil
}

var defaultCatalog = sync.OnceValues(func() (*Catalog, error) {
	m, err := ParseMaterial(defaultMaterial)
	if err != nil {
		return nil, fmt.Errorf("embedded reading material: %w", err)
	}
	return NewCatalog(m)
})

// Default returns the catalog built from the embedded reading material.
func Default() *Catalog {
	c, err := defaultCatalog()
	if err != nil {
		panic(err)
	}
	return c
}

// Levels returns the level catalog in display order.
func (c *Catalog) Levels() []LevelInfo {
	return slices.Clone(c.levels)
}

// Level looks up a level by key.
func (c *Catalog) Level(key Level) (LevelInfo, bool) {
	for _, l := range c.levels {
		if l.Key == key {
			return l, true
		}
	}
	return LevelInfo{}, false
}

// Topics returns the topic catalog in display order.
func (c *Catalog) Topics() []TopicInfo {
	return slices.Clone(c.topics)
}

// Topic looks up a topic by key.
func (c *Catalog) Topic(key Topic) (TopicInfo, bool) {
	for _, t := range c.topics {
		if t.Key == key {
			return t, true
		}
	}
	return TopicInfo{}, false
}

func (c *Catalog) Title() string    { return c.material.Title }
func (c *Catalog) Passage() string  { return c.material.Passage }
func (c *Catalog) ApproxWords() int { return c.material.ApproxWords }

// Material returns a copy of the full reading material, answer key included.
func (c *Catalog) Material() Material {
	return cloneMaterial(c.material)
}

// Questions returns the questions in their fixed order.
func (c *Catalog) Questions() []Question {
	return cloneQuestions(c.material.Questions)
}

// Question looks up a question by id.
func (c *Catalog) Question(id int) (Question, bool) {
	i, ok := c.questionAt[id]
	if !ok {
		return Question{}, false
	}
	q := c.material.Questions[i]
	q.Options = slices.Clone(q.Options)
	return q, true
}

// QuestionCount returns the number of questions.
func (c *Catalog) QuestionCount() int {
	return len(c.material.Questions)
}

// Vocabulary returns the key vocabulary entries.
func (c *Catalog) Vocabulary() []VocabEntry {
	return slices.Clone(c.material.Vocabulary)
}

func cloneMaterial(m Material) Material {
	m.Questions = cloneQuestions(m.Questions)
	m.Vocabulary = slices.Clone(m.Vocabulary)
	return m
}

func cloneQuestions(qs []Question) []Question {
	out := make([]Question, len(qs))
	for i, q := range qs {
		q.Options = slices.Clone(q.Options)
		out[i] = q
	}
	return out
}
