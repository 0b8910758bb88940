package content

// Level is a CEFR proficiency level.
type Level string

const (
	LevelA1 Level = "A1"
	LevelA2 Level = "A2"
	LevelB1 Level = "B1"
	LevelB2 Level = "B2"
)

// Topic is a reading topic key.
type Topic string

const (
	TopicTravel     Topic = "travel"
	TopicTechnology Topic = "technology"
	TopicBusiness   Topic = "business"
	TopicLifestyle  Topic = "lifestyle"
	TopicHealth     Topic = "health"
)

// QuestionKind distinguishes vocabulary questions from comprehension questions.
type QuestionKind string

const (
	KindVocab         QuestionKind = "vocab"
	KindComprehension QuestionKind = "comprehension"
)

// OptionCount is the number of answer options every question carries.
const OptionCount = 4

// LevelInfo describes a selectable level.
type LevelInfo struct {
	Key         Level  `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
}

// TopicInfo describes a selectable topic.
type TopicInfo struct {
	Key   Topic  `json:"key"`
	Label string `json:"label"`
}

// Question is a multiple-choice question about the passage.
// Answer is the index of the correct option and is never serialised to clients.
type Question struct {
	ID      int          `yaml:"id" json:"id"`
	Kind    QuestionKind `yaml:"kind" json:"kind"`
	Prompt  string       `yaml:"prompt" json:"prompt"`
	Options []string     `yaml:"options" json:"options"`
	Answer  int          `yaml:"answer" json:"-"`
}

// VocabEntry is a key term shown on the results screen.
type VocabEntry struct {
	Term       string `yaml:"term" json:"term"`
	Definition string `yaml:"definition" json:"definition"`
}

// Material is the reading passage with its questions and vocabulary.
type Material struct {
	Title       string       `yaml:"title" json:"title"`
	Passage     string       `yaml:"passage" json:"passage"`
	ApproxWords int          `yaml:"approx_words" json:"approx_words"`
	Questions   []Question   `yaml:"questions" json:"questions"`
	Vocabulary  []VocabEntry `yaml:"vocabulary" json:"vocabulary"`
}
