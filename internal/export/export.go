// Package export writes submitted quiz results as an Excel workbook.
package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/p-n-ai/pai-reader/internal/content"
	"github.com/p-n-ai/pai-reader/internal/quiz"
)

// Sheet names.
const (
	ResultsSheet    = "Results"
	VocabularySheet = "Vocabulary"
)

// ContentType is the media type of the workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ErrNotSubmitted is returned for a snapshot whose answers are not submitted.
var ErrNotSubmitted = errors.New("quiz not submitted")

// Meta is printed in the workbook header.
type Meta struct {
	SessionID   string
	GeneratedAt time.Time
}

var resultsHeader = []any{"Question", "Type", "Prompt", "Your answer", "Correct answer", "Outcome"}

// Workbook builds the results workbook for a submitted snapshot.
func Workbook(c *content.Catalog, snap quiz.Snapshot, meta Meta) (*excelize.File, error) {
	if !snap.Submitted {
		return nil, ErrNotSubmitted
	}

	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("naming results sheet: %w", err)
	}
	if err := writeResults(f, c, snap, meta); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := writeVocabulary(f, c); err != nil {
		_ = f.Close()
		return nil, err
	}
	return f, nil
}

// Write streams the results workbook to w.
func Write(w io.Writer, c *content.Catalog, snap quiz.Snapshot, meta Meta) error {
	f, err := Workbook(c, snap, meta)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeResults(f *excelize.File, c *content.Catalog, snap quiz.Snapshot, meta Meta) error {
	primary, _ := snap.PrimaryTopic()
	topics := make([]string, len(snap.Topics))
	for i, t := range snap.Topics {
		topics[i] = string(t)
	}

	header := [][]any{
		{c.Title()},
		{"Session", meta.SessionID},
		{"Level", string(snap.Level)},
		{"Topics", strings.Join(topics, ", ")},
		{"Primary topic", string(primary)},
		{"Score", fmt.Sprintf("%d/%d", snap.Score, snap.Total)},
		{"Generated", meta.GeneratedAt.UTC().Format(time.RFC3339)},
	}
	row := 1
	for _, values := range header {
		if err := setRow(f, ResultsSheet, row, values); err != nil {
			return err
		}
		row++
	}

	row++
	if err := setRow(f, ResultsSheet, row, resultsHeader); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	if err := f.SetRowStyle(ResultsSheet, row, row, bold); err != nil {
		return fmt.Errorf("styling header: %w", err)
	}
	if err := f.SetCellStyle(ResultsSheet, "A1", "A1", bold); err != nil {
		return fmt.Errorf("styling title: %w", err)
	}

	for _, r := range quiz.Review(c, snap) {
		row++
		q, _ := c.Question(r.QuestionID)
		values := []any{q.ID, string(q.Kind), q.Prompt, optionText(q, r.Selected), optionText(q, r.Correct), string(r.Outcome)}
		if err := setRow(f, ResultsSheet, row, values); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(ResultsSheet, "C", "E", 48); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	return nil
}

func writeVocabulary(f *excelize.File, c *content.Catalog) error {
	if _, err := f.NewSheet(VocabularySheet); err != nil {
		return fmt.Errorf("creating vocabulary sheet: %w", err)
	}
	if err := setRow(f, VocabularySheet, 1, []any{"Term", "Definition"}); err != nil {
		return err
	}
	for i, v := range c.Vocabulary() {
		if err := setRow(f, VocabularySheet, i+2, []any{v.Term, v.Definition}); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(VocabularySheet, "B", "B", 60); err != nil {
		return fmt.Errorf("sizing columns: %w", err)
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}

func optionText(q content.Question, i int) string {
	if i < 0 || i >= len(q.Options) {
		return ""
	}
	return fmt.Sprintf("%c) %s", 'A'+i, q.Options[i])
}
