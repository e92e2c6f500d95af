package ingest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/coursebot/coursebot/engine/domain"
)

// Normalize turns one raw course record into an embedding-ready document.
// The id is the stringified batch index, so re-running over a reordered or
// filtered batch changes which content each id refers to. A record missing
// any embedding-text field fails with a MissingFieldError.
func Normalize(raw domain.RawCourse, index int) (domain.CourseDoc, error) {
	for _, f := range []struct {
		name  string
		value string
	}{
		{"title", raw.Title},
		{"teacher.name", raw.Teacher.Name},
		{"category.name", raw.Category.Name},
		{"intro", raw.Intro},
	} {
		if strings.TrimSpace(f.value) == "" {
			return domain.CourseDoc{}, &domain.MissingFieldError{Field: f.name, Index: index}
		}
	}

	text := fmt.Sprintf("課程名稱: %s\n講師: %s\n分類: %s\n簡介: %s",
		raw.Title, raw.Teacher.Name, raw.Category.Name, raw.Intro)

	return domain.CourseDoc{
		ID:   strconv.Itoa(index),
		Text: text,
		Meta: domain.CourseMeta{
			Title:    raw.Title,
			Teacher:  raw.Teacher.Name,
			Category: raw.Category.Name,
			Link:     raw.Link,
			Price:    raw.Price.Sale.Float(),
			Rating:   raw.Rating.Rate.Float(),
			Platform: raw.Platform,
			Duration: raw.Info.Duration,
			Image:    raw.Image,
		},
	}, nil
}

// NormalizeBatch normalizes every record, aborting on the first failure.
// Partial ingestion of a malformed batch would leave the collection
// inconsistent, so the whole batch fails together.
func NormalizeBatch(raws []domain.RawCourse) ([]domain.CourseDoc, error) {
	docs := make([]domain.CourseDoc, len(raws))
	for i, raw := range raws {
		doc, err := Normalize(raw, i)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrBatchAborted, err)
		}
		docs[i] = doc
	}
	return docs, nil
}
