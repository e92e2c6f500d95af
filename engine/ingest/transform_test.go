package ingest

import (
	"encoding/json"
	"errors"
	"strconv"
	"testing"

	"github.com/coursebot/coursebot/engine/domain"
)

func validCourse() domain.RawCourse {
	return domain.RawCourse{
		Title:    "超速學習攻略",
		Teacher:  domain.Teacher{Name: "王老師"},
		Platform: "SAT知識衛星",
		Link:     "https://sat.cool/course/42",
		Category: domain.Category{Name: "學習方法", Slug: "learning"},
		Intro:    "一堂讓你事半功倍的課程",
		Info:     domain.CourseInfo{Duration: "10 小時 30 分鐘"},
		Price:    domain.Price{Original: 3600, Sale: 2800},
		Rating:   domain.Rating{Rate: 4.8, RateCount: 120},
		Image:    "https://files.sat.cool/cover.png",
	}
}

func TestNormalize(t *testing.T) {
	doc, err := Normalize(validCourse(), 7)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if doc.ID != "7" {
		t.Errorf("expected id 7, got %s", doc.ID)
	}

	want := "課程名稱: 超速學習攻略\n講師: 王老師\n分類: 學習方法\n簡介: 一堂讓你事半功倍的課程"
	if doc.Text != want {
		t.Errorf("embedding text mismatch:\ngot  %q\nwant %q", doc.Text, want)
	}
	if doc.Meta.Price != 2800 {
		t.Errorf("expected price 2800, got %v", doc.Meta.Price)
	}
	if doc.Meta.Rating != 4.8 {
		t.Errorf("expected rating 4.8, got %v", doc.Meta.Rating)
	}
	if doc.Meta.Duration != "10 小時 30 分鐘" {
		t.Errorf("duration not carried into metadata: %q", doc.Meta.Duration)
	}
}

func TestNormalize_MissingFields(t *testing.T) {
	tests := []struct {
		field  string
		mutate func(*domain.RawCourse)
	}{
		{"title", func(c *domain.RawCourse) { c.Title = "" }},
		{"teacher.name", func(c *domain.RawCourse) { c.Teacher.Name = "  " }},
		{"category.name", func(c *domain.RawCourse) { c.Category.Name = "" }},
		{"intro", func(c *domain.RawCourse) { c.Intro = "\n" }},
	}
	for _, tt := range tests {
		course := validCourse()
		tt.mutate(&course)
		_, err := Normalize(course, 3)
		if err == nil {
			t.Fatalf("%s: expected error", tt.field)
		}
		var mf *domain.MissingFieldError
		if !errors.As(err, &mf) {
			t.Fatalf("%s: expected MissingFieldError, got %v", tt.field, err)
		}
		if mf.Field != tt.field || mf.Index != 3 {
			t.Errorf("expected {%s 3}, got {%s %d}", tt.field, mf.Field, mf.Index)
		}
	}
}

func TestNormalize_StringNumerics(t *testing.T) {
	// Upstream sometimes types rate and price as strings; they decode
	// through Number and normalize to plain floats.
	var course domain.RawCourse
	raw := `{"title":"課程","teacher":{"name":"老師"},"category":{"name":"分類"},
		"intro":"簡介","price":{"original":"3600","price":"1999"},"rating":{"rate":"4.6"}}`
	if err := json.Unmarshal([]byte(raw), &course); err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	doc, err := Normalize(course, 0)
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if doc.Meta.Rating != 4.6 {
		t.Errorf("expected rating 4.6, got %v", doc.Meta.Rating)
	}
	if doc.Meta.Price != 1999 {
		t.Errorf("expected price 1999, got %v", doc.Meta.Price)
	}
}

func TestNormalizeBatch_SequentialIDs(t *testing.T) {
	raws := []domain.RawCourse{validCourse(), validCourse(), validCourse()}
	docs, err := NormalizeBatch(raws)
	if err != nil {
		t.Fatalf("batch failed: %v", err)
	}
	for i, doc := range docs {
		if doc.ID != strconv.Itoa(i) {
			t.Errorf("doc %d: expected id %d, got %s", i, i, doc.ID)
		}
	}
}

func TestNormalizeBatch_AbortsWholeBatch(t *testing.T) {
	bad := validCourse()
	bad.Intro = ""
	raws := []domain.RawCourse{validCourse(), bad, validCourse()}

	docs, err := NormalizeBatch(raws)
	if err == nil {
		t.Fatal("expected error")
	}
	if docs != nil {
		t.Error("expected no documents from an aborted batch")
	}
	if !errors.Is(err, domain.ErrBatchAborted) {
		t.Errorf("expected ErrBatchAborted, got %v", err)
	}
	var mf *domain.MissingFieldError
	if !errors.As(err, &mf) || mf.Index != 1 {
		t.Errorf("expected MissingFieldError at index 1, got %v", err)
	}
}
