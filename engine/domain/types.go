// Package domain defines the core course types, the error taxonomy, and the
// value-coercion helpers shared by the ingestion and retrieval pipelines.
package domain

import "encoding/json"

// RawCourse is one crawled course record, exactly as the crawler emits it.
// Records are immutable once crawled and identified by their position in the
// source batch.
type RawCourse struct {
	Title    string     `json:"title"`
	Teacher  Teacher    `json:"teacher"`
	Platform string     `json:"platform"`
	Link     string     `json:"link"`
	Category Category   `json:"category"`
	Intro    string     `json:"intro"`
	Info     CourseInfo `json:"info"`
	Price    Price      `json:"price"`
	Rating   Rating     `json:"rating"`
	Image    string     `json:"image"`
	Bundles  []Bundle   `json:"bundles,omitempty"`
}

// Teacher holds the instructor fields of a raw course record.
type Teacher struct {
	Name  string `json:"name"`
	Brief string `json:"brief,omitempty"`
}

// Category holds the course category fields.
type Category struct {
	Name string `json:"name"`
	Slug string `json:"slug,omitempty"`
}

// CourseInfo holds secondary course details.
type CourseInfo struct {
	ChapterCount int    `json:"chapter_count"`
	Duration     string `json:"duration"`
	ExpiredTime  string `json:"expired_time,omitempty"`
	MemberCount  int    `json:"member_count"`
}

// Price holds original and sale prices. Upstream sources emit these as either
// numbers or strings, so both fields decode through Number.
type Price struct {
	Original Number `json:"original"`
	Sale     Number `json:"price"`
}

// Rating holds the course rating. Rate decodes through Number for the same
// reason as Price.
type Rating struct {
	Rate      Number   `json:"rate"`
	Contents  []string `json:"rate_contents,omitempty"`
	RateCount int      `json:"rate_count"`
}

// Bundle is a course bundle offer attached to a raw record.
type Bundle struct {
	Name  string       `json:"name"`
	Total float64      `json:"total"`
	Sale  float64      `json:"sale"`
	Group []BundleItem `json:"group,omitempty"`
}

// BundleItem is one course inside a bundle.
type BundleItem struct {
	ID    int    `json:"id"`
	Cover string `json:"cover"`
	Name  string `json:"name"`
}

// CourseMeta is the flat display metadata stored alongside each vector so
// retrieval needs no secondary lookup. Price and rating are normalized to
// float64 at ingestion time.
type CourseMeta struct {
	Title    string  `json:"title"`
	Teacher  string  `json:"teacher"`
	Category string  `json:"category"`
	Link     string  `json:"link"`
	Price    float64 `json:"price"`
	Rating   float64 `json:"rating"`
	Platform string  `json:"platform"`
	Duration string  `json:"duration"`
	Image    string  `json:"image"`
}

// CourseDoc is one normalized course ready for embedding: a stable id, the
// embedding input text, and the display metadata.
type CourseDoc struct {
	ID   string
	Text string
	Meta CourseMeta
}

// DecodeBatch parses a raw-record batch file produced by the crawler.
func DecodeBatch(data []byte) ([]RawCourse, error) {
	var courses []RawCourse
	if err := json.Unmarshal(data, &courses); err != nil {
		return nil, err
	}
	return courses, nil
}
