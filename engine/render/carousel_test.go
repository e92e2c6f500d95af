package render

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/coursebot/coursebot/engine/recommend"
)

func sampleResult() recommend.RankedResult {
	return recommend.RankedResult{
		Course:   "超速學習攻略",
		Teacher:  "王老師",
		Category: "學習方法",
		Link:     "https://sat.cool/course/42",
		Rating:   3.5,
		Duration: "10 小時 30 分鐘",
		Price:    2800,
		Image:    "https://files.sat.cool/cover.png",
		Distance: 0.3,
	}
}

func TestCarousel_OneBubblePerResult(t *testing.T) {
	c := Carousel([]recommend.RankedResult{sampleResult(), sampleResult()})
	if c["type"] != "carousel" {
		t.Errorf("expected carousel type, got %v", c["type"])
	}
	contents := c["contents"].([]any)
	if len(contents) != 2 {
		t.Fatalf("expected 2 bubbles, got %d", len(contents))
	}
	if contents[0].(map[string]any)["type"] != "bubble" {
		t.Error("expected bubble entries")
	}
}

func TestCarousel_Serializes(t *testing.T) {
	data, err := json.Marshal(Carousel([]recommend.RankedResult{sampleResult()}))
	if err != nil {
		t.Fatalf("carousel not serializable: %v", err)
	}
	s := string(data)
	for _, want := range []string{"超速學習攻略", "相似距離", "$ 2800", "0.3", "COURSE"} {
		if !strings.Contains(s, want) {
			t.Errorf("rendered carousel missing %q", want)
		}
	}
}

func TestRatingRow_StarSplit(t *testing.T) {
	row := ratingRow(3.5)
	if len(row) != 6 {
		t.Fatalf("expected 5 stars + value, got %d entries", len(row))
	}
	gold := 0
	for _, item := range row[:5] {
		if strings.Contains(item.(map[string]any)["url"].(string), "gold") {
			gold++
		}
	}
	if gold != 3 {
		t.Errorf("expected 3 gold stars for 3.5, got %d", gold)
	}
	value := row[5].(map[string]any)["text"].(string)
	if value != "3.5" {
		t.Errorf("expected rating text 3.5, got %s", value)
	}
}

func TestBubble_FallbackImage(t *testing.T) {
	r := sampleResult()
	r.Image = ""
	b := bubble(r)
	hero := b["hero"].(map[string]any)
	if hero["url"] != FallbackImage {
		t.Errorf("expected fallback image, got %v", hero["url"])
	}
}
