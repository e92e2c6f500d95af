package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func apiServer(t *testing.T, total int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/courses", func(w http.ResponseWriter, r *http.Request) {
		page, limit := 1, 9
		fmt.Sscanf(r.URL.Query().Get("page"), "%d", &page)
		fmt.Sscanf(r.URL.Query().Get("limit"), "%d", &limit)

		start := (page - 1) * limit
		var items string
		for i := start; i < start+limit && i < total; i++ {
			if items != "" {
				items += ","
			}
			items += fmt.Sprintf(`{"id": %d}`, i+1)
		}
		fmt.Fprintf(w, `{"data": {"courses": [%s]}}`, items)
	})

	mux.HandleFunc("/course/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {
			"name": "超速學習攻略",
			"teacher": {"nick_name": "王老師", "brief": "簡歷"},
			"category": {"name": "學習方法", "slug": "learning"},
			"info": {"description": "  一堂課  ", "chapter_count": 12, "duration": 37800, "expired_time": null, "member_count": 100},
			"main_project": {"original_price": 3600, "sale_price": "2800"},
			"rate": "4.6",
			"rate_count": 120,
			"images": {"seo_cover": "https://files.sat.cool/cover.png"}
		}}`)
	})

	mux.HandleFunc("/course_bundles", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": [
			{
				"bundle": {"name": "雙課合購"},
				"projects": [
					{"sale_price": 2800, "discount": 300, "course": {"id": 1, "cover": "c1.png", "name": "課程一"}},
					{"sale_price": 3200, "discount": 400, "course": {"id": 2, "cover": "c2.png", "name": "課程二"}}
				]
			}
		]}`)
	})

	return httptest.NewServer(mux)
}

func fastCrawler(t *testing.T, base string) *Crawler {
	t.Helper()
	c := New(base, nil)
	c.limiter.SetLimit(1e6)
	c.limiter.SetBurst(100)
	return c
}

func TestCrawl(t *testing.T) {
	srv := apiServer(t, 20)
	defer srv.Close()

	c := fastCrawler(t, srv.URL)
	courses, err := c.Crawl(context.Background(), Opts{PageLimit: 9, MaxCourses: 12})
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if len(courses) != 12 {
		t.Fatalf("expected 12 courses, got %d", len(courses))
	}

	first := courses[0]
	if first.Title != "超速學習攻略" {
		t.Errorf("unexpected title %q", first.Title)
	}
	if first.Link != srvCourseLink(1) {
		t.Errorf("unexpected link %q", first.Link)
	}
	if first.Intro != "一堂課" {
		t.Errorf("intro not trimmed: %q", first.Intro)
	}
	if first.Info.Duration != "10 小時 30 分鐘" {
		t.Errorf("unexpected duration %q", first.Info.Duration)
	}
	if first.Info.ExpiredTime != "無限制" {
		t.Errorf("unexpected expiry %q", first.Info.ExpiredTime)
	}
	if first.Price.Sale.Float() != 2800 {
		t.Errorf("string sale price not coerced: %v", first.Price.Sale)
	}
	if first.Rating.Rate.Float() != 4.6 {
		t.Errorf("string rate not coerced: %v", first.Rating.Rate)
	}
}

func srvCourseLink(id int) string {
	return fmt.Sprintf("https://sat.cool/course/%d", id)
}

func TestCrawl_StopsWhenListEnds(t *testing.T) {
	srv := apiServer(t, 5)
	defer srv.Close()

	c := fastCrawler(t, srv.URL)
	courses, err := c.Crawl(context.Background(), Opts{PageLimit: 9, MaxCourses: 30})
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}
	if len(courses) != 5 {
		t.Errorf("expected all 5 listed courses, got %d", len(courses))
	}
}

func TestFetchCourse_Bundles(t *testing.T) {
	srv := apiServer(t, 1)
	defer srv.Close()

	c := fastCrawler(t, srv.URL)
	course, err := c.FetchCourse(context.Background(), 1)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if len(course.Bundles) != 1 {
		t.Fatalf("expected 1 bundle, got %d", len(course.Bundles))
	}

	b := course.Bundles[0]
	if b.Name != "雙課合購" {
		t.Errorf("unexpected bundle name %q", b.Name)
	}
	if b.Total != 6000 {
		t.Errorf("expected total 6000, got %v", b.Total)
	}
	if b.Sale != 5300 {
		t.Errorf("expected sale 5300, got %v", b.Sale)
	}
	if len(b.Group) != 2 || b.Group[1].Name != "課程二" {
		t.Errorf("unexpected bundle group %+v", b.Group)
	}
}

func TestFormatDuration(t *testing.T) {
	sec := func(v float64) *float64 { return &v }
	tests := []struct {
		in   *float64
		want string
	}{
		{nil, "無限制"},
		{sec(0), "0 小時 0 分鐘"},
		{sec(3600), "1 小時 0 分鐘"},
		{sec(37800), "10 小時 30 分鐘"},
		{sec(90), "0 小時 1 分鐘"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
