// Package crawler fetches course records from the sat.cool public API and
// assembles them into the raw batch format the ingestion pipeline consumes.
package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coursebot/coursebot/engine/domain"
	"golang.org/x/time/rate"
)

const (
	// DefaultAPIBase is the sat.cool course API.
	DefaultAPIBase = "https://api.sat.cool/api/v2"

	// DefaultPageLimit is the course-list page size.
	DefaultPageLimit = 9

	// DefaultMaxCourses caps a crawl run.
	DefaultMaxCourses = 30
)

const userAgent = "Mozilla/5.0"

// Crawler fetches course listings, details, and bundle offers.
type Crawler struct {
	apiBase    string
	limiter    *rate.Limiter
	httpClient *http.Client
	log        *slog.Logger
}

// Opts configures a crawl run.
type Opts struct {
	PageLimit  int
	MaxCourses int
}

// New creates a Crawler against the given API base URL. An empty base uses
// the production API.
func New(apiBase string, log *slog.Logger) *Crawler {
	if apiBase == "" {
		apiBase = DefaultAPIBase
	}
	if log == nil {
		log = slog.Default()
	}
	return &Crawler{
		apiBase:    strings.TrimRight(apiBase, "/"),
		limiter:    rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}
}

// courseListResponse is the paged course-list envelope.
type courseListResponse struct {
	Data struct {
		Courses []struct {
			ID int `json:"id"`
		} `json:"courses"`
	} `json:"data"`
}

// courseDetail is the per-course detail payload.
type courseDetail struct {
	Name    string `json:"name"`
	Teacher struct {
		NickName string `json:"nick_name"`
		Brief    string `json:"brief"`
	} `json:"teacher"`
	Category domain.Category `json:"category"`
	Info     struct {
		Description  string   `json:"description"`
		ChapterCount int      `json:"chapter_count"`
		Duration     *float64 `json:"duration"`
		ExpiredTime  *float64 `json:"expired_time"`
		MemberCount  int      `json:"member_count"`
	} `json:"info"`
	MainProject struct {
		OriginalPrice domain.Number `json:"original_price"`
		SalePrice     domain.Number `json:"sale_price"`
	} `json:"main_project"`
	Rate         domain.Number `json:"rate"`
	RateContents []string      `json:"rate_contents"`
	RateCount    int           `json:"rate_count"`
	Images       struct {
		SEOCover string `json:"seo_cover"`
	} `json:"images"`
}

// bundleEntry is one bundle offer in the course_bundles response.
type bundleEntry struct {
	Bundle struct {
		Name string `json:"name"`
	} `json:"bundle"`
	Projects []struct {
		SalePrice float64 `json:"sale_price"`
		Discount  float64 `json:"discount"`
		Course    struct {
			ID    int    `json:"id"`
			Cover string `json:"cover"`
			Name  string `json:"name"`
		} `json:"course"`
	} `json:"projects"`
}

// Crawl walks the course list page by page until MaxCourses records are
// collected or the listing runs out.
func (c *Crawler) Crawl(ctx context.Context, opts Opts) ([]domain.RawCourse, error) {
	if opts.PageLimit <= 0 {
		opts.PageLimit = DefaultPageLimit
	}
	if opts.MaxCourses <= 0 {
		opts.MaxCourses = DefaultMaxCourses
	}

	var courses []domain.RawCourse
	for page := 1; len(courses) < opts.MaxCourses; page++ {
		ids, err := c.fetchCourseList(ctx, page, opts.PageLimit)
		if err != nil {
			return courses, err
		}
		if len(ids) == 0 {
			break
		}

		for _, id := range ids {
			raw, err := c.FetchCourse(ctx, id)
			if err != nil {
				c.log.Warn("skipping course", "course_id", id, "error", err)
				continue
			}
			courses = append(courses, raw)
			c.log.Info("crawled course", "course_id", id, "title", raw.Title)
			if len(courses) >= opts.MaxCourses {
				break
			}
		}
	}
	return courses, nil
}

// FetchCourse fetches and assembles one course record.
func (c *Crawler) FetchCourse(ctx context.Context, courseID int) (domain.RawCourse, error) {
	detail, err := c.fetchCourseDetail(ctx, courseID)
	if err != nil {
		return domain.RawCourse{}, err
	}

	bundles, err := c.fetchCourseBundles(ctx, courseID)
	if err != nil {
		// Bundle offers are optional enrichment.
		c.log.Warn("bundle fetch failed", "course_id", courseID, "error", err)
		bundles = nil
	}

	return domain.RawCourse{
		Title: detail.Name,
		Teacher: domain.Teacher{
			Name:  detail.Teacher.NickName,
			Brief: detail.Teacher.Brief,
		},
		Platform: "SAT知識衛星",
		Link:     fmt.Sprintf("https://sat.cool/course/%d", courseID),
		Category: detail.Category,
		Intro:    strings.TrimSpace(detail.Info.Description),
		Info: domain.CourseInfo{
			ChapterCount: detail.Info.ChapterCount,
			Duration:     FormatDuration(detail.Info.Duration),
			ExpiredTime:  FormatDuration(detail.Info.ExpiredTime),
			MemberCount:  detail.Info.MemberCount,
		},
		Price: domain.Price{
			Original: detail.MainProject.OriginalPrice,
			Sale:     detail.MainProject.SalePrice,
		},
		Rating: domain.Rating{
			Rate:      detail.Rate,
			Contents:  detail.RateContents,
			RateCount: detail.RateCount,
		},
		Image:   detail.Images.SEOCover,
		Bundles: parseBundles(bundles),
	}, nil
}

func (c *Crawler) fetchCourseList(ctx context.Context, page, limit int) ([]int, error) {
	var resp courseListResponse
	url := fmt.Sprintf("%s/courses?page=%d&limit=%d", c.apiBase, page, limit)
	if err := c.getJSON(ctx, url, &resp); err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(resp.Data.Courses))
	for _, course := range resp.Data.Courses {
		ids = append(ids, course.ID)
	}
	return ids, nil
}

func (c *Crawler) fetchCourseDetail(ctx context.Context, courseID int) (courseDetail, error) {
	var resp struct {
		Data courseDetail `json:"data"`
	}
	url := fmt.Sprintf("%s/course/%d", c.apiBase, courseID)
	err := c.getJSON(ctx, url, &resp)
	return resp.Data, err
}

func (c *Crawler) fetchCourseBundles(ctx context.Context, courseID int) ([]bundleEntry, error) {
	var resp struct {
		Data []bundleEntry `json:"data"`
	}
	url := fmt.Sprintf("%s/course_bundles?course_id=%d", c.apiBase, courseID)
	err := c.getJSON(ctx, url, &resp)
	return resp.Data, err
}

func (c *Crawler) getJSON(ctx context.Context, url string, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// parseBundles flattens bundle offers into the raw batch shape. A bundle's
// total is the sum of project sale prices; its sale price subtracts each
// project's discount.
func parseBundles(entries []bundleEntry) []domain.Bundle {
	if len(entries) == 0 {
		return nil
	}

	bundles := make([]domain.Bundle, 0, len(entries))
	for _, e := range entries {
		b := domain.Bundle{Name: e.Bundle.Name}
		for _, p := range e.Projects {
			b.Total += p.SalePrice
			b.Sale += p.SalePrice - p.Discount
			b.Group = append(b.Group, domain.BundleItem{
				ID:    p.Course.ID,
				Cover: p.Course.Cover,
				Name:  p.Course.Name,
			})
		}
		bundles = append(bundles, b)
	}
	return bundles
}

// FormatDuration renders a duration in seconds as "H 小時 M 分鐘". A nil
// duration means unrestricted access.
func FormatDuration(seconds *float64) string {
	if seconds == nil {
		return "無限制"
	}
	minutes := int(*seconds / 60)
	return fmt.Sprintf("%d 小時 %d 分鐘", minutes/60, minutes%60)
}
