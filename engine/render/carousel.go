// Package render builds the LINE Flex carousel shown as a recommendation
// reply. Purely presentational: one bubble per ranked result.
package render

import (
	"fmt"

	"github.com/coursebot/coursebot/engine/recommend"
)

const (
	// FallbackImage is shown when a course record carries no image URL.
	FallbackImage = "https://developers-resource.landpress.line.me/fx/img/01_1_cafe.png"

	starIconBase = "https://developers-resource.landpress.line.me/fx/img/"
	goldStar     = starIconBase + "review_gold_star_28.png"
	grayStar     = starIconBase + "review_gray_star_28.png"
)

// Carousel wraps one bubble per result into a Flex carousel container.
func Carousel(results []recommend.RankedResult) map[string]any {
	contents := make([]any, len(results))
	for i, r := range results {
		contents[i] = bubble(r)
	}
	return map[string]any{
		"type":     "carousel",
		"contents": contents,
	}
}

// ratingRow renders a five-star rating: gold stars up to the rating value,
// gray for the rest, then the numeric value.
func ratingRow(rating float64) []any {
	row := make([]any, 0, 6)
	for i := 1; i <= 5; i++ {
		url := grayStar
		if float64(i) <= rating {
			url = goldStar
		}
		row = append(row, map[string]any{
			"type": "icon",
			"size": "sm",
			"url":  url,
		})
	}
	row = append(row, map[string]any{
		"type":   "text",
		"text":   fmt.Sprintf("%.1f", rating),
		"size":   "sm",
		"color":  "#999999",
		"margin": "md",
		"flex":   0,
	})
	return row
}

// detailRow is one labelled line in the bubble body.
func detailRow(label, value, valueColor string, labelFlex int, bold bool) map[string]any {
	valueText := map[string]any{
		"type":  "text",
		"text":  value,
		"wrap":  true,
		"color": valueColor,
		"size":  "sm",
		"flex":  5,
	}
	if bold {
		valueText["weight"] = "bold"
	}
	return map[string]any{
		"type":    "box",
		"layout":  "baseline",
		"spacing": "sm",
		"contents": []any{
			map[string]any{
				"type":  "text",
				"text":  label,
				"color": "#AAAAAA",
				"size":  "xs",
				"flex":  labelFlex,
			},
			valueText,
		},
	}
}

// bubble renders one course card: hero image, title, star rating, and the
// distance / category / teacher / duration / price rows, with a link button.
func bubble(r recommend.RankedResult) map[string]any {
	image := r.Image
	if image == "" {
		image = FallbackImage
	}

	return map[string]any{
		"type": "bubble",
		"hero": map[string]any{
			"type":        "image",
			"url":         image,
			"size":        "full",
			"aspectRatio": "20:13",
			"aspectMode":  "cover",
			"action": map[string]any{
				"type": "uri",
				"uri":  r.Link,
			},
		},
		"body": map[string]any{
			"type":   "box",
			"layout": "vertical",
			"contents": []any{
				map[string]any{
					"type":   "text",
					"text":   r.Course,
					"weight": "bold",
					"size":   "md",
					"wrap":   true,
				},
				map[string]any{
					"type":     "box",
					"layout":   "baseline",
					"margin":   "md",
					"contents": ratingRow(r.Rating),
				},
				map[string]any{
					"type":    "box",
					"layout":  "vertical",
					"margin":  "lg",
					"spacing": "sm",
					"contents": []any{
						detailRow("相似距離", fmt.Sprintf("%.1f", r.Distance), "#666666", 2, false),
						detailRow("分類", r.Category, "#666666", 1, false),
						detailRow("老師", r.Teacher, "#666666", 1, false),
						detailRow("總時長", r.Duration, "#666666", 1, false),
						detailRow("價格", fmt.Sprintf("$ %.0f", r.Price), "#FFDD00", 1, true),
					},
				},
			},
		},
		"footer": map[string]any{
			"type":    "box",
			"layout":  "vertical",
			"spacing": "sm",
			"flex":    0,
			"contents": []any{
				map[string]any{
					"type":   "button",
					"style":  "link",
					"height": "sm",
					"action": map[string]any{
						"type":  "uri",
						"label": "COURSE",
						"uri":   r.Link,
					},
				},
			},
		},
	}
}
