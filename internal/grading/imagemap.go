package grading

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

// Region is a clickable area on an IMAGE_MAP question. Circles use CX/CY/R,
// rectangles use X/Y/Width/Height with (X,Y) the top-left corner.
type Region struct {
	ID     string  `json:"id"`
	Shape  string  `json:"shape"` // circle|rect
	CX     float64 `json:"cx,omitempty"`
	CY     float64 `json:"cy,omitempty"`
	R      float64 `json:"r,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
}

// ImageMapOptions is the options payload of an IMAGE_MAP question.
type ImageMapOptions struct {
	ImageURL string   `json:"imageUrl,omitempty"`
	Regions  []Region `json:"regions"`
}

// Point is a learner's click.
type Point struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

// Contains reports whether (x,y) hits the region. Edges count as a hit.
func (r Region) Contains(x, y float64) bool {
	switch strings.ToLower(r.Shape) {
	case "circle":
		return math.Hypot(x-r.CX, y-r.CY) <= r.R
	case "rect", "rectangle":
		return x >= r.X && x <= r.X+r.Width && y >= r.Y && y <= r.Y+r.Height
	default:
		return false
	}
}

type imageMapStrategy struct{}

func (imageMapStrategy) Grade(q Q, response json.RawMessage) (Result, error) {
	var regionID string
	if err := json.Unmarshal(q.CorrectAnswer, &regionID); err != nil {
		return Result{}, fmt.Errorf("image_map: bad answer key: %w", err)
	}
	var opts ImageMapOptions
	if len(q.Options) > 0 {
		if err := json.Unmarshal(q.Options, &opts); err != nil {
			return Result{}, fmt.Errorf("image_map: bad options: %w", err)
		}
	}
	var p Point
	if err := json.Unmarshal(response, &p); err != nil || p.X == nil || p.Y == nil {
		return Result{}, nil
	}
	for _, r := range opts.Regions {
		if r.ID == regionID {
			return boolResult(r.Contains(*p.X, *p.Y)), nil
		}
	}
	// unknown region scores zero
	return Result{}, nil
}
