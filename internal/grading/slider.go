package grading

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// SliderKey is the canonical answer of a SLIDER question.
//
//	{"value": 50, "tolerance": 5}   // accepts 45..55
//	{"value": 50}                   // exact match
type SliderKey struct {
	Value     *float64 `json:"value"`
	Tolerance float64  `json:"tolerance,omitempty"`
}

type sliderStrategy struct{}

func (sliderStrategy) Grade(q Q, response json.RawMessage) (Result, error) {
	var key SliderKey
	if err := json.Unmarshal(q.CorrectAnswer, &key); err != nil {
		return Result{}, fmt.Errorf("slider: bad answer key: %w", err)
	}
	if key.Value == nil {
		return Result{}, errors.New("slider: answer key has no value")
	}
	v, ok := decodeNumber(response)
	if !ok {
		return Result{}, nil
	}
	tol := key.Tolerance
	if tol < 0 {
		tol = 0
	}
	return boolResult(math.Abs(v-*key.Value) <= tol), nil
}

// decodeNumber accepts a JSON number or a numeric string.
func decodeNumber(raw json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, !math.IsNaN(f) && !math.IsInf(f, 0)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	return parseFloatLoose(s)
}

func parseFloatLoose(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, !math.IsNaN(v) && !math.IsInf(v, 0)
	}
	if sp := strings.Fields(s); len(sp) > 0 {
		if v, err := strconv.ParseFloat(sp[0], 64); err == nil {
			return v, !math.IsNaN(v) && !math.IsInf(v, 0)
		}
	}
	return 0, false
}
