package grading

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Question types understood by the default grader.
const (
	TypeMCSingle  = "MC_SINGLE"
	TypeMCMulti   = "MC_MULTI"
	TypeTrueFalse = "TRUE_FALSE"
	TypeDragOrder = "DRAG_ORDER"
	TypeImageMap  = "IMAGE_MAP"
	TypeSlider    = "SLIDER"
)

var ErrUnknownType = errors.New("grading: unknown question type")

// Q is the minimal view of a question needed for grading.
type Q struct {
	Type          string
	Options       json.RawMessage
	CorrectAnswer json.RawMessage
}

// Result is the outcome of grading a single response. Score is in [0,1].
type Result struct {
	Score   float64
	Correct bool
}

// Strategy grades a single question type. A response that is missing or
// cannot be decoded scores zero; an error means the answer key itself is
// unusable.
type Strategy interface {
	Grade(q Q, response json.RawMessage) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(q Q, response json.RawMessage) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(q Q, response json.RawMessage) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownType, q.Type)
	}
	if isNull(response) {
		return Result{}, nil
	}
	return s.Grade(q, response)
}

// NewDefaultGrader installs the built-in strategies.
func NewDefaultGrader() Grader {
	return &defaultGrader{
		strategies: map[string]Strategy{
			TypeMCSingle:  mcSingleStrategy{},
			TypeMCMulti:   mcMultiStrategy{},
			TypeTrueFalse: trueFalseStrategy{},
			TypeDragOrder: dragOrderStrategy{},
			TypeImageMap:  imageMapStrategy{},
			TypeSlider:    sliderStrategy{},
		},
	}
}

// --- Strategies ---

type mcSingleStrategy struct{}

func (mcSingleStrategy) Grade(q Q, response json.RawMessage) (Result, error) {
	var key string
	if err := json.Unmarshal(q.CorrectAnswer, &key); err != nil {
		return Result{}, fmt.Errorf("mc_single: bad answer key: %w", err)
	}
	if key == "" {
		return Result{}, errors.New("mc_single: empty answer key")
	}
	var resp string
	if err := json.Unmarshal(response, &resp); err != nil {
		return Result{}, nil
	}
	return boolResult(resp == key), nil
}

// mcMultiStrategy awards +1/N for every correct selection and -1/N for every
// wrong one, clamped to [0,1]. Only the exact set scores as correct.
type mcMultiStrategy struct{}

func (mcMultiStrategy) Grade(q Q, response json.RawMessage) (Result, error) {
	var key []string
	if err := json.Unmarshal(q.CorrectAnswer, &key); err != nil {
		return Result{}, fmt.Errorf("mc_multi: bad answer key: %w", err)
	}
	correct := toSet(key)
	if len(correct) == 0 {
		return Result{}, errors.New("mc_multi: empty answer key")
	}
	var resp []string
	if err := json.Unmarshal(response, &resp); err != nil {
		return Result{}, nil
	}

	hits, misses := 0, 0
	for id := range toSet(resp) {
		if _, ok := correct[id]; ok {
			hits++
		} else {
			misses++
		}
	}
	score := float64(hits-misses) / float64(len(correct))
	score = clamp01(score)
	return Result{Score: score, Correct: score == 1}, nil
}

type trueFalseStrategy struct{}

func (trueFalseStrategy) Grade(q Q, response json.RawMessage) (Result, error) {
	var key bool
	if err := json.Unmarshal(q.CorrectAnswer, &key); err != nil {
		return Result{}, fmt.Errorf("true_false: bad answer key: %w", err)
	}
	var resp bool
	if err := json.Unmarshal(response, &resp); err != nil {
		return Result{}, nil
	}
	return boolResult(resp == key), nil
}

// dragOrderStrategy is all-or-nothing on the exact sequence.
type dragOrderStrategy struct{}

func (dragOrderStrategy) Grade(q Q, response json.RawMessage) (Result, error) {
	var key []string
	if err := json.Unmarshal(q.CorrectAnswer, &key); err != nil {
		return Result{}, fmt.Errorf("drag_order: bad answer key: %w", err)
	}
	var resp []string
	if err := json.Unmarshal(response, &resp); err != nil {
		return Result{}, nil
	}
	if len(resp) != len(key) {
		return Result{}, nil
	}
	for i := range key {
		if resp[i] != key[i] {
			return Result{}, nil
		}
	}
	return boolResult(true), nil
}

// helpers

func boolResult(ok bool) Result {
	if ok {
		return Result{Score: 1, Correct: true}
	}
	return Result{}
}

func isNull(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		m[s] = struct{}{}
	}
	return m
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
