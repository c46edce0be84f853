package grading_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func grade(t *testing.T, q grading.Q, resp string) grading.Result {
	t.Helper()
	var r json.RawMessage
	if resp != "" {
		r = raw(resp)
	}
	res, err := grading.NewDefaultGrader().Grade(q, r)
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	return res
}

func TestMCMultiPartialCredit(t *testing.T) {
	q := grading.Q{Type: grading.TypeMCMulti, CorrectAnswer: raw(`["a","b"]`)}

	cases := []struct {
		name    string
		resp    string
		score   float64
		correct bool
	}{
		{"one right one wrong", `["a","c"]`, 0, false},
		{"exact set", `["a","b"]`, 1, true},
		{"exact set reordered", `["b","a"]`, 1, true},
		{"half", `["a"]`, 0.5, false},
		{"superset", `["a","b","c"]`, 0.5, false},
		{"all wrong clamps", `["c","d","e"]`, 0, false},
		{"duplicates count once", `["a","a"]`, 0.5, false},
		{"empty selection", `[]`, 0, false},
		{"wrong shape", `"a"`, 0, false},
		{"missing", ``, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := grade(t, q, tc.resp)
			if res.Score != tc.score || res.Correct != tc.correct {
				t.Fatalf("got (%v,%v) want (%v,%v)", res.Score, res.Correct, tc.score, tc.correct)
			}
		})
	}
}

func TestMCSingleAndTrueFalse(t *testing.T) {
	single := grading.Q{Type: grading.TypeMCSingle, CorrectAnswer: raw(`"b"`)}
	if r := grade(t, single, `"b"`); !r.Correct || r.Score != 1 {
		t.Fatalf("expected correct, got %+v", r)
	}
	if r := grade(t, single, `"a"`); r.Correct || r.Score != 0 {
		t.Fatalf("expected wrong, got %+v", r)
	}
	if r := grade(t, single, `null`); r.Correct || r.Score != 0 {
		t.Fatalf("null must score zero, got %+v", r)
	}

	tf := grading.Q{Type: grading.TypeTrueFalse, CorrectAnswer: raw(`false`)}
	if r := grade(t, tf, `false`); !r.Correct {
		t.Fatalf("expected correct, got %+v", r)
	}
	if r := grade(t, tf, `true`); r.Correct {
		t.Fatalf("expected wrong, got %+v", r)
	}
	if r := grade(t, tf, `"false"`); r.Correct {
		t.Fatalf("string must not match boolean, got %+v", r)
	}
}

func TestDragOrderAllOrNothing(t *testing.T) {
	q := grading.Q{Type: grading.TypeDragOrder, CorrectAnswer: raw(`["x","y","z"]`)}
	if r := grade(t, q, `["x","y","z"]`); !r.Correct || r.Score != 1 {
		t.Fatalf("expected correct, got %+v", r)
	}
	for _, resp := range []string{`["x","z","y"]`, `["x","y"]`, `["x","y","z","w"]`, `[]`} {
		if r := grade(t, q, resp); r.Correct || r.Score != 0 {
			t.Fatalf("%s: expected zero, got %+v", resp, r)
		}
	}
}

func TestImageMapHitTest(t *testing.T) {
	opts := raw(`{"imageUrl":"/img/heart.png","regions":[
		{"id":"aorta","shape":"circle","cx":100,"cy":100,"r":10},
		{"id":"valve","shape":"rect","x":10,"y":20,"width":30,"height":40},
		{"id":"blob","shape":"hexagon"}
	]}`)
	circle := grading.Q{Type: grading.TypeImageMap, Options: opts, CorrectAnswer: raw(`"aorta"`)}
	rect := grading.Q{Type: grading.TypeImageMap, Options: opts, CorrectAnswer: raw(`"valve"`)}

	cases := []struct {
		name string
		q    grading.Q
		resp string
		hit  bool
	}{
		{"circle center", circle, `{"x":100,"y":100}`, true},
		{"circle edge", circle, `{"x":110,"y":100}`, true},
		{"circle outside", circle, `{"x":108,"y":108}`, false},
		{"rect inside", rect, `{"x":20,"y":30}`, true},
		{"rect corner inclusive", rect, `{"x":40,"y":60}`, true},
		{"rect outside", rect, `{"x":41,"y":30}`, false},
		{"missing y", rect, `{"x":20}`, false},
		{"unknown shape", grading.Q{Type: grading.TypeImageMap, Options: opts, CorrectAnswer: raw(`"blob"`)}, `{"x":0,"y":0}`, false},
		{"unknown region", grading.Q{Type: grading.TypeImageMap, Options: opts, CorrectAnswer: raw(`"nope"`)}, `{"x":100,"y":100}`, false},
		{"no options", grading.Q{Type: grading.TypeImageMap, CorrectAnswer: raw(`"aorta"`)}, `{"x":100,"y":100}`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := grade(t, tc.q, tc.resp)
			if r.Correct != tc.hit {
				t.Fatalf("got %+v want hit=%v", r, tc.hit)
			}
		})
	}
}

func TestSliderTolerance(t *testing.T) {
	q := grading.Q{Type: grading.TypeSlider, CorrectAnswer: raw(`{"value":50,"tolerance":5}`)}
	if r := grade(t, q, `54`); !r.Correct || r.Score != 1 {
		t.Fatalf("54 should pass, got %+v", r)
	}
	if r := grade(t, q, `56`); r.Correct || r.Score != 0 {
		t.Fatalf("56 should fail, got %+v", r)
	}
	if r := grade(t, q, `"45"`); !r.Correct {
		t.Fatalf("numeric string on the boundary should pass, got %+v", r)
	}

	exact := grading.Q{Type: grading.TypeSlider, CorrectAnswer: raw(`{"value":7}`)}
	if r := grade(t, exact, `7`); !r.Correct {
		t.Fatalf("exact value should pass, got %+v", r)
	}
	if r := grade(t, exact, `7.01`); r.Correct {
		t.Fatalf("default tolerance is zero, got %+v", r)
	}
}

func TestBadAnswerKeyAndUnknownType(t *testing.T) {
	g := grading.NewDefaultGrader()
	if _, err := g.Grade(grading.Q{Type: "ESSAY"}, raw(`"x"`)); !errors.Is(err, grading.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	if _, err := g.Grade(grading.Q{Type: grading.TypeMCMulti, CorrectAnswer: raw(`[]`)}, raw(`["a"]`)); err == nil {
		t.Fatal("expected error for empty answer key")
	}
	if _, err := g.Grade(grading.Q{Type: grading.TypeSlider, CorrectAnswer: raw(`{}`)}, raw(`1`)); err == nil {
		t.Fatal("expected error for slider key without value")
	}
}
