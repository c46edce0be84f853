package quiz

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// Selection is the presentation state of a new attempt.
type Selection struct {
	QuestionOrder []string
	OptionOrder   map[string][]string
}

// Selector draws the question subset of an attempt and fixes its option order.
// Randomness comes from crypto/rand so orderings cannot be predicted or
// replayed.
type Selector struct {
	intn func(n int) (int, error)
}

func NewSelector() *Selector {
	return &Selector{intn: cryptoIntn}
}

func cryptoIntn(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, fmt.Errorf("random source: %w", err)
	}
	return int(v.Int64()), nil
}

// Select runs once at attempt creation; the result is persisted and never
// recomputed.
func (s *Selector) Select(b Bank) (Selection, error) {
	if len(b.Questions) == 0 {
		return Selection{}, ErrNoQuestions
	}

	qs := make([]Question, len(b.Questions))
	copy(qs, b.Questions)
	if b.RandomQuestions {
		if err := shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] }, s.intn); err != nil {
			return Selection{}, err
		}
	}
	if b.QuestionCount > 0 && b.QuestionCount < len(qs) {
		qs = qs[:b.QuestionCount]
	}

	sel := Selection{
		QuestionOrder: make([]string, 0, len(qs)),
		OptionOrder:   map[string][]string{},
	}
	for _, q := range qs {
		sel.QuestionOrder = append(sel.QuestionOrder, q.ID)
		if !hasChoiceOptions(q.Type) {
			continue
		}
		choices, err := decodeChoices(q.Options)
		if err != nil {
			return Selection{}, fmt.Errorf("question %s: %w", q.ID, err)
		}
		ids := make([]string, len(choices))
		for i, c := range choices {
			ids[i] = c.ID
		}
		if b.RandomAnswers {
			if err := shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] }, s.intn); err != nil {
				return Selection{}, err
			}
		}
		sel.OptionOrder[q.ID] = ids
	}
	return sel, nil
}

// shuffle is Fisher-Yates over n elements.
func shuffle(n int, swap func(i, j int), intn func(int) (int, error)) error {
	for i := n - 1; i > 0; i-- {
		j, err := intn(i + 1)
		if err != nil {
			return err
		}
		swap(i, j)
	}
	return nil
}

// hasChoiceOptions lists the types whose options are an ordered list the
// learner picks from or reorders.
func hasChoiceOptions(typ string) bool {
	switch typ {
	case grading.TypeMCSingle, grading.TypeMCMulti, grading.TypeDragOrder:
		return true
	}
	return false
}

func decodeChoices(raw json.RawMessage) ([]Choice, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []Choice
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("options: %w", err)
	}
	return out, nil
}
