package quiz

import (
	"encoding/json"
	"log/slog"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

func questionIndex(b Bank) map[string]Question {
	m := make(map[string]Question, len(b.Questions))
	for _, q := range b.Questions {
		m[q.ID] = q
	}
	return m
}

// learnerQuestions renders the attempt's questions in its persisted order,
// with option lists replayed from the persisted option order.
func learnerQuestions(b Bank, a Attempt, log *slog.Logger) []LearnerQuestion {
	idx := questionIndex(b)
	out := make([]LearnerQuestion, 0, len(a.QuestionOrder))
	for _, id := range a.QuestionOrder {
		q, ok := idx[id]
		if !ok {
			log.Warn("attempt references a question no longer in the bank", "attempt_id", a.ID, "question_id", id)
			continue
		}
		lq := LearnerQuestion{ID: q.ID, Type: q.Type, Prompt: q.Prompt, MediaURL: q.MediaURL}
		opts, err := learnerOptions(q, a.OptionOrder[q.ID])
		if err != nil {
			log.Warn("dropping unreadable question options", "question_id", q.ID, "error", err)
		}
		lq.Options = opts
		out = append(out, lq)
	}
	return out
}

func learnerOptions(q Question, order []string) (json.RawMessage, error) {
	switch {
	case hasChoiceOptions(q.Type):
		choices, err := decodeChoices(q.Options)
		if err != nil {
			return nil, err
		}
		return json.Marshal(orderChoices(choices, order))
	case q.Type == grading.TypeImageMap:
		// region geometry would give the answer away
		var opts grading.ImageMapOptions
		if len(q.Options) > 0 {
			if err := json.Unmarshal(q.Options, &opts); err != nil {
				return nil, err
			}
		}
		return json.Marshal(struct {
			ImageURL string `json:"imageUrl,omitempty"`
		}{opts.ImageURL})
	default:
		return q.Options, nil
	}
}

// orderChoices lays choices out in the stored order. Choices added to the
// bank after the attempt started follow in bank order.
func orderChoices(choices []Choice, order []string) []Choice {
	byID := make(map[string]Choice, len(choices))
	for _, c := range choices {
		byID[c.ID] = c
	}
	out := make([]Choice, 0, len(choices))
	used := make(map[string]bool, len(order))
	for _, id := range order {
		if c, ok := byID[id]; ok && !used[id] {
			out = append(out, c)
			used[id] = true
		}
	}
	for _, c := range choices {
		if !used[c.ID] {
			out = append(out, c)
		}
	}
	return out
}

// filterResponses keeps only answers for questions in the attempt.
func filterResponses(order []string, in map[string]json.RawMessage) map[string]json.RawMessage {
	allowed := make(map[string]struct{}, len(order))
	for _, id := range order {
		allowed[id] = struct{}{}
	}
	out := make(map[string]json.RawMessage, len(in))
	for k, v := range in {
		if _, ok := allowed[k]; ok {
			out[k] = v
		}
	}
	return out
}

// withFeedback decides how much per-question detail a result carries.
func withFeedback(timing FeedbackTiming, results []QuestionResult) []QuestionResult {
	if timing == FeedbackNone {
		return nil
	}
	return results
}
