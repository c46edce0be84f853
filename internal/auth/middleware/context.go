package auth

import "context"

type subjectKey struct{}

// WithSubject stores the authenticated user id. Handlers pass it to the quiz
// service as the acting learner.
func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, subjectKey{}, sub)
}

func SubjectFromContext(ctx context.Context) string {
	s, _ := ctx.Value(subjectKey{}).(string)
	return s
}
