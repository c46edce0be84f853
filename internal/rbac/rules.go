package rbac

const (
	PermAttemptCreate  = "attempt:create"
	PermAttemptSave    = "attempt:save"
	PermAttemptSubmit  = "attempt:submit"
	PermAttemptViewOwn = "attempt:view-own"
	PermAttemptViewAll = "attempt:view-all"
	PermAuditView      = "audit:view"
)

// Default policy. Learners take quizzes; teachers also review them.
var RolePermissions = map[string][]string{
	"student": {
		PermAttemptCreate,
		PermAttemptSave,
		PermAttemptSubmit,
		PermAttemptViewOwn,
	},
	"teacher": {
		"attempt:*",
	},
	"admin": {
		"*", // everything
	},
}
