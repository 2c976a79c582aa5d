package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionExamsTake allows starting, answering and finishing exams.
	PermissionExamsTake Permission = "exams:take"

	// PermissionExamsRead allows viewing exam definitions including answer keys.
	PermissionExamsRead Permission = "exams:read"

	// PermissionExamsWriteOwn allows creating exams and editing own exams.
	PermissionExamsWriteOwn Permission = "exams:write_own"

	// PermissionExamsWriteAll allows editing any exam.
	PermissionExamsWriteAll Permission = "exams:write_all"

	// PermissionResultsReadOwn allows viewing results of own exams.
	PermissionResultsReadOwn Permission = "results:read_own"

	// PermissionResultsReadAll allows viewing results of any exam.
	PermissionResultsReadAll Permission = "results:read_all"

	// PermissionResultsApproveOwn allows approving results and rescoring own exams.
	PermissionResultsApproveOwn Permission = "results:approve_own"

	// PermissionResultsApproveAll allows approving results and rescoring any exam.
	PermissionResultsApproveAll Permission = "results:approve_all"
)

// AllPermissions is a slice of all available permissions.
var AllPermissions = []Permission{
	PermissionExamsTake,
	PermissionExamsRead,
	PermissionExamsWriteOwn,
	PermissionExamsWriteAll,
	PermissionResultsReadOwn,
	PermissionResultsReadAll,
	PermissionResultsApproveOwn,
	PermissionResultsApproveAll,
}
