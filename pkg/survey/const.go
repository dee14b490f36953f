package survey

const (
	StateAwaitingIdentity = "awaiting_identity"
	StateInvalidAccess    = "invalid_access"
	StateInProgress       = "in_progress"
	StateSubmitting       = "submitting"
	StateSubmitted        = "submitted"
	StateSubmissionFailed = "submission_failed"
)

const (
	EventIdentityRejected = "identity_rejected"
	EventIdentityAccepted = "identity_accepted"
	EventSubmit           = "submit"
	EventSubmitSucceeded  = "submit_succeeded"
	EventSubmitFailed     = "submit_failed"
)

// LastStep is the index of the final question.
const LastStep = 8

// SubmitErrorMessage is shown to the patient for any failed submission.
const SubmitErrorMessage = "설문 제출 중 오류가 발생했습니다. 다시 시도해주세요."

// InvalidAccessMessage is shown when the survey link carries a bad identity.
const InvalidAccessMessage = "잘못된 접근입니다"
