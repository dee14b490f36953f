package identity

import "strings"

// Validation error kinds.
const (
	CodeRequired = "required"
	CodeInvalid  = "invalid"
)

// Field names as they appear in error codes.
const (
	FieldName       = "name"
	FieldPhone      = "phone"
	FieldDepartment = "dept"
	FieldDate       = "date"
)

var messages = map[string]string{
	CodeRequired + ":" + FieldName:       "환자명이 누락되었습니다",
	CodeRequired + ":" + FieldPhone:      "전화번호가 누락되었습니다",
	CodeRequired + ":" + FieldDepartment: "진료과가 누락되었습니다",
	CodeRequired + ":" + FieldDate:       "진료일자가 누락되었습니다",
	CodeInvalid + ":" + FieldName:        "환자명 형식이 올바르지 않습니다 (2-10자의 한글/영문)",
	CodeInvalid + ":" + FieldPhone:       "전화번호 형식이 올바르지 않습니다 (예: 010-1234-5678)",
	CodeInvalid + ":" + FieldDepartment:  "올바르지 않은 진료과입니다",
	CodeInvalid + ":" + FieldDate:        "진료일자 형식이 올바르지 않습니다 (YYYY-MM-DD)",
}

// ValidationError describes one violated identity rule.
type ValidationError struct {
	Kind    string `json:"-"`
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newValidationError(kind, field string) ValidationError {
	code := kind + ":" + field
	return ValidationError{
		Kind:    kind,
		Field:   field,
		Code:    code,
		Message: messages[code],
	}
}

func (e ValidationError) Error() string {
	return e.Code
}

// ValidationErrors is the ordered list of every violated rule.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	return "identity validation failed: " + strings.Join(errs.Codes(), ", ")
}

// Codes returns the error codes in order, e.g. "required:dept".
func (errs ValidationErrors) Codes() []string {
	codes := make([]string, len(errs))
	for i, e := range errs {
		codes[i] = e.Code
	}
	return codes
}
