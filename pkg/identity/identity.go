package identity

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Query parameter names carrying the patient identity.
const (
	ParamName       = "name"
	ParamPhone      = "phone"
	ParamDepartment = "dept"
	ParamDate       = "date"
)

const dateLayout = "2006-01-02"

var (
	nameRegex  = regexp.MustCompile(`^[가-힣a-zA-Z\s]{2,10}$`)
	phoneRegex = regexp.MustCompile(`^01[0-9]-?[0-9]{3,4}-?[0-9]{4}$`)
	dateRegex  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Departments is the closed list of recognised medical departments.
var Departments = []string{
	"내과", "외과", "정형외과", "신경외과", "산부인과", "소아과",
	"안과", "이비인후과", "피부과", "정신건강의학과", "재활의학과", "영상의학과",
	"병리과", "마취통증의학과", "응급의학과", "가정의학과", "치과", "한방과",
	"비뇨의학과", "성형외과", "흉부외과", "신경과",
}

var departmentSet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(Departments))
	for _, d := range Departments {
		set[d] = struct{}{}
	}
	return set
}()

// PatientInfo is a fully validated patient identity. It is only ever built
// when all four fields passed validation.
type PatientInfo struct {
	Name       string `json:"name"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
	VisitDate  string `json:"visitDate"`
}

// Result is the outcome of extracting a patient from query parameters.
// Exactly one of Patient and Errors is set.
type Result struct {
	Patient *PatientInfo
	Errors  ValidationErrors
}

// OK reports whether the parameters produced a valid patient.
func (r Result) OK() bool {
	return r.Patient != nil && len(r.Errors) == 0
}

// Extract validates the patient identity carried in params. Every violated rule
// is reported: presence checks for all fields first, then format checks for
// the fields that were present.
func Extract(params url.Values) Result {
	name := strings.TrimSpace(params.Get(ParamName))
	phone := strings.TrimSpace(params.Get(ParamPhone))
	dept := strings.TrimSpace(params.Get(ParamDepartment))
	date := strings.TrimSpace(params.Get(ParamDate))

	var errs ValidationErrors

	if name == "" {
		errs = append(errs, newValidationError(CodeRequired, FieldName))
	}
	if phone == "" {
		errs = append(errs, newValidationError(CodeRequired, FieldPhone))
	}
	if dept == "" {
		errs = append(errs, newValidationError(CodeRequired, FieldDepartment))
	}
	if date == "" {
		errs = append(errs, newValidationError(CodeRequired, FieldDate))
	}

	if name != "" && !validName(name) {
		errs = append(errs, newValidationError(CodeInvalid, FieldName))
	}
	if phone != "" && !validPhone(phone) {
		errs = append(errs, newValidationError(CodeInvalid, FieldPhone))
	}
	if dept != "" && !validDepartment(dept) {
		errs = append(errs, newValidationError(CodeInvalid, FieldDepartment))
	}
	if date != "" && !validDate(date) {
		errs = append(errs, newValidationError(CodeInvalid, FieldDate))
	}

	if len(errs) > 0 {
		return Result{Errors: errs}
	}
	return Result{Patient: &PatientInfo{
		Name:       name,
		Phone:      phone,
		Department: dept,
		VisitDate:  date,
	}}
}

func validName(name string) bool {
	return nameRegex.MatchString(name)
}

// validPhone keeps the separators independently optional, so 010-12345678
// passes alongside 010-1234-5678 and 01012345678.
func validPhone(phone string) bool {
	return phoneRegex.MatchString(strings.Join(strings.Fields(phone), ""))
}

func validDepartment(dept string) bool {
	_, ok := departmentSet[dept]
	return ok
}

func validDate(date string) bool {
	if !dateRegex.MatchString(date) {
		return false
	}
	_, err := time.Parse(dateLayout, date)
	return err == nil
}
