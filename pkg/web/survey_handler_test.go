package web

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"patientsurvey/pkg/auth"
	"patientsurvey/pkg/config"
	"patientsurvey/pkg/identity"
	"patientsurvey/pkg/state"
	"patientsurvey/pkg/storage/memstore"
	"patientsurvey/pkg/survey"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testClient struct {
	t        *testing.T
	router   *gin.Engine
	store    *memstore.Store
	sessions *state.Store
	cookies  map[string]*http.Cookie
}

func testDeps(t *testing.T) Deps {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret-pass"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	return Deps{
		Survey:    config.DefaultSurvey(),
		Store:     memstore.New(0),
		Extractor: identity.NewExtractor(16),
		Sessions:  state.NewStore(),
		Auth: auth.NewService(config.AdminConfig{
			Email:        "admin@example.com",
			PasswordHash: string(hash),
			JWTSecret:    "test-secret",
			SessionTTL:   time.Hour,
		}),
		SubmitTimeout: time.Second,
	}
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	deps := testDeps(t)
	router, err := NewRouter(deps)
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	return &testClient{
		t:        t,
		router:   router,
		store:    deps.Store.(*memstore.Store),
		sessions: deps.Sessions,
		cookies:  make(map[string]*http.Cookie),
	}
}

func (tc *testClient) do(method, target string, body interface{}) (int, envelope) {
	tc.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			tc.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range tc.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	tc.router.ServeHTTP(rec, req)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(tc.cookies, c.Name)
			continue
		}
		tc.cookies[c.Name] = c
	}

	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		tc.t.Fatalf("%s %s: invalid JSON body %q: %v", method, target, rec.Body.String(), err)
	}
	return rec.Code, env
}

func (tc *testClient) snapshot(env envelope) survey.Snapshot {
	tc.t.Helper()
	var snap survey.Snapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		tc.t.Fatalf("invalid snapshot %s: %v", env.Data, err)
	}
	return snap
}

func surveyURL(name, phone, dept, date string) string {
	v := url.Values{}
	v.Set("name", name)
	v.Set("phone", phone)
	v.Set("dept", dept)
	v.Set("date", date)
	return "/api/survey?" + v.Encode()
}

func validSurveyURL() string {
	return surveyURL("홍길동", "010-1234-5678", "내과", "2024-01-15")
}

func (tc *testClient) answerAll() {
	tc.t.Helper()
	for i := 0; i < config.QuestionCount; i++ {
		status, env := tc.do(http.MethodPost, "/api/survey/answer", gin.H{"questionId": config.QuestionID(i), "value": 4})
		if status != http.StatusOK {
			tc.t.Fatalf("answer q%d: status %d (%s)", i+1, status, env.Error)
		}
		if i < survey.LastStep {
			if status, env := tc.do(http.MethodPost, "/api/survey/next", nil); status != http.StatusOK {
				tc.t.Fatalf("next from q%d: status %d (%s)", i+1, status, env.Error)
			}
		}
	}
}

func TestOpenValidLinkStartsSurvey(t *testing.T) {
	tc := newTestClient(t)

	status, env := tc.do(http.MethodGet, validSurveyURL(), nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", status, env.Error)
	}
	snap := tc.snapshot(env)
	if snap.State != survey.StateInProgress || snap.Step != 0 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Question == nil || snap.Question.ID != "q1" || len(snap.Question.Options) != 5 {
		t.Fatalf("unexpected question: %+v", snap.Question)
	}
	if snap.Patient == nil || snap.Patient.Name != "홍길동" {
		t.Fatalf("unexpected patient: %+v", snap.Patient)
	}
	if tc.cookies[SurveyCookie] == nil {
		t.Fatalf("expected %s cookie to be set", SurveyCookie)
	}
}

func TestOpenInvalidLinkIsRejected(t *testing.T) {
	tc := newTestClient(t)

	status, env := tc.do(http.MethodGet, surveyURL("홍길동", "123", "내과", "2024-01-15"), nil)
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", status)
	}
	if env.Code != "invalid_access" || env.Error != survey.InvalidAccessMessage {
		t.Fatalf("unexpected envelope: %+v", env)
	}
	snap := tc.snapshot(env)
	if snap.State != survey.StateInvalidAccess || len(snap.Errors) != 1 || snap.Errors[0].Code != "invalid:phone" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	status, env = tc.do(http.MethodPost, "/api/survey/answer", gin.H{"questionId": "q1", "value": 3})
	if status != http.StatusConflict || env.Code != "invalid_access" {
		t.Fatalf("expected 409 invalid_access, got %d %q", status, env.Code)
	}
}

func TestStateWithoutSession(t *testing.T) {
	tc := newTestClient(t)
	if status, _ := tc.do(http.MethodGet, "/api/survey/state", nil); status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
	if status, _ := tc.do(http.MethodPost, "/api/survey/submit", nil); status != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", status)
	}
}

func TestReloadResumesSameFlow(t *testing.T) {
	tc := newTestClient(t)
	tc.do(http.MethodGet, validSurveyURL(), nil)
	tc.do(http.MethodPost, "/api/survey/answer", gin.H{"questionId": "q1", "value": 5})
	tc.do(http.MethodPost, "/api/survey/next", nil)

	status, env := tc.do(http.MethodGet, validSurveyURL(), nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	snap := tc.snapshot(env)
	if snap.Step != 1 || snap.Answers["q1"] != 5 {
		t.Fatalf("expected resumed flow at step 1, got %+v", snap)
	}
	if tc.sessions.Len() != 1 {
		t.Fatalf("expected one session, got %d", tc.sessions.Len())
	}

	status, env = tc.do(http.MethodGet, surveyURL("김철수", "010-9876-5432", "외과", "2024-02-01"), nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	snap = tc.snapshot(env)
	if snap.Step != 0 || len(snap.Answers) != 0 || snap.Patient.Name != "김철수" {
		t.Fatalf("expected a fresh flow for a new link, got %+v", snap)
	}
}

func TestOpenReplacesUnknownSessionCookie(t *testing.T) {
	tc := newTestClient(t)
	tc.cookies[SurveyCookie] = &http.Cookie{Name: SurveyCookie, Value: "chosen-by-client"}

	status, _ := tc.do(http.MethodGet, validSurveyURL(), nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	issued := tc.cookies[SurveyCookie]
	if issued == nil || issued.Value == "chosen-by-client" {
		t.Fatalf("expected a server generated session cookie, got %+v", issued)
	}
	if _, ok := tc.sessions.Get("chosen-by-client"); ok {
		t.Fatalf("client supplied session id must not be adopted")
	}
	if _, ok := tc.sessions.Get(issued.Value); !ok {
		t.Fatalf("expected issued session %q to exist", issued.Value)
	}
}

func TestNavigationRejections(t *testing.T) {
	tc := newTestClient(t)
	tc.do(http.MethodGet, validSurveyURL(), nil)

	status, env := tc.do(http.MethodPost, "/api/survey/next", nil)
	if status != http.StatusConflict || env.Code != "unanswered" {
		t.Fatalf("expected 409 unanswered, got %d %q", status, env.Code)
	}
	status, env = tc.do(http.MethodPost, "/api/survey/previous", nil)
	if status != http.StatusConflict || env.Code != "at_first_step" {
		t.Fatalf("expected 409 at_first_step, got %d %q", status, env.Code)
	}
	status, env = tc.do(http.MethodPost, "/api/survey/submit", nil)
	if status != http.StatusConflict || env.Code != "submit_not_allowed" {
		t.Fatalf("expected 409 submit_not_allowed, got %d %q", status, env.Code)
	}
	status, env = tc.do(http.MethodPost, "/api/survey/answer", gin.H{"questionId": "q42", "value": 3})
	if status != http.StatusConflict || env.Code != "unknown_question" {
		t.Fatalf("expected 409 unknown_question, got %d %q", status, env.Code)
	}
	if snap := tc.snapshot(env); snap.State != survey.StateInProgress {
		t.Fatalf("rejection must carry the current snapshot, got %+v", snap)
	}
}

func TestAnswerOnlyForCurrentQuestion(t *testing.T) {
	tc := newTestClient(t)
	tc.do(http.MethodGet, validSurveyURL(), nil)

	status, env := tc.do(http.MethodPost, "/api/survey/answer", gin.H{"questionId": "q5", "value": 4})
	if status != http.StatusConflict || env.Code != "not_current_question" {
		t.Fatalf("expected 409 not_current_question, got %d %q", status, env.Code)
	}
	snap := tc.snapshot(env)
	if snap.Step != 0 || len(snap.Answers) != 0 {
		t.Fatalf("rejected answer must not change the flow, got %+v", snap)
	}

	status, env = tc.do(http.MethodPost, "/api/survey/answer", gin.H{"questionId": "q1", "value": 4})
	if status != http.StatusOK || tc.snapshot(env).Answers["q1"] != 4 {
		t.Fatalf("expected current question to be accepted, got %d %s", status, env.Data)
	}
}

func TestAnswerBindingValidation(t *testing.T) {
	tc := newTestClient(t)
	tc.do(http.MethodGet, validSurveyURL(), nil)

	for _, body := range []gin.H{
		{"questionId": "q1", "value": 6},
		{"questionId": "q1", "value": 0},
		{"value": 3},
	} {
		status, env := tc.do(http.MethodPost, "/api/survey/answer", body)
		if status != http.StatusBadRequest {
			t.Fatalf("%v: expected 400, got %d", body, status)
		}
		if env.Error == "" {
			t.Fatalf("%v: expected an error message", body)
		}
	}
}

func TestCompleteSurveyAndSubmit(t *testing.T) {
	tc := newTestClient(t)
	tc.do(http.MethodGet, validSurveyURL(), nil)
	tc.answerAll()

	status, env := tc.do(http.MethodPost, "/api/survey/next", nil)
	if status != http.StatusConflict || env.Code != "at_last_step" {
		t.Fatalf("expected 409 at_last_step, got %d %q", status, env.Code)
	}

	status, env = tc.do(http.MethodPost, "/api/survey/submit", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", status, env.Error)
	}
	snap := tc.snapshot(env)
	if snap.State != survey.StateSubmitted || snap.ResponseID == "" || snap.SubmittedAt == "" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if tc.store.Len() != 1 {
		t.Fatalf("expected one stored response, got %d", tc.store.Len())
	}

	status, env = tc.do(http.MethodPost, "/api/survey/submit", nil)
	if status != http.StatusConflict || env.Code != "submit_not_allowed" {
		t.Fatalf("expected 409 submit_not_allowed after success, got %d %q", status, env.Code)
	}
	if tc.store.Len() != 1 {
		t.Fatalf("expected no second insert, got %d", tc.store.Len())
	}
}

func TestSubmitFailureThenRetry(t *testing.T) {
	tc := newTestClient(t)
	tc.do(http.MethodGet, validSurveyURL(), nil)
	tc.answerAll()

	tc.store.Fail(errors.New("connection refused"))
	status, env := tc.do(http.MethodPost, "/api/survey/submit", nil)
	if status != http.StatusBadGateway || env.Code != "submission_failed" {
		t.Fatalf("expected 502 submission_failed, got %d %q", status, env.Code)
	}
	if env.Error != survey.SubmitErrorMessage {
		t.Fatalf("expected generic message, got %q", env.Error)
	}
	snap := tc.snapshot(env)
	if snap.State != survey.StateSubmissionFailed || len(snap.Answers) != config.QuestionCount || !snap.CanSubmit {
		t.Fatalf("answers must survive a failed submit: %+v", snap)
	}
	status, env = tc.do(http.MethodPost, "/api/survey/answer", gin.H{"questionId": "q9", "value": 1})
	if status != http.StatusConflict || env.Code != "not_in_progress" {
		t.Fatalf("expected answers to be frozen after a failed submit, got %d %q", status, env.Code)
	}

	status, env = tc.do(http.MethodPost, "/api/survey/submit", nil)
	if status != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d (%s)", status, env.Error)
	}
	if tc.store.Len() != 1 {
		t.Fatalf("expected one stored response, got %d", tc.store.Len())
	}
}

func TestDefinitionAndHealth(t *testing.T) {
	tc := newTestClient(t)

	status, env := tc.do(http.MethodGet, "/api/survey/definition", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	var def config.SurveyDefinition
	if err := json.Unmarshal(env.Data, &def); err != nil {
		t.Fatalf("invalid definition: %v", err)
	}
	if len(def.Questions) != config.QuestionCount || len(def.Options) != 5 {
		t.Fatalf("unexpected definition: %+v", def)
	}

	rec := httptest.NewRecorder()
	tc.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected health 200, got %d", rec.Code)
	}
}

func TestNewRouterRejectsMissingDeps(t *testing.T) {
	if _, err := NewRouter(Deps{}); err == nil {
		t.Fatalf("expected error for empty deps")
	}
}

func TestFlowErrorCodeWrapped(t *testing.T) {
	err := errors.Join(errors.New("context"), survey.ErrUnanswered)
	if got := flowErrorCode(err); got != "unanswered" {
		t.Fatalf("expected unanswered, got %q", got)
	}
	if got := flowErrorCode(errors.New("other")); got != "" {
		t.Fatalf("expected no code, got %q", got)
	}
}
