package web

import (
	"errors"
	"log"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"patientsurvey/pkg/config"
	"patientsurvey/pkg/identity"
	"patientsurvey/pkg/state"
	"patientsurvey/pkg/storage"
	"patientsurvey/pkg/survey"
)

var identityParams = []string{
	identity.ParamName,
	identity.ParamPhone,
	identity.ParamDepartment,
	identity.ParamDate,
}

// flowErrorCodes maps rejected flow operations to stable API codes.
var flowErrorCodes = []struct {
	err  error
	code string
}{
	{survey.ErrUnanswered, "unanswered"},
	{survey.ErrAtLastStep, "at_last_step"},
	{survey.ErrAtFirstStep, "at_first_step"},
	{survey.ErrSubmitNotAllowed, "submit_not_allowed"},
	{survey.ErrSubmissionInFlight, "submission_in_flight"},
	{survey.ErrInvalidAccess, "invalid_access"},
	{survey.ErrInvalidValue, "invalid_value"},
	{survey.ErrUnknownQuestion, "unknown_question"},
	{survey.ErrNotCurrentQuestion, "not_current_question"},
	{survey.ErrNotStarted, "not_started"},
	{survey.ErrNotInProgress, "not_in_progress"},
}

// SurveyHandler serves the patient-facing survey.
type SurveyHandler struct {
	def       *config.SurveyDefinition
	store     storage.Store
	extractor *identity.Extractor
	sessions  *state.Store
	opts      survey.Options
	secure    bool
}

func NewSurveyHandler(d Deps) *SurveyHandler {
	return &SurveyHandler{
		def:       d.Survey,
		store:     d.Store,
		extractor: d.Extractor,
		sessions:  d.Sessions,
		opts: survey.Options{
			SubmitTimeout: d.SubmitTimeout,
			Notifier:      d.Notifier,
		},
		secure: d.SecureCookies,
	}
}

type answerRequest struct {
	QuestionID string `json:"questionId" binding:"required"`
	Value      int    `json:"value" binding:"required,min=1,max=5"`
}

// Open derives the patient identity from the link and starts or resumes the
// survey for this browser.
func (h *SurveyHandler) Open(c *gin.Context) {
	params := url.Values{}
	query := c.Request.URL.Query()
	for _, name := range identityParams {
		if v, ok := query[name]; ok {
			params[name] = v
		}
	}
	result := h.extractor.Extract(params)

	sessionID, _ := c.Cookie(SurveyCookie)
	session, created, err := h.sessions.GetOrCreate(sessionID, identity.Key(params), func() (*survey.Flow, error) {
		flow, err := survey.NewFlow(h.def, h.store, h.opts)
		if err != nil {
			return nil, err
		}
		if err := flow.Start(c.Request.Context(), result); err != nil {
			return nil, err
		}
		return flow, nil
	})
	if err != nil {
		log.Printf("[Open] Failed to open survey session: %v", err)
		InternalServerError(c, "Failed to start survey")
		return
	}
	if created || session.ID != sessionID {
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(SurveyCookie, session.ID, 0, "/", "", h.secure, true)
	}

	snap := session.Flow.Snapshot()
	if snap.State == survey.StateInvalidAccess {
		Reject(c, http.StatusBadRequest, "invalid_access", survey.InvalidAccessMessage, snap)
		return
	}
	Success(c, "Survey ready", snap)
}

// State returns the current snapshot of this browser's survey.
func (h *SurveyHandler) State(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	Success(c, "Survey state", session.Flow.Snapshot())
}

// Definition returns the questions and answer options.
func (h *SurveyHandler) Definition(c *gin.Context) {
	Success(c, "Survey definition", h.def)
}

func (h *SurveyHandler) Answer(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	var req answerRequest
	if !BindAndValidate(c, &req) {
		return
	}
	if err := session.Flow.SelectAnswer(req.QuestionID, req.Value); err != nil {
		h.fail(c, session, err)
		return
	}
	Success(c, "Answer recorded", session.Flow.Snapshot())
}

func (h *SurveyHandler) Next(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.Flow.Next(); err != nil {
		h.fail(c, session, err)
		return
	}
	Success(c, "Moved to next question", session.Flow.Snapshot())
}

func (h *SurveyHandler) Previous(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.Flow.Previous(); err != nil {
		h.fail(c, session, err)
		return
	}
	Success(c, "Moved to previous question", session.Flow.Snapshot())
}

// Submit stores the answers. A failed or timed out insert answers 502 and the
// survey may be submitted again.
func (h *SurveyHandler) Submit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	if err := session.Flow.Submit(c.Request.Context()); err != nil {
		h.fail(c, session, err)
		return
	}
	Success(c, "Survey submitted", session.Flow.Snapshot())
}

func (h *SurveyHandler) session(c *gin.Context) (*state.Session, bool) {
	id, err := c.Cookie(SurveyCookie)
	if err != nil || id == "" {
		NotFound(c, "No survey session")
		return nil, false
	}
	session, ok := h.sessions.Get(id)
	if !ok {
		NotFound(c, "No survey session")
		return nil, false
	}
	return session, true
}

func (h *SurveyHandler) fail(c *gin.Context, session *state.Session, err error) {
	var subErr *survey.SubmissionError
	if errors.As(err, &subErr) {
		code := "submission_failed"
		if subErr.Reason == survey.ReasonTimeout {
			code = "submission_timeout"
		}
		Reject(c, http.StatusBadGateway, code, subErr.Message(), session.Flow.Snapshot())
		return
	}
	if code := flowErrorCode(err); code != "" {
		Reject(c, http.StatusConflict, code, err.Error(), session.Flow.Snapshot())
		return
	}
	log.Printf("[fail] Unexpected survey error in session %s: %v", session.ID, err)
	InternalServerError(c, "Unexpected survey error")
}

func flowErrorCode(err error) string {
	for _, fe := range flowErrorCodes {
		if errors.Is(err, fe.err) {
			return fe.code
		}
	}
	return ""
}
