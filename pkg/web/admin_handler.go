package web

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"patientsurvey/pkg/auth"
	"patientsurvey/pkg/config"
	"patientsurvey/pkg/storage"
	"patientsurvey/pkg/survey"
)

const noAnswer = "-"

// AdminHandler serves the staff login and the response listing.
type AdminHandler struct {
	auth   *auth.Service
	store  storage.Store
	def    *config.SurveyDefinition
	secure bool
}

func NewAdminHandler(d Deps) *AdminHandler {
	return &AdminHandler{
		auth:   d.Auth,
		store:  d.Store,
		def:    d.Survey,
		secure: d.SecureCookies,
	}
}

type answerCell struct {
	QuestionID string `json:"questionId"`
	Label      string `json:"label"`
	Value      *int   `json:"value"`
	Text       string `json:"text"`
}

type responseRow struct {
	ID           string       `json:"id"`
	CreatedAt    string       `json:"createdAt"`
	PatientName  string       `json:"patientName"`
	PatientPhone string       `json:"patientPhone"`
	Department   string       `json:"department"`
	VisitDate    string       `json:"visitDate"`
	Answers      []answerCell `json:"answers"`
}

// Login verifies the admin credentials and sets the session cookie.
func (h *AdminHandler) Login(c *gin.Context) {
	var creds auth.Credentials
	if !BindAndValidate(c, &creds) {
		return
	}

	session, token, err := h.auth.Login(c.Request.Context(), creds)
	switch {
	case errors.Is(err, auth.ErrNotConfigured):
		ServiceUnavailable(c, auth.NotConfiguredMessage)
		return
	case errors.Is(err, auth.ErrInvalidCredentials):
		Unauthorized(c, auth.LoginFailedMessage)
		return
	case err != nil:
		log.Printf("[Login] Unexpected login error: %v", err)
		InternalServerError(c, auth.LoginFailedMessage)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AdminCookie, token, int(h.auth.TTL().Seconds()), "/", "", h.secure, true)
	Success(c, "Login successful", gin.H{
		"session": session,
		"token":   token,
	})
}

// Logout clears the admin cookie.
func (h *AdminHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(AdminCookie, "", -1, "/", "", h.secure, true)
	Success(c, "Logged out", nil)
}

// Session reports the current admin session.
func (h *AdminHandler) Session(c *gin.Context) {
	session, ok := h.auth.CurrentSession(adminToken(c))
	if !ok {
		Unauthorized(c, "No admin session")
		return
	}
	Success(c, "Admin session", session)
}

// Responses lists stored responses, newest first.
func (h *AdminHandler) Responses(c *gin.Context) {
	filter := storage.ListFilter{Search: c.Query("search")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			BadRequest(c, "limit must be a positive integer")
			return
		}
		filter.Limit = limit
	}

	responses, err := h.store.List(c.Request.Context(), filter.Normalized())
	if err != nil {
		log.Printf("[Responses] Failed to list responses: %v", err)
		InternalServerError(c, "Failed to load responses")
		return
	}

	rows := make([]responseRow, 0, len(responses))
	for _, resp := range responses {
		rows = append(rows, h.row(resp))
	}
	Success(c, "Responses retrieved", rows)
}

func (h *AdminHandler) row(resp storage.SurveyResponse) responseRow {
	row := responseRow{
		ID:           resp.ID,
		CreatedAt:    survey.FormatKST(resp.CreatedAt),
		PatientName:  resp.PatientName,
		PatientPhone: resp.PatientPhone,
		Department:   resp.Department,
		VisitDate:    resp.VisitDate,
		Answers:      make([]answerCell, 0, len(resp.Answers)),
	}
	for i, a := range resp.Answers {
		cell := answerCell{
			QuestionID: config.QuestionID(i),
			Label:      config.QuestionID(i),
			Text:       noAnswer,
		}
		if i < len(h.def.Questions) {
			cell.Label = h.def.Questions[i].Label
		}
		if a != nil {
			v := *a
			cell.Value = &v
			cell.Text = h.def.OptionLabel(v)
		}
		row.Answers = append(row.Answers, cell)
	}
	return row
}
