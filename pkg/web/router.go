// Package web exposes the survey and the admin listing over HTTP.
package web

import (
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"patientsurvey/pkg/auth"
	"patientsurvey/pkg/config"
	"patientsurvey/pkg/identity"
	"patientsurvey/pkg/state"
	"patientsurvey/pkg/storage"
	"patientsurvey/pkg/survey"
)

// Cookie names.
const (
	SurveyCookie = "survey_session"
	AdminCookie  = "admin_session"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Survey    *config.SurveyDefinition
	Store     storage.Store
	Extractor *identity.Extractor
	Sessions  *state.Store
	Auth      *auth.Service
	// Notifier is optional.
	Notifier      survey.Notifier
	SubmitTimeout time.Duration

	AllowedOrigins []string
	SecureCookies  bool
}

func (d Deps) validate() error {
	switch {
	case d.Survey == nil:
		return fmt.Errorf("web: survey definition is nil")
	case d.Store == nil:
		return fmt.Errorf("web: store is nil")
	case d.Extractor == nil:
		return fmt.Errorf("web: identity extractor is nil")
	case d.Sessions == nil:
		return fmt.Errorf("web: session store is nil")
	case d.Auth == nil:
		return fmt.Errorf("web: auth service is nil")
	}
	return nil
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d Deps) (*gin.Engine, error) {
	if err := d.validate(); err != nil {
		return nil, err
	}
	useJSONFieldNames()

	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())
	if len(d.AllowedOrigins) > 0 {
		corsMiddleware, err := newCORS(d.AllowedOrigins)
		if err != nil {
			return nil, err
		}
		router.Use(corsMiddleware)
	}

	surveyHandler := NewSurveyHandler(d)
	adminHandler := NewAdminHandler(d)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		surveyRoutes := api.Group("/survey")
		{
			surveyRoutes.GET("", surveyHandler.Open)
			surveyRoutes.GET("/state", surveyHandler.State)
			surveyRoutes.GET("/definition", surveyHandler.Definition)
			surveyRoutes.POST("/answer", surveyHandler.Answer)
			surveyRoutes.POST("/next", surveyHandler.Next)
			surveyRoutes.POST("/previous", surveyHandler.Previous)
			surveyRoutes.POST("/submit", surveyHandler.Submit)
		}

		adminRoutes := api.Group("/admin")
		{
			adminRoutes.POST("/login", adminHandler.Login)
			adminRoutes.POST("/logout", adminHandler.Logout)
			adminRoutes.GET("/session", adminHandler.Session)

			private := adminRoutes.Group("")
			private.Use(AdminAuthMiddleware(d.Auth))
			private.GET("/responses", adminHandler.Responses)
		}
	}

	return router, nil
}

// newCORS allows the listed origins to call the API with cookies. A "*" entry
// opens the API to every origin, but then no credentials are allowed.
func newCORS(origins []string) (gin.HandlerFunc, error) {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	if slices.Contains(origins, "*") {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = origins
		corsConfig.AllowCredentials = true
	}
	if err := corsConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid CORS configuration: %w", err)
	}
	return cors.New(corsConfig), nil
}
