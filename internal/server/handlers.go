package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/studentos/studentos/internal/ai"
	"github.com/studentos/studentos/internal/email"
	"github.com/studentos/studentos/internal/identity"
	"github.com/studentos/studentos/internal/respcache"
	"github.com/studentos/studentos/internal/store"
)

// Upload constraints for resume documents.
const (
	maxUploadBytes = 10 << 20
	mimePDF        = "application/pdf"
	mimeDOCX       = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Handler owns the route business logic.
type Handler struct {
	ai      *ai.Service
	db      *store.DB
	cache   *respcache.Store
	emailer email.Sender
}

// NewHandler builds the route handler set.
func NewHandler(aiSvc *ai.Service, db *store.DB, cache *respcache.Store, emailer email.Sender) *Handler {
	return &Handler{ai: aiSvc, db: db, cache: cache, emailer: emailer}
}

// decodeJSON reads a JSON request body into dst, translating oversized
// bodies into 413 and malformed JSON into 400. Returns false after writing
// the error response.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if IsBodyTooLargeError(err) {
			WriteBodyTooLargeError(w)
			return false
		}
		WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be valid JSON")
		return false
	}
	return true
}

// writeAIError translates a classified upstream failure into the response
// envelope. The classification message is user-facing; the raw error is
// only logged.
func writeAIError(w http.ResponseWriter, r *http.Request, err error, c ai.Classification) {
	zerolog.Ctx(r.Context()).Warn().
		Err(err).
		Str("kind", string(c.Kind)).
		Int("status", c.StatusCode).
		Msg("upstream ai call failed")

	errText := map[ai.Kind]string{
		ai.KindRateLimited:   "ai_rate_limit",
		ai.KindMisconfigured: "ai_unavailable",
		ai.KindSafetyBlocked: "ai_safety_block",
		ai.KindUnknown:       "ai_error",
	}[c.Kind]

	WriteError(w, c.StatusCode, errText, c.Message)
}

// persistATSScore records the analysis score on the user's profile.
// Failures are logged and swallowed: the analysis result is the primary
// value of the request and must still be returned.
func (h *Handler) persistATSScore(ctx context.Context, userID string, score int) {
	if h.db == nil || userID == "" {
		return
	}
	if err := h.db.UpsertATSScore(ctx, userID, score); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("failed to persist ats score")
	}
}

// profileFor fetches the user's profile for prompt enrichment, best effort.
func (h *Handler) profileFor(ctx context.Context, userID string) *store.Profile {
	if h.db == nil || userID == "" {
		return nil
	}
	p, err := h.db.GetProfile(ctx, userID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", userID).Msg("failed to load profile")
		}
		return nil
	}
	return p
}

// AnalyzeCV handles POST /api/ai/analyze-cv.
func (h *Handler) AnalyzeCV(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CVText         string `json:"cvText"`
		JobDescription string `json:"jobDescription"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CVText == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "CV text is required")
		return
	}

	analysis, err := h.ai.AnalyzeCV(r.Context(), req.CVText, req.JobDescription)
	if err != nil {
		writeAIError(w, r, err, ai.Classify(err))
		return
	}

	if id, ok := identity.FromRequest(r); ok {
		h.persistATSScore(r.Context(), id.ID, analysis.Score)
	}

	WriteJSON(w, http.StatusOK, analysis)
}

// CoverLetter handles POST /api/ai/cover-letter.
func (h *Handler) CoverLetter(w http.ResponseWriter, r *http.Request) {
	var req struct {
		JobTitle       string `json:"jobTitle"`
		Company        string `json:"company"`
		JobDescription string `json:"jobDescription"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.JobTitle == "" || req.Company == "" || req.JobDescription == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Job title, company, and description are required")
		return
	}

	input := ai.CoverLetterInput{
		JobTitle:       req.JobTitle,
		Company:        req.Company,
		JobDescription: req.JobDescription,
		ApplicantName:  "Applicant",
	}
	if id, ok := identity.FromRequest(r); ok {
		if profile := h.profileFor(r.Context(), id.ID); profile != nil {
			if profile.FullName != "" {
				input.ApplicantName = profile.FullName
			}
			input.Skills = profile.Skills()
			input.Experience = profile.Bio
		}
	}

	letter, err := h.ai.GenerateCoverLetter(r.Context(), input)
	if err != nil {
		writeAIError(w, r, err, ai.Classify(err))
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"coverLetter": letter})
}

// LearningPlan handles POST /api/ai/learning-plan.
func (h *Handler) LearningPlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Goal      string `json:"goal"`
		Timeframe string `json:"timeframe"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Goal == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Learning goal is required")
		return
	}
	if req.Timeframe == "" {
		req.Timeframe = "4 weeks"
	}

	var skills []string
	if id, ok := identity.FromRequest(r); ok {
		if profile := h.profileFor(r.Context(), id.ID); profile != nil {
			skills = profile.Skills()
		}
	}

	plan, err := h.ai.GenerateLearningPlan(r.Context(), req.Goal, skills, req.Timeframe)
	if err != nil {
		writeAIError(w, r, err, ai.Classify(err))
		return
	}

	WriteJSON(w, http.StatusOK, plan)
}

// PlagiarismCheck handles POST /api/ai/plagiarism-check.
func (h *Handler) PlagiarismCheck(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Text == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Text is required")
		return
	}

	report, err := h.ai.CheckPlagiarism(r.Context(), req.Text)
	if err != nil {
		writeAIError(w, r, err, ai.Classify(err))
		return
	}

	WriteJSON(w, http.StatusOK, report)
}

// UploadCV handles POST /api/ai/upload-cv: multipart resume upload,
// AI text extraction, then the same analysis as AnalyzeCV.
func (h *Handler) UploadCV(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		if IsBodyTooLargeError(err) {
			WriteBodyTooLargeError(w)
			return
		}
		WriteError(w, http.StatusBadRequest, "invalid_request", "Expected a multipart file upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "No file uploaded")
		return
	}
	defer func() { _ = file.Close() }()

	contentType := header.Header.Get("Content-Type")
	if !lo.Contains([]string{mimePDF, mimeDOCX}, contentType) {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Only PDF and DOCX files are allowed")
		return
	}

	raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Could not read uploaded file")
		return
	}
	if len(raw) > maxUploadBytes {
		WriteBodyTooLargeError(w)
		return
	}

	extracted, err := h.ai.ExtractDocumentText(r.Context(), contentType, base64.StdEncoding.EncodeToString(raw))
	if err != nil {
		writeAIError(w, r, err, ai.ClassifyDocument(err))
		return
	}

	jobDescription := r.FormValue("jobDescription")
	analysis, err := h.ai.AnalyzeCV(r.Context(), extracted, jobDescription)
	if err != nil {
		writeAIError(w, r, err, ai.Classify(err))
		return
	}

	if id, ok := identity.FromRequest(r); ok {
		h.persistATSScore(r.Context(), id.ID, analysis.Score)
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"extractedText": extracted,
		"analysis":      analysis,
	})
}

// GeneratePresentation handles POST /api/ai/generate-presentation.
func (h *Handler) GeneratePresentation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic      string `json:"topic"`
		SlideCount int    `json:"slideCount"`
		Style      string `json:"style"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Topic == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Presentation topic is required")
		return
	}

	deck, err := h.ai.GeneratePresentation(r.Context(), req.Topic, req.SlideCount, req.Style)
	if err != nil {
		writeAIError(w, r, err, ai.Classify(err))
		return
	}

	if id, ok := identity.FromRequest(r); ok {
		if profile := h.profileFor(r.Context(), id.ID); profile != nil {
			deck.Author = profile.FullName
		}
	}

	WriteJSON(w, http.StatusOK, deck)
}

// ListJobs handles GET /api/jobs.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	jobs, err := h.db.ListJobs(r.Context(), limit)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to list jobs")
		WriteError(w, http.StatusInternalServerError, "internal_error", "Could not load jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

// CreateJob handles POST /api/jobs. A new posting invalidates every cached
// jobs listing and notifies the poster, both best effort.
func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title       string `json:"title"`
		Company     string `json:"company"`
		Location    string `json:"location"`
		Description string `json:"description"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Title == "" || req.Company == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Title and company are required")
		return
	}

	job := &store.Job{
		Title:       req.Title,
		Company:     req.Company,
		Location:    req.Location,
		Description: req.Description,
	}
	if _, err := h.db.CreateJob(r.Context(), job); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to create job")
		WriteError(w, http.StatusInternalServerError, "internal_error", "Could not create job")
		return
	}

	if h.cache != nil {
		removed := h.cache.Invalidate("/api/jobs")
		zerolog.Ctx(r.Context()).Debug().Int("removed", removed).Msg("invalidated jobs cache")
	}

	h.notifyJobPosted(r, job)

	WriteJSON(w, http.StatusCreated, job)
}

// notifyJobPosted records a notification and sends a job alert email to the
// posting user. Failures are logged and swallowed.
func (h *Handler) notifyJobPosted(r *http.Request, job *store.Job) {
	id, ok := identity.FromRequest(r)
	if !ok {
		return
	}
	ctx := r.Context()

	if h.db != nil {
		_, err := h.db.CreateNotification(ctx, &store.Notification{
			UserID: id.ID,
			Kind:   "job_posted",
			Title:  "Job posted: " + job.Title,
			Body:   job.Title + " at " + job.Company + " is now live.",
		})
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to create job notification")
		}
	}

	if h.emailer != nil && id.Email != "" {
		if err := h.emailer.Send(ctx, email.JobAlert(id.Email, job.Title, job.Company)); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to send job alert email")
		}
	}
}

// ListScholarships handles GET /api/scholarships.
func (h *Handler) ListScholarships(w http.ResponseWriter, r *http.Request) {
	scholarships, err := h.db.ListScholarships(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to list scholarships")
		WriteError(w, http.StatusInternalServerError, "internal_error", "Could not load scholarships")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"scholarships": scholarships})
}

// ListNotifications handles GET /api/notifications.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromRequest(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "authentication_error", "Sign in to view notifications")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	notifications, err := h.db.ListNotifications(r.Context(), id.ID, limit)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to list notifications")
		WriteError(w, http.StatusInternalServerError, "internal_error", "Could not load notifications")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"notifications": notifications})
}

// MarkNotificationRead handles POST /api/notifications/{id}/read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, ok := identity.FromRequest(r)
	if !ok {
		WriteError(w, http.StatusUnauthorized, "authentication_error", "Sign in to manage notifications")
		return
	}

	notifID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", "Notification id must be numeric")
		return
	}

	if err := h.db.MarkNotificationRead(r.Context(), id.ID, notifID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			WriteError(w, http.StatusNotFound, "not_found", "Notification not found")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("failed to mark notification read")
		WriteError(w, http.StatusInternalServerError, "internal_error", "Could not update notification")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"read": true})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Health check write error is non-critical
	w.Write([]byte(`{"status":"ok"}`))
}
