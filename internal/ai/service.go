package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
)

// CVAnalysis is the ATS compatibility report for a resume.
// The legacy fields mirror the original response shape consumed by older
// frontend builds and are always derived from the primary fields.
type CVAnalysis struct {
	Score           int      `json:"score"`
	MissingKeywords []string `json:"missing_keywords"`
	Weaknesses      []string `json:"weaknesses"`
	ActionableFixes []string `json:"actionable_fixes"`

	Feedback    []string    `json:"feedback,omitempty"`
	Suggestions []string    `json:"suggestions,omitempty"`
	Keywords    *KeywordSet `json:"keywords,omitempty"`
}

// KeywordSet splits keywords into found and missing buckets.
type KeywordSet struct {
	Found   []string `json:"found"`
	Missing []string `json:"missing"`
}

// CoverLetterInput collects everything the cover letter prompt needs.
type CoverLetterInput struct {
	JobTitle       string
	Company        string
	JobDescription string
	ApplicantName  string
	Skills         []string
	Experience     string
}

// LearningPlan is a week-by-week study schedule toward a goal.
type LearningPlan struct {
	Title      string             `json:"title"`
	Weeks      []LearningPlanWeek `json:"weeks"`
	Milestones []string           `json:"milestones"`
}

// LearningPlanWeek is one week of a learning plan.
type LearningPlanWeek struct {
	Week      int      `json:"week"`
	Topics    []string `json:"topics"`
	Resources []string `json:"resources"`
}

// PlagiarismReport is a writing-pattern originality analysis.
type PlagiarismReport struct {
	Score       int      `json:"score"`
	Analysis    string   `json:"analysis"`
	Suggestions []string `json:"suggestions"`
}

// Presentation is a generated slide deck outline.
type Presentation struct {
	Title  string              `json:"title"`
	Author string              `json:"author"`
	Slides []PresentationSlide `json:"slides"`
	Theme  PresentationTheme   `json:"theme"`
}

// PresentationSlide is one slide of a presentation outline.
type PresentationSlide struct {
	SlideNumber  int      `json:"slideNumber"`
	Title        string   `json:"title"`
	BulletPoints []string `json:"bulletPoints"`
	Notes        string   `json:"notes,omitempty"`
}

// PresentationTheme carries the deck color scheme.
type PresentationTheme struct {
	PrimaryColor string `json:"primaryColor"`
	AccentColor  string `json:"accentColor"`
}

// Service implements the student-facing generation operations on top of a
// model client. All methods return classified errors via the Classify
// functions at the call site; Service itself surfaces raw client errors.
type Service struct {
	client Client
	logger zerolog.Logger
}

// NewService builds a Service. client may come from NewGeminiClient or a
// test double.
func NewService(client Client, logger zerolog.Logger) *Service {
	return &Service{client: client, logger: logger}
}

// Resume text carries punctuation that trips content filters. Keep word
// characters, whitespace, and common resume punctuation; drop the rest.
var (
	cvUnsafeChars = regexp.MustCompile(`[^\w\s@.,\-():/+#&'"\n]`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	jsonFence     = regexp.MustCompile("```(?:json)?\n?")
)

func sanitizeCV(text string) string {
	cleaned := cvUnsafeChars.ReplaceAllString(text, " ")
	cleaned = whitespaceRun.ReplaceAllString(cleaned, " ")
	return strings.TrimSpace(cleaned)
}

// cleanModelJSON strips markdown code fences the model sometimes wraps
// around JSON output despite instructions not to.
func cleanModelJSON(text string) string {
	return strings.TrimSpace(jsonFence.ReplaceAllString(text, ""))
}

// AnalyzeCV scores a resume for ATS compatibility. A safety-filtered call
// (zero candidates) or an unparseable model response degrades to a neutral
// placeholder report instead of failing the request.
func (s *Service) AnalyzeCV(ctx context.Context, cvText, jobDescription string) (*CVAnalysis, error) {
	target := "Provide general job market analysis."
	if jobDescription != "" {
		target = "TARGET JOB: " + jobDescription
	}

	prompt := fmt.Sprintf(`You are a professional career advisor and ATS (Applicant Tracking System) expert.

TASK: Analyze the following professional resume/CV document for ATS compatibility and provide improvement suggestions.

%s

---BEGIN RESUME---
%s
---END RESUME---

Respond with a JSON object containing:
{
  "score": <number 0-100>,
  "missing_keywords": ["keyword1", "keyword2"],
  "weaknesses": ["weakness1", "weakness2"],
  "actionable_fixes": ["fix1", "fix2"]
}

Return ONLY valid JSON. No markdown formatting.`, target, sanitizeCV(cvText))

	result, err := s.client.GenerateContent(ctx, Request{
		Parts:                []Part{TextPart(prompt)},
		Temperature:          0.3,
		MaxOutputTokens:      2048,
		DisableSafetyFilters: true,
	})
	if err != nil {
		return nil, err
	}

	if len(result.Candidates) == 0 {
		s.logger.Warn().Msg("cv analysis returned no candidates, likely content filter")
		return degradedAnalysis(
			"Analysis could not be completed",
			"Please try again with a simplified version of your CV",
		), nil
	}

	cleaned := cleanModelJSON(result.Text())
	if !gjson.Valid(cleaned) {
		s.logger.Warn().Msg("cv analysis response was not valid json")
		return degradedAnalysis(
			"Unable to parse AI response",
			"Please try again with a clearer CV format",
		), nil
	}

	parsed := gjson.Parse(cleaned)
	analysis := &CVAnalysis{
		Score:           50,
		MissingKeywords: stringSlice(parsed.Get("missing_keywords")),
		Weaknesses:      stringSlice(parsed.Get("weaknesses")),
		ActionableFixes: stringSlice(parsed.Get("actionable_fixes")),
	}
	if score := parsed.Get("score"); score.Exists() {
		analysis.Score = int(score.Int())
	}

	analysis.Feedback = analysis.Weaknesses
	analysis.Suggestions = analysis.ActionableFixes
	analysis.Keywords = &KeywordSet{Found: []string{}, Missing: analysis.MissingKeywords}

	return analysis, nil
}

func degradedAnalysis(weakness, fix string) *CVAnalysis {
	return &CVAnalysis{
		Score:           50,
		MissingKeywords: []string{},
		Weaknesses:      []string{weakness},
		ActionableFixes: []string{fix},
		Feedback:        []string{weakness},
		Suggestions:     []string{fix},
		Keywords:        &KeywordSet{Found: []string{}, Missing: []string{}},
	}
}

func stringSlice(arr gjson.Result) []string {
	out := []string{}
	arr.ForEach(func(_, v gjson.Result) bool {
		out = append(out, v.String())
		return true
	})
	return out
}

// GenerateCoverLetter writes a cover letter for a job application.
func (s *Service) GenerateCoverLetter(ctx context.Context, in CoverLetterInput) (string, error) {
	var applicant strings.Builder
	fmt.Fprintf(&applicant, "Name: %s\nSkills: %s\n", in.ApplicantName, strings.Join(in.Skills, ", "))
	if in.Experience != "" {
		fmt.Fprintf(&applicant, "Experience: %s\n", in.Experience)
	}

	prompt := fmt.Sprintf(`Write a professional cover letter for this job application:

Position: %s
Company: %s
Job Description: %s

Applicant:
%s
Write a compelling, personalized cover letter that:
1. Shows enthusiasm for the role
2. Highlights relevant skills
3. Is professional but not generic
4. Is approximately 300-400 words`, in.JobTitle, in.Company, in.JobDescription, applicant.String())

	result, err := s.client.GenerateContent(ctx, Request{Parts: []Part{TextPart(prompt)}})
	if err != nil {
		return "", err
	}
	if len(result.Candidates) == 0 {
		return "", ErrNoCandidates
	}
	return result.Text(), nil
}

// GenerateLearningPlan builds a weekly study plan toward a goal.
// An unparseable model response degrades to an empty plan.
func (s *Service) GenerateLearningPlan(ctx context.Context, goal string, currentSkills []string, timeframe string) (*LearningPlan, error) {
	prompt := fmt.Sprintf(`Create a personalized learning plan:

Goal: %s
Current Skills: %s
Timeframe: %s

Provide a JSON response with:
1. "title": A title for the learning plan
2. "weeks": Array of weekly plans with "week" number, "topics" array, and "resources" array (links or book names)
3. "milestones": Key milestones to achieve

Respond ONLY with valid JSON, no markdown.`, goal, strings.Join(currentSkills, ", "), timeframe)

	result, err := s.client.GenerateContent(ctx, Request{Parts: []Part{TextPart(prompt)}})
	if err != nil {
		return nil, err
	}
	if len(result.Candidates) == 0 {
		return nil, ErrNoCandidates
	}

	var plan LearningPlan
	if err := json.Unmarshal([]byte(cleanModelJSON(result.Text())), &plan); err != nil {
		s.logger.Warn().Err(err).Msg("learning plan response was not valid json")
		return &LearningPlan{Title: "Learning Plan", Weeks: []LearningPlanWeek{}, Milestones: []string{}}, nil
	}
	return &plan, nil
}

// CheckPlagiarism analyzes writing patterns for originality. This is a
// stylistic analysis, not a database comparison.
func (s *Service) CheckPlagiarism(ctx context.Context, text string) (*PlagiarismReport, error) {
	prompt := fmt.Sprintf(`Analyze this text for potential plagiarism indicators and writing quality:

%q

Note: This is not a full plagiarism check against a database, but an analysis of writing patterns.

Provide a JSON response with:
1. "score": Originality score from 0-100 (100 being fully original)
2. "analysis": Brief analysis of the writing style and potential concerns
3. "suggestions": Array of suggestions to improve originality

Respond ONLY with valid JSON, no markdown.`, text)

	result, err := s.client.GenerateContent(ctx, Request{Parts: []Part{TextPart(prompt)}})
	if err != nil {
		return nil, err
	}
	if len(result.Candidates) == 0 {
		return nil, ErrNoCandidates
	}

	var report PlagiarismReport
	if err := json.Unmarshal([]byte(cleanModelJSON(result.Text())), &report); err != nil {
		s.logger.Warn().Err(err).Msg("plagiarism response was not valid json")
		return &PlagiarismReport{Score: 50, Analysis: "Unable to analyze", Suggestions: []string{}}, nil
	}
	return &report, nil
}

// GeneratePresentation outlines a slide deck for a topic.
// An unparseable model response degrades to a single placeholder slide.
func (s *Service) GeneratePresentation(ctx context.Context, topic string, slideCount int, style string) (*Presentation, error) {
	if slideCount <= 0 {
		slideCount = 5
	}
	if style == "" {
		style = "professional"
	}

	prompt := fmt.Sprintf(`Create a presentation outline for this topic:

Topic: %s
Number of slides: %d
Style: %s

Provide a JSON response with:
1. "title": Presentation title
2. "author": Leave as ""
3. "slides": Array of slides, each with:
   - "slideNumber": number
   - "title": slide title
   - "bulletPoints": array of 3-5 key points
   - "notes": speaker notes (optional)
4. "theme": Object with "primaryColor" (hex) and "accentColor" (hex) appropriate for the style

Make the content engaging, informative, and well-structured for %s presentation.

Respond ONLY with valid JSON, no markdown.`, topic, slideCount, style, style)

	result, err := s.client.GenerateContent(ctx, Request{Parts: []Part{TextPart(prompt)}})
	if err != nil {
		return nil, err
	}
	if len(result.Candidates) == 0 {
		return nil, ErrNoCandidates
	}

	var deck Presentation
	if err := json.Unmarshal([]byte(cleanModelJSON(result.Text())), &deck); err != nil {
		s.logger.Warn().Err(err).Msg("presentation response was not valid json")
		return &Presentation{
			Title:  topic,
			Slides: []PresentationSlide{{SlideNumber: 1, Title: topic, BulletPoints: []string{"Unable to generate content"}}},
			Theme:  PresentationTheme{PrimaryColor: "#4F46E5", AccentColor: "#7C3AED"},
		}, nil
	}
	return &deck, nil
}

// ExtractDocumentText pulls plain text out of an uploaded resume document.
// A zero-candidate response is a hard failure here, unlike AnalyzeCV, since
// there is no useful degraded output for extraction.
func (s *Service) ExtractDocumentText(ctx context.Context, mimeType, base64Content string) (string, error) {
	result, err := s.client.GenerateContent(ctx, Request{
		Parts: []Part{
			DocumentPart(mimeType, base64Content),
			TextPart("TASK: Extract all text content from this professional resume/CV document. Return only the plain text content, preserving the structure and sections. This is a standard job application document."),
		},
		Temperature:          0.1,
		MaxOutputTokens:      8192,
		DisableSafetyFilters: true,
	})
	if err != nil {
		return "", err
	}
	if len(result.Candidates) == 0 {
		s.logger.Warn().Msg("document extraction returned no candidates, likely content filter")
		return "", ErrNoCandidates
	}
	return result.Text(), nil
}
