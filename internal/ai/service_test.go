package ai

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakeClient returns a canned result or error and records the last request.
type fakeClient struct {
	result *Result
	err    error
	last   Request
}

func (f *fakeClient) GenerateContent(_ context.Context, req Request) (*Result, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func textResult(text string) *Result {
	return &Result{Candidates: []Candidate{{Text: text}}}
}

func newTestService(client Client) *Service {
	return NewService(client, zerolog.Nop())
}

func TestAnalyzeCV_ParsesModelResponse(t *testing.T) {
	t.Parallel()

	client := &fakeClient{result: textResult(`{
		"score": 82,
		"missing_keywords": ["kubernetes", "terraform"],
		"weaknesses": ["no metrics in bullet points"],
		"actionable_fixes": ["quantify achievements"]
	}`)}

	analysis, err := newTestService(client).AnalyzeCV(context.Background(), "Jane Doe, platform engineer", "")
	require.NoError(t, err)

	require.Equal(t, 82, analysis.Score)
	require.Equal(t, []string{"kubernetes", "terraform"}, analysis.MissingKeywords)
	require.Equal(t, []string{"no metrics in bullet points"}, analysis.Weaknesses)
	require.Equal(t, []string{"quantify achievements"}, analysis.ActionableFixes)

	// Legacy fields mirror the primary ones.
	require.Equal(t, analysis.Weaknesses, analysis.Feedback)
	require.Equal(t, analysis.ActionableFixes, analysis.Suggestions)
	require.Equal(t, analysis.MissingKeywords, analysis.Keywords.Missing)
}

func TestAnalyzeCV_StripsMarkdownFences(t *testing.T) {
	t.Parallel()

	client := &fakeClient{result: textResult("```json\n{\"score\": 70, \"missing_keywords\": [], \"weaknesses\": [], \"actionable_fixes\": []}\n```")}

	analysis, err := newTestService(client).AnalyzeCV(context.Background(), "cv text", "")
	require.NoError(t, err)
	require.Equal(t, 70, analysis.Score)
}

func TestAnalyzeCV_ZeroCandidatesDegrades(t *testing.T) {
	t.Parallel()

	client := &fakeClient{result: &Result{}}

	analysis, err := newTestService(client).AnalyzeCV(context.Background(), "cv text", "backend role")
	require.NoError(t, err, "a filtered analysis must not fail the request")

	require.Equal(t, 50, analysis.Score)
	require.Contains(t, analysis.Weaknesses[0], "could not be completed")
	require.Contains(t, analysis.ActionableFixes[0], "simplified")
}

func TestAnalyzeCV_UnparseableResponseDegrades(t *testing.T) {
	t.Parallel()

	client := &fakeClient{result: textResult("Sure! Here is my analysis of your resume...")}

	analysis, err := newTestService(client).AnalyzeCV(context.Background(), "cv text", "")
	require.NoError(t, err)
	require.Equal(t, 50, analysis.Score)
	require.Contains(t, analysis.Weaknesses[0], "Unable to parse")
}

func TestAnalyzeCV_MissingScoreDefaultsTo50(t *testing.T) {
	t.Parallel()

	client := &fakeClient{result: textResult(`{"missing_keywords": ["go"]}`)}

	analysis, err := newTestService(client).AnalyzeCV(context.Background(), "cv text", "")
	require.NoError(t, err)
	require.Equal(t, 50, analysis.Score)
	require.Equal(t, []string{"go"}, analysis.MissingKeywords)
}

func TestAnalyzeCV_SanitizesInputAndRelaxesFilters(t *testing.T) {
	t.Parallel()

	client := &fakeClient{result: textResult(`{"score": 60}`)}

	_, err := newTestService(client).AnalyzeCV(context.Background(), "Jane★Doe©  ★★  engineer", "")
	require.NoError(t, err)

	require.True(t, client.last.DisableSafetyFilters)
	prompt := client.last.Parts[0].Text
	require.NotContains(t, prompt, "★")
	require.Contains(t, prompt, "Jane Doe engineer")
}

func TestAnalyzeCV_PropagatesClientErrors(t *testing.T) {
	t.Parallel()

	upstream := &UpstreamError{StatusCode: 429, Message: "quota"}
	client := &fakeClient{err: upstream}

	_, err := newTestService(client).AnalyzeCV(context.Background(), "cv text", "")
	require.ErrorAs(t, err, &upstream)

	client.err = ErrNotConfigured
	_, err = newTestService(client).AnalyzeCV(context.Background(), "cv text", "")
	require.True(t, errors.Is(err, ErrNotConfigured))
}

func TestGenerateCoverLetter(t *testing.T) {
	t.Parallel()

	client := &fakeClient{result: textResult("Dear Hiring Manager, ...")}

	letter, err := newTestService(client).GenerateCoverLetter(context.Background(), CoverLetterInput{
		JobTitle:       "Backend Engineer",
		Company:        "Acme",
		JobDescription: "Build APIs",
		ApplicantName:  "Jane Doe",
		Skills:         []string{"Go", "SQL"},
		Experience:     "3 years at a startup",
	})
	require.NoError(t, err)
	require.Equal(t, "Dear Hiring Manager, ...", letter)

	prompt := client.last.Parts[0].Text
	require.Contains(t, prompt, "Backend Engineer")
	require.Contains(t, prompt, "Acme")
	require.Contains(t, prompt, "Go, SQL")
	require.Contains(t, prompt, "3 years at a startup")
}

func TestGenerateCoverLetter_ZeroCandidatesIsError(t *testing.T) {
	t.Parallel()

	client := &fakeClient{result: &Result{}}

	_, err := newTestService(client).GenerateCoverLetter(context.Background(), CoverLetterInput{})
	require.ErrorIs(t, err, ErrNoCandidates)
}

func TestGenerateLearningPlan(t *testing.T) {
	t.Parallel()

	client := &fakeClient{result: textResult(`{
		"title": "Go in 4 Weeks",
		"weeks": [{"week": 1, "topics": ["syntax"], "resources": ["tour.golang.org"]}],
		"milestones": ["ship a CLI"]
	}`)}

	plan, err := newTestService(client).GenerateLearningPlan(context.Background(), "learn Go", []string{"python"}, "4 weeks")
	require.NoError(t, err)
	require.Equal(t, "Go in 4 Weeks", plan.Title)
	require.Len(t, plan.Weeks, 1)
	require.Equal(t, 1, plan.Weeks[0].Week)
	require.Equal(t, []string{"ship a CLI"}, plan.Milestones)
}

func TestGenerateLearningPlan_UnparseableDegrades(t *testing.T) {
	t.Parallel()

	client := &fakeClient{result: textResult("not json at all")}

	plan, err := newTestService(client).GenerateLearningPlan(context.Background(), "learn Go", nil, "4 weeks")
	require.NoError(t, err)
	require.Equal(t, "Learning Plan", plan.Title)
	require.Empty(t, plan.Weeks)
}

func TestCheckPlagiarism(t *testing.T) {
	t.Parallel()

	client := &fakeClient{result: textResult(`{"score": 88, "analysis": "mostly original", "suggestions": ["vary sentence length"]}`)}

	report, err := newTestService(client).CheckPlagiarism(context.Background(), "my essay text")
	require.NoError(t, err)
	require.Equal(t, 88, report.Score)
	require.Equal(t, "mostly original", report.Analysis)
}

func TestCheckPlagiarism_UnparseableDegrades(t *testing.T) {
	t.Parallel()

	client := &fakeClient{result: textResult("I think this looks fine")}

	report, err := newTestService(client).CheckPlagiarism(context.Background(), "essay")
	require.NoError(t, err)
	require.Equal(t, 50, report.Score)
	require.Equal(t, "Unable to analyze", report.Analysis)
}

func TestGeneratePresentation(t *testing.T) {
	t.Parallel()

	client := &fakeClient{result: textResult(`{
		"title": "Intro to Databases",
		"author": "",
		"slides": [{"slideNumber": 1, "title": "What is a DB", "bulletPoints": ["stores data"]}],
		"theme": {"primaryColor": "#112233", "accentColor": "#445566"}
	}`)}

	deck, err := newTestService(client).GeneratePresentation(context.Background(), "Intro to Databases", 5, "academic")
	require.NoError(t, err)
	require.Equal(t, "Intro to Databases", deck.Title)
	require.Len(t, deck.Slides, 1)
	require.Equal(t, "#112233", deck.Theme.PrimaryColor)

	require.Contains(t, client.last.Parts[0].Text, "Number of slides: 5")
	require.Contains(t, client.last.Parts[0].Text, "academic")
}

func TestGeneratePresentation_Defaults(t *testing.T) {
	t.Parallel()

	client := &fakeClient{result: textResult(`{"title": "T"}`)}

	_, err := newTestService(client).GeneratePresentation(context.Background(), "T", 0, "")
	require.NoError(t, err)
	require.Contains(t, client.last.Parts[0].Text, "Number of slides: 5")
	require.Contains(t, client.last.Parts[0].Text, "professional")
}

func TestGeneratePresentation_UnparseableDegrades(t *testing.T) {
	t.Parallel()

	client := &fakeClient{result: textResult("no json here")}

	deck, err := newTestService(client).GeneratePresentation(context.Background(), "My Topic", 3, "casual")
	require.NoError(t, err)
	require.Equal(t, "My Topic", deck.Title)
	require.Len(t, deck.Slides, 1)
	require.Equal(t, "Unable to generate content", deck.Slides[0].BulletPoints[0])
}

func TestExtractDocumentText(t *testing.T) {
	t.Parallel()

	client := &fakeClient{result: textResult("Jane Doe\nPlatform Engineer\n...")}

	text, err := newTestService(client).ExtractDocumentText(context.Background(), "application/pdf", "aGVsbG8=")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(text, "Jane Doe"))

	require.True(t, client.last.DisableSafetyFilters)
	require.NotNil(t, client.last.Parts[0].Inline)
	require.Equal(t, "application/pdf", client.last.Parts[0].Inline.MIMEType)
	require.Equal(t, "aGVsbG8=", client.last.Parts[0].Inline.Data)
}

func TestExtractDocumentText_ZeroCandidatesIsError(t *testing.T) {
	t.Parallel()

	client := &fakeClient{result: &Result{}}

	_, err := newTestService(client).ExtractDocumentText(context.Background(), "application/pdf", "aGVsbG8=")
	require.ErrorIs(t, err, ErrNoCandidates)

	got := ClassifyDocument(err)
	require.Equal(t, KindSafetyBlocked, got.Kind)
}

func TestSanitizeCV(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"keeps resume punctuation", "jane@x.io, (555) 123-4567 C#/C++ 'senior'", "jane@x.io, (555) 123-4567 C#/C++ 'senior'"},
		{"drops exotic symbols", "Jane ★ Doe © 2024", "Jane Doe 2024"},
		{"collapses whitespace", "a\n\n  b\t c", "a b c"},
		{"trims", "  padded  ", "padded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := sanitizeCV(tt.in); got != tt.want {
				t.Errorf("sanitizeCV(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
