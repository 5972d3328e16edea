// Package classifier groups, deduplicates and summarizes a session's
// questions through structured-output completion calls. Every operation is
// fail-soft: a provider failure or malformed response degrades to a
// documented fallback instead of propagating, so a report can always be
// built.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/askclass/backend/internal/llm"
)

// ChatClient is the slice of the LLM gateway the classifier needs.
type ChatClient interface {
	Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error)
}

type Service struct {
	client ChatClient
	model  string
}

func NewService(client ChatClient, model string) *Service {
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &Service{client: client, model: model}
}

// QuestionInput is the id/content pair the classifier operates on.
type QuestionInput struct {
	ID      string
	Content string
}

type TopicGroup struct {
	TopicName   string   `json:"topic_name"`
	QuestionIDs []string `json:"question_ids"`
}

// TopicResult carries the clustering outcome. Degraded marks the fallback
// path (single General group) taken on provider failure or malformed
// output.
type TopicResult struct {
	Groups   []TopicGroup
	Degraded bool
}

type RepeatGroup struct {
	Summary     string   `json:"summary"`
	QuestionIDs []string `json:"question_ids"`
	Count       int      `json:"count"`
}

type RepeatResult struct {
	Groups   []RepeatGroup
	Degraded bool
}

type TopicSummary struct {
	TopicName     string `json:"topic_name"`
	Summary       string `json:"summary"`
	QuestionCount int    `json:"question_count"`
}

type SummaryResult struct {
	SessionSummary string         `json:"session_summary"`
	TopicSummaries []TopicSummary `json:"topic_summaries"`
	HotTopics      []string       `json:"hot_topics"`
	Degraded       bool           `json:"-"`
}

const maxHotTopics = 3

// ClusterByTopic groups questions into 2-6 topic clusters. Zero questions
// yield an empty result and one question a single General group, both
// without a provider call. The fallback is one General group holding every
// input id.
func (s *Service) ClusterByTopic(ctx context.Context, questions []QuestionInput) TopicResult {
	if len(questions) == 0 {
		return TopicResult{}
	}
	if len(questions) == 1 {
		return TopicResult{Groups: []TopicGroup{{
			TopicName:   "General",
			QuestionIDs: []string{questions[0].ID},
		}}}
	}

	prompt := fmt.Sprintf(`You are grouping student questions from a university lecture into topic clusters.

Questions:
%s

Group them into 2-6 meaningful topic clusters based on the concept being asked about.
Rules:
- Every question must appear in exactly one group.
- Topic names must be concise (2-4 words), e.g. 'Learning Rate', 'MSE Cost Function'.
- Return ONLY valid JSON matching this exact shape, no prose, no markdown:
{"groups":[{"topic_name":"...","question_ids":["id1","id2"]}]}`, questionLines(questions))

	var parsed struct {
		Groups []TopicGroup `json:"groups"`
	}
	if err := s.completeJSON(ctx, prompt, &parsed); err != nil || len(parsed.Groups) == 0 {
		slog.Warn("topic clustering degraded to fallback", "error", err, "questions", len(questions))
		return TopicResult{Groups: []TopicGroup{generalGroup(questions)}, Degraded: true}
	}

	return TopicResult{Groups: parsed.Groups}
}

// FindRepeating detects groups of questions asking essentially the same
// thing. Fewer than two questions, a provider failure or malformed output
// all yield an empty result.
func (s *Service) FindRepeating(ctx context.Context, questions []QuestionInput) RepeatResult {
	if len(questions) < 2 {
		return RepeatResult{}
	}

	prompt := fmt.Sprintf(`You are finding repeated questions in a university lecture Q&A session.

Questions:
%s

Identify groups of questions that ask essentially the same thing in different words.
Rules:
- Only report groups of 2 or more questions.
- A question belongs to at most one group; leave unique questions out entirely.
- Summarize each group in one short sentence.
- Return ONLY valid JSON matching this exact shape, no prose, no markdown:
{"groups":[{"summary":"...","question_ids":["id1","id2"],"count":2}]}`, questionLines(questions))

	var parsed struct {
		Groups []RepeatGroup `json:"groups"`
	}
	if err := s.completeJSON(ctx, prompt, &parsed); err != nil {
		slog.Warn("repeat detection degraded to fallback", "error", err, "questions", len(questions))
		return RepeatResult{Degraded: true}
	}

	var groups []RepeatGroup
	for _, g := range parsed.Groups {
		if len(g.QuestionIDs) < 2 {
			continue
		}
		g.Count = len(g.QuestionIDs)
		groups = append(groups, g)
	}
	return RepeatResult{Groups: groups}
}

// SummarizeForDashboard produces the session summary, per-topic summaries
// and up to three hot topics, consistent with the supplied clustering. The
// fallback is an all-empty structure.
func (s *Service) SummarizeForDashboard(ctx context.Context, questions []QuestionInput, topics []TopicGroup) SummaryResult {
	if len(questions) == 0 {
		return SummaryResult{}
	}

	var topicLines strings.Builder
	for _, t := range topics {
		fmt.Fprintf(&topicLines, "- %s (%d questions)\n", t.TopicName, len(t.QuestionIDs))
	}

	prompt := fmt.Sprintf(`You are summarizing a university lecture Q&A session for the professor's dashboard.

Questions:
%s

Topic clusters:
%s
Write a 2-3 sentence summary of what the class asked about, a one-sentence summary per topic, and pick at most %d "hot" topics that need the professor's attention.
Return ONLY valid JSON matching this exact shape, no prose, no markdown:
{"session_summary":"...","topic_summaries":[{"topic_name":"...","summary":"...","question_count":0}],"hot_topics":["..."]}`,
		questionLines(questions), topicLines.String(), maxHotTopics)

	var parsed SummaryResult
	if err := s.completeJSON(ctx, prompt, &parsed); err != nil {
		slog.Warn("dashboard summary degraded to fallback", "error", err, "questions", len(questions))
		return SummaryResult{Degraded: true}
	}

	if len(parsed.HotTopics) > maxHotTopics {
		parsed.HotTopics = parsed.HotTopics[:maxHotTopics]
	}
	return parsed
}

// completeJSON runs a temperature-0 completion and parses the JSON body,
// tolerating markdown code fences around it.
func (s *Service) completeJSON(ctx context.Context, prompt string, target any) error {
	resp, err := s.client.Chat(ctx, llm.ChatRequest{
		Model:       s.model,
		Temperature: llm.Float(0),
		Messages: []llm.Message{
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return err
	}

	content := strings.TrimSpace(resp.Content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	if err := json.Unmarshal([]byte(content), target); err != nil {
		return fmt.Errorf("parse structured output: %w", err)
	}
	return nil
}

func questionLines(questions []QuestionInput) string {
	var sb strings.Builder
	for _, q := range questions {
		fmt.Fprintf(&sb, "[%s] %s\n", q.ID, q.Content)
	}
	return sb.String()
}

func generalGroup(questions []QuestionInput) TopicGroup {
	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = q.ID
	}
	return TopicGroup{TopicName: "General", QuestionIDs: ids}
}
