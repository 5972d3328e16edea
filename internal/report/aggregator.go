// Package report builds the anonymized, topic-grouped session report:
// pseudonym assignment, classifier orchestration and the freshness cache
// that bounds the cost of clustering calls under polling load.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/askclass/backend/internal/classifier"
	"github.com/askclass/backend/internal/models"
	"github.com/askclass/backend/internal/qa"
)

// QuestionStore is the slice of the Q&A store the aggregator reads.
type QuestionStore interface {
	CountQuestions(ctx context.Context, sessionID uuid.UUID, publishedOnly bool) (int, error)
	ListSessionQuestions(ctx context.Context, sessionID uuid.UUID, publishedOnly bool) ([]qa.QuestionRecord, error)
}

// Classifier is the structured-output surface the aggregator drives.
type Classifier interface {
	ClusterByTopic(ctx context.Context, questions []classifier.QuestionInput) classifier.TopicResult
	FindRepeating(ctx context.Context, questions []classifier.QuestionInput) classifier.RepeatResult
	SummarizeForDashboard(ctx context.Context, questions []classifier.QuestionInput, topics []classifier.TopicGroup) classifier.SummaryResult
}

// ReportQuestion is a question as it appears inside a report group: the
// asker replaced by a pseudonym, the answer fully resolved. Review fields
// are only populated for professor-facing reports.
type ReportQuestion struct {
	QuestionID    uuid.UUID             `json:"question_id"`
	Content       string                `json:"content"`
	AskedAt       time.Time             `json:"asked_at"`
	AnonymousName string                `json:"anonymous_name"`
	Answer        *models.AnswerView    `json:"answer,omitempty"`
	Feedback      *models.FeedbackTally `json:"feedback,omitempty"`
	ReviewLabel   *string               `json:"review_label,omitempty"`
	ReviewNotes   *string               `json:"review_notes,omitempty"`
}

type TopicGroup struct {
	TopicName     string           `json:"topic_name"`
	StudentCount  int              `json:"student_count"`
	QuestionCount int              `json:"question_count"`
	Summary       string           `json:"summary,omitempty"`
	IsHot         bool             `json:"is_hot"`
	Questions     []ReportQuestion `json:"questions"`
}

type RepeatingGroup struct {
	Summary     string   `json:"summary"`
	QuestionIDs []string `json:"question_ids"`
	Count       int      `json:"count"`
}

// SessionReport is the derived, cached view of a session's questions.
// GeneratedAt doubles as a build marker: two calls returning the same
// timestamp were served by the same build.
type SessionReport struct {
	SessionID      uuid.UUID        `json:"session_id"`
	Groups         []TopicGroup     `json:"groups"`
	Repeating      []RepeatingGroup `json:"repeating_questions"`
	SessionSummary string           `json:"session_summary,omitempty"`
	TotalQuestions int              `json:"total_questions"`
	Degraded       bool             `json:"degraded,omitempty"`
	GeneratedAt    time.Time        `json:"generated_at"`
}

type Aggregator struct {
	store QuestionStore
	cls   Classifier
	cache *Cache
}

func NewAggregator(store QuestionStore, cls Classifier, cache *Cache) *Aggregator {
	if cache == nil {
		cache = NewCache(0, 0)
	}
	return &Aggregator{store: store, cls: cls, cache: cache}
}

// BuildReport returns the session report, serving the cached build when it
// is still fresh. The cached object always carries review metadata; reports
// for callers without review access are stripped copies, so the cache never
// has to track that dimension.
func (a *Aggregator) BuildReport(ctx context.Context, sessionID uuid.UUID, publishedOnly, includeReview bool) (*SessionReport, error) {
	count, err := a.store.CountQuestions(ctx, sessionID, publishedOnly)
	if err != nil {
		return nil, fmt.Errorf("count session questions: %w", err)
	}

	if cached, ok := a.cache.Get(sessionID, publishedOnly, count); ok {
		return a.visible(cached, includeReview), nil
	}

	report, err := a.build(ctx, sessionID, publishedOnly)
	if err != nil {
		return nil, err
	}

	a.cache.Put(sessionID, publishedOnly, report, count)
	return a.visible(report, includeReview), nil
}

// InvalidateSession drops the session's cached reports so the next request
// rebuilds. Called when feedback or review metadata changes.
func (a *Aggregator) InvalidateSession(sessionID uuid.UUID) {
	a.cache.Invalidate(sessionID)
}

func (a *Aggregator) build(ctx context.Context, sessionID uuid.UUID, publishedOnly bool) (*SessionReport, error) {
	records, err := a.store.ListSessionQuestions(ctx, sessionID, publishedOnly)
	if err != nil {
		return nil, fmt.Errorf("list session questions: %w", err)
	}

	report := &SessionReport{
		SessionID:   sessionID,
		GeneratedAt: time.Now(),
	}
	if len(records) == 0 {
		return report, nil
	}
	report.TotalQuestions = len(records)

	studentIDs := make([]uuid.UUID, len(records))
	for i, r := range records {
		studentIDs[i] = r.StudentID
	}
	pseudonyms := assignPseudonyms(studentIDs)

	items := make(map[string]ReportQuestion, len(records))
	studentByQID := make(map[string]uuid.UUID, len(records))
	inputs := make([]classifier.QuestionInput, len(records))
	for i, r := range records {
		qid := r.ID.String()
		items[qid] = ReportQuestion{
			QuestionID:    r.ID,
			Content:       r.Content,
			AskedAt:       r.AskedAt,
			AnonymousName: pseudonyms[r.StudentID],
			Answer:        r.Answer,
			Feedback:      r.Feedback,
			ReviewLabel:   r.ReviewLabel,
			ReviewNotes:   r.ReviewNotes,
		}
		studentByQID[qid] = r.StudentID
		inputs[i] = classifier.QuestionInput{ID: qid, Content: r.Content}
	}

	// Clustering and repeat detection are independent calls over the same
	// question list, so they run concurrently.
	var (
		wg      sync.WaitGroup
		topics  classifier.TopicResult
		repeats classifier.RepeatResult
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		topics = a.cls.ClusterByTopic(ctx, inputs)
	}()
	go func() {
		defer wg.Done()
		repeats = a.cls.FindRepeating(ctx, inputs)
	}()
	wg.Wait()

	// Summarization needs the clustering result for consistent per-topic
	// summaries and hot-topic picks, so it runs after.
	summary := a.cls.SummarizeForDashboard(ctx, inputs, topics.Groups)

	report.Degraded = topics.Degraded || repeats.Degraded || summary.Degraded
	report.SessionSummary = summary.SessionSummary

	summaryByTopic := make(map[string]string, len(summary.TopicSummaries))
	for _, ts := range summary.TopicSummaries {
		summaryByTopic[ts.TopicName] = ts.Summary
	}
	hot := make(map[string]bool, len(summary.HotTopics))
	for _, name := range summary.HotTopics {
		hot[name] = true
	}

	assigned := make(map[string]bool, len(items))
	for _, g := range topics.Groups {
		group := assembleGroup(g.TopicName, g.QuestionIDs, items, studentByQID, assigned)
		if group == nil {
			continue
		}
		group.Summary = summaryByTopic[g.TopicName]
		group.IsHot = hot[g.TopicName]
		report.Groups = append(report.Groups, *group)
	}

	// Catch-all for ids the classifier left unassigned. Iterating the
	// original records keeps asked-at order.
	var leftover []string
	for _, r := range records {
		if qid := r.ID.String(); !assigned[qid] {
			leftover = append(leftover, qid)
		}
	}
	if len(leftover) > 0 {
		if group := assembleGroup("Other", leftover, items, studentByQID, assigned); group != nil {
			report.Groups = append(report.Groups, *group)
		}
	}

	for _, rg := range repeats.Groups {
		report.Repeating = append(report.Repeating, RepeatingGroup{
			Summary:     rg.Summary,
			QuestionIDs: rg.QuestionIDs,
			Count:       rg.Count,
		})
	}

	if report.Degraded {
		slog.Warn("session report built in degraded mode",
			"session_id", sessionID, "questions", len(records))
	}
	return report, nil
}

// assembleGroup builds one topic group from the ids the classifier put in
// it, skipping ids it hallucinated and ids already claimed by an earlier
// group, so every question lands in exactly one group.
func assembleGroup(topicName string, qids []string, items map[string]ReportQuestion, studentByQID map[string]uuid.UUID, assigned map[string]bool) *TopicGroup {
	var questions []ReportQuestion
	students := make(map[uuid.UUID]struct{})
	for _, qid := range qids {
		item, ok := items[qid]
		if !ok || assigned[qid] {
			continue
		}
		assigned[qid] = true
		questions = append(questions, item)
		students[studentByQID[qid]] = struct{}{}
	}
	if len(questions) == 0 {
		return nil
	}
	return &TopicGroup{
		TopicName:     topicName,
		StudentCount:  len(students),
		QuestionCount: len(questions),
		Questions:     questions,
	}
}

// visible returns the report as the caller may see it. Professor-facing
// callers get the cached object itself; others get a copy with review
// metadata stripped, leaving the cached build untouched.
func (a *Aggregator) visible(report *SessionReport, includeReview bool) *SessionReport {
	if includeReview {
		return report
	}

	stripped := *report
	stripped.Groups = make([]TopicGroup, len(report.Groups))
	for i, g := range report.Groups {
		sg := g
		sg.Questions = make([]ReportQuestion, len(g.Questions))
		for j, q := range g.Questions {
			q.ReviewLabel = nil
			q.ReviewNotes = nil
			sg.Questions[j] = q
		}
		stripped.Groups[i] = sg
	}
	return &stripped
}
