package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/askclass/backend/internal/llm"
)

type stubChat struct {
	reply   string
	err     error
	calls   int
	lastReq llm.ChatRequest
}

func (s *stubChat) Chat(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.ChatResponse{Content: s.reply}, nil
}

func sampleQuestions(n int) []QuestionInput {
	qs := make([]QuestionInput, n)
	for i := range qs {
		qs[i] = QuestionInput{ID: string(rune('a' + i)), Content: "question"}
	}
	return qs
}

func TestClusterByTopicZeroQuestions(t *testing.T) {
	chat := &stubChat{}
	svc := NewService(chat, "")

	result := svc.ClusterByTopic(context.Background(), nil)
	require.Empty(t, result.Groups)
	require.False(t, result.Degraded)
	require.Zero(t, chat.calls, "no provider call for zero questions")
}

func TestClusterByTopicSingleQuestion(t *testing.T) {
	chat := &stubChat{}
	svc := NewService(chat, "")

	result := svc.ClusterByTopic(context.Background(), []QuestionInput{{ID: "q1", Content: "what is a tensor?"}})
	require.Len(t, result.Groups, 1)
	require.Equal(t, "General", result.Groups[0].TopicName)
	require.Equal(t, []string{"q1"}, result.Groups[0].QuestionIDs)
	require.False(t, result.Degraded)
	require.Zero(t, chat.calls, "no provider call for a single question")
}

func TestClusterByTopicParsesGroups(t *testing.T) {
	chat := &stubChat{reply: `{"groups":[{"topic_name":"Learning Rate","question_ids":["a","b"]},{"topic_name":"Loss Functions","question_ids":["c"]}]}`}
	svc := NewService(chat, "")

	result := svc.ClusterByTopic(context.Background(), sampleQuestions(3))
	require.False(t, result.Degraded)
	require.Len(t, result.Groups, 2)
	require.Equal(t, "Learning Rate", result.Groups[0].TopicName)
}

func TestClusterByTopicRequestsDeterministicSampling(t *testing.T) {
	chat := &stubChat{reply: `{"groups":[{"topic_name":"General","question_ids":["a","b"]}]}`}
	svc := NewService(chat, "gpt-4o")

	svc.ClusterByTopic(context.Background(), sampleQuestions(2))
	require.Equal(t, 1, chat.calls)

	// Structured output depends on an explicit temperature 0, not the
	// provider default.
	require.NotNil(t, chat.lastReq.Temperature)
	require.Zero(t, *chat.lastReq.Temperature)
	require.Equal(t, "gpt-4o", chat.lastReq.Model)
}

func TestClusterByTopicCodeFencedJSON(t *testing.T) {
	chat := &stubChat{reply: "```json\n{\"groups\":[{\"topic_name\":\"General\",\"question_ids\":[\"a\",\"b\"]}]}\n```"}
	svc := NewService(chat, "")

	result := svc.ClusterByTopic(context.Background(), sampleQuestions(2))
	require.False(t, result.Degraded)
	require.Len(t, result.Groups, 1)
}

func TestClusterByTopicProviderFailureFallsBack(t *testing.T) {
	chat := &stubChat{err: errors.New("rate limited")}
	svc := NewService(chat, "")

	questions := sampleQuestions(4)
	result := svc.ClusterByTopic(context.Background(), questions)
	require.True(t, result.Degraded)
	require.Len(t, result.Groups, 1)
	require.Equal(t, "General", result.Groups[0].TopicName)
	require.Len(t, result.Groups[0].QuestionIDs, len(questions), "fallback group must hold every input id")
}

func TestClusterByTopicMalformedJSONFallsBack(t *testing.T) {
	chat := &stubChat{reply: "Sure! Here are the groups: Learning Rate..."}
	svc := NewService(chat, "")

	result := svc.ClusterByTopic(context.Background(), sampleQuestions(3))
	require.True(t, result.Degraded)
	require.Len(t, result.Groups, 1)
	require.Equal(t, "General", result.Groups[0].TopicName)
}

func TestFindRepeatingRequiresTwoQuestions(t *testing.T) {
	chat := &stubChat{}
	svc := NewService(chat, "")

	result := svc.FindRepeating(context.Background(), sampleQuestions(1))
	require.Empty(t, result.Groups)
	require.Zero(t, chat.calls)
}

func TestFindRepeatingDropsUndersizedGroups(t *testing.T) {
	chat := &stubChat{reply: `{"groups":[{"summary":"what is overfitting","question_ids":["a","b"],"count":2},{"summary":"solo","question_ids":["c"],"count":1}]}`}
	svc := NewService(chat, "")

	result := svc.FindRepeating(context.Background(), sampleQuestions(3))
	require.False(t, result.Degraded)
	require.Len(t, result.Groups, 1)
	require.Equal(t, 2, result.Groups[0].Count)
}

func TestFindRepeatingFailureIsEmpty(t *testing.T) {
	chat := &stubChat{err: errors.New("timeout")}
	svc := NewService(chat, "")

	result := svc.FindRepeating(context.Background(), sampleQuestions(5))
	require.True(t, result.Degraded)
	require.Empty(t, result.Groups)
}

func TestSummarizeFailureIsAllEmpty(t *testing.T) {
	chat := &stubChat{err: errors.New("boom")}
	svc := NewService(chat, "")

	result := svc.SummarizeForDashboard(context.Background(), sampleQuestions(3), nil)
	require.True(t, result.Degraded)
	require.Empty(t, result.SessionSummary)
	require.Empty(t, result.TopicSummaries)
	require.Empty(t, result.HotTopics)
}

func TestSummarizeCapsHotTopics(t *testing.T) {
	chat := &stubChat{reply: `{"session_summary":"busy class","topic_summaries":[],"hot_topics":["a","b","c","d","e"]}`}
	svc := NewService(chat, "")

	result := svc.SummarizeForDashboard(context.Background(), sampleQuestions(3), nil)
	require.False(t, result.Degraded)
	require.Len(t, result.HotTopics, 3)
}
