package testrun

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"refine-ai-api/internal/config"
	"refine-ai-api/internal/domain/catalog"
	"refine-ai-api/internal/infrastructure/llm"
	"refine-ai-api/internal/workflow/chain"
	wfmodel "refine-ai-api/internal/workflow/model"
	apperrors "refine-ai-api/pkg/errors"
)

func streamOf(chunks ...string) *schema.StreamReader[*schema.Message] {
	msgs := make([]*schema.Message, 0, len(chunks))
	for _, c := range chunks {
		msgs = append(msgs, schema.AssistantMessage(c, nil))
	}
	return schema.StreamReaderFromArray(msgs)
}

func failingStream(err error, chunks ...string) *schema.StreamReader[*schema.Message] {
	sr, sw := schema.Pipe[*schema.Message](len(chunks) + 1)
	for _, c := range chunks {
		sw.Send(schema.AssistantMessage(c, nil), nil)
	}
	sw.Send(nil, err)
	sw.Close()
	return sr
}

type fakeStreamer struct {
	calls  atomic.Int32
	stream func(ctx context.Context) (*schema.StreamReader[*schema.Message], error)
}

func (f *fakeStreamer) Stream(ctx context.Context, _ *wfmodel.TestRunInput) (*schema.StreamReader[*schema.Message], error) {
	f.calls.Add(1)
	return f.stream(ctx)
}

type simulatedFactory struct {
	m model.BaseChatModel
}

func (f simulatedFactory) Get(_ context.Context, name string) (model.BaseChatModel, error) {
	if name != "simulated" {
		return nil, errors.New("provider " + name + " not found in LLM config")
	}
	return f.m, nil
}

func TestIsImageRequest(t *testing.T) {
	cat := catalog.Default()
	cases := []struct {
		req  Request
		want bool
	}{
		{Request{Objective: "retouch this PHOTO"}, true},
		{Request{Objective: "draw a picture of a cat"}, true},
		{Request{Objective: "an Image of the sea"}, true},
		{Request{Category: "art", Objective: "a sunset"}, true},
		{Request{Category: "Art/Image Gen", Objective: "a sunset"}, true},
		{Request{TargetModel: "Midjourney v6", Objective: "a sunset"}, true},
		{Request{TargetModel: "dall-e-3", Objective: "a sunset"}, true},
		{Request{Category: "coding", TargetModel: "GPT-4o", Objective: "fix my bug"}, false},
		{Request{Objective: ""}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, IsImageRequest(cat, tc.req), "%+v", tc.req)
	}
}

func TestAccumulateInOrder(t *testing.T) {
	var seen []string
	text, err := Accumulate(context.Background(), streamOf("Hello", ", ", "world"), func(c string) error {
		seen = append(seen, c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello, world", text)
	assert.Equal(t, []string{"Hello", ", ", "world"}, seen)
}

func TestAccumulateEmptyStreamIsNoOutput(t *testing.T) {
	text, err := Accumulate(context.Background(), streamOf(), nil)
	require.NoError(t, err)
	assert.Equal(t, "", text)
}

func TestAccumulateFailureBeforeFirstChunk(t *testing.T) {
	boom := errors.New("boom")
	text, err := Accumulate(context.Background(), failingStream(boom), nil)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "", text)
}

func TestAccumulateMidStreamFailureAppendsMarker(t *testing.T) {
	boom := errors.New("boom")
	var last string
	text, err := Accumulate(context.Background(), failingStream(boom, "partial "), func(c string) error {
		last = c
		return nil
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, "partial "+ErrorMarker, text)
	assert.Equal(t, ErrorMarker, last)
}

func TestAccumulateStopsAfterCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	m := llm.NewSimulatedChatModel(config.ProviderConfig{ChunkDelay: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reader, err := m.Stream(ctx, []*schema.Message{
		schema.SystemMessage("# Role\nYou are a tester."),
		schema.UserMessage("count words"),
	})
	require.NoError(t, err)

	chunks := 0
	text, err := Accumulate(ctx, reader, func(string) error {
		chunks++
		if chunks == 3 {
			cancel()
		}
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 3, chunks)
	assert.NotContains(t, text, ErrorMarker)
	assert.Equal(t, 3, len(strings.Fields(text)))
}

func TestAccumulateCallbackErrorStops(t *testing.T) {
	stop := errors.New("client gone")
	text, err := Accumulate(context.Background(), streamOf("a", "b", "c"), func(c string) error {
		if c == "b" {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, "ab", text)
}

func TestRunnerRefusesBeforeAnyCall(t *testing.T) {
	streamer := &fakeStreamer{stream: func(context.Context) (*schema.StreamReader[*schema.Message], error) {
		return streamOf("never"), nil
	}}
	r := NewRunner(catalog.Default(), streamer, config.TestRunConfig{Provider: "simulated"})

	_, err := r.Run(context.Background(), Request{Prompt: "# Role", Objective: "edit my photo"}, nil)
	require.ErrorIs(t, err, ErrRefused)
	assert.EqualValues(t, 0, streamer.calls.Load())
}

func TestRunnerValidation(t *testing.T) {
	streamer := &fakeStreamer{stream: func(context.Context) (*schema.StreamReader[*schema.Message], error) {
		return streamOf("x"), nil
	}}

	r := NewRunner(catalog.Default(), streamer, config.TestRunConfig{Provider: "simulated"})
	_, err := r.Run(context.Background(), Request{Objective: "fix my bug"}, nil)
	assert.Equal(t, apperrors.CodeInvalidParam, apperrors.AsAppError(err).Code)

	unconfigured := NewRunner(catalog.Default(), streamer, config.TestRunConfig{})
	_, err = unconfigured.Run(context.Background(), Request{Prompt: "# Role", Objective: "fix my bug"}, nil)
	assert.Equal(t, apperrors.CodeLLMNotConfigured, apperrors.AsAppError(err).Code)
	assert.EqualValues(t, 0, streamer.calls.Load())
}

func TestRunnerClassifiesStartFailures(t *testing.T) {
	cases := []struct {
		err  error
		code apperrors.ErrorCode
	}{
		{errors.New("provider groq not found in LLM config"), apperrors.CodeLLMNotConfigured},
		{errors.New("failed to create eino chat model for groq: api_key is empty"), apperrors.CodeLLMNotConfigured},
		{context.DeadlineExceeded, apperrors.CodeTestRunTimeout},
		{errors.New("upstream 500"), apperrors.CodeTestRunFailed},
	}
	for _, tc := range cases {
		streamer := &fakeStreamer{stream: func(context.Context) (*schema.StreamReader[*schema.Message], error) {
			return nil, tc.err
		}}
		r := NewRunner(catalog.Default(), streamer, config.TestRunConfig{Provider: "groq"})
		_, err := r.Run(context.Background(), Request{Prompt: "# Role", Objective: "fix my bug"}, nil)
		require.Error(t, err)
		assert.Equal(t, tc.code, apperrors.AsAppError(err).Code, tc.err.Error())
	}
}

func TestRunnerTimeoutMidStream(t *testing.T) {
	m := llm.NewSimulatedChatModel(config.ProviderConfig{ChunkDelay: 20 * time.Millisecond})
	r := NewRunner(catalog.Default(),
		chain.NewTestRunChain(simulatedFactory{m: m}, nil),
		config.TestRunConfig{Provider: "simulated", Timeout: 70 * time.Millisecond},
	)

	text, err := r.Run(context.Background(), Request{Prompt: "# Role\nTester", Objective: "fix my bug"}, nil)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeTestRunTimeout, apperrors.AsAppError(err).Code)
	assert.True(t, strings.HasSuffix(text, ErrorMarker))
}

func TestRunnerWithSimulatedProvider(t *testing.T) {
	m := llm.NewSimulatedChatModel(config.ProviderConfig{})
	r := NewRunner(catalog.Default(),
		chain.NewTestRunChain(simulatedFactory{m: m}, nil),
		config.TestRunConfig{Provider: "simulated"},
	)

	var streamed strings.Builder
	text, err := r.Run(context.Background(), Request{
		Prompt:    "# Role\nYou are a Senior Architect.\n\n# Objective\nfix my bug",
		Objective: "fix my bug",
	}, func(c string) error {
		streamed.WriteString(c)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, text, streamed.String())
	assert.True(t, strings.HasPrefix(text, llm.SimulatedNotice))
	assert.Contains(t, text, "fix my bug")
	assert.Contains(t, text, "Role")
}
