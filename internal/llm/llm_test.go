package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAPI serves canned chat completions and records request bodies.
type fakeAPI struct {
	mu        sync.Mutex
	requests  []map[string]any
	responses []string
}

func (f *fakeAPI) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var req map[string]any
	_ = json.Unmarshal(body, &req)

	f.mu.Lock()
	f.requests = append(f.requests, req)
	var resp string
	if len(f.responses) > 0 {
		resp, f.responses = f.responses[0], f.responses[1:]
	}
	f.mu.Unlock()

	if resp == "" {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error":{"message":"boom","type":"server_error"}}`)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprint(w, resp)
}

func textResponse(content string) string {
	b, _ := json.Marshal(content)
	return `{"id":"c1","object":"chat.completion","model":"test","choices":[{"index":0,"message":{"role":"assistant","content":` +
		string(b) + `},"finish_reason":"stop"}]}`
}

func newTestClient(t *testing.T, api *fakeAPI) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(api.handler))
	t.Cleanup(srv.Close)

	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = srv.URL + "/v1"
	return NewOpenAIClientWithConfig(cfg, "gpt-4o-mini", "gpt-4o", zerolog.Nop())
}

func TestCompleteWithSystem(t *testing.T) {
	api := &fakeAPI{responses: []string{textResponse("Cut losers sooner.")}}
	c := newTestClient(t, api)

	out, err := c.CompleteWithSystem(context.Background(), "You are a coach.", "How am I doing?")
	require.NoError(t, err)
	assert.Equal(t, "Cut losers sooner.", out)

	require.Len(t, api.requests, 1)
	assert.Equal(t, "gpt-4o-mini", api.requests[0]["model"])
	msgs := api.requests[0]["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
}

func TestCompleteWithImage_SendsDataURLAndJSONFormat(t *testing.T) {
	api := &fakeAPI{responses: []string{textResponse(`{"symbol":"AAPL"}`)}}
	c := newTestClient(t, api)

	out, err := c.CompleteWithImage(context.Background(), "extract", "read this", []byte{0x89, 'P', 'N', 'G'}, "image/png")
	require.NoError(t, err)
	assert.JSONEq(t, `{"symbol":"AAPL"}`, out)

	req := api.requests[0]
	assert.Equal(t, "gpt-4o", req["model"])
	assert.Equal(t, "json_object", req["response_format"].(map[string]any)["type"])

	raw, _ := json.Marshal(req["messages"])
	assert.Contains(t, string(raw), "data:image/png;base64,iVBORw==")
}

func TestComplete_Errors(t *testing.T) {
	api := &fakeAPI{responses: []string{""}}
	c := newTestClient(t, api)

	_, err := c.Complete(context.Background(), "hi")
	assert.ErrorContains(t, err, "openai completion failed")

	empty := &fakeAPI{responses: []string{`{"id":"c1","object":"chat.completion","model":"test","choices":[]}`}}
	_, err = newTestClient(t, empty).Complete(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrNoResponse)
}

type recordingExecutor struct {
	calls []string
}

func (r *recordingExecutor) ExecuteTool(ctx context.Context, name string, args json.RawMessage) (string, error) {
	r.calls = append(r.calls, name+" "+string(args))
	if name == "broken" {
		return "", fmt.Errorf("no such data")
	}
	return `{"winRate":60}`, nil
}

func TestCompleteWithTools(t *testing.T) {
	toolCall := `{"id":"c1","object":"chat.completion","model":"test","choices":[{"index":0,"message":{"role":"assistant","content":"",` +
		`"tool_calls":[{"id":"call_1","type":"function","function":{"name":"get_stats","arguments":"{\"timeframe\":\"monthly\"}"}},` +
		`{"id":"call_2","type":"function","function":{"name":"broken","arguments":"{}"}}]},"finish_reason":"tool_calls"}]}`
	api := &fakeAPI{responses: []string{toolCall, textResponse("Your win rate is 60%.")}}
	c := newTestClient(t, api)
	exec := &recordingExecutor{}

	cot, err := c.CompleteWithTools(context.Background(), "sys", "How is my month?", []openai.Tool{}, exec)
	require.NoError(t, err)

	assert.Equal(t, "Your win rate is 60%.", cot.Response)
	require.Len(t, cot.ToolCalls, 2)
	assert.Equal(t, "get_stats", cot.ToolCalls[0].ToolName)
	assert.True(t, strings.HasPrefix(cot.ToolCalls[1].Result, "Error executing tool broken"))
	assert.Equal(t, []string{`get_stats {"timeframe":"monthly"}`, "broken {}"}, exec.calls)

	// Second request carries the assistant turn and both tool results.
	msgs := api.requests[1]["messages"].([]any)
	assert.Len(t, msgs, 5)
}
