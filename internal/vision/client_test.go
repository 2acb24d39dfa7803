package vision

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smendez-hq/ticket-verifier/constants"
	"github.com/smendez-hq/ticket-verifier/internal/extract"
)

func reply(text string) string {
	b, _ := json.Marshal(map[string]any{
		"content": []map[string]any{{"type": "text", "text": text}},
	})
	return string(b)
}

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:     "test-key",
		BaseURL:    srv.URL,
		MaxRetries: 3,
		RetryDelay: time.Millisecond,
	}, nil)
}

func testImage() extract.Image {
	return extract.Image{Name: "100045.jpg", OrderID: "100045", Data: []byte("fake-jpeg")}
}

func TestExtractSuccess(t *testing.T) {
	var gotPath, gotKey, gotVersion string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		fmt.Fprint(w, reply(`{"email": "Ana@X.com", "match": 25, "cantidad": 4, "categoria": 3}`))
	})

	res := c.Extract(context.Background(), testImage())

	assert.Equal(t, "/v1/messages", gotPath)
	assert.Equal(t, "test-key", gotKey)
	assert.Equal(t, "2023-06-01", gotVersion)

	assert.Empty(t, res.Err)
	assert.Equal(t, constants.MethodRemote, res.Method)
	assert.Equal(t, "ana@x.com", res.Email)
	require.NotNil(t, res.Match)
	assert.Equal(t, 25, *res.Match)
	require.NotNil(t, res.Quantity)
	assert.Equal(t, 4, *res.Quantity)
	assert.Equal(t, "Category 3", res.Category)
	assert.Equal(t, 0, res.Retries)
}

func TestExtractFencedReply(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, reply("```json\n{\"email\": \"ana@x.com\", \"match\": 25, \"cantidad\": null, \"categoria\": null}\n```"))
	})

	res := c.Extract(context.Background(), testImage())

	assert.Empty(t, res.Err)
	assert.Equal(t, "ana@x.com", res.Email)
	assert.Nil(t, res.Quantity)
	assert.Empty(t, res.Category)
}

func TestExtractNullFieldsAccepted(t *testing.T) {
	// A parseable reply is terminal even when every field is null.
	var calls int32
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		fmt.Fprint(w, reply(`{"email": null, "match": null, "cantidad": null, "categoria": null}`))
	})

	res := c.Extract(context.Background(), testImage())

	assert.Empty(t, res.Err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, res.Email)
	assert.Nil(t, res.Match)
}

func TestExtractRetriesThenSucceeds(t *testing.T) {
	var calls int32
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, reply(`{"email": "ana@x.com", "match": 25, "cantidad": 4, "categoria": 3}`))
	})

	res := c.Extract(context.Background(), testImage())

	assert.Empty(t, res.Err)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 2, res.Retries)
}

func TestExtractExhaustsRetries(t *testing.T) {
	var calls int32
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	res := c.Extract(context.Background(), testImage())

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, 3, res.Retries)
	assert.Contains(t, res.Err, "failed after 3 attempts")
	assert.Equal(t, constants.MethodRemote, res.Method)
}

func TestExtractRejectsMalformedReply(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, reply(`here are the fields you asked for`))
	})

	res := c.Extract(context.Background(), testImage())

	assert.Contains(t, res.Err, "failed after 3 attempts")
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare json untouched", in: `{"a": 1}`, want: `{"a": 1}`},
		{name: "plain fence", in: "```\n{\"a\": 1}\n```", want: `{"a": 1}`},
		{name: "json fence", in: "```json\n{\"a\": 1}\n```", want: `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.in))
		})
	}
}

func TestCategoryString(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "number", in: float64(3), want: "Category 3"},
		{name: "bare digit string", in: "3", want: "Category 3"},
		{name: "already labelled", in: "Category 3", want: "Category 3"},
		{name: "null", in: nil, want: ""},
		{name: "blank string", in: "  ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, categoryString(tt.in))
		})
	}
}
