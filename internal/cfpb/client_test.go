package cfpb

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/Veraticus/crypto-complaints/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	client, err := NewClient(ClientOptions{
		BaseURL:   serverURL,
		UserAgent: "test-agent",
		Companies: []string{"Coinbase, Inc.", "Block, Inc."},
		PageSize:  2,
	})
	require.NoError(t, err)
	return client
}

func TestClient_URL(t *testing.T) {
	client := newTestClient(t, "https://example.test/search/api/v1/")
	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	raw := client.URL(PageRequest{Since: &since, SearchAfter: "1709251200000_8123456", From: 200})
	u, err := url.Parse(raw)
	require.NoError(t, err)

	q := u.Query()
	assert.Equal(t, "/search/api/v1/", u.Path)
	assert.Equal(t, []string{"Coinbase, Inc.", "Block, Inc."}, q["company"])
	assert.Equal(t, VirtualCurrency, q.Get("sub_product"))
	assert.Equal(t, "2", q.Get("size"))
	assert.Equal(t, "created_date_desc", q.Get("sort"))
	assert.Equal(t, "2024-03-01", q.Get("date_received_min"))
	assert.Equal(t, "200", q.Get("frm"))
	assert.Equal(t, "1709251200000_8123456", q.Get("search_after"))
}

func TestClient_URL_FirstFullPage(t *testing.T) {
	client := newTestClient(t, "https://example.test/api/")

	u, err := url.Parse(client.URL(PageRequest{}))
	require.NoError(t, err)

	q := u.Query()
	assert.Empty(t, q.Get("date_received_min"))
	assert.Empty(t, q.Get("frm"))
	assert.Empty(t, q.Get("search_after"))
}

func TestClient_Page(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantErr   bool
		wantTotal int
		wantIDs   []string
	}{
		{
			name:      "paginated envelope",
			status:    http.StatusOK,
			body:      `{"hits":{"total":{"value":5},"hits":[{"_id":"1","_source":{"company":"Coinbase, Inc."},"sort":[1700000000000,"1"]},{"_id":"2","_source":{}}]}}`,
			wantTotal: 5,
			wantIDs:   []string{"1", "2"},
		},
		{
			name:      "bare total number",
			status:    http.StatusOK,
			body:      `{"hits":{"total":3,"hits":[{"_id":"9","_source":{}}]}}`,
			wantTotal: 3,
			wantIDs:   []string{"9"},
		},
		{
			name:      "flat array",
			status:    http.StatusOK,
			body:      `[{"_id":"a","_source":{}},{"_id":"b","_source":{}},{"_id":"c","_source":{}}]`,
			wantTotal: 3,
			wantIDs:   []string{"a", "b", "c"},
		},
		{
			name:    "server error",
			status:  http.StatusBadGateway,
			body:    `upstream down`,
			wantErr: true,
		},
		{
			name:    "malformed body",
			status:  http.StatusOK,
			body:    `{"hits":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/json", r.Header.Get("Accept"))
				assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			env, err := client.Page(context.Background(), PageRequest{})
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)

			assert.Equal(t, tt.wantTotal, env.Hits.Total.Value)
			ids := make([]string, 0, len(env.Hits.Hits))
			for _, h := range env.Hits.Hits {
				ids = append(ids, h.ID)
			}
			assert.Equal(t, tt.wantIDs, ids)
		})
	}
}

func TestClient_Page_StatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := newTestClient(t, server.URL).Page(context.Background(), PageRequest{})

	var statusErr *common.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(ClientOptions{})
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}
