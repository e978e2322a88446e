package devserver

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/lekos21/moneychat/internal/domain"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	db, err := OpenDB(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrations, err := filepath.Abs("migrations")
	require.NoError(t, err)
	require.NoError(t, RunMigrations(db, migrations))

	return NewServer(NewStore(db), "test-token")
}

func request(t *testing.T, srv *Server, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer test-token")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, payload
}

func TestRequiresBearerToken(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/chat/messages", nil)
	resp, err := srv.App().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = srv.App().Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMessageLifecycle(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, payload := request(t, srv, http.MethodPost, "/chat/messages", map[string]any{
		"content":      "12€ lunch",
		"message_type": "user",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created domain.Message
	require.NoError(t, json.Unmarshal(payload, &created))
	require.NotEmpty(t, created.ID)
	require.False(t, created.Timestamp.IsZero())

	resp, payload = request(t, srv, http.MethodGet, "/chat/messages?limit=30", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []domain.Message
	require.NoError(t, json.Unmarshal(payload, &listed))
	require.Len(t, listed, 1)
	require.Equal(t, created.ID, listed[0].ID)

	resp, _ = request(t, srv, http.MethodDelete, "/chat/messages/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	// Deleting again reports 404, which the client maps to idempotent success.
	resp, _ = request(t, srv, http.MethodDelete, "/chat/messages/"+created.ID, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMessageBatchPayloadRoundTrip(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, _ := request(t, srv, http.MethodPost, "/chat/messages", map[string]any{
		"content":      "Saved 2 expenses totaling €13.00",
		"message_type": "system",
		"expense_batch": map[string]any{
			"expenses": []map[string]any{
				{"amount": "5", "currency": "EUR", "short_text": "beer", "raw_text": "5€ beer and 8€ burger"},
				{"amount": "8", "currency": "EUR", "short_text": "burger"},
			},
			"total_count": 2,
		},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	_, payload := request(t, srv, http.MethodGet, "/chat/messages", nil)
	var listed []domain.Message
	require.NoError(t, json.Unmarshal(payload, &listed))
	require.Len(t, listed, 1)
	require.NotNil(t, listed[0].InlineBatch)
	require.Equal(t, 2, listed[0].InlineBatch.TotalCount)
	require.Len(t, listed[0].InlineBatch.Expenses, 2)
	require.Equal(t, "5€ beer and 8€ burger", listed[0].InlineBatch.Expenses[0].RawText)
}

func TestClearMessages(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	for _, content := range []string{"one", "two", "three"} {
		resp, _ := request(t, srv, http.MethodPost, "/chat/messages", map[string]any{"content": content})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}

	resp, _ := request(t, srv, http.MethodDelete, "/chat/messages", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	_, payload := request(t, srv, http.MethodGet, "/chat/messages", nil)
	var listed []domain.Message
	require.NoError(t, json.Unmarshal(payload, &listed))
	require.Empty(t, listed)
}

func TestExpenseValidation(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, _ := request(t, srv, http.MethodPost, "/expenses/", map[string]any{
		"amount":     "-5",
		"currency":   "EUR",
		"short_text": "refund?",
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	resp, payload := request(t, srv, http.MethodPost, "/expenses/", map[string]any{
		"amount":     "4.50",
		"currency":   "EUR",
		"short_text": "coffee",
		"area_tags":  []string{"food"},
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created domain.Expense
	require.NoError(t, json.Unmarshal(payload, &created))
	require.NotEmpty(t, created.ID)

	_, payload = request(t, srv, http.MethodGet, "/expenses/", nil)
	var listed []domain.Expense
	require.NoError(t, json.Unmarshal(payload, &listed))
	require.Len(t, listed, 1)
	require.Equal(t, []string{"food"}, listed[0].AreaTags)

	resp, payload = request(t, srv, http.MethodGet, "/expenses/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var fetched domain.Expense
	require.NoError(t, json.Unmarshal(payload, &fetched))
	require.Equal(t, "coffee", fetched.ShortText)

	resp, _ = request(t, srv, http.MethodGet, "/expenses/nope", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestTagEndpoints(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, payload := request(t, srv, http.MethodGet, "/tags/", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tags []domain.Tag
	require.NoError(t, json.Unmarshal(payload, &tags))
	require.NotEmpty(t, tags)

	resp, payload = request(t, srv, http.MethodGet, "/tags/area/food", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tag domain.Tag
	require.NoError(t, json.Unmarshal(payload, &tag))
	require.Equal(t, "Food", tag.Name)

	resp, _ = request(t, srv, http.MethodGet, "/tags/area/nonsense", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestParseSingleEndpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, payload := request(t, srv, http.MethodPost, "/agents/expense_parser/", map[string]any{
		"text":       "spent 12.50€ on pizza",
		"save_to_db": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var e domain.Expense
	require.NoError(t, json.Unmarshal(payload, &e))
	require.True(t, e.Valid())
	require.Equal(t, "EUR", e.Currency)
	require.Equal(t, []string{"food"}, e.AreaTags)
	require.NotEmpty(t, e.ID)

	// save_to_db persisted it.
	_, payload = request(t, srv, http.MethodGet, "/expenses/", nil)
	var listed []domain.Expense
	require.NoError(t, json.Unmarshal(payload, &listed))
	require.Len(t, listed, 1)

	// Unparseable text answers with a zero amount, not an error status.
	resp, payload = request(t, srv, http.MethodPost, "/agents/expense_parser/", map[string]any{
		"text": "good morning",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var failed domain.Expense
	require.NoError(t, json.Unmarshal(payload, &failed))
	require.False(t, failed.Valid())
}

func TestParseMultiEndpoint(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, payload := request(t, srv, http.MethodPost, "/agents/multi_expense_parser/", map[string]any{
		"text": "5€ beer and 8€ burger, 2€ bus ticket",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Expenses   []domain.Expense `json:"expenses"`
		TotalCount int              `json:"total_count"`
		Error      string           `json:"error"`
	}
	require.NoError(t, json.Unmarshal(payload, &out))
	require.Empty(t, out.Error)
	require.Equal(t, 3, out.TotalCount)
	require.Len(t, out.Expenses, 3)

	resp, payload = request(t, srv, http.MethodPost, "/agents/multi_expense_parser/", map[string]any{
		"text": "nothing to see",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(payload, &out))
	require.Equal(t, "no expenses found", out.Error)
	require.Zero(t, out.TotalCount)
}
