package gmail

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	maildomain "github.com/Alok-Gaur/mail-management-agent/internal/mail/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

var testToken = &oauth2.Token{AccessToken: "test-access"}

func newTestService(t *testing.T, handler http.HandlerFunc) *Service {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewService(WithEndpoint(srv.URL), WithRateLimit(1000, 100))
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestListHistory_PaginatesAndFiltersAdded(t *testing.T) {
	var seenStart []string
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/gmail/v1/users/me/history", r.URL.Path)
		assert.Equal(t, "Bearer test-access", r.Header.Get("Authorization"))
		assert.Equal(t, "messageAdded", r.URL.Query().Get("historyTypes"))
		seenStart = append(seenStart, r.URL.Query().Get("startHistoryId"))

		switch r.URL.Query().Get("pageToken") {
		case "":
			writeJSON(w, http.StatusOK, `{
				"history": [
					{"id": "501", "messagesAdded": [{"message": {"id": "m1"}}, {"message": {"id": "m2"}}]},
					{"id": "502", "labelsAdded": [{"message": {"id": "m9"}}]}
				],
				"nextPageToken": "p2",
				"historyId": "510"
			}`)
		case "p2":
			writeJSON(w, http.StatusOK, `{
				"history": [{"id": "503", "messagesAdded": [{"message": {"id": "m1"}}]}],
				"historyId": "510"
			}`)
		default:
			t.Fatalf("unexpected page token %q", r.URL.Query().Get("pageToken"))
		}
	})

	changes, err := svc.ListHistory(context.Background(), testToken, 500)
	require.NoError(t, err)
	assert.Equal(t, 3, changes.Records)
	assert.Equal(t, []string{"m1", "m2", "m1"}, changes.AddedMessageIDs)
	assert.Equal(t, []string{"500", "500"}, seenStart)
}

func TestListHistory_ExpiredCursor(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"error": {"code": 404, "message": "Requested entity was not found."}}`)
	})

	_, err := svc.ListHistory(context.Background(), testToken, 1)
	assert.ErrorIs(t, err, maildomain.ErrHistoryExpired)
}

func TestListHistory_Unauthorized(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"error": {"code": 401, "message": "Invalid Credentials"}}`)
	})

	_, err := svc.ListHistory(context.Background(), testToken, 1)
	assert.ErrorIs(t, err, maildomain.ErrUnauthorized)
	assert.NotErrorIs(t, err, maildomain.ErrHistoryExpired)
}

func TestGetMessage_ConvertsPayloadTree(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/gmail/v1/users/me/messages/m1", r.URL.Path)
		assert.Equal(t, "full", r.URL.Query().Get("format"))
		writeJSON(w, http.StatusOK, `{
			"id": "m1",
			"threadId": "t1",
			"labelIds": ["INBOX", "UNREAD"],
			"internalDate": "1714560000000",
			"payload": {
				"mimeType": "multipart/alternative",
				"headers": [{"name": "Subject", "value": "Hello"}],
				"body": {"size": 0},
				"parts": [
					{"mimeType": "text/plain", "body": {"data": "aGVsbG8=", "size": 5}},
					{"mimeType": "text/html", "body": {"data": "PGI-aGk8L2I-", "size": 9}}
				]
			}
		}`)
	})

	msg, err := svc.GetMessage(context.Background(), testToken, "m1")
	require.NoError(t, err)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "t1", msg.ThreadID)
	assert.Equal(t, int64(1714560000000), msg.InternalDate)
	require.NotNil(t, msg.Payload)
	assert.Equal(t, []maildomain.Header{{Name: "Subject", Value: "Hello"}}, msg.Payload.Headers)
	assert.Empty(t, msg.Payload.Data)
	require.Len(t, msg.Payload.Parts, 2)
	assert.Equal(t, "text/plain", msg.Payload.Parts[0].MimeType)
	assert.Equal(t, "aGVsbG8=", msg.Payload.Parts[0].Data)
}

func TestWatch_StopsThenWatches(t *testing.T) {
	var calls []string
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/gmail/v1/users/me/stop":
			w.WriteHeader(http.StatusNoContent)
		case "/gmail/v1/users/me/watch":
			var req map[string]interface{}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "projects/p/topics/new_mail", req["topicName"])
			writeJSON(w, http.StatusOK, `{"historyId": "777", "expiration": "1714600000000"}`)
		default:
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
	})

	res, err := svc.Watch(context.Background(), testToken, "projects/p/topics/new_mail", nil)
	require.NoError(t, err)
	assert.Equal(t, uint64(777), res.HistoryID)
	assert.Equal(t, int64(1714600000000), res.Expiration.UnixMilli())
	assert.Equal(t, []string{"POST /gmail/v1/users/me/stop", "POST /gmail/v1/users/me/watch"}, calls)
}

func TestApplyLabel_CreatesMissingLabel(t *testing.T) {
	var modified string
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/gmail/v1/users/me/labels":
			writeJSON(w, http.StatusOK, `{"labels": [{"id": "INBOX", "name": "INBOX"}]}`)
		case r.Method == http.MethodPost && r.URL.Path == "/gmail/v1/users/me/labels":
			writeJSON(w, http.StatusOK, `{"id": "Label_1", "name": "Finance"}`)
		case r.URL.Path == "/gmail/v1/users/me/messages/m1/modify":
			body, _ := io.ReadAll(r.Body)
			modified = string(body)
			writeJSON(w, http.StatusOK, `{"id": "m1"}`)
		default:
			t.Fatalf("unexpected %s %s", r.Method, r.URL.Path)
		}
	})

	require.NoError(t, svc.ApplyLabel(context.Background(), testToken, "m1", "Finance"))
	assert.True(t, strings.Contains(modified, "Label_1"))
}

func TestCreateDraft(t *testing.T) {
	svc := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/gmail/v1/users/me/drafts", r.URL.Path)
		var req struct {
			Message struct {
				Raw      string `json:"raw"`
				ThreadID string `json:"threadId"`
			} `json:"message"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "t1", req.Message.ThreadID)
		assert.NotEmpty(t, req.Message.Raw)
		writeJSON(w, http.StatusOK, `{"id": "d1"}`)
	})

	id, err := svc.CreateDraft(context.Background(), testToken, "t1", []byte("Subject: hi\r\n\r\nbody"))
	require.NoError(t, err)
	assert.Equal(t, "d1", id)
}
