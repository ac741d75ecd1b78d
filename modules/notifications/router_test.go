package notifications_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenmiles/backend/modules/notifications"
	"github.com/greenmiles/backend/pkg/messages"
	"github.com/greenmiles/backend/pkg/prefs"
)

const userHeader = "X-Test-User"

func headerUserID(r *http.Request) (int64, error) {
	v := r.Header.Get(userHeader)
	if v == "" {
		return 0, errors.New("no session")
	}
	var id int64
	_, err := fmt.Sscan(v, &id)
	return id, err
}

func newTestService(t *testing.T) (*messages.Store, *prefs.Service, http.Handler) {
	t.Helper()
	store := messages.NewStore(messages.NewMemoryStorage())
	prefsSvc := prefs.NewService(prefs.NewMemoryStorage())
	svc := notifications.NewService(store, prefsSvc, headerUserID)
	return store, prefsSvc, svc.Handle()
}

func doJSON(t *testing.T, h http.Handler, method, path string, userID int64, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if userID > 0 {
		req.Header.Set(userHeader, fmt.Sprint(userID))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestListMessages(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _, h := newTestService(t)

	for i := range 3 {
		_, err := store.Create(ctx, messages.Row{
			ReceiverID: 1,
			Title:      fmt.Sprintf("msg %d", i),
			Priority:   messages.PriorityNormal,
		})
		require.NoError(t, err)
	}
	_, err := store.Create(ctx, messages.Row{ReceiverID: 2, Title: "other user", Priority: messages.PriorityNormal})
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodGet, "/messages", 1, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Messages []messages.Message `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Messages, 3, "only the caller's messages")
}

func TestListMessages_Unauthorized(t *testing.T) {
	t.Parallel()

	_, _, h := newTestService(t)
	rec := doJSON(t, h, http.MethodGet, "/messages", 0, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _, h := newTestService(t)

	first, err := store.Create(ctx, messages.Row{ReceiverID: 1, Title: "a", Priority: messages.PriorityNormal})
	require.NoError(t, err)
	_, err = store.Create(ctx, messages.Row{ReceiverID: 1, Title: "b", Priority: messages.PriorityNormal})
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodGet, "/messages/unread-count", 1, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"unread":2}`, rec.Body.String())

	body := fmt.Sprintf(`{"ids":[%q]}`, first.ID)
	rec = doJSON(t, h, http.MethodPost, "/messages/read", 1, body)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/messages/unread-count", 1, "")
	assert.JSONEq(t, `{"unread":1}`, rec.Body.String())
}

func TestMarkRead_BadRequest(t *testing.T) {
	t.Parallel()

	_, _, h := newTestService(t)

	rec := doJSON(t, h, http.MethodPost, "/messages/read", 1, `{"ids":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/messages/read", 1, `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDeleteMessage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store, _, h := newTestService(t)

	msg, err := store.Create(ctx, messages.Row{ReceiverID: 1, Title: "a", Priority: messages.PriorityNormal})
	require.NoError(t, err)

	rec := doJSON(t, h, http.MethodDelete, "/messages/"+msg.ID.String(), 1, "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	list, err := store.List(ctx, 1, messages.ListOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)

	rec = doJSON(t, h, http.MethodDelete, "/messages/not-a-uuid", 1, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Repeating the delete finds nothing, as does an unknown id.
	rec = doJSON(t, h, http.MethodDelete, "/messages/"+msg.ID.String(), 1, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/messages/"+uuid.NewString(), 1, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreferences(t *testing.T) {
	t.Parallel()

	_, prefsSvc, h := newTestService(t)

	rec := doJSON(t, h, http.MethodGet, "/preferences", 1, "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Preferences []prefs.Preference `json:"preferences"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Preferences)
	for _, p := range resp.Preferences {
		assert.True(t, p.Enabled, "everything defaults to enabled")
	}

	body := `{"changes":[{"category":"marketing","enabled":false}]}`
	rec = doJSON(t, h, http.MethodPut, "/preferences", 1, body)
	require.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	for _, p := range resp.Preferences {
		if p.Category == prefs.CategoryMarketing {
			assert.False(t, p.Enabled)
		}
	}

	assert.False(t, prefsSvc.ShouldSend(context.Background(), 1, prefs.CategoryMarketing))
}

func TestUpdatePreferences_LockedCategoryIgnored(t *testing.T) {
	t.Parallel()

	_, prefsSvc, h := newTestService(t)

	body := `{"changes":[{"category":"security","enabled":false}]}`
	rec := doJSON(t, h, http.MethodPut, "/preferences", 1, body)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.True(t, prefsSvc.ShouldSend(context.Background(), 1, prefs.CategorySecurity),
		"locked categories cannot be disabled over the API")
}
