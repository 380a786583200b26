package twitch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flusswasser/nightbot-uninstall/internal/domain"
)

type staticTokens struct {
	token string
	err   error
}

func (s *staticTokens) AccessToken(ctx context.Context) (string, error) {
	return s.token, s.err
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	c, err := NewClient("test_client", &staticTokens{token: "tok"}, WithAPIBaseURL(srv.URL))
	require.NoError(t, err)
	return c, srv.Close
}

func TestLiveStreams_BulkQuery(t *testing.T) {
	var gotUserIDs []string
	c, closeSrv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/streams", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		gotUserIDs = r.URL.Query()["user_id"]

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[
			{"id":"s1","user_id":"111","user_login":"alpha","user_name":"Alpha","type":"live","title":"First"},
			{"id":"s2","user_id":"222","user_login":"beta","user_name":"Beta","type":"live","title":"Second"}
		]}`))
	}))
	defer closeSrv()

	live, err := c.LiveStreams(context.Background(), []string{"111", "222", "333"})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"111", "222", "333"}, gotUserIDs)
	require.Len(t, live, 2)
	assert.Equal(t, LiveStream{SessionID: "s1", Title: "First"}, live["111"])
	assert.Equal(t, LiveStream{SessionID: "s2", Title: "Second"}, live["222"])
	_, offline := live["333"]
	assert.False(t, offline)
}

func TestLiveStreams_BatchesLargeIDSets(t *testing.T) {
	var requests int
	var pageSizes []int
	seen := map[string]bool{}
	c, closeSrv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		ids := r.URL.Query()["user_id"]
		pageSizes = append(pageSizes, len(ids))
		for _, id := range ids {
			seen[id] = true
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[]}`))
	}))
	defer closeSrv()

	userIDs := make([]string, 0, 250)
	for i := 0; i < 250; i++ {
		userIDs = append(userIDs, strconv.Itoa(i))
	}

	live, err := c.LiveStreams(context.Background(), userIDs)
	require.NoError(t, err)
	assert.Empty(t, live)

	assert.Equal(t, 3, requests)
	assert.Equal(t, []int{100, 100, 50}, pageSizes)
	assert.Len(t, seen, 250)
}

func TestLiveStreams_EmptyInputSkipsQuery(t *testing.T) {
	c, closeSrv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no upstream call expected for an empty id set")
	}))
	defer closeSrv()

	live, err := c.LiveStreams(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, live)
}

func TestLiveStreams_TokenFailurePropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no upstream call expected when the token exchange fails")
	}))
	defer srv.Close()

	tokenErr := &TokenError{Err: errors.New("exchange down")}
	c, err := NewClient("test_client", &staticTokens{err: tokenErr}, WithAPIBaseURL(srv.URL))
	require.NoError(t, err)

	_, err = c.LiveStreams(context.Background(), []string{"111"})
	var te *TokenError
	assert.ErrorAs(t, err, &te)
}

func TestUserByLogin_Found(t *testing.T) {
	c, closeSrv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "somestreamer", r.URL.Query().Get("login"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"id":"111","login":"somestreamer","display_name":"SomeStreamer","profile_image_url":"https://cdn.example/avatar.png"}]}`))
	}))
	defer closeSrv()

	user, err := c.UserByLogin(context.Background(), "somestreamer")
	require.NoError(t, err)
	assert.Equal(t, "111", user.ID)
	assert.Equal(t, "SomeStreamer", user.DisplayName)
	assert.Equal(t, "https://cdn.example/avatar.png", user.AvatarURL)
}

func TestUserByLogin_NotFound(t *testing.T) {
	c, closeSrv := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[]}`))
	}))
	defer closeSrv()

	_, err := c.UserByLogin(context.Background(), "nosuchuser")
	assert.ErrorIs(t, err, domain.ErrNotFoundUpstream)
}
