package vaultclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubServer answers GraphQL requests by matching a substring of the query.
type stubServer struct {
	t        *testing.T
	handlers map[string]func(w http.ResponseWriter, r *http.Request)
}

func newStubServer(t *testing.T) (*stubServer, *httptest.Server) {
	t.Helper()
	s := &stubServer{t: t, handlers: map[string]func(http.ResponseWriter, *http.Request){}}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return s, srv
}

func (s *stubServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var query string
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		require.NoError(s.t, r.ParseMultipartForm(8<<20))
		query = r.FormValue("operations")
	} else {
		var body struct {
			Query string `json:"query"`
		}
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&body))
		query = body.Query
	}

	for marker, handler := range s.handlers {
		if strings.Contains(query, marker) {
			handler(w, r)
			return
		}
	}
	s.t.Fatalf("no stub for query: %s", query)
}

func (s *stubServer) respond(marker string, payload string) {
	s.handlers[marker] = func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, payload)
	}
}

func tokenPayloadJSON(t *testing.T, field string, token string) string {
	t.Helper()
	return fmt.Sprintf(`{"data":{"%s":{"accessToken":%q,"tokenType":"Bearer","expiresIn":3600,"user":{"id":"u1","name":"Jane","email":"jane@example.com","avatarUrl":null}}}}`,
		field, token)
}

func TestClient_LoginStoresToken(t *testing.T) {
	stub, srv := newStubServer(t)
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	stub.respond("issueToken", tokenPayloadJSON(t, "issueToken", fakeJWT(t, exp)))

	client := New(srv.URL, NewMemoryTokenStore())
	user, err := client.Login(context.Background(), "jane@example.com", "correct-horse")
	require.NoError(t, err)

	assert.Equal(t, "jane@example.com", user.Email)
	assert.True(t, client.Session().Authenticated())

	stored, err := client.Session().store.Load()
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.ExpiresAt.Equal(exp), "expiry decoded from the token itself")
}

func TestClient_ChangePasswordKeepsSession(t *testing.T) {
	stub, srv := newStubServer(t)
	stub.respond("issueToken", tokenPayloadJSON(t, "issueToken", fakeJWT(t, time.Now().Add(time.Hour))))
	stub.respond("changePassword",
		`{"data":{"changePassword":{"user":{"id":"u1","name":"Jane","email":"jane@example.com","avatarUrl":null}}}}`)

	client := New(srv.URL, NewMemoryTokenStore())
	_, err := client.Login(context.Background(), "jane@example.com", "correct-horse")
	require.NoError(t, err)

	require.NoError(t, client.ChangePassword(context.Background(), "correct-horse", "fresh-password"))
	assert.True(t, client.Session().Authenticated(), "the presented token stays valid after the change")
}

func TestClient_MeSendsBearer(t *testing.T) {
	stub, srv := newStubServer(t)
	stub.respond("issueToken", tokenPayloadJSON(t, "issueToken", fakeJWT(t, time.Now().Add(time.Hour))))

	var gotAuth string
	stub.handlers["me{"] = func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"me":{"id":"u1","name":"Jane","email":"jane@example.com","avatarUrl":null}}}`)
	}

	client := New(srv.URL, NewMemoryTokenStore())
	_, err := client.Login(context.Background(), "jane@example.com", "correct-horse")
	require.NoError(t, err)

	me, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Jane", me.Name)
	assert.Equal(t, "Bearer "+client.Session().Token(), gotAuth)
}

func TestClient_HTTP401ForcesLogout(t *testing.T) {
	stub, srv := newStubServer(t)
	stub.respond("issueToken", tokenPayloadJSON(t, "issueToken", fakeJWT(t, time.Now().Add(time.Hour))))
	stub.handlers["me{"] = func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}

	client := New(srv.URL, NewMemoryTokenStore())
	_, err := client.Login(context.Background(), "jane@example.com", "correct-horse")
	require.NoError(t, err)
	require.True(t, client.Session().Authenticated())

	_, err = client.Me(context.Background())
	assert.Error(t, err)
	assert.False(t, client.Session().Authenticated(), "401 forces logout")
}

func TestClient_UnauthenticatedErrorCodeForcesLogout(t *testing.T) {
	stub, srv := newStubServer(t)
	stub.respond("issueToken", tokenPayloadJSON(t, "issueToken", fakeJWT(t, time.Now().Add(time.Hour))))
	stub.respond("me{", `{"data":null,"errors":[{"message":"Authentication required","extensions":{"code":"UNAUTHENTICATED"}}]}`)

	client := New(srv.URL, NewMemoryTokenStore())
	_, err := client.Login(context.Background(), "jane@example.com", "correct-horse")
	require.NoError(t, err)

	_, err = client.Me(context.Background())
	assert.Error(t, err)
	assert.False(t, client.Session().Authenticated())
}

func TestClient_UploadImageMultipart(t *testing.T) {
	stub, srv := newStubServer(t)
	stub.respond("issueToken", tokenPayloadJSON(t, "issueToken", fakeJWT(t, time.Now().Add(time.Hour))))

	stub.handlers["uploadImageAsset"] = func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(8<<20))

		var fileMap map[string][]string
		require.NoError(t, json.Unmarshal([]byte(r.FormValue("map")), &fileMap))
		assert.Equal(t, []string{"variables.file"}, fileMap["0"])

		_, header, err := r.FormFile("0")
		require.NoError(t, err)
		assert.Equal(t, "cat.png", header.Filename)

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"uploadImageAsset":{"id":"a1","name":"cat","fileName":"cat.png","url":"/storage/cat_1.png","thumbnailUrl":"/storage/thumbnails/cat_1_thumb.png","fileSize":3,"mimeType":"image/png","width":900,"height":600,"tags":[],"description":null,"altText":null}}}`)
	}

	client := New(srv.URL, NewMemoryTokenStore())
	_, err := client.Login(context.Background(), "jane@example.com", "correct-horse")
	require.NoError(t, err)

	asset, err := client.UploadImage(context.Background(), "cat.png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.Equal(t, "a1", asset.ID)
	require.NotNil(t, asset.Width)
	assert.Equal(t, 900, *asset.Width)
	assert.Empty(t, asset.Tags)
}

func TestClient_RefreshTokenPresentsCurrentToken(t *testing.T) {
	stub, srv := newStubServer(t)
	issued := fakeJWT(t, time.Now().Add(time.Hour))
	renewed := fakeJWT(t, time.Now().Add(2*time.Hour))
	stub.respond("issueToken", tokenPayloadJSON(t, "issueToken", issued))

	var refreshAuth string
	stub.handlers["refreshToken"] = func(w http.ResponseWriter, r *http.Request) {
		refreshAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, tokenPayloadJSON(t, "refreshToken", renewed))
	}

	client := New(srv.URL, NewMemoryTokenStore())
	_, err := client.Login(context.Background(), "jane@example.com", "correct-horse")
	require.NoError(t, err)

	refreshed, err := client.Session().Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, refreshed)
	assert.Equal(t, "Bearer "+issued, refreshAuth)
	assert.Equal(t, renewed, client.Session().Token())
}
