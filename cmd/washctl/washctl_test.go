package main

import (
	"bytes"
	"encoding/json"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carwash-app/carwash/internal/token"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := new(bytes.Buffer)
	root := newRootCmd()
	root.SetOut(buf)
	root.SetErr(new(bytes.Buffer))
	root.SetArgs(args)
	err := root.Execute()
	return buf.String(), err
}

func TestTokenCmd(t *testing.T) {
	out, err := run(t, "token", "--user-id", "u-1", "--username", "alice", "--secret", "s3cret", "--ttl", "5m")
	require.NoError(t, err)

	claims, err := token.NewManager("s3cret", "carwash-user", "carwash-clients", time.Minute).Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "alice", claims.Subject)
}

func TestTokenCmdNeedsSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := run(t, "token", "--user-id", "u-1", "--username", "alice")
	assert.ErrorContains(t, err, "JWT_SECRET")
}

func TestRecommendCmd(t *testing.T) {
	var got recommendBody
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/recommendations", r.URL.Path)
		assert.Equal(t, "Bearer tkn", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"user_id":"u-1","cached":false}`))
	}))
	defer srv.Close()

	out, err := run(t, "recommend", "--advisor-url", srv.URL, "--user-id", "u-1", "--days", "3", "--force", "--token", "tkn")
	require.NoError(t, err)

	assert.Equal(t, recommendBody{UserID: "u-1", Days: 3, ForceRefresh: true}, got)
	assert.JSONEq(t, `{"user_id":"u-1","cached":false}`, out)
}

func TestRecommendCmdUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"not_found","message":"User u-1 not found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := run(t, "recommend", "--advisor-url", srv.URL, "--user-id", "u-1")
	assert.ErrorContains(t, err, "404")
}

func TestMigrateUnknownService(t *testing.T) {
	_, err := run(t, "migrate", "up", "--service", "billing", "--database-url", "postgres://localhost/x")
	assert.ErrorContains(t, err, `unknown service "billing"`)
}

func TestSchemas(t *testing.T) {
	for _, name := range []string{"user", "weather", "advisor"} {
		s, err := schemaFor(name)
		require.NoError(t, err)
		assert.Equal(t, name+"_schema_migrations", s.table)

		ups, err := fs.Glob(s.fsys, "*.up.sql")
		require.NoError(t, err)
		assert.NotEmpty(t, ups)
	}
}
