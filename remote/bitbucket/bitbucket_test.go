package bitbucket_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitremote/remote"
	bb "github.com/byte4ever/gitremote/remote/bitbucket"
)

var session = &remote.Session{ID: "s", AccessToken: "tok"}

const repoPath = "/rest/api/1.0/projects/PROJ/repos/repo"

func TestNewAPI_valid(t *testing.T) {
	t.Parallel()

	api, err := bb.NewAPI(bb.Config{
		Host:    "https://bb.example.com",
		Project: "PROJ",
		Repo:    "repo",
	})

	require.NoError(t, err)
	assert.NotNil(t, api)
}

func TestNewAPI_missing_host(t *testing.T) {
	t.Parallel()

	api, err := bb.NewAPI(bb.Config{Project: "PROJ", Repo: "repo"})

	assert.Nil(t, api)
	assert.ErrorContains(t, err, "host must be set")
}

func TestNewAPI_missing_project(t *testing.T) {
	t.Parallel()

	api, err := bb.NewAPI(bb.Config{
		Host: "https://bb.example.com",
		Repo: "repo",
	})

	assert.Nil(t, api)
	assert.ErrorContains(t, err, "project must be set")
}

func TestNewAPI_missing_repo(t *testing.T) {
	t.Parallel()

	api, err := bb.NewAPI(bb.Config{
		Host:    "https://bb.example.com",
		Project: "PROJ",
	})

	assert.Nil(t, api)
	assert.ErrorContains(t, err, "repo must be set")
}

func TestBuilder(t *testing.T) {
	t.Parallel()

	b := bb.NewBuilder(remote.Identity{
		Domain: "bb.example.com",
		Path:   "PROJ/repo",
	})

	base := "https://bb.example.com/projects/PROJ/repos/repo"

	assert.Equal(t, base, b.RepoURL())
	assert.Equal(t, base+"/branches", b.BranchesURL())
	assert.Equal(
		t, base+"/commits?until=refs/heads/dev", b.BranchURL("dev"),
	)
	assert.Equal(t, base+"/commits/abc", b.CommitURL("abc"))
	assert.Equal(
		t,
		base+"/browse/src/a.go?at=abc#3-5",
		b.FileURL("src/a.go", "main", "abc", &remote.Range{Start: 3, End: 5}),
	)
	assert.Equal(
		t,
		base+"/browse/a.go?at=refs/heads/main#3",
		b.FileURL("a.go", "main", "", &remote.Range{Start: 3, End: 3}),
	)
	assert.Equal(t, base+"/browse/a.go", b.FileURL("a.go", "", "", nil))

	_, ok := any(b).(remote.ComparisonBuilder)
	assert.False(t, ok)
}

func TestProvider_comparison_unsupported(t *testing.T) {
	t.Parallel()

	id := remote.Identity{
		ID:     "bitbucket-server",
		Name:   "Bitbucket Server",
		Domain: "bb.example.com",
		Path:   "PROJ/repo",
	}

	p, err := remote.NewProvider(remote.Config{
		Identity: id,
		Builder:  bb.NewBuilder(id),
	})
	require.NoError(t, err)

	_, ok := p.ResolveURL(remote.Comparison{Base: "a", Compare: "b"})
	assert.False(t, ok)
}

func newServer(
	t *testing.T,
	routes map[string]http.HandlerFunc,
) (*bb.API, string) {
	t.Helper()

	mux := http.NewServeMux()
	for pattern, h := range routes {
		mux.HandleFunc(pattern, func(
			w http.ResponseWriter,
			r *http.Request,
		) {
			assert.Equal(
				t, "Bearer tok", r.Header.Get("Authorization"),
			)
			h(w, r)
		})
	}

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)

	api, err := bb.NewAPI(bb.Config{
		Host:       ts.URL,
		Project:    "PROJ",
		Repo:       "repo",
		HTTPClient: ts.Client(),
	})
	require.NoError(t, err)

	return api, ts.URL
}

func reply(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body) //nolint:errcheck
	}
}

func TestAPI_AccountForCommit(t *testing.T) {
	t.Parallel()

	api, host := newServer(t, map[string]http.HandlerFunc{
		"GET " + repoPath + "/commits/abc": reply(http.StatusOK, `{
			"id": "abc",
			"author": {
				"name": "jdoe",
				"emailAddress": "jane@example.com",
				"displayName": "Jane Doe",
				"slug": "jdoe"
			}
		}`),
	})

	acc, err := api.AccountForCommit(
		context.Background(), session, "abc",
		remote.AccountOptions{AvatarSize: 48},
	)

	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, "Bitbucket Server", acc.Provider)
	assert.Equal(t, "Jane Doe", acc.Name)
	assert.Equal(t, "jdoe", acc.Username)
	assert.Equal(t, host+"/users/jdoe/avatar.png?s=48", acc.Avatar)
}

func TestAPI_AccountForCommit_not_found(t *testing.T) {
	t.Parallel()

	api, _ := newServer(t, nil)

	acc, err := api.AccountForCommit(
		context.Background(), session, "abc", remote.AccountOptions{},
	)

	require.NoError(t, err)
	assert.Nil(t, acc)
}

func TestAPI_rejections_are_classified(t *testing.T) {
	t.Parallel()

	api, _ := newServer(t, map[string]http.HandlerFunc{
		"GET " + repoPath + "/commits/bad": reply(
			http.StatusUnauthorized, `{"errors": []}`,
		),
		"GET " + repoPath + "/commits/odd": reply(
			http.StatusBadRequest, `{"errors": []}`,
		),
		"GET " + repoPath + "/commits/down": reply(
			http.StatusServiceUnavailable, `{"errors": []}`,
		),
	})

	ctx := context.Background()

	_, err := api.AccountForCommit(
		ctx, session, "bad", remote.AccountOptions{},
	)
	assert.True(t, remote.IsAuthenticationError(err))

	_, err = api.AccountForCommit(
		ctx, session, "odd", remote.AccountOptions{},
	)
	assert.True(t, remote.IsClientError(err))

	_, err = api.AccountForCommit(
		ctx, session, "down", remote.AccountOptions{},
	)
	require.Error(t, err)
	assert.False(t, remote.IsClientError(err))
}

func TestAPI_AccountForEmail(t *testing.T) {
	t.Parallel()

	api, _ := newServer(t, map[string]http.HandlerFunc{
		"GET /rest/api/1.0/users": func(
			w http.ResponseWriter,
			r *http.Request,
		) {
			assert.Equal(
				t, "jane@example.com", r.URL.Query().Get("filter"),
			)
			reply(http.StatusOK, `{"values": [
				{"name": "jane2", "emailAddress": "jane2@example.com"},
				{"name": "jdoe", "emailAddress": "Jane@Example.com"}
			]}`)(w, r)
		},
	})

	acc, err := api.AccountForEmail(
		context.Background(), session, "jane@example.com",
		remote.AccountOptions{},
	)

	require.NoError(t, err)
	require.NotNil(t, acc)
	assert.Equal(t, "jdoe", acc.Username)
}

func TestAPI_IssueOrPullRequest(t *testing.T) {
	t.Parallel()

	api, _ := newServer(t, map[string]http.HandlerFunc{
		"GET " + repoPath + "/pull-requests/12": reply(http.StatusOK, `{
			"id": 12,
			"title": "Feature",
			"state": "DECLINED",
			"createdDate": 1704067200000,
			"closedDate": 1704153600000,
			"links": {"self": [{"href": "https://bb.example.com/pr/12"}]}
		}`),
	})

	item, err := api.IssueOrPullRequest(
		context.Background(), session, "12",
	)

	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, remote.PullRequestType, item.Type)
	assert.Equal(t, "https://bb.example.com/pr/12", item.URL)
	assert.True(t, item.Closed)
	assert.Equal(
		t,
		time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		item.ClosedDate.UTC(),
	)
}

func TestAPI_PullRequestForBranch(t *testing.T) {
	t.Parallel()

	api, _ := newServer(t, map[string]http.HandlerFunc{
		"GET " + repoPath + "/pull-requests": func(
			w http.ResponseWriter,
			r *http.Request,
		) {
			assert.Equal(
				t, "refs/heads/feature", r.URL.Query().Get("at"),
			)
			reply(http.StatusOK, `{"values": [
				{"id": 1, "state": "MERGED", "closedDate": 1704067200000},
				{"id": 2, "state": "OPEN"}
			]}`)(w, r)
		},
	})

	ctx := context.Background()

	pr, err := api.PullRequestForBranch(
		ctx, session, "feature", remote.PullRequestForBranchOptions{},
	)

	require.NoError(t, err)
	require.NotNil(t, pr)
	assert.Equal(t, "2", pr.ID)

	pr, err = api.PullRequestForBranch(
		ctx, session, "feature",
		remote.PullRequestForBranchOptions{
			Include: []remote.PullRequestState{
				remote.PullRequestMerged,
			},
		},
	)

	require.NoError(t, err)
	require.NotNil(t, pr)
	assert.Equal(t, "1", pr.ID)
	assert.False(t, pr.MergedDate.IsZero())
}

func TestAPI_PullRequestForCommit(t *testing.T) {
	t.Parallel()

	api, _ := newServer(t, map[string]http.HandlerFunc{
		"GET " + repoPath + "/commits/abc/pull-requests": reply(
			http.StatusOK, `{"values": [
				{"id": 5, "state": "OPEN"},
				{"id": 6, "state": "MERGED"}
			]}`,
		),
		"GET " + repoPath + "/commits/def/pull-requests": reply(
			http.StatusOK, `{"values": []}`,
		),
	})

	ctx := context.Background()

	pr, err := api.PullRequestForCommit(ctx, session, "abc")

	require.NoError(t, err)
	require.NotNil(t, pr)
	assert.Equal(t, "6", pr.ID)
	assert.Equal(t, remote.PullRequestMerged, pr.State)

	pr, err = api.PullRequestForCommit(ctx, session, "def")

	require.NoError(t, err)
	assert.Nil(t, pr)
}
