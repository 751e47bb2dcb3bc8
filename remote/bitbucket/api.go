package bitbucket

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/gitremote/remote"
)

// Config holds the settings needed to query a Bitbucket
// Server repository.
type Config struct {
	// Host is the base URL of the server
	// (e.g. "https://bb.example.com").
	Host string
	// Project is the project key (e.g. "PROJ").
	Project string
	// Repo is the repository slug.
	Repo string
	// Name is reported as the provider of returned
	// accounts and pull requests. Defaults to
	// "Bitbucket Server".
	Name string
	// HTTPClient is used for every request. Optional.
	HTTPClient *http.Client
}

// API fetches commit authors and pull requests from
// Bitbucket Server on behalf of a session. The session
// token is sent as an HTTP access token.
//
// Pattern: Strategy -- implements remote.API.
type API struct {
	host       string
	repoPath   string
	name       string
	httpClient *http.Client
}

var _ remote.API = (*API)(nil)

// NewAPI validates cfg and returns an API ready to query
// the repository.
func NewAPI(cfg Config) (*API, error) {
	const errCtx = "creating bitbucket api"

	if cfg.Host == "" {
		return nil, fmt.Errorf(
			"%s: host must be set", errCtx,
		)
	}

	if cfg.Project == "" {
		return nil, fmt.Errorf(
			"%s: project must be set", errCtx,
		)
	}

	if cfg.Repo == "" {
		return nil, fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	}

	name := cfg.Name
	if name == "" {
		name = "Bitbucket Server"
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &API{
		host: strings.TrimSuffix(cfg.Host, "/"),
		repoPath: "/projects/" + url.PathEscape(cfg.Project) +
			"/repos/" + url.PathEscape(cfg.Repo),
		name:       name,
		httpClient: httpClient,
	}, nil
}

type user struct {
	Name         string `json:"name"`
	EmailAddress string `json:"emailAddress"`
	DisplayName  string `json:"displayName"`
	Slug         string `json:"slug"`
}

type commit struct {
	ID     string `json:"id"`
	Author user   `json:"author"`
}

type link struct {
	Href string `json:"href"`
}

type participant struct {
	User user `json:"user"`
}

type pullrequest struct {
	ID          int         `json:"id"`
	Title       string      `json:"title"`
	State       string      `json:"state"`
	CreatedDate int64       `json:"createdDate"`
	UpdatedDate int64       `json:"updatedDate"`
	ClosedDate  int64       `json:"closedDate"`
	Author      participant `json:"author"`
	Links       struct {
		Self []link `json:"self"`
	} `json:"links"`
}

type page[T any] struct {
	Values []T `json:"values"`
}

// get decodes the JSON document at path into v. found is
// false on 404.
func (a *API) get(
	ctx context.Context,
	s *remote.Session,
	path string,
	query url.Values,
	v any,
) (found bool, err error) {
	u := a.host + "/rest/api/1.0" + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, u, http.NoBody,
	)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.AccessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("send request: %w", err)
	}

	defer resp.Body.Close() //nolint:errcheck

	rb, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}

	if resp.StatusCode != http.StatusOK {
		slog.Warn(
			"bitbucket response",
			"status", resp.Status,
			"body", string(rb),
		)

		return false, remote.ClassifyStatus(
			resp.StatusCode,
			fmt.Errorf("unexpected status %d", resp.StatusCode),
		)
	}

	if err := json.Unmarshal(rb, v); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}

	return true, nil
}

// AccountForCommit returns the author of ref.
func (a *API) AccountForCommit(
	ctx context.Context,
	s *remote.Session,
	ref string,
	opts remote.AccountOptions,
) (*remote.Account, error) {
	const errCtx = "fetching bitbucket commit author"

	var c commit

	found, err := a.get(
		ctx, s, a.repoPath+"/commits/"+url.PathEscape(ref), nil, &c,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if !found {
		return nil, nil
	}

	acc := a.account(c.Author, opts.AvatarSize)

	return &acc, nil
}

// AccountForEmail returns the user whose address is
// email.
func (a *API) AccountForEmail(
	ctx context.Context,
	s *remote.Session,
	email string,
	opts remote.AccountOptions,
) (*remote.Account, error) {
	const errCtx = "searching bitbucket user"

	var users page[user]

	_, err := a.get(
		ctx, s, "/users",
		url.Values{"filter": {email}, "limit": {"25"}},
		&users,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	for _, u := range users.Values {
		if strings.EqualFold(u.EmailAddress, email) {
			acc := a.account(u, opts.AvatarSize)

			return &acc, nil
		}
	}

	return nil, nil
}

// IssueOrPullRequest returns the pull request numbered
// id. Bitbucket Server has no issues of its own.
func (a *API) IssueOrPullRequest(
	ctx context.Context,
	s *remote.Session,
	id string,
) (*remote.IssueOrPullRequest, error) {
	const errCtx = "fetching bitbucket pull request"

	if _, err := strconv.Atoi(id); err != nil {
		return nil, fmt.Errorf(
			"%s: invalid number %q: %w", errCtx, id, err,
		)
	}

	var pr pullrequest

	found, err := a.get(
		ctx, s, a.repoPath+"/pull-requests/"+id, nil, &pr,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if !found {
		return nil, nil
	}

	conv := a.pullRequest(pr, 0)

	return &remote.IssueOrPullRequest{
		Type:       remote.PullRequestType,
		Provider:   a.name,
		ID:         conv.ID,
		Title:      conv.Title,
		URL:        conv.URL,
		Date:       conv.Date,
		Closed:     conv.State != remote.PullRequestOpen,
		ClosedDate: conv.ClosedDate,
	}, nil
}

// PullRequestForBranch returns the newest pull request
// from branch, preferring open ones.
func (a *API) PullRequestForBranch(
	ctx context.Context,
	s *remote.Session,
	branch string,
	opts remote.PullRequestForBranchOptions,
) (*remote.PullRequest, error) {
	const errCtx = "listing bitbucket pull requests"

	var prs page[pullrequest]

	_, err := a.get(
		ctx, s, a.repoPath+"/pull-requests",
		url.Values{
			"at":        {"refs/heads/" + branch},
			"direction": {"OUTGOING"},
			"state":     {"ALL"},
			"order":     {"NEWEST"},
			"limit":     {"100"},
		},
		&prs,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var fallback *remote.PullRequest

	for _, raw := range prs.Values {
		pr := a.pullRequest(raw, opts.AvatarSize)
		if !opts.Includes(pr.State) {
			continue
		}

		if pr.State == remote.PullRequestOpen {
			return pr, nil
		}

		if fallback == nil {
			fallback = pr
		}
	}

	return fallback, nil
}

// PullRequestForCommit returns the pull request that
// introduced ref, preferring a merged one.
func (a *API) PullRequestForCommit(
	ctx context.Context,
	s *remote.Session,
	ref string,
) (*remote.PullRequest, error) {
	const errCtx = "listing bitbucket pull requests for commit"

	var prs page[pullrequest]

	found, err := a.get(
		ctx, s,
		a.repoPath+"/commits/"+url.PathEscape(ref)+"/pull-requests",
		nil, &prs,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if !found || len(prs.Values) == 0 {
		return nil, nil
	}

	for _, raw := range prs.Values {
		if raw.State == "MERGED" {
			return a.pullRequest(raw, 0), nil
		}
	}

	return a.pullRequest(prs.Values[0], 0), nil
}

func (a *API) pullRequest(
	raw pullrequest,
	avatarSize int,
) *remote.PullRequest {
	pr := &remote.PullRequest{
		Provider: a.name,
		ID:       strconv.Itoa(raw.ID),
		Title:    raw.Title,
		State:    remote.PullRequestOpen,
		Author:   a.account(raw.Author.User, avatarSize),
		Date:     millis(raw.CreatedDate),
	}

	if len(raw.Links.Self) > 0 {
		pr.URL = raw.Links.Self[0].Href
	}

	switch raw.State {
	case "MERGED":
		pr.State = remote.PullRequestMerged
		pr.MergedDate = millis(raw.ClosedDate)
		pr.ClosedDate = pr.MergedDate
	case "DECLINED":
		pr.State = remote.PullRequestClosed
		pr.ClosedDate = millis(raw.ClosedDate)
	}

	return pr
}

func (a *API) account(u user, avatarSize int) remote.Account {
	acc := remote.Account{
		Provider: a.name,
		Name:     u.DisplayName,
		Email:    u.EmailAddress,
		Username: u.Name,
	}

	if u.Slug != "" {
		acc.Avatar = a.host + "/users/" + u.Slug + "/avatar.png"
		if avatarSize > 0 {
			acc.Avatar += "?s=" + strconv.Itoa(avatarSize)
		}
	}

	return acc
}

func millis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}

	return time.UnixMilli(ms)
}
