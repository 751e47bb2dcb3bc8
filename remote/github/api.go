package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	gh "github.com/google/go-github/v68/github"

	"github.com/byte4ever/gitremote/remote"
)

const defaultAPIURL = "https://api.github.com/"

// Config holds the settings needed to query a GitHub
// repository.
type Config struct {
	// RepoOwner is the GitHub user or organisation
	// that owns the repository.
	RepoOwner string
	// Repo is the repository name (without owner).
	Repo string
	// EnterpriseHost is an optional GitHub Enterprise
	// hostname (e.g. "git.corp.example.com"). Leave
	// empty for github.com.
	EnterpriseHost string
	// APIURL overrides the REST API root. It wins over
	// EnterpriseHost.
	APIURL string
	// Name is reported as the provider of returned
	// accounts and pull requests. Defaults to "GitHub".
	Name string
	// HTTPClient is used for every request. Optional.
	HTTPClient *http.Client
}

// API fetches commit authors, issues and pull requests
// from GitHub on behalf of a session.
//
// Pattern: Strategy -- implements remote.API.
type API struct {
	baseURL    *url.URL
	httpClient *http.Client
	repoOwner  string
	repo       string
	name       string
}

var _ remote.API = (*API)(nil)

// NewAPI validates cfg and returns an API ready to
// query the repository.
func NewAPI(cfg Config) (*API, error) {
	const errCtx = "creating github api"

	if cfg.RepoOwner == "" {
		return nil, fmt.Errorf(
			"%s: repo owner must be set", errCtx,
		)
	}

	if cfg.Repo == "" {
		return nil, fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	}

	raw := cfg.APIURL
	if raw == "" && cfg.EnterpriseHost != "" {
		raw = "https://" + cfg.EnterpriseHost + "/api/v3/"
	}

	if raw == "" {
		raw = defaultAPIURL
	}

	if !strings.HasSuffix(raw, "/") {
		raw += "/"
	}

	baseURL, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: api url: %w", errCtx, err,
		)
	}

	name := cfg.Name
	if name == "" {
		name = "GitHub"
	}

	return &API{
		baseURL:    baseURL,
		httpClient: cfg.HTTPClient,
		repoOwner:  cfg.RepoOwner,
		repo:       cfg.Repo,
		name:       name,
	}, nil
}

// client returns a GitHub client authenticated with the
// session token.
func (a *API) client(s *remote.Session) *gh.Client {
	c := gh.NewClient(a.httpClient).WithAuthToken(s.AccessToken)

	u := *a.baseURL
	c.BaseURL = &u

	return c
}

// AccountForCommit returns the author of ref.
func (a *API) AccountForCommit(
	ctx context.Context,
	s *remote.Session,
	ref string,
	opts remote.AccountOptions,
) (*remote.Account, error) {
	const errCtx = "fetching github commit author"

	rc, resp, err := a.client(s).Repositories.GetCommit(
		ctx, a.repoOwner, a.repo, ref, nil,
	)
	if notFound(resp) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, classify(err))
	}

	user := rc.GetAuthor()
	author := rc.GetCommit().GetAuthor()

	if user == nil && author == nil {
		return nil, nil
	}

	return &remote.Account{
		Provider: a.name,
		Name:     author.GetName(),
		Email:    author.GetEmail(),
		Username: user.GetLogin(),
		Avatar:   avatar(user.GetAvatarURL(), opts.AvatarSize),
	}, nil
}

// AccountForEmail returns the user whose public email is
// email.
func (a *API) AccountForEmail(
	ctx context.Context,
	s *remote.Session,
	email string,
	opts remote.AccountOptions,
) (*remote.Account, error) {
	const errCtx = "searching github user"

	res, _, err := a.client(s).Search.Users(
		ctx,
		email+" in:email",
		&gh.SearchOptions{ListOptions: gh.ListOptions{PerPage: 1}},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, classify(err))
	}

	if len(res.Users) == 0 {
		return nil, nil
	}

	u := res.Users[0]

	return &remote.Account{
		Provider: a.name,
		Name:     u.GetName(),
		Email:    email,
		Username: u.GetLogin(),
		Avatar:   avatar(u.GetAvatarURL(), opts.AvatarSize),
	}, nil
}

// IssueOrPullRequest returns the issue or pull request
// numbered id.
func (a *API) IssueOrPullRequest(
	ctx context.Context,
	s *remote.Session,
	id string,
) (*remote.IssueOrPullRequest, error) {
	const errCtx = "fetching github issue"

	number, err := strconv.Atoi(id)
	if err != nil {
		return nil, fmt.Errorf(
			"%s: invalid number %q: %w", errCtx, id, err,
		)
	}

	issue, resp, err := a.client(s).Issues.Get(
		ctx, a.repoOwner, a.repo, number,
	)
	if notFound(resp) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, classify(err))
	}

	kind := remote.IssueType
	if issue.IsPullRequest() {
		kind = remote.PullRequestType
	}

	return &remote.IssueOrPullRequest{
		Type:       kind,
		Provider:   a.name,
		ID:         strconv.Itoa(issue.GetNumber()),
		Title:      issue.GetTitle(),
		URL:        issue.GetHTMLURL(),
		Date:       issue.GetCreatedAt().Time,
		Closed:     issue.GetState() == "closed",
		ClosedDate: issue.GetClosedAt().Time,
	}, nil
}

// PullRequestForBranch returns the most recently updated
// pull request whose head is branch, preferring open
// ones.
func (a *API) PullRequestForBranch(
	ctx context.Context,
	s *remote.Session,
	branch string,
	opts remote.PullRequestForBranchOptions,
) (*remote.PullRequest, error) {
	const errCtx = "listing github pull requests"

	prs, _, err := a.client(s).PullRequests.List(
		ctx, a.repoOwner, a.repo,
		&gh.PullRequestListOptions{
			State:       "all",
			Head:        a.repoOwner + ":" + branch,
			Sort:        "updated",
			Direction:   "desc",
			ListOptions: gh.ListOptions{PerPage: 100},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, classify(err))
	}

	var fallback *remote.PullRequest

	for _, pr := range prs {
		conv := a.pullRequest(pr, opts.AvatarSize)
		if !opts.Includes(conv.State) {
			continue
		}

		if conv.State == remote.PullRequestOpen {
			return conv, nil
		}

		if fallback == nil {
			fallback = conv
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
	const errCtx = "listing github pull requests for commit"

	prs, resp, err := a.client(s).PullRequests.ListPullRequestsWithCommit(
		ctx, a.repoOwner, a.repo, ref,
		&gh.ListOptions{PerPage: 10},
	)
	if notFound(resp) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, classify(err))
	}

	if len(prs) == 0 {
		return nil, nil
	}

	for _, pr := range prs {
		if !pr.GetMergedAt().IsZero() {
			return a.pullRequest(pr, 0), nil
		}
	}

	return a.pullRequest(prs[0], 0), nil
}

func (a *API) pullRequest(
	pr *gh.PullRequest,
	avatarSize int,
) *remote.PullRequest {
	state := remote.PullRequestOpen

	switch {
	case !pr.GetMergedAt().IsZero():
		state = remote.PullRequestMerged
	case pr.GetState() == "closed":
		state = remote.PullRequestClosed
	}

	user := pr.GetUser()

	return &remote.PullRequest{
		Provider: a.name,
		ID:       strconv.Itoa(pr.GetNumber()),
		Title:    pr.GetTitle(),
		URL:      pr.GetHTMLURL(),
		State:    state,
		Author: remote.Account{
			Provider: a.name,
			Name:     user.GetName(),
			Email:    user.GetEmail(),
			Username: user.GetLogin(),
			Avatar:   avatar(user.GetAvatarURL(), avatarSize),
		},
		Date:       pr.GetCreatedAt().Time,
		ClosedDate: pr.GetClosedAt().Time,
		MergedDate: pr.GetMergedAt().Time,
	}
}

func notFound(resp *gh.Response) bool {
	return resp != nil &&
		resp.StatusCode == http.StatusNotFound
}

// classify maps a rejected GitHub request onto the
// remote error kinds.
func classify(err error) error {
	var er *gh.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return remote.ClassifyStatus(er.Response.StatusCode, err)
	}

	return err
}

// avatar sets the requested size on a GitHub avatar URL.
func avatar(raw string, size int) string {
	if raw == "" || size <= 0 {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	q := u.Query()
	q.Set("s", strconv.Itoa(size))
	u.RawQuery = q.Encode()

	return u.String()
}
