package gitlab

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	gl "gitlab.com/gitlab-org/api/client-go"

	"github.com/byte4ever/gitremote/remote"
)

// Config holds the settings needed to query a GitLab
// project.
type Config struct {
	// Host is the base URL of the GitLab instance
	// (e.g. "https://gitlab.com").
	Host string
	// Repo is the full project path
	// (e.g. "org/project").
	Repo string
	// Name is reported as the provider of returned
	// accounts and merge requests. Defaults to "GitLab".
	Name string
	// HTTPClient is used for every request. Optional.
	HTTPClient *http.Client
}

// API fetches commit authors, issues and merge requests
// from GitLab on behalf of a session.
//
// Pattern: Strategy -- implements remote.API.
type API struct {
	host       string
	project    string
	name       string
	httpClient *http.Client
}

var _ remote.API = (*API)(nil)

// NewAPI validates cfg and returns an API ready to query
// the project.
func NewAPI(cfg Config) (*API, error) {
	const errCtx = "creating gitlab api"

	if cfg.Repo == "" {
		return nil, fmt.Errorf(
			"%s: repo must be set", errCtx,
		)
	}

	host := cfg.Host
	if host == "" {
		host = "https://gitlab.com"
	}

	name := cfg.Name
	if name == "" {
		name = "GitLab"
	}

	return &API{
		host:       host,
		project:    url.PathEscape(cfg.Repo),
		name:       name,
		httpClient: cfg.HTTPClient,
	}, nil
}

type user struct {
	Username  string `json:"username"`
	Name      string `json:"name"`
	Email     string `json:"public_email"`
	AvatarURL string `json:"avatar_url"`
}

type commit struct {
	ID          string `json:"id"`
	AuthorName  string `json:"author_name"`
	AuthorEmail string `json:"author_email"`
}

type issue struct {
	IID       int        `json:"iid"`
	Title     string     `json:"title"`
	State     string     `json:"state"`
	WebURL    string     `json:"web_url"`
	CreatedAt *time.Time `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at"`
}

type mergeRequest struct {
	issue

	MergedAt *time.Time `json:"merged_at"`
	Author   *user      `json:"author"`
}

type listOptions struct {
	Search       string `url:"search,omitempty"`
	SourceBranch string `url:"source_branch,omitempty"`
	OrderBy      string `url:"order_by,omitempty"`
	Sort         string `url:"sort,omitempty"`
	PerPage      int    `url:"per_page,omitempty"`
}

// get decodes the JSON document at path into v. found is
// false on 404.
func (a *API) get(
	ctx context.Context,
	s *remote.Session,
	path string,
	opt any,
	v any,
) (found bool, err error) {
	opts := []gl.ClientOptionFunc{gl.WithBaseURL(a.host)}
	if a.httpClient != nil {
		opts = append(opts, gl.WithHTTPClient(a.httpClient))
	}

	client, err := gl.NewClient(s.AccessToken, opts...)
	if err != nil {
		return false, fmt.Errorf("new client: %w", err)
	}

	req, err := client.NewRequest(
		http.MethodGet,
		path,
		opt,
		[]gl.RequestOptionFunc{gl.WithContext(ctx)},
	)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}

	resp, err := client.Do(req, v)
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return false, nil
	}

	if err != nil {
		return false, classify(err)
	}

	return true, nil
}

// AccountForCommit returns the author of ref. The GitLab
// user is looked up by the commit email; when none
// matches, the account carries the commit identity only.
func (a *API) AccountForCommit(
	ctx context.Context,
	s *remote.Session,
	ref string,
	opts remote.AccountOptions,
) (*remote.Account, error) {
	const errCtx = "fetching gitlab commit author"

	var c commit

	found, err := a.get(
		ctx, s,
		"projects/"+a.project+"/repository/commits/"+url.PathEscape(ref),
		nil, &c,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if !found {
		return nil, nil
	}

	acc, err := a.AccountForEmail(ctx, s, c.AuthorEmail, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if acc == nil {
		acc = &remote.Account{Provider: a.name}
	}

	acc.Name = c.AuthorName
	acc.Email = c.AuthorEmail

	return acc, nil
}

// AccountForEmail returns the user matching email.
func (a *API) AccountForEmail(
	ctx context.Context,
	s *remote.Session,
	email string,
	opts remote.AccountOptions,
) (*remote.Account, error) {
	const errCtx = "searching gitlab user"

	if email == "" {
		return nil, nil
	}

	var users []user

	_, err := a.get(
		ctx, s, "users",
		&listOptions{Search: email, PerPage: 1},
		&users,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if len(users) == 0 {
		return nil, nil
	}

	acc := a.account(&users[0], opts.AvatarSize)
	acc.Email = email

	return &acc, nil
}

// IssueOrPullRequest returns the issue numbered id, or
// the merge request with that number when no such issue
// exists.
func (a *API) IssueOrPullRequest(
	ctx context.Context,
	s *remote.Session,
	id string,
) (*remote.IssueOrPullRequest, error) {
	const errCtx = "fetching gitlab issue"

	if _, err := strconv.Atoi(id); err != nil {
		return nil, fmt.Errorf(
			"%s: invalid number %q: %w", errCtx, id, err,
		)
	}

	var is issue

	found, err := a.get(
		ctx, s, "projects/"+a.project+"/issues/"+id, nil, &is,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	kind := remote.IssueType

	if !found {
		var mr mergeRequest

		found, err = a.get(
			ctx, s,
			"projects/"+a.project+"/merge_requests/"+id,
			nil, &mr,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", errCtx, err)
		}

		if !found {
			return nil, nil
		}

		is = mr.issue
		kind = remote.PullRequestType
	}

	return &remote.IssueOrPullRequest{
		Type:       kind,
		Provider:   a.name,
		ID:         strconv.Itoa(is.IID),
		Title:      is.Title,
		URL:        is.WebURL,
		Date:       deref(is.CreatedAt),
		Closed:     is.State == "closed" || is.State == "merged",
		ClosedDate: deref(is.ClosedAt),
	}, nil
}

// PullRequestForBranch returns the most recently updated
// merge request from branch, preferring open ones.
func (a *API) PullRequestForBranch(
	ctx context.Context,
	s *remote.Session,
	branch string,
	opts remote.PullRequestForBranchOptions,
) (*remote.PullRequest, error) {
	const errCtx = "listing gitlab merge requests"

	var mrs []mergeRequest

	_, err := a.get(
		ctx, s, "projects/"+a.project+"/merge_requests",
		&listOptions{
			SourceBranch: branch,
			OrderBy:      "updated_at",
			Sort:         "desc",
			PerPage:      100,
		},
		&mrs,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	var fallback *remote.PullRequest

	for i := range mrs {
		pr := a.pullRequest(&mrs[i], opts.AvatarSize)
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

// PullRequestForCommit returns the merge request that
// introduced ref, preferring a merged one.
func (a *API) PullRequestForCommit(
	ctx context.Context,
	s *remote.Session,
	ref string,
) (*remote.PullRequest, error) {
	const errCtx = "listing gitlab merge requests for commit"

	var mrs []mergeRequest

	_, err := a.get(
		ctx, s,
		"projects/"+a.project+"/repository/commits/"+
			url.PathEscape(ref)+"/merge_requests",
		nil, &mrs,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", errCtx, err)
	}

	if len(mrs) == 0 {
		return nil, nil
	}

	for i := range mrs {
		if mrs[i].State == "merged" {
			return a.pullRequest(&mrs[i], 0), nil
		}
	}

	return a.pullRequest(&mrs[0], 0), nil
}

func (a *API) pullRequest(
	mr *mergeRequest,
	avatarSize int,
) *remote.PullRequest {
	state := remote.PullRequestOpen

	switch mr.State {
	case "merged":
		state = remote.PullRequestMerged
	case "closed", "locked":
		state = remote.PullRequestClosed
	}

	pr := &remote.PullRequest{
		Provider:   a.name,
		ID:         strconv.Itoa(mr.IID),
		Title:      mr.Title,
		URL:        mr.WebURL,
		State:      state,
		Date:       deref(mr.CreatedAt),
		ClosedDate: deref(mr.ClosedAt),
		MergedDate: deref(mr.MergedAt),
	}

	if mr.Author != nil {
		pr.Author = a.account(mr.Author, avatarSize)
	}

	return pr
}

func (a *API) account(u *user, avatarSize int) remote.Account {
	return remote.Account{
		Provider: a.name,
		Name:     u.Name,
		Email:    u.Email,
		Username: u.Username,
		Avatar:   avatar(u.AvatarURL, avatarSize),
	}
}

// classify maps a rejected GitLab request onto the remote
// error kinds.
func classify(err error) error {
	var er *gl.ErrorResponse
	if errors.As(err, &er) && er.Response != nil {
		return remote.ClassifyStatus(er.Response.StatusCode, err)
	}

	return err
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}

	return *t
}

// avatar sets the requested width on a GitLab avatar URL.
func avatar(raw string, size int) string {
	if raw == "" || size <= 0 {
		return raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	q := u.Query()
	q.Set("width", strconv.Itoa(size))
	u.RawQuery = q.Encode()

	return u.String()
}
