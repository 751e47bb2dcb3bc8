package remote

import (
	"context"
	"time"
)

// Account is a forge user, typically a commit author.
type Account struct {
	// Provider is the display name of the forge.
	Provider string
	Name     string
	Email    string
	Username string
	// Avatar is the URL of the user's avatar.
	Avatar string
}

// IssueOrPullRequestType tells issues and pull requests
// apart.
type IssueOrPullRequestType int

// Issue or pull request.
const (
	IssueType IssueOrPullRequestType = iota + 1
	PullRequestType
)

// IssueOrPullRequest is the common shape of an issue or a
// pull request referenced from commit messages.
type IssueOrPullRequest struct {
	Type     IssueOrPullRequestType
	Provider string
	ID       string
	Title    string
	URL      string
	Date     time.Time
	Closed   bool
	// ClosedDate is zero while the item is open.
	ClosedDate time.Time
}

// PullRequestState is the lifecycle state of a pull
// request.
type PullRequestState string

// Pull request states.
const (
	PullRequestOpen   PullRequestState = "Open"
	PullRequestClosed PullRequestState = "Closed"
	PullRequestMerged PullRequestState = "Merged"
)

// PullRequest is a pull (or merge) request.
type PullRequest struct {
	Provider   string
	ID         string
	Title      string
	URL        string
	State      PullRequestState
	Author     Account
	Date       time.Time
	ClosedDate time.Time
	MergedDate time.Time
}

// AccountOptions tunes account lookups.
type AccountOptions struct {
	// AvatarSize requests an avatar of this many pixels.
	// Zero keeps the forge default.
	AvatarSize int
}

// PullRequestForBranchOptions tunes PullRequestForBranch.
type PullRequestForBranchOptions struct {
	AvatarSize int
	// Include restricts the states considered. Empty
	// means every state.
	Include []PullRequestState
}

// Includes reports whether state passes the Include
// filter.
func (o PullRequestForBranchOptions) Includes(
	state PullRequestState,
) bool {
	if len(o.Include) == 0 {
		return true
	}

	for _, s := range o.Include {
		if s == state {
			return true
		}
	}

	return false
}

// AuthProvider names the credential provider and the
// scopes a rich provider asks for.
type AuthProvider struct {
	ID     string
	Scopes []string
}

// API fetches rich data from a forge on behalf of a
// session. Implementations return a nil result with a nil
// error when nothing matches, and wrap rejections in
// AuthenticationError or ClientError.
type API interface {
	AccountForCommit(
		ctx context.Context,
		s *Session,
		ref string,
		opts AccountOptions,
	) (*Account, error)
	AccountForEmail(
		ctx context.Context,
		s *Session,
		email string,
		opts AccountOptions,
	) (*Account, error)
	IssueOrPullRequest(
		ctx context.Context,
		s *Session,
		id string,
	) (*IssueOrPullRequest, error)
	PullRequestForBranch(
		ctx context.Context,
		s *Session,
		branch string,
		opts PullRequestForBranchOptions,
	) (*PullRequest, error)
	PullRequestForCommit(
		ctx context.Context,
		s *Session,
		ref string,
	) (*PullRequest, error)
}
