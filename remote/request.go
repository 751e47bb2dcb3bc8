package remote

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

// request runs fetch with the current session. Concurrent
// calls with the same op and arg share one fetch. Rejected
// requests count towards MaxRequestFailures; the error is
// returned for the caller's bookkeeping only.
func request[T any](
	ctx context.Context,
	p *RichProvider,
	op string,
	arg string,
	fetch func(context.Context, *Session) (*T, error),
) (*T, error) {
	v, err, _ := p.calls.Do(op+"\x00"+arg, func() (any, error) {
		s := p.currentSession(ctx)
		if s == nil {
			return nil, errNotConnected
		}

		p.mu.Lock()
		epoch := p.epoch
		p.mu.Unlock()

		res, err := fetch(ctx, s)
		if err != nil {
			p.handleRequestFailure(op, epoch, err)

			return nil, err
		}

		p.resetFailures()

		return res, nil
	})
	if err != nil {
		return nil, err
	}

	res, _ := v.(*T)

	return res, nil
}

func (p *RichProvider) resetFailures() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.failures = 0
}

// handleRequestFailure counts rejections and disconnects
// once MaxRequestFailures is reached. Other errors are
// only logged. Rejections of requests started before the
// last disconnect are not counted.
func (p *RichProvider) handleRequestFailure(
	op string,
	epoch uint64,
	err error,
) {
	key := p.ident.Key()

	if !IsAuthenticationError(err) && !IsClientError(err) {
		slog.Error(
			"request failed",
			"provider", key,
			"op", op,
			"error", err,
		)

		return
	}

	p.mu.Lock()
	if p.epoch != epoch {
		p.mu.Unlock()

		slog.Debug(
			"ignoring rejection, disconnected meanwhile",
			"provider", key,
			"op", op,
		)

		return
	}

	p.failures++
	n := p.failures
	p.mu.Unlock()

	slog.Warn(
		"request rejected",
		"provider", key,
		"op", op,
		"failures", n,
		"error", err,
	)

	if n >= MaxRequestFailures {
		slog.Warn(
			"too many rejected requests, disconnecting",
			"provider", key,
		)
		p.disconnect(false)
	}
}

// AccountForCommit returns the author of ref, or nil.
func (p *RichProvider) AccountForCommit(
	ctx context.Context,
	ref string,
	opts AccountOptions,
) *Account {
	arg := ref + "@" + strconv.Itoa(opts.AvatarSize)

	acc, _ := request(ctx, p, "accountForCommit", arg,
		func(ctx context.Context, s *Session) (*Account, error) {
			return p.api.AccountForCommit(ctx, s, ref, opts)
		},
	)

	return acc
}

// AccountForEmail returns the account owning email, or
// nil.
func (p *RichProvider) AccountForEmail(
	ctx context.Context,
	email string,
	opts AccountOptions,
) *Account {
	arg := email + "@" + strconv.Itoa(opts.AvatarSize)

	acc, _ := request(ctx, p, "accountForEmail", arg,
		func(ctx context.Context, s *Session) (*Account, error) {
			return p.api.AccountForEmail(ctx, s, email, opts)
		},
	)

	return acc
}

// IssueOrPullRequest returns the issue or pull request
// numbered id, or nil.
func (p *RichProvider) IssueOrPullRequest(
	ctx context.Context,
	id string,
) *IssueOrPullRequest {
	item, _ := request(ctx, p, "issueOrPullRequest", id,
		func(
			ctx context.Context,
			s *Session,
		) (*IssueOrPullRequest, error) {
			return p.api.IssueOrPullRequest(ctx, s, id)
		},
	)

	return item
}

// PullRequestForBranch returns the most relevant pull
// request whose head is branch, or nil.
func (p *RichProvider) PullRequestForBranch(
	ctx context.Context,
	branch string,
	opts PullRequestForBranchOptions,
) *PullRequest {
	states := make([]string, len(opts.Include))
	for i, s := range opts.Include {
		states[i] = string(s)
	}

	arg := fmt.Sprintf(
		"%s@%d@%s",
		branch, opts.AvatarSize, strings.Join(states, ","),
	)

	pr, _ := request(ctx, p, "pullRequestForBranch", arg,
		func(ctx context.Context, s *Session) (*PullRequest, error) {
			return p.api.PullRequestForBranch(ctx, s, branch, opts)
		},
	)

	return pr
}

// PullRequestForCommit fetches the pull request that
// introduced ref, bypassing the commit cache. Use
// GetPullRequestForCommit for repeated lookups.
func (p *RichProvider) PullRequestForCommit(
	ctx context.Context,
	ref string,
) *PullRequest {
	pr, _ := p.fetchPullRequestForCommit(ctx, ref)

	return pr
}

// GetPullRequestForCommit returns the pull request that
// introduced ref. Each commit is looked up once: callers
// arriving while the lookup runs wait for it, and a
// result, including "no pull request", is kept until the
// provider disconnects. A failed lookup is not kept.
func (p *RichProvider) GetPullRequestForCommit(
	ctx context.Context,
	ref string,
) *PullRequest {
	e, leader := p.prs.start(ref)
	if !leader {
		return p.prs.wait(ctx, e)
	}

	pr, err := p.fetchPullRequestForCommit(ctx, ref)
	if err != nil {
		p.prs.fail(ref, e)

		return nil
	}

	p.prs.resolve(e, pr)

	return pr
}

func (p *RichProvider) fetchPullRequestForCommit(
	ctx context.Context,
	ref string,
) (*PullRequest, error) {
	return request(ctx, p, "pullRequestForCommit", ref,
		func(ctx context.Context, s *Session) (*PullRequest, error) {
			return p.api.PullRequestForCommit(ctx, s, ref)
		},
	)
}
