package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/byte4ever/gitremote/commitmsg"
	"github.com/byte4ever/gitremote/remote"
	"github.com/byte4ever/gitremote/remote/factory"
)

// URLCmd prints the URL of a resource.
type URLCmd struct {
	ResourceArgs
}

func (c *URLCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := c.resource(a.repo)
	if err != nil {
		return err
	}

	u, ok := a.remote.ResolveURL(res)
	if !ok {
		return unsupported(a.remote, res)
	}

	_, err = fmt.Fprintln(g.out, u)

	return err
}

// OpenCmd opens a resource in the browser.
type OpenCmd struct {
	ResourceArgs
}

var errNoBrowser = errors.New("cannot open the browser")

func (c *OpenCmd) Run(g *Globals) error {
	const errCtx = "opening resource"

	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := c.resource(a.repo)
	if err != nil {
		return err
	}

	opened, resolved := a.remote.Open(res)

	switch {
	case !resolved:
		return unsupported(a.remote, res)
	case !opened:
		return fmt.Errorf("%s: %w", errCtx, errNoBrowser)
	}

	return nil
}

// CopyCmd copies the URL of a resource.
type CopyCmd struct {
	ResourceArgs
}

func (c *CopyCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := c.resource(a.repo)
	if err != nil {
		return err
	}

	if _, ok := a.remote.ResolveURL(res); !ok {
		return unsupported(a.remote, res)
	}

	return a.remote.Copy(res)
}

func unsupported(r remote.Remote, res remote.Resource) error {
	return fmt.Errorf(
		"%s cannot link to a %s", r.Identity().Name, res.Type(),
	)
}

// ConnectCmd connects the remote to its forge API.
type ConnectCmd struct{}

func (c *ConnectCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	rp, err := a.rich()
	if err != nil {
		return err
	}

	if !rp.Connect(ctx) {
		return fmt.Errorf("%s: not connected", rp.Identity().Name)
	}

	_, err = fmt.Fprintf(g.out, "connected to %s\n", rp.Identity().Name)

	return err
}

// DisconnectCmd drops the connection and opts out of it
// for this repository.
type DisconnectCmd struct{}

func (c *DisconnectCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	rp, err := a.rich()
	if err != nil {
		return err
	}

	rp.Disconnect()

	return nil
}

// ResetCmd forgets connect and opt-out decisions.
type ResetCmd struct{}

func (c *ResetCmd) Run(g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	rp, err := a.rich()
	if err != nil {
		return err
	}

	return rp.ResetRemoteConnectionAuthorization()
}

// StatusCmd shows the remote and its connection state.
type StatusCmd struct{}

func (c *StatusCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	id := a.remote.Identity()

	rows := [][2]string{
		{"remote", fmt.Sprintf("%s (%s/%s)", id.Name, id.Domain, id.Path)},
		{"key", id.Key()},
		{"url", id.BaseURL()},
	}

	if rp, ok := a.remote.(*remote.RichProvider); ok {
		rp.IsConnected(ctx)

		rows = append(rows,
			[2]string{"auth", factory.AuthProviderID(id)},
			[2]string{"state", rp.State().String()},
		)
	} else {
		rows = append(rows, [2]string{"state", "no api"})
	}

	for _, r := range rows {
		if _, err := fmt.Fprintf(g.out, "%-7s %s\n", r[0]+":", r[1]); err != nil {
			return err
		}
	}

	return nil
}

// PRCmd shows the pull request of a commit or a branch.
type PRCmd struct {
	Ref    string `arg:"" optional:"" help:"Commit, defaults to HEAD."`
	Branch string `short:"b" help:"Look up the pull request of this branch instead."`
	Open   bool   `help:"Limit branch lookups to open pull requests."`
}

func (c *PRCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	rp, err := a.connected(ctx)
	if err != nil {
		return err
	}

	var pr *remote.PullRequest

	if c.Branch != "" {
		opts := remote.PullRequestForBranchOptions{}
		if c.Open {
			opts.Include = []remote.PullRequestState{remote.PullRequestOpen}
		}

		pr = rp.PullRequestForBranch(ctx, c.Branch, opts)
	} else {
		ref := c.Ref
		if ref == "" {
			if ref, _, err = a.repo.Head(); err != nil {
				return err
			}
		}

		pr = rp.GetPullRequestForCommit(ctx, ref)
	}

	if pr == nil {
		_, err = fmt.Fprintln(g.out, "no pull request")

		return err
	}

	return printPullRequest(g.out, pr)
}

func printPullRequest(w io.Writer, pr *remote.PullRequest) error {
	_, err := fmt.Fprintf(
		w,
		"#%s %s\n%s by %s on %s\n%s\n",
		pr.ID, pr.Title,
		pr.State, pr.Author.Name, day(pr.Date),
		pr.URL,
	)

	return err
}

// AuthorCmd shows the forge account of a commit author
// or of an email address.
type AuthorCmd struct {
	Ref    string `arg:"" optional:"" help:"Commit, defaults to HEAD."`
	Email  string `short:"e" help:"Look up the account owning this address instead."`
	Avatar int    `help:"Avatar size in pixels."`
}

func (c *AuthorCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	rp, err := a.connected(ctx)
	if err != nil {
		return err
	}

	opts := remote.AccountOptions{AvatarSize: c.Avatar}

	var acc *remote.Account

	if c.Email != "" {
		acc = rp.AccountForEmail(ctx, c.Email, opts)
	} else {
		ref := c.Ref
		if ref == "" {
			if ref, _, err = a.repo.Head(); err != nil {
				return err
			}
		}

		acc = rp.AccountForCommit(ctx, ref, opts)
	}

	if acc == nil {
		_, err = fmt.Fprintln(g.out, "no account")

		return err
	}

	_, err = fmt.Fprintf(
		g.out,
		"%s <%s>\n%s user %s\n%s\n",
		acc.Name, acc.Email,
		acc.Provider, acc.Username,
		acc.Avatar,
	)

	return err
}

// IssueCmd shows an issue or a pull request.
type IssueCmd struct {
	ID string `arg:"" help:"Issue or pull request number."`
}

func (c *IssueCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	rp, err := a.connected(ctx)
	if err != nil {
		return err
	}

	item := rp.IssueOrPullRequest(ctx, c.ID)
	if item == nil {
		_, err = fmt.Fprintf(g.out, "no issue %s\n", c.ID)

		return err
	}

	kind, state := "issue", "open"
	if item.Type == remote.PullRequestType {
		kind = "pull request"
	}

	if item.Closed {
		state = "closed on " + day(item.ClosedDate)
	}

	_, err = fmt.Fprintf(
		g.out,
		"%s #%s %s\n%s, opened on %s\n%s\n",
		kind, item.ID, item.Title,
		state, day(item.Date),
		item.URL,
	)

	return err
}

// RefsCmd lists the issues and pull requests referenced
// by a commit message.
type RefsCmd struct {
	Ref string `arg:"" optional:"" default:"HEAD" help:"Commit, defaults to HEAD."`
}

func (c *RefsCmd) Run(ctx context.Context, g *Globals) error {
	a, err := g.open()
	if err != nil {
		return err
	}
	defer a.Close()

	msg, err := a.repo.CommitMessage(c.Ref)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintln(g.out, commitmsg.Subject(msg)); err != nil {
		return err
	}

	ids := commitmsg.ExtractRefs(msg)
	if len(ids) == 0 {
		return nil
	}

	rp, err := a.connected(ctx)
	if err != nil {
		// Offline: list the bare references.
		for _, id := range ids {
			if _, err := fmt.Fprintf(g.out, "#%s\n", id); err != nil {
				return err
			}
		}

		return nil
	}

	for _, id := range ids {
		line := "#" + id

		if item := rp.IssueOrPullRequest(ctx, id); item != nil {
			line = fmt.Sprintf("#%s %s %s", id, item.Title, item.URL)
		}

		if _, err := fmt.Fprintln(g.out, line); err != nil {
			return err
		}
	}

	return nil
}

func day(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Format(time.DateOnly)
}

// LoginCmd stores an access token.
type LoginCmd struct {
	Provider string `arg:"" optional:"" help:"Credential provider, defaults to the one of the remote."`
}

func (c *LoginCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}

	sessions, prompter := g.host(cfg)

	id := c.Provider
	if id == "" {
		if id, err = g.providerID(); err != nil {
			return err
		}
	}

	token, err := prompter.PromptToken(ctx, id)
	if err != nil {
		return err
	}

	if token == "" {
		return fmt.Errorf("%s: %s", id, remote.ConsentRevokedMessage)
	}

	return sessions.Store(id, token)
}

// LogoutCmd removes a stored access token.
type LogoutCmd struct {
	Provider string `arg:"" optional:"" help:"Credential provider, defaults to the one of the remote."`
}

func (c *LogoutCmd) Run(g *Globals) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}

	sessions, _ := g.host(cfg)

	id := c.Provider
	if id == "" {
		if id, err = g.providerID(); err != nil {
			return err
		}
	}

	return sessions.Remove(id)
}

func (g *Globals) providerID() (string, error) {
	a, err := g.open()
	if err != nil {
		return "", err
	}
	defer a.Close()

	if _, err := a.rich(); err != nil {
		return "", err
	}

	return factory.AuthProviderID(a.remote.Identity()), nil
}
