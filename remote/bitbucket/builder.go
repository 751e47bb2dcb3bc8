package bitbucket

import (
	"fmt"
	"strings"

	"github.com/byte4ever/gitremote/remote"
)

// Builder builds Bitbucket Server links. Links are left
// unescaped; remote.Provider encodes them.
//
// Pattern: Strategy -- implements remote.URLBuilder.
type Builder struct {
	base string
}

// NewBuilder returns a Builder for the repository
// identified by id, whose path is "PROJECT/repo".
func NewBuilder(id remote.Identity) Builder {
	project, repo := id.SplitPath()

	protocol := id.Protocol
	if protocol == "" {
		protocol = "https"
	}

	return Builder{
		base: protocol + "://" + id.Domain +
			"/projects/" + project + "/repos/" + repo,
	}
}

func (b Builder) RepoURL() string { return b.base }

func (b Builder) BranchesURL() string {
	return b.base + "/branches"
}

func (b Builder) BranchURL(branch string) string {
	return b.base + "/commits?until=refs/heads/" + branch
}

func (b Builder) CommitURL(sha string) string {
	return b.base + "/commits/" + sha
}

// FileURL links to the file browser at sha or branch,
// anchored at "#<start>" or "#<start>-<end>".
func (b Builder) FileURL(
	fileName string,
	branch string,
	sha string,
	rng *remote.Range,
) string {
	var sb strings.Builder

	sb.WriteString(b.base + "/browse/" + fileName)

	switch {
	case sha != "":
		sb.WriteString("?at=" + sha)
	case branch != "":
		sb.WriteString("?at=refs/heads/" + branch)
	}

	if rng != nil {
		fmt.Fprintf(&sb, "#%d", rng.Start)

		if !rng.IsSingleLine() {
			fmt.Fprintf(&sb, "-%d", rng.End)
		}
	}

	return sb.String()
}
