package gitlab

import (
	"fmt"

	"github.com/byte4ever/gitremote/remote"
)

// Builder builds GitLab links.
//
// Pattern: Strategy -- implements remote.URLBuilder and
// remote.ComparisonBuilder.
type Builder struct {
	base string
}

// NewBuilder returns a Builder rooted at the project
// identified by id.
func NewBuilder(id remote.Identity) Builder {
	return Builder{base: id.BaseURL()}
}

func (b Builder) RepoURL() string { return b.base }

func (b Builder) BranchesURL() string {
	return b.base + "/-/branches"
}

func (b Builder) BranchURL(branch string) string {
	return b.base + "/-/tree/" + branch
}

func (b Builder) CommitURL(sha string) string {
	return b.base + "/-/commit/" + sha
}

func (b Builder) ComparisonURL(
	base string,
	compare string,
	notation string,
) string {
	return b.base + "/-/compare/" + base + notation + compare
}

// FileURL links to a blob, anchored at "#L<start>" or
// "#L<start>-<end>".
func (b Builder) FileURL(
	fileName string,
	branch string,
	sha string,
	rng *remote.Range,
) string {
	line := ""
	if rng != nil {
		line = fmt.Sprintf("#L%d", rng.Start)
		if !rng.IsSingleLine() {
			line += fmt.Sprintf("-%d", rng.End)
		}
	}

	switch {
	case sha != "":
		return b.base + "/-/blob/" + sha + "/" + fileName + line
	case branch != "":
		return b.base + "/-/blob/" + branch + "/" + fileName + line
	default:
		return b.base + "?path=" + fileName + line
	}
}
