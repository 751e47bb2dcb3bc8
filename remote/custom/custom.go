package custom

import (
	"strconv"

	"github.com/valyala/fasttemplate"

	"github.com/byte4ever/gitremote/remote"
)

// Templates holds one URL template per resource kind.
//
// Every template may use ${repo} (protocol://domain/path),
// ${domain}, ${path}, ${owner} and ${name}. Besides:
//
//	Branch        ${branch}
//	Commit        ${id}
//	Comparison    ${ref1} ${ref2} ${notation}
//	FileInBranch  ${file} ${branch} ${line}
//	FileInCommit  ${file} ${id} ${line}
//	FileLine      ${line}
//	FileRange     ${start} ${end}
//
// ${line} in a file template expands to FileLine or
// FileRange rendered for the selected range.
type Templates struct {
	Repository   string `yaml:"repository"   json:"repository"`
	Branches     string `yaml:"branches"     json:"branches"`
	Branch       string `yaml:"branch"       json:"branch"`
	Commit       string `yaml:"commit"       json:"commit"`
	Comparison   string `yaml:"comparison"   json:"comparison"`
	FileInBranch string `yaml:"fileInBranch" json:"fileInBranch"`
	FileInCommit string `yaml:"fileInCommit" json:"fileInCommit"`
	FileLine     string `yaml:"fileLine"     json:"fileLine"`
	FileRange    string `yaml:"fileRange"    json:"fileRange"`
}

// Builder expands Templates for one repository.
//
// Pattern: Strategy -- implements remote.URLBuilder.
type Builder struct {
	tpl  Templates
	vars map[string]any
}

type comparingBuilder struct {
	Builder
}

// NewBuilder returns a builder for the repository
// identified by id. It implements
// remote.ComparisonBuilder only when tpl.Comparison is
// set.
func NewBuilder(id remote.Identity, tpl Templates) remote.URLBuilder {
	owner, name := id.SplitPath()

	b := Builder{
		tpl: tpl,
		vars: map[string]any{
			"repo":   id.BaseURL(),
			"domain": id.Domain,
			"path":   id.Path,
			"owner":  owner,
			"name":   name,
		},
	}

	if tpl.Comparison != "" {
		return comparingBuilder{b}
	}

	return b
}

// expand renders tpl with the repository variables and
// extra, extra taking precedence. An empty template
// yields an empty string.
func (b Builder) expand(tpl string, extra map[string]any) string {
	if tpl == "" {
		return ""
	}

	vars := make(map[string]any, len(b.vars)+len(extra))
	for k, v := range b.vars {
		vars[k] = v
	}

	for k, v := range extra {
		vars[k] = v
	}

	return fasttemplate.ExecuteStringStd(tpl, "${", "}", vars)
}

func (b Builder) RepoURL() string {
	return b.expand(b.tpl.Repository, nil)
}

func (b Builder) BranchesURL() string {
	return b.expand(b.tpl.Branches, nil)
}

func (b Builder) BranchURL(branch string) string {
	return b.expand(b.tpl.Branch, map[string]any{"branch": branch})
}

func (b Builder) CommitURL(sha string) string {
	return b.expand(b.tpl.Commit, map[string]any{"id": sha})
}

// FileURL expands FileInCommit when sha is set, else
// FileInBranch.
func (b Builder) FileURL(
	fileName string,
	branch string,
	sha string,
	rng *remote.Range,
) string {
	line := ""

	if rng != nil {
		pos := map[string]any{
			"line":  strconv.Itoa(rng.Start),
			"start": strconv.Itoa(rng.Start),
			"end":   strconv.Itoa(rng.End),
		}

		if rng.IsSingleLine() {
			line = b.expand(b.tpl.FileLine, pos)
		} else {
			line = b.expand(b.tpl.FileRange, pos)
		}
	}

	vars := map[string]any{
		"file":   fileName,
		"branch": branch,
		"id":     sha,
		"line":   line,
	}

	if sha != "" {
		return b.expand(b.tpl.FileInCommit, vars)
	}

	return b.expand(b.tpl.FileInBranch, vars)
}

func (b comparingBuilder) ComparisonURL(
	base string,
	compare string,
	notation string,
) string {
	return b.expand(b.tpl.Comparison, map[string]any{
		"ref1":     base,
		"ref2":     compare,
		"notation": notation,
	})
}
