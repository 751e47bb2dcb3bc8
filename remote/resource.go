package remote

// ResourceType identifies the variant of a Resource.
type ResourceType int

// Resource variants.
const (
	ResourceBranch ResourceType = iota + 1
	ResourceBranches
	ResourceCommit
	ResourceComparison
	ResourceFile
	ResourceRepo
	ResourceRevision
)

// String returns the lower-case variant name.
func (t ResourceType) String() string {
	switch t {
	case ResourceBranch:
		return "branch"
	case ResourceBranches:
		return "branches"
	case ResourceCommit:
		return "commit"
	case ResourceComparison:
		return "comparison"
	case ResourceFile:
		return "file"
	case ResourceRepo:
		return "repo"
	case ResourceRevision:
		return "revision"
	default:
		return "unknown"
	}
}

// Resource is a location on a remote that can be turned
// into a URL. The set of implementations is closed: use
// one of Branch, Branches, Commit, Comparison, File, Repo
// or Revision.
type Resource interface {
	Type() ResourceType
	isResource()
}

// Range is a 1-based, inclusive line range. An End lower
// than or equal to Start denotes the single line Start.
type Range struct {
	Start int
	End   int
}

// IsSingleLine reports whether r covers one line only.
func (r Range) IsSingleLine() bool {
	return r.End <= r.Start
}

// Branch points at the history of one branch.
type Branch struct {
	Branch string
}

// Branches points at the branch list of the repository.
type Branches struct{}

// Commit points at a single commit.
type Commit struct {
	SHA string
}

// Comparison points at the diff between two refs.
// Notation is ".." or "..."; empty means "...".
type Comparison struct {
	Base     string
	Compare  string
	Notation string
}

// File points at a file on a branch or tag, optionally
// at a line range.
type File struct {
	FileName    string
	BranchOrTag string
	Range       *Range
}

// Repo points at the repository home page.
type Repo struct{}

// Revision points at a file as of a given commit. When
// SHA is empty the BranchOrTag is used instead.
type Revision struct {
	FileName    string
	SHA         string
	BranchOrTag string
	Range       *Range
}

func (Branch) Type() ResourceType     { return ResourceBranch }
func (Branches) Type() ResourceType   { return ResourceBranches }
func (Commit) Type() ResourceType     { return ResourceCommit }
func (Comparison) Type() ResourceType { return ResourceComparison }
func (File) Type() ResourceType       { return ResourceFile }
func (Repo) Type() ResourceType       { return ResourceRepo }
func (Revision) Type() ResourceType   { return ResourceRevision }

func (Branch) isResource()     {}
func (Branches) isResource()   {}
func (Commit) isResource()     {}
func (Comparison) isResource() {}
func (File) isResource()       {}
func (Repo) isResource()       {}
func (Revision) isResource()   {}
