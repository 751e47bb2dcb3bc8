package commitmsg

import (
	"regexp"
	"strings"
)

// refPattern matches "#N", "!N" (GitLab merge requests)
// and "GH-N", each preceded by a start of line, a space
// or an opening bracket.
var refPattern = regexp.MustCompile(
	`(?:^|[\s(\[])(?:#|!|GH-)(\d+)\b`,
)

// ExtractRefs returns the issue or pull request numbers
// referenced in msg, in order of first appearance and
// without duplicates. References to other repositories
// ("org/repo#12") are ignored.
func ExtractRefs(msg string) []string {
	var refs []string

	seen := make(map[string]bool)

	for _, line := range strings.Split(msg, "\n") {
		for _, m := range refPattern.FindAllStringSubmatch(line, -1) {
			id := m[1]
			if seen[id] {
				continue
			}

			seen[id] = true
			refs = append(refs, id)
		}
	}

	return refs
}

// Subject returns the first line of msg.
func Subject(msg string) string {
	subject, _, _ := strings.Cut(strings.TrimSpace(msg), "\n")

	return strings.TrimSpace(subject)
}
