// Package custom links resources on self-hosted forges
// described by URL templates. Templates use ${name}
// placeholders; unknown placeholders are kept as-is and
// an empty template leaves the resource unsupported.
package custom
