// Package gitlab links resources on GitLab (gitlab.com or
// self-managed) and implements remote.API on top of the
// GitLab REST API v4.
package gitlab
