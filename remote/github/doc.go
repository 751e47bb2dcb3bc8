// Package github links resources on GitHub (cloud or
// enterprise) and implements remote.API on top of the
// GitHub REST API. Build a Builder from the remote
// identity; build an API from a Config naming the
// repository owner and name. Set EnterpriseHost for
// GitHub Enterprise installations.
package github
