// Package bitbucket links resources on Bitbucket Server
// (Data Center) and implements remote.API on its REST API
// 1.0. Bitbucket Server has no link for comparing refs.
package bitbucket
