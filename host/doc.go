// Package host adapts the terminal environment to the
// remote package: system clipboard, web browser, terminal
// prompts and a session provider backed by the OS
// keyring.
package host
