package main

import (
	"io"

	"github.com/byte4ever/gitremote/remote"
)

// CLI is the command line of gitremote.
type CLI struct {
	Globals

	URL        URLCmd        `cmd:"" name:"url" help:"Print the URL of a resource."`
	Open       OpenCmd       `cmd:"" help:"Open a resource in the browser."`
	Copy       CopyCmd       `cmd:"" help:"Copy the URL of a resource."`
	Connect    ConnectCmd    `cmd:"" help:"Connect to the forge API."`
	Disconnect DisconnectCmd `cmd:"" help:"Disconnect from the forge API."`
	Reset      ResetCmd      `cmd:"" help:"Forget connection choices for this remote."`
	Status     StatusCmd     `cmd:"" help:"Show the remote and its connection state."`
	PR         PRCmd         `cmd:"" name:"pr" help:"Show the pull request of a commit or branch."`
	Author     AuthorCmd     `cmd:"" help:"Show the forge account of a commit author."`
	Issue      IssueCmd      `cmd:"" help:"Show an issue or pull request."`
	Refs       RefsCmd       `cmd:"" help:"List the issues referenced by a commit."`
	Login      LoginCmd      `cmd:"" help:"Store an access token for a forge."`
	Logout     LogoutCmd     `cmd:"" help:"Remove the access token of a forge."`
}

// Globals are the flags shared by every command.
type Globals struct {
	Config         string `help:"Configuration file." type:"path" env:"GITREMOTE_CONFIG"`
	Dir            string `help:"Directory inside the repository." type:"path" default:"."`
	Remote         string `help:"Git remote to use, overriding the configuration."`
	NonInteractive bool   `help:"Never prompt." name:"non-interactive"`
	Ephemeral      bool   `help:"Keep connection choices in memory only."`
	Verbose        bool   `help:"Log debug output." short:"v"`

	out io.Writer
	// opener defaults to the system browser.
	opener remote.Opener
}
