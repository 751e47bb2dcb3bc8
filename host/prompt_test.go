package host_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byte4ever/gitremote/host"
)

func TestTerminalPrompter_message_without_buttons(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer

	p := &host.TerminalPrompter{Output: &out}

	choice, err := p.ShowInformationMessage(
		context.Background(), "Connected to GitHub",
	)

	require.NoError(t, err)
	assert.Empty(t, choice)
	assert.Equal(t, "Connected to GitHub\n", out.String())
}
