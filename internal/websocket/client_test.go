package websocket

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SendKeepsNewestWhenBehind(t *testing.T) {
	c := NewClient(nil, TopicLeaderboard, NewHub())

	for i := 0; i < sendBuffer+3; i++ {
		require.NoError(t, c.Send([]byte(fmt.Sprintf("board-%d", i))))
	}

	require.Len(t, c.send, sendBuffer)
	assert.Equal(t, "board-3", string(<-c.send), "oldest boards are discarded")

	var last []byte
	for len(c.send) > 0 {
		last = <-c.send
	}
	assert.Equal(t, fmt.Sprintf("board-%d", sendBuffer+2), string(last))
}

func TestClient_SendAfterClose(t *testing.T) {
	c := NewClient(nil, TopicLeaderboard, NewHub())
	c.closed = true

	assert.ErrorIs(t, c.Send([]byte("board")), ErrClientClosed)
}
