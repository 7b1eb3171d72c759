// ABOUTME: Tests for the websocket Conn wrapper
// ABOUTME: Covers write-loop cleanup when the transport fails under it

package registry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// dialTestPair upgrades a real websocket over httptest and returns both ends.
func dialTestPair(t *testing.T) (serverWS, clientWS *websocket.Conn) {
	t.Helper()

	upgrader := websocket.Upgrader{}
	serverCh := make(chan *websocket.Conn, 1)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverCh <- ws
	}))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	client, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { client.Close() })

	select {
	case server := <-serverCh:
		t.Cleanup(func() { server.Close() })
		return server, client
	case <-time.After(2 * time.Second):
		t.Fatal("server side never upgraded")
		return nil, nil
	}
}

func TestConn_WriteFailureClosesConnection(t *testing.T) {
	serverWS, clientWS := dialTestPair(t)

	conn := NewConn(7, serverWS, ConnOptions{
		SendBuffer:   4,
		WriteTimeout: time.Second,
		PingInterval: 10 * time.Millisecond,
	})
	conn.Start()

	// Drop the transport out from under the write loop; the next write or
	// ping must fail and the loop must tear the connection down rather than
	// leaving Send queueing into a dead buffer
	require.NoError(t, serverWS.UnderlyingConn().Close())
	_ = clientWS.Close()

	select {
	case <-conn.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("write loop did not close the connection after a transport failure")
	}

	require.Error(t, conn.Send([]byte("late")), "sends after teardown must be rejected")
}

func TestConn_SendAfterCloseFails(t *testing.T) {
	serverWS, _ := dialTestPair(t)

	conn := NewConn(7, serverWS, ConnOptions{})
	conn.Start()
	conn.Close(websocket.CloseNormalClosure, "")

	require.Error(t, conn.Send([]byte("x")))
}
