package web

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client1 := &Client{
		hub:  hub,
		send: make(chan []byte, 256),
	}
	hub.register <- client1

	client2 := &Client{
		hub:  hub,
		send: make(chan []byte, 256),
	}
	hub.register <- client2

	// wait for registration
	time.Sleep(10 * time.Millisecond)

	msg := map[string]string{"type": "download.completed", "file": "movie.mkv"}
	msgBytes, _ := json.Marshal(msg)
	hub.Broadcast(msgBytes)

	select {
	case received := <-client1.send:
		assert.Equal(t, msgBytes, received)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client 1 did not receive message")
	}

	select {
	case received := <-client2.send:
		assert.Equal(t, msgBytes, received)
	case <-time.After(100 * time.Millisecond):
		t.Fatal("client 2 did not receive message")
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	client := &Client{
		hub:  hub,
		send: make(chan []byte, 256),
	}
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.unregister <- client
	time.Sleep(10 * time.Millisecond)

	// send channel closes on unregister
	select {
	case _, ok := <-client.send:
		assert.False(t, ok, "send channel should be closed")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("send channel was not closed")
	}

	// broadcasting after unregister must not panic
	hub.Broadcast([]byte("after"))
	time.Sleep(10 * time.Millisecond)
}

func TestHub_SlowClientDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// buffer of 1 fills after the first message
	client := &Client{
		hub:  hub,
		send: make(chan []byte, 1),
	}
	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast([]byte("one"))
	hub.Broadcast([]byte("two"))
	time.Sleep(10 * time.Millisecond)

	// the client got the first message, then was dropped and its channel closed
	first := <-client.send
	assert.Equal(t, []byte("one"), first)

	_, ok := <-client.send
	assert.False(t, ok, "slow client's send channel should be closed")
}
