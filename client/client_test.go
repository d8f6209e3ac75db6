package client

import (
	"testing"
	"time"

	"github.com/coregx/respkv/logging"
	"github.com/coregx/respkv/server"
	"github.com/coregx/respkv/store"
)

func newTestServer(t *testing.T) string {
	t.Helper()
	s := store.New(logging.Discard("client_test"), nil, 0)
	t.Cleanup(s.Close)

	l, err := server.Listen("127.0.0.1:0", 0, s, logging.Discard("client_test"), nil)
	if err != nil {
		t.Fatalf("Listen error = %v", err)
	}

	quit := make(chan struct{})
	done := make(chan struct{})
	go func() {
		_ = l.Serve(quit)
		close(done)
	}()
	t.Cleanup(func() {
		close(quit)
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("server did not shut down")
		}
	})

	return l.Addr()
}

func dialTestClient(t *testing.T, addr string) *Client {
	t.Helper()
	c, err := Dial(addr)
	if err != nil {
		t.Fatalf("Dial error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestClientSetGetRoundTrip(t *testing.T) {
	addr := newTestServer(t)
	c := dialTestClient(t, addr)

	if err := c.Set("foo", []byte("bar"), nil); err != nil {
		t.Fatalf("Set error = %v", err)
	}
	got, ok, err := c.Get("foo")
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	if !ok || string(got) != "bar" {
		t.Fatalf("Get = (%q, %v), want (bar, true)", got, ok)
	}
}

func TestClientGetMissing(t *testing.T) {
	addr := newTestServer(t)
	c := dialTestClient(t, addr)

	_, ok, err := c.Get("nope")
	if err != nil {
		t.Fatalf("Get error = %v", err)
	}
	if ok {
		t.Errorf("Get(nope) = present, want missing")
	}
}

func TestClientPing(t *testing.T) {
	addr := newTestServer(t)
	c := dialTestClient(t, addr)

	pong, err := c.Ping("")
	if err != nil || pong != "PONG" {
		t.Fatalf("Ping() = (%q, %v), want (PONG, nil)", pong, err)
	}

	echo, err := c.Ping("hi")
	if err != nil || echo != "hi" {
		t.Fatalf("Ping(hi) = (%q, %v), want (hi, nil)", echo, err)
	}
}

func TestClientPublishSubscribe(t *testing.T) {
	addr := newTestServer(t)
	subClient := dialTestClient(t, addr)
	pubClient := dialTestClient(t, addr)

	sub, err := subClient.Subscribe("ch1")
	if err != nil {
		t.Fatalf("Subscribe error = %v", err)
	}

	n, err := pubClient.Publish("ch1", []byte("hello"))
	if err != nil {
		t.Fatalf("Publish error = %v", err)
	}
	if n != 1 {
		t.Fatalf("Publish = %d subscribers, want 1", n)
	}

	msg, err := sub.Next()
	if err != nil {
		t.Fatalf("Next error = %v", err)
	}
	if msg.Channel != "ch1" || string(msg.Payload) != "hello" {
		t.Fatalf("Next = %+v, want {ch1 hello}", msg)
	}
}
