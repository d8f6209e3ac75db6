package command

import (
	"errors"
	"testing"
	"time"

	"github.com/coregx/respkv/logging"
	"github.com/coregx/respkv/resp"
	"github.com/coregx/respkv/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s := store.New(logging.Discard("command_test"), nil, 0)
	t.Cleanup(s.Close)
	return s
}

func request(args ...string) resp.Frame {
	f := resp.NewArray()
	for _, a := range args {
		f.Array = append(f.Array, resp.BulkString(a))
	}
	return f
}

func TestParseGet(t *testing.T) {
	cmd, err := Parse(request("get", "foo"))
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	get, ok := cmd.(Get)
	if !ok || get.Key != "foo" {
		t.Fatalf("Parse = %#v, want Get{Key: foo}", cmd)
	}
}

func TestGetApplyMissingAndPresent(t *testing.T) {
	s := newTestStore(t)

	if got := (Get{Key: "nop"}).Apply(s); got.Kind != resp.KindNull {
		t.Errorf("Apply on missing key = %v, want Null", got)
	}

	s.Set("foo", []byte("bar"), nil)
	got := (Get{Key: "foo"}).Apply(s)
	if got.Kind != resp.KindBulk || string(got.Bulk) != "bar" {
		t.Errorf("Apply on present key = %v, want Bulk(bar)", got)
	}
}

func TestParseSetNoExpiration(t *testing.T) {
	cmd, err := Parse(request("set", "k", "v"))
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	set := cmd.(Set)
	if set.Key != "k" || string(set.Value) != "v" || set.TTL != nil {
		t.Fatalf("Parse = %#v, want Set{k, v, nil}", set)
	}
}

func TestParseSetEX(t *testing.T) {
	cmd, err := Parse(request("set", "k", "v", "EX", "5"))
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	set := cmd.(Set)
	if set.TTL == nil || *set.TTL != 5*time.Second {
		t.Fatalf("TTL = %v, want 5s", set.TTL)
	}
}

func TestParseSetPXCaseInsensitive(t *testing.T) {
	cmd, err := Parse(request("set", "k", "v", "px", "250"))
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	set := cmd.(Set)
	if set.TTL == nil || *set.TTL != 250*time.Millisecond {
		t.Fatalf("TTL = %v, want 250ms", set.TTL)
	}
}

func TestParseSetRejectsUnknownOption(t *testing.T) {
	_, err := Parse(request("set", "k", "v", "XX"))
	var cmdErr *Error
	if !errors.As(err, &cmdErr) {
		t.Fatalf("Parse error = %v (%T), want *command.Error", err, err)
	}
}

func TestParseSetRejectsTrailingArgument(t *testing.T) {
	_, err := Parse(request("set", "k", "v", "EX", "5", "extra"))
	if !errors.Is(err, resp.ErrProtocol) {
		t.Fatalf("Parse error = %v, want ErrProtocol", err)
	}
}

func TestSetApplyZeroTTLExpiresImmediately(t *testing.T) {
	s := newTestStore(t)
	zero := time.Duration(0)
	reply := (Set{Key: "k", Value: []byte("v"), TTL: &zero}).Apply(s)
	if reply.Kind != resp.KindSimple || reply.Str != "OK" {
		t.Fatalf("Apply = %v, want Simple(OK)", reply)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := s.Get("k"); !ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("zero-TTL key was never purged")
}

func TestParsePingNoArg(t *testing.T) {
	cmd, err := Parse(request("ping"))
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	reply := cmd.(Ping).Apply()
	if reply.Kind != resp.KindSimple || reply.Str != "PONG" {
		t.Errorf("Apply = %v, want Simple(PONG)", reply)
	}
}

func TestParsePingWithArg(t *testing.T) {
	cmd, err := Parse(request("ping", "hi"))
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	reply := cmd.(Ping).Apply()
	if reply.Kind != resp.KindBulk || string(reply.Bulk) != "hi" {
		t.Errorf("Apply = %v, want Bulk(hi)", reply)
	}
}

func TestPublishApplyNoSubscribers(t *testing.T) {
	s := newTestStore(t)
	reply := (Publish{Channel: "ch1", Message: []byte("hi")}).Apply(s)
	if reply.Kind != resp.KindInteger || reply.Int != 0 {
		t.Errorf("Apply = %v, want Integer(0)", reply)
	}
}

func TestParseSubscribeMultipleChannels(t *testing.T) {
	cmd, err := Parse(request("subscribe", "a", "b", "c"))
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	sub := cmd.(Subscribe)
	want := []string{"a", "b", "c"}
	if len(sub.Channels) != len(want) {
		t.Fatalf("Channels = %v, want %v", sub.Channels, want)
	}
	for i := range want {
		if sub.Channels[i] != want[i] {
			t.Fatalf("Channels = %v, want %v", sub.Channels, want)
		}
	}
}

func TestParseUnsubscribeEmptyMeansAll(t *testing.T) {
	cmd, err := Parse(request("unsubscribe"))
	if err != nil {
		t.Fatalf("Parse error = %v", err)
	}
	if len(cmd.(Unsubscribe).Channels) != 0 {
		t.Errorf("Channels = %v, want empty", cmd.(Unsubscribe).Channels)
	}
}

func TestUnsubscribeApplyUnsupportedAtTopLevel(t *testing.T) {
	reply := (Unsubscribe{}).Apply()
	if reply.Kind != resp.KindError {
		t.Errorf("Apply = %v, want an Error frame", reply)
	}
}

func TestParseUnknownCommandSkipsFinish(t *testing.T) {
	cmd, err := Parse(request("bogus", "extra", "args", "ignored"))
	if err != nil {
		t.Fatalf("Parse error = %v, want success even with unconsumed args", err)
	}
	if cmd.Name() != "bogus" {
		t.Fatalf("Name() = %q, want bogus", cmd.Name())
	}
	reply := cmd.(Unknown).Apply()
	if reply.Kind != resp.KindError || reply.Str != "ERR unknown command 'bogus'" {
		t.Errorf("Apply = %v, want Error(ERR unknown command 'bogus')", reply)
	}
}

func TestSubscribeAckFrame(t *testing.T) {
	f := SubscribeAck("ch1", 1)
	if len(f.Array) != 3 || f.Array[0].String() != "subscribe" || f.Array[1].String() != "ch1" || f.Array[2].Int != 1 {
		t.Errorf("SubscribeAck = %v", f)
	}
}

func TestMessageFrame(t *testing.T) {
	f := Message("ch1", []byte("hello"))
	if len(f.Array) != 3 || f.Array[0].String() != "message" || f.Array[1].String() != "ch1" || string(f.Array[2].Bulk) != "hello" {
		t.Errorf("Message = %v", f)
	}
}
