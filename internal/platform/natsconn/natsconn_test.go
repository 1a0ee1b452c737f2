package natsconn

import (
	"testing"
	"time"

	"github.com/nats-io/nats.go"
)

func TestWithDefaults_Builtin(t *testing.T) {
	t.Setenv("NATS_URL", "")
	t.Setenv("NATS_MAX_RECONNECTS", "")
	t.Setenv("NATS_RECONNECT_WAIT", "")

	o := Options{}.withDefaults()
	if o.URL != nats.DefaultURL {
		t.Fatalf("expected %s, got %s", nats.DefaultURL, o.URL)
	}
	if o.MaxReconnects != 5 || o.ReconnectWait != 2*time.Second {
		t.Fatalf("unexpected retry policy: %d, %s", o.MaxReconnects, o.ReconnectWait)
	}
	if o.Logger == nil {
		t.Fatal("expected a no-op logger")
	}
}

func TestWithDefaults_Env(t *testing.T) {
	t.Setenv("NATS_URL", " nats://queue.lectures.internal:4222 ")
	t.Setenv("NATS_MAX_RECONNECTS", "7")
	t.Setenv("NATS_RECONNECT_WAIT", "3s")

	o := Options{}.withDefaults()
	if o.URL != "nats://queue.lectures.internal:4222" {
		t.Fatalf("unexpected url %q", o.URL)
	}
	if o.MaxReconnects != 7 || o.ReconnectWait != 3*time.Second {
		t.Fatalf("unexpected retry policy: %d, %s", o.MaxReconnects, o.ReconnectWait)
	}
}

func TestWithDefaults_ExplicitWins(t *testing.T) {
	t.Setenv("NATS_URL", "nats://from-env:4222")
	t.Setenv("NATS_MAX_RECONNECTS", "7")

	o := Options{URL: "nats://explicit:4222", MaxReconnects: 1, ReconnectWait: time.Second}.withDefaults()
	if o.URL != "nats://explicit:4222" || o.MaxReconnects != 1 || o.ReconnectWait != time.Second {
		t.Fatalf("explicit options overridden: %+v", o)
	}
}

func TestEnvParsing_BadValuesFallBack(t *testing.T) {
	t.Setenv("NATSCONN_TEST_INT", "-3")
	if v := envInt("NATSCONN_TEST_INT", 42); v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
	t.Setenv("NATSCONN_TEST_DUR", "soon")
	if v := envDuration("NATSCONN_TEST_DUR", 5*time.Second); v != 5*time.Second {
		t.Fatalf("expected 5s, got %s", v)
	}
}

func TestNatsOptions_Name(t *testing.T) {
	base := Options{}.withDefaults()
	named := Options{Name: "transcript"}.withDefaults()
	if len(named.natsOptions()) != len(base.natsOptions())+1 {
		t.Fatal("expected the client name option to be added")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect(Options{
		URL:           "nats://127.0.0.1:19999",
		MaxReconnects: 1,
		ReconnectWait: 10 * time.Millisecond,
	})
	if err == nil {
		t.Fatal("expected error connecting to unreachable NATS server")
	}
}
