package statsd

import (
	"log/slog"
	"net"
	"strings"
	"testing"
	"time"
)

func TestNormalizeMetricName(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		" sync/job ":         "sync_job",
		"dispatch..run":      "dispatch.run",
		".reaper.reset.":     "reaper.reset",
		"monitor severity":   "monitor_severity",
		"schedule:decision|": "schedule_decision_",
	}
	for input, want := range tests {
		if got := normalizeMetricName(input); got != want {
			t.Fatalf("normalizeMetricName(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFormatTags(t *testing.T) {
	t.Parallel()

	global := map[string]string{"env": "prod", " service ": " adsync "}
	local := map[string]string{"result": " success ", "": "ignored", "env": "stage"}

	want := "|#env:stage,result:success,service:adsync"
	if got := formatTags(global, local); got != want {
		t.Fatalf("formatTags mismatch\n got: %q\nwant: %q", got, want)
	}
	if got := formatTags(nil, nil); got != "" {
		t.Fatalf("formatTags(nil, nil) = %q, want empty string", got)
	}
}

func TestClientWritesLineProtocol(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	c := &Client{prefix: "adsync", conn: clientConn, logger: slog.Default()}
	got := make(chan string, 1)
	go func() {
		buf := make([]byte, 256)
		n, _ := peerConn.Read(buf)
		got <- string(buf[:n])
	}()

	c.Timing("sync.job.duration", 1500*time.Millisecond, map[string]string{"provider": "google"})

	select {
	case line := <-got:
		if want := "adsync.sync.job.duration:1500|ms|#provider:google"; line != want {
			t.Fatalf("line = %q, want %q", line, want)
		}
	case <-time.After(time.Second):
		t.Fatal("no metric written")
	}
}

func TestClientEnabledAndClose(t *testing.T) {
	t.Parallel()

	clientConn, peerConn := net.Pipe()
	defer peerConn.Close()

	client := &Client{conn: clientConn}
	if !client.Enabled() {
		t.Fatal("expected client.Enabled to report true with active connection")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client.Enabled to report false after Close")
	}
	if err := client.Close(); err != nil {
		t.Fatalf("Close (second call) error: %v", err)
	}

	var nilClient *Client
	nilClient.Count("ignored", 1, nil)
	if nilClient.Enabled() {
		t.Fatal("nil client should report disabled")
	}
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	client, err := NewClient(Config{Enabled: true, Address: "   "})
	if err != nil {
		t.Fatalf("NewClient error: %v", err)
	}
	if client.Enabled() {
		t.Fatal("expected client to stay disabled when address is empty")
	}

	_, err = NewClient(Config{Enabled: true, Address: "bad address"})
	if err == nil || !strings.Contains(err.Error(), "statsd dial") {
		t.Fatalf("expected dial error, got %v", err)
	}
}

func TestRecorderSum(t *testing.T) {
	t.Parallel()

	var r Recorder
	r.Count("dispatch.run.jobs", 2, map[string]string{"result": "success"})
	r.Count("dispatch.run.jobs", 1, map[string]string{"result": "error"})
	r.Count("dispatch.run.jobs", 3, map[string]string{"result": "success"})

	if got := r.Sum("dispatch.run.jobs", map[string]string{"result": "success"}); got != 5 {
		t.Fatalf("Sum(success) = %v, want 5", got)
	}
	if got := r.Sum("dispatch.run.jobs", nil); got != 6 {
		t.Fatalf("Sum(all) = %v, want 6", got)
	}
}
