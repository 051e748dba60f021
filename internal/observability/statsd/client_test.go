package statsd

import (
	"net"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricName(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		" gate/decision ": "gate_decision",
		"foo..bar":        "foo.bar",
		"a:b|c":           "a_b_c",
		".":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, metricName(in), in)
	}
}

func TestRenderTags(t *testing.T) {
	t.Parallel()
	got := renderTags(
		map[string]string{"env": "prod", " service ": " qadash "},
		map[string]string{"result": " allow ", "": "ignored", "env": "stage"},
	)
	assert.Equal(t, "|#env:stage,result:allow,service:qadash", got)
	assert.Equal(t, "", renderTags(nil, nil))
}

func TestClient_DisabledAndNilAreNoops(t *testing.T) {
	t.Parallel()
	c, err := NewClient(Config{Enabled: false, Address: "127.0.0.1:1"})
	require.NoError(t, err)
	assert.False(t, c.Enabled())
	c.Count("x", 1, nil)
	require.NoError(t, c.Close())

	var nilClient *Client
	nilClient.Count("x", 1, nil)
	nilClient.Timing("x", time.Second, nil)
	assert.False(t, nilClient.Enabled())
	assert.NoError(t, nilClient.Close())
}

func TestClient_WritesLines(t *testing.T) {
	t.Parallel()
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	c, err := NewClient(Config{
		Enabled:    true,
		Address:    pc.LocalAddr().String(),
		Prefix:     ".qadash.",
		GlobalTags: map[string]string{"env": "test"},
	})
	require.NoError(t, err)
	defer c.Close()
	require.True(t, c.Enabled())

	c.Count("gate.decision", 2, map[string]string{"outcome": "redirect_login"})
	c.Timing("http.request", 1500*time.Microsecond, nil)

	buf := make([]byte, 512)
	var lines []string
	for range 2 {
		require.NoError(t, pc.SetReadDeadline(time.Now().Add(2*time.Second)))
		n, _, readErr := pc.ReadFrom(buf)
		require.NoError(t, readErr)
		lines = append(lines, string(buf[:n]))
	}
	assert.Equal(t, "qadash.gate.decision:2|c|#env:test,outcome:redirect_login", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "qadash.http.request:1.5|ms"), lines[1])
}
