package signal

import (
	"fmt"
	"testing"
	"time"

	"github.com/dkeye/Cast/internal/app"
	"github.com/dkeye/Cast/internal/app/orch"
	"github.com/dkeye/Cast/internal/config"
	"github.com/dkeye/Cast/internal/core"
	"github.com/dkeye/Cast/internal/core/coretest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Mode:         "test",
		ReadLimit:    65536,
		SendBuffer:   16,
		WriteWait:    time.Second,
		RateInterval: time.Second,
	}
}

func newController(cfg *config.Config) *SignalWSController {
	o := orch.New(app.NewRegistry(), app.NewSessionTable(), nil)
	return NewSignalWSController(o, cfg)
}

type peer struct {
	id  core.ConnID
	sig *coretest.Signal
}

func newPeer(t *testing.T, ctl *SignalWSController) peer {
	t.Helper()
	sig := coretest.NewSignal()
	c, err := ctl.Orch.Connect(sig, nil)
	require.NoError(t, err)
	return peer{id: c.ID, sig: sig}
}

func (p peer) send(ctl *SignalWSController, frame string) {
	ctl.handleSignal(p.id, p.sig, []byte(frame))
}

func lastFrame(t *testing.T, p peer) string {
	t.Helper()
	frames := p.sig.Frames()
	require.NotEmpty(t, frames, "no frame for %s", p.id)
	return string(frames[len(frames)-1])
}

type room struct {
	ctl          *SignalWSController
	host, v1, v2 peer
}

// newRoom is host + v1 + v2 joined to "abc" with their queues drained.
func newRoom(t *testing.T) room {
	t.Helper()
	ctl := newController(testConfig())
	r := room{ctl: ctl, host: newPeer(t, ctl), v1: newPeer(t, ctl), v2: newPeer(t, ctl)}
	r.host.send(ctl, `{"t":"host-ready","s":"abc"}`)
	r.v1.send(ctl, `{"t":"viewer-join","s":"abc","uid":"v1"}`)
	r.v2.send(ctl, `{"t":"viewer-join","s":"abc","uid":"v2"}`)
	for _, p := range []peer{r.host, r.v1, r.v2} {
		p.sig.Reset()
	}
	return r
}

func TestScenarioA_HostReady(t *testing.T) {
	ctl := newController(testConfig())
	host := newPeer(t, ctl)

	host.send(ctl, `{"t":"host-ready","s":"abc"}`)

	assert.JSONEq(t, `{"t":"host-ready-ack","s":"abc"}`, lastFrame(t, host))
	info, ok := ctl.Orch.Sessions.Info("abc")
	require.True(t, ok)
	assert.Equal(t, 0, info.ViewerCount)
	assert.Equal(t, host.id, info.HostID)
}

func TestScenarioB_ViewerJoin(t *testing.T) {
	ctl := newController(testConfig())
	host, viewer := newPeer(t, ctl), newPeer(t, ctl)
	host.send(ctl, `{"t":"host-ready","s":"abc"}`)

	viewer.send(ctl, `{"t":"viewer-join","s":"abc","uid":"v1"}`)

	assert.JSONEq(t, `{"t":"viewer-joined-ack","s":"abc","uid":"v1"}`, lastFrame(t, viewer))
	assert.JSONEq(t, `{"t":"viewer-joined","viewerId":"v1","viewerCount":1}`, lastFrame(t, host))
}

func TestScenarioC_UnknownSession(t *testing.T) {
	ctl := newController(testConfig())
	viewer := newPeer(t, ctl)

	viewer.send(ctl, `{"t":"viewer-join","s":"zzz","uid":"v2"}`)

	assert.JSONEq(t, `{"t":"error","message":"Session not found"}`, lastFrame(t, viewer))
	assert.Equal(t, 0, ctl.Orch.Sessions.Len())
}

func TestScenarioD_OfferReachesOnlyTarget(t *testing.T) {
	r := newRoom(t)

	r.host.send(r.ctl, `{"t":"offer","s":"abc","d":{"type":"offer","sdp":"v=0"},"targetViewerId":"v1"}`)

	want := fmt.Sprintf(`{"t":"offer","s":"abc","d":{"type":"offer","sdp":"v=0"},"hostId":%q}`, r.host.id)
	assert.JSONEq(t, want, lastFrame(t, r.v1))
	assert.Empty(t, r.v2.sig.Frames())
	assert.Empty(t, r.host.sig.Frames())
}

func TestScenarioE_HostDisconnect(t *testing.T) {
	r := newRoom(t)

	r.ctl.disconnect(r.host.id)

	assert.JSONEq(t, `{"t":"host-disconnected","s":"abc"}`, lastFrame(t, r.v1))
	assert.JSONEq(t, `{"t":"host-disconnected","s":"abc"}`, lastFrame(t, r.v2))
	_, ok := r.ctl.Orch.Sessions.Get("abc")
	assert.False(t, ok)

	late := newPeer(t, r.ctl)
	late.send(r.ctl, `{"t":"viewer-join","s":"abc","uid":"v3"}`)
	assert.JSONEq(t, `{"t":"error","message":"Session not found"}`, lastFrame(t, late))
}

func TestScenarioF_CursorFanOut(t *testing.T) {
	r := newRoom(t)
	raw := `{"t":"cursor","uid":"v1","pos":{"x":10,"y":20}}`

	r.v1.send(r.ctl, raw)

	assert.Equal(t, raw, lastFrame(t, r.host))
	assert.Equal(t, raw, lastFrame(t, r.v2))
	assert.Empty(t, r.v1.sig.Frames())
}

func TestAnswerReachesHost(t *testing.T) {
	r := newRoom(t)

	r.v2.send(r.ctl, `{"t":"answer","s":"abc","d":{"type":"answer","sdp":"v=0"}}`)

	assert.JSONEq(t, `{"t":"answer","s":"abc","d":{"type":"answer","sdp":"v=0"},"viewerId":"v2"}`, lastFrame(t, r.host))
	assert.Empty(t, r.v1.sig.Frames())
}

func TestCandidateDirections(t *testing.T) {
	r := newRoom(t)

	r.host.send(r.ctl, `{"t":"ice-candidate","s":"abc","d":{"candidate":"c1"},"targetViewerId":"v2","from":"host"}`)
	want := fmt.Sprintf(`{"t":"ice-candidate","s":"abc","d":{"candidate":"c1"},"from":"host","hostId":%q}`, r.host.id)
	assert.JSONEq(t, want, lastFrame(t, r.v2))
	assert.Empty(t, r.v1.sig.Frames())

	r.v1.send(r.ctl, `{"t":"ice-candidate","s":"abc","d":{"candidate":"c2"},"from":"viewer"}`)
	assert.JSONEq(t, `{"t":"ice-candidate","s":"abc","d":{"candidate":"c2"},"from":"viewer","viewerId":"v1"}`, lastFrame(t, r.host))
}

func TestViewerDisconnectNotifiesHost(t *testing.T) {
	r := newRoom(t)

	r.ctl.disconnect(r.v1.id)

	assert.JSONEq(t, `{"t":"viewer-count-changed","s":"abc","count":1}`, lastFrame(t, r.host))
	assert.Empty(t, r.v2.sig.Frames())

	r.ctl.disconnect(r.v1.id)
	assert.Len(t, r.host.sig.Frames(), 1, "second disconnect is a no-op")
}

func TestTargetNotFoundIsReported(t *testing.T) {
	r := newRoom(t)

	r.host.send(r.ctl, `{"t":"offer","s":"abc","d":{"sdp":"x"},"targetViewerId":"v9"}`)

	assert.JSONEq(t, `{"t":"error","message":"Target not found"}`, lastFrame(t, r.host))
	assert.Empty(t, r.v1.sig.Frames())
	assert.Empty(t, r.v2.sig.Frames())
}

func TestRoleGating(t *testing.T) {
	r := newRoom(t)
	stranger := newPeer(t, r.ctl)

	cases := []struct {
		name  string
		from  peer
		frame string
	}{
		{"viewer offer", r.v1, `{"t":"offer","s":"abc","d":{"sdp":"x"},"targetViewerId":"v2"}`},
		{"host answer", r.host, `{"t":"answer","s":"abc","d":{"sdp":"x"}}`},
		{"viewer stats", r.v1, `{"t":"stats","s":"abc","d":{"bytesTransferred":1}}`},
		{"viewer host-ready", r.v1, `{"t":"host-ready","s":"abc"}`},
		{"host viewer-join", r.host, `{"t":"viewer-join","s":"abc","uid":"h"}`},
		{"unassigned cursor", stranger, `{"t":"cursor","uid":"x","pos":{}}`},
		{"unassigned candidate", stranger, `{"t":"ice-candidate","s":"abc","d":{"c":1}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.from.sig.Reset()
			tc.from.send(r.ctl, tc.frame)
			assert.JSONEq(t, `{"t":"error","message":"Not allowed for role"}`, lastFrame(t, tc.from))
		})
	}

	info, ok := r.ctl.Orch.Sessions.Info("abc")
	require.True(t, ok)
	assert.Equal(t, r.host.id, info.HostID)
	assert.Equal(t, 2, info.ViewerCount)
	assert.Zero(t, info.StatsReports)
}

func TestSessionMismatch(t *testing.T) {
	r := newRoom(t)

	r.host.send(r.ctl, `{"t":"offer","s":"other","d":{"sdp":"x"},"targetViewerId":"v1"}`)

	assert.JSONEq(t, `{"t":"error","message":"Session mismatch"}`, lastFrame(t, r.host))
	assert.Empty(t, r.v1.sig.Frames())
}

func TestDuplicateViewerID(t *testing.T) {
	r := newRoom(t)
	dup := newPeer(t, r.ctl)

	dup.send(r.ctl, `{"t":"viewer-join","s":"abc","uid":"v1"}`)

	assert.JSONEq(t, `{"t":"error","message":"Viewer id already in session"}`, lastFrame(t, dup))
	assert.Empty(t, r.host.sig.Frames())
}

func TestBadFramesKeepConnectionOpen(t *testing.T) {
	ctl := newController(testConfig())
	p := newPeer(t, ctl)

	cases := map[string]string{
		`not json`:                          "Invalid message format",
		`{"s":"abc"}`:                       "Missing field: t",
		`{"t":"viewer-join","s":"abc"}`:     "Missing field: uid",
		`{"t":"offer","s":"abc","d":{}}`:    "Missing field: targetViewerId",
		`{"t":"host-ready","s":42}`:         "Invalid message format",
		`{"t":"answer","s":"abc","d":null}`: "Missing field: d",
	}
	for frame, msg := range cases {
		p.send(ctl, frame)
		assert.JSONEq(t, fmt.Sprintf(`{"t":"error","message":%q}`, msg), lastFrame(t, p), frame)
	}

	p.send(ctl, `{"t":"ping"}`)
	assert.JSONEq(t, `{"t":"pong"}`, lastFrame(t, p))
	assert.False(t, p.sig.Closed())
	assert.Equal(t, 0, ctl.Orch.Sessions.Len())
}

func TestTooLongSessionIDRejected(t *testing.T) {
	ctl := newController(testConfig())
	p := newPeer(t, ctl)

	long := make([]byte, 200)
	for i := range long {
		long[i] = 'a'
	}
	p.send(ctl, fmt.Sprintf(`{"t":"host-ready","s":%q}`, long))

	assert.JSONEq(t, `{"t":"error","message":"Identifier too long"}`, lastFrame(t, p))
	assert.Equal(t, 0, ctl.Orch.Sessions.Len())
}

func TestUnknownTypeIsIgnored(t *testing.T) {
	ctl := newController(testConfig())
	p := newPeer(t, ctl)

	p.send(ctl, `{"t":"teleport","s":"abc"}`)

	assert.Empty(t, p.sig.Frames())
	assert.False(t, p.sig.Closed())
}

func TestPingRefreshesLiveness(t *testing.T) {
	ctl := newController(testConfig())
	p := newPeer(t, ctl)
	conn, ok := ctl.Orch.Registry.Lookup(p.id)
	require.True(t, ok)
	conn.Touch(time.Unix(0, 0))

	p.send(ctl, `{"t":"ping"}`)

	assert.JSONEq(t, `{"t":"pong"}`, lastFrame(t, p))
	assert.True(t, conn.LastHeartbeat().After(time.Unix(0, 0)))
}

func TestStatsAccumulate(t *testing.T) {
	r := newRoom(t)

	r.host.send(r.ctl, `{"t":"stats","s":"abc","d":{"bytesTransferred":1000,"fps":30}}`)
	r.host.send(r.ctl, `{"t":"stats","s":"abc","d":{"bytesTransferred":"lots"}}`)
	r.host.send(r.ctl, `{"t":"stats","s":"abc","d":{"bytesTransferred":24}}`)

	assert.Empty(t, r.host.sig.Frames(), "stats get no reply")
	info, ok := r.ctl.Orch.Sessions.Info("abc")
	require.True(t, ok)
	assert.Equal(t, uint64(1024), info.BytesTransferred)
	assert.Equal(t, 3, info.StatsReports)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 2
	cfg.RateInterval = time.Minute
	ctl := newController(cfg)
	p := newPeer(t, ctl)

	p.send(ctl, `{"t":"ping"}`)
	p.send(ctl, `{"t":"ping"}`)
	p.send(ctl, `{"t":"ping"}`)

	msgs := p.sig.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "pong", msgs[1]["t"])
	assert.Equal(t, map[string]any{"t": "error", "message": "Rate limit exceeded"}, msgs[2])

	ctl.disconnect(p.id)
	_, tracked := ctl.limiter.history[p.id]
	assert.False(t, tracked)
}

func TestBackpressureDisconnectsSlowPeer(t *testing.T) {
	r := newRoom(t)
	r.v1.sig.SetFull(true)

	r.host.send(r.ctl, `{"t":"offer","s":"abc","d":{"sdp":"x"},"targetViewerId":"v1"}`)

	assert.True(t, r.v1.sig.Closed())
	assert.False(t, r.host.sig.Closed())
}

type dropPolicy struct{}

func (dropPolicy) OnBackPressure(*app.Connection) app.BackpressureAction { return app.DropFrame }

func TestDropPolicyKeepsSlowPeer(t *testing.T) {
	r := newRoom(t)
	r.ctl.Orch.Policy = dropPolicy{}
	r.v1.sig.SetFull(true)

	r.host.send(r.ctl, `{"t":"offer","s":"abc","d":{"sdp":"x"},"targetViewerId":"v1"}`)

	assert.False(t, r.v1.sig.Closed())
}

func TestHostReannounceKeepsViewers(t *testing.T) {
	r := newRoom(t)

	r.host.send(r.ctl, `{"t":"host-ready","s":"abc"}`)

	assert.JSONEq(t, `{"t":"host-ready-ack","s":"abc"}`, lastFrame(t, r.host))
	info, ok := r.ctl.Orch.Sessions.Info("abc")
	require.True(t, ok)
	assert.Equal(t, 2, info.ViewerCount)
	assert.Equal(t, 1, r.ctl.Orch.Sessions.Len())
}
