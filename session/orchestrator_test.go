package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartstream/protocol"
)

func envelope(body string) []byte {
	return []byte(protocol.SerializeEnvelope(body))
}

const serverHelloBody = `{"session_id":"x","javastudies":["a"]}`

// recordingProcessor captures every non-Ping message delivered to it, in
// arrival order.
type recordingProcessor struct {
	received []*protocol.Message
}

func (p *recordingProcessor) Process(name string, msg *protocol.Message) error {
	p.received = append(p.received, msg)
	return nil
}

func TestRun_HandshakeTimeout_NoServerHello(t *testing.T) {
	tr := newFakeTransport() // empty and never ended: ReadMessage blocks, so ServerHello must time out
	dial := &fakeDialer{transport: tr}
	cfg := SessionConfig{Name: "t1"}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Run(ctx, cfg, dial, &recordingProcessor{})
	var hte *HandshakeTimeoutError
	require.ErrorAs(t, err, &hte)
	assert.Equal(t, "ServerHello", hte.Stage)
}

func TestRun_UnknownMessageType_FailsWithParseError(t *testing.T) {
	tr := newFakeTransport(envelope(`{"m":"X"}`))
	tr.endStream()
	dial := &fakeDialer{transport: tr}
	cfg := SessionConfig{Name: "t-unknown"}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Run(ctx, cfg, dial, &recordingProcessor{})
	var pe *protocol.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, protocol.KindUnknownMessageType, pe.Kind)
	assert.Equal(t, "X", pe.Detail)
}

func TestRun_SingleChartSymbol_ReachesSteadyStateAndReturnsResult(t *testing.T) {
	tr := newFakeTransport(
		envelope(serverHelloBody),
		envelope(`{"m":"symbol_resolved","p":["cs_000000000001"]}`),
		envelope(`{"m":"series_loading","p":["cs_000000000001"]}`),
		envelope(`{"m":"timescale_update","p":["cs_000000000001",{"sds_1":{"s":[{"i":0,"v":[1000,10,11,9,10,100]}]}}]}`),
		envelope(`{"m":"series_completed","p":["cs_000000000001"]}`),
	)
	tr.endStream()
	dial := &fakeDialer{transport: tr}
	cfg := SessionConfig{
		Name:         "t2",
		ChartSymbols: []string{"BINANCE:BTCUSDT"},
		Timeframe:    "60",
		Range:        300,
		Mode:         ModeStandard,
	}

	proc := &recordingProcessor{}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	result, err := Run(ctx, cfg, dial, proc)
	require.NoError(t, err)
	require.NotNil(t, result)

	writes := tr.writtenStrings()
	gotKinds := writtenMessageKinds(t, writes)
	assert.Equal(t, []string{
		"set_auth_token", "set_locale", "chart_create_session",
		"resolve_symbol", "create_series", "switch_timezone",
	}, gotKinds)
}

func TestRun_TwoIndicators_WriterOrderAndStudyIDs(t *testing.T) {
	tr := newFakeTransport(
		envelope(serverHelloBody),
		envelope(`{"m":"symbol_resolved","p":["cs_000000000001"]}`),
		envelope(`{"m":"series_loading","p":["cs_000000000001"]}`),
		envelope(`{"m":"timescale_update","p":["cs_000000000001",{}]}`),
		envelope(`{"m":"series_completed","p":["cs_000000000001"]}`),
		envelope(`{"m":"study_loading","p":["cs_000000000001","st1"]}`),
		envelope(`{"m":"study_completed","p":["cs_000000000001","st1"]}`),
		envelope(`{"m":"study_loading","p":["cs_000000000001","st2"]}`),
		envelope(`{"m":"study_completed","p":["cs_000000000001","st2"]}`),
		envelope(`{"m":"study_loading","p":["cs_000000000001","st3"]}`),
		envelope(`{"m":"study_completed","p":["cs_000000000001","st3"]}`),
	)
	tr.endStream()
	dial := &fakeDialer{transport: tr}
	cfg := SessionConfig{
		Name:         "t3",
		ChartSymbols: []string{"BINANCE:ETHUSDT"},
		Indicators:   []string{`{"text":"a","pineId":"p1","pineVersion":"1.0"}`, `{"text":"b","pineId":"p2","pineVersion":"1.0"}`},
		Timeframe:    "D",
		Range:        100,
		Mode:         ModeStandard,
	}

	proc := &recordingProcessor{}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := Run(ctx, cfg, dial, proc)
	require.NoError(t, err)

	writes := tr.writtenStrings()
	gotKinds := writtenMessageKinds(t, writes)
	assert.Equal(t, []string{
		"set_auth_token", "set_locale", "chart_create_session",
		"resolve_symbol", "create_series", "switch_timezone",
		"create_study", "create_study", "create_study",
	}, gotKinds)

	studyIDs := writtenStudyIDs(t, writes)
	assert.Equal(t, []string{"st1", "st2", "st3"}, studyIDs)
}

func TestRun_SteadyState_PingAnsweredAndOrderPreserved(t *testing.T) {
	tr := newFakeTransport(
		envelope(serverHelloBody),
	)
	dial := &fakeDialer{transport: tr}
	cfg := SessionConfig{Name: "t4", Mode: ModeStreaming}

	proc := &recordingProcessor{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		_, _ = Run(ctx, cfg, dial, proc)
		close(done)
	}()

	// Feed steady-state traffic once the handshake (no chart/quote symbols)
	// has had a chance to complete: DataUpdate(sds_1), DataUpdate(st1),
	// Ping(7), DataUpdate(st1).
	time.Sleep(20 * time.Millisecond)
	tr.pushMessage(envelope(`{"m":"du","p":["cs_1",{"sds_1":{"s":[{"i":0,"v":[1,2,3,4,5,6]}]}}]}`))
	tr.pushMessage(envelope(`{"m":"du","p":["cs_1",{"st1":{"st":[{"i":0,"v":[9,9]}]}}]}`))
	tr.pushMessage([]byte(protocol.SerializeEnvelope(protocol.SerializePing(7))))
	tr.pushMessage(envelope(`{"m":"du","p":["cs_1",{"st1":{"st":[{"i":1,"v":[1]}]}}]}`))

	require.Eventually(t, func() bool {
		return len(proc.received) >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	require.Len(t, proc.received, 3)
	var updateKeys []string
	for _, m := range proc.received {
		require.Equal(t, protocol.MessageDataUpdate, m.Kind)
		updateKeys = append(updateKeys, m.DataUpdate.UpdateKey)
	}
	assert.Equal(t, []string{"sds_1", "st1", "st1"}, updateKeys)
	require.Len(t, proc.received[2].DataUpdate.StudyUpdates, 1)
	assert.Equal(t, int64(1), proc.received[2].DataUpdate.StudyUpdates[0].Index)

	writes := tr.writtenStrings()
	pongs := 0
	for _, w := range writes {
		if w == "~m~4~m~~h~7" {
			pongs++
		}
	}
	assert.Equal(t, 1, pongs, "expected exactly one pong envelope for nonce 7")
}

func writtenMessageKinds(t *testing.T, writes []string) []string {
	t.Helper()
	var kinds []string
	for _, w := range writes {
		_, body, err := protocol.ParseEnvelope([]byte(w))
		require.NoError(t, err)
		if protocol.IsPingBody(body) {
			kinds = append(kinds, "pong")
			continue
		}
		var decoded struct {
			M string `json:"m"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &decoded))
		kinds = append(kinds, decoded.M)
	}
	return kinds
}

func writtenStudyIDs(t *testing.T, writes []string) []string {
	t.Helper()
	var ids []string
	for _, w := range writes {
		_, body, err := protocol.ParseEnvelope([]byte(w))
		require.NoError(t, err)
		if protocol.IsPingBody(body) {
			continue
		}
		var decoded struct {
			M string        `json:"m"`
			P []interface{} `json:"p"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &decoded))
		if decoded.M == "create_study" {
			ids = append(ids, decoded.P[1].(string))
		}
	}
	return ids
}
