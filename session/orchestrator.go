package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"chartstream/protocol"
)

// SocketPath is the query-string-qualified path the production Dialer
// appends to its configured host. The scheme and host are owned by the
// Dialer implementation (wsconn.Dialer); the core only knows this suffix.
const SocketPath = "/socket.io/websocket?type=chart"

const (
	serverHelloTimeout     = 1 * time.Second
	symbolResolveTimeout   = 1 * time.Second
	seriesLoadingTimeout   = 1 * time.Second
	timescaleTimeout       = 2 * time.Second
	seriesCompletedTimeout = 1 * time.Second
	studyTimeout           = 1 * time.Second
	quoteCompletedTimeout  = 1 * time.Second
)

func isKind(kind protocol.MessageKind) func(*protocol.Message) bool {
	return func(m *protocol.Message) bool { return m.Kind == kind }
}

// readerHandle lets the orchestrator observe the reader goroutine's
// completion without consuming it: err is written before done is closed.
type readerHandle struct {
	done chan struct{}
	err  error
}

func startReader(ctx context.Context, r *reader) *readerHandle {
	h := &readerHandle{done: make(chan struct{})}
	go func() {
		h.err = r.run(ctx)
		close(h.done)
	}()
	return h
}

// awaitHandshakeMessage polls the buffer for a message satisfying pred,
// failing immediately when the reader has died on a fatal codec/parse/
// transport error. A clean end of stream keeps the scan going: anything the
// reader appended before EOF is still eligible until the stage times out.
func awaitHandshakeMessage(ctx context.Context, buffer *inboundBuffer, rh *readerHandle, pred func(*protocol.Message) bool) (*protocol.Message, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	readerDone := rh.done
	for {
		if m := buffer.tryRemoveMatching(pred); m != nil {
			return m, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-readerDone:
			if rh.err != nil {
				return nil, rh.err
			}
			readerDone = nil
		case <-ticker.C:
		}
	}
}

// awaitStage wraps withTimeout with handshake-stage duration metrics,
// labeled by stage name (e.g. "ServerHello", "cs_000000000001:SeriesLoading").
func awaitStage(ctx context.Context, buffer *inboundBuffer, rh *readerHandle, stage string, timeout time.Duration, kind protocol.MessageKind) error {
	start := time.Now()
	m, err := withTimeout(ctx, timeout, func(c context.Context) (*protocol.Message, error) {
		return awaitHandshakeMessage(c, buffer, rh, isKind(kind))
	})
	recordHandshakeStage(stage, time.Since(start))
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return &HandshakeTimeoutError{Stage: stage}
		}
		return err
	}
	recordMessageRead(m.Kind.String())
	return nil
}

// Run drives one session end to end: it dials the
// transport, spawns the reader, performs the configuration handshake, then
// enters steady state forwarding messages to proc and answering pings,
// until the transport ends or ctx is cancelled.
func Run(ctx context.Context, cfg SessionConfig, dial Dialer, proc Processor) (*ScrapeResult, error) {
	transport, err := dial.Dial(ctx, SocketPath)
	if err != nil {
		recordConnect(false)
		return nil, fmt.Errorf("session[%s]: dial: %w", cfg.Name, err)
	}
	recordConnect(true)
	defer func() {
		recordDisconnect()
		_ = transport.Close()
	}()

	buffer := newInboundBuffer()
	r := newReader(cfg.Name, transport, buffer)
	w := newWriter(transport)

	rh := startReader(ctx, r)

	if err := handshake(ctx, cfg, w, buffer, rh); err != nil {
		return nil, err
	}

	return steadyState(ctx, cfg, w, buffer, proc, rh)
}

func handshake(ctx context.Context, cfg SessionConfig, w *writer, buffer *inboundBuffer, rh *readerHandle) error {
	log.Info().Str("component", "orchestrator").Str("session", cfg.Name).Msg("🤝 starting handshake")

	if err := awaitStage(ctx, buffer, rh, "ServerHello", serverHelloTimeout, protocol.MessageServerHello); err != nil {
		return err
	}

	if err := w.setAuthToken(ctx, cfg.AuthToken); err != nil {
		return fmt.Errorf("session[%s]: set_auth_token: %w", cfg.Name, err)
	}
	recordMessageWritten("set_auth_token")
	if err := w.setLocale(ctx, "en", "US"); err != nil {
		return fmt.Errorf("session[%s]: set_locale: %w", cfg.Name, err)
	}
	recordMessageWritten("set_locale")

	for i, symbol := range cfg.ChartSymbols {
		if err := runChartSymbolHandshake(ctx, cfg, w, buffer, rh, i+1, symbol); err != nil {
			return err
		}
	}

	for j, symbol := range cfg.QuoteSymbols {
		if err := runQuoteSymbolHandshake(ctx, w, buffer, rh, j+1, symbol); err != nil {
			return err
		}
	}

	log.Info().Str("component", "orchestrator").Str("session", cfg.Name).Msg("✅ handshake complete")
	return nil
}

func runChartSymbolHandshake(ctx context.Context, cfg SessionConfig, w *writer, buffer *inboundBuffer, rh *readerHandle, index int, symbol string) error {
	csID := chartSessionID(index)

	if err := w.chartCreateSession(ctx, csID); err != nil {
		return fmt.Errorf("session[%s]: chart_create_session: %w", cfg.Name, err)
	}
	recordMessageWritten("chart_create_session")

	if err := w.resolveSymbol(ctx, csID, chartSymbolID, symbol); err != nil {
		return fmt.Errorf("session[%s]: resolve_symbol: %w", cfg.Name, err)
	}
	recordMessageWritten("resolve_symbol")
	if err := awaitStage(ctx, buffer, rh, fmt.Sprintf("%s:SymbolResolved", csID), symbolResolveTimeout, protocol.MessageSymbolResolved); err != nil {
		return err
	}

	if err := w.createSeries(ctx, csID, chartSeriesID, "s1", chartSymbolID, cfg.Timeframe, cfg.Range); err != nil {
		return fmt.Errorf("session[%s]: create_series: %w", cfg.Name, err)
	}
	recordMessageWritten("create_series")

	if err := w.switchTimezone(ctx, csID, "exchange"); err != nil {
		return fmt.Errorf("session[%s]: switch_timezone: %w", cfg.Name, err)
	}
	recordMessageWritten("switch_timezone")

	if err := awaitStage(ctx, buffer, rh, fmt.Sprintf("%s:SeriesLoading", csID), seriesLoadingTimeout, protocol.MessageSeriesLoading); err != nil {
		return err
	}
	if err := awaitStage(ctx, buffer, rh, fmt.Sprintf("%s:TimescaleUpdate", csID), timescaleTimeout, protocol.MessageTimescaleUpdate); err != nil {
		return err
	}
	if err := awaitStage(ctx, buffer, rh, fmt.Sprintf("%s:SeriesCompleted", csID), seriesCompletedTimeout, protocol.MessageSeriesCompleted); err != nil {
		return err
	}

	if len(cfg.Indicators) == 0 {
		return nil
	}

	if err := w.createStudy(ctx, csID, basicStudyID, "sessions_1", chartSeriesID, "Sessions@tv-basicstudies-241", "{}"); err != nil {
		return fmt.Errorf("session[%s]: create_study(basic): %w", cfg.Name, err)
	}
	recordMessageWritten("create_study")
	if err := awaitStudyCompletion(ctx, buffer, rh, fmt.Sprintf("%s:%s", csID, basicStudyID)); err != nil {
		return err
	}

	for k, payload := range cfg.Indicators {
		sID := studyID(k)
		if err := w.createStudy(ctx, csID, sID, basicStudyID, chartSeriesID, "Script@tv-scripting-101!", payload); err != nil {
			return fmt.Errorf("session[%s]: create_study(%s): %w", cfg.Name, sID, err)
		}
		recordMessageWritten("create_study")
		if err := awaitStudyCompletion(ctx, buffer, rh, fmt.Sprintf("%s:%s", csID, sID)); err != nil {
			return err
		}
	}

	return nil
}

func awaitStudyCompletion(ctx context.Context, buffer *inboundBuffer, rh *readerHandle, stageLabel string) error {
	if err := awaitStage(ctx, buffer, rh, stageLabel+":StudyLoading", studyTimeout, protocol.MessageStudyLoading); err != nil {
		return err
	}
	if err := awaitStage(ctx, buffer, rh, stageLabel+":StudyCompleted", studyTimeout, protocol.MessageStudyCompleted); err != nil {
		return err
	}
	return nil
}

func runQuoteSymbolHandshake(ctx context.Context, w *writer, buffer *inboundBuffer, rh *readerHandle, index int, symbol string) error {
	qsID := quoteSessionID(index)

	if err := w.quoteCreateSession(ctx, qsID); err != nil {
		return fmt.Errorf("quote_create_session: %w", err)
	}
	recordMessageWritten("quote_create_session")
	if err := w.quoteSetFields(ctx, qsID); err != nil {
		return fmt.Errorf("quote_set_fields: %w", err)
	}
	recordMessageWritten("quote_set_fields")
	if err := w.quoteAddSymbols(ctx, qsID, symbol); err != nil {
		return fmt.Errorf("quote_add_symbols: %w", err)
	}
	recordMessageWritten("quote_add_symbols")
	if err := w.quoteFastSymbols(ctx, qsID, symbol); err != nil {
		return fmt.Errorf("quote_fast_symbols: %w", err)
	}
	recordMessageWritten("quote_fast_symbols")

	if err := awaitStage(ctx, buffer, rh, fmt.Sprintf("%s:QuoteCompleted", qsID), quoteCompletedTimeout, protocol.MessageQuoteCompleted); err != nil {
		return err
	}
	return nil
}

// steadyState loops forever dispatching Ping->pong and forwarding every
// other message to proc, until the reader ends or ctx is cancelled.
// Transport/codec errors surfacing from the reader propagate; a clean end
// of stream returns a ScrapeResult in Standard mode.
func steadyState(ctx context.Context, cfg SessionConfig, w *writer, buffer *inboundBuffer, proc Processor, rh *readerHandle) (*ScrapeResult, error) {
	var result *ScrapeResult
	if cfg.Mode == ModeStandard {
		result = &ScrapeResult{}
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if msg := buffer.tryRemoveMatching(func(*protocol.Message) bool { return true }); msg != nil {
			if err := dispatchOne(ctx, cfg, w, proc, result, msg); err != nil {
				return nil, err
			}
			continue
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-rh.done:
			if rh.err != nil {
				return nil, rh.err
			}
			return drainRemaining(ctx, cfg, w, buffer, proc, result)
		case <-ticker.C:
		}
	}
}

// dispatchOne answers a Ping locally or forwards any other message to proc,
// recording it into result first when Standard-mode accumulation is active.
func dispatchOne(ctx context.Context, cfg SessionConfig, w *writer, proc Processor, result *ScrapeResult, msg *protocol.Message) error {
	recordMessageRead(msg.Kind.String())
	if msg.Kind == protocol.MessagePing {
		if err := w.pong(ctx, msg.PingNonce); err != nil {
			return fmt.Errorf("session[%s]: pong: %w", cfg.Name, err)
		}
		recordMessageWritten("pong")
		return nil
	}
	if result != nil {
		result.record(msg)
	}
	if err := proc.Process(cfg.Name, msg); err != nil {
		return fmt.Errorf("session[%s]: processor: %w", cfg.Name, err)
	}
	return nil
}

// drainRemaining processes whatever the reader appended before it observed
// end of stream, so a message delivered just before EOF is never dropped.
func drainRemaining(ctx context.Context, cfg SessionConfig, w *writer, buffer *inboundBuffer, proc Processor, result *ScrapeResult) (*ScrapeResult, error) {
	for {
		msg := buffer.tryRemoveMatching(func(*protocol.Message) bool { return true })
		if msg == nil {
			return result, nil
		}
		if err := dispatchOne(ctx, cfg, w, proc, result, msg); err != nil {
			return nil, err
		}
	}
}
