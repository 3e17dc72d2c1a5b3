package session

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"chartstream/protocol"
)

// quoteFieldList is the fixed field set for quote_set_fields.
var quoteFieldList = []string{
	"base-currency-logoid", "ch", "chp", "currency-logoid", "currency_code",
	"currency_id", "base_currency_id", "current_session", "description",
	"exchange", "format", "fractional", "is_tradable", "language",
	"local_description", "listed_exchange", "logoid", "lp", "lp_time",
	"minmov", "minmove2", "original_name", "pricescale", "pro_name",
	"short_name", "type", "typespecs", "update_mode", "volume",
	"variable_tick_size", "value_unit_id", "unit_id", "measure",
}

// writer owns the transport's write half and exposes one method per
// protocol request. Every method serializes its JSON body,
// wraps it with protocol.SerializeEnvelope, and writes exactly one text
// message; none wait for an acknowledgement.
type writer struct {
	transport Transport
}

func newWriter(transport Transport) *writer {
	return &writer{transport: transport}
}

func (w *writer) send(ctx context.Context, body string) error {
	return w.transport.WriteMessage(ctx, []byte(protocol.SerializeEnvelope(body)))
}

// jsonString wraps s in quotes with no escaping of interior bytes. String
// fields are embedded verbatim: callers that pass pre-escaped symbol
// descriptors (a leading "=" followed by a JSON literal) rely on the exact
// bytes reaching the wire.
func jsonString(s string) string {
	return `"` + s + `"`
}

func (w *writer) setAuthToken(ctx context.Context, token string) error {
	return w.send(ctx, fmt.Sprintf(`{"m":"set_auth_token","p":[%s]}`, jsonString(token)))
}

func (w *writer) setLocale(ctx context.Context, language, region string) error {
	return w.send(ctx, fmt.Sprintf(`{"m":"set_locale","p":[%s,%s]}`, jsonString(language), jsonString(region)))
}

func (w *writer) chartCreateSession(ctx context.Context, csID string) error {
	return w.send(ctx, fmt.Sprintf(`{"m":"chart_create_session","p":[%s,""]}`, jsonString(csID)))
}

func (w *writer) switchTimezone(ctx context.Context, csID, tz string) error {
	return w.send(ctx, fmt.Sprintf(`{"m":"switch_timezone","p":[%s,%s]}`, jsonString(csID), jsonString(tz)))
}

func (w *writer) quoteCreateSession(ctx context.Context, qsID string) error {
	return w.send(ctx, fmt.Sprintf(`{"m":"quote_create_session","p":[%s,""]}`, jsonString(qsID)))
}

func (w *writer) quoteSetFields(ctx context.Context, qsID string) error {
	var b strings.Builder
	b.WriteString(jsonString(qsID))
	for _, f := range quoteFieldList {
		b.WriteByte(',')
		b.WriteString(jsonString(f))
	}
	return w.send(ctx, fmt.Sprintf(`{"m":"quote_set_fields","p":[%s]}`, b.String()))
}

func (w *writer) quoteAddSymbols(ctx context.Context, qsID, symbol string) error {
	return w.send(ctx, fmt.Sprintf(`{"m":"quote_add_symbols","p":[%s,%s]}`, jsonString(qsID), jsonString(symbol)))
}

func (w *writer) quoteFastSymbols(ctx context.Context, qsID, symbol string) error {
	return w.send(ctx, fmt.Sprintf(`{"m":"quote_fast_symbols","p":[%s,%s]}`, jsonString(qsID), jsonString(symbol)))
}

func (w *writer) resolveSymbol(ctx context.Context, csID, symbolID, symbol string) error {
	return w.send(ctx, fmt.Sprintf(`{"m":"resolve_symbol","p":[%s,%s,%s]}`, jsonString(csID), jsonString(symbolID), jsonString(symbol)))
}

// createSeries serializes range as a bare JSON number.
func (w *writer) createSeries(ctx context.Context, csID, seriesID, unk1, symbolID, timeframe string, rng int) error {
	return w.send(ctx, fmt.Sprintf(`{"m":"create_series","p":[%s,%s,%s,%s,%s,%s,""]}`,
		jsonString(csID), jsonString(seriesID), jsonString(unk1), jsonString(symbolID), jsonString(timeframe), strconv.Itoa(rng)))
}

// createStudy embeds value as a raw JSON fragment: callers pass an
// already-valid JSON object string.
func (w *writer) createStudy(ctx context.Context, csID, studyID, parentSessionID, seriesID, name, value string) error {
	return w.send(ctx, fmt.Sprintf(`{"m":"create_study","p":[%s,%s,%s,%s,%s,%s]}`,
		jsonString(csID), jsonString(studyID), jsonString(parentSessionID), jsonString(seriesID), jsonString(name), value))
}

// requestMoreTickmarks is a back-fill hook that exists but is not part of
// the required handshake contract.
func (w *writer) requestMoreTickmarks(ctx context.Context, csID, seriesID string, rng int) error {
	return w.send(ctx, fmt.Sprintf(`{"m":"request_more_tickmarks","p":[%s,%s,%s]}`, jsonString(csID), jsonString(seriesID), strconv.Itoa(rng)))
}

// requestMoreData is the paged counterpart to requestMoreTickmarks, also a
// hook the orchestrator's own handshake never calls.
func (w *writer) requestMoreData(ctx context.Context, csID, seriesID string, amount int) error {
	return w.send(ctx, fmt.Sprintf(`{"m":"request_more_data","p":[%s,%s,%s]}`, jsonString(csID), jsonString(seriesID), strconv.Itoa(amount)))
}

func (w *writer) pong(ctx context.Context, nonce uint64) error {
	return w.send(ctx, protocol.SerializePing(nonce))
}
