package protocol

import (
	"strings"

	"github.com/shopspring/decimal"
	"github.com/valyala/fastjson"
)

// MessageKind is the tag of the closed Message variant set.
type MessageKind int

const (
	MessageServerHello MessageKind = iota
	MessagePing
	MessageQuoteSeriesData
	MessageDataUpdate
	MessageQuoteCompleted
	MessageTimescaleUpdate
	MessageSeriesLoading
	MessageSymbolResolved
	MessageSeriesCompleted
	MessageStudyLoading
	MessageStudyError
	MessageStudyCompleted
	MessageTickmarkUpdate
	MessageCriticalError
	MessageProtocolError
	MessageNotifyUser
)

func (k MessageKind) String() string {
	switch k {
	case MessageServerHello:
		return "ServerHello"
	case MessagePing:
		return "Ping"
	case MessageQuoteSeriesData:
		return "QuoteSeriesData"
	case MessageDataUpdate:
		return "DataUpdate"
	case MessageQuoteCompleted:
		return "QuoteCompleted"
	case MessageTimescaleUpdate:
		return "TimescaleUpdate"
	case MessageSeriesLoading:
		return "SeriesLoading"
	case MessageSymbolResolved:
		return "SymbolResolved"
	case MessageSeriesCompleted:
		return "SeriesCompleted"
	case MessageStudyLoading:
		return "StudyLoading"
	case MessageStudyError:
		return "StudyError"
	case MessageStudyCompleted:
		return "StudyCompleted"
	case MessageTickmarkUpdate:
		return "TickmarkUpdate"
	case MessageCriticalError:
		return "CriticalError"
	case MessageProtocolError:
		return "ProtocolError"
	case MessageNotifyUser:
		return "NotifyUser"
	default:
		return "Unknown"
	}
}

// QuoteSeriesDataUpdate is a single real-time quote tick. Every optional
// field is nil when the source JSON omitted the key or set it to null; the
// two cases are not distinguished.
type QuoteSeriesDataUpdate struct {
	Symbol      string
	Volume      *decimal.Decimal
	Ch          *decimal.Decimal
	Chp         *decimal.Decimal
	Rch         *decimal.Decimal
	Rchp        *decimal.Decimal
	Rtc         *decimal.Decimal
	RtcTime     *decimal.Decimal
	Lp          *decimal.Decimal
	LpTime      *decimal.Decimal
	Ask         *decimal.Decimal
	AskSize     *decimal.Decimal
	Bid         *decimal.Decimal
	BidSize     *decimal.Decimal
	TradeLoaded *bool
}

type QuoteSeriesDataMessage struct {
	QuoteSessionID string
	Update         QuoteSeriesDataUpdate
}

// SeriesBarUpdate is one OHLCV bar, used both for live series updates (C2
// "du"/sds_1) and historical ones (C2 "timescale_update"). Volume is the one
// optional element of the 6-wide value vector.
type SeriesBarUpdate struct {
	Index     int64
	Timestamp decimal.Decimal
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    *decimal.Decimal
}

type StudyUpdate struct {
	Index  int64
	Values []decimal.Decimal
}

type DataUpdateMessage struct {
	ChartSessionID string
	UpdateKey      string
	SeriesUpdates  []SeriesBarUpdate // nil unless UpdateKey == "sds_1" and an "s" array was present
	StudyUpdates   []StudyUpdate     // nil unless UpdateKey starts with "st"
}

type QuoteCompletedMessage struct {
	QuoteSessionID string
	Symbol         string
}

type TimescaleUpdateMessage struct {
	ChartSessionID string
	UpdateKey      *string
	Updates        []SeriesBarUpdate
}

// Message is the parsed, typed meaning of one envelope body. Only the
// pointer field matching Kind is populated; Raw always carries the original
// body so a processor can inspect acknowledgement/notification variants that
// this parser does not deep-decode.
type Message struct {
	Kind MessageKind
	Raw  string

	PingNonce uint64

	QuoteSeriesData *QuoteSeriesDataMessage
	DataUpdate      *DataUpdateMessage
	QuoteCompleted  *QuoteCompletedMessage
	TimescaleUpdate *TimescaleUpdateMessage
}

var fastjsonParserPool fastjson.ParserPool

// ParseMessage classifies a decoded envelope body into a Message, or returns
// a *ParseError / *FramingError describing why it could not be classified.
func ParseMessage(body string) (*Message, error) {
	if IsPingBody(body) {
		nonce, err := ParsePing(body)
		if err != nil {
			return nil, err
		}
		return &Message{Kind: MessagePing, Raw: body, PingNonce: nonce}, nil
	}

	p := fastjsonParserPool.Get()
	defer fastjsonParserPool.Put(p)

	v, err := p.Parse(body)
	if err != nil {
		return nil, newParseError(KindNotJSON, err.Error())
	}
	if v.Type() != fastjson.TypeObject {
		return nil, newParseError(KindNotJSON, "top-level value is not an object")
	}

	if v.Exists("javastudies") {
		return &Message{Kind: MessageServerHello, Raw: body}, nil
	}

	mVal := v.Get("m")
	messageType, err := asString(mVal, "m")
	if err != nil {
		return nil, err
	}

	switch messageType {
	case "qsd":
		return parseQuoteSeriesData(v, body)
	case "du":
		return parseDataUpdate(v, body)
	case "quote_completed":
		return parseQuoteCompleted(v, body)
	case "timescale_update":
		return parseTimescaleUpdate(v, body)
	case "series_loading":
		return &Message{Kind: MessageSeriesLoading, Raw: body}, nil
	case "symbol_resolved":
		return &Message{Kind: MessageSymbolResolved, Raw: body}, nil
	case "series_completed":
		return &Message{Kind: MessageSeriesCompleted, Raw: body}, nil
	case "study_loading":
		return &Message{Kind: MessageStudyLoading, Raw: body}, nil
	case "study_error":
		return &Message{Kind: MessageStudyError, Raw: body}, nil
	case "study_completed":
		return &Message{Kind: MessageStudyCompleted, Raw: body}, nil
	case "tickmark_update":
		return &Message{Kind: MessageTickmarkUpdate, Raw: body}, nil
	case "critical_error":
		return &Message{Kind: MessageCriticalError, Raw: body}, nil
	case "protocol_error", "protcol_error": // the server emits the misspelled tag on some paths; accept both
		return &Message{Kind: MessageProtocolError, Raw: body}, nil
	case "notify_user":
		return &Message{Kind: MessageNotifyUser, Raw: body}, nil
	default:
		return nil, newParseError(KindUnknownMessageType, messageType)
	}
}

func parseQuoteSeriesData(v *fastjson.Value, body string) (*Message, error) {
	p, err := asArray(v.Get("p"), "p")
	if err != nil {
		return nil, err
	}
	if len(p) < 2 {
		return nil, newParseError(KindProtocolViolation, "qsd p must have 2 elements")
	}
	quoteSessionID, err := asString(p[0], "p[0]")
	if err != nil {
		return nil, err
	}
	update, err := asObject(p[1], "p[1]")
	if err != nil {
		return nil, err
	}
	symbol, err := asString(update.Get("n"), "n")
	if err != nil {
		return nil, err
	}
	vObj, err := asObject(update.Get("v"), "v")
	if err != nil {
		return nil, err
	}

	out := QuoteSeriesDataUpdate{Symbol: symbol}
	var ferr error
	out.Volume, ferr = optionalDecimal(vObj, "volume", ferr)
	out.Ch, ferr = optionalDecimal(vObj, "ch", ferr)
	out.Chp, ferr = optionalDecimal(vObj, "chp", ferr)
	out.Rch, ferr = optionalDecimal(vObj, "rch", ferr)
	out.Rchp, ferr = optionalDecimal(vObj, "rchp", ferr)
	out.Rtc, ferr = optionalDecimal(vObj, "rtc", ferr)
	out.RtcTime, ferr = optionalDecimal(vObj, "rtc_time", ferr)
	out.Lp, ferr = optionalDecimal(vObj, "lp", ferr)
	out.LpTime, ferr = optionalDecimal(vObj, "lp_time", ferr)
	out.Ask, ferr = optionalDecimal(vObj, "ask", ferr)
	out.AskSize, ferr = optionalDecimal(vObj, "ask_size", ferr)
	out.Bid, ferr = optionalDecimal(vObj, "bid", ferr)
	out.BidSize, ferr = optionalDecimal(vObj, "bid_size", ferr)
	if ferr != nil {
		return nil, ferr
	}
	if !isNullOrAbsent(vObj, "trade_loaded") {
		b, err := asBool(vObj.Get("trade_loaded"), "trade_loaded")
		if err != nil {
			return nil, err
		}
		out.TradeLoaded = &b
	}

	return &Message{
		Kind: MessageQuoteSeriesData,
		Raw:  body,
		QuoteSeriesData: &QuoteSeriesDataMessage{
			QuoteSessionID: quoteSessionID,
			Update:         out,
		},
	}, nil
}

// optionalDecimal reads key from obj, treating absent-or-null as "no value".
// It threads a running error through the chain of optional fields in
// parseQuoteSeriesData so each call site stays a one-liner.
func optionalDecimal(obj *fastjson.Object, key string, priorErr error) (*decimal.Decimal, error) {
	if priorErr != nil {
		return nil, priorErr
	}
	if isNullOrAbsent(obj, key) {
		return nil, nil
	}
	d, err := asDecimal(obj.Get(key), key)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func parseDataUpdate(v *fastjson.Value, body string) (*Message, error) {
	p, err := asArray(v.Get("p"), "p")
	if err != nil {
		return nil, err
	}
	if len(p) < 2 {
		return nil, newParseError(KindProtocolViolation, "du p must have 2 elements")
	}
	chartSessionID, err := asString(p[0], "p[0]")
	if err != nil {
		return nil, err
	}
	update, err := asObject(p[1], "p[1]")
	if err != nil {
		return nil, err
	}

	var updateKey string
	update.Visit(func(k []byte, _ *fastjson.Value) {
		if updateKey == "" {
			updateKey = string(k)
		}
	})
	if updateKey == "" {
		return nil, newParseError(KindProtocolViolation, "du update object has no keys")
	}

	switch {
	case updateKey == "sds_1":
		updateValue, err := asObject(update.Get(updateKey), updateKey)
		if err != nil {
			return nil, err
		}
		if updateValue.Get("s") == nil {
			return &Message{
				Kind: MessageDataUpdate,
				Raw:  body,
				DataUpdate: &DataUpdateMessage{
					ChartSessionID: chartSessionID,
					UpdateKey:      updateKey,
				},
			}, nil
		}
		bars, err := parseSeriesBarArray(updateValue.Get("s"))
		if err != nil {
			return nil, err
		}
		return &Message{
			Kind: MessageDataUpdate,
			Raw:  body,
			DataUpdate: &DataUpdateMessage{
				ChartSessionID: chartSessionID,
				UpdateKey:      updateKey,
				SeriesUpdates:  bars,
			},
		}, nil

	case strings.HasPrefix(updateKey, "st"):
		updateValue, err := asObject(update.Get(updateKey), updateKey)
		if err != nil {
			return nil, err
		}
		stArr, err := asArray(updateValue.Get("st"), "st")
		if err != nil {
			return nil, err
		}
		studies := make([]StudyUpdate, 0, len(stArr))
		for _, el := range stArr {
			obj, err := asObject(el, "st[]")
			if err != nil {
				return nil, err
			}
			idx, err := asDecimal(obj.Get("i"), "i")
			if err != nil {
				return nil, err
			}
			vArr, err := asArray(obj.Get("v"), "v")
			if err != nil {
				return nil, err
			}
			values := make([]decimal.Decimal, 0, len(vArr))
			for _, ve := range vArr {
				d, err := asDecimal(ve, "v[]")
				if err != nil {
					return nil, err
				}
				values = append(values, d)
			}
			studies = append(studies, StudyUpdate{Index: idx.IntPart(), Values: values})
		}
		return &Message{
			Kind: MessageDataUpdate,
			Raw:  body,
			DataUpdate: &DataUpdateMessage{
				ChartSessionID: chartSessionID,
				UpdateKey:      updateKey,
				StudyUpdates:   studies,
			},
		}, nil

	default:
		return nil, newParseError(KindUnknownUpdateKey, updateKey)
	}
}

func parseSeriesBarArray(arrVal *fastjson.Value) ([]SeriesBarUpdate, error) {
	arr, err := asArray(arrVal, "s")
	if err != nil {
		return nil, err
	}
	bars := make([]SeriesBarUpdate, 0, len(arr))
	for _, el := range arr {
		obj, err := asObject(el, "s[]")
		if err != nil {
			return nil, err
		}
		idx, err := asDecimal(obj.Get("i"), "i")
		if err != nil {
			return nil, err
		}
		vArr, err := asArray(obj.Get("v"), "v")
		if err != nil {
			return nil, err
		}
		if len(vArr) < 5 {
			return nil, newParseError(KindProtocolViolation, "bar value vector shorter than 5 elements")
		}
		timestamp, err := asDecimal(vArr[0], "v[0]")
		if err != nil {
			return nil, err
		}
		open, err := asDecimal(vArr[1], "v[1]")
		if err != nil {
			return nil, err
		}
		high, err := asDecimal(vArr[2], "v[2]")
		if err != nil {
			return nil, err
		}
		low, err := asDecimal(vArr[3], "v[3]")
		if err != nil {
			return nil, err
		}
		closeP, err := asDecimal(vArr[4], "v[4]")
		if err != nil {
			return nil, err
		}
		var volume *decimal.Decimal
		if len(vArr) >= 6 {
			v, err := asDecimal(vArr[5], "v[5]")
			if err != nil {
				return nil, err
			}
			volume = &v
		}
		bars = append(bars, SeriesBarUpdate{
			Index:     idx.IntPart(),
			Timestamp: timestamp,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closeP,
			Volume:    volume,
		})
	}
	return bars, nil
}

func parseQuoteCompleted(v *fastjson.Value, body string) (*Message, error) {
	p, err := asArray(v.Get("p"), "p")
	if err != nil {
		return nil, err
	}
	if len(p) < 2 {
		return nil, newParseError(KindProtocolViolation, "quote_completed p must have 2 elements")
	}
	quoteSessionID, err := asString(p[0], "p[0]")
	if err != nil {
		return nil, err
	}
	symbol, err := asString(p[1], "p[1]")
	if err != nil {
		return nil, err
	}
	return &Message{
		Kind: MessageQuoteCompleted,
		Raw:  body,
		QuoteCompleted: &QuoteCompletedMessage{
			QuoteSessionID: quoteSessionID,
			Symbol:         symbol,
		},
	}, nil
}

func parseTimescaleUpdate(v *fastjson.Value, body string) (*Message, error) {
	p, err := asArray(v.Get("p"), "p")
	if err != nil {
		return nil, err
	}
	if len(p) < 2 {
		return nil, newParseError(KindProtocolViolation, "timescale_update p must have 2 elements")
	}
	chartSessionID, err := asString(p[0], "p[0]")
	if err != nil {
		return nil, err
	}
	update, err := asObject(p[1], "p[1]")
	if err != nil {
		return nil, err
	}

	var keys []string
	update.Visit(func(k []byte, _ *fastjson.Value) {
		keys = append(keys, string(k))
	})

	switch len(keys) {
	case 0:
		return &Message{
			Kind:            MessageTimescaleUpdate,
			Raw:             body,
			TimescaleUpdate: &TimescaleUpdateMessage{ChartSessionID: chartSessionID},
		}, nil
	case 1:
		updateKey := keys[0]
		updateValue, err := asObject(update.Get(updateKey), updateKey)
		if err != nil {
			return nil, err
		}
		bars, err := parseSeriesBarArray(updateValue.Get("s"))
		if err != nil {
			return nil, err
		}
		return &Message{
			Kind: MessageTimescaleUpdate,
			Raw:  body,
			TimescaleUpdate: &TimescaleUpdateMessage{
				ChartSessionID: chartSessionID,
				UpdateKey:      &updateKey,
				Updates:        bars,
			},
		}, nil
	default:
		return nil, newParseError(KindProtocolViolation, "timescale_update has more than one update key")
	}
}
