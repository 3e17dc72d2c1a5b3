package session

import "chartstream/protocol"

// ScrapeResult accumulates categorized messages in Standard mode and is
// returned from Run on clean transport end.
type ScrapeResult struct {
	QuoteSeriesData []*protocol.QuoteSeriesDataMessage
	DataUpdates     []*protocol.DataUpdateMessage
	QuoteCompleted  []*protocol.QuoteCompletedMessage
	TimescaleUpdate []*protocol.TimescaleUpdateMessage
	Other           []*protocol.Message // acknowledgement/notification variants, retained verbatim
}

func (r *ScrapeResult) record(msg *protocol.Message) {
	switch msg.Kind {
	case protocol.MessageQuoteSeriesData:
		r.QuoteSeriesData = append(r.QuoteSeriesData, msg.QuoteSeriesData)
	case protocol.MessageDataUpdate:
		r.DataUpdates = append(r.DataUpdates, msg.DataUpdate)
	case protocol.MessageQuoteCompleted:
		r.QuoteCompleted = append(r.QuoteCompleted, msg.QuoteCompleted)
	case protocol.MessageTimescaleUpdate:
		r.TimescaleUpdate = append(r.TimescaleUpdate, msg.TimescaleUpdate)
	default:
		r.Other = append(r.Other, msg)
	}
}
