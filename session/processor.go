package session

import "chartstream/protocol"

// Processor is the consumer-supplied sink for parsed business messages
// It runs on the orchestrator's goroutine; a Processor that
// needs parallelism must dispatch internally. A returned error propagates
// out of Run and terminates the session.
type Processor interface {
	Process(name string, msg *protocol.Message) error
}

// ProcessorFunc adapts a plain function to the Processor interface.
type ProcessorFunc func(name string, msg *protocol.Message) error

func (f ProcessorFunc) Process(name string, msg *protocol.Message) error {
	return f(name, msg)
}
