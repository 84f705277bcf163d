// Package engine implements the chat-driven link curation core: it turns an
// inbound stream of chat messages into an ordered, moderated queue of link
// candidates and fans queue state out to any number of attached consumers.
//
// The engine owns all mutable state (queue, ban registry, channel session)
// behind a single dispatch goroutine started by Run. Chat messages and
// control requests are serialized onto that goroutine, so consumers never
// observe a partially applied mutation. Snapshots for newly attached
// consumers are taken on the same goroutine for the same reason.
//
// The chat wire protocol itself lives elsewhere; the engine only depends on
// the Transport interface and on Message values delivered via Deliver.
package engine
