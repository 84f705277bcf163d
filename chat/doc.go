// Package chat adapts the Twitch IRC client to the engine's Transport
// interface.
//
// It connects anonymously by default (read-only chat needs no credentials);
// set TWITCH_BOT_USERNAME and TWITCH_OAUTH_TOKEN to attach as a bot account
// instead. Join and Part are confirmed against the server's self JOIN/PART
// echoes with a bounded wait, so callers get a real success/failure signal
// rather than fire-and-forget semantics.
//
// Inbound PRIVMSGs are translated into engine.Message values (display name,
// login, badge map, mod tag) and handed to the delivery callback on the IRC
// reader goroutine; the callback must not block for long.
package chat
