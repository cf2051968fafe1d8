// Package websocket exposes mazed over websockets.
//
// Two handlers are provided. PlayHandler speaks the line protocol with one
// request or reply per text message, so a browser can play exactly like a
// TCP client:
//
//	-> USER alice
//	<- DONE
//	-> LEVL test
//	<- DONE
//
// Hub streams session lifecycle events as JSON, one event per message. Pass
// Hub.Publish to session.WithObserver and mount Hub.ServeWS; subscribers may
// add ?level=<code> to receive a single level's events:
//
//	{"type":"created","session_id":"…","level":"test","user":"alice","status":"active","time":"…"}
//
// Event delivery never blocks the session host. Subscribers that fall
// behind are disconnected.
package websocket
