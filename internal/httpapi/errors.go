package httpapi

import "errors"

var (
	// errChatNotFound is raised when the target session id has no
	// registered inbound channel (the id was never registered; a killed
	// worker's channel stays registered) -- surfaced verbatim as the spec's
	// "Chat not found" message.
	errChatNotFound = errors.New("Chat not found")

	// errRoundTripTimeout guards the HTTP edge against a worker that never
	// replies; spec §7 accepts "blocks forever" for the IPC layer itself,
	// but the HTTP handler must still resolve the underlying request.
	errRoundTripTimeout = errors.New("Error: Unknown error")
)
