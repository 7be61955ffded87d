// Package sse writes Server-Sent Events frames for the stream(thread_id)
// endpoint. It only implements the server-to-client data frame: no
// decoder, no reconnection/Last-Event-ID bookkeeping, no client Iter API.
// Those exist in the upstream SSE protocol but nothing in this module
// reads an SSE stream back, so there is nothing here to drive them.
package sse

import (
	"bytes"
	"encoding/json"
)

var byteLFLF = []byte("\n\n")

// encodeDataFrame marshals data as JSON and wraps it in a "data: " frame
// terminated by a blank line, per the SSE wire format.
func encodeDataFrame(data interface{}) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(payload) + 8)
	for _, line := range bytes.Split(payload, []byte("\n")) {
		buf.WriteString("data: ")
		buf.Write(line)
		buf.WriteByte('\n')
	}
	buf.Write([]byte("\n"))
	return buf.Bytes(), nil
}
