package mcp

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Transport frames newline-delimited JSON-RPC messages over a reader/writer
// pair, normally stdin/stdout. Writes are serialized so concurrent handlers
// never interleave output.
type Transport struct {
	reader *bufio.Reader
	writer io.Writer
	mu     sync.Mutex
}

// NewTransport wraps r and w in a message transport.
func NewTransport(r io.Reader, w io.Writer) *Transport {
	return &Transport{
		reader: bufio.NewReader(r),
		writer: w,
	}
}

// ReadMessage reads the next JSON-RPC request. io.EOF means the peer closed
// the stream.
func (t *Transport) ReadMessage() (*Request, error) {
	line, err := t.reader.ReadBytes('\n')
	if err != nil {
		return nil, err
	}

	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, fmt.Errorf("failed to parse message: %w", err)
	}
	return &req, nil
}

// WriteResponse writes one response followed by a newline.
func (t *Transport) WriteResponse(resp *Response) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(t.writer, "%s\n", data)
	return err
}

// WriteNotification writes a notification (a message without an id).
func (t *Transport) WriteNotification(method string, params any) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	var paramsData json.RawMessage
	if params != nil {
		var err error
		paramsData, err = json.Marshal(params)
		if err != nil {
			return err
		}
	}

	data, err := json.Marshal(Notification{JSONRPC: "2.0", Method: method, Params: paramsData})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(t.writer, "%s\n", data)
	return err
}
