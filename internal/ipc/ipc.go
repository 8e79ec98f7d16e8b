// Package ipc is the local control channel: a unix socket that accepts one
// JSON utterance per connection and replies with the assistant's response.
package ipc

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
)

const SocketPath = "/tmp/verba.sock"

// Utterance is one injected command.
type Utterance struct {
	Text string `json:"text"`
}

// Response is what the assistant said back.
type Response struct {
	Text    string `json:"text"`
	Ignored bool   `json:"ignored,omitempty"`
}

// StartServer listens on the control socket. handler runs once per
// connection with the received utterance.
func StartServer(handler func(Utterance) Response) error {
	os.Remove(SocketPath)

	ln, err := net.Listen("unix", SocketPath)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				continue
			}
			go handleConn(conn, handler)
		}
	}()

	return nil
}

func handleConn(conn net.Conn, handler func(Utterance) Response) {
	defer conn.Close()

	var msg Utterance
	if err := json.NewDecoder(conn).Decode(&msg); err != nil {
		return
	}
	resp := handler(msg)
	json.NewEncoder(conn).Encode(resp)
}

// Send delivers one utterance to a running daemon and returns its reply.
func Send(text string) (Response, error) {
	conn, err := net.Dial("unix", SocketPath)
	if err != nil {
		return Response{}, err
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(Utterance{Text: text}); err != nil {
		return Response{}, err
	}
	var resp Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return Response{}, err
	}
	return resp, nil
}
