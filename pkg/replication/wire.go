// Package replication implements master-to-slave propagation of store
// mutations over a newline-delimited JSON TCP stream, plus the process
// supervisor that spawns and tears down slave instances for failure-mode
// testing.
package replication

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/flashcache/flashcache/pkg/kvengine"
)

// frameType tags each line on the wire.
type frameType string

const (
	frameHandshake frameType = "handshake"
	frameCommand   frameType = "command"
)

// frame is the single wire message shape: a handshake identifies the slave
// to the master once, at connection start; every message after that is a
// command frame carrying one kvengine.Op. Each Master/Slave pair serves
// exactly one shard over its own connection, so neither frame shape carries
// a shard tag — the two shapes below are what's on the wire,
// `{"type":"handshake","slaveId":"<string>"}` and
// `{"command":"<op>","args":[...]}`, with no extra fields on either. A
// command with no arguments (flushall) is sent as `{"command":"<op>"}`,
// without an "args" key.
type frame struct {
	Type string `json:"type,omitempty"`

	SlaveID string `json:"slaveId,omitempty"`

	Command string `json:"command,omitempty"`
	Args    []any  `json:"args,omitempty"`
}

func handshakeFrame(slaveID string) frame {
	return frame{Type: string(frameHandshake), SlaveID: slaveID} //nolint:exhaustruct
}

func commandFrame(op kvengine.Op) frame {
	return frame{Command: op.Command, Args: argsToWire(op.Command, op.Args)} //nolint:exhaustruct
}

// argsToWire renders an Op's string args as wire values: a "set" op's third
// argument is a ttlSecondsOrNull slot, so an empty string there becomes a
// JSON null and a parseable number becomes a JSON number rather than a
// quoted string. Every other argument stays a JSON string.
func argsToWire(command string, args []string) []any {
	wire := make([]any, len(args))

	for i, a := range args {
		wire[i] = a
	}

	if command == "set" && len(args) == 3 { //nolint:mnd
		if args[2] == "" {
			wire[2] = nil
		} else if seconds, err := strconv.ParseFloat(args[2], 64); err == nil {
			wire[2] = seconds
		}
	}

	return wire
}

func (f frame) toOp() kvengine.Op {
	args := make([]string, len(f.Args))

	for i, a := range f.Args {
		args[i] = wireArgToString(a)
	}

	return kvengine.Op{Command: f.Command, Args: args}
}

// wireArgToString renders a decoded wire arg back into Op's canonical
// string form: JSON null becomes "" (the ttlSecondsOrNull sentinel for "no
// ttl"), a JSON number is formatted back to its decimal string.
func wireArgToString(a any) string {
	switch v := a.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// frameWriter serializes frames as newline-delimited JSON onto w.
type frameWriter struct {
	enc *json.Encoder
}

func newFrameWriter(w io.Writer) *frameWriter {
	return &frameWriter{enc: json.NewEncoder(w)}
}

func (fw *frameWriter) write(f frame) error {
	if err := fw.enc.Encode(f); err != nil {
		return fmt.Errorf("%w: %w", kvengine.ErrTransport, err)
	}

	return nil
}

// frameReader parses newline-delimited JSON frames from r.
type frameReader struct {
	dec *json.Decoder
}

func newFrameReader(r io.Reader) *frameReader {
	return &frameReader{dec: json.NewDecoder(r)}
}

func (fr *frameReader) read() (frame, error) {
	var f frame

	if err := fr.dec.Decode(&f); err != nil {
		return frame{}, fmt.Errorf("%w: %w", kvengine.ErrTransport, err) //nolint:exhaustruct
	}

	return f, nil
}
