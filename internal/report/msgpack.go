package report

import (
	"fmt"
	"io"

	"github.com/nao1215/acprobe/internal/model"
	"github.com/vmihailenco/msgpack/v5"
)

// MsgpackWriter outputs result records in MessagePack.
// The encoding is compact and fast to load back for very large
// vocabularies, at the cost of not being human readable.
type MsgpackWriter struct {
	baseWriter
}

// NewMsgpackWriter creates a MsgpackWriter that outputs to the given writer.
func NewMsgpackWriter(output io.Writer) *MsgpackWriter {
	return &MsgpackWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the session's result record. Session metadata has no
// MessagePack representation; use JSONWriter for it.
func (w *MsgpackWriter) Write(session *model.Session) (int, error) {
	if session.Result == nil {
		return 0, ErrNoResult
	}
	return w.WriteResult(session.Result)
}

// WriteResult outputs the result record.
func (w *MsgpackWriter) WriteResult(result *model.Result) (int, error) {
	data, err := msgpack.Marshal(result)
	if err != nil {
		return 0, fmt.Errorf("failed to encode result: %w", err)
	}
	return w.output.Write(data)
}
