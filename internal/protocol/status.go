package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ament-gradle/ament-gradle/internal/domain"
)

type MessageType string

const (
	MsgStageStarted        MessageType = "stage_started"
	MsgInvocationStarted   MessageType = "invocation_started"
	MsgInvocationCompleted MessageType = "invocation_completed"
	MsgStageCompleted      MessageType = "stage_completed"
	MsgLog                 MessageType = "log"
	MsgError               MessageType = "error"
)

type StatusMessage struct {
	Type      MessageType `json:"type"`
	StageID   string      `json:"stage_id,omitempty"`
	Package   string      `json:"package,omitempty"`
	Stage     string      `json:"stage,omitempty"`
	Seq       int         `json:"seq,omitempty"`
	Args      []string    `json:"args,omitempty"`
	ExitCode  *int        `json:"exit_code,omitempty"`
	Outcome   string      `json:"outcome,omitempty"`
	Result    string      `json:"result,omitempty"`
	Message   string      `json:"message,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

type StatusWriter struct {
	w   io.Writer
	enc *json.Encoder
}

func NewStatusWriter(w io.Writer) *StatusWriter {
	return &StatusWriter{w: w, enc: json.NewEncoder(w)}
}

func (s *StatusWriter) StageStarted(run *domain.StageRun) {
	s.write(StatusMessage{Type: MsgStageStarted, StageID: run.ID, Package: run.PackageName, Stage: string(run.Stage)})
}

func (s *StatusWriter) InvocationStarted(run *domain.StageRun, rec *domain.InvocationRecord) {
	s.write(StatusMessage{Type: MsgInvocationStarted, StageID: run.ID, Seq: rec.Seq, Args: rec.Args})
}

func (s *StatusWriter) InvocationCompleted(run *domain.StageRun, rec *domain.InvocationRecord) {
	code := rec.ExitCode
	s.write(StatusMessage{Type: MsgInvocationCompleted, StageID: run.ID, Seq: rec.Seq, ExitCode: &code, Outcome: rec.Outcome})
}

func (s *StatusWriter) StageCompleted(run *domain.StageRun) {
	s.write(StatusMessage{
		Type:    MsgStageCompleted,
		StageID: run.ID,
		Package: run.PackageName,
		Stage:   string(run.Stage),
		Result:  string(run.State),
		Message: run.ErrorMessage,
	})
}

func (s *StatusWriter) Log(stageID, message string) {
	s.write(StatusMessage{Type: MsgLog, StageID: stageID, Message: message})
}

func (s *StatusWriter) Error(stageID, message string) {
	s.write(StatusMessage{Type: MsgError, StageID: stageID, Message: message})
}

func (s *StatusWriter) write(msg StatusMessage) {
	msg.Timestamp = time.Now()
	_ = s.enc.Encode(msg)
}

// Reporter forwards engine progress notifications to a StatusWriter.
type Reporter struct {
	w *StatusWriter
}

func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: NewStatusWriter(w)}
}

func (r *Reporter) OnStageStart(run *domain.StageRun) { r.w.StageStarted(run) }

func (r *Reporter) OnInvocationStart(run *domain.StageRun, rec *domain.InvocationRecord) {
	r.w.InvocationStarted(run, rec)
}

func (r *Reporter) OnInvocationComplete(run *domain.StageRun, rec *domain.InvocationRecord) {
	r.w.InvocationCompleted(run, rec)
}

func (r *Reporter) OnStageComplete(run *domain.StageRun) { r.w.StageCompleted(run) }

func ParseStatusStream(data []byte) ([]StatusMessage, error) {
	var msgs []StatusMessage
	dec := json.NewDecoder(bytes.NewReader(data))
	for dec.More() {
		var msg StatusMessage
		if err := dec.Decode(&msg); err != nil {
			return msgs, fmt.Errorf("failed to decode status message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}
