package trace

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Format is the on-disk form of trace events.
type Format uint8

const (
	FormatAuto   Format = iota // chosen from the output file extension
	FormatText                 // one aligned line per event
	FormatNDJSON               // one JSON object per line
)

// FormatEvent renders ev as a single newline-terminated line.
func FormatEvent(ev *Event, format Format) []byte {
	if format == FormatNDJSON {
		return eventJSON(ev)
	}
	return eventText(ev)
}

type jsonAttr struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type jsonEvent struct {
	Time      string     `json:"time"`
	Seq       uint64     `json:"seq"`
	Kind      string     `json:"kind"`
	Scope     string     `json:"scope"`
	Span      uint64     `json:"span,omitempty"`
	Parent    uint64     `json:"parent,omitempty"`
	Name      string     `json:"name"`
	Detail    string     `json:"detail,omitempty"`
	ElapsedMS float64    `json:"elapsed_ms,omitempty"`
	Attrs     []jsonAttr `json:"attrs,omitempty"`
}

func eventJSON(ev *Event) []byte {
	out := jsonEvent{
		Time:   ev.Time.UTC().Format(time.RFC3339Nano),
		Seq:    ev.Seq,
		Kind:   ev.Kind.String(),
		Scope:  ev.Scope.String(),
		Span:   ev.SpanID,
		Parent: ev.ParentID,
		Name:   ev.Name,
		Detail: ev.Detail,
	}
	if ev.Elapsed > 0 {
		out.ElapsedMS = float64(ev.Elapsed.Microseconds()) / 1000
	}
	for _, a := range ev.Attrs {
		out.Attrs = append(out.Attrs, jsonAttr(a))
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil
	}
	return append(data, '\n')
}

var kindMarks = []string{KindBegin: ">", KindEnd: "<", KindPoint: "*", KindHeartbeat: "~"}

// eventText renders "15:04:05.000 #12 pass    > compile (detail) 1.2ms k=v".
func eventText(ev *Event) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s #%-5d %-7s %s %s", ev.Time.Format("15:04:05.000"), ev.Seq, ev.Scope, nameOf(kindMarks, ev.Kind), ev.Name)
	if ev.Detail != "" {
		fmt.Fprintf(&b, " (%s)", ev.Detail)
	}
	if ev.Kind == KindEnd {
		fmt.Fprintf(&b, " %s", ev.Elapsed.Round(time.Microsecond))
	}
	for _, a := range ev.Attrs {
		fmt.Fprintf(&b, " %s=%s", a.Key, a.Value)
	}
	b.WriteByte('\n')
	return []byte(b.String())
}
