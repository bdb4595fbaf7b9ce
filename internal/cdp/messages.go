package cdp

import (
	"encoding/json"
	"fmt"
	"strings"
)

// The wire format is Chrome DevTools Protocol JSON. Only two event kinds
// are consumed; everything else (command replies included) is ignored.
// Decoding is defensive: missing fields default instead of failing.

// enableRuntime and enableLog are the two fixed requests sent on connect.
var (
	enableRuntime = []byte(`{"id":1,"method":"Runtime.enable"}`)
	enableLog     = []byte(`{"id":2,"method":"Log.enable"}`)
)

// Event is a decoded protocol event.
type Event interface {
	// ConsoleLine is the line to print on the interleaved console.
	ConsoleLine() string
}

// ConsoleEvent is a Runtime.consoleAPICalled notification.
type ConsoleEvent struct {
	Level   string
	Message string
}

func (e ConsoleEvent) ConsoleLine() string {
	return fmt.Sprintf("[console.%s] %s", e.Level, e.Message)
}

// LogEvent is a Log.entryAdded notification.
type LogEvent struct {
	Level string
	Text  string
}

func (e LogEvent) ConsoleLine() string {
	return fmt.Sprintf("[log.%s] %s", e.Level, e.Text)
}

type envelope struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

type remoteObject struct {
	Type        string          `json:"type"`
	Value       json.RawMessage `json:"value"`
	Description string          `json:"description"`
	ClassName   string          `json:"className"`
}

type consoleAPICalledParams struct {
	Type string         `json:"type"`
	Args []remoteObject `json:"args"`
}

type logEntryAddedParams struct {
	Entry struct {
		Level string `json:"level"`
		Text  string `json:"text"`
	} `json:"entry"`
}

// DecodeEvent parses one raw protocol message. It returns (nil, nil) for
// messages that are valid JSON but not an event we consume.
func DecodeEvent(data []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	switch env.Method {
	case "Runtime.consoleAPICalled":
		var params consoleAPICalledParams
		if len(env.Params) > 0 {
			if err := json.Unmarshal(env.Params, &params); err != nil {
				return nil, fmt.Errorf("decode consoleAPICalled: %w", err)
			}
		}
		level := params.Type
		if level == "" {
			level = "log"
		}
		return ConsoleEvent{Level: level, Message: formatArgs(params.Args)}, nil

	case "Log.entryAdded":
		var params logEntryAddedParams
		if len(env.Params) > 0 {
			if err := json.Unmarshal(env.Params, &params); err != nil {
				return nil, fmt.Errorf("decode entryAdded: %w", err)
			}
		}
		level := params.Entry.Level
		if level == "" {
			level = "info"
		}
		return LogEvent{Level: level, Text: params.Entry.Text}, nil

	default:
		return nil, nil
	}
}

// formatArgs reassembles a console call from its argument list: scalar
// values are stringified, object arguments render via description or class
// name, undefined renders literally.
func formatArgs(args []remoteObject) string {
	parts := make([]string, 0, len(args))
	for _, arg := range args {
		switch {
		case len(arg.Value) > 0:
			parts = append(parts, formatValue(arg.Value))
		case arg.Type == "object":
			desc := arg.Description
			if desc == "" {
				desc = arg.ClassName
			}
			if desc == "" {
				desc = "[object]"
			}
			parts = append(parts, desc)
		case arg.Type == "undefined":
			parts = append(parts, "undefined")
		default:
			parts = append(parts, fmt.Sprintf("<%s>", arg.Type))
		}
	}
	return strings.Join(parts, " ")
}

func formatValue(raw json.RawMessage) string {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
