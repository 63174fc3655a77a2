package manifest

import (
	"errors"
	"fmt"

	"github.com/dshills/keystate/internal/message"
)

// LogSource is the source given to messages read from a log without one.
const LogSource = "log"

// LoadMessages reads a message log from the OS file system.
func LoadMessages(path string) ([]message.Message, error) {
	return NewLoader(nil).LoadMessages(path)
}

// LoadMessages reads a message log.
//
// A log is a list of {type, payload, id, source} entries, either at the top
// level or under a messages key. TOML logs always use the key:
//
//	[[messages]]
//	type = "cart/add"
//	payload = "pen"
func (l *Loader) LoadMessages(path string) ([]message.Message, error) {
	data, err := l.fs.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading messages: %w", err)
	}
	return ParseMessages(path, data)
}

// ParseMessages parses a message log; path only selects the format.
func ParseMessages(path string, data []byte) ([]message.Message, error) {
	var doc any
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	if format == FormatTOML {
		var table map[string]any
		if err := decode(path, data, &table, false); err != nil {
			return nil, err
		}
		doc = table
	} else if err := decode(path, data, &doc, false); err != nil {
		return nil, err
	}

	var entries []any
	switch v := doc.(type) {
	case nil:
		return nil, nil
	case []any:
		entries = v
	case map[string]any:
		list, ok := v["messages"].([]any)
		if !ok && v["messages"] != nil {
			return nil, fmt.Errorf("%w: %s: messages must be a list", ErrInvalidMessages, path)
		}
		entries = list
	default:
		return nil, fmt.Errorf("%w: %s: got %T", ErrInvalidMessages, path, doc)
	}

	msgs := make([]message.Message, 0, len(entries))
	for i, e := range entries {
		msg, err := toMessage(e)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: entry %d: %v", ErrInvalidMessages, path, i, err)
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

func toMessage(e any) (message.Message, error) {
	fields, ok := e.(map[string]any)
	if !ok {
		return message.Message{}, fmt.Errorf("entry is %T, not a table", e)
	}

	actionType, _ := fields["type"].(string)
	if actionType == "" {
		return message.Message{}, errors.New("missing type")
	}

	msg := message.New(actionType, fields["payload"]).WithSource(LogSource)
	if id, ok := fields["id"].(string); ok && id != "" {
		msg.ID = id
	}
	if source, ok := fields["source"].(string); ok && source != "" {
		msg.Source = source
	}
	return msg, nil
}
