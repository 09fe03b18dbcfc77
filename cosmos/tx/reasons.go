package tx

import (
	"encoding/json"
	"fmt"
	"strings"

	abci "github.com/cometbft/cometbft/abci/types"
	"github.com/kisa-team/gonka-wallet/arrays"
)

// ExtractFailureReason turns a failed result into a human readable reason. Message event attributes win,
// then the raw log (structured if it parses), then a generic message naming the code.
func ExtractFailureReason(code uint32, rawLog string, events []abci.Event) string {
	if reason := reasonFromEvents(events); reason != "" {
		return reason
	}
	if reason := reasonFromRawLog(rawLog); reason != "" {
		return reason
	}
	return fmt.Sprintf("transaction failed with code %d", code)
}

func reasonFromEvents(events []abci.Event) string {
	values := []string{}
	for _, event := range events {
		if event.Type != "message" {
			continue
		}
		for _, attribute := range event.Attributes {
			if attribute.Key != "error" && attribute.Key != "action" {
				continue
			}
			if value := strings.TrimSpace(attribute.Value); value != "" {
				values = append(values, value)
			}
		}
	}
	return strings.Join(arrays.Unique(values), "; ")
}

type rawLogEntry struct {
	Message string `json:"message"`
	Log     string `json:"log"`
	Error   string `json:"error"`
}

func (e rawLogEntry) text() string {
	for _, candidate := range []string{e.Message, e.Log, e.Error} {
		if trimmed := strings.TrimSpace(candidate); trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func reasonFromRawLog(rawLog string) string {
	trimmed := strings.TrimSpace(rawLog)
	if trimmed == "" {
		return ""
	}

	switch trimmed[0] {
	case '[':
		var entries []rawLogEntry
		if err := json.Unmarshal([]byte(trimmed), &entries); err == nil {
			values := arrays.Filter(arrays.Map(entries, rawLogEntry.text), func(value string) bool { return value != "" })
			return strings.Join(arrays.Unique(values), "; ")
		}
	case '{':
		var entry rawLogEntry
		if err := json.Unmarshal([]byte(trimmed), &entry); err == nil {
			return entry.text()
		}
	}

	return trimmed
}
