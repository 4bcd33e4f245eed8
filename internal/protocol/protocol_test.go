package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestRequestDecodesSuggestEnvelope(t *testing.T) {
	raw := `{"type":"suggest","session_id":"s1","buffer":"git ch","cursor_pos":6,"cwd":"/tmp"}`
	var req Request
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Type != RequestSuggest || req.SessionID != "s1" || req.CursorPos != 6 {
		t.Fatalf("got %+v", req)
	}
}

func TestEncodeSuggestionSanitizesFields(t *testing.T) {
	line := EncodeSuggestion(TagSuggestion, SuggestionItem{
		Text:        "git commit\t-m\r\n\"msg\"",
		Source:      "spec",
		Description: "line one\nline two",
		Kind:        "option",
	})
	fields := strings.Split(line, "\t")
	if fields[0] != "suggestion" {
		t.Fatalf("expected tag first, got %q", fields[0])
	}
	if strings.Contains(line, "\r") {
		t.Fatalf("expected carriage returns dropped, got %q", line)
	}
	if strings.Contains(fields[3], "\n") {
		t.Fatalf("expected newline replaced with space in description, got %q", fields[3])
	}
}

func TestEncodeSuggestionEmptyTextIsValid(t *testing.T) {
	line := EncodeSuggestion(TagSuggestion, SuggestionItem{})
	if line != "suggestion\t\t\t\t" {
		t.Fatalf("expected empty-text suggestion frame, got %q", line)
	}
}

func TestEncodeSuggestionListFormatsGroupsOfFour(t *testing.T) {
	items := []SuggestionItem{
		{Text: "git checkout", Source: "spec", Description: "switch branches", Kind: "subcommand"},
		{Text: "git cherry-pick", Source: "spec", Description: "apply a commit", Kind: "subcommand"},
	}
	line := EncodeSuggestionList(items)
	fields := strings.Split(line, "\t")
	if fields[0] != "suggestion_list" || fields[1] != "2" {
		t.Fatalf("expected tag+count header, got %v", fields[:2])
	}
	if len(fields) != 2+2*4 {
		t.Fatalf("expected 2 groups of 4 fields, got %d fields", len(fields))
	}
}

func TestEncodeCompleteResultFormatsGroupsOfTwo(t *testing.T) {
	line := EncodeCompleteResult([]CompleteValue{{Value: "main", Description: "default branch"}})
	fields := strings.Split(line, "\t")
	if fields[0] != "complete_result" || fields[1] != "1" || len(fields) != 4 {
		t.Fatalf("got %v", fields)
	}
}

func TestEncodeBareFrames(t *testing.T) {
	if EncodePong() != "pong" {
		t.Fatalf("expected bare pong frame")
	}
	if EncodeAck() != "ack" {
		t.Fatalf("expected bare ack frame")
	}
	if EncodeError("boom") != "error\tboom" {
		t.Fatalf("got %q", EncodeError("boom"))
	}
}
