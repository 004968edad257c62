package conversation

import (
	"encoding/json"
	"testing"
)

func countPending(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		if m.Pending {
			n++
		}
	}
	return n
}

func TestAppendPendingSingleton(t *testing.T) {
	s := NewStore()
	s.AppendUser("question")

	if _, err := s.AppendPending(); err != nil {
		t.Fatalf("AppendPending: %v", err)
	}
	if _, err := s.AppendPending(); err != ErrPendingExists {
		t.Fatalf("expected ErrPendingExists, got %v", err)
	}

	msgs := s.Messages()
	if countPending(msgs) != 1 {
		t.Fatalf("expected exactly one pending message, got %d", countPending(msgs))
	}
	if !msgs[len(msgs)-1].Pending {
		t.Fatal("pending placeholder must be the last message")
	}
}

func TestResolvePendingReplacesInPlace(t *testing.T) {
	s := NewStore()
	user := s.AppendUser("Is drug X viable for indication Y?")
	placeholder, err := s.AppendPending()
	if err != nil {
		t.Fatalf("AppendPending: %v", err)
	}

	viz := &Visualization{Drug: "X"}
	if !s.ResolvePending("Yes", viz) {
		t.Fatal("expected resolution to succeed")
	}

	msgs := s.Messages()
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].LocalID != user.LocalID || msgs[0].Content != "Is drug X viable for indication Y?" {
		t.Fatalf("user message changed: %#v", msgs[0])
	}
	if msgs[1].LocalID != placeholder.LocalID {
		t.Fatal("placeholder must be replaced in place, not re-appended")
	}
	if msgs[1].Pending || msgs[1].Content != "Yes" || msgs[1].Visualization != viz {
		t.Fatalf("unexpected resolved message: %#v", msgs[1])
	}
	if s.HasPending() {
		t.Fatal("pending flag must be cleared after resolution")
	}
}

func TestResolvePendingAfterResetIsNoop(t *testing.T) {
	s := NewStore()
	s.AppendUser("q")
	if _, err := s.AppendPending(); err != nil {
		t.Fatalf("AppendPending: %v", err)
	}
	s.Reset()

	if s.ResolvePending("late answer", nil) {
		t.Fatal("resolution after reset must be a no-op")
	}
	if len(s.Messages()) != 0 {
		t.Fatalf("expected empty timeline, got %d messages", len(s.Messages()))
	}
}

func TestResetClearsEverythingButSummaries(t *testing.T) {
	s := NewStore()
	s.Bind("abc123")
	s.AppendUser("q")
	s.SetActiveVisualization(&Visualization{Drug: "X"})
	s.SetSummaries([]Summary{{ConversationID: "abc123", LastQuestion: "q"}})

	s.Reset()

	if s.ActiveID() != "" {
		t.Fatalf("expected empty active id, got %q", s.ActiveID())
	}
	if len(s.Messages()) != 0 {
		t.Fatal("expected empty timeline")
	}
	if s.ActiveVisualization() != nil {
		t.Fatal("expected cleared visualization")
	}
	if len(s.Summaries()) != 1 {
		t.Fatal("summaries describe other conversations and must survive reset")
	}
}

func TestLoadSelectsMostRecentVisualization(t *testing.T) {
	s := NewStore()
	first := &Visualization{Drug: "A"}
	second := &Visualization{Drug: "B"}
	s.Load("abc123", []Message{
		{Role: RoleUser, Content: "q1"},
		{Role: RoleAssistant, Content: "a1", Visualization: first},
		{Role: RoleUser, Content: "q2"},
		{Role: RoleAssistant, Content: "a2", Visualization: second},
		{Role: RoleUser, Content: "q3"},
		{Role: RoleAssistant, Content: "a3"},
	})

	if s.ActiveID() != "abc123" {
		t.Fatalf("unexpected active id: %q", s.ActiveID())
	}
	if got := s.ActiveVisualization(); got != second {
		t.Fatalf("expected most recent visualization, got %#v", got)
	}
	for _, m := range s.Messages() {
		if m.LocalID == "" {
			t.Fatal("loaded messages must receive local ids")
		}
		if m.Pending {
			t.Fatal("loaded history is final")
		}
	}
}

func TestParseVisualizationVariants(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		raw     string
		want    string // expected drug, "" means nil payload
		wantErr bool
	}{
		{name: "object", raw: `{"drug":"X","condition":"IPF"}`, want: "X"},
		{name: "double encoded", raw: `"{\"drug\":\"Y\",\"condition\":[\"IPF\",\"COPD\"]}"`, want: "Y"},
		{name: "null", raw: `null`, want: ""},
		{name: "empty", raw: ``, want: ""},
		{name: "quoted null", raw: `"null"`, want: ""},
		{name: "garbage", raw: `{"drug":`, wantErr: true},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			viz, err := ParseVisualization(json.RawMessage(tc.raw))
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseVisualization: %v", err)
			}
			if tc.want == "" {
				if viz != nil {
					t.Fatalf("expected nil payload, got %#v", viz)
				}
				return
			}
			if viz == nil || viz.Drug != tc.want {
				t.Fatalf("unexpected payload: %#v", viz)
			}
		})
	}
}

func TestConditionListAcceptsStringOrArray(t *testing.T) {
	var single ConditionList
	if err := json.Unmarshal([]byte(`"IPF"`), &single); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if len(single) != 1 || single[0] != "IPF" {
		t.Fatalf("unexpected list: %v", single)
	}

	var many ConditionList
	if err := json.Unmarshal([]byte(`["IPF","COPD"]`), &many); err != nil {
		t.Fatalf("unmarshal array: %v", err)
	}
	if len(many) != 2 {
		t.Fatalf("unexpected list: %v", many)
	}
}
