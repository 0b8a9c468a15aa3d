package appraisal

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestAnswerJSON(t *testing.T) {
	tests := []struct {
		in      string
		kind    answerKind
		display string
	}{
		{in: `null`, kind: answerNull, display: ""},
		{in: `4`, kind: answerNumber, display: "4"},
		{in: `"great team player"`, kind: answerText, display: "great team player"},
		{in: `true`, kind: answerOther, display: "true"},
		{in: `[1,2]`, kind: answerOther, display: "[1,2]"},
	}
	for _, tt := range tests {
		var a Answer
		if err := json.Unmarshal([]byte(tt.in), &a); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.in, err)
		}
		if a.kind != tt.kind {
			t.Fatalf("%s: expected kind %d, got %d", tt.in, tt.kind, a.kind)
		}
		if a.String() != tt.display {
			t.Fatalf("%s: expected display %q, got %q", tt.in, tt.display, a.String())
		}
		out, err := json.Marshal(a)
		if err != nil {
			t.Fatalf("marshal %s: %v", tt.in, err)
		}
		if string(out) != tt.in {
			t.Fatalf("expected %s to survive encoding, got %s", tt.in, out)
		}
	}
}

func TestLikertScore(t *testing.T) {
	tests := []struct {
		answer Answer
		score  int
		reason string
	}{
		{answer: NumberAnswer(1), score: 1},
		{answer: NumberAnswer(5), score: 5},
		{answer: TextAnswer(" 3 "), score: 3},
		{answer: NumberAnswer(0), reason: "must be between 1 and 5"},
		{answer: NumberAnswer(6), reason: "must be between 1 and 5"},
		{answer: NumberAnswer(2.5), reason: "must be a whole number"},
		{answer: TextAnswer("three"), reason: "must be a number"},
	}
	for _, tt := range tests {
		score, reason := likertScore(tt.answer)
		if score != tt.score || reason != tt.reason {
			t.Fatalf("%v: expected (%d,%q), got (%d,%q)", tt.answer, tt.score, tt.reason, score, reason)
		}
	}
}

func TestValidateSubmission(t *testing.T) {
	distributed := []AnswerEntry{
		{Question: "Communicates clearly", Category: CategoryCommunication},
		{Question: "Anything else?", Category: CategoryCommunication, IsOpenEnded: true},
	}

	t.Run("normalises numeric strings", func(t *testing.T) {
		out, err := validateSubmission(distributed, []AnswerEntry{
			{Question: "Communicates clearly", Category: CategoryCommunication, Answer: TextAnswer("4")},
			{Question: "Anything else?", Category: CategoryCommunication, IsOpenEnded: true, Answer: NumberAnswer(42)},
		})
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		if v, ok := out[0].Answer.Number(); !ok || v != 4 {
			t.Fatalf("expected number 4, got %v", out[0].Answer)
		}
		if s, ok := out[1].Answer.Text(); !ok || s != "42" {
			t.Fatalf("expected open-ended text 42, got %v", out[1].Answer)
		}
	})

	t.Run("null answers are allowed", func(t *testing.T) {
		if _, err := validateSubmission(distributed, []AnswerEntry{{Question: "Communicates clearly"}}); err != nil {
			t.Fatalf("expected null answer to pass, got %v", err)
		}
	})

	t.Run("collects every issue", func(t *testing.T) {
		_, err := validateSubmission(distributed, []AnswerEntry{
			{Question: "Communicates clearly", Answer: NumberAnswer(9)},
			{Question: "Anything else?", Answer: TextAnswer("x")},
			{Question: ""},
		})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("expected validation error, got %v", err)
		}
		if len(verr.Issues) != 3 {
			t.Fatalf("expected 3 issues, got %+v", verr.Issues)
		}
		if verr.Issues[1].Field != "answers[1].isOpenEnded" {
			t.Fatalf("expected flag mismatch on entry 1, got %+v", verr.Issues[1])
		}
	})

	t.Run("open-ended rejects structured values", func(t *testing.T) {
		var a Answer
		_ = json.Unmarshal([]byte(`{"a":1}`), &a)
		_, err := validateSubmission(distributed, []AnswerEntry{{Question: "Anything else?", IsOpenEnded: true, Answer: a}})
		if !errors.Is(err, ErrValidation) {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{
		"developer":            RoleDeveloper,
		"USER":                 RoleDeveloper,
		"re":                   RoleRequirementEngineer,
		"REQUIREMENT_ENGINEER": RoleRequirementEngineer,
		" Manager ":            RoleManager,
	} {
		got, err := ParseRole(in)
		if err != nil || got != want {
			t.Fatalf("ParseRole(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := ParseRole("CEO"); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("expected invalid role, got %v", err)
	}
}
