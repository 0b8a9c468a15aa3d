package appraisal

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

type answerKind uint8

const (
	answerNull answerKind = iota
	answerNumber
	answerText
	answerOther
)

// Answer is the value of an AnswerEntry: null until answered, then a number
// (Likert questions) or free text (open-ended questions). Any other JSON
// value is kept verbatim so validation can reject it with a precise reason.
type Answer struct {
	kind answerKind
	num  float64
	text string
	raw  json.RawMessage
}

func NullAnswer() Answer {
	return Answer{}
}

func NumberAnswer(v float64) Answer {
	return Answer{kind: answerNumber, num: v}
}

func TextAnswer(s string) Answer {
	return Answer{kind: answerText, text: s}
}

func (a Answer) IsNull() bool {
	return a.kind == answerNull
}

func (a Answer) Number() (float64, bool) {
	return a.num, a.kind == answerNumber
}

func (a Answer) Text() (string, bool) {
	return a.text, a.kind == answerText
}

// String renders the answer for display; null renders as "".
func (a Answer) String() string {
	switch a.kind {
	case answerNumber:
		return strconv.FormatFloat(a.num, 'f', -1, 64)
	case answerText:
		return a.text
	case answerOther:
		return string(a.raw)
	}
	return ""
}

func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.kind {
	case answerNumber:
		return json.Marshal(a.num)
	case answerText:
		return json.Marshal(a.text)
	case answerOther:
		return a.raw, nil
	}
	return []byte("null"), nil
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*a = Answer{}
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*a = TextAnswer(s)
		return nil
	case '{', '[', 't', 'f':
		*a = Answer{kind: answerOther, raw: append(json.RawMessage(nil), trimmed...)}
		return nil
	}
	var n float64
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*a = NumberAnswer(n)
	return nil
}

// likertScore normalises an answer given to a closed-ended question. Numeric
// strings are accepted because form controls submit select values as text.
func likertScore(a Answer) (int, string) {
	var v float64
	switch a.kind {
	case answerNumber:
		v = a.num
	case answerText:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(a.text), 64)
		if err != nil {
			return 0, "must be a number"
		}
		v = parsed
	default:
		return 0, "must be a number"
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return 0, "must be a whole number"
	}
	if v < LikertMin || v > LikertMax {
		return 0, "must be between 1 and 5"
	}
	return int(v), ""
}
