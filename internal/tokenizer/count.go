package tokenizer

import (
	"errors"
)

var errNilCounter = errors.New("nil tokenizer counter")

// CountResult captures the outcome of counting a piece of decoded content.
type CountResult struct {
	Tokens  int
	Counted bool
}

// CountText estimates tokens for already decoded text. A nil counter is an error.
func CountText(counter Counter, text string) (CountResult, error) {
	if counter == nil {
		return CountResult{}, errNilCounter
	}
	if text == "" {
		return CountResult{Counted: true}, nil
	}
	tokens, countError := counter.CountString(text)
	if countError != nil {
		return CountResult{}, countError
	}
	return CountResult{Tokens: tokens, Counted: true}, nil
}
