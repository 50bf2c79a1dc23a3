package tokenizer

import (
	"errors"
	"testing"
)

type testCounter struct{}

func (testCounter) Name() string { return "stub" }

func (testCounter) CountString(input string) (int, error) { return len([]rune(input)), nil }

type failingCounter struct{}

func (failingCounter) Name() string { return "failing" }

func (failingCounter) CountString(string) (int, error) { return 0, errors.New("boom") }

func TestCountText(t *testing.T) {
	result, err := CountText(testCounter{}, "héllo")
	if err != nil {
		t.Fatalf("CountText error: %v", err)
	}
	if !result.Counted {
		t.Fatalf("expected counted result")
	}
	if result.Tokens != 5 {
		t.Fatalf("expected 5 tokens, got %d", result.Tokens)
	}
}

func TestCountTextEmpty(t *testing.T) {
	result, err := CountText(failingCounter{}, "")
	if err != nil {
		t.Fatalf("empty text must not reach the counter: %v", err)
	}
	if !result.Counted || result.Tokens != 0 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestCountTextErrors(t *testing.T) {
	if _, err := CountText(nil, "text"); err == nil {
		t.Fatalf("expected error for nil counter")
	}
	if _, err := CountText(failingCounter{}, "text"); err == nil {
		t.Fatalf("expected counter error to propagate")
	}
}

func TestIsOpenAIModel(t *testing.T) {
	testCases := []struct {
		model    string
		expected bool
	}{
		{model: "gpt-4o", expected: true},
		{model: "text-embedding-3-small", expected: true},
		{model: "claude-3-5-sonnet", expected: false},
		{model: "llama-3", expected: false},
	}
	for _, testCase := range testCases {
		if actual := isOpenAIModel(testCase.model); actual != testCase.expected {
			t.Fatalf("isOpenAIModel(%q) = %v, want %v", testCase.model, actual, testCase.expected)
		}
	}
}
