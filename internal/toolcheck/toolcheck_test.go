package toolcheck

import (
	"context"
	"errors"
	"testing"
)

func TestAllOK(t *testing.T) {
	results := []Result{{Name: "a"}, {Name: "b"}}
	if !AllOK(results) {
		t.Fatal("expected all-ok")
	}
	results = append(results, Result{Name: "c", Err: errors.New("boom")})
	if AllOK(results) {
		t.Fatal("expected failure detected")
	}
}

func TestRunInvokesEveryChecker(t *testing.T) {
	calls := 0
	checkers := []Checker{
		{Name: "one", Check: func(ctx context.Context) error { calls++; return nil }},
		{Name: "two", Check: func(ctx context.Context) error { calls++; return errors.New("nope") }},
	}
	results := Run(context.Background(), checkers...)
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if results[0].Err != nil || results[1].Err == nil {
		t.Fatalf("unexpected results: %#v", results)
	}
}
