package eval

import (
	"context"
	"errors"
	"testing"

	"github.com/polterguy/magic.endpoint-sub000/pkg/lambda"
)

func TestRunInvokesSlotsInOrder(t *testing.T) {
	reg := NewRegistry()
	var calls []string
	reg.Register("first", func(ctx context.Context, ev *Evaluator, sc *Scope, n *lambda.Node) error {
		calls = append(calls, "first")
		return nil
	})
	reg.Register("second", func(ctx context.Context, ev *Evaluator, sc *Scope, n *lambda.Node) error {
		calls = append(calls, "second")
		return nil
	})

	root, _ := lambda.Parse([]byte(".declaration:skipped\nfirst\nsecond\n"))
	if err := New(reg).Run(context.Background(), NewScope(), root); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(calls) != 2 || calls[0] != "first" || calls[1] != "second" {
		t.Errorf("calls = %v", calls)
	}
}

func TestRunUnknownSlot(t *testing.T) {
	root, _ := lambda.Parse([]byte("no.such.slot\n"))
	err := New(NewRegistry()).Run(context.Background(), NewScope(), root)
	if err == nil {
		t.Fatalf("expected error for unknown slot")
	}
}

func TestRunStopsOnError(t *testing.T) {
	reg := NewRegistry()
	boom := errors.New("boom")
	ran := false
	reg.Register("fail", func(ctx context.Context, ev *Evaluator, sc *Scope, n *lambda.Node) error {
		return boom
	})
	reg.Register("after", func(ctx context.Context, ev *Evaluator, sc *Scope, n *lambda.Node) error {
		ran = true
		return nil
	})

	root, _ := lambda.Parse([]byte("fail\nafter\n"))
	if err := New(reg).Run(context.Background(), NewScope(), root); !errors.Is(err, boom) {
		t.Fatalf("Run() = %v, want boom", err)
	}
	if ran {
		t.Errorf("evaluation continued past a failing slot")
	}
}

func TestRunHonorsCancellation(t *testing.T) {
	reg := NewRegistry()
	reg.Register("noop", func(ctx context.Context, ev *Evaluator, sc *Scope, n *lambda.Node) error {
		return nil
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	root, _ := lambda.Parse([]byte("noop\n"))
	if err := New(reg).Run(ctx, NewScope(), root); !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() = %v, want context.Canceled", err)
	}
}

func TestScopeShadowingAndPop(t *testing.T) {
	sc := NewScope()
	sc.Push("request", "outer")
	sc.Push("request", "inner")

	if v, _ := sc.Named("request"); v != "inner" {
		t.Errorf("Named() = %v, want inner", v)
	}
	sc.Pop()
	if v, _ := sc.Named("request"); v != "outer" {
		t.Errorf("Named() after pop = %v, want outer", v)
	}
	sc.Pop()
	if _, ok := sc.Named("request"); ok {
		t.Errorf("Named() found entry on empty scope")
	}
}
