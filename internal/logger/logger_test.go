package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestFor(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := New(zap.New(core).Sugar(), "root")
	sub := l.For("scop")
	if want, got := "scop", sub.Module(); want != got {
		t.Errorf("module want: %s got: %s", want, got)
	}
	sub.Debugf("%s built %d statements", sub.Module(), 2)
	if want, got := 1, logs.Len(); want != got {
		t.Fatalf("expects %d log entry, got %d", want, got)
	}
	if want, got := "scop built 2 statements", logs.All()[0].Message; want != got {
		t.Errorf("message want: %s got: %s", want, got)
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Infof("%s discarded", l.Module())
	if l.Module() != "" {
		t.Errorf("nop logger should have no module, got %q", l.Module())
	}
}
