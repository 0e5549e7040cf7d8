package pubsub

import (
	"errors"
	"testing"
)

func TestPublishWithoutSubscribers(t *testing.T) {
	b := New()
	if err := b.Publish("nothing", 1, 2); err != nil {
		t.Errorf("Publish with no subscribers = %v, want nil", err)
	}
	if err := b.Publish(""); err != nil {
		t.Errorf("Publish with empty name = %v", err)
	}
}

func TestPublishOrderAndArgs(t *testing.T) {
	b := New()
	var got []string
	b.Subscribe("e", func(args ...any) error {
		got = append(got, "first:"+args[0].(string))
		return nil
	})
	b.Subscribe("e", func(args ...any) error {
		got = append(got, "second:"+args[0].(string))
		return nil
	})

	if err := b.Publish("e", "x"); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "first:x" || got[1] != "second:x" {
		t.Errorf("got %v", got)
	}
}

func TestSubscribeDuringPublish(t *testing.T) {
	b := New()
	calls := 0
	b.Subscribe("e", func(...any) error {
		calls++
		b.Subscribe("e", func(...any) error {
			calls++
			return nil
		})
		return nil
	})

	_ = b.Publish("e")
	if calls != 1 {
		t.Errorf("handler added during publish ran in the same publish: calls=%d", calls)
	}
	if b.Len("e") != 2 {
		t.Errorf("Len = %d, want 2", b.Len("e"))
	}
}

func TestRemove(t *testing.T) {
	b := New()
	calls := 0
	sub := b.Subscribe("e", func(...any) error {
		calls++
		return nil
	})
	sub.Remove()
	sub.Remove()

	_ = b.Publish("e")
	if calls != 0 {
		t.Errorf("removed handler called %d times", calls)
	}

	b.Subscribe("e", func(...any) error { return nil })
	b.RemoveAll("e")
	if b.Len("e") != 0 {
		t.Error("RemoveAll left handlers")
	}
}

func TestPublishStopsAtFirstError(t *testing.T) {
	b := New()
	boom := errors.New("boom")
	secondCalled := false
	b.Subscribe("e", func(...any) error { return boom })
	b.Subscribe("e", func(...any) error {
		secondCalled = true
		return nil
	})

	if err := b.Publish("e"); !errors.Is(err, boom) {
		t.Errorf("Publish = %v, want boom", err)
	}
	if secondCalled {
		t.Error("handler after a failing one should not run")
	}
}
