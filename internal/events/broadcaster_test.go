package events

import (
	"errors"
	"testing"
	"time"

	"github.com/fruitsalade/memfs/pkg/entity"
	"github.com/fruitsalade/memfs/pkg/namespace"
)

func TestBroadcasterSubscribeUnsubscribe(t *testing.T) {
	b := NewBroadcaster()

	ch1 := b.Subscribe()
	ch2 := b.Subscribe()

	if b.Count() != 2 {
		t.Fatalf("expected 2 subscribers, got %d", b.Count())
	}

	b.Unsubscribe(ch1)
	if b.Count() != 1 {
		t.Fatalf("expected 1 subscriber after unsubscribe, got %d", b.Count())
	}

	b.Unsubscribe(ch2)
	b.Unsubscribe(ch2)
	if b.Count() != 0 {
		t.Fatalf("expected 0 subscribers, got %d", b.Count())
	}
}

func TestBroadcasterPublish(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish(Event{Type: EventCreate, Path: `C\Docs`, Kind: "folder"})

	select {
	case received := <-ch:
		if received.Type != EventCreate {
			t.Errorf("expected type %s, got %s", EventCreate, received.Type)
		}
		if received.Path != `C\Docs` {
			t.Errorf("expected path C\\Docs, got %s", received.Path)
		}
		if received.Timestamp == 0 {
			t.Error("expected non-zero timestamp")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBroadcasterDropsForSlowConsumer(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < 100; i++ {
		b.Publish(Event{Type: EventWrite, Path: `C\overflow.txt`})
	}

	count := 0
	for {
		select {
		case <-ch:
			count++
		default:
			goto done
		}
	}
done:
	if count != bufferSize {
		t.Errorf("expected %d buffered events, got %d", bufferSize, count)
	}
}

func TestObserverPublishesSuccessfulMutations(t *testing.T) {
	b := NewBroadcaster()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	m := namespace.New(namespace.WithObserver(b.Observer()))
	if err := m.Create(entity.KindDrive, "C", ""); err != nil {
		t.Fatal(err)
	}
	if err := m.Create(entity.KindDrive, "C", ""); !errors.Is(err, namespace.ErrAlreadyExists) {
		t.Fatalf("duplicate drive: %v", err)
	}
	if _, err := m.Resolve("C"); err != nil {
		t.Fatal(err)
	}
	if err := m.Create(entity.KindTextFile, "a.txt", "C"); err != nil {
		t.Fatal(err)
	}
	if err := m.Rename(`C\a.txt`, "b.txt"); err != nil {
		t.Fatal(err)
	}

	want := []Event{
		{Type: EventCreate, Path: "C", Target: "C", Kind: "drive", Seq: 1},
		{Type: EventCreate, Path: "C", Target: `C\a.txt`, Kind: "textfile", Seq: 2},
		{Type: EventRename, Path: `C\a.txt`, Target: `C\b.txt`, Kind: "textfile", Seq: 3},
	}
	for i, w := range want {
		select {
		case got := <-ch:
			got.Timestamp = 0
			if got != w {
				t.Errorf("event %d = %+v, want %+v", i, got, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("event %d: timed out", i)
		}
	}
	select {
	case extra := <-ch:
		t.Errorf("unexpected event %+v", extra)
	default:
	}
}

func TestMarshalEvent(t *testing.T) {
	data, err := MarshalEvent(Event{Type: EventDelete, Path: `C\gone.txt`, Seq: 7, Timestamp: 1234567890})
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"delete","path":"C\\gone.txt","seq":7,"timestamp":1234567890}`
	if string(data) != want {
		t.Errorf("MarshalEvent = %s, want %s", data, want)
	}
}
