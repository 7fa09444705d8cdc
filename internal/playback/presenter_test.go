package playback

import (
	"testing"
	"time"
)

func TestDispatcher_DeliversInOrder(t *testing.T) {
	d := newDispatcher()

	got := make(chan int, 100)
	for i := 0; i < 100; i++ {
		d.push(func() { got <- i })
	}
	d.close()
	d.push(func() { t.Error("push after close should be dropped") })

	select {
	case <-d.done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not drain")
	}

	close(got)
	want := 0
	for n := range got {
		if n != want {
			t.Fatalf("got call %d, want %d", n, want)
		}
		want++
	}
	if want != 100 {
		t.Errorf("delivered %d calls, want 100", want)
	}
}

func TestDispatcher_DoesNotBlockPush(t *testing.T) {
	d := newDispatcher()
	release := make(chan struct{})
	d.push(func() { <-release })

	pushed := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			d.push(func() {})
		}
		close(pushed)
	}()

	select {
	case <-pushed:
	case <-time.After(time.Second):
		t.Fatal("push blocked behind a slow presenter")
	}
	close(release)
	d.close()
	<-d.done
}
