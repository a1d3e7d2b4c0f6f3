package events_test

import (
	"testing"

	"github.com/vxoid/rbc/foundation/events"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func TestEvents(t *testing.T) {
	t.Log("Given the need to fan out events to receivers.")
	{
		evts := events.New()

		id1, ch1 := evts.Acquire()
		id2, ch2 := evts.Acquire()
		if id1 == id2 {
			t.Fatalf("\t%s\tShould get unique ids.", failed)
		}
		t.Logf("\t%s\tShould get unique ids.", success)

		evts.Send("block mined")
		if <-ch1 != "block mined" || <-ch2 != "block mined" {
			t.Fatalf("\t%s\tShould deliver to every receiver.", failed)
		}
		t.Logf("\t%s\tShould deliver to every receiver.", success)

		if err := evts.Release(id1); err != nil {
			t.Fatalf("\t%s\tShould be able to release a receiver: %s", failed, err)
		}
		if _, open := <-ch1; open {
			t.Fatalf("\t%s\tShould close the released channel.", failed)
		}
		if err := evts.Release(id1); err == nil {
			t.Fatalf("\t%s\tShould not release twice.", failed)
		}
		t.Logf("\t%s\tShould be able to release a receiver.", success)

		for i := 0; i < 1000; i++ {
			evts.Send("flood")
		}
		t.Logf("\t%s\tShould not block on a slow receiver.", success)

		evts.Shutdown()
		if evts.Count() != 0 {
			t.Fatalf("\t%s\tShould remove every receiver on shutdown.", failed)
		}
		for range ch2 {
		}
		t.Logf("\t%s\tShould close every channel on shutdown.", success)
	}
}
