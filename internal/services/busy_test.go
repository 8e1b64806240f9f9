package services

import (
	"reflect"
	"testing"
)

func TestBusyTracker(t *testing.T) {
	b := NewBusyTracker()
	if b.Busy("t") {
		t.Fatal("new tracker must be idle")
	}
	end1 := b.Begin("t")
	end2 := b.Begin("t")
	if b.InFlight("t") != 2 || b.Busy("other") {
		t.Fatalf("in flight = %d", b.InFlight("t"))
	}
	end1()
	end1()
	if b.InFlight("t") != 1 {
		t.Fatalf("double end must count once, in flight = %d", b.InFlight("t"))
	}
	end2()
	if b.Busy("t") {
		t.Fatal("expected idle")
	}
}

func TestMutationInvalidates(t *testing.T) {
	cases := []struct {
		m    Mutation
		want []string
	}{
		{MutationItemCreate, []string{"trip:t:items", "item:i"}},
		{MutationItemUpdate, []string{"trip:t:items", "item:i"}},
		{MutationItemDelete, []string{"trip:t:items", "item:i"}},
		{MutationInstrumentCommit, []string{"trip:t:instruments", "trip:t:settings"}},
		{MutationTripSave, []string{"trip:t"}},
	}
	for _, tc := range cases {
		if got := tc.m.Invalidates("t", "i"); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("%s invalidates %v, want %v", tc.m, got, tc.want)
		}
	}
}
