package store

import (
	"testing"
	"time"
)

func TestNewRunIDSortable(t *testing.T) {
	now := time.Now()
	a := NewRunID(now)
	b := NewRunID(now)
	c := NewRunID(now.Add(time.Second))
	if len(a) != 26 {
		t.Fatalf("unexpected id length %d", len(a))
	}
	if !(a < b && b < c) {
		t.Errorf("ids not increasing: %s %s %s", a, b, c)
	}
}
