package store

import (
	"testing"
	"time"
)

func TestAddAndListEvents(t *testing.T) {
	db := testDB(t)
	coll := testCollection(t, db)
	card := testCard(t, db, coll.ID, StatusPublished)

	now := time.Now().UnixMilli()
	if _, err := db.AddEvent(card.ID, "created", "frida", "", now-1000); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}
	if _, err := db.AddEvent(card.ID, "commented", "kevin", "comment-7", now); err != nil {
		t.Fatalf("AddEvent: %v", err)
	}

	events, err := db.EventsForCard(card.ID)
	if err != nil {
		t.Fatalf("EventsForCard: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Kind != "created" || events[1].Kind != "commented" {
		t.Errorf("events not in chronological order: %+v", events)
	}
	if events[1].Source != "comment-7" {
		t.Errorf("Source = %q, want comment-7", events[1].Source)
	}
}

func TestDeleteEventsBySource(t *testing.T) {
	db := testDB(t)
	coll := testCollection(t, db)
	card := testCard(t, db, coll.ID, StatusPublished)

	now := time.Now().UnixMilli()
	db.AddEvent(card.ID, "commented", "kevin", "comment-7", now)
	db.AddEvent(card.ID, "commented", "kevin", "comment-8", now)
	db.AddEvent(card.ID, "boosted", "kevin", "comment-7", now)

	n, err := db.DeleteEventsBySource(card.ID, "commented", "comment-7")
	if err != nil {
		t.Fatalf("DeleteEventsBySource: %v", err)
	}
	if n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}

	events, _ := db.EventsForCard(card.ID)
	if len(events) != 2 {
		t.Errorf("got %d events, want 2", len(events))
	}
}

func TestLifecycleEvents(t *testing.T) {
	db := testDB(t)
	coll := testCollection(t, db)
	card := testCard(t, db, coll.ID, StatusPublished)

	now := time.Now().UnixMilli()
	if err := db.AddLifecycleEvent(card.ID, LifecyclePostponed, "system", now); err != nil {
		t.Fatalf("AddLifecycleEvent: %v", err)
	}
	if err := db.AddLifecycleEvent(card.ID, LifecycleReconsidered, "system", now+1000); err != nil {
		t.Fatalf("AddLifecycleEvent: %v", err)
	}

	events, err := db.LifecycleEventsForCard(card.ID)
	if err != nil {
		t.Fatalf("LifecycleEventsForCard: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d lifecycle events, want 2", len(events))
	}
	if events[0].Action != LifecyclePostponed || events[1].Action != LifecycleReconsidered {
		t.Errorf("actions = [%s, %s], want [postponed, reconsidered]", events[0].Action, events[1].Action)
	}
	if events[0].Actor != "system" {
		t.Errorf("Actor = %q, want system", events[0].Actor)
	}
}
