package store

import (
	"errors"
	"testing"
	"time"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testCollection(t *testing.T, db *DB) *Collection {
	t.Helper()
	coll, err := db.CreateCollection("inbox")
	if err != nil {
		t.Fatalf("CreateCollection: %v", err)
	}
	return coll
}

func testCard(t *testing.T, db *DB, collectionID int64, status string) *Card {
	t.Helper()
	card := &Card{CollectionID: collectionID, Title: "card", Status: status}
	if err := db.CreateCard(card); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	return card
}

func TestCreateAndGetCard(t *testing.T) {
	db := testDB(t)
	coll := testCollection(t, db)

	card := testCard(t, db, coll.ID, StatusPublished)
	if card.ID == 0 {
		t.Fatal("card ID not set")
	}

	got, err := db.GetCard(card.ID)
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if got == nil {
		t.Fatal("GetCard returned nil")
	}
	if got.Status != StatusPublished {
		t.Errorf("Status = %q, want %q", got.Status, StatusPublished)
	}
	if got.LastActiveAt != nil {
		t.Errorf("LastActiveAt = %v, want nil", *got.LastActiveAt)
	}
	if got.ActivityScore != 0 {
		t.Errorf("ActivityScore = %v, want 0", got.ActivityScore)
	}
}

func TestGetCardNotFound(t *testing.T) {
	db := testDB(t)

	got, err := db.GetCard(999)
	if err != nil {
		t.Fatalf("GetCard: %v", err)
	}
	if got != nil {
		t.Errorf("GetCard = %+v, want nil", got)
	}
}

func TestCreateCardDefaultsToDrafted(t *testing.T) {
	db := testDB(t)
	coll := testCollection(t, db)

	card := &Card{CollectionID: coll.ID}
	if err := db.CreateCard(card); err != nil {
		t.Fatalf("CreateCard: %v", err)
	}
	if card.Status != StatusDrafted {
		t.Errorf("Status = %q, want %q", card.Status, StatusDrafted)
	}
}

func TestPostponeCard(t *testing.T) {
	db := testDB(t)
	coll := testCollection(t, db)
	card := testCard(t, db, coll.ID, StatusPublished)

	now := time.Now().UnixMilli()
	if err := db.PostponeCard(card.ID, StatusPublished, nil, now, "system"); err != nil {
		t.Fatalf("PostponeCard: %v", err)
	}

	got, _ := db.GetCard(card.ID)
	if got.Status != StatusPostponed {
		t.Errorf("Status = %q, want %q", got.Status, StatusPostponed)
	}
	if got.PostponedAt == nil || *got.PostponedAt != now {
		t.Errorf("PostponedAt = %v, want %d", got.PostponedAt, now)
	}
	if got.PostponedBy != "system" {
		t.Errorf("PostponedBy = %q, want system", got.PostponedBy)
	}
}

func TestPostponeCardConflictOnStatus(t *testing.T) {
	db := testDB(t)
	coll := testCollection(t, db)
	card := testCard(t, db, coll.ID, StatusPublished)

	// A concurrent writer closed the card between our read and write.
	if err := db.UpdateCardStatus(card.ID, StatusClosed); err != nil {
		t.Fatalf("UpdateCardStatus: %v", err)
	}

	err := db.PostponeCard(card.ID, StatusPublished, nil, time.Now().UnixMilli(), "system")
	if !errors.Is(err, ErrStaleCard) {
		t.Fatalf("PostponeCard = %v, want ErrStaleCard", err)
	}

	got, _ := db.GetCard(card.ID)
	if got.Status != StatusClosed {
		t.Errorf("Status = %q, want %q (manual transition must win)", got.Status, StatusClosed)
	}
}

func TestPostponeCardConflictOnActivity(t *testing.T) {
	db := testDB(t)
	coll := testCollection(t, db)
	card := testCard(t, db, coll.ID, StatusPublished)

	// New activity arrived after the sweep read the card.
	active := time.Now().UnixMilli()
	if err := db.UpdateCardScore(card.ID, 1, 1, &active); err != nil {
		t.Fatalf("UpdateCardScore: %v", err)
	}

	err := db.PostponeCard(card.ID, StatusPublished, nil, time.Now().UnixMilli(), "system")
	if !errors.Is(err, ErrStaleCard) {
		t.Fatalf("PostponeCard = %v, want ErrStaleCard", err)
	}
}

func TestReconsiderCard(t *testing.T) {
	db := testDB(t)
	coll := testCollection(t, db)
	card := testCard(t, db, coll.ID, StatusPublished)

	postponedAt := time.Now().UnixMilli()
	if err := db.PostponeCard(card.ID, StatusPublished, nil, postponedAt, "system"); err != nil {
		t.Fatalf("PostponeCard: %v", err)
	}

	if err := db.ReconsiderCard(card.ID, postponedAt); err != nil {
		t.Fatalf("ReconsiderCard: %v", err)
	}

	got, _ := db.GetCard(card.ID)
	if got.Status != StatusConsidering {
		t.Errorf("Status = %q, want %q", got.Status, StatusConsidering)
	}
	if got.PostponedAt != nil {
		t.Errorf("PostponedAt = %v, want nil", *got.PostponedAt)
	}
	if got.PostponedBy != "" {
		t.Errorf("PostponedBy = %q, want empty", got.PostponedBy)
	}

	// A second attempt finds nothing to update.
	if err := db.ReconsiderCard(card.ID, postponedAt); !errors.Is(err, ErrStaleCard) {
		t.Errorf("second ReconsiderCard = %v, want ErrStaleCard", err)
	}
}

func TestListStagnated(t *testing.T) {
	db := testDB(t)
	coll := testCollection(t, db)

	now := time.Now()
	oldCard := testCard(t, db, coll.ID, StatusPublished)
	freshCard := testCard(t, db, coll.ID, StatusPublished)

	longAgo := now.AddDate(0, 0, -100).UnixMilli()
	recently := now.AddDate(0, 0, -5).UnixMilli()
	if err := db.PostponeCard(oldCard.ID, StatusPublished, nil, longAgo, "system"); err != nil {
		t.Fatalf("PostponeCard: %v", err)
	}
	if err := db.PostponeCard(freshCard.ID, StatusPublished, nil, recently, "system"); err != nil {
		t.Fatalf("PostponeCard: %v", err)
	}

	cutoff := now.AddDate(0, 0, -90).UnixMilli()
	stagnated, err := db.ListStagnated(cutoff)
	if err != nil {
		t.Fatalf("ListStagnated: %v", err)
	}
	if len(stagnated) != 1 || stagnated[0].ID != oldCard.ID {
		t.Errorf("ListStagnated = %+v, want only card %d", stagnated, oldCard.ID)
	}
}

func TestListCardsByActivity(t *testing.T) {
	db := testDB(t)
	coll := testCollection(t, db)

	now := time.Now().UnixMilli()
	low := testCard(t, db, coll.ID, StatusPublished)
	high := testCard(t, db, coll.ID, StatusPublished)
	closed := testCard(t, db, coll.ID, StatusClosed)

	if err := db.UpdateCardScore(low.ID, 1, 100, &now); err != nil {
		t.Fatalf("UpdateCardScore: %v", err)
	}
	if err := db.UpdateCardScore(high.ID, 5, 200, &now); err != nil {
		t.Fatalf("UpdateCardScore: %v", err)
	}
	if err := db.UpdateCardScore(closed.ID, 9, 300, &now); err != nil {
		t.Fatalf("UpdateCardScore: %v", err)
	}

	cards, err := db.ListCardsByActivity()
	if err != nil {
		t.Fatalf("ListCardsByActivity: %v", err)
	}
	if len(cards) != 2 {
		t.Fatalf("got %d cards, want 2 (closed excluded)", len(cards))
	}
	if cards[0].ID != high.ID || cards[1].ID != low.ID {
		t.Errorf("order = [%d, %d], want [%d, %d]", cards[0].ID, cards[1].ID, high.ID, low.ID)
	}
}

func TestListCardsByStaleness(t *testing.T) {
	db := testDB(t)
	coll := testCollection(t, db)

	staleBias := 14 * 24 * time.Hour
	now := time.Now()

	ancient := testCard(t, db, coll.ID, StatusPublished)
	recent := testCard(t, db, coll.ID, StatusPublished)
	never := testCard(t, db, coll.ID, StatusPublished)

	ancientAt := now.AddDate(0, 0, -30).UnixMilli()
	recentAt := now.AddDate(0, 0, -2).UnixMilli()
	if err := db.UpdateCardScore(ancient.ID, 0.5, 10, &ancientAt); err != nil {
		t.Fatalf("UpdateCardScore: %v", err)
	}
	if err := db.UpdateCardScore(recent.ID, 3, 20, &recentAt); err != nil {
		t.Fatalf("UpdateCardScore: %v", err)
	}

	cards, err := db.ListCardsByStaleness(staleBias)
	if err != nil {
		t.Fatalf("ListCardsByStaleness: %v", err)
	}
	if len(cards) != 3 {
		t.Fatalf("got %d cards, want 3", len(cards))
	}

	// Longest-untouched first; the never-active card ranks as touched 14
	// days before creation: staler than recent activity, fresher than
	// 30-day-old activity.
	want := []int64{ancient.ID, never.ID, recent.ID}
	for i, id := range want {
		if cards[i].ID != id {
			t.Fatalf("staleness order = [%d %d %d], want %v",
				cards[0].ID, cards[1].ID, cards[2].ID, want)
		}
	}
}
