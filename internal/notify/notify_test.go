package notify

import (
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ahmadjon09/Shoemaster-sub000/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Role{}, &models.User{}, &models.Notification{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestDBNotifierDeliversToLinkedRecipientsOnly(t *testing.T) {
	db := setupTestDB(t)
	role := models.Role{Name: "operator"}
	db.Create(&role)
	linked1 := models.User{Phone: "+1", Password: "x", RoleID: role.ID, TelegramChatID: 100}
	linked2 := models.User{Phone: "+2", Password: "x", RoleID: role.ID, TelegramChatID: 200}
	unlinked := models.User{Phone: "+3", Password: "x", RoleID: role.ID}
	for _, u := range []*models.User{&linked1, &linked2, &unlinked} {
		if err := db.Create(u).Error; err != nil {
			t.Fatalf("user: %v", err)
		}
	}

	n := NewDBNotifier(db)
	if err := n.Notify(NewEvent(KindOrderCreated, "Order 1", "items=1 total=10.00")); err != nil {
		t.Fatalf("notify: %v", err)
	}

	var rows []models.Notification
	db.Find(&rows)
	if len(rows) != 2 {
		t.Fatalf("expected 2 notifications got %d", len(rows))
	}
	recipients := map[uint]bool{}
	for _, r := range rows {
		recipients[r.UserID] = true
		if r.Kind != KindOrderCreated {
			t.Fatalf("wrong kind: %s", r.Kind)
		}
	}
	if !recipients[linked1.ID] || !recipients[linked2.ID] || recipients[unlinked.ID] {
		t.Fatalf("wrong recipient set: %v", recipients)
	}
}

type failingNotifier struct{}

func (failingNotifier) Notify(Event) error { return errors.New("sink unavailable") }

type panickyNotifier struct{}

func (panickyNotifier) Notify(Event) error { panic("sink exploded") }

func TestDispatchContainsFailuresAndPanics(t *testing.T) {
	e := NewEvent(KindProductChanged, "Boot", "sku=AA000001")
	// None of these may propagate to the caller.
	Dispatch(nil, e)
	Dispatch(failingNotifier{}, e)
	Dispatch(panickyNotifier{}, e)
}

func TestNewEventAssignsUniqueIDs(t *testing.T) {
	a := NewEvent(KindOrderCancelled, "x", "y")
	b := NewEvent(KindOrderCancelled, "x", "y")
	if a.ID == "" || a.ID == b.ID {
		t.Fatalf("expected distinct non-empty ids, got %q and %q", a.ID, b.ID)
	}
}
