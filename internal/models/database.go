package models

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// ErrNotFound is returned when no item matches
var ErrNotFound = bolthold.ErrNotFound

// Database wraps the bolthold store and publishes a Change after every write
type Database struct {
	store  *bolthold.Store
	broker *Broker
}

// NewDatabase creates a new database connection
func NewDatabase(path string) (*Database, error) {
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store, broker: NewBroker()}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// Subscribe returns a stream of changes made through this database
func (db *Database) Subscribe() (<-chan Change, func()) {
	return db.broker.Subscribe(64)
}

// CreateItem inserts a new item, assigning an id and addedAt when missing
func (db *Database) CreateItem(item *MediaItem) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	now := time.Now()
	if item.AddedAt.IsZero() {
		item.AddedAt = now
	}
	item.UpdatedAt = now
	if item.UserStatus == nil {
		item.UserStatus = map[string]WatchInfo{}
	}

	if err := db.store.Insert(item.ID, item); err != nil {
		return fmt.Errorf("failed to insert item %s: %w", item.ID, err)
	}
	db.broker.Publish(Change{Type: ChangeInsert, ItemID: item.ID})
	return nil
}

// UpdateItem applies a partial update inside one transaction; fields not named by
// the patch keep whatever the store currently holds.
func (db *Database) UpdateItem(id string, patch ItemPatch) (*MediaItem, error) {
	var updated MediaItem
	err := db.store.Bolt().Update(func(tx *bbolt.Tx) error {
		if err := db.store.TxGet(tx, id, &updated); err != nil {
			return err
		}
		patch.Apply(&updated)
		return db.store.TxUpdate(tx, id, &updated)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update item %s: %w", id, err)
	}
	db.broker.Publish(Change{Type: ChangeUpdate, ItemID: id})
	return &updated, nil
}

// GetItemByID retrieves an item by ID
func (db *Database) GetItemByID(id string) (*MediaItem, error) {
	var item MediaItem
	if err := db.store.Get(id, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListItems retrieves all items, most recently added first
func (db *Database) ListItems() ([]*MediaItem, error) {
	var items []*MediaItem
	if err := db.store.Find(&items, nil); err != nil {
		return nil, err
	}
	SortByAddedAt(items)
	return items, nil
}

// GetUnenrichedItems retrieves items whose enrichment latch is still open
func (db *Database) GetUnenrichedItems() ([]*MediaItem, error) {
	var items []*MediaItem
	err := db.store.Find(&items, bolthold.Where("IsEnriched").Eq(false))
	return items, err
}

// FindByTitleYear retrieves the item with exactly this title and year
func (db *Database) FindByTitleYear(title, year string) (*MediaItem, error) {
	var item MediaItem
	err := db.store.FindOne(&item, bolthold.Where("Title").Eq(title).And("Year").Eq(year))
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// DeleteItem deletes an item by ID
func (db *Database) DeleteItem(id string) error {
	if err := db.store.Delete(id, &MediaItem{}); err != nil {
		return fmt.Errorf("failed to delete item %s: %w", id, err)
	}
	db.broker.Publish(Change{Type: ChangeDelete, ItemID: id})
	return nil
}

// IsNotFound reports whether err means the item does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// SortByAddedAt orders items most recently added first, ties broken by title
func SortByAddedAt(items []*MediaItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].AddedAt.Equal(items[j].AddedAt) {
			return items[i].AddedAt.After(items[j].AddedAt)
		}
		return strings.ToLower(items[i].Title) < strings.ToLower(items[j].Title)
	})
}
