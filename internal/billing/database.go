package billing

import (
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	cartBucketName    = "carts"
	invoiceBucketName = "invoices"
)

// DB defines the interface for persistence operations. Carts are stored as
// one JSON value per session key, matching a key-value collaborator with no
// transactional guarantees: concurrent writers race and the last write wins.
type DB interface {
	// SaveCart writes the cart under its session key
	SaveCart(cart *Cart) error

	// GetCart retrieves the cart for a session
	GetCart(sessionID string) (*Cart, error)

	// DeleteCart removes the cart for a session
	DeleteCart(sessionID string) error

	// SaveInvoice saves a generated invoice
	SaveInvoice(invoice *Invoice) error

	// GetInvoice retrieves an invoice by ID
	GetInvoice(id string) (*Invoice, error)

	// ListInvoices returns all generated invoices
	ListInvoices() ([]*Invoice, error)

	// Close closes the database connection
	Close() error
}

// BoltDB implements the DB interface using BoltDB
type BoltDB struct {
	db *bbolt.DB
}

// NewBoltDB creates a new BoltDB instance
func NewBoltDB(path string) (*BoltDB, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening boltdb: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(cartBucketName)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(invoiceBucketName)); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &BoltDB{db: db}, nil
}

// SaveCart writes the cart under its session key
func (b *BoltDB) SaveCart(cart *Cart) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(cartBucketName))
		data, err := json.Marshal(cart)
		if err != nil {
			return fmt.Errorf("marshaling cart: %w", err)
		}
		return bucket.Put([]byte(cart.SessionID), data)
	})
}

// GetCart retrieves the cart for a session
func (b *BoltDB) GetCart(sessionID string) (*Cart, error) {
	var cart *Cart
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(cartBucketName))
		data := bucket.Get([]byte(sessionID))
		if data == nil {
			return fmt.Errorf("cart not found: %s", sessionID)
		}
		return json.Unmarshal(data, &cart)
	})
	if err != nil {
		return nil, err
	}
	return cart, nil
}

// DeleteCart removes the cart for a session
func (b *BoltDB) DeleteCart(sessionID string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(cartBucketName))
		return bucket.Delete([]byte(sessionID))
	})
}

// SaveInvoice saves an invoice to the database
func (b *BoltDB) SaveInvoice(invoice *Invoice) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(invoiceBucketName))
		data, err := json.Marshal(invoice)
		if err != nil {
			return fmt.Errorf("marshaling invoice: %w", err)
		}
		return bucket.Put([]byte(invoice.ID), data)
	})
}

// GetInvoice retrieves an invoice by ID
func (b *BoltDB) GetInvoice(id string) (*Invoice, error) {
	var invoice *Invoice
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(invoiceBucketName))
		data := bucket.Get([]byte(id))
		if data == nil {
			return fmt.Errorf("invoice not found: %s", id)
		}
		return json.Unmarshal(data, &invoice)
	})
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

// ListInvoices returns all invoices
func (b *BoltDB) ListInvoices() ([]*Invoice, error) {
	invoices := make([]*Invoice, 0)
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(invoiceBucketName))
		return bucket.ForEach(func(k, v []byte) error {
			var invoice Invoice
			if err := json.Unmarshal(v, &invoice); err != nil {
				return fmt.Errorf("unmarshaling invoice: %w", err)
			}
			invoices = append(invoices, &invoice)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// Close closes the database connection
func (b *BoltDB) Close() error {
	return b.db.Close()
}
