package repositories

import (
	"context"

	"gorm.io/gorm"
)

// Store groups the repositories that share one connection or transaction.
type Store interface {
	Categories() CategoryRepository
	Products() ProductRepository
	Users() UserRepository
	Orders() OrderRepository
	Reviews() ReviewRepository
	// Transaction runs fn inside one unit of work. The Store passed to fn is
	// bound to the transaction; returning an error rolls everything back.
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

// GORMStore is the GORM-backed Store.
type GORMStore struct {
	db *gorm.DB
}

func NewGORMStore(db *gorm.DB) *GORMStore {
	return &GORMStore{db: db}
}

func (s *GORMStore) Categories() CategoryRepository { return NewGORMCategoryRepository(s.db) }
func (s *GORMStore) Products() ProductRepository     { return NewGORMProductRepository(s.db) }
func (s *GORMStore) Users() UserRepository           { return NewGORMUserRepository(s.db) }
func (s *GORMStore) Orders() OrderRepository         { return NewGORMOrderRepository(s.db) }
func (s *GORMStore) Reviews() ReviewRepository       { return NewGORMReviewRepository(s.db) }

func (s *GORMStore) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GORMStore{db: tx})
	})
}
