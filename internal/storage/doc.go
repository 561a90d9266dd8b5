// Package storage persists restaurants and visits in SQLite through gorm.
//
// RestaurantRepo implements restaurant.Source and VisitRepo implements
// restaurant.VisitSource. Methods that take a *gorm.DB run inside that
// transaction when it is non-nil, so multi-table work (backup import) can
// be made atomic with Transaction.
//
// Every error returned by this package wraps restaurant.ErrStorage.
package storage
