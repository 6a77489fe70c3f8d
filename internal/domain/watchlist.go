package domain

import "time"

// WatchlistEntry is a stock pinned for strategies using watchlist selection.
// Insertion order is significant and preserved by the store.
type WatchlistEntry struct {
	Code    string    `json:"code"`
	Name    string    `json:"name"`
	Active  bool      `json:"active"`
	AddedAt time.Time `json:"added_at"`
}
