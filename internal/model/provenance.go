package model

import "time"

// ImportRecord proves a source row was already imported. Created once per
// committed transaction and never modified.
type ImportRecord struct {
	UserID        string    `json:"userId"`
	TransactionID string    `json:"transactionId"`
	Hash          string    `json:"hash"`
	Source        Source    `json:"source"`
	ImportDate    time.Time `json:"importDate"`
}
