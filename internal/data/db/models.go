package db

import "database/sql"

type Item struct {
	ID        string
	Title     string
	Status    string
	CreatedAt int64
	UpdatedAt int64
}

type HistoryEvent struct {
	Seq        int64
	ID         string
	ItemID     string
	EventType  string
	FromStatus sql.NullString
	ToStatus   string
	Timestamp  int64
}
