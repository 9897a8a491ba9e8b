package models

import "github.com/google/uuid"

// assignID gán UUID phía ứng dụng để migration chạy được cả trên Postgres lẫn SQLite
func assignID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}
