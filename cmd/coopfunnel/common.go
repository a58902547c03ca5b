package main

import (
	"fmt"

	"github.com/metalagman/coopfunnel/internal/config"
	"github.com/metalagman/coopfunnel/internal/db"
)

func openJournal(cfg config.Config) (*db.Store, func(), error) {
	if cfg.Ledger.JournalPath == "" {
		return nil, func() {}, fmt.Errorf("ledger.journal_path is not set")
	}
	storeDB, err := db.Open(cfg.Ledger.JournalPath)
	if err != nil {
		return nil, func() {}, err
	}
	store := db.NewStore(storeDB)
	return store, func() { _ = store.Close() }, nil
}
