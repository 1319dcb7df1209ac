package entity

// All returns every persisted model in migration order.
func All() []any {
	return []any{
		&User{},
		&Profile{},
		&LedgerEntry{},
		&InteractionRequest{},
		&Completion{},
		&Evidence{},
		&PointLog{},
		&RankingPeriod{},
		&RankingSnapshot{},
		&Notification{},
		&Purchase{},
		&Ticket{},
	}
}
