package energy

// Store persists energy ledger records.
type Store interface {
	Add(Record) error
	Query(scenario string) ([]Record, error)
}
