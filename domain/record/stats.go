package record

// Logical table names, used as Stats keys and in logs. They match the
// conceptual schema regardless of how a backend lays the data out
// physically.
const (
	TableEvents         = "events"
	TableRelays         = "relays"
	TableInfo           = "info"
	TableNotifications  = "notifications"
	TableObservedRelays = "observedRelays"
	TableRelayMappings  = "pubkeyRelayMappings"
)

// Tables lists every logical table in schema order.
func Tables() []string {
	return []string{
		TableEvents,
		TableRelays,
		TableInfo,
		TableNotifications,
		TableObservedRelays,
		TableRelayMappings,
	}
}

// TableStats is the per-table slice of a Stats snapshot.
type TableStats struct {
	// Count is the number of records in the table.
	Count int64 `json:"count"`

	// Bytes is the approximate serialized size of the table's values.
	Bytes int64 `json:"bytes"`
}

// Stats is a point-in-time usage snapshot. Counts are exact at the moment
// of the scan but the snapshot as a whole is advisory: it can lag mutations
// that raced the scan.
type Stats struct {
	// Tables maps logical table names to their usage.
	Tables map[string]TableStats `json:"tables"`
}

// NewStats returns an empty snapshot with every table present at zero.
func NewStats() Stats {
	s := Stats{Tables: make(map[string]TableStats, len(Tables()))}
	for _, name := range Tables() {
		s.Tables[name] = TableStats{}
	}
	return s
}

// Add accumulates one record of n bytes into a table's slice.
func (s *Stats) Add(table string, n int64) {
	if s.Tables == nil {
		s.Tables = make(map[string]TableStats)
	}
	ts := s.Tables[table]
	ts.Count++
	ts.Bytes += n
	s.Tables[table] = ts
}

// TotalCount sums record counts across all tables.
func (s Stats) TotalCount() int64 {
	var total int64
	for _, ts := range s.Tables {
		total += ts.Count
	}
	return total
}

// TotalBytes sums approximate sizes across all tables.
func (s Stats) TotalBytes() int64 {
	var total int64
	for _, ts := range s.Tables {
		total += ts.Bytes
	}
	return total
}
