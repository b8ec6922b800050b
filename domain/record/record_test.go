package record_test

import (
	"testing"

	"github.com/plumenote/eventstore/domain/record"
)

func TestInfoKey(t *testing.T) {
	t.Parallel()

	if got := record.InfoKey("mute", "settings"); got != "mute::settings" {
		t.Errorf("InfoKey() = %q, want %q", got, "mute::settings")
	}

	i := &record.Info{Key: "backup", Type: "state"}
	if got := i.CompositeKey(); got != "backup::state" {
		t.Errorf("CompositeKey() = %q, want %q", got, "backup::state")
	}
}

func TestSchemaString(t *testing.T) {
	t.Parallel()

	if got := record.SchemaFull.String(); got != "full" {
		t.Errorf("SchemaFull.String() = %q, want %q", got, "full")
	}
	if got := record.SchemaMinimal.String(); got != "minimal" {
		t.Errorf("SchemaMinimal.String() = %q, want %q", got, "minimal")
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	s := record.NewStats()

	if len(s.Tables) != len(record.Tables()) {
		t.Fatalf("NewStats() has %d tables, want %d", len(s.Tables), len(record.Tables()))
	}
	for _, name := range record.Tables() {
		ts, ok := s.Tables[name]
		if !ok {
			t.Errorf("NewStats() missing table %q", name)
		}
		if ts.Count != 0 || ts.Bytes != 0 {
			t.Errorf("NewStats()[%q] = %+v, want zero", name, ts)
		}
	}

	s.Add(record.TableEvents, 100)
	s.Add(record.TableEvents, 50)
	s.Add(record.TableRelays, 25)

	if s.Tables[record.TableEvents].Count != 2 {
		t.Errorf("events count = %d, want 2", s.Tables[record.TableEvents].Count)
	}
	if s.Tables[record.TableEvents].Bytes != 150 {
		t.Errorf("events bytes = %d, want 150", s.Tables[record.TableEvents].Bytes)
	}
	if s.TotalCount() != 3 {
		t.Errorf("TotalCount() = %d, want 3", s.TotalCount())
	}
	if s.TotalBytes() != 175 {
		t.Errorf("TotalBytes() = %d, want 175", s.TotalBytes())
	}
}

func TestStatsAddOnZeroValue(t *testing.T) {
	t.Parallel()

	var s record.Stats
	s.Add(record.TableInfo, 10)

	if s.Tables[record.TableInfo].Count != 1 {
		t.Errorf("count = %d, want 1", s.Tables[record.TableInfo].Count)
	}
}
