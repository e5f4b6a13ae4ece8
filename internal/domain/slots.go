package domain

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// SlotTable maps a notification frequency (reminders per day) to the ordered
// local times of day at which a reminder fires. It is injected configuration:
// changing cadence boundaries is a config edit, not a code change.
type SlotTable map[int][]string

// DefaultSlotTable returns the built-in cadence table.
func DefaultSlotTable() SlotTable {
	return SlotTable{
		1: {"16:00"},
		2: {"12:00", "17:00"},
		4: {"12:00", "15:00", "17:00", "20:00"},
		6: {"11:00", "13:00", "15:00", "17:00", "19:00", "21:00"},
	}
}

// SlotsFor returns the slots for a frequency. Frequencies outside the table
// (including 0) map to no slots.
func (t SlotTable) SlotsFor(frequency int) []string {
	if frequency <= 0 {
		return nil
	}
	return t[frequency]
}

// Frequencies returns the recognized frequencies in ascending order.
func (t SlotTable) Frequencies() []int {
	out := make([]int, 0, len(t))
	for f := range t {
		out = append(out, f)
	}
	sort.Ints(out)
	return out
}

// Validate checks that every entry is well-formed: parseable HH:MM slots,
// strictly ascending within a frequency, and a slot count equal to the
// frequency key.
func (t SlotTable) Validate() error {
	for freq, slots := range t {
		if freq <= 0 {
			return fmt.Errorf("slot table: frequency must be positive, got %d", freq)
		}
		if len(slots) != freq {
			return fmt.Errorf("slot table: frequency %d has %d slots", freq, len(slots))
		}
		prev := -1
		for _, s := range slots {
			m, err := ParseClock(s)
			if err != nil {
				return fmt.Errorf("slot table: frequency %d slot %q: %w", freq, s, err)
			}
			if m <= prev {
				return fmt.Errorf("slot table: frequency %d slots not ascending at %q", freq, s)
			}
			prev = m
		}
	}
	return nil
}

// LoadSlotTable reads a slot table override from a YAML file mapping
// frequency to a list of HH:MM strings. An empty path yields the default
// table.
func LoadSlotTable(path string) (SlotTable, error) {
	if path == "" {
		return DefaultSlotTable(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read slot table: %w", err)
	}
	var t SlotTable
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("parse slot table: %w", err)
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
