package domain

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultSlotTable_CountsMatchFrequency(t *testing.T) {
	table := DefaultSlotTable()
	for _, freq := range []int{1, 2, 4, 6} {
		if got := len(table.SlotsFor(freq)); got != freq {
			t.Fatalf("frequency %d: want %d slots, got %d", freq, freq, got)
		}
	}
	if err := table.Validate(); err != nil {
		t.Fatalf("default table invalid: %v", err)
	}
}

func TestSlotsFor_UnrecognizedFrequencies(t *testing.T) {
	table := DefaultSlotTable()
	for _, freq := range []int{0, -1, 3, 5, 7, 24} {
		if got := table.SlotsFor(freq); len(got) != 0 {
			t.Fatalf("frequency %d: want no slots, got %v", freq, got)
		}
	}
}

func TestSlotTable_Validate(t *testing.T) {
	tests := []struct {
		name  string
		table SlotTable
		ok    bool
	}{
		{"count mismatch", SlotTable{2: {"12:00"}}, false},
		{"bad time", SlotTable{1: {"25:00"}}, false},
		{"not ascending", SlotTable{2: {"17:00", "12:00"}}, false},
		{"duplicate slot", SlotTable{2: {"12:00", "12:00"}}, false},
		{"zero frequency", SlotTable{0: {}}, false},
		{"valid", SlotTable{3: {"09:00", "14:00", "19:00"}}, true},
	}
	for _, tc := range tests {
		err := tc.table.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: unexpected error %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestLoadSlotTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.yaml")
	data := "1: [\"08:00\"]\n2: [\"08:00\", \"20:00\"]\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	table, err := LoadSlotTable(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	got := table.SlotsFor(2)
	if len(got) != 2 || got[0] != "08:00" || got[1] != "20:00" {
		t.Fatalf("unexpected slots: %v", got)
	}

	// Empty path yields the built-in table.
	def, err := LoadSlotTable("")
	if err != nil {
		t.Fatalf("default load: %v", err)
	}
	if len(def.SlotsFor(6)) != 6 {
		t.Fatalf("default table missing frequency 6")
	}
}

func TestLoadSlotTable_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "slots.yaml")
	if err := os.WriteFile(path, []byte("2: [\"12:00\"]\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := LoadSlotTable(path); err == nil {
		t.Fatal("expected validation error")
	}
}
