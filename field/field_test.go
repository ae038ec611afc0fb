package field

import "testing"

func TestBuildComputesLengthFromNextField(t *testing.T) {
	events := []StartFieldEvent{
		{StartAddress: 0, Protected: true},
		{StartAddress: 10},
		{StartAddress: 20, Protected: true},
	}
	table, err := Build(events, 30)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	fields := table.Fields()
	if len(fields) != 3 {
		t.Fatalf("expected 3 fields, got %d", len(fields))
	}
	if fields[0].Length != 10 || fields[1].Length != 10 || fields[2].Length != 10 {
		t.Fatalf("unexpected lengths: %+v", fields)
	}
}

func TestBuildRejectsOutOfBoundsStart(t *testing.T) {
	events := []StartFieldEvent{{StartAddress: 50}}
	_, err := Build(events, 30)
	if err != ErrInvalidFieldDefinition {
		t.Fatalf("expected ErrInvalidFieldDefinition, got %v", err)
	}
}

func TestFieldCountEqualsUniqueStarts(t *testing.T) {
	events := []StartFieldEvent{{StartAddress: 0}, {StartAddress: 5}, {StartAddress: 12}}
	table, err := Build(events, 20)
	if err != nil {
		t.Fatal(err)
	}
	seen := map[int]bool{}
	for _, f := range table.Fields() {
		if seen[f.StartAddress] {
			t.Fatalf("duplicate start address %d", f.StartAddress)
		}
		seen[f.StartAddress] = true
		if f.StartAddress < 0 || f.End() > 20 || f.End() < f.StartAddress {
			t.Fatalf("field out of bounds: %+v", f)
		}
	}
}

func TestValidateCharProtectedCell(t *testing.T) {
	events := []StartFieldEvent{{StartAddress: 0, Protected: true}}
	table, _ := Build(events, 10)
	if err := table.ValidateChar(0, 'A'); err != ErrProtectedCell {
		t.Fatalf("expected ErrProtectedCell, got %v", err)
	}
}

func TestValidateCharNumericField(t *testing.T) {
	events := []StartFieldEvent{{StartAddress: 0, Numeric: true}}
	table, _ := Build(events, 10)
	if err := table.ValidateChar(0, 'A'); err != ErrNumericRequired {
		t.Fatalf("expected ErrNumericRequired for letter, got %v", err)
	}
	if err := table.ValidateChar(0, '7'); err != nil {
		t.Fatalf("expected digit to validate, got %v", err)
	}
	if err := table.ValidateChar(0, '+'); err != nil {
		t.Fatalf("expected sign to validate, got %v", err)
	}
}

func TestSetModifiedOnlyAffectsOwningField(t *testing.T) {
	events := []StartFieldEvent{{StartAddress: 0}, {StartAddress: 5}}
	table, _ := Build(events, 10)
	table.SetModified(2, true)
	fields := table.Fields()
	if !fields[0].Modified {
		t.Error("expected field 0 to be modified")
	}
	if fields[1].Modified {
		t.Error("expected field 1 to remain unmodified")
	}
}

func TestResetMDTClearsAll(t *testing.T) {
	events := []StartFieldEvent{{StartAddress: 0}, {StartAddress: 5}}
	table, _ := Build(events, 10)
	table.SetModified(0, true)
	table.SetModified(5, true)
	table.ResetMDT()
	for _, f := range table.Fields() {
		if f.Modified {
			t.Errorf("expected MDT cleared, field %+v still modified", f)
		}
	}
}

func TestModifiedFieldsDeterministic(t *testing.T) {
	events := []StartFieldEvent{{StartAddress: 0}, {StartAddress: 3}}
	table, _ := Build(events, 6)
	table.SetModified(3, true)

	content := []rune{'a', 'b', 'c', 'X', 'Y', 'Z'}
	read := func(i int) rune { return content[i] }

	got1 := table.ModifiedFields(read)
	got2 := table.ModifiedFields(read)
	if len(got1) != 1 || len(got2) != 1 {
		t.Fatalf("expected exactly one modified field, got %d/%d", len(got1), len(got2))
	}
	if string(got1[0].Content) != string(got2[0].Content) {
		t.Fatal("ModifiedFields must be a pure function of state")
	}
	if string(got1[0].Content) != "XYZ" {
		t.Errorf("expected content XYZ, got %q", string(got1[0].Content))
	}
}

func TestValidateSubmitMandatoryEntry(t *testing.T) {
	f := Field{StartAddress: 0, Length: 3, MandatoryEntry: true}
	blank := []rune{' ', ' ', ' '}
	read := func(i int) rune { return blank[i] }
	if err := (&Table{}).ValidateSubmit(f, read); err != ErrMandatoryEntry {
		t.Fatalf("expected ErrMandatoryEntry, got %v", err)
	}
}

func TestValidateSubmitMandatoryFill(t *testing.T) {
	f := Field{StartAddress: 0, Length: 3, MandatoryFill: true}
	content := []rune{'A', ' ', 'B'}
	read := func(i int) rune { return content[i] }
	if err := (&Table{}).ValidateSubmit(f, read); err != ErrMandatoryFill {
		t.Fatalf("expected ErrMandatoryFill, got %v", err)
	}
}

func TestFindsUnprotectedField(t *testing.T) {
	events := []StartFieldEvent{{StartAddress: 0, Protected: true}, {StartAddress: 5}}
	table, _ := Build(events, 10)
	if table.IsUnprotected(0) {
		t.Error("expected index 0 protected")
	}
	if !table.IsUnprotected(5) {
		t.Error("expected index 5 unprotected")
	}
}
