package pixarr

import "testing"

func TestStats_Summary(t *testing.T) {
	s := NewStats()
	if got := s.Summary(); got != "scanned=0 warnings=0" {
		t.Errorf("empty Summary() = %q", got)
	}

	for _, d := range []Disposition{Accepted, Junk, Accepted, MissingDatetime} {
		s.add(d)
	}
	s.Scanned = 3
	s.Warnings = 1

	if got, want := s.Summary(), "scanned=3 junk=1 missing_datetime=1 accepted=2 warnings=1"; got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
	if s.Total() != 4 {
		t.Errorf("Total() = %d, want 4", s.Total())
	}
	if s.Count(DuplicateContent) != 0 {
		t.Error("Count() of unseen disposition is non-zero")
	}
}

func TestDisposition(t *testing.T) {
	for _, d := range Dispositions {
		if got, want := d.Tracked(), d != Junk && d != UnsupportedExt; got != want {
			t.Errorf("%s.Tracked() = %v", d, got)
		}
	}
	if !DuplicateContent.IsDuplicate() || MoveFailed.IsDuplicate() {
		t.Error("IsDuplicate() misclassifies")
	}
	if BinaryID("abc") != BinaryID("abc") || BinaryID("abc") == BinaryID("abd") {
		t.Error("BinaryID() is not a stable function of the digest")
	}
}
