package pixarr

import "testing"

func TestParseAction(t *testing.T) {
	tests := []struct {
		in      string
		want    Action
		wantErr bool
	}{
		{"ignore", ActionIgnore, false},
		{" Quarantine ", ActionQuarantine, false},
		{"DELETE", ActionDelete, false},
		{"move", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAction(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseAction(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseAction(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if !opts.DryRun {
		t.Error("default options must be dry-run")
	}
	if opts.mode() != ModeDryRun {
		t.Errorf("mode() = %s", opts.mode())
	}
	for _, ext := range []string{".jpg", ".JPG", ".heic", ".mov"} {
		if !opts.Supported(ext) {
			t.Errorf("Supported(%q) = false", ext)
		}
	}
	for _, ext := range []string{"", ".txt", "jpg"} {
		if opts.Supported(ext) {
			t.Errorf("Supported(%q) = true", ext)
		}
	}
	if opts.Dates.AllowFilename || opts.Dates.AllowFilesystem {
		t.Error("date fallbacks must be opt-in")
	}

	policy := opts.Duplicates
	if policy.For(DuplicateInLibrary) != ActionQuarantine ||
		policy.For(DuplicateInReview) != ActionIgnore ||
		policy.For(DuplicateContent) != ActionQuarantine {
		t.Errorf("duplicate policy = %+v", policy)
	}
	if policy.For(Accepted) != ActionIgnore {
		t.Error("non-duplicate dispositions map to ignore")
	}
}
