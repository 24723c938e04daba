package pixarr_test

import (
	"testing"
	"time"

	"pixarr-go/internal/pixarr"
	"pixarr-go/internal/testutil"
)

func seedRecord(t *testing.T, l pixarr.Ledger, digest, content string, taken time.Time, tr pixarr.Transition) *pixarr.BinaryRecord {
	t.Helper()
	batch := &pixarr.Batch{ID: "seed-" + digest, Source: "pc", Mode: pixarr.ModeWrite, StartedAt: taken}
	if err := l.CreateBatch(batch); err != nil {
		t.Fatalf("CreateBatch() error = %v", err)
	}
	rec := &pixarr.BinaryRecord{
		ID: pixarr.BinaryID(digest), BinaryDigest: digest, ContentDigest: content,
		Ext: ".jpg", Bytes: 10, TakenAt: taken, TakenSource: "filename",
	}
	sg := &pixarr.Sighting{SourceRoot: "/s", FullPath: "/s/x.jpg", Filename: "x.jpg",
		BatchID: batch.ID, Disposition: pixarr.Accepted, SeenAt: taken}
	stored, err := l.RecordObservation(rec, sg, tr)
	if err != nil {
		t.Fatalf("RecordObservation() error = %v", err)
	}
	return stored
}

func TestDuplicateResolver_Resolve(t *testing.T) {
	taken := time.Date(2023, 7, 4, 18, 30, 0, 0, time.UTC)
	onDisk := map[string]bool{"/media/Review/present.jpg": true}
	exists := func(p string) bool { return onDisk[p] }

	tests := []struct {
		name      string
		taken     time.Time
		tr        pixarr.Transition
		query     pixarr.Fingerprint
		wantDisp  pixarr.Disposition
		wantBasis string
		wantReuse bool
	}{
		{
			name:      "library binary",
			taken:     taken,
			tr:        pixarr.Transition{State: pixarr.StateLibrary, CanonicalPath: "/media/Library/x.jpg"},
			query:     pixarr.Fingerprint{Binary: "known"},
			wantDisp:  pixarr.DuplicateInLibrary,
			wantBasis: "binary",
		},
		{
			name:      "review binary on disk",
			taken:     taken,
			tr:        pixarr.Transition{State: pixarr.StateReview, CanonicalPath: "/media/Review/present.jpg"},
			query:     pixarr.Fingerprint{Binary: "known"},
			wantDisp:  pixarr.DuplicateInReview,
			wantBasis: "binary",
		},
		{
			name:      "review binary whose file vanished",
			taken:     taken,
			tr:        pixarr.Transition{State: pixarr.StateReview, CanonicalPath: "/media/Review/gone.jpg"},
			query:     pixarr.Fingerprint{Binary: "known"},
			wantReuse: true,
		},
		{
			name:      "failed move with capture time",
			taken:     taken,
			tr:        pixarr.Transition{State: pixarr.StateQuarantine, Reason: pixarr.MoveFailed},
			query:     pixarr.Fingerprint{Binary: "known"},
			wantReuse: true,
		},
		{
			name:  "undated quarantine is reclassified",
			tr:    pixarr.Transition{State: pixarr.StateQuarantine, Reason: pixarr.MissingDatetime},
			query: pixarr.Fingerprint{Binary: "known"},
		},
		{
			name:      "same pixels, different bytes",
			taken:     taken,
			tr:        pixarr.Transition{State: pixarr.StateReview, CanonicalPath: "/media/Review/present.jpg"},
			query:     pixarr.Fingerprint{Binary: "other", Content: "pixels"},
			wantDisp:  pixarr.DuplicateContent,
			wantBasis: "content",
		},
		{
			name:  "unknown binary and pixels",
			taken: taken,
			tr:    pixarr.Transition{State: pixarr.StateReview, CanonicalPath: "/media/Review/present.jpg"},
			query: pixarr.Fingerprint{Binary: "other", Content: "different"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := testutil.NewTestLedger(t, testutil.FixedClock())
			seedRecord(t, l, "known", "pixels", tt.taken, tt.tr)

			existing, err := l.FindBinaryByDigest(tt.query.Binary)
			if err != nil {
				t.Fatalf("FindBinaryByDigest() error = %v", err)
			}

			res, err := pixarr.NewDuplicateResolver(l, exists).Resolve(tt.query, existing)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if res.Disposition != tt.wantDisp {
				t.Errorf("Disposition = %q, want %q", res.Disposition, tt.wantDisp)
			}
			if res.Reuse != tt.wantReuse {
				t.Errorf("Reuse = %v, want %v", res.Reuse, tt.wantReuse)
			}
			gotBasis := ""
			if res.Match != nil {
				gotBasis = res.Match.Basis
			}
			if gotBasis != tt.wantBasis {
				t.Errorf("Basis = %q, want %q", gotBasis, tt.wantBasis)
			}
		})
	}
}
