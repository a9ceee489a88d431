package metadata

import (
	"errors"
	"testing"
	"time"
)

func TestSignAndVerify(t *testing.T) {
	data := []byte("VIDEO_ID,TITLE\nabc,Hello\n")

	meta := Sign(data, Metadata{Partition: "US", CaptureDate: "2026-10-18", RunID: "r1", Rows: 1})
	if meta.Hash == "" {
		t.Fatal("expected hash to be set")
	}

	if meta.GeneratedAt.IsZero() {
		t.Fatal("expected timestamp to be set")
	}

	ok, err := Verify(data, meta.ToMap())
	if err != nil || !ok {
		t.Fatalf("Verify() = %v, %v; want true, nil", ok, err)
	}

	_, err = Verify([]byte("tampered"), meta.ToMap())
	if !errors.Is(err, ErrHashMismatch) {
		t.Errorf("expected ErrHashMismatch, got %v", err)
	}
}

func TestSign_Deterministic(t *testing.T) {
	data := []byte("same")
	at := time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

	a := Sign(data, Metadata{GeneratedAt: at})
	b := Sign(data, Metadata{GeneratedAt: at})

	if a != b {
		t.Errorf("Sign() not deterministic: %+v != %+v", a, b)
	}
}

func TestFromMap_CanonicalizedKeys(t *testing.T) {
	meta, err := FromMap(map[string]string{
		"Sha256":       "abc",
		"Partition":    "JP",
		"Capture-Date": "2026-10-18",
		"Rows":         "200",
		"Generated-At": "2026-10-18T10:10:00Z",
	})
	if err != nil {
		t.Fatalf("FromMap() error = %v", err)
	}

	if meta.Hash != "abc" || meta.Partition != "JP" || meta.CaptureDate != "2026-10-18" || meta.Rows != 200 {
		t.Errorf("unexpected metadata: %+v", meta)
	}

	if meta.GeneratedAt.Hour() != 10 {
		t.Errorf("unexpected timestamp: %v", meta.GeneratedAt)
	}
}

func TestVerify_Errors(t *testing.T) {
	if _, err := Verify([]byte("x"), nil); !errors.Is(err, ErrNoMetadata) {
		t.Errorf("expected ErrNoMetadata, got %v", err)
	}

	if _, err := Verify([]byte("x"), map[string]string{KeyRows: "1"}); !errors.Is(err, ErrNoHashFound) {
		t.Errorf("expected ErrNoHashFound, got %v", err)
	}
}

func TestToMap_OmitsEmpty(t *testing.T) {
	m := Metadata{Hash: "h"}.ToMap()

	if _, ok := m[KeyPartition]; ok {
		t.Error("empty partition should be omitted")
	}

	if m[KeyRows] != "0" {
		t.Errorf("rows = %q, want 0", m[KeyRows])
	}
}
