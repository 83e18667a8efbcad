package artifact

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLayout_PathFor(t *testing.T) {
	l := NewLayout("/tmp/run")

	tests := []struct {
		epoch int
		kind  Kind
		want  string
	}{
		{0, KindCheckpoint, "/tmp/run/cp_0"},
		{0, KindExportedModel, "/tmp/run/sm_0"},
		{0, KindRecords, "/tmp/run/records/records_0.bin"},
		{12, KindCheckpoint, "/tmp/run/cp_12"},
		{12, KindExportedModel, "/tmp/run/sm_12"},
		{12, KindRecords, "/tmp/run/records/records_12.bin"},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			got, err := l.PathFor(tt.epoch, tt.kind)
			if err != nil {
				t.Fatalf("PathFor(%d, %s): %v", tt.epoch, tt.kind, err)
			}
			if got != tt.want {
				t.Errorf("PathFor(%d, %s) = %q, want %q", tt.epoch, tt.kind, got, tt.want)
			}
		})
	}
}

func TestLayout_PathFor_Deterministic(t *testing.T) {
	l := NewLayout("/tmp/run")
	for e := 0; e < 50; e++ {
		for _, k := range []Kind{KindCheckpoint, KindExportedModel, KindRecords} {
			a, _ := l.PathFor(e, k)
			b, _ := NewLayout("/tmp/run").PathFor(e, k)
			if a != b {
				t.Fatalf("PathFor(%d, %s) not deterministic: %q vs %q", e, k, a, b)
			}
		}
	}
}

func TestLayout_PathFor_NoCollisions(t *testing.T) {
	l := NewLayout("/tmp/run")
	seen := make(map[string]bool)
	for e := 0; e < 20; e++ {
		for _, k := range []Kind{KindCheckpoint, KindExportedModel, KindRecords} {
			p, _ := l.PathFor(e, k)
			if seen[p] {
				t.Fatalf("duplicate path %q", p)
			}
			seen[p] = true
		}
	}
}

func TestLayout_PathFor_RejectsBadInput(t *testing.T) {
	l := NewLayout("/tmp/run")
	if _, err := l.PathFor(-1, KindCheckpoint); err == nil {
		t.Error("PathFor(-1): expected error")
	}
	if _, err := l.PathFor(0, Kind(99)); err == nil {
		t.Error("PathFor(unknown kind): expected error")
	}
}

func TestLayout_CheckpointPrefix(t *testing.T) {
	l := NewLayout("/tmp/run")
	if got := l.CheckpointPrefix(3); got != "/tmp/run/cp_3/cp" {
		t.Errorf("CheckpointPrefix(3) = %q", got)
	}
}

func TestLayout_Prepare_CreatesDirs(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "run")
	l := NewLayout(dir)

	if err := l.Prepare(); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	info, err := os.Stat(l.RecordsDir())
	if err != nil {
		t.Fatalf("records dir: %v", err)
	}
	if !info.IsDir() {
		t.Error("records dir is not a directory")
	}

	// Second call is a no-op.
	if err := l.Prepare(); err != nil {
		t.Errorf("Prepare (second call): %v", err)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "records_0.bin")
	_ = os.WriteFile(file, []byte("x"), 0644)

	if !Exists(dir) {
		t.Error("Exists(dir): expected true")
	}
	if !Exists(file) {
		t.Error("Exists(file): expected true")
	}
	if Exists(filepath.Join(dir, "missing")) {
		t.Error("Exists(missing): expected false")
	}
}

func TestLayout_Inventory(t *testing.T) {
	dir := t.TempDir()
	l := NewLayout(dir)
	_ = l.Prepare()
	_ = os.MkdirAll(l.Checkpoint(0), 0755)
	_ = os.MkdirAll(l.ExportedModel(0), 0755)
	_ = os.WriteFile(l.Records(0), nil, 0644)
	_ = os.MkdirAll(l.Checkpoint(1), 0755)

	inv := l.Inventory(2)
	if len(inv) != 3 {
		t.Fatalf("Inventory(2): expected 3 entries, got %d", len(inv))
	}
	if !inv[0].Complete() {
		t.Errorf("epoch 0: expected complete, got %+v", inv[0])
	}
	if !inv[1].Checkpoint || inv[1].ExportedModel || inv[1].Records {
		t.Errorf("epoch 1: expected checkpoint only, got %+v", inv[1])
	}
	if inv[2].Checkpoint || inv[2].ExportedModel || inv[2].Records {
		t.Errorf("epoch 2: expected nothing, got %+v", inv[2])
	}
}

func TestKind_String(t *testing.T) {
	if KindRecords.String() != "records" {
		t.Errorf("KindRecords.String() = %q", KindRecords.String())
	}
	if Kind(42).String() != "unknown" {
		t.Errorf("Kind(42).String() = %q", Kind(42).String())
	}
}
