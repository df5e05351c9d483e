package patcher

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/odvcencio/patchwork/pkg/container"
	"github.com/odvcencio/patchwork/pkg/datj"
	"github.com/odvcencio/patchwork/pkg/save"
	"github.com/odvcencio/patchwork/pkg/tool"
	"github.com/odvcencio/patchwork/pkg/workspace"
)

var sep = []byte{0xE3, 0x1B}

func binj(records ...string) []byte {
	parts := make([][]byte, len(records))
	for i, r := range records {
		parts[i] = []byte(r)
	}
	return bytes.Join(parts, sep)
}

func recs(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		if s != "" {
			out[i] = []byte(s)
		}
	}
	return out
}

func writeFile(t *testing.T, root, rel string, data []byte) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readFile(t *testing.T, root, rel string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func writeSave(t *testing.T, root, rel string, orig, edit [][]byte) {
	t.Helper()
	table := datj.DefaultTable()
	pkg := save.New(container.ModeBinJ, &container.Container{Records: orig}, container.DefaultSeparator, table)
	pkg.Edit = edit
	data, err := pkg.Encode(table)
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, root, rel, data)
}

func newTestPatcher(t *testing.T, root string) (*Patcher, *bytes.Buffer) {
	t.Helper()
	cfg := workspace.DefaultConfig()
	cfg.DeltaTool = workspace.DeltaBSDiff
	cfg.Verbose = 2
	opts, err := cfg.Resolve(root)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	delta, err := tool.NewDelta(opts.DeltaTool, opts.DeltaBinary, nil)
	if err != nil {
		t.Fatal(err)
	}
	var out bytes.Buffer
	p, err := New(root, opts, delta, &out)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p, &out
}

func wantCounts(t *testing.T, sum *Summary, want map[Outcome]int) {
	t.Helper()
	for o := Outcome(0); o < numOutcomes; o++ {
		if got := sum.Count(o); got != want[o] {
			t.Fatalf("%s count = %d, want %d (all: %+v)", o, got, want[o], sum.counts)
		}
	}
}

func TestApplyScenario(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Message_JA/a.binJ", binj("A", "B", "C"))
	writeFile(t, root, "Message_EN/a.patJ", []byte("\nX\n"))

	p, _ := newTestPatcher(t, root)
	sum, err := p.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	wantCounts(t, sum, map[Outcome]int{Created: 1})

	got := readFile(t, root, "Message_EN/a.binJ")
	want := []byte("A\xe3\x1bX\xe3\x1bC")
	if !bytes.Equal(got, want) {
		t.Fatalf("applied = %q, want %q", got, want)
	}
}

func TestApplyTwiceKeeps(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Message_JA/sub/a.binJ", binj("A", "B", "C"))
	writeFile(t, root, "Message_EN/sub/a.patJ", []byte("\nX\n"))
	writeSave(t, root, "Message_EN/sub/a.savJ", recs("A", "B", "C"), recs("", "", ""))
	writeFile(t, root, "Font_JA/f.bcfnt", []byte("original font data"))
	writeFile(t, root, "Font_EN/f.bcfnt", []byte("translated font data"))

	p, _ := newTestPatcher(t, root)
	if _, err := p.Create(context.Background()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := os.Remove(filepath.Join(root, "Font_EN", "f.bcfnt")); err != nil {
		t.Fatal(err)
	}
	// Keep the hand-written patch rather than the one rendered from the save.
	writeFile(t, root, "Message_EN/sub/a.patJ", []byte("\nX\n"))

	first, err := p.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	wantCounts(t, first, map[Outcome]int{Created: 2, Updated: 1})
	if got := readFile(t, root, "Font_EN/f.bcfnt"); string(got) != "translated font data" {
		t.Fatalf("reconstructed = %q", got)
	}

	second, err := p.Apply(context.Background())
	if err != nil {
		t.Fatalf("second Apply: %v", err)
	}
	wantCounts(t, second, map[Outcome]int{Kept: 3})
}

func TestApplyUpdatesSave(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Message_JA/a.binJ", binj("A", "B", "C"))
	writeFile(t, root, "Message_EN/a.patJ", []byte("\nX"))
	writeSave(t, root, "Message_EN/a.savJ", recs("A", "B", "C"), recs("", "", ""))

	p, out := newTestPatcher(t, root)
	sum, err := p.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	wantCounts(t, sum, map[Outcome]int{Created: 1, Updated: 1})

	pkg, err := save.Read(filepath.Join(root, "Message_EN", "a.savJ"), datj.DefaultTable())
	if err != nil {
		t.Fatal(err)
	}
	if len(pkg.Edit) != 3 || string(pkg.Edit[1]) != "X" {
		t.Fatalf("save edit = %q", pkg.Edit)
	}
	// Two lines against three records: one warning per output.
	if n := strings.Count(out.String(), "2 records, original has 3"); n != 2 {
		t.Fatalf("length warnings = %d, want 2\n%s", n, out.String())
	}
}

func TestApplyMissingOriginalSkips(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Message_JA/a.binJ", binj("A"))
	writeFile(t, root, "Message_EN/b.patJ", []byte("X"))

	p, out := newTestPatcher(t, root)
	sum, err := p.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	wantCounts(t, sum, map[Outcome]int{Skipped: 1})
	if !strings.Contains(out.String(), "original file not found: "+filepath.Join("Message_JA", "b.binJ")) {
		t.Fatalf("output = %q", out.String())
	}
}

func TestApplyPerFileErrorsContinue(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Event_JA/bad.e", []byte("not gzip"))
	writeFile(t, root, "Event_EN/bad.patE", []byte("X"))
	writeFile(t, root, "Message_JA/a.binJ", binj("A", "B"))
	writeFile(t, root, "Message_EN/a.patJ", []byte("\\q\n"))
	writeFile(t, root, "Message_JA/b.binJ", binj("A", "B"))
	writeFile(t, root, "Message_EN/b.patJ", []byte("Y\n"))

	p, out := newTestPatcher(t, root)
	sum, err := p.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	wantCounts(t, sum, map[Outcome]int{Created: 1, Errors: 2})
	if !strings.Contains(out.String(), "a.patJ:1:1") {
		t.Fatalf("syntax error position missing:\n%s", out.String())
	}
	if _, err := os.Stat(filepath.Join(root, "Message_EN", "a.binJ")); !os.IsNotExist(err) {
		t.Fatal("failed apply wrote an output")
	}
}

func TestApplyBadPatchSkipsSave(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Message_JA/a.binJ", binj("A", "B"))
	writeFile(t, root, "Message_EN/a.patJ", []byte("\\q\n"))
	writeSave(t, root, "Message_EN/a.savJ", recs("A", "B"), recs("", "S"))
	before := readFile(t, root, "Message_EN/a.savJ")

	p, out := newTestPatcher(t, root)
	sum, err := p.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	wantCounts(t, sum, map[Outcome]int{Errors: 1})
	if n := strings.Count(out.String(), "a.patJ:1:1"); n != 1 {
		t.Fatalf("syntax error reported %d times, want 1\n%s", n, out.String())
	}
	if got := readFile(t, root, "Message_EN/a.savJ"); !bytes.Equal(got, before) {
		t.Fatal("save rewritten from an unreadable patch")
	}
}

func TestCreateFromSave(t *testing.T) {
	root := t.TempDir()
	writeSave(t, root, "Message_EN/a.savJ", recs("A", "B", "C"), recs("", "X", ""))

	p, _ := newTestPatcher(t, root)
	sum, err := p.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	wantCounts(t, sum, map[Outcome]int{Created: 1})
	if got := readFile(t, root, "Message_EN/a.patJ"); string(got) != "\nX\n" {
		t.Fatalf("patch = %q", got)
	}

	sum, err = p.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	wantCounts(t, sum, map[Outcome]int{Kept: 1})
}

func TestCreateFromPairAndDeleteStale(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Message_JA/a.binJ", binj("A", "B", "C"))
	edited := writeFile(t, root, "Message_EN/a.binJ", binj("A", "X", "C"))

	p, _ := newTestPatcher(t, root)
	sum, err := p.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	wantCounts(t, sum, map[Outcome]int{Created: 1})
	if got := readFile(t, root, "Message_EN/a.patJ"); string(got) != "\nX\n" {
		t.Fatalf("patch = %q", got)
	}

	if err := os.WriteFile(edited, binj("A", "B", "C"), 0o644); err != nil {
		t.Fatal(err)
	}
	sum, err = p.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	wantCounts(t, sum, map[Outcome]int{Deleted: 1})
	if _, err := os.Stat(filepath.Join(root, "Message_EN", "a.patJ")); !os.IsNotExist(err) {
		t.Fatal("stale patch not deleted")
	}

	sum, err = p.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	wantCounts(t, sum, map[Outcome]int{Skipped: 1})
}

func TestCreateKeepsPatchEditedAfterApply(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Message_JA/a.binJ", binj("A", "B", "C"))
	patchPath := writeFile(t, root, "Message_EN/a.patJ", []byte("\nX\n"))

	p, out := newTestPatcher(t, root)
	if _, err := p.Apply(context.Background()); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	sum, err := p.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	wantCounts(t, sum, map[Outcome]int{Kept: 1})

	// The translator edits the patch without applying it.
	if err := os.WriteFile(patchPath, []byte("\nX\nY"), 0o644); err != nil {
		t.Fatal(err)
	}
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(patchPath, later, later); err != nil {
		t.Fatal(err)
	}

	out.Reset()
	sum, err = p.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	wantCounts(t, sum, map[Outcome]int{Skipped: 1})
	if got := readFile(t, root, "Message_EN/a.patJ"); string(got) != "\nX\nY" {
		t.Fatalf("patch = %q, want the edited patch kept", got)
	}
	if !strings.Contains(out.String(), "apply it first") {
		t.Fatalf("output = %q, want a warning", out.String())
	}

	sum, err = p.Apply(context.Background())
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	wantCounts(t, sum, map[Outcome]int{Updated: 1})
	if got, want := readFile(t, root, "Message_EN/a.binJ"), binj("A", "X", "Y"); !bytes.Equal(got, want) {
		t.Fatalf("applied = %q, want %q", got, want)
	}

	sum, err = p.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	wantCounts(t, sum, map[Outcome]int{Kept: 1})
}

func TestCreateSkipsContainerWithSave(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Message_JA/a.binJ", binj("A", "B"))
	writeFile(t, root, "Message_EN/a.binJ", binj("A", "Z"))
	writeSave(t, root, "Message_EN/a.savJ", recs("A", "B"), recs("", "X"))

	p, _ := newTestPatcher(t, root)
	sum, err := p.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	wantCounts(t, sum, map[Outcome]int{Created: 1})
	if got := readFile(t, root, "Message_EN/a.patJ"); string(got) != "\nX" {
		t.Fatalf("patch = %q, want the save's edit", got)
	}
}

func TestCreateWarnsOnMetadata(t *testing.T) {
	root := t.TempDir()
	cfg := workspace.DefaultConfig()
	opts, err := cfg.Resolve(root)
	if err != nil {
		t.Fatal(err)
	}
	codec := opts.Text["Event"].Codec
	orig, err := codec.Encode(&container.Container{Records: recs("A", "B"), Meta: container.Meta{Header: []uint32{1}}})
	if err != nil {
		t.Fatal(err)
	}
	edit, err := codec.Encode(&container.Container{Records: recs("A", "Y"), Meta: container.Meta{Header: []uint32{2}}})
	if err != nil {
		t.Fatal(err)
	}
	writeFile(t, root, "Event_JA/e.e", orig)
	writeFile(t, root, "Event_EN/e.e", edit)

	p, out := newTestPatcher(t, root)
	sum, err := p.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	wantCounts(t, sum, map[Outcome]int{Created: 1})
	if !strings.Contains(out.String(), "metadata differs from original: header") {
		t.Fatalf("output = %q", out.String())
	}
}

func TestCreateDeltaDeletesWhenIdentical(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Font_JA/f.bcfnt", []byte("same"))
	writeFile(t, root, "Font_EN/f.bcfnt", []byte("same"))
	writeFile(t, root, "Font_EN/f.bcfnt.xdelta", []byte("old patch"))

	p, _ := newTestPatcher(t, root)
	sum, err := p.Create(context.Background())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	wantCounts(t, sum, map[Outcome]int{Deleted: 1})
}

func TestDistributePriority(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Message_JA/a.binJ", binj("A", "B", "C"))
	writeFile(t, root, "Message_JA/untouched.binJ", binj("U"))
	writeFile(t, root, "Message_EN/a.patJ", []byte("X\n\n"))
	writeSave(t, root, "Message_DE/a.savJ", recs("A", "B", "C"), recs("", "Y", "Z"))
	writeFile(t, root, "Message_EN/a.binJ", binj("ignored", "ignored", "ignored"))

	p, _ := newTestPatcher(t, root)
	sum, err := p.Distribute(DistributeOptions{Languages: []string{"EN", "DE"}})
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	wantCounts(t, sum, map[Outcome]int{Created: 1})

	got := readFile(t, root, "_dist/ExtractedRomFS/data/Message/a.binJ")
	if want := binj("X", "Y", "Z"); !bytes.Equal(got, want) {
		t.Fatalf("distributed = %q, want %q", got, want)
	}
	if _, err := os.Stat(filepath.Join(root, "_dist", "ExtractedRomFS", "data", "Message", "untouched.binJ")); !os.IsNotExist(err) {
		t.Fatal("original-only file was distributed")
	}

	sum, err = p.Distribute(DistributeOptions{Languages: []string{"EN", "DE"}})
	if err != nil {
		t.Fatal(err)
	}
	wantCounts(t, sum, map[Outcome]int{Kept: 1})
}

func TestDistributeVersion(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Message_JA/a.binJ", binj("A", "B"))
	writeFile(t, root, "Message_JA/c.binJ", binj("C"))
	writeFile(t, root, "Message_EN/a.patJ", []byte("base\n"))
	writeFile(t, root, "Message_EN/c.patJ", []byte("see"))
	writeFile(t, root, "Message_v1.1_JA/a.binJ", binj("A2", "B2", "N2"))
	writeFile(t, root, "Message_v1.1_EN/a.patJ", []byte("\n\nnew"))

	p, _ := newTestPatcher(t, root)
	sum, err := p.Distribute(DistributeOptions{Languages: []string{"EN"}, Version: "v1.1", Dest: "out"})
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	wantCounts(t, sum, map[Outcome]int{Created: 2})

	dir := "out/ExtractedRomFS/data/Message/"
	if got, want := readFile(t, root, dir+"a.binJ"), binj("A2", "B2", "new"); !bytes.Equal(got, want) {
		t.Fatalf("a.binJ = %q, want %q", got, want)
	}
	if got, want := readFile(t, root, dir+"c.binJ"), binj("see"); !bytes.Equal(got, want) {
		t.Fatalf("c.binJ = %q, want %q", got, want)
	}

	// v1.0 is the base game.
	sum, err = p.Distribute(DistributeOptions{Languages: []string{"EN"}, Version: "v1.0", Dest: "base"})
	if err != nil {
		t.Fatal(err)
	}
	wantCounts(t, sum, map[Outcome]int{Created: 2})
	if got, want := readFile(t, root, "base/ExtractedRomFS/data/Message/a.binJ"), binj("base", "B"); !bytes.Equal(got, want) {
		t.Fatalf("base a.binJ = %q, want %q", got, want)
	}
}

func TestDistributeDeltaSkipsIdentical(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "Font_JA/f.bcfnt", []byte("orig"))
	writeFile(t, root, "Font_EN/f.bcfnt", []byte("orig"))
	writeFile(t, root, "Font_EN/g.bcfnt", []byte("english"))
	writeFile(t, root, "Font_DE/g.bcfnt", []byte("deutsch"))

	p, _ := newTestPatcher(t, root)
	sum, err := p.Distribute(DistributeOptions{Languages: []string{"DE", "EN"}})
	if err != nil {
		t.Fatalf("Distribute: %v", err)
	}
	wantCounts(t, sum, map[Outcome]int{Created: 1})
	if got := readFile(t, root, "_dist/ExtractedRomFS/data/Font/g.bcfnt"); string(got) != "deutsch" {
		t.Fatalf("g.bcfnt = %q", got)
	}
}

func TestDistributeRejectsBadVersion(t *testing.T) {
	p, _ := newTestPatcher(t, t.TempDir())
	if _, err := p.Distribute(DistributeOptions{Languages: []string{"EN"}, Version: "EN"}); err == nil {
		t.Fatal("expected error for non-version")
	}
	if _, err := p.Distribute(DistributeOptions{}); err == nil {
		t.Fatal("expected error for no languages")
	}
}

func TestChooseChain(t *testing.T) {
	cat := workspace.TextCategory{Original: ".binJ", Save: ".savJ", Patch: ".patJ"}
	tests := []struct {
		name  string
		cands []candidate
		want  []candidate
	}{
		{
			name:  "patch then original",
			cands: []candidate{{"EN", ".patJ"}, {"JA", ".binJ"}},
			want:  []candidate{{"EN", ".patJ"}, {"JA", ".binJ"}},
		},
		{
			name:  "save beats patch",
			cands: []candidate{{"EN", ".savJ"}, {"EN", ".patJ"}, {"JA", ".binJ"}},
			want:  []candidate{{"EN", ".savJ"}, {"JA", ".binJ"}},
		},
		{
			name:  "container ends the chain",
			cands: []candidate{{"EN", ".patJ"}, {"DE", ".binJ"}, {"JA", ".binJ"}},
			want:  []candidate{{"EN", ".patJ"}, {"DE", ".binJ"}},
		},
		{
			name:  "trailing patch without original dropped",
			cands: []candidate{{"EN", ".savJ"}, {"DE", ".patJ"}},
			want:  []candidate{{"EN", ".savJ"}},
		},
		{
			name:  "original only",
			cands: []candidate{{"JA", ".binJ"}},
			want:  nil,
		},
		{
			name:  "no original at all",
			cands: []candidate{{"EN", ".patJ"}},
			want:  nil,
		},
	}
	for _, tt := range tests {
		got := chooseChain(tt.cands, cat, "JA")
		if len(got) != len(tt.want) {
			t.Fatalf("%s: chooseChain = %v, want %v", tt.name, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("%s: chooseChain = %v, want %v", tt.name, got, tt.want)
			}
		}
	}
}

func TestCloseRemovesStaging(t *testing.T) {
	root := t.TempDir()
	p, _ := newTestPatcher(t, root)
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	matches, _ := filepath.Glob(filepath.Join(root, ".patchwork-tmp-*"))
	if len(matches) != 0 {
		t.Fatalf("staging dirs left: %v", matches)
	}
}

func TestSummaryFormat(t *testing.T) {
	var s Summary
	s.Record(Created)
	s.Record(Created)
	s.Record(Kept)

	var b bytes.Buffer
	s.Format(&b, "files", 1)
	if got, want := b.String(), "Created 2 files.\nUpdated 0 files.\nErrors in 0 files.\n"; got != want {
		t.Fatalf("Format(1) = %q, want %q", got, want)
	}

	b.Reset()
	s.Format(&b, "files", 0)
	if got, want := b.String(), "Created 2 files.\n"; got != want {
		t.Fatalf("Format(0) = %q, want %q", got, want)
	}

	var other Summary
	other.Record(Errors)
	s.Merge(&other)
	if s.Total() != 4 || s.Count(Errors) != 1 {
		t.Fatalf("merged = %+v", s.counts)
	}
}
