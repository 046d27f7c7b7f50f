package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/TremiDkhar/sitelink/internal/links"
	"github.com/TremiDkhar/sitelink/internal/logger"
)

func writeSeed(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "links.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}
	return path
}

func TestLoaderLoad(t *testing.T) {
	t.Setenv("PARTNER_B_SECRET", "from-env")
	path := writeSeed(t, `
links:
  - label: Partner B
    secret: ${PARTNER_B_SECRET}
    site1: a.example
    site2: https://b.example
  - label: Partner C
    site1: c.example
    site2: a.example
    published: false
`)

	file, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(file.Links) != 2 {
		t.Fatalf("Load() returned %d links, want 2", len(file.Links))
	}
	if file.Links[0].Secret != "from-env" {
		t.Errorf("secret = %q, want env expansion", file.Links[0].Secret)
	}
	if file.Links[1].Published == nil || *file.Links[1].Published {
		t.Error("published: false should be preserved")
	}
}

func TestLoaderMissingFile(t *testing.T) {
	if _, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load(); err == nil {
		t.Error("Load() should fail for a missing file")
	}
}

func TestLoaderRejectsUnnamedLinks(t *testing.T) {
	path := writeSeed(t, "links:\n  - site1: a.example\n")
	if _, err := NewLoader(path).Load(); err == nil {
		t.Error("Load() should reject links without label or id")
	}
}

func TestRecordIDStable(t *testing.T) {
	a := RecordID(Link{Label: "Partner B"})
	b := RecordID(Link{Label: "Partner B"})
	if a != b {
		t.Errorf("RecordID() not stable: %q != %q", a, b)
	}
	if RecordID(Link{Label: "Partner C"}) == a {
		t.Error("RecordID() should differ between labels")
	}
	if got := RecordID(Link{ID: "explicit", Label: "Partner B"}); got != "explicit" {
		t.Errorf("RecordID() = %q, want explicit id", got)
	}
}

type recordingSaver struct {
	inputs []links.Input
	errs   map[string]error
}

func (s *recordingSaver) Save(ctx context.Context, in links.Input) (*links.Result, error) {
	s.inputs = append(s.inputs, in)
	if err := s.errs[*in.Label]; err != nil {
		return nil, err
	}
	return &links.Result{}, nil
}

func TestApply(t *testing.T) {
	saver := &recordingSaver{errs: map[string]error{"locked": links.ErrLocked}}
	file := &File{Links: []Link{
		{Label: "ok", Secret: "x", Site1: "a.example", Site2: "b.example"},
		{Label: "locked", Site1: "a.example", Site2: "c.example"},
	}}

	applied, err := Apply(context.Background(), file, saver, logger.Nop())
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if applied != 1 {
		t.Errorf("Apply() applied %d, want 1", applied)
	}
	if saver.inputs[1].Secret != nil {
		t.Error("empty seed secret should leave the stored secret untouched")
	}
}

func TestApplyStopsOnStorageError(t *testing.T) {
	saver := &recordingSaver{errs: map[string]error{"broken": errors.New("redis down")}}
	file := &File{Links: []Link{{Label: "broken"}, {Label: "never"}}}

	if _, err := Apply(context.Background(), file, saver, logger.Nop()); err == nil {
		t.Fatal("Apply() should fail on storage errors")
	}
	if len(saver.inputs) != 1 {
		t.Errorf("Apply() continued after failure: %d saves", len(saver.inputs))
	}
}
