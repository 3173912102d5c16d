package commands

import (
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "items.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `
items:
  - item_code: AB1234
    image_count: 5
    size:
      size_zh: "S、M、L"
      size_table:
        head: []
        body:
          - ["60", "40"]
          - ["62", "42"]
  - item_code: CD5678
    image_count: 3
`)

	manifest, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(manifest.Items) != 2 {
		t.Fatalf("item count = %d, want 2", len(manifest.Items))
	}

	first := manifest.Items[0]
	if first.ItemCode != "AB1234" || first.ImageCount != 5 {
		t.Errorf("first item = %+v, want AB1234 with 5 images", first)
	}
	if first.Size == nil || first.Size.SizeTable == nil {
		t.Fatal("first item size table missing")
	}
	if first.Size.SizeZH != "S、M、L" {
		t.Errorf("size_zh = %q, want %q", first.Size.SizeZH, "S、M、L")
	}
	if len(first.Size.SizeTable.Body) != 2 {
		t.Errorf("size table rows = %d, want 2", len(first.Size.SizeTable.Body))
	}

	second := manifest.Items[1]
	if second.Size != nil {
		t.Error("second item should have no size payload")
	}
}

func TestLoadManifest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "missing item_code",
			content: `
items:
  - image_count: 3
`,
		},
		{
			name: "negative image_count",
			content: `
items:
  - item_code: AB1234
    image_count: -1
`,
		},
		{
			name:    "not yaml",
			content: `{{nope`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeManifest(t, tt.content)
			if _, err := LoadManifest(path); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoadManifest_FileMissing(t *testing.T) {
	if _, err := LoadManifest(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected error, got nil")
	}
}

func TestManifestSize_ToItemSize(t *testing.T) {
	var nilSize *ManifestSize
	if got := nilSize.toItemSize(); got != nil {
		t.Errorf("nil manifest size = %+v, want nil", got)
	}

	size := &ManifestSize{
		SizeZH: "均码",
	}
	converted := size.toItemSize()
	if converted == nil || converted.SizeZH != "均码" {
		t.Errorf("converted = %+v, want size_zh 均码", converted)
	}
	if converted.SizeTable != nil {
		t.Error("converted.SizeTable should be nil without a table")
	}

	size.SizeTable = &ManifestSizeTable{
		Head: []string{"S"},
		Body: [][]string{{"60"}},
	}
	converted = size.toItemSize()
	if converted.SizeTable == nil || len(converted.SizeTable.Body) != 1 {
		t.Errorf("converted table = %+v, want one row", converted.SizeTable)
	}
}
