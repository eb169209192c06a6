package fonts

import "testing"

func TestParseFamily(t *testing.T) {
	for _, in := range []string{"helvetica", "Times", " COURIER "} {
		f, err := ParseFamily(in)
		if err != nil {
			t.Fatalf("ParseFamily(%q) error: %v", in, err)
		}
		if !f.Valid() {
			t.Fatalf("ParseFamily(%q) returned invalid family %q", in, f)
		}
	}
	if _, err := ParseFamily("comic-sans"); err == nil {
		t.Fatalf("expected error for unknown family")
	}
}

// 每个字体族都必须有可加载的字体程序。
func TestLoadEveryFamily(t *testing.T) {
	for _, f := range Families {
		data, err := Load(f)
		if err != nil {
			t.Fatalf("Load(%s) error: %v", f, err)
		}
		if len(data) == 0 {
			t.Fatalf("Load(%s) returned empty font program", f)
		}
	}
	if _, err := Load("unknown"); err == nil {
		t.Fatalf("expected error for unknown family")
	}
}
