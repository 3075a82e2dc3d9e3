package directory

import (
	"reflect"
	"testing"

	"github.com/yanizio/libretv-sites/internal/site"
)

func TestExtendReplaceSnapshot(t *testing.T) {
	d := New(map[string]site.Entry{"builtin": {API: "https://a.test", Name: "A"}})

	d.Extend(map[string]site.Entry{
		"qiqi":    {API: "https://q.test", Name: "Q"},
		"builtin": {API: "https://a2.test", Name: "A2"},
	})
	if got := d.IDs(); !reflect.DeepEqual(got, []string{"builtin", "qiqi"}) {
		t.Fatalf("IDs = %v", got)
	}
	if e, _ := d.Get("builtin"); e.Name != "A2" {
		t.Fatalf("Extend did not overwrite: %+v", e)
	}

	snap := d.Snapshot()
	snap["mutated"] = site.Entry{}
	if _, ok := d.Get("mutated"); ok {
		t.Fatal("Snapshot is not a copy")
	}

	delete(snap, "qiqi")
	delete(snap, "mutated")
	d.Replace(snap)
	if got := d.IDs(); !reflect.DeepEqual(got, []string{"builtin"}) {
		t.Fatalf("IDs after Replace = %v", got)
	}
}

func TestZeroValueUsable(t *testing.T) {
	var d Directory
	d.Extend(map[string]site.Entry{"x": {Name: "X"}})
	if len(d.Snapshot()) != 1 {
		t.Fatal("zero-value Extend failed")
	}
}
