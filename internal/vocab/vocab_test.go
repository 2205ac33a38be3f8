package vocab

import (
	"path/filepath"
	"reflect"
	"testing"
)

func TestBuildAssignsIndicesInFirstSeenOrder(t *testing.T) {
	v := Build([][]string{
		{"考", "试", "时", "间"},
		{"考", "试", "地", "点"},
	}, 1)

	if v.TokenToIndex[PadToken] != PadIndex || v.TokenToIndex[UnkToken] != UnkIndex {
		t.Fatal("reserved entries missing")
	}
	wantOrder := map[string]int{"考": 2, "试": 3, "时": 4, "间": 5, "地": 6, "点": 7}
	for tok, want := range wantOrder {
		if got := v.TokenToIndex[tok]; got != want {
			t.Errorf("index of %s = %d, want %d", tok, got, want)
		}
	}
	if v.Size() != 8 {
		t.Errorf("Size = %d, want 8", v.Size())
	}
}

func TestBuildMinFreq(t *testing.T) {
	v := Build([][]string{
		{"a", "b", "a"},
		{"a", "c"},
	}, 2)
	if _, ok := v.TokenToIndex["a"]; !ok {
		t.Error("token a should be included at minFreq 2")
	}
	if _, ok := v.TokenToIndex["b"]; ok {
		t.Error("token b should be excluded at minFreq 2")
	}
	if _, ok := v.TokenToIndex["c"]; ok {
		t.Error("token c should be excluded at minFreq 2")
	}
	if v.Counts["a"] != 3 {
		t.Errorf("count of a = %d, want 3", v.Counts["a"])
	}
}

func TestEncode(t *testing.T) {
	v := Build([][]string{{"a", "b"}}, 1)

	got := v.Encode([]string{"a", "zzz", "b"}, 5)
	want := []int{2, UnkIndex, 3, PadIndex, PadIndex}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Encode = %v, want %v", got, want)
	}

	got = v.Encode([]string{"a", "b", "a", "b"}, 2)
	if !reflect.DeepEqual(got, []int{2, 3}) {
		t.Errorf("truncated Encode = %v", got)
	}

	got = v.Encode(nil, 3)
	if !reflect.DeepEqual(got, []int{0, 0, 0}) {
		t.Errorf("empty Encode = %v", got)
	}
}

func TestDecode(t *testing.T) {
	v := Build([][]string{{"a"}}, 1)
	got := v.Decode([]int{2, 1, 0, 99})
	want := []string{"a", UnkToken, PadToken, UnkToken}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Decode = %v, want %v", got, want)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	v := Build([][]string{
		{"课", "程", "时", "间"},
		{"作", "业", "deadline"},
	}, 1)
	path := filepath.Join(t.TempDir(), "vocab.gob")
	if err := v.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(loaded.TokenToIndex, v.TokenToIndex) {
		t.Error("TokenToIndex did not round-trip")
	}
	if !reflect.DeepEqual(loaded.IndexToToken, v.IndexToToken) {
		t.Error("IndexToToken did not round-trip")
	}
	if loaded.Size() != v.Size() {
		t.Errorf("Size = %d, want %d", loaded.Size(), v.Size())
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.gob")); err == nil {
		t.Error("expected error for missing file")
	}
}
