package item

import "testing"

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "0"},
		{5, "5"},
		{999, "999"},
		{1000, "1,000"},
		{1200, "1,200"},
		{360, "360"},
		{5000000, "5,000,000"},
		{-1200, "-1,200"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.in); got != tt.want {
			t.Errorf("FormatAmount(%d): got %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNet(t *testing.T) {
	it := Item{Price: IntPtr(1200), Reward: IntPtr(360)}
	net, ok := it.Net()
	if !ok || net != 840 {
		t.Fatalf("Net: got %d/%v, want 840/true", net, ok)
	}

	if _, ok := (Item{Price: IntPtr(100)}).Net(); ok {
		t.Fatal("Net with nil reward should not be ok")
	}
	if _, ok := (Item{Reward: IntPtr(5)}).Net(); ok {
		t.Fatal("Net with nil price should not be ok")
	}
}

func TestClassicAssetTypes(t *testing.T) {
	for _, id := range []int{2, 11, 12} {
		if !ClassicAssetTypes[id] {
			t.Errorf("asset type %d should be classic", id)
		}
	}
	if ClassicAssetTypes[8] {
		t.Error("asset type 8 should not be classic")
	}
}
