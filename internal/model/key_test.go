package model

import "testing"

func TestParseKey(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Key
		wantErr bool
	}{
		{"simple", "123@mastodon.social", Key{ID: "123", Host: "mastodon.social"}, false},
		{"at uri id", "at://did:plc:abc/app.bsky.feed.post/xyz@bsky.app", Key{ID: "at://did:plc:abc/app.bsky.feed.post/xyz", Host: "bsky.app"}, false},
		{"missing host", "123@", Key{}, true},
		{"missing id", "@host", Key{}, true},
		{"no separator", "123", Key{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseKey(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKey(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseKey(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeyRoundTrip(t *testing.T) {
	k := NewKey("456", "misskey.io")
	parsed, err := ParseKey(k.String())
	if err != nil {
		t.Fatalf("ParseKey(%q) failed: %v", k.String(), err)
	}
	if parsed != k {
		t.Errorf("round trip = %v, want %v", parsed, k)
	}
}

func TestPlatformTypeValid(t *testing.T) {
	for _, p := range []PlatformType{PlatformMastodon, PlatformMisskey, PlatformBluesky, PlatformXQT, PlatformVVO} {
		if !p.Valid() {
			t.Errorf("%s should be valid", p)
		}
	}
	if PlatformType("friendster").Valid() {
		t.Error("unknown platform should not be valid")
	}
}
