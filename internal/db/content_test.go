package db

import (
	"strings"
	"testing"

	"github.com/DimensionDev/Flare-sub003/internal/mastodon"
)

func TestStatusContentRoundTrip(t *testing.T) {
	original := StatusContent{
		Type: ContentMastodon,
		Mastodon: &mastodon.Status{
			ID:              "42",
			Content:         "hello",
			FavouritesCount: 7,
			Favourited:      true,
		},
	}
	blob, err := original.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	decoded, err := DecodeStatusContent(blob)
	if err != nil {
		t.Fatalf("DecodeStatusContent() error = %v", err)
	}
	if decoded.Type != ContentMastodon || decoded.Mastodon == nil {
		t.Fatalf("decoded type = %q, variant nil = %v", decoded.Type, decoded.Mastodon == nil)
	}
	if decoded.Mastodon.ID != "42" || decoded.Mastodon.FavouritesCount != 7 || !decoded.Mastodon.Favourited {
		t.Errorf("decoded status = %+v, want original values", decoded.Mastodon)
	}
}

func TestDecodeStatusContentUnknownTag(t *testing.T) {
	blob := `{"type":"threads","data":{"id":"99","text":"from the future"}}`
	decoded, err := DecodeStatusContent(blob)
	if err != nil {
		t.Fatalf("DecodeStatusContent() error = %v, unknown tags must not fail", err)
	}
	if decoded.Type != ContentUnknown {
		t.Errorf("decoded type = %q, want %q", decoded.Type, ContentUnknown)
	}
	if !strings.Contains(string(decoded.Raw), "from the future") {
		t.Errorf("raw payload not preserved: %s", decoded.Raw)
	}
}

func TestDecodeStatusContentBadPayloadDegrades(t *testing.T) {
	// Known tag, payload that cannot unmarshal into the variant
	blob := `{"type":"mastodon","data":[1,2,3]}`
	decoded, err := DecodeStatusContent(blob)
	if err != nil {
		t.Fatalf("DecodeStatusContent() error = %v, bad payloads must degrade", err)
	}
	if decoded.Type != ContentUnknown {
		t.Errorf("decoded type = %q, want %q", decoded.Type, ContentUnknown)
	}
	if string(decoded.Raw) != "[1,2,3]" {
		t.Errorf("raw payload = %s, want [1,2,3]", decoded.Raw)
	}
}

func TestUnknownStatusContentSurvivesReEncode(t *testing.T) {
	blob := `{"type":"threads","data":{"id":"99"}}`
	decoded, err := DecodeStatusContent(blob)
	if err != nil {
		t.Fatalf("DecodeStatusContent() error = %v", err)
	}
	reEncoded, err := decoded.Encode()
	if err != nil {
		t.Fatalf("Encode() of unknown content error = %v", err)
	}
	again, err := DecodeStatusContent(reEncoded)
	if err != nil {
		t.Fatalf("second DecodeStatusContent() error = %v", err)
	}
	if again.Type != ContentUnknown || !strings.Contains(string(again.Raw), `"id":"99"`) {
		t.Errorf("payload lost across re-encode: type=%q raw=%s", again.Type, again.Raw)
	}
}

func TestDecodeStatusContentMalformedEnvelope(t *testing.T) {
	if _, err := DecodeStatusContent("not json at all"); err == nil {
		t.Error("DecodeStatusContent() on a non-JSON blob should fail")
	}
}

func TestUserContentUnknownFallback(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"unknown tag", `{"type":"orkut","data":{"name":"someone"}}`},
		{"bad payload", `{"type":"mastodon","data":"not an object"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := DecodeUserContent(tt.blob)
			if err != nil {
				t.Fatalf("DecodeUserContent() error = %v", err)
			}
			if decoded.Type != UserUnknown {
				t.Errorf("decoded type = %q, want %q", decoded.Type, UserUnknown)
			}
			if len(decoded.Raw) == 0 {
				t.Error("raw payload not preserved")
			}
		})
	}
}

func TestListContentRoundTrip(t *testing.T) {
	original := ListContent{
		ID:          "l1",
		Title:       "reading list",
		Description: "things to read",
		MemberCount: 12,
	}
	blob, err := original.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	decoded, err := DecodeListContent(blob)
	if err != nil {
		t.Fatalf("DecodeListContent() error = %v", err)
	}
	if decoded != original {
		t.Errorf("decoded = %+v, want %+v", decoded, original)
	}
}

func TestEncodeUnsetVariantFails(t *testing.T) {
	if _, err := (StatusContent{Type: "bogus"}).Encode(); err == nil {
		t.Error("Encode() with an unregistered type should fail")
	}
	if _, err := (RoomContent{Type: "bogus"}).Encode(); err == nil {
		t.Error("RoomContent.Encode() with an unregistered type should fail")
	}
}
