package mw

import (
	"testing"

	"github.com/pion/rtp"
)

func TestDecodeAudioLevelRoundTrip(t *testing.T) {
	ext := rtp.AudioLevelExtension{Level: 20, Voice: false}
	raw, err := ext.Marshal()
	if err != nil {
		t.Fatalf("marshal audio level extension: %v", err)
	}

	pkt := &rtp.Packet{Header: rtp.Header{Version: 2}}
	if err := pkt.SetExtension(audioLevelExtensionID, raw); err != nil {
		t.Fatalf("SetExtension: %v", err)
	}

	dbfs, ok := decodeAudioLevel(pkt, audioLevelExtensionID)
	if !ok {
		t.Fatal("expected decodeAudioLevel to find the extension")
	}
	if dbfs != -20 {
		t.Errorf("dbfs = %v, want -20", dbfs)
	}
}

func TestDecodeAudioLevelMissingExtension(t *testing.T) {
	pkt := &rtp.Packet{Header: rtp.Header{Version: 2}}
	if _, ok := decodeAudioLevel(pkt, audioLevelExtensionID); ok {
		t.Error("expected decodeAudioLevel to report no extension present")
	}
}

func TestDecodeAudioLevelZeroExtID(t *testing.T) {
	pkt := &rtp.Packet{Header: rtp.Header{Version: 2}}
	if _, ok := decodeAudioLevel(pkt, 0); ok {
		t.Error("expected decodeAudioLevel to refuse extension id 0")
	}
}
