package mw

import (
	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v4"
)

// registerCodecs fixes the router's codec set to exactly what spec
// §4.4 mandates: audio/opus 48000Hz/2ch and video/VP8 90000Hz. Unlike
// webrtc.MediaEngine.RegisterDefaultCodecs (which pulls in H264, AV1,
// RED, etc.) this keeps the router's RtpCapabilities exactly matching
// the spec's fixed configuration.
const audioLevelExtensionID = 1

func registerCodecs(me *webrtc.MediaEngine) (RtpCapabilities, error) {
	if err := me.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeOpus,
			ClockRate:   48000,
			Channels:    2,
			SDPFmtpLine: "minptime=10;useinbandfec=1",
		},
		PayloadType: 111,
	}, webrtc.RTPCodecTypeAudio); err != nil {
		return RtpCapabilities{}, err
	}

	if err := me.RegisterCodec(webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:  webrtc.MimeTypeVP8,
			ClockRate: 90000,
		},
		PayloadType: 96,
	}, webrtc.RTPCodecTypeVideo); err != nil {
		return RtpCapabilities{}, err
	}

	if err := me.RegisterHeaderExtension(
		webrtc.RTPHeaderExtensionCapability{URI: sdp.AudioLevelURI},
		webrtc.RTPCodecTypeAudio,
	); err != nil {
		return RtpCapabilities{}, err
	}

	return RtpCapabilities{
		Codecs: []RtpCodecCapability{
			{Kind: "audio", MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2, PayloadType: 111},
			{Kind: "video", MimeType: webrtc.MimeTypeVP8, ClockRate: 90000, PayloadType: 96},
		},
		HeaderExtensions: []RtpHeaderExtension{
			{Kind: "audio", URI: sdp.AudioLevelURI, ID: audioLevelExtensionID},
		},
	}, nil
}

func registerAudioLevelInterceptor(me *webrtc.MediaEngine, ir *interceptor.Registry) error {
	return webrtc.RegisterDefaultInterceptors(me, ir)
}

// decodeAudioLevel extracts the ssrc-audio-level header extension
// value (spec §4.2's dBFS input) from a single RTP packet, if present.
// Returns (dBFS, ok).
func decodeAudioLevel(pkt *rtp.Packet, extID uint8) (float64, bool) {
	if extID == 0 {
		return 0, false
	}
	raw := pkt.GetExtension(extID)
	if raw == nil {
		return 0, false
	}
	var ext rtp.AudioLevelExtension
	if err := ext.Unmarshal(raw); err != nil {
		return 0, false
	}
	// AudioLevelExtension.Level is 0 (loudest) .. 127 (silence) per
	// RFC 6464; convert to the dBFS-ish negative-float shape spec §6
	// expects clients to receive (-127..0).
	return -float64(ext.Level), true
}

func errClosed(what string) error {
	return &closedError{what: what}
}

type closedError struct{ what string }

func (e *closedError) Error() string { return e.what + " is closed" }
