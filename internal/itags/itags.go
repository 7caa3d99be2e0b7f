// Package itags carries the static per-itag stream profiles: declared
// resolution, audio bitrate, and whether the variant is progressive
// (audio+video muxed) or adaptive (single track).
package itags

// Profile describes the known attributes of one itag.
type Profile struct {
	Resolution  string // e.g. "720p"; empty for audio-only variants
	ABR         string // e.g. "128kbps"; empty for video-only variants
	Progressive bool
}

// Lookup returns the profile for an itag. Unknown itags report ok=false;
// callers fall back to manifest-declared attributes.
func Lookup(itag int) (Profile, bool) {
	p, ok := profiles[itag]
	return p, ok
}

var profiles = map[int]Profile{
	// progressive (audio+video)
	5:   {Resolution: "240p", ABR: "64kbps", Progressive: true},
	6:   {Resolution: "270p", ABR: "64kbps", Progressive: true},
	13:  {Resolution: "144p", Progressive: true},
	17:  {Resolution: "144p", ABR: "24kbps", Progressive: true},
	18:  {Resolution: "360p", ABR: "96kbps", Progressive: true},
	22:  {Resolution: "720p", ABR: "192kbps", Progressive: true},
	34:  {Resolution: "360p", ABR: "128kbps", Progressive: true},
	35:  {Resolution: "480p", ABR: "128kbps", Progressive: true},
	36:  {Resolution: "240p", ABR: "24kbps", Progressive: true},
	37:  {Resolution: "1080p", ABR: "192kbps", Progressive: true},
	38:  {Resolution: "3072p", ABR: "192kbps", Progressive: true},
	43:  {Resolution: "360p", ABR: "128kbps", Progressive: true},
	44:  {Resolution: "480p", ABR: "128kbps", Progressive: true},
	45:  {Resolution: "720p", ABR: "192kbps", Progressive: true},
	46:  {Resolution: "1080p", ABR: "192kbps", Progressive: true},
	59:  {Resolution: "480p", ABR: "128kbps", Progressive: true},
	78:  {Resolution: "480p", ABR: "128kbps", Progressive: true},
	82:  {Resolution: "360p", ABR: "128kbps", Progressive: true},
	83:  {Resolution: "480p", ABR: "128kbps", Progressive: true},
	84:  {Resolution: "720p", ABR: "192kbps", Progressive: true},
	85:  {Resolution: "1080p", ABR: "192kbps", Progressive: true},
	91:  {Resolution: "144p", ABR: "48kbps", Progressive: true},
	92:  {Resolution: "240p", ABR: "48kbps", Progressive: true},
	93:  {Resolution: "360p", ABR: "128kbps", Progressive: true},
	94:  {Resolution: "480p", ABR: "128kbps", Progressive: true},
	95:  {Resolution: "720p", ABR: "256kbps", Progressive: true},
	96:  {Resolution: "1080p", ABR: "256kbps", Progressive: true},
	100: {Resolution: "360p", ABR: "128kbps", Progressive: true},
	101: {Resolution: "480p", ABR: "192kbps", Progressive: true},
	102: {Resolution: "720p", ABR: "192kbps", Progressive: true},

	// adaptive video
	133: {Resolution: "240p"},
	134: {Resolution: "360p"},
	135: {Resolution: "480p"},
	136: {Resolution: "720p"},
	137: {Resolution: "1080p"},
	138: {Resolution: "2160p"},
	160: {Resolution: "144p"},
	167: {Resolution: "360p"},
	168: {Resolution: "480p"},
	169: {Resolution: "720p"},
	212: {Resolution: "480p"},
	218: {Resolution: "480p"},
	219: {Resolution: "480p"},
	242: {Resolution: "240p"},
	243: {Resolution: "360p"},
	244: {Resolution: "480p"},
	245: {Resolution: "480p"},
	246: {Resolution: "480p"},
	247: {Resolution: "720p"},
	248: {Resolution: "1080p"},
	264: {Resolution: "1440p"},
	266: {Resolution: "2160p"},
	271: {Resolution: "1440p"},
	272: {Resolution: "2160p"},
	278: {Resolution: "144p"},
	298: {Resolution: "720p"},
	299: {Resolution: "1080p"},
	302: {Resolution: "720p"},
	303: {Resolution: "1080p"},
	308: {Resolution: "1440p"},
	313: {Resolution: "2160p"},
	315: {Resolution: "2160p"},

	// adaptive audio
	139: {ABR: "48kbps"},
	140: {ABR: "128kbps"},
	141: {ABR: "256kbps"},
	171: {ABR: "128kbps"},
	172: {ABR: "256kbps"},
	249: {ABR: "50kbps"},
	250: {ABR: "70kbps"},
	251: {ABR: "160kbps"},
}
