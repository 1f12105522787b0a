// Package transcode re-encodes videos and audio recordings into smaller files
// next to the originals and records every finished file in a manifest so a
// folder can be processed again without redoing work.
package transcode

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sdejongh/mediakit/pkg/manifest"
)

// OutputDir is the folder, inside each source folder, that receives encoded files
const OutputDir = "Compressed"

// Kind is the media kind a profile handles
type Kind string

const (
	KindVideo Kind = "video"
	KindAudio Kind = "audio"
)

// Params are the fixed encoder settings of a profile
type Params struct {
	// Scale is an ffmpeg scale expression, e.g. "1280:-2"
	Scale        string `yaml:"scale,omitempty"`
	FPS          int    `yaml:"fps,omitempty"`
	VideoCodec   string `yaml:"video_codec,omitempty"`
	AudioCodec   string `yaml:"audio_codec,omitempty"`
	AudioBitrate string `yaml:"audio_bitrate,omitempty"`
	AudioRate    int    `yaml:"audio_rate,omitempty"`
	// NoVideo drops video streams (cover art in audio files)
	NoVideo bool `yaml:"no_video,omitempty"`
}

// Args renders the parameters as ffmpeg output options
func (p Params) Args() []string {
	var args []string
	if p.NoVideo {
		args = append(args, "-vn")
	}
	if p.Scale != "" {
		args = append(args, "-vf", "scale="+p.Scale)
	}
	if p.FPS > 0 {
		args = append(args, "-r", strconv.Itoa(p.FPS))
	}
	if p.VideoCodec != "" {
		args = append(args, "-c:v", p.VideoCodec)
	}
	if p.AudioCodec != "" {
		args = append(args, "-c:a", p.AudioCodec)
	}
	if p.AudioBitrate != "" {
		args = append(args, "-b:a", p.AudioBitrate)
	}
	if p.AudioRate > 0 {
		args = append(args, "-ar", strconv.Itoa(p.AudioRate))
	}
	return args
}

// String lists the parameters for logs
func (p Params) String() string {
	return strings.Join(p.Args(), " ")
}

// Profile describes one kind of batch: which files it takes, what it
// produces and where it keeps its manifest
type Profile struct {
	Kind Kind
	// SourceExts are matched case-insensitively
	SourceExts []string
	// OutputExt replaces the source extension; empty keeps it
	OutputExt    string
	ManifestName string
	Params       Params
}

// VideoProfile re-encodes .mp4 recordings to 1280 wide, 24 fps HEVC
func VideoProfile() Profile {
	return Profile{
		Kind:         KindVideo,
		SourceExts:   []string{".mp4"},
		ManifestName: manifest.VideoFileName,
		Params: Params{
			Scale:        "1280:-2",
			FPS:          24,
			VideoCodec:   "hevc_nvenc",
			AudioBitrate: "128k",
			AudioRate:    44100,
		},
	}
}

// AudioProfile converts .wav recordings to 128k MP3
func AudioProfile() Profile {
	return Profile{
		Kind:         KindAudio,
		SourceExts:   []string{".wav"},
		OutputExt:    ".mp3",
		ManifestName: manifest.AudioFileName,
		Params: Params{
			NoVideo:      true,
			AudioCodec:   "libmp3lame",
			AudioBitrate: "128k",
			AudioRate:    44100,
		},
	}
}

// ProfileFor returns the built-in profile of a kind
func ProfileFor(kind string) (Profile, error) {
	switch Kind(strings.ToLower(kind)) {
	case KindVideo:
		return VideoProfile(), nil
	case KindAudio:
		return AudioProfile(), nil
	default:
		return Profile{}, fmt.Errorf("unknown media kind %q (want video or audio)", kind)
	}
}

// Matches reports whether a file name is a source of this profile
func (p Profile) Matches(name string) bool {
	ext := filepath.Ext(name)
	for _, e := range p.SourceExts {
		if strings.EqualFold(ext, e) {
			return true
		}
	}
	return false
}

// OutputPath returns <dir>/Compressed/<stem><ext> for an input file
func (p Profile) OutputPath(input string) string {
	base := filepath.Base(input)
	if p.OutputExt != "" {
		base = strings.TrimSuffix(base, filepath.Ext(base)) + p.OutputExt
	}
	return filepath.Join(filepath.Dir(input), OutputDir, base)
}

// ManifestPath returns the manifest location for a source folder
func (p Profile) ManifestPath(sourceDir string) string {
	return filepath.Join(sourceDir, OutputDir, p.ManifestName)
}
