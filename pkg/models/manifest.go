package models

import "github.com/sdejongh/mediakit/pkg/sizes"

// FilePair links a source file to the file produced from it
type FilePair struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// ManifestEntry records one completed transcode
type ManifestEntry struct {
	File FilePair         `json:"file"`
	Size sizes.Comparison `json:"size"`
}

// NewManifestEntry builds an entry from measured input and output sizes
func NewManifestEntry(input, output string, inputSize, outputSize uint64) ManifestEntry {
	return ManifestEntry{
		File: FilePair{Input: input, Output: output},
		Size: sizes.Compare(inputSize, outputSize),
	}
}
