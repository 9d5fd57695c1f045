// Package composer drives ffmpeg to assemble shot clips and audio tracks
// into a master render and to transcode the master into delivery formats.
package composer
