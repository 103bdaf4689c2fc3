// Package media acquires source audio and cuts windows out of it.
//
// Fetcher resolves a task source to a local file: local paths are checked in
// place, remote URLs are downloaded with yt-dlp into the downloads directory
// and reused on later runs. Extractor runs ffmpeg to write a mono 16 kHz WAV
// window for re-transcription. Prober reports media duration through ffprobe.
//
// SourceID derives the stable identifier used as the checkpoint cache prefix.
package media
