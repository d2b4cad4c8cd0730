// Package myaudio loads uploaded audio clips into mono waveforms at the
// fixed analysis sample rate.
//
// WAV and FLAC are decoded in-process. Compressed formats (MP3, M4A, OGG)
// are handed to an external ffmpeg process through a temporary file that
// lives only for the duration of the call.
//
// The declared content type and file name are checked against a fixed
// whitelist before any decoding is attempted; validation failures carry
// errors.CategoryValidation while decode failures carry
// errors.CategoryAudioDecode.
package myaudio
