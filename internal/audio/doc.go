// Package audio plays the admission chime. It uses the beep library to decode
// WAV, OGG and MP3 files and mixes them through the system speaker.
package audio
