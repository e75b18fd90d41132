// Package audio plays synthesized PCM through the system audio device
// using oto.
package audio
