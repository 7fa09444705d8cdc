// Package synth generates missing audio assets with an external speech
// synthesizer (RHVoice or Piper) run as a subprocess.
package synth
