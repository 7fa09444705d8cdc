// Package audio provides cross-platform audio output using the oto/v3
// library. A Device hands out one Voice per caller; each Voice plays a
// decoded Clip and supports pause, rate adjustment, looping and seeking.
//
// The device does not stop two voices from sounding at the same time. Oto
// mixes concurrent players, so keeping a single voice audible is the job of
// whoever acquires them.
package audio
