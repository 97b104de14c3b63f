// Package sequencer implements the scheduling loop that keeps playing while
// the live unit is swapped underneath it.
//
// # How It Works
//
// A Loop walks the form one sixteenth note at a time. On every step it sends
// the notes of each unmuted pattern to its output and reports the new
// position to its listeners. When the last step of the form has been played
// the loop either starts over (repeat) or stops.
//
// The loop never evaluates anything itself. The owner tells it to Start,
// Stop, Reset or Reload a new Frame; Reload swaps patterns between two steps
// so a reload never interrupts playback.
package sequencer
