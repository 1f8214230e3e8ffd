// Package animate drives continuous redraw loops.
//
// A [Scheduler] hands out one-shot frame callbacks, like a browser's
// animation frame queue. [Start] turns a draw function into a loop that
// requests its next frame after every draw and returns a [Loop] handle.
// Stopping the handle cancels the one outstanding frame, so a stopped loop
// leaves nothing pending on its scheduler.
//
// [TimerScheduler] runs frames on timers at a fixed rate. [ManualScheduler]
// runs them only when stepped, for tests and headless rendering.
package animate
