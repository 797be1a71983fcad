// Package recording provides a headless drawing surface that records the
// commands it receives instead of rasterizing them.
//
// A Recorder satisfies compositor.Surface. Tests use it to count draw calls
// and to check that clip and transform scopes stay balanced; the CLI uses
// it for dry runs. Captured regions are opaque tokens sized like their
// pixel counterparts, so render cache budgets behave as with a real
// backend.
//
//	rec := recording.NewRecorder(800, 600)
//	report, err := comp.PaintFrame(list, rec)
//	fmt.Println(rec.DrawCalls(), rec.Count(recording.CmdBlit))
//
// The backend registers itself with the compositor as "recording".
package recording
