// Package shutdown runs registered cleanup hooks when the process is
// asked to stop.
//
// Hooks run in reverse registration order under a shared deadline, so
// components started last stop first:
//
//	h := shutdown.NewHandler(10*time.Second, log)
//	h.OnShutdown("sweeper", func(ctx context.Context) error { sweeper.Stop(); return nil })
//	err := h.Wait(ctx)
package shutdown
