// Package spellarvault is the Composition Root for the Spellar to Obsidian
// webhook service.
//
// It receives meeting webhooks from Spellar, acknowledges them at once and
// turns each meeting into vault artifacts on a bounded pool of workers:
//
//   - **Summary note**: front matter, summary, decisions, topics and action items.
//   - **Transcript note**: speaker-attributed transcript linked back to the summary.
//   - **Daily log**: one entry per meeting appended to the day's note.
//   - **Recording**: downloaded or saved into the attachments folder.
//
// Configuration comes from the environment (see internal/config). Components
// log through an injected slog.Logger and export Prometheus metrics.
//
// Usage:
//
//	cfg, err := spellarvault.LoadConfig()
//	svc, err := spellarvault.New(cfg, spellarvault.WithLogger(logger))
//	err = svc.Start(ctx)
//	http.ListenAndServe(":8765", svc.Router())
package spellarvault
