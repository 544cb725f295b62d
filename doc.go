// Package sidecards is the composition root of the card collection engine.
//
// A vault is a folder of Markdown card documents plus a durable settings
// record (sort preferences, the universal manual order, categories and
// statuses). The engine keeps both in sync: edits are written back to card
// documents, external edits are picked up by the watcher, and the record is
// saved on a debounce.
//
// Features:
//
//   - **Universal order**: manual order survives filters and view switches.
//   - **Documents win**: frontmatter in card documents overrides the record.
//   - **Pluggable settings**: JSON file (default), SQLite or Redis.
//   - **Default Adapter (FS + Git)**: local Markdown files with optional git commits.
//
// Usage:
//
//	vault, err := sidecards.New("./notes",
//		sidecards.WithAutoInit(true),
//		sidecards.WithNotesFolder("Cards"),
//	)
//	defer vault.Close(ctx)
//
//	card, err := vault.Create(ctx, "Buy milk", sidecards.CreateOptions{WithNote: true})
package sidecards
