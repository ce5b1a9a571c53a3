/*
Package ports defines the driven ports (interfaces) for the storyline engine.

These interfaces decouple the traversal core from external implementations, so
a story can be read from any source and saves can live in any backend.

# Key Interfaces

  - SaveStore: Persists save records keyed by slot.
  - StorySource: Supplies the raw tabular story text.
  - Watchable: Signals that a story source changed (hot reload).
  - AssetResolver: Resolves logical background and character ids.
  - DistributedLocker: Coordinates access to a player's session across replicas.
*/
package ports
