/*
Package domain contains the core domain models of the Storyline engine.

It defines the narrative graph (Nodes and their Dialog/Choice bodies), the
transcript records produced while traversing it, the persisted save record,
and the diagnostics taxonomy shared by the builder and the traversal engine.
This package is kept pure and free of I/O, following Hexagonal Architecture
principles.

# Key Entities

  - Node: A point in the story graph. A tagged union over Dialog and Choice bodies.
  - Graph: The read-only container produced by ingestion and shared by sessions.
  - HistoryEntry: One line of the flattened transcript (speaker, content).
  - SaveRecord: The serializable projection of a session stored in a save slot.
  - Diagnostic: A recoverable, non-fatal error (parse warning, dangling reference, invalid operation).
  - Frame: A pure projection of session state for presentation collaborators.
*/
package domain
