/*
Package domain contains the core domain models for the Arbor engine.

It defines the fundamental entities of the narrative state machine, such as
Nodes, Choices, and the session State. This package is kept pure and free of
external dependencies like I/O or persistence, following Hexagonal
Architecture principles.

# Key Entities

  - Node: a point in the story graph holding narrative text and Choices.
  - Choice: a player-selectable transition, gated by a condition expression
    and structured requirements.
  - State: the runtime snapshot of a session (current node, flags, history).
  - StateDiff: a compact delta between two States.
*/
package domain
