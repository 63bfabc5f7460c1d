/*
Package ports defines the driven ports (interfaces) of the formflow engine.

These interfaces decouple the wizard state machine from external
implementations, so the same engine runs behind a terminal, an HTTP API or an
MCP server and persists to memory, files or Redis.

# Key Interfaces

  - Submitter: receives the assembled payload once the final step passes.
  - StateStore: optional persistence of in-progress wizard State.
  - DistributedLocker: serializes access to a session across replicas.
  - DefinitionLoader: resolves wizard definitions by ID (Loam, memory).
  - Wizard: the driving API adapters use to operate a session.
*/
package ports
