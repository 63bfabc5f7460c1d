/*
Package formflow is a deterministic multi-step form engine for building
registration wizards: ordered steps of typed fields, conditional fields,
per-step validation and a one-shot submission to a backend.

# Concept

A wizard definition declares fields, the steps that own them and rules that
make a field visible or required depending on another field's answer. The
engine moves a session through the steps, validating each one before it
lets the user advance, and assembles a backend-shaped payload once the final
step passes. State values are immutable: every operation returns a new state.

The engine never performs I/O itself. Hosts (CLI, HTTP server, MCP agent)
render the current step, collect input and decide where the state lives.

# Usage

	def := registration.Definition()
	eng, err := formflow.New(def, formflow.WithSubmitter(sink))
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	state, _ := eng.Start(ctx, "session-123", nil)
	state, _ = eng.SetFields(ctx, state, map[string]any{
		"fullName": "Ada Lovelace",
		"email":    "ada@example.com",
	})

	state, failures, err := eng.Next(ctx, state)
	if len(failures) > 0 {
		// stay on the step and show failures
	}

Definitions can also be loaded from a directory of Markdown/YAML/JSON files
with Open, which uses a Loam repository by default.
*/
package formflow
