/*
Package runner implements the interactive loop that drives a wizard from a
terminal or any line-oriented channel.

The runner renders the current step, prompts for every visible field through
an IOHandler, advances or submits, and optionally persists progress through a
session.Manager so an interrupted registration can be resumed later.
Sensitive fields are never persisted, so a resumed session asks for them again.

# Key Components

  - Runner: the orchestration loop.
  - IOHandler: decouples presentation (TextHandler for humans, JSONHandler for scripts).
  - SubmitGuard: a confirmation step between the final gate and delivery.
  - Sanitizer: input size, UTF-8 and control character policy shared with the HTTP adapter.

Commands accepted at any prompt: ":back", ":submit" (skip the remaining
fields of the step), ":clear" and ":quit".

# Usage

	r := runner.NewRunner(
		runner.WithWizard(engine),
		runner.WithSessions(session.NewManager(file.New("."))),
		runner.WithSessionID("ada"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if _, err := r.Run(ctx); err != nil {
		log.Fatal(err)
	}
*/
package runner
