/*
Package observability provides tools for monitoring the wizard engine.

Metrics and LogHooks are domain.LifecycleHooks implementations: install them
with the engine's WithLifecycleHooks option, and merge them when both are
wanted.
*/
package observability
