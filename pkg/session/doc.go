/*
Package session implements session management and persistence orchestration
for wizard states.

The wizard engine is pure: it never reads or writes storage. Hosts that want
resume-after-reload wrap it with a Manager over any ports.StateStore. The
Manager serializes access per session, in process with reference-counted
mutexes and across replicas with an optional ports.DistributedLocker.
*/
package session
