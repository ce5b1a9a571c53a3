/*
Package observability provides tools for monitoring the storyline engine.

It turns lifecycle hooks into Prometheus metrics and structured log lines, and
chains several hook sets into one.
*/
package observability
