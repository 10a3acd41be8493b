/*
Package log provides structured logging for packforge using zerolog.

The global Logger is initialized once via Init and is safe for concurrent
use from every stage goroutine. Context loggers (WithComponent, WithRunID,
WithStage, WithChannel) attach fields without repeating them at each call
site — a stage typically builds one WithStage logger at spawn time and
logs through it for the lifetime of the worker.

JSON output is for production/CI; console output (zerolog.ConsoleWriter)
is for interactive `packforge build` runs.
*/
package log
