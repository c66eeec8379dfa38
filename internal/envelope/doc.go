// Package envelope converts raw tool results into the MCP content format.
//
// Every tool invocation yields a content array with exactly one text
// element. The text payload is itself a JSON document carrying id, title, a
// human-readable markdown rendering, source, and structured metadata;
// list-shaped tools additionally embed a results array of {id, title,
// source} stubs plus a total count. This hybrid shape lets one response
// serve both narrative consumers and clients that render citation lists.
package envelope
