// Package mcpserver exposes the inspect and sanitize operations as Model
// Context Protocol tools so that agents can clean images before sharing
// them. The server is a thin caller of the engine and owns no engine state.
package mcpserver
