// Package mcp serves the basketball answer pipeline over the Model Context
// Protocol (github.com/modelcontextprotocol/go-sdk/mcp).
//
// Two tools are registered: ask_basketball answers one question and
// list_basketball_knowledge lists the corpus or the indexed records.
package mcp
