// Package app wires the controller to its collaborators and owns the
// process lifecycle: the dispatch loop that serialises every controller
// call, the socket.io hub, the healthcheck server and the optional MCP
// server. It is decoupled from any specific entrypoint like a CLI.
package app
