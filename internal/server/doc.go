// Package server is the daemon's control plane: a small JSON-RPC
// surface served over a unix domain socket.
//
// Commands arrive as POST /rpc bodies of the form {"cmd": ..., "params":
// ...} and return {"ok": ..., "data": ..., "error": ...}. The socket
// lives in the state directory, so filesystem permissions are the whole
// auth story; there is no TCP listener.
//
// [Client] wraps the same socket for the CLI, which is the only
// intended consumer.
package server
