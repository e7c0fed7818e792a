// Package types defines the core protocol and domain types shared by the
// client-side session manager and the elevated helper.
package types

// Version is the canonical module version, printed by the
// imgwriter-session `version` subcommand.
const Version = "0.1.0"

// ProtocolVersion pins the wire codec for every frame exchanged over the
// named pipe. There is exactly one version: both endpoints ship from this
// module, so there is no cross-version negotiation to perform.
const ProtocolVersion = 1
