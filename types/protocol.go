package types

import "fmt"

// Verb is a command frame's leading token.
type Verb string

// Command verbs. The verb uniquely determines arity and argument kinds.
const (
	VerbFormat     Verb = "FORMAT"
	VerbWrite      Verb = "WRITE"
	VerbCustomize  Verb = "CUSTOMIZE"
	VerbVerify     Verb = "VERIFY"
	VerbShutdown   Verb = "SHUTDOWN"
)

// HandshakeHello and HandshakeReady are the literal handshake tokens.
// No versioning fields accompany them; any deviation is an error.
const (
	HandshakeHello = "HELLO"
	HandshakeReady = "READY"
)

// Completion tokens. Exactly one is emitted per accepted command.
const (
	CompletionSuccess = "SUCCESS"
	CompletionFailure = "FAILURE"
)

// ProgressKind discriminates the three progress frame kinds.
type ProgressKind int32

const (
	// ProgressDownload reports image-download progress (owned by the UI;
	// the helper never emits this kind, but the wire format reserves it).
	ProgressDownload ProgressKind = 1
	// ProgressVerify reports VERIFY progress.
	ProgressVerify ProgressKind = 2
	// ProgressWrite reports WRITE progress.
	ProgressWrite ProgressKind = 3
)

func (k ProgressKind) String() string {
	switch k {
	case ProgressDownload:
		return "download"
	case ProgressVerify:
		return "verify"
	case ProgressWrite:
		return "write"
	default:
		return fmt.Sprintf("progress(%d)", int32(k))
	}
}

// HelperState is the helper-side connection/processing state machine.
type HelperState int

const (
	HelperIdle HelperState = iota
	HelperConnected
	HelperHandshakeSending
	HelperHandshakeReceiving
	HelperReady
	HelperProcessing
	HelperError
)

func (s HelperState) String() string {
	switch s {
	case HelperIdle:
		return "Idle"
	case HelperConnected:
		return "Connected"
	case HelperHandshakeSending:
		return "HandshakeSending"
	case HelperHandshakeReceiving:
		return "HandshakeReceiving"
	case HelperReady:
		return "Ready"
	case HelperProcessing:
		return "Processing"
	case HelperError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ClientState is the client-side session state machine.
type ClientState int

const (
	ClientDisconnected ClientState = iota
	ClientConnecting
	ClientHandshakeReceiving
	ClientHandshakeSending
	ClientConnected
	ClientBusy
	ClientError
)

func (s ClientState) String() string {
	switch s {
	case ClientDisconnected:
		return "Disconnected"
	case ClientConnecting:
		return "Connecting"
	case ClientHandshakeReceiving:
		return "HandshakeReceiving"
	case ClientHandshakeSending:
		return "HandshakeSending"
	case ClientConnected:
		return "Connected"
	case ClientBusy:
		return "Busy"
	case ClientError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ErrorKind discriminates client-visible failure categories, carried as
// the Kind of the *session.Error values the session manager returns, so
// callers branch on the kind rather than on error types or text.
type ErrorKind int

const (
	ErrKindNone ErrorKind = iota
	ErrKindElevationCancelled
	ErrKindHelperNotFound
	ErrKindAccessDenied
	ErrKindConnectTimeout
	ErrKindHandshakeFailure
	ErrKindProtocolViolation
	ErrKindDeviceOpenFailure
	ErrKindWriteFailure
	ErrKindVerificationMismatch
	ErrKindOperationTimeout
	ErrKindFATCustomizationFailure
	ErrKindBusy
	ErrKindIO
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindNone:
		return "none"
	case ErrKindElevationCancelled:
		return "elevation_cancelled"
	case ErrKindHelperNotFound:
		return "helper_not_found"
	case ErrKindAccessDenied:
		return "access_denied"
	case ErrKindConnectTimeout:
		return "connect_timeout"
	case ErrKindHandshakeFailure:
		return "handshake_failure"
	case ErrKindProtocolViolation:
		return "protocol_violation"
	case ErrKindDeviceOpenFailure:
		return "device_open_failure"
	case ErrKindWriteFailure:
		return "write_failure"
	case ErrKindVerificationMismatch:
		return "verification_mismatch"
	case ErrKindOperationTimeout:
		return "operation_timeout"
	case ErrKindFATCustomizationFailure:
		return "fat_customization_failure"
	case ErrKindBusy:
		return "busy"
	case ErrKindIO:
		return "io_error"
	default:
		return "unknown"
	}
}

// InitFormat selects the boot customisation strategy for CUSTOMIZE.
type InitFormat string

const (
	InitFormatAuto      InitFormat = "auto"
	InitFormatCloudInit InitFormat = "cloudinit"
	InitFormatSystemd   InitFormat = "systemd"
)
