// Package ops registers every node operation code against the flow
// package's handler table.
//
// Each file defines one or a few closely related op codes and
// registers them via an init() that calls flow.RegisterHandler.
// Importing this package (even blank) wires every handler:
//
//	import _ "github.com/rakunlabs/ivrflow/internal/ivr/ops"
//
// Registered operations:
//
//   - 10  play        — play a configured audio file
//   - 11  playCaptured — play a file recorded earlier in the same call
//   - 20  collectDigits — multi-digit DTMF collection terminated by "#"
//   - 30  playAndCollect — prompt + single-digit menu selection, language select
//   - 31  playCapturedCollect — as 30, prompt from a captured file
//   - 40  record       — record caller audio to a profiled file
//   - 50  playDigits   — speak a stored digit string one digit at a time
//   - 100 transferQueue — hand the call to a queue of agents
//   - 101 transferQueueEval — as 100, with evaluation re-entry
//   - 105 extensionDial — collect and bridge to an internal extension
//   - 107 directExtension — bridge to a literal extension
//   - 108 externalDial  — bridge to an extension via a named gateway
//   - 111 httpInvoke    — invoke a cataloged HTTP API
//   - 112 httpInvokeCurl — as 111, populating curl_response_code/data
//   - 120 branch        — comparison-only edge selection, no primitive
//   - 200 terminate     — end the call
//   - 330 ttsBuiltin     — speak templated text with the built-in engine
//   - 331 ttsCloud       — speak templated text with the cloud engine
//   - 341 speechToText   — transcribe a recording into the variable store
package ops
