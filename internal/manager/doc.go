// Package manager coordinates the single inference engine of the process. It
// is structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, selection and getters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - types.go: State, LoadedModel, Snapshot.
//   - errors.go: error types and helpers (IsNotReady, IsBusy, IsGeneration).
//   - admission.go: the one-slot generation channel.
//   - ensure.go: EnsureReady and the load/close lifecycle.
//   - generate.go, stream.go: Generate and the ordered delta Stream.
//   - estimate.go: remaining-context estimate.
//   - reset.go: session reset on the loaded engine.
//   - unload.go: Unload and Shutdown.
//   - status_report.go: Status/Snapshot reporting helpers.
//   - ops.go: asynchronous Switch.
//   - events.go, eventpub_memory.go: lifecycle event publishers.
//   - metrics.go: Prometheus collectors.
//
// Locking: genCh is taken before engineMu. Generate only ever tries the slot
// and fails fast; load, reset and unload wait for it. mu guards the
// observable fields and is never held while waiting on either of the others.
//
// The engine runtime comes from internal/llm. The in-process go-llama.cpp
// runtime is compiled in with `-tags=llama`; without it a stub runtime fails
// every load with llm.ErrRuntimeUnavailable.
package manager
