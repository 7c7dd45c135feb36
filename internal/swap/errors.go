package swap

import "errors"

// Pipeline-level sentinel errors. Grounded on the step failures
// async_jupiter_svc.py's _do_swap/_do_swap_with_retry can raise, translated
// into distinct Go errors so callers (internal/account, internal/engine)
// can branch on what failed rather than parsing messages.
var (
	// ErrNoRoute means Jupiter returned a quote with no viable route.
	// Mirrors _get_quote_with_route raising "Nenhuma rota encontrada!".
	ErrNoRoute = errors.New("swap: no route found")

	// ErrSimulationFailed means the transaction failed preflight simulation.
	ErrSimulationFailed = errors.New("swap: simulation failed")

	// ErrConfirmationTimeout means submit succeeded but confirmation never
	// landed within the timeout window. Mirrors _wait_for_confirmation's
	// TimeoutError after the default 30s window.
	ErrConfirmationTimeout = errors.New("swap: confirmation timeout")

	// ErrExecutionFailed is the catch-all for an attempt that failed for a
	// reason other than the above, after exhausting all retries.
	ErrExecutionFailed = errors.New("swap: execution failed")

	// ErrAlreadyLanded names the case where a retry's preliminary status
	// check finds the previous attempt's signature already confirmed or
	// finalized. Pipeline.Execute does not return it: in that case Execute
	// returns the previous attempt's Result with a nil error.
	ErrAlreadyLanded = errors.New("swap: previous attempt already landed")
)
