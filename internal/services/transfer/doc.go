/*
Package transfer implements the wallet transfer engine and its asynchronous
dispatcher.

A transfer moves an amount, denominated in the source wallet's currency,
into a destination wallet, converting through the USD base unit. The engine
drives a transaction through the state machine

	CREATED -> SUCCEEDED | FAILED

and records every transition in the append-only transaction log. Both
terminal states commit: a business failure (insufficient balance, rate
unavailable) is a persisted FAILED transaction, not an error. Only the
same-wallet and wallet-not-found preconditions abort before any row exists.

Rate lookups run before the write transaction so a slow provider never holds
row locks; the source balance is re-validated under a row lock inside the
transaction to close the stale-read window that ordering opens.

Currency conversion contract: credited = amount * rate_from / rate_to, where
the division is performed with shopspring/decimal DivRound to 8 fractional
digits (round half away from zero). Balance addition and subtraction are
exact.

The dispatcher gives transfers their fire-and-continue semantics: Enqueue
validates preconditions synchronously, hands the request to a worker pool
and returns a job id whose status (queued, running, succeeded, failed plus
the transaction id) stays queryable through Status.
*/
package transfer
