/*
Package spi implements the method layer: the uniform envelope that
wraps every resource operation in pre and post hooks, decides per call
whether a transaction is required, and drives the unique lock protocol
around writes.

A Method owns three signals. The pre signal fires before the operation
with the call arguments, the post signal fires after it with the result
attached, and the action signal is the operation itself: the built-in
datastore work is the first receiver connected to it, further receivers
extend the operation, and the first non-nil receiver result becomes the
method result.

Each call re-evaluates whether to promote into a transaction. Promotion
happens when the call computed unique lock work, or when the pre or
post signal currently has receivers, on the assumption that receivers
may write and need atomicity with the operation. A call with neither
runs directly against the client with no transaction overhead. Inside a
promoted call the open transaction travels in the context; receivers
that write should join it via TransactionFromContext.
*/
package spi // import "go.kotori.dev/arbor/spi"
