/*
Package errors implements the coded errors used across the vault module.

The idea is to reuse as many root errors from this package as possible
and register package specific ones only when necessary. Every error
created at runtime should wrap one of the registered root errors, which
gives each failure a stable numeric code that clients can branch on
without parsing messages. The engine package registers its own roots in
the 1000 range.

To register a custom root error use Register(code, description). To
create errors at runtime use ErrXyz.New / ErrXyz.Newf, or Wrap / Wrapf to
extend an existing error with context. Matching is done with the root's
Is method, which follows the whole cause chain:

	if errors.ErrNotFound.Is(err) { ... }

Stacktraces are attached on the innermost wrap only. Use %+v formatting
to print an error together with its stacktrace.
*/
package errors
