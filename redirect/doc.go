/*
Package redirect installs assembly binding redirects at runtime.

A [Registry] holds handlers that are consulted, in registration order, when
an assembly load request cannot be satisfied otherwise. [Install] adds a
run-once handler that rewrites a matching request to the version and public
key token of a [Rule] and loads the result through the registry's [Loader].

Code produced by the bindredirect generator calls [MustInstall] on the
process-wide registry returned by [Default].
*/
package redirect
