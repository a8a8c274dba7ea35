/*
Package bindredirect generates Go code that installs assembly binding
redirects read from an application configuration file.

# Pipeline (for developers)

Each step has its own sub-package. The steps are glued together in
[Generate]; [Dump] reports the inputs of a run without generating anything.
 1. [config]: Parse the user-supplied 'bindredirect.toml' file and its imports
 2. [appconfig]: Read the redirect entries from 'app.config' into an [ir.Document]
 3. [emit]: Turn the document into a formatted Go source file
 4. [redirect]: Runtime package the generated code calls into

Usage:

	//go:generate go run github.com/refaktor/bindredirect/cmd/bindredirect -in app.config
*/
package bindredirect
