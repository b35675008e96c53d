/*
Package logging implements application log instrumentation and the access
log of the served requests.

# Application Log

The application log uses the logrus package:

https://github.com/sirupsen/logrus

To send messages to the application log, import logrus and use its
methods. Example:

	import log "github.com/sirupsen/logrus"

	func doSomething() {
		log.Errorf("nothing to do")
	}

During startup initialization, it is possible to set the log level,
redirect the log output from the default /dev/stderr to another writer,
switch to JSON output, and set a common prefix for each log entry. Setting
the prefix may be a good idea when the access log is enabled and its
output is the same as the one of the application log, to make it easier to
split the output for diagnostics.

# Access Log

The access log prints HTTP access information in the Apache combined
access log format, extended with the duration, the requested host, the
flow id of the request, the name of the evaluated filter and the outcome
of its evaluation. To output entries, use LogAccess. The driver logs every
request it serves.

During initialization, it is possible to redirect the access log output
from the default /dev/stderr to another writer, to switch to JSON output,
or to disable the access log completely.
*/
package logging
