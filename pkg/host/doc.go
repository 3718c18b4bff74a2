// Package host implements the master side: the link bring-up sequence, the
// single-slot session handing commands from the terminal to the worker,
// and the worker running transactions.
package host
