// Package framesync finds the start of a payload by correlating received
// symbols against a known sentinel.
package framesync
