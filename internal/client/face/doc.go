// Package face runs face sign-in: one Flow per attempt, and a PinStep for
// accounts that require a second factor.
//
//	idle → capturing → submitting → authenticated | pin-required | failed
//
// A Flow holds the camera feed only while capturing; the feed is released
// on every exit, including Abandon. The pin-required branch yields a Ticket
// which the caller hands, by value, to NewPinStep.
package face
