/*
Package session manages named save slots on top of a ports.Store.

It serializes concurrent access per slot with reference-counted locks and
handles snapshot encoding, so hosts that run several engines against the
same backend never interleave writes to a slot.
*/
package session
